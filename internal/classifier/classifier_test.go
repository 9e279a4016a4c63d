package classifier

import (
	"reflect"
	"testing"

	"cvcraft/internal/types"
)

func TestClassifyStages(t *testing.T) {
	c := NewRegexClassifier()

	tests := []struct {
		name           string
		message        string
		wantStatus     *types.StageStatus
		wantProfession string
		wantSections   []string
	}{
		{
			name:       "asking for profession",
			message:    "Hello! To get started, what is your profession?",
			wantStatus: stagePtr(types.StageCollectingProfession),
		},
		{
			name:           "profession given with suggested sections",
			message:        "I am a software engineer, please suggest sections:\n- Experience\n- Education",
			wantStatus:     stagePtr(types.StageSelectingSections),
			wantProfession: "software engineer",
			wantSections:   []string{"Experience", "Education"},
		},
		{
			name:           "profession phrase with sections via other markers",
			message:        "Based on your profession as a nurse, I recommend the following sections:\n  • Experience\n  * Certifications",
			wantStatus:     stagePtr(types.StageSelectingSections),
			wantProfession: "nurse",
			wantSections:   []string{"Experience", "Certifications"},
		},
		{
			name:           "numbered list yields no sections",
			message:        "As a teacher, I suggest the following sections:\n1. Experience\n2. Education",
			wantStatus:     stagePtr(types.StageSelectingSections),
			wantProfession: "teacher",
		},
		{
			name:       "collecting details",
			message:    "Great! Could you share your full name?",
			wantStatus: stagePtr(types.StageCollectingDetails),
		},
		{
			name:       "review stage",
			message:    "Here is what I've put together. Is there anything you'd like to change?",
			wantStatus: stagePtr(types.StageReview),
		},
		{
			name:    "no rule matches",
			message: "Thanks, that's very helpful!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.message)

			if !statusEqual(got.Status, tt.wantStatus) {
				t.Errorf("status = %v, want %v", statusString(got.Status), statusString(tt.wantStatus))
			}
			if got.Profession != tt.wantProfession {
				t.Errorf("profession = %q, want %q", got.Profession, tt.wantProfession)
			}
			if !reflect.DeepEqual(got.Sections, tt.wantSections) {
				t.Errorf("sections = %v, want %v", got.Sections, tt.wantSections)
			}
		})
	}
}

func TestClassifyCascadeLastRuleWins(t *testing.T) {
	c := NewRegexClassifier()

	// Matches both the profession-ask rule and the details rule; the
	// later rule must overwrite the earlier one.
	msg := "What is your profession? Also, tell me about your background."
	got := c.Classify(msg)
	if got.Status == nil || *got.Status != types.StageCollectingDetails {
		t.Errorf("status = %v, want %v", statusString(got.Status), types.StageCollectingDetails)
	}

	// The review rule sits last in the cascade and overwrites details.
	msg = "Could you share your full name so I can finish the summary of your CV?"
	got = c.Classify(msg)
	if got.Status == nil || *got.Status != types.StageReview {
		t.Errorf("status = %v, want %v", statusString(got.Status), types.StageReview)
	}
}

func TestClassifyIsPure(t *testing.T) {
	c := NewRegexClassifier()
	msg := "I am a software engineer, please suggest sections:\n- Experience\n- Education"

	first := c.Classify(msg)
	for i := 0; i < 3; i++ {
		again := c.Classify(msg)
		if !statusEqual(first.Status, again.Status) ||
			first.Profession != again.Profession ||
			!reflect.DeepEqual(first.Sections, again.Sections) {
			t.Fatalf("classification drifted on repeat %d: %+v vs %+v", i, first, again)
		}
	}
}

func statusEqual(a, b *types.StageStatus) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func statusString(s *types.StageStatus) string {
	if s == nil {
		return "<nil>"
	}
	return string(*s)
}

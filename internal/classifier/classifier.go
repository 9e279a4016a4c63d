package classifier

import (
	"regexp"
	"strings"

	"cvcraft/internal/types"
)

// Result carries whatever the classifier could infer from one assistant
// reply. A nil Status means no rule matched and the caller should keep the
// session's previous stage.
type Result struct {
	Status     *types.StageStatus
	Profession string
	Sections   []string
}

// StageClassifier infers the CV-workflow stage from an assistant reply.
// Implementations must be pure: same input, same result, no I/O.
type StageClassifier interface {
	Classify(message string) Result
}

// RegexClassifier is the heuristic pattern-based classifier. The rules run
// in a fixed order and each matching rule overwrites the status set by an
// earlier one; this last-write-wins cascade is intentional and callers
// depend on it.
type RegexClassifier struct{}

var _ StageClassifier = RegexClassifier{}

// NewRegexClassifier returns the default stage classifier
func NewRegexClassifier() RegexClassifier {
	return RegexClassifier{}
}

var (
	professionAskRe = regexp.MustCompile(`(?i)what is your profession|what do you do for a living|what's your profession`)

	professionGivenRe   = regexp.MustCompile(`(?i)based on your profession as|for your profession as|\b(?:as|am) an? |profession in`)
	professionExtractRe = regexp.MustCompile(`(?i)profession as an? ([^,.]+)|\b(?:as|am) an? ([^,.]+)|profession in ([^,.]+)`)

	sectionSuggestRe = regexp.MustCompile(`(?i)suggest|recommend|include these sections|following sections`)
	bulletLineRe     = regexp.MustCompile(`^\s*[-•*]\s+`)

	detailsRe = regexp.MustCompile(`(?i)full name|contact information|work experience|provide details|tell me about|could you share`)
	reviewRe  = regexp.MustCompile(`(?i)review|looks good|summary of|here's what i've|here is what i've|final cv|anything you'd like to change`)
)

// Classify runs the rule cascade over one assistant message
func (RegexClassifier) Classify(message string) Result {
	var result Result

	if professionAskRe.MatchString(message) {
		result.Status = stagePtr(types.StageCollectingProfession)
	}

	if professionGivenRe.MatchString(message) {
		if m := professionExtractRe.FindStringSubmatch(message); m != nil {
			for _, group := range m[1:] {
				if group != "" {
					result.Profession = strings.TrimSpace(group)
					break
				}
			}
		}

		if sectionSuggestRe.MatchString(message) {
			result.Status = stagePtr(types.StageSelectingSections)
			result.Sections = extractBulletLines(message)
		}
	}

	if detailsRe.MatchString(message) {
		result.Status = stagePtr(types.StageCollectingDetails)
	}

	if reviewRe.MatchString(message) {
		result.Status = stagePtr(types.StageReview)
	}

	return result
}

// extractBulletLines returns the text of every line that starts with a
// bullet marker. Numbered lists deliberately do not count.
func extractBulletLines(message string) []string {
	var sections []string
	for _, line := range strings.Split(message, "\n") {
		if bulletLineRe.MatchString(line) {
			sections = append(sections, strings.TrimSpace(bulletLineRe.ReplaceAllString(line, "")))
		}
	}
	return sections
}

func stagePtr(s types.StageStatus) *types.StageStatus {
	return &s
}

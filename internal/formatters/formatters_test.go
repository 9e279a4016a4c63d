package formatters

import (
	"strings"
	"testing"

	"cvcraft/internal/types"
)

func sampleCV() types.CVData {
	return types.CVData{
		PersonalInfo: types.PersonalInfo{
			FullName: "Dana Osei",
			Title:    "Data Engineer",
			Email:    "dana@example.com",
			Location: "Leeds, UK",
		},
		Sections: []types.CVSection{
			{
				Title:   "Profile",
				Content: types.TextContent("Data engineer with six years of pipeline experience."),
			},
			{
				Title: "Work Experience",
				Content: types.ListContent(
					types.ItemEntry(types.SectionItem{
						Title:        "Senior Data Engineer",
						Organization: "Northlake Analytics",
						Period:       "2021 - Present",
						Items:        []string{"Rebuilt the ingestion layer", "Cut warehouse costs by 30%"},
					}),
					types.TextEntry("Earlier roles available on request"),
				),
			},
			{
				Title: "Skills",
				Content: types.ListContent(
					types.TextEntry("Python"),
					types.TextEntry("Airflow"),
				),
			},
		},
	}
}

func TestFormatText(t *testing.T) {
	output, err := GlobalRegistry.Format(sampleCV(), "text")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	wantFragments := []string{
		"DANA OSEI",
		"Data Engineer",
		"=== PROFILE ===",
		"Senior Data Engineer",
		"Northlake Analytics | 2021 - Present",
		"- Rebuilt the ingestion layer",
		"- Earlier roles available on request",
		"- Python",
	}
	for _, fragment := range wantFragments {
		if !strings.Contains(output, fragment) {
			t.Errorf("text output missing %q\noutput:\n%s", fragment, output)
		}
	}
}

func TestFormatMarkdown(t *testing.T) {
	output, err := GlobalRegistry.Format(sampleCV(), "markdown")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	wantFragments := []string{
		"# Dana Osei",
		"**Data Engineer**",
		"## Profile",
		"### Senior Data Engineer",
		"- Cut warehouse costs by 30%",
		"## Skills",
	}
	for _, fragment := range wantFragments {
		if !strings.Contains(output, fragment) {
			t.Errorf("markdown output missing %q\noutput:\n%s", fragment, output)
		}
	}
}

func TestFormatJSONRoundTrip(t *testing.T) {
	output, err := GlobalRegistry.Format(sampleCV(), "json")
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	if !strings.Contains(output, `"fullName": "Dana Osei"`) {
		t.Errorf("json output missing personal info:\n%s", output)
	}
	// Sections serialize with their wire shape: plain string or array
	if !strings.Contains(output, `"content": "Data engineer with six years of pipeline experience."`) {
		t.Errorf("json output missing text section content:\n%s", output)
	}
}

func TestFormatPointerCV(t *testing.T) {
	cv := sampleCV()
	output, err := GlobalRegistry.Format(&cv, "text")
	if err != nil {
		t.Fatalf("Format failed for pointer input: %v", err)
	}
	if !strings.Contains(output, "DANA OSEI") {
		t.Errorf("pointer input not formatted as CV data:\n%s", output)
	}
}

func TestFormatUnknownFormat(t *testing.T) {
	_, err := GlobalRegistry.Format(sampleCV(), "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestFormatUnexpectedTypeFallsBackToJSON(t *testing.T) {
	// Non-CV data has no text formatter but json handles anything
	if _, err := GlobalRegistry.Format(map[string]string{"k": "v"}, "json"); err != nil {
		t.Fatalf("json fallback failed: %v", err)
	}
	if _, err := GlobalRegistry.Format(map[string]string{"k": "v"}, "text"); err == nil {
		t.Fatal("expected error formatting unknown type as text")
	}
}

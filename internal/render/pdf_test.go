package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	apperrors "cvcraft/internal/errors"
	"cvcraft/internal/types"
)

func TestOrgPeriodLine(t *testing.T) {
	tests := []struct {
		name string
		item types.SectionItem
		want string
	}{
		{
			name: "organization and period",
			item: types.SectionItem{Organization: "Acme Corp", Period: "2020 - 2024"},
			want: "Acme Corp | 2020 - 2024",
		},
		{
			name: "organization only",
			item: types.SectionItem{Organization: "Acme Corp"},
			want: "Acme Corp",
		},
		{
			name: "period only",
			item: types.SectionItem{Period: "2020 - 2024"},
			want: "2020 - 2024",
		},
		{
			name: "neither",
			item: types.SectionItem{Title: "Engineer"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OrgPeriodLine(tt.item); got != tt.want {
				t.Errorf("OrgPeriodLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContactLine(t *testing.T) {
	tests := []struct {
		name string
		info types.PersonalInfo
		want string
	}{
		{
			name: "all fields in fixed order",
			info: types.PersonalInfo{Email: "a@b.c", Phone: "123", Location: "Berlin"},
			want: "Email: a@b.c | Phone: 123 | Location: Berlin",
		},
		{
			name: "single field has no separator",
			info: types.PersonalInfo{Phone: "123"},
			want: "Phone: 123",
		},
		{
			name: "no fields",
			info: types.PersonalInfo{FullName: "A B", Title: "Engineer"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContactLine(tt.info); got != tt.want {
				t.Errorf("ContactLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderProducesPDF(t *testing.T) {
	cv := &types.CVData{
		PersonalInfo: types.PersonalInfo{
			FullName: "A B",
			Title:    "Engineer",
			Email:    "a@b.c",
		},
		Sections: []types.CVSection{
			{Title: "Skills", Content: types.ListContent(types.TextEntry("Go"), types.TextEntry("Rust"))},
			{Title: "Summary", Content: types.TextContent("A short professional summary.")},
			{Title: "Experience", Content: types.ListContent(types.ItemEntry(types.SectionItem{
				Title:        "Backend Engineer",
				Organization: "Acme",
				Period:       "2020 - 2024",
				Description:  "Owned the billing pipeline.",
				Items:        []string{"Cut costs by 30%", "Led a team of four"},
				Skills:       []string{"Go", "Postgres"},
			}))},
		},
	}

	var buf bytes.Buffer
	if err := NewPDFRenderer(nil).Render(cv, &buf); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if !strings.HasPrefix(buf.String(), "%PDF-") {
		t.Error("output does not start with a PDF header")
	}
	if buf.Len() < 1000 {
		t.Errorf("output suspiciously small: %d bytes", buf.Len())
	}
}

func TestRenderNilData(t *testing.T) {
	err := NewPDFRenderer(nil).Render(nil, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for nil CV data")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrorTypeRender {
		t.Errorf("expected render AppError, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("sink closed")
}

func TestRenderPropagatesWriteFailure(t *testing.T) {
	cv := &types.CVData{PersonalInfo: types.PersonalInfo{FullName: "A B"}}

	err := NewPDFRenderer(nil).Render(cv, failingWriter{})
	if err == nil {
		t.Fatal("expected error from failing writer")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperrors.ErrCodeRenderFailed {
		t.Errorf("expected RENDER_FAILED AppError, got %v", err)
	}
}

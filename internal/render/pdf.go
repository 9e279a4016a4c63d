package render

import (
	"io"
	"strings"

	apperrors "cvcraft/internal/errors"
	"cvcraft/internal/types"

	"github.com/go-pdf/fpdf"
)

// Layout constants follow the classic single-column CV look: letter-style
// margins, large centered header, ruled section titles.
const (
	pageMargin = 50.0

	nameSize     = 24.0
	subtitleSize = 14.0
	sectionSize  = 14.0
	itemSize     = 12.0
	bodySize     = 10.0

	bodyLine = 12.0
)

// PDFRenderer paints a CVData payload into a paginated PDF document.
// Page breaks are handled by the document engine; the renderer only flows
// content top to bottom.
type PDFRenderer struct {
	logger *apperrors.Logger
}

// NewPDFRenderer creates a renderer. The logger may be nil.
func NewPDFRenderer(logger *apperrors.Logger) *PDFRenderer {
	return &PDFRenderer{logger: logger}
}

// Render writes the document to w. On error the partial output is invalid
// and the caller must discard it.
func (r *PDFRenderer) Render(cv *types.CVData, w io.Writer) error {
	if cv == nil {
		return apperrors.NewRenderError(apperrors.ErrCodeCVDataMissing,
			"No CV data to render", nil)
	}

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()

	r.renderHeader(doc, tr, cv.PersonalInfo)

	for _, section := range cv.Sections {
		r.renderSection(doc, tr, section)
	}

	if doc.Err() {
		return apperrors.NewRenderError(apperrors.ErrCodeRenderFailed,
			"Document layout failed", doc.Error())
	}

	if err := doc.Output(w); err != nil {
		return apperrors.NewRenderError(apperrors.ErrCodeRenderFailed,
			"Failed to write PDF output", err)
	}

	if r.logger != nil {
		r.logger.Debug("CV document rendered",
			"sections", len(cv.Sections),
			"pages", doc.PageCount())
	}

	return nil
}

// renderHeader emits the centered name, optional title line and the
// pipe-joined contact line.
func (r *PDFRenderer) renderHeader(doc *fpdf.Fpdf, tr func(string) string, info types.PersonalInfo) {
	doc.SetFont("Helvetica", "B", nameSize)
	doc.MultiCell(0, 28, tr(info.FullName), "", "C", false)

	if info.Title != "" {
		doc.SetFont("Helvetica", "", subtitleSize)
		doc.MultiCell(0, 18, tr(info.Title), "", "C", false)
	}

	if line := ContactLine(info); line != "" {
		doc.Ln(6)
		doc.SetFont("Helvetica", "", bodySize)
		doc.MultiCell(0, bodyLine, tr(line), "", "C", false)
	}

	doc.Ln(12)
}

func (r *PDFRenderer) renderSection(doc *fpdf.Fpdf, tr func(string) string, section types.CVSection) {
	doc.SetFont("Helvetica", "B", sectionSize)
	doc.MultiCell(0, 18, tr(section.Title), "", "L", false)

	doc.Ln(2)
	pageWidth, _ := doc.GetPageSize()
	y := doc.GetY()
	doc.Line(pageMargin, y, pageWidth-pageMargin, y)
	doc.Ln(6)

	if section.Content.IsText {
		r.paragraph(doc, tr, section.Content.Text)
	} else {
		for _, entry := range section.Content.Entries {
			if entry.Item == nil {
				r.paragraph(doc, tr, entry.Text)
				doc.Ln(6)
				continue
			}
			r.renderItem(doc, tr, *entry.Item)
		}
	}

	doc.Ln(12)
}

func (r *PDFRenderer) renderItem(doc *fpdf.Fpdf, tr func(string) string, item types.SectionItem) {
	if item.Title != "" {
		doc.SetFont("Helvetica", "B", itemSize)
		doc.MultiCell(0, 14, tr(item.Title), "", "L", false)
	}

	if line := OrgPeriodLine(item); line != "" {
		doc.SetFont("Helvetica", "I", bodySize)
		doc.MultiCell(0, bodyLine, tr(line), "", "L", false)
	}

	if item.Description != "" {
		doc.Ln(2)
		r.paragraph(doc, tr, item.Description)
	}

	if len(item.Items) > 0 {
		doc.Ln(3)
		doc.SetFont("Helvetica", "", bodySize)
		for _, bullet := range item.Items {
			doc.SetX(pageMargin + 10)
			doc.MultiCell(0, bodyLine, tr("• "+bullet), "", "L", false)
		}
	}

	if len(item.Skills) > 0 {
		doc.Ln(3)
		r.paragraph(doc, tr, strings.Join(item.Skills, ", "))
	}

	doc.Ln(6)
}

func (r *PDFRenderer) paragraph(doc *fpdf.Fpdf, tr func(string) string, text string) {
	doc.SetFont("Helvetica", "", bodySize)
	doc.MultiCell(0, bodyLine, tr(text), "", "L", false)
}

// ContactLine joins the present contact fields in fixed order with " | ".
// Returns "" when no contact field is set.
func ContactLine(info types.PersonalInfo) string {
	var parts []string
	if info.Email != "" {
		parts = append(parts, "Email: "+info.Email)
	}
	if info.Phone != "" {
		parts = append(parts, "Phone: "+info.Phone)
	}
	if info.Location != "" {
		parts = append(parts, "Location: "+info.Location)
	}
	return strings.Join(parts, " | ")
}

// OrgPeriodLine formats the italic descriptor line of a structured item:
// both values joined with " | ", either alone, or "" when neither is set.
func OrgPeriodLine(item types.SectionItem) string {
	switch {
	case item.Organization != "" && item.Period != "":
		return item.Organization + " | " + item.Period
	case item.Organization != "":
		return item.Organization
	case item.Period != "":
		return item.Period
	default:
		return ""
	}
}

package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"cvcraft/internal/render"
	"cvcraft/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "CVData", &CVTextFormatter{})
	registry.RegisterFormatter("markdown", "CVData", &CVMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.CVData, *types.CVData:
		return "CVData"
	default:
		return "any"
	}
}

func asCVData(data any) (*types.CVData, bool) {
	switch v := data.(type) {
	case types.CVData:
		return &v, true
	case *types.CVData:
		return v, true
	default:
		return nil, false
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// CVTextFormatter handles plain text formatting for CV data
type CVTextFormatter struct{}

func (ctf *CVTextFormatter) Format(data any) (string, error) {
	cv, ok := asCVData(data)
	if !ok {
		return "", fmt.Errorf("expected CVData, got %T", data)
	}

	var output strings.Builder

	output.WriteString(strings.ToUpper(cv.PersonalInfo.FullName))
	output.WriteString("\n")
	if cv.PersonalInfo.Title != "" {
		output.WriteString(cv.PersonalInfo.Title)
		output.WriteString("\n")
	}
	if contact := render.ContactLine(cv.PersonalInfo); contact != "" {
		output.WriteString(contact)
		output.WriteString("\n")
	}
	output.WriteString("\n")

	for _, section := range cv.Sections {
		output.WriteString("=== ")
		output.WriteString(strings.ToUpper(section.Title))
		output.WriteString(" ===\n")

		if section.Content.IsText {
			output.WriteString(section.Content.Text)
			output.WriteString("\n\n")
			continue
		}

		for _, entry := range section.Content.Entries {
			if entry.Item == nil {
				output.WriteString(fmt.Sprintf("- %s\n", entry.Text))
				continue
			}
			writeItemText(&output, entry.Item)
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func writeItemText(output *strings.Builder, item *types.SectionItem) {
	if item.Title != "" {
		output.WriteString(item.Title)
		output.WriteString("\n")
	}
	if line := render.OrgPeriodLine(*item); line != "" {
		output.WriteString("  ")
		output.WriteString(line)
		output.WriteString("\n")
	}
	if item.Description != "" {
		output.WriteString("  ")
		output.WriteString(item.Description)
		output.WriteString("\n")
	}
	for _, bullet := range item.Items {
		output.WriteString(fmt.Sprintf("  - %s\n", bullet))
	}
	if len(item.Skills) > 0 {
		output.WriteString("  Skills: ")
		output.WriteString(strings.Join(item.Skills, ", "))
		output.WriteString("\n")
	}
}

func (ctf *CVTextFormatter) SupportedType() string {
	return "CVData"
}

// CVMarkdownFormatter handles markdown formatting for CV data
type CVMarkdownFormatter struct{}

func (cmf *CVMarkdownFormatter) Format(data any) (string, error) {
	cv, ok := asCVData(data)
	if !ok {
		return "", fmt.Errorf("expected CVData, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# ")
	output.WriteString(cv.PersonalInfo.FullName)
	output.WriteString("\n\n")
	if cv.PersonalInfo.Title != "" {
		output.WriteString("**")
		output.WriteString(cv.PersonalInfo.Title)
		output.WriteString("**\n\n")
	}
	if contact := render.ContactLine(cv.PersonalInfo); contact != "" {
		output.WriteString(contact)
		output.WriteString("\n\n")
	}

	for _, section := range cv.Sections {
		output.WriteString("## ")
		output.WriteString(section.Title)
		output.WriteString("\n\n")

		if section.Content.IsText {
			output.WriteString(section.Content.Text)
			output.WriteString("\n\n")
			continue
		}

		for _, entry := range section.Content.Entries {
			if entry.Item == nil {
				output.WriteString(fmt.Sprintf("- %s\n", entry.Text))
				continue
			}
			writeItemMarkdown(&output, entry.Item)
		}
		output.WriteString("\n")
	}

	return output.String(), nil
}

func writeItemMarkdown(output *strings.Builder, item *types.SectionItem) {
	if item.Title != "" {
		output.WriteString("### ")
		output.WriteString(item.Title)
		output.WriteString("\n\n")
	}
	if line := render.OrgPeriodLine(*item); line != "" {
		output.WriteString("*")
		output.WriteString(line)
		output.WriteString("*\n\n")
	}
	if item.Description != "" {
		output.WriteString(item.Description)
		output.WriteString("\n\n")
	}
	for _, bullet := range item.Items {
		output.WriteString(fmt.Sprintf("- %s\n", bullet))
	}
	if len(item.Items) > 0 {
		output.WriteString("\n")
	}
	if len(item.Skills) > 0 {
		output.WriteString("**Skills:** ")
		output.WriteString(strings.Join(item.Skills, ", "))
		output.WriteString("\n\n")
	}
}

func (cmf *CVMarkdownFormatter) SupportedType() string {
	return "CVData"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()

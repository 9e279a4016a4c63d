package assistant

import (
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// AssistantName is the display name registered with the assistant API
const AssistantName = "CV Builder Assistant"

// GenerateCVToolName is the function the assistant calls when the user
// confirms the final CV
const GenerateCVToolName = "generate_cv"

// DefaultInstructions drives the staged CV-building conversation. The
// phrasing matters: the stage classifier keys off the assistant's
// wording for profession questions, section suggestions, detail
// collection, and review.
const DefaultInstructions = `You are a friendly and professional CV building assistant. You help users create a complete CV through a step-by-step conversation.

Follow this workflow strictly, one step at a time:

1. Greet the user and ask: "What is your profession?" Do not move on until they answer.

2. Once you know their profession, suggest relevant CV sections. Phrase it as: "Based on your profession as a <profession>, I suggest the following sections:" and list each suggested section on its own line as a bullet starting with "- ". Typical sections include Work Experience, Education, Skills, Certifications, and Projects. Ask the user to confirm or adjust the list.

3. After the sections are agreed, collect details for each section in turn. Start with personal information: ask for their full name and contact information (email, phone, location). Then ask about work experience, education, and the remaining sections. Ask about one section at a time and wait for the answer.

4. When every section has content, present a summary of the CV for review and ask if there is anything you'd like to change.

5. Only when the user explicitly confirms the CV is correct, call the generate_cv function with the complete structured data. Never call it before the user confirms.

Rules:
- Keep responses short and conversational.
- Never invent details the user did not provide.
- personalInfo.fullName is required; do not call generate_cv without it.
- Section content may be a plain text paragraph or a list of entries. Work experience and education entries should include title, organization, and period where known.`

// generateCVTool defines the function-calling contract the assistant
// uses to hand back the finished CV.
func generateCVTool() openai.AssistantTool {
	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"personalInfo": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"fullName": {Type: jsonschema.String},
					"title":    {Type: jsonschema.String, Description: "Professional title shown under the name"},
					"email":    {Type: jsonschema.String},
					"phone":    {Type: jsonschema.String},
					"location": {Type: jsonschema.String},
				},
				Required: []string{"fullName"},
			},
			"sections": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"title": {Type: jsonschema.String},
						// Deliberately untyped: content is either a plain
						// text paragraph or an array whose entries are
						// strings or structured items.
						"content": {
							Description: "Either a plain text paragraph, or an array of entries where each entry is a string or an object with title, organization, period, description, items, and skills fields",
						},
					},
					Required: []string{"title", "content"},
				},
			},
		},
		Required: []string{"personalInfo", "sections"},
	}

	return openai.AssistantTool{
		Type: openai.AssistantToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        GenerateCVToolName,
			Description: "Generate the final CV PDF from the collected structured data. Call only after the user confirms the CV.",
			Parameters:  params,
		},
	}
}

// resolveInstructions selects the effective instructions: config
// overrides win over the built-in default.
func resolveInstructions(fromConfig string) string {
	if fromConfig != "" {
		return fromConfig
	}
	return DefaultInstructions
}

package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// StageStatus identifies where a conversation is in the CV-building workflow
type StageStatus string

const (
	StageStarted              StageStatus = "started"
	StageCollectingProfession StageStatus = "collecting_profession"
	StageSelectingSections    StageStatus = "selecting_sections"
	StageCollectingDetails    StageStatus = "collecting_details"
	StageReview               StageStatus = "review"
	StageCompleted            StageStatus = "completed"
)

// Valid reports whether s is one of the known workflow stages
func (s StageStatus) Valid() bool {
	switch s {
	case StageStarted, StageCollectingProfession, StageSelectingSections,
		StageCollectingDetails, StageReview, StageCompleted:
		return true
	}
	return false
}

// ChatMessage is a single turn in a conversation transcript
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewUserMessage stamps a user message for the transcript
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content, Timestamp: time.Now()}
}

// NewAssistantMessage stamps an assistant message for the transcript
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content, Timestamp: time.Now()}
}

// Session holds the per-conversation state accumulated across assistant turns
type Session struct {
	SessionID   string      `json:"sessionId"`
	AssistantID string      `json:"assistantId,omitempty"`
	ThreadID    string      `json:"threadId,omitempty"`
	Profession  string      `json:"profession,omitempty"`
	Sections    []string    `json:"sections,omitempty"`
	CVData      *CVData     `json:"cvData,omitempty"`
	Status      StageStatus `json:"status"`
	Completed   bool        `json:"completed"`
}

// PersonalInfo is the CV header block. Only FullName is guaranteed present
// by the generate_cv tool contract; everything else is optional.
type PersonalInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Title    string `json:"title,omitempty"`
}

// CVData is the structured payload produced by the assistant's generate_cv
// tool call. Sections preserve the order the assistant emitted them in.
type CVData struct {
	PersonalInfo PersonalInfo `json:"personalInfo"`
	Sections     []CVSection  `json:"sections"`
}

// CVSection is one titled block of a CV
type CVSection struct {
	Title   string         `json:"title"`
	Content SectionContent `json:"content"`
}

// SectionContent is the heterogeneous body of a section: either a single
// free-text paragraph or an ordered list of entries. The wire format is a
// bare JSON string or a JSON array, so marshaling is custom.
type SectionContent struct {
	Text    string
	Entries []SectionEntry
	IsText  bool
}

// TextContent builds a plain-paragraph content value
func TextContent(text string) SectionContent {
	return SectionContent{Text: text, IsText: true}
}

// ListContent builds an entry-list content value
func ListContent(entries ...SectionEntry) SectionContent {
	return SectionContent{Entries: entries}
}

func (c *SectionContent) UnmarshalJSON(data []byte) error {
	d := bytes.TrimSpace(data)
	if bytes.Equal(d, []byte("null")) {
		return nil
	}
	if len(d) > 0 && d[0] == '"' {
		c.IsText = true
		return json.Unmarshal(data, &c.Text)
	}
	c.IsText = false
	return json.Unmarshal(data, &c.Entries)
}

func (c SectionContent) MarshalJSON() ([]byte, error) {
	if c.IsText {
		return json.Marshal(c.Text)
	}
	if c.Entries == nil {
		return json.Marshal([]SectionEntry{})
	}
	return json.Marshal(c.Entries)
}

// SectionEntry is one element of a section's entry list: a plain string or
// a structured item (work experience, education, and similar records).
type SectionEntry struct {
	Text string
	Item *SectionItem
}

// TextEntry builds a plain-string entry
func TextEntry(text string) SectionEntry {
	return SectionEntry{Text: text}
}

// ItemEntry builds a structured-item entry
func ItemEntry(item SectionItem) SectionEntry {
	return SectionEntry{Item: &item}
}

func (e *SectionEntry) UnmarshalJSON(data []byte) error {
	d := bytes.TrimSpace(data)
	if len(d) > 0 && d[0] == '"' {
		e.Item = nil
		return json.Unmarshal(data, &e.Text)
	}
	e.Item = &SectionItem{}
	return json.Unmarshal(data, e.Item)
}

func (e SectionEntry) MarshalJSON() ([]byte, error) {
	if e.Item != nil {
		return json.Marshal(e.Item)
	}
	return json.Marshal(e.Text)
}

// SectionItem is a structured sub-record inside a section. All fields are
// optional; the renderer skips whatever is absent.
type SectionItem struct {
	Title        string   `json:"title,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Period       string   `json:"period,omitempty"`
	Description  string   `json:"description,omitempty"`
	Items        []string `json:"items,omitempty"`
	Skills       []string `json:"skills,omitempty"`
}

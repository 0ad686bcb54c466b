package domain

import (
	"strings"
	"time"
)

type EnvelopeStatus string

const (
	EnvelopeReceived   EnvelopeStatus = "received"
	EnvelopeProcessing EnvelopeStatus = "processing"
	EnvelopeProcessed  EnvelopeStatus = "processed"
	EnvelopeExpired    EnvelopeStatus = "expired"
	EnvelopeFailed     EnvelopeStatus = "failed"
)

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusFiled      DocumentStatus = "filed"
	StatusFailed     DocumentStatus = "failed"
)

type DocumentSource string

const (
	SourceAttachment DocumentSource = "attachment"
	SourceLink       DocumentSource = "link"
)

// Envelope is one inbound email carrying court documents.
type Envelope struct {
	ID         string         `json:"id"`
	Subject    string         `json:"subject"`
	Sender     string         `json:"sender"`
	ReceivedAt *time.Time     `json:"received_at,omitempty"`
	Status     EnvelopeStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	Documents  []Document     `json:"documents,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type Document struct {
	ID          string         `json:"id"`
	EnvelopeID  string         `json:"envelope_id"`
	Position    int            `json:"position"`
	Title       string         `json:"title"`
	Source      DocumentSource `json:"source"`
	SourceURL   string         `json:"source_url,omitempty"`
	StoragePath string         `json:"storage_path,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	Filing      *FilingResult  `json:"filing,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Attachment is raw attachment content handed over by the mail source.
type Attachment struct {
	Filename string
	Data     []byte
}

type EnvelopeInput struct {
	Subject     string
	Sender      string
	BodyHTML    string
	ReceivedAt  *time.Time
	Attachments []Attachment
}

// DocumentContext is the immutable per-document input of the filing pipeline.
// RawText holds the first pages of extracted text, FirstPage and CaptionText
// are the first one and first two pages respectively.
type DocumentContext struct {
	Title       string     `json:"title"`
	RawText     string     `json:"raw_text"`
	FirstPage   string     `json:"first_page"`
	CaptionText string     `json:"caption_text"`
	SubjectLine string     `json:"subject_line"`
	ReceivedAt  *time.Time `json:"received_at,omitempty"`
}

// NewDocumentContext slices extracted pages the way each pipeline stage reads them.
func NewDocumentContext(title, subject string, pages []string, receivedAt *time.Time) DocumentContext {
	doc := DocumentContext{
		Title:       title,
		SubjectLine: subject,
		ReceivedAt:  receivedAt,
		RawText:     strings.Join(pages, ""),
	}
	if len(pages) > 0 {
		doc.FirstPage = pages[0]
	}
	if len(pages) > 1 {
		doc.CaptionText = pages[0] + pages[1]
	} else {
		doc.CaptionText = doc.FirstPage
	}
	return doc
}

// TitleFromFilename strips directories and a trailing .pdf extension.
func TitleFromFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name = name[:len(name)-4]
	}
	return name
}

// DocumentLink is a court download link found in an email body.
type DocumentLink struct {
	Title string
	URL   string
}

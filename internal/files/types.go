package files

import (
	"errors"
	"time"
)

// Kind classifies a stored file.
type Kind string

const (
	KindDocument Kind = "document"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
)

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindDocument, KindVideo, KindAudio:
		return true
	}
	return false
}

// PageSize is the fixed number of search results per page.
const PageSize = 10

var (
	ErrNotFound       = errors.New("file not found")
	ErrInvalidKind    = errors.New("invalid file kind")
	ErrPageOutOfRange = errors.New("page out of range")
)

// FileRecord is the unit of storage. Records are written once at first
// ingestion and never mutated.
type FileRecord struct {
	ID              string    `json:"id"`
	FileRef         string    `json:"file_ref"`
	DisplayName     string    `json:"display_name"`
	Caption         string    `json:"caption,omitempty"`
	Kind            Kind      `json:"kind"`
	SizeBytes       int64     `json:"size_bytes"`
	MimeType        string    `json:"mime_type,omitempty"`
	SourceChatID    string    `json:"source_chat_id"`
	SourceMessageID int64     `json:"source_message_id"`
	SourceTitle     string    `json:"source_title,omitempty"`
	SourceKind      string    `json:"source_kind,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Attachment is the canonical inbound attachment payload, produced at
// the gateway boundary so the core never inspects raw message shape.
type Attachment struct {
	Kind      Kind
	Ref       string
	Name      string
	Title     string
	Caption   string
	SizeBytes int64
	MimeType  string
}

// Source describes the chat a message came from.
type Source struct {
	ChatID    string
	MessageID int64
	Title     string
	Kind      string
}

// IngestOutcome reports what Ingest did.
type IngestOutcome int

const (
	OutcomeInserted IngestOutcome = iota
	OutcomeAlreadyExists
)

// SearchResult is one page of matches plus the totals needed to render
// pagination controls.
type SearchResult struct {
	TotalCount int          `json:"total_count"`
	TotalPages int          `json:"total_pages"`
	Page       int          `json:"page"`
	Items      []FileRecord `json:"items"`
}

// Stats summarizes the stored corpus.
type Stats struct {
	Total       int       `json:"total"`
	Documents   int       `json:"documents"`
	Videos      int       `json:"videos"`
	Audios      int       `json:"audios"`
	LastAddedAt time.Time `json:"last_added_at,omitempty"`
}

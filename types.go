package main

// Note represents a single record extracted from Apple Notes. Records are
// immutable once fetched; one note yields at most one output document.
type Note struct {
	ID               string
	ShortID          string
	Name             string
	Body             string
	CreationDate     string
	ModificationDate string
	Folder           string
}

// Frontmatter is the metadata block written ahead of each document body.
type Frontmatter struct {
	Title       string
	Slug        string
	Date        string
	Category    string
	Tags        []string
	Excerpt     string
	Author      string
	ReadingTime string
	Featured    bool
}

// Outcome tags a stage result so callers can tell a clean success from a
// fallback without inspecting error strings.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDegraded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "failed"
	}
}

// ConvertedDocument is the final form of one note before placement. The body
// never includes the frontmatter block; serialization happens at write time.
type ConvertedDocument struct {
	Body        string
	Frontmatter *Frontmatter
	Outcome     Outcome
	Reason      string
}

// ErrorRecord is a per-note error entry in the run log.
type ErrorRecord struct {
	NoteID    string `json:"note_id"`
	NoteName  string `json:"note_name"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// WarningRecord is a non-fatal validation problem in the run log.
type WarningRecord struct {
	NoteName  string   `json:"note_name"`
	Problems  []string `json:"problems"`
	Timestamp string   `json:"timestamp"`
}

// ConnectionStatus reports the result of probing the Notes application.
type ConnectionStatus struct {
	Success     bool
	FolderCount int
	NoteCount   int
	Message     string
}

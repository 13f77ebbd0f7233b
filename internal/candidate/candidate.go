package candidate

import (
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// ExcerptLimit is the maximum length of a resume excerpt in characters.
	ExcerptLimit = 500
	// MaxListItems bounds Matches and Gaps.
	MaxListItems = 3

	ellipsis = "..."
)

// Record is the screening result for one uploaded resume.
type Record struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Source        string    `json:"source"`
	Score         int       `json:"score"`
	Matches       []string  `json:"matches"`
	Gaps          []string  `json:"gaps"`
	Summary       []string  `json:"summary"`
	ResumeExcerpt string    `json:"resume_excerpt"`
	Outreach      string    `json:"outreach,omitempty"`
}

// NameFromFilename derives a display name by dropping the directory and the last extension.
func NameFromFilename(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}

// Excerpt returns at most limit characters of text, marking a cut with an ellipsis.
func Excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return strings.TrimRightFunc(string(runes[:limit-len(ellipsis)]), isSpace) + ellipsis
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

// Rank returns a copy of records ordered by score, highest first. Records with
// equal scores keep their relative order.
func Rank(records []*Record) []*Record {
	ranked := slices.Clone(records)
	slices.SortStableFunc(ranked, func(a, b *Record) int {
		return b.Score - a.Score
	})
	return ranked
}

// Find returns the record with the given id, or nil.
func Find(records []*Record, id uuid.UUID) *Record {
	for _, r := range records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// ShortID is the first block of the record id, used in file names and menus.
func (r *Record) ShortID() string {
	id := r.ID.String()
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

// OutreachFilename is the file name used when saving the outreach email.
func (r *Record) OutreachFilename() string {
	name := strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', ' ', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return c
	}, r.Name)
	if name == "" {
		name = "candidate"
	}
	return "email_" + name + "_" + r.ShortID() + ".txt"
}

// Label is a human readable one-line description used in selection menus.
func (r *Record) Label() string {
	return r.Name + " (" + r.ShortID() + ")"
}

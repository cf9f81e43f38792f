// Package merging reconciles a stored contact with a newly captured one.
package merging

import (
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// DefaultNotesSeparator sits between existing notes and an appended update
const DefaultNotesSeparator = "\n\n"

// UpdatedNotesPrefix marks notes appended by a merge
const UpdatedNotesPrefix = "[Updated]: "

// Merger combines two contacts field by field
type Merger struct {
	notesSeparator string
	now            func() time.Time
}

// Option configures a Merger
type Option func(*Merger)

// WithNotesSeparator overrides the separator placed before appended notes
func WithNotesSeparator(separator string) Option {
	return func(m *Merger) {
		m.notesSeparator = separator
	}
}

// WithClock overrides the merge timestamp source
func WithClock(now func() time.Time) Option {
	return func(m *Merger) {
		m.now = now
	}
}

// NewMerger creates a new Merger
func NewMerger(opts ...Option) *Merger {
	m := &Merger{
		notesSeparator: DefaultNotesSeparator,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge folds incoming into existing. Non-empty incoming values overwrite,
// empty ones never blank a populated field. The result keeps the existing id,
// takes the higher-priority provenance and is stamped with the merge time.
func (m *Merger) Merge(existing, incoming models.Contact) models.Contact {
	merged := existing.Clone()

	merged.Name = preferNonEmpty(existing.Name, incoming.Name)
	merged.Title = preferNonEmpty(existing.Title, incoming.Title)
	merged.Company = preferNonEmpty(existing.Company, incoming.Company)
	merged.Email = preferNonEmpty(existing.Email, incoming.Email)
	merged.Phone = preferNonEmpty(existing.Phone, incoming.Phone)
	merged.Website = preferNonEmpty(existing.Website, incoming.Website)
	merged.Address = preferNonEmpty(existing.Address, incoming.Address)
	merged.RawScan = preferNonEmpty(existing.RawScan, incoming.RawScan)
	merged.Notes = m.mergeNotes(existing.Notes, incoming.Notes)

	if len(incoming.Image) > 0 {
		merged.Image = append([]byte(nil), incoming.Image...)
	}

	merged.Source = mostTrusted(existing.Source, incoming.Source)
	merged.CreatedAt = m.now()

	return merged
}

// Replace keeps incoming's content verbatim under the existing id
func (m *Merger) Replace(existing, incoming models.Contact) models.Contact {
	replaced := incoming.Clone()
	replaced.ID = existing.ID
	if replaced.Source == "" {
		replaced.Source = models.ProvenanceManual
	}
	return replaced
}

// mergeNotes appends incoming notes as an update block. Re-merging notes that
// were already appended leaves them untouched.
func (m *Merger) mergeNotes(existing, incoming string) string {
	switch {
	case incoming == "":
		return existing
	case existing == "":
		return incoming
	case existing == incoming:
		return existing
	}

	block := m.notesSeparator + UpdatedNotesPrefix + incoming
	if strings.HasSuffix(existing, block) {
		return existing
	}
	return existing + block
}

func preferNonEmpty(existing, incoming string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}

func mostTrusted(existing, incoming models.Provenance) models.Provenance {
	if incoming.Priority() > existing.Priority() {
		return incoming
	}
	return existing
}

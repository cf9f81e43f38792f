package models

import (
	"strings"
	"time"
)

// Provenance records how a contact was captured
type Provenance string

const (
	ProvenanceCamera Provenance = "camera"
	ProvenanceQR     Provenance = "qr"
	ProvenanceManual Provenance = "manual"
)

// Priority ranks provenance for merging. Higher wins.
func (p Provenance) Priority() int {
	switch p {
	case ProvenanceCamera:
		return 3
	case ProvenanceQR:
		return 2
	case ProvenanceManual:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is one of the known capture methods
func (p Provenance) Valid() bool {
	return p.Priority() > 0
}

// Contact is a captured business card. An empty string means the field is
// absent; whitespace-only values count as present.
type Contact struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name" validate:"required"`
	Title     string     `json:"title" db:"title"`
	Company   string     `json:"company" db:"company"`
	Email     string     `json:"email" db:"email"`
	Phone     string     `json:"phone" db:"phone"`
	Website   string     `json:"website" db:"website"`
	Address   string     `json:"address" db:"address"`
	Notes     string     `json:"notes" db:"notes"`
	Image     []byte     `json:"image,omitempty" db:"image"`
	RawScan   string     `json:"raw_scan,omitempty" db:"raw_scan"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Source    Provenance `json:"source" db:"source" validate:"omitempty,oneof=camera qr manual"`
}

// NewEmptyContact returns a blank manually entered contact
func NewEmptyContact(now time.Time) Contact {
	return Contact{
		CreatedAt: now,
		Source:    ProvenanceManual,
	}
}

// Clone returns a deep copy so callers never share the image buffer.
func (c Contact) Clone() Contact {
	if c.Image != nil {
		c.Image = append([]byte(nil), c.Image...)
	}
	return c
}

// MatchesSearch applies the contact list filter: case-insensitive substring
// on name, company and email, raw substring on phone.
func (c Contact) MatchesSearch(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(c.Name), term) ||
		strings.Contains(strings.ToLower(c.Company), term) ||
		strings.Contains(strings.ToLower(c.Email), term) ||
		strings.Contains(c.Phone, term)
}

// CreateContactRequest is the candidate a caller presents for saving
type CreateContactRequest struct {
	Name    string     `json:"name"`
	Title   string     `json:"title"`
	Company string     `json:"company"`
	Email   string     `json:"email"`
	Phone   string     `json:"phone"`
	Website string     `json:"website"`
	Address string     `json:"address"`
	Notes   string     `json:"notes"`
	Image   []byte     `json:"image,omitempty"`
	RawScan string     `json:"raw_scan,omitempty"`
	Source  Provenance `json:"source" validate:"omitempty,oneof=camera qr manual"`
}

// ToContact converts the request into an unsaved contact
func (r CreateContactRequest) ToContact(now time.Time) Contact {
	source := r.Source
	if source == "" {
		source = ProvenanceManual
	}
	return Contact{
		Name:      r.Name,
		Title:     r.Title,
		Company:   r.Company,
		Email:     r.Email,
		Phone:     r.Phone,
		Website:   r.Website,
		Address:   r.Address,
		Notes:     r.Notes,
		Image:     r.Image,
		RawScan:   r.RawScan,
		CreatedAt: now,
		Source:    source,
	}
}

// ContactListResponse is returned by the list endpoint
type ContactListResponse struct {
	Items      []Contact `json:"items"`
	TotalCount int       `json:"total_count"`
}

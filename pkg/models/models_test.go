package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		score float64
		tier  models.Tier
	}{
		{1.0, models.TierExact},
		{0.9, models.TierExact},
		{0.89999, models.TierHigh},
		{0.7, models.TierHigh},
		{0.69999, models.TierMedium},
		{0.5, models.TierMedium},
		{0.49999, models.TierLow},
		{0.31, models.TierLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.tier, models.TierFor(tt.score), "score %v", tt.score)
	}
}

func TestProvenancePriority(t *testing.T) {
	assert.Greater(t, models.ProvenanceCamera.Priority(), models.ProvenanceQR.Priority())
	assert.Greater(t, models.ProvenanceQR.Priority(), models.ProvenanceManual.Priority())
	assert.False(t, models.Provenance("fax").Valid())
	assert.True(t, models.ProvenanceManual.Valid())
}

func TestNewEmptyContact(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	contact := models.NewEmptyContact(now)

	assert.Empty(t, contact.ID)
	assert.Empty(t, contact.Name)
	assert.Equal(t, models.ProvenanceManual, contact.Source)
	assert.Equal(t, now, contact.CreatedAt)
}

func TestCloneCopiesImage(t *testing.T) {
	original := models.Contact{Name: "Ada", Image: []byte{1, 2, 3}}

	clone := original.Clone()
	clone.Image[0] = 9

	assert.Equal(t, byte(1), original.Image[0])
}

func TestMatchesSearch(t *testing.T) {
	contact := models.Contact{
		Name:    "Ada Lovelace",
		Company: "Analytical Engines",
		Email:   "Ada@Engines.io",
		Phone:   "+1 (555) 010-9999",
	}

	tests := []struct {
		name  string
		term  string
		match bool
	}{
		{"empty term matches everything", "", true},
		{"name is case insensitive", "LOVELACE", true},
		{"company", "analytical", true},
		{"email", "engines.io", true},
		{"phone is a raw substring", "010-9999", true},
		{"phone digits are not normalized", "0109999", false},
		{"title is not searched", "countess", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, contact.MatchesSearch(tt.term))
		})
	}
}

func TestToDeviceContact(t *testing.T) {
	t.Run("splits the name and folds the note", func(t *testing.T) {
		contact := models.Contact{
			Name:    "Grace Brewster Hopper",
			Title:   "Rear Admiral",
			Company: "US Navy",
			Website: "navy.mil",
			Notes:   "met at the conference",
		}

		device := contact.ToDeviceContact()

		assert.Equal(t, "Grace", device.GivenName)
		assert.Equal(t, "Brewster Hopper", device.FamilyName)
		assert.Equal(t, "Rear Admiral", device.JobTitle)
		assert.Equal(t, "Website: navy.mil\nNotes: met at the conference", device.Note)
	})

	t.Run("single name has no family name", func(t *testing.T) {
		device := models.Contact{Name: "Cher", Notes: "singer"}.ToDeviceContact()

		assert.Equal(t, "Cher", device.GivenName)
		assert.Empty(t, device.FamilyName)
		assert.Equal(t, "Notes: singer", device.Note)
	})
}

func TestResolutionKindNeedsTarget(t *testing.T) {
	assert.True(t, models.ResolutionReplace.NeedsTarget())
	assert.True(t, models.ResolutionMerge.NeedsTarget())
	assert.False(t, models.ResolutionSaveAsNew.NeedsTarget())
	assert.False(t, models.ResolutionAbort.NeedsTarget())
}

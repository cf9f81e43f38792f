package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		field   string
		message string
	}{
		{
			name:    "contact without name",
			value:   models.Contact{Email: "a@x.com"},
			field:   "name",
			message: "invalid contact: name is required",
		},
		{
			name:    "unknown provenance",
			value:   models.Contact{Name: "Ada", Source: "fax"},
			field:   "source",
			message: "invalid contact: source must be one of [camera qr manual], got 'fax'",
		},
		{
			name:    "merge without target",
			value:   models.Decision{Kind: models.ResolutionMerge},
			field:   "target_id",
			message: "invalid decision: target_id is required when Kind merge",
		},
		{
			name:    "unknown decision",
			value:   models.Decision{Kind: "shrug"},
			field:   "decision",
			message: "invalid decision: decision must be one of [save_as_new replace merge abort], got 'shrug'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			switch v := tt.value.(type) {
			case models.Contact:
				_, err = Validate(v)
			case models.Decision:
				_, err = Validate(v)
			}

			require.Error(t, err)
			assert.True(t, ferrors.IsValidation(err))
			var contactErr *ferrors.ContactError
			require.ErrorAs(t, err, &contactErr)
			assert.Equal(t, tt.field, contactErr.Field)
			assert.Equal(t, tt.message, contactErr.Message)
		})
	}
}

func TestValidatePasses(t *testing.T) {
	_, err := Validate(models.Contact{Name: "  "})
	assert.NoError(t, err, "whitespace-only names are present")

	_, err = Validate(models.Replace("c-1"))
	assert.NoError(t, err)

	_, err = Validate(models.Abort())
	assert.NoError(t, err)
}

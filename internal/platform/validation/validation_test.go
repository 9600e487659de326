package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "yeirin/pkg/domain-errors"
)

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Text  string `json:"counselRequestText" validate:"required,min=10,max=5000"`
	Kind  string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestStruct(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(sample{Email: "a@b.co", Text: "0123456789"}))

	err := v.Struct(sample{Email: "a@b.co", Text: "short"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, err.Error(), "counselRequestText must be at least 10 characters")

	err = v.Struct(sample{Text: "0123456789"})
	assert.Contains(t, err.Error(), "email is required")

	err = v.Struct(sample{Email: "a@b.co", Text: "0123456789", Kind: "c"})
	assert.Contains(t, err.Error(), "kind must be one of [a b]")
}

func TestStructCountsRunesNotBytes(t *testing.T) {
	v := New()
	// ten Hangul syllables are thirty bytes but ten characters
	assert.NoError(t, v.Struct(sample{Email: "a@b.co", Text: strings.Repeat("상", 10)}))
}

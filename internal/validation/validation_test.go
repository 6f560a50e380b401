package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email  string `json:"email" validate:"required,email"`
	Name   string `json:"name" validate:"max=5"`
	Rating int    `json:"rating" validate:"gte=1,lte=5"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name  string
		in    signup
		field string
		msg   string
	}{
		{"valid", signup{Email: "a@b.co", Rating: 3}, "", ""},
		{"missing email", signup{Rating: 3}, "email", "is required"},
		{"bad email", signup{Email: "nope", Rating: 3}, "email", "must be a valid email address"},
		{"long name", signup{Email: "a@b.co", Name: "abcdefg", Rating: 3}, "name", "must be at most 5 characters"},
		{"rating", signup{Email: "a@b.co", Rating: 9}, "rating", "must be at most 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *Error
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.msg, ve.Msg)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("jane@x.com"))
	assert.False(t, Email("jane@"))
	assert.False(t, Email(""))
	assert.False(t, IsValidation(errors.New("plain")))
}

package validation

import (
	"testing"

	"github.com/GRead-Development/Server-sub000/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type isbnRequest struct {
	ISBN string `json:"isbn" validate:"required,isbn13"`
}

func TestValidateISBN(t *testing.T) {
	v := New()

	valid := []string{
		"9780441172719",
		"978-0-441-17271-9",
		"978 0 441 17271 9",
		"0804429573",
		"0-8044-2957-X",
		"0-8044-2957-x",
	}
	for _, isbn := range valid {
		assert.NoError(t, v.Validate(isbnRequest{ISBN: isbn}), "isbn %q", isbn)
	}

	invalid := []string{
		"",
		"12345",
		"not-an-isbn",
		"97804411727190",     // 14 digits
		"978044117271X",      // X only allowed in the 10-digit form
		"0-8044-X957-3",      // X not in final position
	}
	for _, isbn := range invalid {
		assert.Error(t, v.Validate(isbnRequest{ISBN: isbn}), "isbn %q", isbn)
	}
}

func TestValidateReturnsFieldDetails(t *testing.T) {
	v := New()

	err := v.Validate(isbnRequest{ISBN: "bogus"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrValidation)

	var domainErr *errors.Error
	require.ErrorAs(t, err, &domainErr)
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid ISBN", details["isbn"])
}

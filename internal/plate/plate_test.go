package plate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/platewatch/internal/errors"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "ABC123", "ABC123"},
		{"lowercase", "abc123", "ABC123"},
		{"surrounding space", "  ABC123 \n", "ABC123"},
		{"inner space", "ABC 123", "ABC123"},
		{"dash", "ABC-123", "ABC123"},
		{"dots and symbols", "A.B|C·1*2#3", "ABC123"},
		{"accents folded", "ñáé 12", "NAE12"},
		{"only punctuation", " - . ", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"abc-123", "Ñ 0001", "  x y z  "} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	loose, err := NewFormat("")
	require.NoError(t, err)
	assert.True(t, loose.Match("X1"))
	assert.False(t, loose.Match(""))

	strict, err := NewFormat(`^[A-Z]{3}[0-9]{3,4}$`)
	require.NoError(t, err)

	got, err := strict.Parse("abc-1234")
	require.NoError(t, err)
	assert.Equal(t, "ABC1234", got)

	_, err = strict.Parse("AB12")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryPlate))

	var nilFormat *Format
	assert.True(t, nilFormat.Match("ABC123"))
}

func TestNewFormatRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := NewFormat("[A-Z")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

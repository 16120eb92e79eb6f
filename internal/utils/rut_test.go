// internal/utils/rut_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRut(t *testing.T) {
	tests := []struct {
		name  string
		rut   string
		valid bool
	}{
		{"valid plain", "12345678-5", true},
		{"valid with dots", "12.345.678-5", true},
		{"valid without separators", "123456785", true},
		{"valid repeated digits", "11111111-1", true},
		{"valid check digit K uppercase", "11111112-K", true},
		{"valid check digit K lowercase", "11111112-k", true},
		{"valid check digit zero", "11111117-0", true},
		{"wrong check digit", "12345678-9", false},
		{"off by one check digit", "12345678-4", false},
		{"K where digit expected", "12345678-K", false},
		{"empty string", "", false},
		{"only check digit", "5", false},
		{"only separators", ".-", false},
		{"letters in body", "12A45678-5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateRut(tt.rut))
		})
	}
}

func TestValidateRutBodyMutation(t *testing.T) {
	// Changing any body digit must break the check digit
	valid := "12345678-5"
	assert.True(t, ValidateRut(valid))

	mutated := "12345679-5"
	assert.False(t, ValidateRut(mutated))
}

func TestFormatRut(t *testing.T) {
	assert.Equal(t, "12345678-5", FormatRut("12.345.678-5"))
	assert.Equal(t, "12345678-5", FormatRut("123456785"))
	assert.Equal(t, "11111112-K", FormatRut("11.111.112-k"))
	assert.Equal(t, "", FormatRut(""))
}

// internal/utils/rut.go
package utils

import (
	"strings"
)

// ValidateRut checks a Chilean RUT against its mod-11 check digit.
// Formatting characters (dots, dash) are ignored; the check digit may be
// a digit or K/k. An empty or non-numeric body is invalid.
func ValidateRut(raw string) bool {
	var cleaned strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			cleaned.WriteRune(r)
		case r == 'k' || r == 'K':
			cleaned.WriteRune('K')
		}
	}

	rut := cleaned.String()
	if len(rut) < 2 {
		return false
	}

	body := rut[:len(rut)-1]
	dv := rut[len(rut)-1]

	sum := 0
	multiplier := 2
	for i := len(body) - 1; i >= 0; i-- {
		if body[i] < '0' || body[i] > '9' {
			return false
		}
		sum += int(body[i]-'0') * multiplier
		if multiplier == 7 {
			multiplier = 2
		} else {
			multiplier++
		}
	}

	var expected byte
	switch calculated := 11 - sum%11; calculated {
	case 11:
		expected = '0'
	case 10:
		expected = 'K'
	default:
		expected = byte('0' + calculated)
	}

	return expected == dv
}

// FormatRut normalizes a RUT to the canonical NNNNNNNN-D form for storage.
func FormatRut(raw string) string {
	var cleaned strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			cleaned.WriteRune(r)
		case r == 'k' || r == 'K':
			cleaned.WriteRune('K')
		}
	}

	rut := cleaned.String()
	if len(rut) < 2 {
		return rut
	}
	return rut[:len(rut)-1] + "-" + string(rut[len(rut)-1])
}

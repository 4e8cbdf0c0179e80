// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package model

import (
	"fmt"
	"strings"
)

const (
	// WwnRawLength is the number of hex digits in a WWN with no separators
	WwnRawLength = 16

	// WwnColonLength is the length of a fully colon-delimited WWN (8 octets, 7 colons)
	WwnColonLength = 23
)

// IsWwn reports whether the given string is a well formed WWN in either raw or colon form.
func IsWwn(wwn string) bool {
	raw := strings.ReplaceAll(wwn, ":", "")
	if len(raw) != WwnRawLength {
		return false
	}
	for _, c := range raw {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

// RawWwn normalizes a WWN to raw form, e.g. "10:00:8C:7C:FF:52:3B:01" -> "10008c7cff523b01".
// Raw form is what the zoning core uses for map keys and membership comparisons.
func RawWwn(wwn string) string {
	return strings.ToLower(strings.ReplaceAll(wwn, ":", ""))
}

// ColonWwn normalizes a WWN to colon form, e.g. "10008C7CFF523B01" -> "10:00:8c:7c:ff:52:3b:01".
// Colon form is what southbound zone creation calls require.
func ColonWwn(wwn string) string {
	raw := RawWwn(wwn)
	if len(raw) != WwnRawLength {
		// Not a WWN; hand it back untouched so the switch can reject it
		return wwn
	}
	parts := make([]string, 0, WwnRawLength/2)
	for i := 0; i < len(raw); i += 2 {
		parts = append(parts, raw[i:i+2])
	}
	return strings.Join(parts, ":")
}

// ColonWwnList normalizes every WWN in the list to colon form
func ColonWwnList(wwns []string) []string {
	out := make([]string, 0, len(wwns))
	for _, wwn := range wwns {
		out = append(out, ColonWwn(wwn))
	}
	return out
}

// RawWwnList normalizes every WWN in the list to raw form
func RawWwnList(wwns []string) []string {
	out := make([]string, 0, len(wwns))
	for _, wwn := range wwns {
		out = append(out, RawWwn(wwn))
	}
	return out
}

// ValidateWwn returns an error describing the first malformed WWN in the list
func ValidateWwn(wwns ...string) error {
	for _, wwn := range wwns {
		if !IsWwn(wwn) {
			return fmt.Errorf("malformed wwn %q", wwn)
		}
	}
	return nil
}

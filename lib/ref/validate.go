// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// maxIDLength bounds identifier size. Server identifiers in practice
// are UUIDs or database keys well under this limit.
const maxIDLength = 255

// validateOpaque checks the structural rules shared by every
// identifier type. kind names the identifier in error messages.
func validateOpaque(kind, raw string) error {
	if raw == "" {
		return fmt.Errorf("empty %s", kind)
	}
	if len(raw) > maxIDLength {
		return fmt.Errorf("%s exceeds %d bytes: %q...", kind, maxIDLength, raw[:32])
	}
	if !utf8.ValidString(raw) {
		return fmt.Errorf("%s is not valid UTF-8: %q", kind, raw)
	}
	for _, r := range raw {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%s contains whitespace or control character: %q", kind, raw)
		}
	}
	return nil
}

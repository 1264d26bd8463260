// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package shipping resolves delivery time windows and transported weights of documents.
package shipping

import (
	"regexp"
	"strings"
)

// Separator joins the two boundaries of a normalized interval.
const Separator = ">>"

// intervalPattern accepts "08:00>>16:00", "8 > 16", "08-16" and "8 a 16".
var intervalPattern = regexp.MustCompile(`^([0-9:]+)\s*(?:>+|-+|\s+a\s+)\s*([0-9:]+)`)

// Normalize converts a free text time window to the "HH:MM>>HH:MM" form. It returns false if
// value does not start with a recognizable interval.
func Normalize(value string) (string, bool) {
	match := intervalPattern.FindStringSubmatch(value)
	if match == nil {
		return "", false
	}
	return normalizeTime(match[1]) + Separator + normalizeTime(match[2]), true
}

// normalizeTime zero pads hours and minutes and adds missing minutes.
func normalizeTime(value string) string {
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		parts = append(parts, "0")
	}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if len(part) < 2 {
			part = strings.Repeat("0", 2-len(part)) + part
		}
		parts[i] = part
	}
	return strings.Join(parts, ":")
}

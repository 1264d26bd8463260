// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// formatSpec is a parsed "[[fill]align][sign][#][0][width][,][.precision][type]" spec.
type formatSpec struct {
	fill      rune
	align     rune
	sign      rune
	alternate bool
	width     int
	grouping  bool
	precision int
	verb      rune
}

func parseSpec(spec string) (formatSpec, error) {
	parsed := formatSpec{fill: ' ', precision: -1}
	runes := []rune(spec)
	pos := 0

	isAlign := func(r rune) bool { return r == '<' || r == '>' || r == '^' || r == '=' }
	switch {
	case len(runes) >= 2 && isAlign(runes[1]):
		parsed.fill, parsed.align = runes[0], runes[1]
		pos = 2
	case len(runes) >= 1 && isAlign(runes[0]):
		parsed.align = runes[0]
		pos = 1
	}
	if pos < len(runes) && (runes[pos] == '+' || runes[pos] == '-' || runes[pos] == ' ') {
		parsed.sign = runes[pos]
		pos++
	}
	if pos < len(runes) && runes[pos] == '#' {
		parsed.alternate = true
		pos++
	}
	if pos < len(runes) && runes[pos] == '0' {
		if parsed.align == 0 {
			parsed.fill, parsed.align = '0', '='
		}
		pos++
	}
	start := pos
	for pos < len(runes) && unicode.IsDigit(runes[pos]) {
		pos++
	}
	if pos > start {
		parsed.width, _ = strconv.Atoi(string(runes[start:pos]))
	}
	if pos < len(runes) && runes[pos] == ',' {
		parsed.grouping = true
		pos++
	}
	if pos < len(runes) && runes[pos] == '.' {
		pos++
		start = pos
		for pos < len(runes) && unicode.IsDigit(runes[pos]) {
			pos++
		}
		if pos == start {
			return parsed, fmt.Errorf("%w: format specifier missing precision", ErrInvalidFormat)
		}
		parsed.precision, _ = strconv.Atoi(string(runes[start:pos]))
	}
	if pos < len(runes) {
		parsed.verb = runes[pos]
		pos++
	}
	if pos != len(runes) {
		return parsed, fmt.Errorf("%w: invalid format specifier %q", ErrInvalidFormat, spec)
	}
	return parsed, nil
}

// formatValue renders value according to spec.
func formatValue(value any, spec string) (string, error) {
	if spec == "" {
		return fmt.Sprint(value), nil
	}
	parsed, err := parseSpec(spec)
	if err != nil {
		return "", err
	}

	switch v := value.(type) {
	case string:
		return parsed.formatString(v)
	case int:
		return parsed.formatInt(int64(v))
	case int64:
		return parsed.formatInt(v)
	case float64:
		return parsed.formatFloat(v)
	default:
		return parsed.formatString(fmt.Sprint(v))
	}
}

func (s formatSpec) formatString(value string) (string, error) {
	if s.verb != 0 && s.verb != 's' {
		return "", fmt.Errorf("%w: unknown format code %q for a string", ErrInvalidFormat, s.verb)
	}
	if s.sign != 0 || s.alternate || s.grouping || s.align == '=' {
		return "", fmt.Errorf("%w: sign, alternate form, grouping and '=' are not allowed for strings",
			ErrInvalidFormat)
	}
	if s.precision >= 0 {
		if runes := []rune(value); len(runes) > s.precision {
			value = string(runes[:s.precision])
		}
	}
	return s.pad("", value, '<'), nil
}

func (s formatSpec) formatInt(value int64) (string, error) {
	if s.precision >= 0 {
		return "", fmt.Errorf("%w: precision not allowed in integer format specifier", ErrInvalidFormat)
	}
	var digits string
	switch s.verb {
	case 0, 'd':
		digits = strconv.FormatInt(abs(value), 10)
	case 'x':
		digits = strconv.FormatInt(abs(value), 16)
	case 'b':
		digits = strconv.FormatInt(abs(value), 2)
	default:
		return "", fmt.Errorf("%w: unknown format code %q for an integer", ErrInvalidFormat, s.verb)
	}
	if s.grouping {
		digits = group(digits)
	}
	return s.pad(s.signOf(value < 0), digits, '>'), nil
}

func (s formatSpec) formatFloat(value float64) (string, error) {
	precision := s.precision
	verb := byte('g')
	switch s.verb {
	case 0:
		if precision < 0 {
			verb = 'f'
			precision = -1
		}
	case 'f', 'F', 'e', 'E', 'g', 'G':
		verb = byte(s.verb)
		if precision < 0 {
			precision = 6
		}
	case '%':
		value *= 100
		verb = 'f'
		if precision < 0 {
			precision = 6
		}
	default:
		return "", fmt.Errorf("%w: unknown format code %q for a float", ErrInvalidFormat, s.verb)
	}
	digits := strconv.FormatFloat(math.Abs(value), verb, precision, 64)
	if s.grouping {
		intPart, frac, found := strings.Cut(digits, ".")
		digits = group(intPart)
		if found {
			digits += "." + frac
		}
	}
	if s.verb == '%' {
		digits += "%"
	}
	return s.pad(s.signOf(math.Signbit(value)), digits, '>'), nil
}

func (s formatSpec) signOf(negative bool) string {
	switch {
	case negative:
		return "-"
	case s.sign == '+':
		return "+"
	case s.sign == ' ':
		return " "
	}
	return ""
}

// pad aligns sign+body within the configured width. Widths are measured in terminal cells.
func (s formatSpec) pad(sign, body string, defaultAlign rune) string {
	content := sign + body
	missing := s.width - runewidth.StringWidth(content)
	if missing <= 0 {
		return content
	}
	fill := strings.Repeat(string(s.fill), missing)
	align := s.align
	if align == 0 {
		align = defaultAlign
	}
	switch align {
	case '<':
		return content + fill
	case '^':
		left := missing / 2
		return strings.Repeat(string(s.fill), left) + content + strings.Repeat(string(s.fill), missing-left)
	case '=':
		return sign + fill + body
	default:
		return fill + content
	}
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

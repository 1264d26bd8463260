// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package formatter renders user supplied templates such as the CSV row and the placemark
// title. Templates use replacement fields in braces, "{name}" or "{name:spec}". A spec that
// starts with the command prefix ("s" by default) is a chain of text commands separated by
// "->", for example "{name:s->uppercase->substring(0,3)}". Any other spec follows the usual
// fill, align, width and precision rules.
package formatter

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultPrefix    = "s"
	DefaultSeparator = "->"

	maxRecursion = 2
)

var (
	ErrInvalidFormat  = errors.New("invalid format string")
	ErrUnknownCommand = errors.New("invalid formatting command")
	ErrInvalidCommand = errors.New("malformed formatting command")
	ErrMissingField   = errors.New("missing template field")
)

// Formatter renders templates against a set of named values.
type Formatter struct {
	prefix    string
	separator string
	sandboxed bool
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithPrefix sets the sentinel that marks a spec as a command chain.
func WithPrefix(prefix string) Option {
	return func(f *Formatter) {
		f.prefix = prefix
	}
}

// WithSeparator sets the separator between chained commands.
func WithSeparator(separator string) Option {
	return func(f *Formatter) {
		f.separator = separator
	}
}

// WithSandbox controls whether field names may index into map values. Sandboxed formatters
// reject any field name containing "." or "[".
func WithSandbox(sandboxed bool) Option {
	return func(f *Formatter) {
		f.sandboxed = sandboxed
	}
}

// New returns a sandboxed Formatter with the default prefix and separator.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		prefix:    DefaultPrefix,
		separator: DefaultSeparator,
		sandboxed: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format renders tpl with the given values.
func (f *Formatter) Format(tpl string, values map[string]any) (string, error) {
	return f.format(tpl, values, maxRecursion)
}

func (f *Formatter) format(tpl string, values map[string]any, depth int) (string, error) {
	if depth < 0 {
		return "", fmt.Errorf("%w: max string recursion exceeded", ErrInvalidFormat)
	}

	var b strings.Builder
	for i := 0; i < len(tpl); {
		switch tpl[i] {
		case '{':
			if i+1 < len(tpl) && tpl[i+1] == '{' {
				b.WriteByte('{')
				i += 2
				continue
			}
			end, err := closingBrace(tpl, i)
			if err != nil {
				return "", err
			}
			out, err := f.replaceField(tpl[i+1:end], values, depth)
			if err != nil {
				return "", err
			}
			b.WriteString(out)
			i = end + 1
		case '}':
			if i+1 < len(tpl) && tpl[i+1] == '}' {
				b.WriteByte('}')
				i += 2
				continue
			}
			return "", fmt.Errorf("%w: single '}' encountered", ErrInvalidFormat)
		default:
			b.WriteByte(tpl[i])
			i++
		}
	}
	return b.String(), nil
}

func (f *Formatter) replaceField(field string, values map[string]any, depth int) (string, error) {
	name, conversion, spec, err := splitField(field)
	if err != nil {
		return "", err
	}
	value, err := f.lookup(name, values)
	if err != nil {
		return "", err
	}
	if conversion != 0 {
		value, err = convert(value, conversion)
		if err != nil {
			return "", err
		}
	}
	if strings.Contains(spec, "{") {
		if spec, err = f.format(spec, values, depth-1); err != nil {
			return "", err
		}
	}

	if text, ok := value.(string); ok && f.prefix != "" && strings.HasPrefix(spec, f.prefix) {
		text, err = f.runCommands(text, spec)
		if err != nil {
			return "", err
		}
		return formatValue(text, "")
	}
	return formatValue(value, spec)
}

func (f *Formatter) lookup(name string, values map[string]any) (any, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: positional fields are not supported", ErrInvalidFormat)
	}
	if strings.ContainsAny(name, ".[") {
		if f.sandboxed {
			return nil, fmt.Errorf(`%w: field name cannot contain "." or "["`, ErrInvalidFormat)
		}
		return f.lookupIndexed(name, values)
	}
	value, ok := values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingField, name)
	}
	return value, nil
}

// lookupIndexed resolves "name[key]" against map values when sandboxing is disabled.
func (f *Formatter) lookupIndexed(name string, values map[string]any) (any, error) {
	open := strings.IndexByte(name, '[')
	if open < 0 || !strings.HasSuffix(name, "]") || strings.Contains(name, ".") {
		return nil, fmt.Errorf("%w: unsupported field name %q", ErrInvalidFormat, name)
	}
	base, key := name[:open], name[open+1:len(name)-1]
	value, ok := values[base]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingField, base)
	}
	switch m := value.(type) {
	case map[string]any:
		if v, ok := m[key]; ok {
			return v, nil
		}
	case map[string]string:
		if v, ok := m[key]; ok {
			return v, nil
		}
	default:
		return nil, fmt.Errorf("%w: field %q is not indexable", ErrInvalidFormat, base)
	}
	return nil, fmt.Errorf("%w: %q", ErrMissingField, name)
}

// splitField splits "name!c:spec" into its parts.
func splitField(field string) (name string, conversion byte, spec string, err error) {
	end := strings.IndexAny(field, "!:")
	if end < 0 {
		return field, 0, "", nil
	}
	name = field[:end]
	rest := field[end:]
	if rest[0] == '!' {
		if len(rest) < 2 {
			return "", 0, "", fmt.Errorf("%w: end of string while looking for conversion specifier",
				ErrInvalidFormat)
		}
		conversion = rest[1]
		rest = rest[2:]
		if rest != "" && rest[0] != ':' {
			return "", 0, "", fmt.Errorf("%w: expected ':' after conversion specifier", ErrInvalidFormat)
		}
	}
	if rest != "" {
		spec = rest[1:]
	}
	return name, conversion, spec, nil
}

func closingBrace(tpl string, start int) (int, error) {
	depth := 0
	for i := start; i < len(tpl); i++ {
		switch tpl[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: expected '}' before end of string", ErrInvalidFormat)
}

func convert(value any, conversion byte) (any, error) {
	switch conversion {
	case 's':
		return fmt.Sprint(value), nil
	case 'r':
		if s, ok := value.(string); ok {
			return "'" + strings.ReplaceAll(s, "'", `\'`) + "'", nil
		}
		return fmt.Sprint(value), nil
	default:
		return nil, fmt.Errorf("%w: unknown conversion specifier %q", ErrInvalidFormat, conversion)
	}
}

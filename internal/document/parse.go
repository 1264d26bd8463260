// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package document

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

var declEncoding = regexp.MustCompile(`(?i)(<\?xml[^>]*encoding\s*=\s*["'])([^"']+)(["'])`)

// Parse decodes an Easyfatt export.
func Parse(r io.Reader) (*Export, error) {
	export := new(Export)
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	if err := dec.Decode(export); err != nil {
		return nil, fmt.Errorf("failed to decode Easyfatt XML: %w", err)
	}
	return export, nil
}

// ParseFile decodes the Easyfatt export stored in path.
func ParseFile(path string) (*Export, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	export, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return export, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return input, nil
	}
	return enc.NewDecoder().Reader(input), nil
}

// toUTF8 transcodes data to UTF-8 if its XML declaration names another charset, and
// rewrites the declaration accordingly.
func toUTF8(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	match := declEncoding.FindSubmatch(data)
	if match == nil {
		return data, nil
	}
	label := strings.ToLower(string(match[2]))
	if label == "utf-8" || label == "utf8" {
		return data, nil
	}
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return data, nil
	}
	converted, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %q to UTF-8: %w", label, err)
	}
	return declEncoding.ReplaceAll(converted, []byte("${1}UTF-8${3}")), nil
}

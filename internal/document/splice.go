// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package document

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

const (
	documentsElement = "Documents"
	documentElement  = "Document"
)

var (
	ErrInvalidAddition  = errors.New("addition is not valid XML")
	ErrEmptyAddition    = errors.New("addition contains no elements")
	ErrDocumentsElement = errors.New("expected exactly one Documents element")
	ErrNothingAdded     = errors.New("no Document element was added")
)

// Splice inserts the elements of addition as the first children of the Documents element of
// base. The rest of base is preserved as is. The result is UTF-8 encoded.
func Splice(base, addition []byte) ([]byte, error) {
	base, err := toUTF8(base)
	if err != nil {
		return nil, err
	}
	addition = stripDeclaration(addition)
	if err = validateFragment(addition); err != nil {
		return nil, err
	}

	found, err := findDocuments(base)
	if err != nil {
		return nil, err
	}
	before := found.count

	var out bytes.Buffer
	out.Grow(len(base) + len(addition) + len(documentsElement) + 4)
	if found.selfClosing {
		out.Write(base[:found.end-2])
		out.WriteByte('>')
		out.Write(addition)
		out.WriteString("</" + found.name + ">")
	} else {
		out.Write(base[:found.end])
		out.Write(addition)
	}
	out.Write(base[found.end:])

	spliced := out.Bytes()
	after, err := findDocuments(spliced)
	if err != nil {
		return nil, err
	}
	if after.count <= before {
		return nil, fmt.Errorf("%w: %d Document elements before and %d after", ErrNothingAdded, before,
			after.count)
	}
	return spliced, nil
}

type documentsTag struct {
	name        string
	end         int
	selfClosing bool
	count       int
}

// findDocuments locates the single Documents child of the root element and counts its
// Document children.
func findDocuments(data []byte) (documentsTag, error) {
	var tag documentsTag
	matches := 0
	depth := 0
	inDocuments := false

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return tag, fmt.Errorf("failed to parse XML: %w", err)
		}
		switch elem := token.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && elem.Name.Local == documentsElement {
				matches++
				inDocuments = true
				offset := int(dec.InputOffset())
				tag.name = documentsElement
				if elem.Name.Space != "" {
					tag.name = rawName(data, offset)
				}
				tag.end = offset
				tag.selfClosing = offset >= 2 && string(data[offset-2:offset]) == "/>"
			}
			if depth == 3 && inDocuments && elem.Name.Local == documentElement {
				tag.count++
			}
		case xml.EndElement:
			if depth == 2 {
				inDocuments = false
			}
			depth--
		}
	}
	if matches != 1 {
		return tag, fmt.Errorf("%w, found %d", ErrDocumentsElement, matches)
	}
	return tag, nil
}

// rawName returns the qualified tag name of the start tag that ends at offset.
func rawName(data []byte, offset int) string {
	start := bytes.LastIndexByte(data[:offset], '<')
	if start < 0 {
		return documentsElement
	}
	name := data[start+1 : offset]
	if end := bytes.IndexAny(name, " \t\r\n/>"); end >= 0 {
		name = name[:end]
	}
	return string(name)
}

// validateFragment checks that fragment is well-formed and has at least one top-level element.
func validateFragment(fragment []byte) error {
	wrapped := make([]byte, 0, len(fragment)+15)
	wrapped = append(wrapped, "<fragment>"...)
	wrapped = append(wrapped, fragment...)
	wrapped = append(wrapped, "</fragment>"...)

	elements := 0
	depth := 0
	dec := xml.NewDecoder(bytes.NewReader(wrapped))
	for {
		token, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAddition, err)
		}
		switch token.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				elements++
			}
		case xml.EndElement:
			depth--
		}
	}
	if elements == 0 {
		return ErrEmptyAddition
	}
	return nil
}

func stripDeclaration(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		if end := bytes.Index(trimmed, []byte("?>")); end >= 0 {
			return bytes.TrimSpace(trimmed[end+2:])
		}
	}
	return trimmed
}

package index

import (
	"fmt"
	"strings"
)

// Section identifies the part of a document a word was found in.
type Section uint8

const (
	// SectionBody is the main document text.
	SectionBody Section = iota

	// SectionHeader covers h1-h6 headings.
	SectionHeader

	// SectionTitle is the document title.
	SectionTitle
)

// Sections lists every known section.
var Sections = []Section{SectionTitle, SectionHeader, SectionBody}

// Weight returns the multiplier applied to term frequencies found in s.
func (s Section) Weight() float64 {
	switch s {
	case SectionTitle:
		return 2.0
	case SectionHeader:
		return 1.5
	default:
		return 1.0
	}
}

// String implements fmt.Stringer. The returned names are the ones used by
// the persistent stores.
func (s Section) String() string {
	switch s {
	case SectionTitle:
		return "title"
	case SectionHeader:
		return "header"
	case SectionBody:
		return "body"
	default:
		return fmt.Sprintf("section(%d)", uint8(s))
	}
}

// ParseSection converts a stored section name back into a Section.
func ParseSection(name string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "title":
		return SectionTitle, nil
	case "header":
		return SectionHeader, nil
	case "body":
		return SectionBody, nil
	default:
		return SectionBody, fmt.Errorf("parse section %q: %w", name, ErrUnknownSection)
	}
}

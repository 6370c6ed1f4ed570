package index

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// DocumentTerm joins a single query word with one document that contains it,
// carrying the word's positions grouped by section. A DocumentTerm cannot be
// modified once built; use a DocumentTermBuilder to assemble one.
type DocumentTerm struct {
	word         string
	documentID   uuid.UUID
	url          string
	title        string
	description  string
	documentSize int
	positions    map[Section][]int
}

// Word returns the matched word.
func (t *DocumentTerm) Word() string { return t.word }

// DocumentID returns the id of the document the word was found in.
func (t *DocumentTerm) DocumentID() uuid.UUID { return t.documentID }

// URL returns the document URL.
func (t *DocumentTerm) URL() string { return t.url }

// Title returns the document title.
func (t *DocumentTerm) Title() string { return t.title }

// Description returns the document description.
func (t *DocumentTerm) Description() string { return t.description }

// DocumentSize returns the total number of indexed words in the document.
func (t *DocumentTerm) DocumentSize() int { return t.documentSize }

// Sections returns the sections the word occurs in, ordered title, header,
// body.
func (t *DocumentTerm) Sections() []Section {
	out := make([]Section, 0, len(t.positions))
	for _, s := range Sections {
		if len(t.positions[s]) > 0 {
			out = append(out, s)
		}
	}

	return out
}

// Positions returns the ascending positions of the word inside section s.
// The returned slice is shared and must not be modified.
func (t *DocumentTerm) Positions(s Section) []int {
	return t.positions[s]
}

// Occurrences returns the number of times the word occurs in section s.
func (t *DocumentTerm) Occurrences(s Section) int {
	return len(t.positions[s])
}

// HasPosition reports whether the word occurs at pos inside section s.
func (t *DocumentTerm) HasPosition(s Section, pos int) bool {
	list := t.positions[s]
	i := sort.SearchInts(list, pos)

	return i < len(list) && list[i] == pos
}

// FirstPosition returns the smallest position of the word across all
// sections.
func (t *DocumentTerm) FirstPosition() int {
	first := -1
	for _, list := range t.positions {
		if len(list) > 0 && (first == -1 || list[0] < first) {
			first = list[0]
		}
	}

	return first
}

// DocumentTermBuilder accumulates per-section positions for a single
// (document, word) pair.
type DocumentTermBuilder struct {
	term DocumentTerm
}

// NewDocumentTermBuilder returns a builder for the given word and document
// metadata.
func NewDocumentTermBuilder(
	word string, documentID uuid.UUID, url, title, description string, documentSize int,
) *DocumentTermBuilder {

	return &DocumentTermBuilder{
		term: DocumentTerm{
			word:         word,
			documentID:   documentID,
			url:          url,
			title:        title,
			description:  description,
			documentSize: documentSize,
			positions:    make(map[Section][]int),
		},
	}
}

// AddPositions merges positions into the list kept for section s.
func (b *DocumentTermBuilder) AddPositions(s Section, positions ...int) *DocumentTermBuilder {
	b.term.positions[s] = append(b.term.positions[s], positions...)

	return b
}

// Build finalizes the DocumentTerm. Positions are sorted and de-duplicated.
// Build fails if no positions were added.
func (b *DocumentTermBuilder) Build() (*DocumentTerm, error) {
	t := b.term
	t.positions = make(map[Section][]int, len(b.term.positions))

	for s, list := range b.term.positions {
		if len(list) == 0 {
			continue
		}

		sorted := append([]int(nil), list...)
		sort.Ints(sorted)

		uniq := sorted[:1]
		for _, p := range sorted[1:] {
			if p != uniq[len(uniq)-1] {
				uniq = append(uniq, p)
			}
		}

		t.positions[s] = uniq
	}

	if len(t.positions) == 0 {
		return nil, fmt.Errorf("build term %q for %s: %w", t.word, t.documentID, ErrNoPositions)
	}

	return &t, nil
}

// MustBuild is like Build but panics on error. It is meant for tests and
// static fixtures.
func (b *DocumentTermBuilder) MustBuild() *DocumentTerm {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}

	return t
}

/*
	query package turns raw user queries into either a keyword query or a
	phrase query made of up to MaxPhrases quoted phrases joined by
	AND / OR / NOT operators.
*/

package query

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	// MaxPhrases is the largest number of quoted phrases a query may carry.
	// Additional phrases are ignored.
	MaxPhrases = 3

	// EmptySignature is the signature shared by every query without terms.
	EmptySignature = "empty"
)

var (
	nonWordRegex = regexp.MustCompile(`\W+`)
	phraseRegex  = regexp.MustCompile(`"[^"]+"`)
)

// Query is a parsed search query.
type Query struct {
	// Phrase is true when the query is made of quoted phrases.
	Phrase bool

	// Terms holds the lowercased keyword tokens in query order. Only set for
	// keyword queries.
	Terms []string

	// Phrases holds the normalized phrases in query order: lowercased words
	// joined by a single space. Only set for phrase queries.
	Phrases []string

	// Operators[i] joins Phrases[i] and Phrases[i+1].
	Operators []Operator
}

// Parse parses a raw query. A query that both starts and ends with a double
// quote is a phrase query; anything else is a keyword query.
func Parse(raw string) Query {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		return parsePhrases(raw)
	}

	return Query{Terms: Tokenize(raw)}
}

// Tokenize lowercases s and splits it on runs of non-word characters.
func Tokenize(s string) []string {
	parts := nonWordRegex.Split(strings.ToLower(s), -1)

	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}

	return tokens
}

func parsePhrases(raw string) Query {
	q := Query{Phrase: true}

	matches := phraseRegex.FindAllStringIndex(raw, -1)
	prevEnd := -1

	for _, m := range matches {
		if len(q.Phrases) == MaxPhrases {
			break
		}

		words := Tokenize(raw[m[0]+1 : m[1]-1])
		if len(words) == 0 {
			continue
		}

		// The text between two quoted phrases carries the operator.
		if prevEnd >= 0 {
			between := strings.ToUpper(strings.TrimSpace(raw[prevEnd:m[0]]))
			q.Operators = append(q.Operators, parseOperator(between))
		}

		q.Phrases = append(q.Phrases, strings.Join(words, " "))
		prevEnd = m[1]
	}

	return q
}

// Empty reports whether the query carries no searchable terms.
func (q Query) Empty() bool {
	if q.Phrase {
		return len(q.Phrases) == 0
	}

	return len(q.Terms) == 0
}

// SearchTerms returns the words used to highlight snippets. For phrase
// queries words of phrases preceded by NOT are excluded.
func (q Query) SearchTerms() []string {
	if !q.Phrase {
		return append([]string(nil), q.Terms...)
	}

	var terms []string
	for i, phrase := range q.Phrases {
		if i > 0 && OperatorAt(q.Operators, i-1) == Not {
			continue
		}

		terms = append(terms, strings.Fields(phrase)...)
	}

	return terms
}

// Signature returns a deterministic key identifying equivalent queries.
// Keyword queries are keyed on their sorted unique terms; phrase queries keep
// the phrase order and include every operator.
func (q Query) Signature() string {
	if q.Empty() {
		return EmptySignature
	}

	var sb strings.Builder

	if !q.Phrase {
		sb.WriteString(strings.Join(sortedUnique(q.Terms), ","))
		sb.WriteString("|false")

		return sb.String()
	}

	for i, phrase := range q.Phrases {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Quote(phrase))
	}

	sb.WriteString("|true|")
	for i := 0; i < len(q.Phrases)-1; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(OperatorAt(q.Operators, i))))
	}

	return sb.String()
}

func sortedUnique(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))

	for _, t := range terms {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	sort.Strings(out)

	return out
}

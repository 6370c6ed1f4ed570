package query

import (
	"testing"

	check "gopkg.in/check.v1"
)

var _ = check.Suite(new(QueryTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type QueryTestSuite struct{}

func (s *QueryTestSuite) TestKeywordQuery(c *check.C) {
	q := Parse("  Machine-Learning, for BEGINNERS! ")

	c.Assert(q.Phrase, check.Equals, false)
	c.Assert(q.Terms, check.DeepEquals, []string{"machine", "learning", "for", "beginners"})
	c.Assert(q.SearchTerms(), check.DeepEquals, q.Terms)
	c.Assert(q.Empty(), check.Equals, false)
}

func (s *QueryTestSuite) TestPhraseQueryWithOperators(c *check.C) {
	q := Parse(`"Karim's Car Beautiful" NOT "Traveling Traveled Learning"`)

	c.Assert(q.Phrase, check.Equals, true)
	c.Assert(q.Phrases, check.DeepEquals, []string{"karim s car beautiful", "traveling traveled learning"})
	c.Assert(q.Operators, check.DeepEquals, []Operator{Not})
	c.Assert(q.SearchTerms(), check.DeepEquals, []string{"karim", "s", "car", "beautiful"})
}

func (s *QueryTestSuite) TestPhraseQueryLimitsAndDefaults(c *check.C) {
	q := Parse(`"quick fox" "lazy dog" or "red hen" AND "extra"`)

	c.Assert(q.Phrases, check.DeepEquals, []string{"quick fox", "lazy dog", "red hen"})
	// A missing operator defaults to AND; operators are case-insensitive.
	c.Assert(q.Operators, check.DeepEquals, []Operator{And, Or})
}

func (s *QueryTestSuite) TestEmptyQueries(c *check.C) {
	for _, raw := range []string{"", "   ", "!!!", `""`, `" ... "`} {
		q := Parse(raw)
		c.Assert(q.Empty(), check.Equals, true, check.Commentf("query %q", raw))
		c.Assert(q.Signature(), check.Equals, EmptySignature)
	}
}

func (s *QueryTestSuite) TestSignature(c *check.C) {
	// Keyword signatures ignore order and duplicates.
	c.Assert(Parse("fox quick fox").Signature(), check.Equals, Parse("quick fox").Signature())
	c.Assert(Parse("quick fox").Signature(), check.Equals, "fox,quick|false")

	// Phrase signatures keep the phrase order and the operators.
	c.Assert(Parse(`"quick fox" AND "lazy dog"`).Signature(), check.Equals, `"quick fox","lazy dog"|true|1`)
	c.Assert(
		Parse(`"quick fox" AND "lazy dog"`).Signature(), check.Not(check.Equals),
		Parse(`"quick fox" NOT "lazy dog"`).Signature(),
	)
	c.Assert(
		Parse(`"quick fox" AND "lazy dog"`).Signature(), check.Not(check.Equals),
		Parse(`"lazy dog" AND "quick fox"`).Signature(),
	)

	// A keyword query and a phrase query over the same words differ.
	c.Assert(Parse("quick fox").Signature(), check.Not(check.Equals), Parse(`"quick fox"`).Signature())
}

func (s *QueryTestSuite) TestOperatorAt(c *check.C) {
	ops := []Operator{Not, Operator(9)}
	c.Assert(OperatorAt(ops, 0), check.Equals, Not)
	c.Assert(OperatorAt(ops, 1), check.Equals, And)
	c.Assert(OperatorAt(ops, 5), check.Equals, And)
	c.Assert(OperatorAt(nil, 0), check.Equals, And)
	c.Assert(Or.String(), check.Equals, "OR")
}

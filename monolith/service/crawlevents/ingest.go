package crawlevents

import (
	"context"
	"fmt"

	"github.com/mycok/sherlook/linkgraph/graph"
	"github.com/mycok/sherlook/query"
	"github.com/mycok/sherlook/textindexer/index"
)

// ingestDocument stores a crawled page as a graph vertex, replaces its raw
// outgoing links and (re)indexes its words under the vertex id.
func (svc *Service) ingestDocument(ctx context.Context, crawled *CrawledDocument) error {
	doc := &graph.Document{
		URL:       crawled.URL,
		CrawledAt: crawled.CrawledAt,
	}
	if doc.CrawledAt.IsZero() {
		doc.CrawledAt = svc.config.Clock.Now()
	}

	if err := svc.config.GraphAPI.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("ingest %s: upsert document: %w", crawled.URL, err)
	}

	if err := svc.config.GraphAPI.UpsertLinks(ctx, doc.ID, crawled.Links); err != nil {
		return fmt.Errorf("ingest %s: upsert links: %w", crawled.URL, err)
	}

	if err := svc.config.IndexAPI.Index(ctx, toIndexDocument(doc, crawled)); err != nil {
		return fmt.Errorf("ingest %s: index: %w", crawled.URL, err)
	}

	return nil
}

// toIndexDocument tokenizes the sections of a crawled page. Positions run
// across the whole document: title words first, then headings, then body.
func toIndexDocument(doc *graph.Document, crawled *CrawledDocument) *index.Document {
	out := &index.Document{
		ID:          doc.ID,
		URL:         crawled.URL,
		Title:       crawled.Title,
		Description: crawled.Description,
	}

	pos := 0
	add := func(text string, section index.Section) {
		for _, w := range query.Tokenize(text) {
			out.Words = append(out.Words, index.Word{Text: w, Position: pos, Section: section})
			pos++
		}
	}

	add(crawled.Title, index.SectionTitle)
	for _, h := range crawled.Headings {
		add(h, index.SectionHeader)
	}
	add(crawled.Body, index.SectionBody)

	return out
}

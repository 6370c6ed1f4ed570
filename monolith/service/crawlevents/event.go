package crawlevents

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies the kind of a crawl event.
type EventType string

const (
	// EventDocumentCrawled carries a fetched page that should be stored
	// in the link graph and the text index.
	EventDocumentCrawled EventType = "document_crawled"

	// EventCrawlCompleted marks the end of a crawl cycle and triggers a
	// PageRank pass.
	EventCrawlCompleted EventType = "crawl_completed"
)

// Event is the JSON payload of a crawl event message.
type Event struct {
	Type     EventType        `json:"type"`
	Document *CrawledDocument `json:"document,omitempty"`
}

// CrawledDocument is a page produced by the crawler with its text already
// split into sections.
type CrawledDocument struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Headings    []string  `json:"headings"`
	Body        string    `json:"body"`
	Links       []string  `json:"links"`
	CrawledAt   time.Time `json:"crawledAt"`
}

func decodeEvent(value []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(value, &evt); err != nil {
		return nil, fmt.Errorf("decoding crawl event: %w", err)
	}

	switch evt.Type {
	case EventCrawlCompleted:
	case EventDocumentCrawled:
		if evt.Document == nil || evt.Document.URL == "" {
			return nil, fmt.Errorf("decoding crawl event: %s event without a document URL", evt.Type)
		}
	default:
		return nil, fmt.Errorf("decoding crawl event: unknown type %q", evt.Type)
	}

	return &evt, nil
}

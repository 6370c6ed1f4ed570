package ranker

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Config encapsulates the settings for configuring the ranker.
type Config struct {
	// An API for looking up document terms, IDF, PageRank scores and
	// surrounding words.
	IndexAPI IndexAPI

	// Weight of the lexical score in the final score. Defaults to 0.7.
	LexicalWeight float64

	// Weight of the PageRank score in the final score. Defaults to 0.3.
	PopularityWeight float64

	// Number of words on each side of the earliest keyword match included
	// in a snippet. Defaults to 10.
	KeywordWindow int

	// Number of words on each side of a phrase match included in a
	// snippet. Defaults to 15.
	PhraseWindow int

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error

	if cfg.IndexAPI == nil {
		err = multierror.Append(err, fmt.Errorf("index API not provided"))
	}

	if cfg.LexicalWeight == 0 && cfg.PopularityWeight == 0 {
		cfg.LexicalWeight, cfg.PopularityWeight = 0.7, 0.3
	}

	if cfg.LexicalWeight < 0 || cfg.PopularityWeight < 0 {
		err = multierror.Append(err, fmt.Errorf("score weights must be >= 0"))
	}

	if cfg.KeywordWindow == 0 {
		cfg.KeywordWindow = 10
	} else if cfg.KeywordWindow < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for keyword snippet window"))
	}

	if cfg.PhraseWindow == 0 {
		cfg.PhraseWindow = 15
	} else if cfg.PhraseWindow < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for phrase snippet window"))
	}

	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}

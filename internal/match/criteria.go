// Package match decides whether a post satisfies a source's criteria.
package match

import (
	"fmt"
	"strings"
)

// Custom predicate identifiers accepted in configuration.
const (
	PredicateTag9AndKeyword = "tag9_and_keyword"
	PredicateKeywordOrTag   = "keyword_or_tag"
)

// Criteria describes what counts as a match for one subreddit.
type Criteria struct {
	Source    string
	Predicate Predicate
}

// Predicate is one of Generic, FixedTagAndKeyword or KeywordOrTag.
type Predicate interface {
	predicate()
}

// Generic requires every configured field to match. With no fields set it
// matches nothing.
type Generic struct {
	Keyword string
	Flair   string
}

// FixedTagAndKeyword matches titles carrying a "9]" tag and the word
// "giveaway". It takes no parameters.
type FixedTagAndKeyword struct{}

// KeywordOrTag matches when either the keyword or the flair matches.
type KeywordOrTag struct {
	Keyword string
	Flair   string
}

func (Generic) predicate()            {}
func (FixedTagAndKeyword) predicate() {}
func (KeywordOrTag) predicate()       {}

// NewPredicate builds a predicate from the flat configuration fields.
// An empty custom name selects Generic.
func NewPredicate(keyword, flair, custom string) (Predicate, error) {
	switch strings.TrimSpace(custom) {
	case "":
		return Generic{Keyword: keyword, Flair: flair}, nil
	case PredicateTag9AndKeyword:
		return FixedTagAndKeyword{}, nil
	case PredicateKeywordOrTag:
		if keyword == "" && flair == "" {
			return nil, fmt.Errorf("custom predicate %q needs a keyword or a flair", custom)
		}
		return KeywordOrTag{Keyword: keyword, Flair: flair}, nil
	default:
		return nil, fmt.Errorf("unknown custom predicate %q (want %s or %s)",
			custom, PredicateTag9AndKeyword, PredicateKeywordOrTag)
	}
}

// Describe returns a short human-readable summary of the criteria.
func (c Criteria) Describe() string {
	switch p := c.Predicate.(type) {
	case FixedTagAndKeyword:
		return fmt.Sprintf("posts with '%s' and '%s' in title", tag9Marker, tag9Keyword)
	case KeywordOrTag:
		switch {
		case p.Keyword != "" && p.Flair != "":
			return fmt.Sprintf("'%s' OR flair '%s'", p.Keyword, p.Flair)
		case p.Keyword != "":
			return fmt.Sprintf("'%s'", p.Keyword)
		default:
			return fmt.Sprintf("posts with flair '%s'", p.Flair)
		}
	case Generic:
		switch {
		case p.Keyword != "" && p.Flair != "":
			return fmt.Sprintf("'%s' with flair '%s'", p.Keyword, p.Flair)
		case p.Flair != "":
			return fmt.Sprintf("posts with flair '%s'", p.Flair)
		case p.Keyword != "":
			return fmt.Sprintf("'%s'", p.Keyword)
		}
	}
	return "no criteria (matches nothing)"
}

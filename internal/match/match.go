package match

import (
	"fmt"
	"strings"

	"github.com/ppiankov/subwatch/internal/source"
)

const (
	tag9Marker  = "9]"
	tag9Keyword = "giveaway"
)

// Verdict is the outcome of evaluating one post, with the clauses that fired.
type Verdict struct {
	Matched bool
	Reasons []string
}

// Matches reports whether post satisfies c. It has no side effects.
func Matches(post source.Post, c Criteria) bool {
	return Explain(post, c).Matched
}

// Explain evaluates post against c and records why it did or did not match.
func Explain(post source.Post, c Criteria) Verdict {
	switch p := c.Predicate.(type) {
	case FixedTagAndKeyword:
		hasTag := strings.Contains(post.Title, tag9Marker)
		hasKeyword := containsFold(post.Title, tag9Keyword)
		return Verdict{
			Matched: hasTag && hasKeyword,
			Reasons: []string{
				clause(hasTag, "title contains %q", tag9Marker),
				clause(hasKeyword, "title contains %q", tag9Keyword),
			},
		}

	case KeywordOrTag:
		var (
			v       Verdict
			keyword bool
			flair   bool
		)
		if p.Keyword != "" {
			keyword = keywordIn(post, p.Keyword)
			v.Reasons = append(v.Reasons, clause(keyword, "keyword %q in title or body", p.Keyword))
		}
		if p.Flair != "" {
			flair = post.Flair == p.Flair
			v.Reasons = append(v.Reasons, clause(flair, "flair is %q", p.Flair))
		}
		v.Matched = keyword || flair
		return v

	case Generic:
		if p.Keyword == "" && p.Flair == "" {
			return Verdict{Reasons: []string{"no keyword or flair configured"}}
		}
		var v Verdict
		if p.Flair != "" {
			ok := post.Flair == p.Flair
			v.Reasons = append(v.Reasons, clause(ok, "flair is %q", p.Flair))
			if !ok {
				return v
			}
		}
		if p.Keyword != "" {
			ok := keywordIn(post, p.Keyword)
			v.Reasons = append(v.Reasons, clause(ok, "keyword %q in title or body", p.Keyword))
			v.Matched = ok
			return v
		}
		// Flair-only criteria that got this far matched on flair.
		v.Matched = true
		return v
	}

	return Verdict{Reasons: []string{"no predicate configured"}}
}

func keywordIn(post source.Post, keyword string) bool {
	return containsFold(post.Title, keyword) || containsFold(post.Body, keyword)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func clause(ok bool, format string, args ...any) string {
	mark := "no"
	if ok {
		mark = "yes"
	}
	return fmt.Sprintf("[%s] %s", mark, fmt.Sprintf(format, args...))
}

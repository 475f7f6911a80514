package models

import (
	"net/url"
	"path"
	"strings"
)

// SourceItem represents one movie being processed
type SourceItem struct {
	Key        string // canonical page URL, used as the ledger key
	Name       string // last path element of the page URL
	StagingDir string
	BaseName   string // output name without extension, "<name>_<quality>"
}

// NewSourceItem derives the item identity from its page URL
func NewSourceItem(pageURL string) *SourceItem {
	key := strings.TrimSuffix(strings.TrimSpace(pageURL), "/")
	return &SourceItem{
		Key:  key,
		Name: MovieName(key),
	}
}

// MovieName returns the last path element of a movie page URL
func MovieName(pageURL string) string {
	if u, err := url.Parse(pageURL); err == nil && u.Path != "" {
		if name := path.Base(strings.TrimSuffix(u.Path, "/")); name != "/" && name != "." {
			return name
		}
	}
	parts := strings.Split(strings.TrimSuffix(pageURL, "/"), "/")
	return parts[len(parts)-1]
}

// MoviePage holds what is scraped from a movie page
type MoviePage struct {
	UUID  string
	Title string // empty when the page carries no title
}

// SegmentRange is a half-open interval [Start, End) of segment indices
type SegmentRange struct {
	Start int
	End   int
}

// Len returns the number of indices in the range
func (r SegmentRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether the range holds no indices
func (r SegmentRange) Empty() bool {
	return r.Len() == 0
}

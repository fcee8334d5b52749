package feed

import (
	"bytes"
	"cmp"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/mmcdole/gofeed"
)

const untitled = "Untitled"

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Parse is a purely structural transform: it does no classification and no I/O.
// FetchedAt is left for the caller to stamp.
func (p *Parser) Parse(data []byte, feedID string) (*ParsedFeed, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeUnknown:
		return nil, fmt.Errorf("%w: no channel or feed root element", ErrMalformedFeed)
	case gofeed.FeedTypeRSS:
		if !hasChannel(data) {
			return nil, fmt.Errorf("%w: no channel element", ErrMalformedFeed)
		}
	case gofeed.FeedTypeJSON:
		if !isJSONFeed(data) {
			return nil, fmt.Errorf("%w: JSON document is not a JSON Feed", ErrMalformedFeed)
		}
	}

	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFeed, err)
	}

	parsed := &ParsedFeed{
		FeedID:        feedID,
		Title:         strings.TrimSpace(feed.Title),
		Description:   feed.Description,
		Link:          feed.Link,
		LastBuildDate: feed.Updated,
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.normalizeItem(item))
	}
	parsed.Entries = entries

	return parsed, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) RawEntry {
	entry := RawEntry{
		Title:          cmp.Or(strings.TrimSpace(item.Title), untitled),
		Description:    item.Description,
		Link:           strings.TrimSpace(item.Link),
		PublishedAtRaw: strings.TrimSpace(cmp.Or(item.Published, item.Updated)),
		GUID:           strings.TrimSpace(item.GUID),
		RichContent:    item.Content,
	}

	entry.Authors = p.extractAuthors(item)

	if item.Categories != nil {
		entry.Categories = item.Categories
	}

	return entry
}

func (p *Parser) extractAuthors(item *gofeed.Item) []string {
	var authors []string

	if len(item.Authors) > 0 {
		for _, author := range item.Authors {
			if author != nil {
				authorStr := p.formatAuthor(author.Name, author.Email)
				if authorStr != "" {
					authors = append(authors, authorStr)
				}
			}
		}
	} else if item.Author != nil {
		authorStr := p.formatAuthor(item.Author.Name, item.Author.Email)
		if authorStr != "" {
			authors = append(authors, authorStr)
		}
	}

	return authors
}

func (p *Parser) formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" && email != "" {
		return fmt.Sprintf("%s (%s)", email, name)
	} else if name != "" {
		return name
	} else if email != "" {
		return email
	}

	return ""
}

// jsonFeedVersionPrefix starts the mandatory "version" member of every JSON Feed.
const jsonFeedVersionPrefix = "https://jsonfeed.org/version/"

// isJSONFeed reports whether data is a JSON object declaring a JSON Feed
// version. Error bodies from gateways and rate limiters carry no such member.
func isJSONFeed(data []byte) bool {
	var doc struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	return strings.HasPrefix(doc.Version, jsonFeedVersionPrefix)
}

// hasChannel reports whether the document root has a direct <channel> child.
func hasChannel(data []byte) bool {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	// Only element names are inspected, so the declared charset is irrelevant.
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 1 && strings.EqualFold(t.Name.Local, "channel") {
				return true
			}
			depth++
		case xml.EndElement:
			depth--
			if depth <= 0 {
				return false
			}
		}
	}
}

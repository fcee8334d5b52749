package feed

import (
	"cmp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/cespare/xxhash/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// bluemonday re-escapes text with html.EscapeString, so &#34; is decoded
// alongside the five entities feeds actually use.
var entityDecoder = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&#34;", `"`,
	"&#39;", "'",
)

// Extractor turns raw entries into classified threat items. Every method is
// total: missing fields produce fallbacks, never errors.
type Extractor struct {
	policy *bluemonday.Policy
	now    func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{
		policy: bluemonday.StrictPolicy(),
		now:    time.Now,
	}
}

func (e *Extractor) Extract(entry RawEntry, feedID, feedTitle string, defaultSeverity Severity) ThreatItem {
	now := e.now().UTC()

	description := e.cleanText(entry.Description)
	text := classificationText(entry.Title, description)

	return ThreatItem{
		ID:          GenerateID(cmp.Or(entry.GUID, entry.Link, entry.Title), feedID),
		FeedID:      feedID,
		Title:       entry.Title,
		Description: description,
		URL:         entry.Link,
		PublishedAt: normalizeDate(entry.PublishedAtRaw, now),
		Severity:    classifySeverity(text, defaultSeverity),
		Categories:  mergeCategories(entry.Categories, inferCategories(text)),
		ThreatType:  classifyThreatType(text),
		Indicators:  extractIndicators(entry.Title, description, e.cleanText(entry.RichContent)),
		Source:      feedTitle,
		RawContent:  entry.RichContent,
		ProcessedAt: now,
	}
}

// ExtractAll extracts every entry of a parsed feed, preserving entry order.
func (e *Extractor) ExtractAll(parsed *ParsedFeed, defaultSeverity Severity) []ThreatItem {
	items := make([]ThreatItem, 0, len(parsed.Entries))
	for _, entry := range parsed.Entries {
		items = append(items, e.Extract(entry, parsed.FeedID, parsed.Title, defaultSeverity))
	}
	return items
}

// GenerateID derives a stable item identity from the entry identifier and the
// feed it belongs to.
func GenerateID(identifier, feedID string) string {
	h := xxhash.Sum64String(identifier + feedID)
	return feedID + "-" + strconv.FormatUint(h, 36)
}

func (e *Extractor) cleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(entityDecoder.Replace(e.policy.Sanitize(s)))
}

func classificationText(title, description string) string {
	return strings.ToLower(norm.NFKC.String(title + " " + description))
}

func normalizeDate(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return fallback
	}
	return t.UTC()
}

func mergeCategories(declared, inferred []string) []string {
	categories := make([]string, 0, len(declared)+len(inferred))
	seen := make(map[string]struct{}, len(declared)+len(inferred))

	for _, list := range [][]string{declared, inferred} {
		for _, c := range list {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			key := strings.ToLower(c)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			categories = append(categories, c)
		}
	}

	return categories
}

func extractIndicators(parts ...string) []string {
	text := strings.Join(parts, " ")

	indicators := make([]string, 0)
	seen := make(map[string]struct{})
	add := func(v string) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		indicators = append(indicators, v)
	}

	for _, ip := range ipv4Pattern.FindAllString(text, -1) {
		add(ip)
	}
	for _, domain := range domainPattern.FindAllString(text, -1) {
		domain = strings.ToLower(domain)
		if domain == placeholderDomain || strings.HasSuffix(domain, "."+placeholderDomain) {
			continue
		}
		add(domain)
	}
	for _, hash := range sha256Pattern.FindAllString(text, -1) {
		add(strings.ToLower(hash))
	}
	for _, cve := range cvePattern.FindAllString(text, -1) {
		add(strings.ToUpper(cve))
	}

	return indicators
}

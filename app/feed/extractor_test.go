package feed

import (
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestExtractor() *Extractor {
	e := NewExtractor()
	e.now = func() time.Time { return fixedNow }
	return e
}

func TestExtractDeterministic(t *testing.T) {
	extractor := newTestExtractor()

	entry := RawEntry{
		Title:          "Critical RCE in VPN appliance",
		Description:    "<p>Attackers at 203.0.113.7 exploit CVE-2024-3400 via evil-updates.net</p>",
		Link:           "https://news.security.test/vpn",
		PublishedAtRaw: "Mon, 03 Jul 2023 10:00:00 GMT",
		GUID:           "vpn-1",
		Categories:     []string{"Vulnerabilities"},
		RichContent:    "<div>hash e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855</div>",
	}

	first := extractor.Extract(entry, "vendor", "Vendor Advisories", SeverityLow)
	second := extractor.Extract(entry, "vendor", "Vendor Advisories", SeverityLow)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical output for identical input:\n%+v\n%+v", first, second)
	}
}

func TestExtractFields(t *testing.T) {
	extractor := newTestExtractor()

	entry := RawEntry{
		Title:          "Critical RCE in VPN appliance",
		Description:    "<p>Attackers at 203.0.113.7 exploit CVE-2024-3400 via evil-updates.net</p>",
		Link:           "https://news.security.test/vpn",
		PublishedAtRaw: "Mon, 03 Jul 2023 10:00:00 GMT",
		GUID:           "vpn-1",
		RichContent:    "<div>hash e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855</div>",
	}

	item := extractor.Extract(entry, "vendor", "Vendor Advisories", SeverityLow)

	if item.ID != GenerateID("vpn-1", "vendor") {
		t.Errorf("Expected id derived from GUID, got: %s", item.ID)
	}
	if !strings.HasPrefix(item.ID, "vendor-") {
		t.Errorf("Expected id prefixed with feed id, got: %s", item.ID)
	}
	if item.FeedID != "vendor" {
		t.Errorf("Expected feed id 'vendor', got: %s", item.FeedID)
	}
	if item.Source != "Vendor Advisories" {
		t.Errorf("Expected source 'Vendor Advisories', got: %s", item.Source)
	}
	if item.URL != "https://news.security.test/vpn" {
		t.Errorf("Expected url from link, got: %s", item.URL)
	}
	if item.Description != "Attackers at 203.0.113.7 exploit CVE-2024-3400 via evil-updates.net" {
		t.Errorf("Expected stripped description, got: %s", item.Description)
	}
	if !item.PublishedAt.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected parsed publish date, got: %v", item.PublishedAt)
	}
	if item.Severity != SeverityCritical {
		t.Errorf("Expected critical severity, got: %s", item.Severity)
	}
	if item.ThreatType != "vulnerability" {
		t.Errorf("Expected threat type 'vulnerability', got: %s", item.ThreatType)
	}
	if item.RawContent != entry.RichContent {
		t.Errorf("Expected raw content to carry rich content, got: %s", item.RawContent)
	}
	if !item.ProcessedAt.Equal(fixedNow) {
		t.Errorf("Expected processedAt from clock, got: %v", item.ProcessedAt)
	}

	expected := []string{
		"203.0.113.7",
		"evil-updates.net",
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		"CVE-2024-3400",
	}
	if !reflect.DeepEqual(item.Indicators, expected) {
		t.Errorf("Expected indicators %v, got: %v", expected, item.Indicators)
	}
}

func TestExtractIdentityStability(t *testing.T) {
	extractor := newTestExtractor()

	a := extractor.Extract(RawEntry{Title: "One", Description: "first", GUID: "g-1"}, "feed", "Feed", SeverityLow)
	b := extractor.Extract(RawEntry{Title: "One", Description: "second", GUID: "g-1"}, "feed", "Feed", SeverityLow)
	if a.ID != b.ID {
		t.Errorf("Expected entries sharing a GUID to share id, got %s and %s", a.ID, b.ID)
	}

	c := extractor.Extract(RawEntry{Title: "One", GUID: "g-1"}, "other", "Other", SeverityLow)
	if a.ID == c.ID {
		t.Error("Expected different feeds to produce different ids")
	}

	byLink1 := extractor.Extract(RawEntry{Title: "A", Link: "https://news.security.test/a"}, "feed", "Feed", SeverityLow)
	byLink2 := extractor.Extract(RawEntry{Title: "B", Link: "https://news.security.test/a"}, "feed", "Feed", SeverityLow)
	if byLink1.ID != byLink2.ID {
		t.Error("Expected link to act as identifier when GUID is missing")
	}
	if byLink1.ID != GenerateID("https://news.security.test/a", "feed") {
		t.Errorf("Expected id derived from link, got: %s", byLink1.ID)
	}

	byTitle := extractor.Extract(RawEntry{Title: "Only title"}, "feed", "Feed", SeverityLow)
	if byTitle.ID != GenerateID("Only title", "feed") {
		t.Errorf("Expected id derived from title, got: %s", byTitle.ID)
	}
}

func TestGenerateIDOrderSensitive(t *testing.T) {
	if GenerateID("ab", "feed") == GenerateID("ba", "feed") {
		t.Error("Expected hash to be order sensitive")
	}
	if GenerateID("ab", "feed") != GenerateID("ab", "feed") {
		t.Error("Expected hash to be deterministic")
	}
}

func TestExtractDescriptionCleaning(t *testing.T) {
	extractor := newTestExtractor()

	testCases := []struct {
		input    string
		expected string
	}{
		{"<p>Alert &amp; Warning</p>", "Alert & Warning"},
		{"  <b>bold</b> &lt;tag&gt; &quot;q&quot; ", `bold <tag> "q"`},
		{`it&#39;s <a href="https://x.test">here</a>`, "it's here"},
		{"", ""},
	}

	for _, tc := range testCases {
		item := extractor.Extract(RawEntry{Title: "t", Description: tc.input}, "feed", "Feed", SeverityLow)
		if item.Description != tc.expected {
			t.Errorf("cleanText(%q): expected %q, got %q", tc.input, tc.expected, item.Description)
		}
	}
}

func TestExtractDropsScriptAndStyleContent(t *testing.T) {
	extractor := newTestExtractor()

	entry := RawEntry{
		Title:       "Notice",
		Description: "<script>beacon('evil-cdn.net')</script><style>.x{}</style>visible text",
		RichContent: "<script>var c2 = '203.0.113.9';</script><p>body mentions bad-host.org</p>",
	}

	item := extractor.Extract(entry, "feed", "Feed", SeverityLow)

	if item.Description != "visible text" {
		t.Errorf("Expected script and style bodies to be dropped, got %q", item.Description)
	}
	if !reflect.DeepEqual(item.Indicators, []string{"bad-host.org"}) {
		t.Errorf("Expected only indicators outside script blocks, got %v", item.Indicators)
	}
	if item.RawContent != entry.RichContent {
		t.Error("Expected raw content to keep the script block")
	}
}

func TestExtractDateFallback(t *testing.T) {
	extractor := newTestExtractor()

	for _, raw := range []string{"", "not a date"} {
		item := extractor.Extract(RawEntry{Title: "t", PublishedAtRaw: raw}, "feed", "Feed", SeverityLow)
		if !item.PublishedAt.Equal(fixedNow) {
			t.Errorf("PublishedAtRaw %q: expected fallback to now, got %v", raw, item.PublishedAt)
		}
	}

	item := extractor.Extract(RawEntry{Title: "t", PublishedAtRaw: "2023-07-03T10:00:00+02:00"}, "feed", "Feed", SeverityLow)
	if !item.PublishedAt.Equal(time.Date(2023, 7, 3, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected offset date normalised to UTC, got %v", item.PublishedAt)
	}
	if item.PublishedAt.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", item.PublishedAt.Location())
	}
}

func TestExtractSeverityPrecedence(t *testing.T) {
	extractor := newTestExtractor()

	item := extractor.Extract(RawEntry{Title: "New malware strain is critical"}, "feed", "Feed", SeverityLow)
	if item.Severity != SeverityCritical {
		t.Errorf("Expected critical to win over malware, got: %s", item.Severity)
	}

	item = extractor.Extract(RawEntry{Title: "Quarterly newsletter"}, "feed", "Feed", SeverityMedium)
	if item.Severity != SeverityMedium {
		t.Errorf("Expected default severity, got: %s", item.Severity)
	}
}

func TestExtractCVE(t *testing.T) {
	extractor := newTestExtractor()

	item := extractor.Extract(RawEntry{Title: "Patch for CVE-2024-1234 released"}, "feed", "Feed", SeverityLow)

	if !slices.Contains(item.Indicators, "CVE-2024-1234") {
		t.Errorf("Expected CVE-2024-1234 in indicators, got: %v", item.Indicators)
	}
	if item.ThreatType != "vulnerability" {
		t.Errorf("Expected threat type 'vulnerability', got: %s", item.ThreatType)
	}
	if !slices.Contains(item.Categories, "vulnerability") {
		t.Errorf("Expected inferred vulnerability category, got: %v", item.Categories)
	}
}

func TestExtractPlaceholderDomainExcluded(t *testing.T) {
	extractor := newTestExtractor()

	item := extractor.Extract(RawEntry{Title: "Notice", Description: "example.com"}, "feed", "Feed", SeverityLow)
	if len(item.Indicators) != 0 {
		t.Errorf("Expected no indicators, got: %v", item.Indicators)
	}

	item = extractor.Extract(RawEntry{Title: "Notice", Description: "see www.example.com"}, "feed", "Feed", SeverityLow)
	if len(item.Indicators) != 0 {
		t.Errorf("Expected subdomains of the placeholder to be excluded, got: %v", item.Indicators)
	}

	item = extractor.Extract(RawEntry{Title: "Notice", Description: "malicious-c2.net"}, "feed", "Feed", SeverityLow)
	if !reflect.DeepEqual(item.Indicators, []string{"malicious-c2.net"}) {
		t.Errorf("Expected [malicious-c2.net], got: %v", item.Indicators)
	}
}

func TestExtractIndicatorsDeduplicated(t *testing.T) {
	indicators := extractIndicators(
		"10.0.0.1 and 10.0.0.1 again, 300.1.1.1 is not an address",
		"Bad.Domain.org bad.domain.org",
		"cve-2023-0001 CVE-2023-0001 CVE-2023-12",
	)

	expected := []string{"10.0.0.1", "bad.domain.org", "CVE-2023-0001"}
	if !reflect.DeepEqual(indicators, expected) {
		t.Errorf("Expected %v, got %v", expected, indicators)
	}
}

func TestExtractIndicatorsEmpty(t *testing.T) {
	indicators := extractIndicators("", "")
	if indicators == nil || len(indicators) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", indicators)
	}
}

func TestExtractCategories(t *testing.T) {
	extractor := newTestExtractor()

	entry := RawEntry{
		Title:       "Ransomware gang launches phishing wave",
		Description: "Also a DDoS against banks",
		Categories:  []string{"Malware", "News", "News", " "},
	}

	item := extractor.Extract(entry, "feed", "Feed", SeverityLow)

	expected := []string{"Malware", "News", "phishing", "ddos"}
	if !reflect.DeepEqual(item.Categories, expected) {
		t.Errorf("Expected %v, got %v", expected, item.Categories)
	}
}

func TestExtractAllPreservesOrder(t *testing.T) {
	extractor := newTestExtractor()

	parsed := &ParsedFeed{
		FeedID: "feed",
		Title:  "Feed Title",
		Entries: []RawEntry{
			{Title: "first", GUID: "1"},
			{Title: "second", GUID: "2"},
			{Title: "third", GUID: "3"},
		},
	}

	items := extractor.ExtractAll(parsed, SeverityLow)
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	for i, title := range []string{"first", "second", "third"} {
		if items[i].Title != title {
			t.Errorf("Expected item %d to be %q, got %q", i, title, items[i].Title)
		}
		if items[i].Source != "Feed Title" {
			t.Errorf("Expected source 'Feed Title', got %q", items[i].Source)
		}
	}
}

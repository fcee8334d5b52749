package feed

import (
	"regexp"
)

// Classification rules are evaluated top to bottom against lower-cased text;
// the first match wins. Keywords are anchored at a word start so that "rce"
// does not fire on "source" or "apt" on "adapt".

type severityRule struct {
	severity Severity
	pattern  *regexp.Regexp
}

type rule struct {
	name    string
	pattern *regexp.Regexp
}

var severityRules = []severityRule{
	{SeverityCritical, regexp.MustCompile(`\bcritical|\b(?:zero|0)[- ]?days?\b|\brce\b|\bremote code execution|\bworms?\b|\bransomware`)},
	{SeverityHigh, regexp.MustCompile(`\bhigh\b|\bexploit|\bvulnerabilit(?:y|ies)|\bmalware|\bbackdoor|\btrojan|\bapts?\b|\badvanced persistent`)},
	{SeverityMedium, regexp.MustCompile(`\bmedium\b|\bphishing|\bscams?\b|\bbreach|\bleak|\bsecurity updates?\b`)},
}

// categoryRules are all evaluated; every match appends its tag.
var categoryRules = []rule{
	{"malware", regexp.MustCompile(`\bmalware|\btrojan|\bvirus|\bworms?\b|\bransomware`)},
	{"phishing", regexp.MustCompile(`\bphishing|\bsocial engineering|\bscams?\b`)},
	{"vulnerability", regexp.MustCompile(`\bvulnerabilit(?:y|ies)|\bcves?\b|\bexploit`)},
	{"ddos", regexp.MustCompile(`\bddos\b|\bdenial[- ]of[- ]service`)},
	{"apt", regexp.MustCompile(`\bapts?\b|\badvanced persistent threat`)},
}

const generalThreat = "general"

var threatTypeRules = []rule{
	{"ransomware", regexp.MustCompile(`\bransomware`)},
	{"trojan", regexp.MustCompile(`\btrojan`)},
	{"phishing", regexp.MustCompile(`\bphishing`)},
	{"ddos", regexp.MustCompile(`\bddos\b`)},
	{"malware", regexp.MustCompile(`\bmalware`)},
	{"vulnerability", regexp.MustCompile(`\bvulnerabilit(?:y|ies)|\bcves?\b`)},
	{"apt", regexp.MustCompile(`\bapts?\b|\badvanced persistent`)},
	{"data_breach", regexp.MustCompile(`\bbreach|\bleak`)},
}

// Indicator patterns run on the original-case text.
var (
	ipv4Pattern   = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`)
	domainPattern = regexp.MustCompile(`(?i)\b(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}\b`)
	sha256Pattern = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)
	cvePattern    = regexp.MustCompile(`(?i)\bCVE-\d{4}-\d{4,}\b`)
)

// placeholderDomain shows up in illustrative text far more often than in
// real incidents; it and its subdomains are never reported.
const placeholderDomain = "example.com"

func classifySeverity(text string, fallback Severity) Severity {
	for _, r := range severityRules {
		if r.pattern.MatchString(text) {
			return r.severity
		}
	}
	return fallback
}

func classifyThreatType(text string) string {
	for _, r := range threatTypeRules {
		if r.pattern.MatchString(text) {
			return r.name
		}
	}
	return generalThreat
}

func inferCategories(text string) []string {
	var tags []string
	for _, r := range categoryRules {
		if r.pattern.MatchString(text) {
			tags = append(tags, r.name)
		}
	}
	return tags
}

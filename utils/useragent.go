package utils

import (
	"regexp"
	"strings"

	"portfolio/api/models"
)

var (
	mobileRe = regexp.MustCompile(`(?i)Mobile|Android|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)
	tabletRe = regexp.MustCompile(`(?i)iPad`)
)

type uaRule struct {
	name  string
	match *regexp.Regexp
	// unless disqualifies an otherwise matching rule.
	unless *regexp.Regexp
}

// Order matters: first match wins.
var browserRules = []uaRule{
	{name: "Edge", match: regexp.MustCompile(`(?i)Edge|Edg`)},
	{name: "Chrome", match: regexp.MustCompile(`(?i)Chrome`)},
	{name: "Firefox", match: regexp.MustCompile(`(?i)Firefox`)},
	{name: "Safari", match: regexp.MustCompile(`(?i)Safari`), unless: regexp.MustCompile(`(?i)Chrome`)},
	{name: "Opera", match: regexp.MustCompile(`(?i)Opera|OPR`)},
}

// Mobile platforms are checked before the desktop systems whose names
// their user agents also carry ("like Mac OS X", "Linux; Android").
var osRules = []uaRule{
	{name: "iOS", match: regexp.MustCompile(`(?i)iPhone|iPad|iPod|\biOS\b`)},
	{name: "Android", match: regexp.MustCompile(`(?i)Android`)},
	{name: "Windows", match: regexp.MustCompile(`(?i)Windows`)},
	{name: "macOS", match: regexp.MustCompile(`(?i)Mac`)},
	{name: "Linux", match: regexp.MustCompile(`(?i)Linux`)},
}

// ParseUserAgent classifies a raw User-Agent header into device type,
// browser and operating system. Anything unrecognised is "unknown".
func ParseUserAgent(ua string) models.DeviceInfo {
	info := models.UnknownDevice()
	ua = strings.TrimSpace(ua)
	if ua == "" || ua == models.Unknown {
		return info
	}

	switch {
	case tabletRe.MatchString(ua):
		info.Type = "tablet"
	case mobileRe.MatchString(ua):
		info.Type = "mobile"
	default:
		info.Type = "desktop"
	}

	info.Browser = firstMatch(browserRules, ua)
	info.OS = firstMatch(osRules, ua)
	return info
}

func firstMatch(rules []uaRule, ua string) string {
	for _, r := range rules {
		if !r.match.MatchString(ua) {
			continue
		}
		if r.unless != nil && r.unless.MatchString(ua) {
			continue
		}
		return r.name
	}
	return models.Unknown
}

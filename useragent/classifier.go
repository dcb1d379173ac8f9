// Package useragent buckets raw User-Agent strings into coarse device types
// and browser names. Rules are plain substring and pattern checks evaluated in
// a fixed order; the first matching rule decides.
package useragent

import (
	"regexp"
	"sort"
	"strings"

	"investgroup/api/models"
)

type DeviceType string

const (
	Desktop DeviceType = "Desktop"
	Mobile  DeviceType = "Mobile"
	Tablet  DeviceType = "Tablet"
	Unknown DeviceType = "Unknown"
)

const BrowserOther = "Other"

type Result struct {
	DeviceType DeviceType `json:"device_type"`
	Browser    string     `json:"browser"`
}

type deviceRule struct {
	name   string
	match  func(ua string) bool
	device DeviceType
}

type browserRule struct {
	name    string
	match   func(lower string) bool
	browser string
}

var (
	tabletPattern = regexp.MustCompile(`(?i)tablet|ipad|playbook|silk`)
	mobilePattern = regexp.MustCompile(`(?i)mobile|iphone|ipod|android|blackberry|opera mini|opera mobi|skyfire|maemo|windows phone|palm|iemobile|symbian|symbianos|fennec`)
)

// Tablet must be checked before mobile: Android without a later "mobile"
// token is a tablet, Android with one is a phone.
var deviceRules = []deviceRule{
	{name: "tablet-token", match: tabletPattern.MatchString, device: Tablet},
	{name: "android-without-mobile", match: androidTablet, device: Tablet},
	{name: "mobile-token", match: mobilePattern.MatchString, device: Mobile},
	{name: "empty", match: func(ua string) bool { return ua == "" }, device: Unknown},
}

// Edge and Opera on Chromium also send chrome/, and Chrome sends safari/, so
// order decides the label.
var browserRules = []browserRule{
	{name: "edge", match: containsAny("edg/", "edge/"), browser: "Edge"},
	{name: "chrome", match: containsAny("chrome/", "crios/"), browser: "Chrome"},
	{name: "safari", match: func(s string) bool {
		return strings.Contains(s, "safari/") && !strings.Contains(s, "chrome")
	}, browser: "Safari"},
	{name: "firefox", match: containsAny("firefox/", "fxios/"), browser: "Firefox"},
	{name: "opera", match: containsAny("opera/", "opr/"), browser: "Opera"},
	{name: "internet-explorer", match: containsAny("trident/", "msie "), browser: "Internet Explorer"},
}

// androidTablet matches "android" when no "mobile" follows it anywhere later
// in the string. Only the last occurrence needs checking.
func androidTablet(ua string) bool {
	lower := strings.ToLower(ua)
	idx := strings.LastIndex(lower, "android")
	return idx >= 0 && !strings.Contains(lower[idx+len("android"):], "mobile")
}

func containsAny(tokens ...string) func(string) bool {
	return func(s string) bool {
		for _, t := range tokens {
			if strings.Contains(s, t) {
				return true
			}
		}
		return false
	}
}

// Classify returns the device type and browser for a User-Agent header.
func Classify(ua string) Result {
	return Result{DeviceType: Device(ua), Browser: Browser(ua)}
}

func Device(ua string) DeviceType {
	for _, r := range deviceRules {
		if r.match(ua) {
			return r.device
		}
	}
	return Desktop
}

func Browser(ua string) string {
	lower := strings.ToLower(ua)
	for _, r := range browserRules {
		if r.match(lower) {
			return r.browser
		}
	}
	return BrowserOther
}

// DeviceRules returns the device rule names in evaluation order.
func DeviceRules() []string {
	names := make([]string, len(deviceRules))
	for i, r := range deviceRules {
		names[i] = r.name
	}
	return names
}

// BrowserRules returns the browser rule names in evaluation order.
func BrowserRules() []string {
	names := make([]string, len(browserRules))
	for i, r := range browserRules {
		names[i] = r.name
	}
	return names
}

// Rollup sums per-string counts into device and browser buckets, sorted by
// count descending then name.
func Rollup(counts []models.UserAgentCount) (devices, browsers []models.NamedCount) {
	byDevice := make(map[string]uint64)
	byBrowser := make(map[string]uint64)
	for _, c := range counts {
		res := Classify(c.UserAgent)
		byDevice[string(res.DeviceType)] += c.Count
		byBrowser[res.Browser] += c.Count
	}
	return sortedCounts(byDevice), sortedCounts(byBrowser)
}

func sortedCounts(m map[string]uint64) []models.NamedCount {
	out := make([]models.NamedCount, 0, len(m))
	for name, n := range m {
		out = append(out, models.NamedCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

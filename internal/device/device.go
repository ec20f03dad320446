// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

// Package device parses raw User-Agent strings into structured device and
// bot attributes. Parsing uses curated keyword tables and plain-string
// scans rather than a regex engine, keeping classification cheap enough to
// run inline on the request path.
package device

import "strings"

// Details is the classification result for one User-Agent string.
// Optional fields are empty when undetectable.
type Details struct {
	IP          string `json:"ip"`
	UserAgent   string `json:"user_agent"`
	IsBot       bool   `json:"is_bot"`
	BotName     string `json:"bot_name,omitempty"`
	BotCategory string `json:"bot_category,omitempty"`
	DeviceName  string `json:"device_name,omitempty"`
	Brand       string `json:"brand,omitempty"`
	Model       string `json:"model,omitempty"`
	OS          string `json:"os,omitempty"`
	Client      string `json:"client,omitempty"`
}

// Unknown returns the fixed placeholder result used when classification is
// skipped or fails. IsBot is always false here: authenticated identity is
// treated as proof of non-bot traffic.
func Unknown(ip, userAgent string) Details {
	return Details{
		IP:         ip,
		UserAgent:  userAgent,
		IsBot:      false,
		DeviceName: "Unknown",
	}
}

// botSignature maps a User-Agent token to a known bot identity.
type botSignature struct {
	token    string
	name     string
	category string
}

// Specific signatures are checked before the generic fallback tokens so
// that e.g. "googlebot" is reported as Googlebot, not Generic Bot.
var botSignatures = []botSignature{
	{"googlebot", "Googlebot", "Search bot"},
	{"bingbot", "BingBot", "Search bot"},
	{"slurp", "Yahoo! Slurp", "Search bot"},
	{"duckduckbot", "DuckDuckBot", "Search bot"},
	{"baiduspider", "Baiduspider", "Search bot"},
	{"yandexbot", "YandexBot", "Search bot"},
	{"applebot", "Applebot", "Search bot"},
	{"facebookexternalhit", "Facebook External Hit", "Social Media Agent"},
	{"twitterbot", "Twitterbot", "Social Media Agent"},
	{"linkedinbot", "LinkedInBot", "Social Media Agent"},
	{"telegrambot", "TelegramBot", "Social Media Agent"},
	{"whatsapp", "WhatsApp", "Social Media Agent"},
	{"ahrefsbot", "AhrefsBot", "Crawler"},
	{"semrushbot", "SemrushBot", "Crawler"},
	{"mj12bot", "MJ12bot", "Crawler"},
	{"dotbot", "DotBot", "Crawler"},
	{"petalbot", "PetalBot", "Crawler"},
	{"bytespider", "Bytespider", "Crawler"},
	{"gptbot", "GPTBot", "Crawler"},
	{"headlesschrome", "Headless Chrome", "Crawler"},
	{"uptimerobot", "UptimeRobot", "Site Monitor"},
	{"pingdom", "Pingdom Bot", "Site Monitor"},
	{"statuscake", "StatusCake", "Site Monitor"},
	{"curl/", "curl", "HTTP Library"},
	{"wget/", "Wget", "HTTP Library"},
	{"python-requests", "Python Requests", "HTTP Library"},
	{"python-urllib", "Python urllib", "HTTP Library"},
	{"go-http-client", "Go HTTP Client", "HTTP Library"},
	{"okhttp", "OkHttp", "HTTP Library"},
	{"java/", "Java HTTP Client", "HTTP Library"},
	{"libwww-perl", "libwww-perl", "HTTP Library"},
}

// genericBotTokens catch unlisted automated agents. Checked last.
var genericBotTokens = []string{"bot", "crawler", "spider", "scraper"}

// Classifier parses User-Agent strings. It is stateless, deterministic and
// side-effect-free for a given input, which makes results cacheable.
type Classifier struct{}

// NewClassifier creates a classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify parses the User-Agent string into structured attributes.
//
// When skipBotDetection is true it returns immediately with the fixed
// Unknown placeholders and no parsing. This is the authenticated-subject
// fast path: detection accuracy is traded for cost savings, and IsBot is
// short-circuited to false.
func (c *Classifier) Classify(userAgent string, skipBotDetection bool) Details {
	if skipBotDetection {
		return Unknown("", userAgent)
	}

	d := Details{UserAgent: userAgent}
	if userAgent == "" {
		return d
	}

	ua := strings.ToLower(userAgent)

	if name, category, ok := matchBot(ua); ok {
		d.IsBot = true
		d.BotName = name
		d.BotCategory = category
		return d
	}

	d.DeviceName = deviceName(ua)
	d.Brand, d.Model = brandAndModel(ua, userAgent)
	d.OS = operatingSystem(ua)
	d.Client = client(ua)
	return d
}

// matchBot checks the signature table, then the generic fallback tokens.
func matchBot(ua string) (name, category string, ok bool) {
	for _, sig := range botSignatures {
		if strings.Contains(ua, sig.token) {
			return sig.name, sig.category, true
		}
	}
	for _, token := range genericBotTokens {
		if strings.Contains(ua, token) {
			return "Generic Bot", "Crawler", true
		}
	}
	return "", "", false
}

// deviceName classifies the form factor.
func deviceName(ua string) string {
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "tablet"
	case strings.Contains(ua, "smart-tv") || strings.Contains(ua, "smarttv") ||
		strings.Contains(ua, "appletv") || strings.Contains(ua, "googletv"):
		return "tv"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "mobile"):
		return "smartphone"
	case strings.Contains(ua, "android"):
		// Android without the Mobile token is a tablet per UA convention
		return "tablet"
	case strings.Contains(ua, "windows") || strings.Contains(ua, "macintosh") ||
		strings.Contains(ua, "x11") || strings.Contains(ua, "linux"):
		return "desktop"
	default:
		return ""
	}
}

// brandAndModel extracts the hardware vendor and model where the UA names
// them. The original-cased string is used for model extraction so reported
// models keep their casing.
func brandAndModel(ua, original string) (brand, model string) {
	switch {
	case strings.Contains(ua, "iphone"):
		return "Apple", "iPhone"
	case strings.Contains(ua, "ipad"):
		return "Apple", "iPad"
	case strings.Contains(ua, "macintosh"):
		return "Apple", ""
	case strings.Contains(ua, "sm-"):
		return "Samsung", tokenAfter(original, "sm-")
	case strings.Contains(ua, "pixel"):
		return "Google", tokenAfter(original, "pixel")
	case strings.Contains(ua, "huawei"):
		return "Huawei", ""
	case strings.Contains(ua, "xiaomi") || strings.Contains(ua, "redmi"):
		return "Xiaomi", ""
	case strings.Contains(ua, "oneplus"):
		return "OnePlus", ""
	default:
		return "", ""
	}
}

// tokenAfter returns the device token starting at marker, cut at the first
// separator. E.g. "SM-G991B Build/..." yields "SM-G991B". The marker is
// matched against the original-cased string so the reported model keeps
// its casing; indexes from the lowercased copy cannot be reused here
// because ToLower changes byte length for some runes.
func tokenAfter(original, marker string) string {
	idx := indexASCIIFold(original, marker)
	if idx < 0 {
		return ""
	}
	rest := original[idx:]
	end := strings.IndexAny(rest, " ;)/")
	if end < 0 {
		end = len(rest)
	}
	return strings.TrimSpace(rest[:end])
}

// indexASCIIFold finds substr in s ignoring ASCII case. substr must be
// ASCII; the returned byte index is always valid for slicing s.
func indexASCIIFold(s, substr string) int {
	n := len(substr)
	if n == 0 {
		return 0
	}
	for i := 0; i+n <= len(s); i++ {
		if equalASCIIFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

// equalASCIIFold compares equal-length strings ignoring ASCII case.
func equalASCIIFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// operatingSystem identifies the OS family.
func operatingSystem(ua string) string {
	switch {
	case strings.Contains(ua, "windows nt") || strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		return "iOS"
	case strings.Contains(ua, "mac os x") || strings.Contains(ua, "macintosh"):
		return "macOS"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "cros"):
		return "Chrome OS"
	case strings.Contains(ua, "linux") || strings.Contains(ua, "x11"):
		return "GNU/Linux"
	default:
		return ""
	}
}

// client identifies the browser. Order matters: Chromium-based browsers
// embed "chrome/" and Safari's token appears in nearly everything.
func client(ua string) string {
	switch {
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge/"):
		return "Microsoft Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "samsungbrowser"):
		return "Samsung Internet"
	case strings.Contains(ua, "firefox/"):
		return "Firefox"
	case strings.Contains(ua, "chrome/") || strings.Contains(ua, "crios/"):
		return "Chrome"
	case strings.Contains(ua, "safari/"):
		return "Safari"
	default:
		return ""
	}
}

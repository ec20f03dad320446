// Vigia - Activity Audit Logging and Device Classification
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vigia-labs/vigia

package device

import (
	"strings"
	"testing"
)

const (
	uaChromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaSafariIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaGooglebot     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestClassifySkipBotDetection(t *testing.T) {
	c := NewClassifier()

	// Any user-agent, including an obvious bot, yields the fixed
	// placeholders when detection is skipped.
	for _, ua := range []string{uaGooglebot, uaChromeWindows, "curl/8.4.0", ""} {
		d := c.Classify(ua, true)
		if d.IsBot {
			t.Errorf("skip mode must never report a bot, ua=%q", ua)
		}
		if d.BotName != "" || d.BotCategory != "" {
			t.Errorf("skip mode must leave bot fields empty, got %+v", d)
		}
		if d.DeviceName != "Unknown" {
			t.Errorf("skip mode device_name = %q, want Unknown", d.DeviceName)
		}
		if d.Brand != "" || d.Model != "" || d.OS != "" || d.Client != "" {
			t.Errorf("skip mode must leave device fields empty, got %+v", d)
		}
	}
}

func TestClassifyBots(t *testing.T) {
	tests := []struct {
		ua       string
		name     string
		category string
	}{
		{uaGooglebot, "Googlebot", "Search bot"},
		{"Mozilla/5.0 (compatible; bingbot/2.0; +http://www.bing.com/bingbot.htm)", "BingBot", "Search bot"},
		{"Mozilla/5.0 (compatible; YandexBot/3.0; +http://yandex.com/bots)", "YandexBot", "Search bot"},
		{"facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)", "Facebook External Hit", "Social Media Agent"},
		{"Twitterbot/1.0", "Twitterbot", "Social Media Agent"},
		{"Mozilla/5.0 (compatible; AhrefsBot/7.0; +http://ahrefs.com/robot/)", "AhrefsBot", "Crawler"},
		{"curl/8.4.0", "curl", "HTTP Library"},
		{"Wget/1.21.3", "Wget", "HTTP Library"},
		{"python-requests/2.31.0", "Python Requests", "HTTP Library"},
		{"Go-http-client/2.0", "Go HTTP Client", "HTTP Library"},
		{"SomeNewCrawler/0.1", "Generic Bot", "Crawler"},
		{"unknown-spider 1.0", "Generic Bot", "Crawler"},
	}

	c := NewClassifier()
	for _, tt := range tests {
		d := c.Classify(tt.ua, false)
		if !d.IsBot {
			t.Errorf("Classify(%q): expected bot", tt.ua)
			continue
		}
		if d.BotName != tt.name {
			t.Errorf("Classify(%q): bot name = %q, want %q", tt.ua, d.BotName, tt.name)
		}
		if d.BotCategory != tt.category {
			t.Errorf("Classify(%q): bot category = %q, want %q", tt.ua, d.BotCategory, tt.category)
		}
	}
}

func TestClassifyBrowsers(t *testing.T) {
	tests := []struct {
		ua     string
		os     string
		client string
		device string
	}{
		{uaChromeWindows, "Windows", "Chrome", "desktop"},
		{uaSafariIPhone, "iOS", "Safari", "smartphone"},
		{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			"macOS", "Safari", "desktop",
		},
		{
			"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
			"GNU/Linux", "Firefox", "desktop",
		},
		{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			"Windows", "Microsoft Edge", "desktop",
		},
		{
			"Mozilla/5.0 (Linux; Android 14; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			"Android", "Chrome", "smartphone",
		},
		{
			"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			"iOS", "Safari", "tablet",
		},
	}

	c := NewClassifier()
	for _, tt := range tests {
		d := c.Classify(tt.ua, false)
		if d.IsBot {
			t.Errorf("Classify(%q): unexpected bot classification", tt.ua)
			continue
		}
		if d.OS != tt.os {
			t.Errorf("Classify(%q): os = %q, want %q", tt.ua, d.OS, tt.os)
		}
		if d.Client != tt.client {
			t.Errorf("Classify(%q): client = %q, want %q", tt.ua, d.Client, tt.client)
		}
		if d.DeviceName != tt.device {
			t.Errorf("Classify(%q): device = %q, want %q", tt.ua, d.DeviceName, tt.device)
		}
	}
}

func TestClassifyBrandAndModel(t *testing.T) {
	c := NewClassifier()

	d := c.Classify(uaSafariIPhone, false)
	if d.Brand != "Apple" || d.Model != "iPhone" {
		t.Errorf("expected Apple iPhone, got brand=%q model=%q", d.Brand, d.Model)
	}

	d = c.Classify("Mozilla/5.0 (Linux; Android 14; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36", false)
	if d.Brand != "Samsung" {
		t.Errorf("expected Samsung, got %q", d.Brand)
	}
	if d.Model != "SM-G991B" {
		t.Errorf("expected model SM-G991B, got %q", d.Model)
	}
}

func TestClassifyMultiByteUserAgent(t *testing.T) {
	c := NewClassifier()

	// Lowercasing changes byte length for these runes, so model
	// extraction must not reuse byte indexes from the lowercased copy.
	tests := []struct {
		name string
		ua   string
	}{
		// U+023A grows from 2 to 3 bytes when lowercased
		{"expanding runes", strings.Repeat("Ⱥ", 10) + "SM-G9"},
		// U+0130 lowercases to a 3-byte sequence
		{"turkish dotted capital i", strings.Repeat("İ", 10) + "SM-G9"},
		{"multi-byte inside parens", "Mozilla/5.0 (Linux; Android 14; Übermodus SM-G991B) Chrome/120.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Classify(tt.ua, false)
			if d.Brand != "Samsung" {
				t.Errorf("brand = %q, want Samsung", d.Brand)
			}
			if !strings.HasPrefix(d.Model, "SM-G9") {
				t.Errorf("model = %q, want token starting at SM-G9", d.Model)
			}
			if strings.ContainsRune(d.Model, 'Ⱥ') || strings.ContainsRune(d.Model, 'İ') {
				t.Errorf("model %q contains bytes preceding the marker", d.Model)
			}
		})
	}
}

func TestClassifyUnparseable(t *testing.T) {
	c := NewClassifier()

	for _, ua := range []string{"", "gibberish", "      "} {
		d := c.Classify(ua, false)
		if d.IsBot {
			t.Errorf("Classify(%q): expected non-bot", ua)
		}
		if d.OS != "" || d.Client != "" || d.Brand != "" || d.Model != "" {
			t.Errorf("Classify(%q): expected absent fields, got %+v", ua, d)
		}
		if d.UserAgent != ua {
			t.Errorf("Classify(%q): user agent not echoed back", ua)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier()

	first := c.Classify(uaChromeWindows, false)
	second := c.Classify(uaChromeWindows, false)
	if first != second {
		t.Errorf("classification not deterministic: %+v vs %+v", first, second)
	}
}

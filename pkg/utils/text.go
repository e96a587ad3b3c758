// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"net/url"
	"strings"
)

// TitleContentSeparator joins an item's title and content before tokenization.
// It is the pair separator of the sentencepiece models the engine was tuned with.
const TitleContentSeparator = "</s></s>"

// DefaultTitleOnlyHosts lists host fragments whose pages are embedded by title alone.
// Their page text is mostly player chrome and comments.
var DefaultTitleOnlyHosts = []string{"youtube"}

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Preprocess normalizes text for embedding (trim, collapse whitespace). Bytes that
// are not valid UTF-8 are kept so the tokenizer can reject them.
func Preprocess(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ComposeItemText builds the text embedded for an item with a title and content.
// An item with neither yields "", which the engine stores as a zero vector.
func ComposeItemText(title, content string) string {
	title = Preprocess(title)
	content = Preprocess(content)
	if title == "" && content == "" {
		return ""
	}
	return strings.TrimSpace(title + TitleContentSeparator + content)
}

// TitleOnly reports whether the host of rawURL contains one of hosts.
func TitleOnly(rawURL string, hosts []string) bool {
	if rawURL == "" || len(hosts) == 0 {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" && strings.Contains(host, h) {
			return true
		}
	}
	return false
}

// ItemText is ComposeItemText for an item that may come from a URL. Items on a
// title-only host drop their content.
func ItemText(title, content, rawURL string, titleOnlyHosts []string) string {
	if TitleOnly(rawURL, titleOnlyHosts) {
		content = ""
	}
	return ComposeItemText(title, content)
}

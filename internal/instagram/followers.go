package instagram

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
)

// reservedPaths are single-segment paths that look like profile hrefs but
// are site features.
var reservedPaths = map[string]bool{
	"explore": true, "accounts": true, "direct": true, "p": true,
	"reel": true, "reels": true, "stories": true, "about": true,
	"legal": true, "developer": true, "directory": true,
}

// rowButtonTexts are texts of row controls that must never be mistaken for
// a display name.
var rowButtonTexts = map[string]bool{
	"Follow": true, "Following": true, "Remove": true, "Requested": true,
	"Follow Back": true,
}

// ParseFollowers extracts follower records from the followers dialog
// markup, in document order. Each row links the profile by a
// single-segment href; the display name is the row's free text when the
// site published one. Rows are deduplicated by handle because the dialog's
// avatar and username both link the same profile.
func ParseFollowers(r io.Reader) ([]schemas.FollowerRecord, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse followers markup: %w", err)
	}

	seen := make(map[string]bool)
	var records []schemas.FollowerRecord

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if handle, ok := handleFromHref(attrValue(n, "href")); ok && !seen[handle] {
				seen[handle] = true
				records = append(records, schemas.FollowerRecord{
					Handle:      handle,
					DisplayName: displayNameNear(n, handle),
					ProfileURL:  ProfileURL(handle),
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return records, nil
}

// handleFromHref accepts hrefs of the form "/handle/" or "/handle" and
// rejects everything with more path segments or a reserved first segment.
func handleFromHref(href string) (string, bool) {
	href = strings.TrimPrefix(href, BaseURL)
	if !strings.HasPrefix(href, "/") {
		return "", false
	}
	trimmed := strings.Trim(href, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") || strings.ContainsAny(trimmed, "?#") {
		return "", false
	}
	if reservedPaths[trimmed] {
		return "", false
	}
	for _, r := range trimmed {
		if !isHandleRune(r) {
			return "", false
		}
	}
	return trimmed, true
}

func isHandleRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_':
		return true
	}
	return false
}

// displayNameNear looks for the row's free-text name: a span in the
// anchor's enclosing row whose text is neither the handle nor a row
// control. The row is the widest ancestor that still links only this
// profile, so names never bleed across rows.
func displayNameNear(anchor *html.Node, handle string) string {
	row := anchor
	for row.Parent != nil && !linksOtherProfile(row.Parent, handle) {
		row = row.Parent
	}

	var name string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if name != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "span" {
			text := strings.TrimSpace(nodeText(n))
			if text != "" && text != handle && !rowButtonTexts[text] {
				name = text
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(row)
	return name
}

// linksOtherProfile reports whether the subtree under n contains a profile
// anchor for a different handle.
func linksOtherProfile(n *html.Node, handle string) bool {
	if n.Type == html.ElementNode && n.Data == "a" {
		if other, ok := handleFromHref(attrValue(n, "href")); ok && other != handle {
			return true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if linksOtherProfile(c, handle) {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

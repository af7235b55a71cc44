// Package instagram is the site model: canonical URLs, the selector
// intents the executor targets, and the page probes that classify what the
// browser is currently looking at. Everything that encodes knowledge of the
// site's markup lives here so the action layer stays mechanical.
package instagram

import (
	"fmt"
	"net/url"
	"strings"
)

// BaseURL is the site origin all paths are resolved against.
const BaseURL = "https://www.instagram.com"

// Canonical page URLs.
const (
	HomeURL        = BaseURL + "/"
	LoginURL       = BaseURL + "/accounts/login/"
	DirectInboxURL = BaseURL + "/direct/inbox/"
)

// challengePathPrefixes are the URL paths the site redirects to when it
// wants a human to prove themselves. Landing on any of these is terminal
// for the automated session.
var challengePathPrefixes = []string{
	"/challenge/",
	"/accounts/suspended/",
	"/two_factor/",
	"/accounts/login/two_factor",
}

// ProfileURL returns the canonical profile page for a handle.
func ProfileURL(handle string) string {
	return fmt.Sprintf("%s/%s/", BaseURL, NormalizeHandle(handle))
}

// FollowersURL returns the profile page anchored on the followers dialog.
func FollowersURL(handle string) string {
	return fmt.Sprintf("%s/%s/followers/", BaseURL, NormalizeHandle(handle))
}

// NormalizeHandle strips the decorative @ and surrounding whitespace so
// user-supplied handles and parsed hrefs compare equal.
func NormalizeHandle(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), "@")
}

// IsChallengeURL reports whether raw points at a verification or
// suspension page.
func IsChallengeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	for _, prefix := range challengePathPrefixes {
		if strings.HasPrefix(u.Path, prefix) {
			return true
		}
	}
	return false
}

// IsLoginURL reports whether raw is the login page. After a cookie restore
// the site bounces unauthenticated sessions back here.
func IsLoginURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, "/accounts/login")
}

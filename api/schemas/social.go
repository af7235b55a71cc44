package schemas

import (
	"fmt"
	"strings"
	"time"
)

// -- Account Schemas --

// Credential holds the username and password pair for one account. The
// password must never appear in logs or in any persisted record; the cookie
// jar is the only session state that outlives the process.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"-"`
}

// Validate checks that both halves of the credential are present.
func (c Credential) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("credential is missing a username")
	}
	if c.Password == "" {
		return fmt.Errorf("credential for %q is missing a password", c.Username)
	}
	return nil
}

// -- Cookie Schemas --

// Cookie is one browser cookie in the flattened form we persist. Expires is
// seconds since the Unix epoch as reported by the browser; -1 marks a
// session cookie with no expiry.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"same_site,omitempty"`
	Priority string  `json:"priority,omitempty"`
}

// Key identifies a cookie within a jar. Two cookies with the same key are
// the same cookie; a later Set replaces the earlier one.
func (c Cookie) Key() string {
	return c.Name + "|" + c.Domain + "|" + c.Path
}

// Expired reports whether the cookie carries an expiry in the past.
// Session cookies (Expires < 0) never report expired here.
func (c Cookie) Expired(now time.Time) bool {
	if c.Expires < 0 {
		return false
	}
	return float64(now.Unix()) > c.Expires
}

// CookieJar is the full cookie set needed to resume one account's session
// without re-authenticating. Account records which identity the jar belongs
// to; a jar must never be applied to a session owned by a different account.
type CookieJar struct {
	Account string    `json:"account"`
	SavedAt time.Time `json:"saved_at"`
	Cookies []Cookie  `json:"cookies"`
}

// Empty reports whether the jar holds no cookies at all.
func (j *CookieJar) Empty() bool {
	return j == nil || len(j.Cookies) == 0
}

// -- Action Request Schemas --

// SendMessageRequest asks for a direct message to one recipient. MediaPath,
// when set, is a local file attached before the text is sent.
type SendMessageRequest struct {
	TargetHandle string `json:"target_handle"`
	Text         string `json:"text"`
	MediaPath    string `json:"media_path,omitempty"`
}

// LikePostRequest asks for a like on the post at PostURL.
type LikePostRequest struct {
	PostURL string `json:"post_url"`
}

// CommentOnPostRequest posts CommentText under the post at PostURL. The
// text is supplied by the caller; the executor never invents a comment.
type CommentOnPostRequest struct {
	PostURL     string `json:"post_url"`
	CommentText string `json:"comment_text"`
}

// ScrapeFollowersRequest enumerates up to MaxCount followers of
// TargetHandle.
type ScrapeFollowersRequest struct {
	TargetHandle string `json:"target_handle"`
	MaxCount     int    `json:"max_count"`
}

// FollowerRecord is one entry scraped from a followers list, in the order
// the site presented it.
type FollowerRecord struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name,omitempty"`
	ProfileURL  string `json:"profile_url"`
}

// -- Comment Generation Schemas --

// CommentTone selects the register of a generated comment.
type CommentTone string

const (
	ToneCasual       CommentTone = "casual"
	ToneFunny        CommentTone = "funny"
	ToneSerious      CommentTone = "serious"
	ToneSarcastic    CommentTone = "sarcastic"
	ToneEnthusiastic CommentTone = "enthusiastic"
)

// Valid reports whether the tone is one of the supported registers.
func (t CommentTone) Valid() bool {
	switch t {
	case ToneCasual, ToneFunny, ToneSerious, ToneSarcastic, ToneEnthusiastic:
		return true
	}
	return false
}

// PostContext carries what is known about a post when generating a comment
// for it. ImageDescription is the site's accessibility alt text when one
// was published; it is frequently absent.
type PostContext struct {
	Caption          string `json:"caption"`
	ImageDescription string `json:"image_description,omitempty"`
}

package instagram

import (
	"context"
	"fmt"
)

// Page is the slice of the browser surface the probes need. The live
// session satisfies it; tests script it.
type Page interface {
	Location(ctx context.Context) (string, error)
	Exists(ctx context.Context, selector string) (bool, error)
	Evaluate(ctx context.Context, expr string, out any) error
}

// challengeMarkers are body-text fragments shown on verification
// interstitials that do not change the URL.
var challengeMarkers = []string{
	"Help us confirm it's you",
	"Confirm it's you",
	"We detected an unusual login attempt",
	"Enter the code we sent",
	"Your account has been suspended",
}

// blockMarkers are body-text fragments of the automated-activity
// suppression dialogs.
var blockMarkers = []string{
	"Action Blocked",
	"Try Again Later",
	"We restrict certain activity",
	"We limit how often you can do certain things",
}

// invalidCredentialMarkers appear on the login page after an explicit
// rejection of the username/password pair.
var invalidCredentialMarkers = []string{
	"your password was incorrect",
	"The username you entered doesn't belong to an account",
	"couldn't find an account with that username",
}

// missingPageMarkers appear for deleted, renamed, or private-and-blocked
// targets.
var missingPageMarkers = []string{
	"Sorry, this page isn't available.",
	"Page Not Found",
}

// FirstExisting walks the candidate list and returns the first selector
// currently present on the page.
func FirstExisting(ctx context.Context, p Page, candidates []string) (string, bool, error) {
	for _, sel := range candidates {
		found, err := p.Exists(ctx, sel)
		if err != nil {
			return "", false, err
		}
		if found {
			return sel, true, nil
		}
	}
	return "", false, nil
}

// LoggedIn reports whether the page shows an authenticated shell. Being on
// the login page is a hard no regardless of markers.
func LoggedIn(ctx context.Context, p Page) (bool, error) {
	loc, err := p.Location(ctx)
	if err != nil {
		return false, err
	}
	if IsLoginURL(loc) || IsChallengeURL(loc) {
		return false, nil
	}
	_, found, err := FirstExisting(ctx, p, LoggedInMarkers)
	return found, err
}

// ChallengePresent reports whether the session has been routed into a
// human-verification flow, by URL or by interstitial text.
func ChallengePresent(ctx context.Context, p Page) (bool, error) {
	loc, err := p.Location(ctx)
	if err != nil {
		return false, err
	}
	if IsChallengeURL(loc) {
		return true, nil
	}
	return bodyContainsAny(ctx, p, challengeMarkers)
}

// Blocked reports whether the page shows an automated-activity suppression
// dialog.
func Blocked(ctx context.Context, p Page) (bool, error) {
	return bodyContainsAny(ctx, p, blockMarkers)
}

// CredentialsRejected reports whether the login page is showing an explicit
// bad-credentials message.
func CredentialsRejected(ctx context.Context, p Page) (bool, error) {
	return bodyContainsAny(ctx, p, invalidCredentialMarkers)
}

// Liked reports the like state of the currently open post.
// (liked=false, present=false) means neither button was found, which
// usually means the post is gone.
func Liked(ctx context.Context, p Page) (liked, present bool, err error) {
	if _, found, err := FirstExisting(ctx, p, PostUnlikeButton); err != nil {
		return false, false, err
	} else if found {
		return true, true, nil
	}
	if _, found, err := FirstExisting(ctx, p, PostLikeButton); err != nil {
		return false, false, err
	} else if found {
		return false, true, nil
	}
	return false, false, nil
}

// PageMissing reports whether the current page is the not-available stub
// shown for deleted or renamed targets.
func PageMissing(ctx context.Context, p Page) (bool, error) {
	return bodyContainsAny(ctx, p, missingPageMarkers)
}

// TextVisible reports whether the page body currently shows text. Used to
// confirm a sent message or posted comment actually landed.
func TextVisible(ctx context.Context, p Page, text string) (bool, error) {
	return bodyContainsAny(ctx, p, []string{text})
}

// CommentAttributed reports whether a comment with the given text appears
// attributed to handle.
func CommentAttributed(ctx context.Context, p Page, handle, text string) (bool, error) {
	expr := fmt.Sprintf(`(() => {
		const text = %q;
		const href = "/" + %q + "/";
		for (const el of document.querySelectorAll('ul li, div[role="presentation"] li')) {
			if (el.innerText.includes(text) && el.querySelector('a[href="' + href + '"]')) return true;
		}
		return false;
	})()`, text, NormalizeHandle(handle))

	var hit bool
	if err := p.Evaluate(ctx, expr, &hit); err != nil {
		return false, err
	}
	return hit, nil
}

// ClickButtonWithText clicks the first element under containerSel whose
// trimmed text equals one of texts. Returns whether anything was clicked.
// Done in-page because these buttons carry no stable attributes at all.
func ClickButtonWithText(ctx context.Context, p Page, containerSel string, texts []string) (bool, error) {
	expr := fmt.Sprintf(`(() => {
		const wanted = %s;
		for (const el of document.querySelectorAll(%q)) {
			if (wanted.includes(el.innerText.trim())) { el.click(); return true; }
		}
		return false;
	})()`, jsStringArray(texts), containerSel)

	var clicked bool
	if err := p.Evaluate(ctx, expr, &clicked); err != nil {
		return false, err
	}
	return clicked, nil
}

func bodyContainsAny(ctx context.Context, p Page, markers []string) (bool, error) {
	expr := fmt.Sprintf(`(() => {
		const text = document.body ? document.body.innerText : "";
		return %s.some(m => text.includes(m));
	})()`, jsStringArray(markers))

	var hit bool
	if err := p.Evaluate(ctx, expr, &hit); err != nil {
		return false, err
	}
	return hit, nil
}

func jsStringArray(items []string) string {
	out := "["
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", s)
	}
	return out + "]"
}

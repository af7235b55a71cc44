package instagram

// Selector candidate lists, ordered by preference. The site's markup churns
// constantly; each intent carries every selector observed to work so a probe
// can fall through the list instead of failing on the first redesign.

// Login form.
var (
	LoginUsernameInput = []string{
		`input[name="username"]`,
		`input[aria-label="Phone number, username, or email"]`,
	}
	LoginPasswordInput = []string{
		`input[name="password"]`,
		`input[aria-label="Password"]`,
	}
	LoginSubmitButton = []string{
		`button[type="submit"]`,
	}
)

// Post-login interstitials. Both the "Save Your Login Info" and the
// notifications prompt use a plain "Not Now" dismissal.
var DismissPromptButtons = []string{
	`div[role="dialog"] button`,
	`button._a9--._ap36._a9_1`,
}

// DismissPromptTexts are the labels a dismissal button may carry.
var DismissPromptTexts = []string{"Not Now", "Not now", "Cancel"}

// Markers present only for an authenticated session.
var LoggedInMarkers = []string{
	`svg[aria-label="Home"]`,
	`a[href="/direct/inbox/"]`,
	`svg[aria-label="New post"]`,
	`span[aria-label="Profile"]`,
}

// Direct messaging.
var (
	ProfileMessageButton = []string{
		`div[role="button"]`,
	}
	MessageTextarea = []string{
		`textarea[placeholder="Message..."]`,
		`div[role="textbox"][contenteditable="true"]`,
		`div[aria-label="Message"]`,
	}
	MessageSendButton = []string{
		`div[role="button"]`,
	}
	MessageFileInput = []string{
		`input[type="file"]`,
	}
	MessageAttachmentPreview = []string{
		`div[role="dialog"] img`,
		`img[alt="Preview"]`,
	}
)

// Post page.
var (
	PostLikeButton = []string{
		`section svg[aria-label="Like"]`,
		`span svg[aria-label="Like"]`,
	}
	PostUnlikeButton = []string{
		`section svg[aria-label="Unlike"]`,
		`span svg[aria-label="Unlike"]`,
	}
	PostCommentTextarea = []string{
		`textarea[aria-label="Add a comment…"]`,
		`form textarea`,
	}
	PostCommentSubmit = []string{
		`div[role="button"]`,
	}
	PostImage = []string{
		`article img[alt]`,
		`div[role="presentation"] img[alt]`,
	}
	PostCaption = []string{
		`article h1`,
		`div[role="presentation"] h1`,
	}
)

// Profile grid.
var ProfilePostLinks = []string{
	`a[href*="/p/"]`,
	`a[href*="/reel/"]`,
}

// Followers dialog.
var FollowersDialog = []string{
	`div[role="dialog"]`,
}

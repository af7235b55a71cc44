package browser

import (
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
)

// jarFromCDP flattens the CDP cookie list into the persisted jar form.
func jarFromCDP(cookies []*network.Cookie) *schemas.CookieJar {
	jar := &schemas.CookieJar{
		SavedAt: time.Now().UTC(),
		Cookies: make([]schemas.Cookie, 0, len(cookies)),
	}
	for _, c := range cookies {
		if c == nil {
			continue
		}
		jar.Cookies = append(jar.Cookies, schemas.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
			Priority: string(c.Priority),
		})
	}
	return jar
}

// cookieParamsFromJar converts a saved jar back into the CDP parameter
// form used to restore it onto a fresh browser context.
func cookieParamsFromJar(jar *schemas.CookieJar) []*network.CookieParam {
	if jar == nil {
		return nil
	}
	params := make([]*network.CookieParam, 0, len(jar.Cookies))
	for _, c := range jar.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if c.SameSite != "" {
			p.SameSite = network.CookieSameSite(c.SameSite)
		}
		if c.Priority != "" {
			p.Priority = network.CookiePriority(c.Priority)
		}
		// Expires < 0 marks a session cookie; CDP expresses that by
		// omitting the expiry entirely.
		if c.Expires >= 0 {
			expiry := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &expiry
		}
		params = append(params, p)
	}
	return params
}

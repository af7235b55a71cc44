package browser

import (
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
)

func TestJarFromCDP(t *testing.T) {
	expiry := float64(time.Now().Add(24 * time.Hour).Unix())
	cdpCookies := []*network.Cookie{
		{
			Name:     "sessionid",
			Value:    "abc123",
			Domain:   ".instagram.com",
			Path:     "/",
			Expires:  expiry,
			HTTPOnly: true,
			Secure:   true,
			SameSite: network.CookieSameSiteLax,
			Priority: network.CookiePriorityHigh,
		},
		nil, // defensive entries from CDP must be skipped
		{
			Name:    "mid",
			Value:   "xyz",
			Domain:  ".instagram.com",
			Path:    "/",
			Expires: -1,
		},
	}

	jar := jarFromCDP(cdpCookies)
	require.NotNil(t, jar)
	require.Len(t, jar.Cookies, 2)
	assert.WithinDuration(t, time.Now().UTC(), jar.SavedAt, 5*time.Second)

	first := jar.Cookies[0]
	assert.Equal(t, "sessionid", first.Name)
	assert.Equal(t, "abc123", first.Value)
	assert.Equal(t, ".instagram.com", first.Domain)
	assert.Equal(t, expiry, first.Expires)
	assert.True(t, first.HTTPOnly)
	assert.True(t, first.Secure)
	assert.Equal(t, "Lax", first.SameSite)
	assert.Equal(t, "High", first.Priority)

	assert.Equal(t, float64(-1), jar.Cookies[1].Expires)
}

func TestCookieParamsFromJar(t *testing.T) {
	expiry := float64(1900000000)
	jar := &schemas.CookieJar{
		Account: "testuser",
		Cookies: []schemas.Cookie{
			{
				Name:     "csrftoken",
				Value:    "tok",
				Domain:   ".instagram.com",
				Path:     "/",
				Expires:  expiry,
				Secure:   true,
				HTTPOnly: true,
				SameSite: "Strict",
				Priority: "Medium",
			},
			{
				Name:    "session-only",
				Value:   "v",
				Domain:  ".instagram.com",
				Path:    "/",
				Expires: -1,
			},
		},
	}

	params := cookieParamsFromJar(jar)
	require.Len(t, params, 2)

	p := params[0]
	assert.Equal(t, "csrftoken", p.Name)
	assert.Equal(t, network.CookieSameSiteStrict, p.SameSite)
	assert.Equal(t, network.CookiePriorityMedium, p.Priority)
	require.NotNil(t, p.Expires)
	assert.Equal(t, int64(expiry), time.Time(*p.Expires).Unix())

	// Session cookies carry no expiry at all.
	assert.Nil(t, params[1].Expires)
	assert.Empty(t, params[1].SameSite)
}

func TestCookieParamsFromJarNil(t *testing.T) {
	assert.Nil(t, cookieParamsFromJar(nil))
	assert.Empty(t, cookieParamsFromJar(&schemas.CookieJar{}))
}

func TestCookieRoundTrip(t *testing.T) {
	original := []*network.Cookie{
		{
			Name:     "sessionid",
			Value:    "round",
			Domain:   ".instagram.com",
			Path:     "/",
			Expires:  float64(1900000000),
			Secure:   true,
			HTTPOnly: true,
			SameSite: network.CookieSameSiteNone,
		},
	}

	params := cookieParamsFromJar(jarFromCDP(original))
	require.Len(t, params, 1)
	assert.Equal(t, original[0].Name, params[0].Name)
	assert.Equal(t, original[0].Value, params[0].Value)
	assert.Equal(t, original[0].Domain, params[0].Domain)
	assert.Equal(t, original[0].SameSite, params[0].SameSite)
}

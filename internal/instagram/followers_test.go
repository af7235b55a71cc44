package instagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/sockpuppet-cli/api/schemas"
)

const followersDialogHTML = `
<div role="dialog">
  <div>
    <div class="row">
      <a href="/first_user/"><img alt="first_user's profile picture"></a>
      <div>
        <a href="/first_user/"><span>first_user</span></a>
        <span>First User</span>
      </div>
      <button>Follow</button>
    </div>
    <div class="row">
      <a href="/second.user/"><img alt=""></a>
      <div>
        <a href="/second.user/"><span>second.user</span></a>
        <span>Second User</span>
      </div>
      <button>Following</button>
    </div>
    <div class="row">
      <a href="/no_name_99/"><span>no_name_99</span></a>
      <button>Remove</button>
    </div>
    <a href="/explore/">Explore</a>
    <a href="/p/Cxyz123/">a post link</a>
    <a href="https://help.instagram.com/">external</a>
  </div>
</div>`

func TestParseFollowers(t *testing.T) {
	records, err := ParseFollowers(strings.NewReader(followersDialogHTML))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, schemas.FollowerRecord{
		Handle:      "first_user",
		DisplayName: "First User",
		ProfileURL:  "https://www.instagram.com/first_user/",
	}, records[0])

	assert.Equal(t, "second.user", records[1].Handle)
	assert.Equal(t, "Second User", records[1].DisplayName)

	// A row without a published display name still yields the handle.
	assert.Equal(t, "no_name_99", records[2].Handle)
	assert.Empty(t, records[2].DisplayName)
}

func TestParseFollowersOrderAndDedup(t *testing.T) {
	markup := `<div>
	  <a href="/zeta/"><span>zeta</span></a>
	  <a href="/alpha/"><span>alpha</span></a>
	  <a href="/zeta/"><span>zeta</span></a>
	</div>`

	records, err := ParseFollowers(strings.NewReader(markup))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "zeta", records[0].Handle)
	assert.Equal(t, "alpha", records[1].Handle)
}

func TestParseFollowersEmpty(t *testing.T) {
	records, err := ParseFollowers(strings.NewReader("<div></div>"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHandleFromHref(t *testing.T) {
	tests := []struct {
		href   string
		handle string
		ok     bool
	}{
		{"/plain_user/", "plain_user", true},
		{"/plain_user", "plain_user", true},
		{"https://www.instagram.com/absolute_user/", "absolute_user", true},
		{"/dotted.name_1/", "dotted.name_1", true},
		{"/explore/", "", false},
		{"/p/Cxyz123/", "", false},
		{"/user/followers/", "", false},
		{"/user/?hl=en", "", false},
		{"/", "", false},
		{"mailto:x@y.z", "", false},
		{"/has space/", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			handle, ok := handleFromHref(tt.href)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.handle, handle)
		})
	}
}

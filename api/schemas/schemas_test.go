package schemas

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialValidate(t *testing.T) {
	tests := []struct {
		name    string
		cred    Credential
		wantErr bool
	}{
		{"valid", Credential{Username: "alice", Password: "hunter2"}, false},
		{"missing username", Credential{Password: "hunter2"}, true},
		{"whitespace username", Credential{Username: "   ", Password: "x"}, true},
		{"missing password", Credential{Username: "alice"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cred.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCredentialPasswordNeverMarshalled(t *testing.T) {
	// The json tag must keep the password out of anything serialized.
	cred := Credential{Username: "alice", Password: "hunter2"}
	data, err := json.Marshal(cred)
	require.NoError(t, err)
	assert.Contains(t, string(data), "alice")
	assert.NotContains(t, string(data), "hunter2")
}

func TestCookieKeyAndExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	c := Cookie{Name: "sessionid", Domain: ".example.com", Path: "/"}
	assert.Equal(t, "sessionid|.example.com|/", c.Key())

	t.Run("session cookie never expires", func(t *testing.T) {
		c := Cookie{Expires: -1}
		assert.False(t, c.Expired(now))
	})
	t.Run("past expiry", func(t *testing.T) {
		c := Cookie{Expires: float64(now.Unix() - 60)}
		assert.True(t, c.Expired(now))
	})
	t.Run("future expiry", func(t *testing.T) {
		c := Cookie{Expires: float64(now.Unix() + 60)}
		assert.False(t, c.Expired(now))
	})
}

func TestCookieJarEmpty(t *testing.T) {
	var nilJar *CookieJar
	assert.True(t, nilJar.Empty())
	assert.True(t, (&CookieJar{Account: "alice"}).Empty())
	assert.False(t, (&CookieJar{Cookies: []Cookie{{Name: "a"}}}).Empty())
}

func TestCommentToneValid(t *testing.T) {
	for _, tone := range []CommentTone{ToneCasual, ToneFunny, ToneSerious, ToneSarcastic, ToneEnthusiastic} {
		assert.True(t, tone.Valid(), string(tone))
	}
	assert.False(t, CommentTone("belligerent").Valid())
	assert.False(t, CommentTone("").Valid())
}

func TestErrorCodeExtraction(t *testing.T) {
	sessErr := NewSessionError(CodeChallengeRequired, "checkpoint page", nil)
	wrapped := fmt.Errorf("init failed: %w", sessErr)

	code, ok := SessionCode(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeChallengeRequired, code)

	_, ok = ActionCode(wrapped)
	assert.False(t, ok)

	actErr := NewActionError(CodeBlockedOrRateLimited, DetailRateLimited, errors.New("try again later"))
	assert.True(t, IsBlocked(fmt.Errorf("scrape: %w", actErr)))
	assert.False(t, IsBlocked(wrapped))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "SESSION_NOT_READY", NewSessionError(CodeSessionNotReady, "", nil).Error())
	assert.Equal(t, "INVALID_CREDENTIALS: password rejected",
		NewSessionError(CodeInvalidCredentials, "password rejected", nil).Error())

	cause := errors.New("net closed")
	ae := NewActionError(CodeTransientFailure, "navigation timed out", cause)
	assert.ErrorIs(t, ae, cause)
}

package stealth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
)

func TestEvasionsScriptEmbedded(t *testing.T) {
	assert.NotEmpty(t, evasionsScript)
	assert.Contains(t, evasionsScript, "webdriver")
	assert.Contains(t, evasionsScript, "plugins")
}

func TestFromConfigOverrides(t *testing.T) {
	cfg := config.BrowserConfig{
		UserAgent: "custom-ua",
		Timezone:  "Europe/Berlin",
		Languages: []string{"de-DE", "de"},
	}
	p := FromConfig(cfg)

	assert.Equal(t, "custom-ua", p.UserAgent)
	assert.Equal(t, "Europe/Berlin", p.Timezone)
	// Unset fields fall back to the default persona.
	assert.Equal(t, DefaultPersona.Platform, p.Platform)
	assert.Equal(t, DefaultPersona.Locale, p.Locale)
}

func TestFromConfigEmptyUsesDefaults(t *testing.T) {
	p := FromConfig(config.BrowserConfig{})
	assert.Equal(t, DefaultPersona, p)
}

func TestAcceptLanguage(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
		want      string
	}{
		{"two languages", []string{"en-US", "en"}, "en-US,en;q=0.9"},
		{"single language", []string{"fr-FR"}, "fr-FR"},
		{"none", nil, "en-US,en;q=0.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Persona{Languages: tt.languages}
			assert.Equal(t, tt.want, p.AcceptLanguage())
		})
	}
}

func TestApplyTaskCount(t *testing.T) {
	tasks := Apply(DefaultPersona, zap.NewNop())
	// UA override, script injection, timezone, locale, headers.
	assert.Len(t, tasks, 5)
}

func TestEvasionsScriptIsIIFE(t *testing.T) {
	trimmed := strings.TrimSpace(evasionsScript)
	assert.True(t, strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "(") ,
		"script should be a comment header followed by an IIFE")
	assert.Contains(t, trimmed, "'use strict'")
}

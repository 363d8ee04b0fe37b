package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileDesktopBrowser(t *testing.T) {
	profile := NewUserAgentProfiler().Profile(chromeUA)

	assert.Equal(t, "Chrome 120 on Intel Mac OS X", profile.Name)
	assert.Equal(t, "desktop", profile.Type)
	assert.Equal(t, "Chrome 120", profile.Browser)
	assert.Equal(t, "Intel Mac OS X", profile.OS)
}

func TestProfileMobileBrowser(t *testing.T) {
	const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

	profile := NewUserAgentProfiler().Profile(iphoneUA)
	assert.Equal(t, "mobile", profile.Type)
	assert.Contains(t, profile.Browser, "Safari")
}

func TestProfileEmptyUserAgent(t *testing.T) {
	profile := NewUserAgentProfiler().Profile("")

	assert.Equal(t, "Unknown Device", profile.Name)
	assert.Equal(t, "unknown", profile.Type)
}

package service

import (
	"strings"

	"github.com/mssola/useragent"
)

// UserAgentProfiler derives display metadata from the raw User-Agent.
type UserAgentProfiler struct{}

func NewUserAgentProfiler() UserAgentProfiler {
	return UserAgentProfiler{}
}

func (UserAgentProfiler) Profile(userAgentString string) DeviceProfile {
	if strings.TrimSpace(userAgentString) == "" {
		return DeviceProfile{
			Name:    "Unknown Device",
			Type:    "unknown",
			Browser: "Unknown Browser",
			OS:      "Unknown OS",
		}
	}

	ua := useragent.New(userAgentString)

	browser, version := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if version != "" {
		if major := strings.SplitN(version, ".", 2)[0]; major != "" {
			browser = browser + " " + major
		}
	}

	// OSInfo strips CPU architecture and version tokens that the raw
	// OS() string carries ("Intel Mac OS X 10_15_7").
	os := ua.OSInfo().Name
	if os == "" {
		os = "Unknown OS"
	}

	deviceType := "desktop"
	switch {
	case ua.Bot():
		deviceType = "bot"
	case ua.Mobile():
		deviceType = "mobile"
	}

	return DeviceProfile{
		Name:    browser + " on " + os,
		Type:    deviceType,
		Browser: browser,
		OS:      os,
	}
}

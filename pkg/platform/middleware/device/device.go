// Package device turns raw User-Agent strings into short human-readable labels
// for audit trails ("Chrome on Windows 10").
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns a "<browser> on <os>" label for the given User-Agent.
func ParseUserAgent(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := strings.TrimSpace(ua.OS())
	if platform := strings.TrimSpace(ua.Platform()); ua.Mobile() && platform != "" && !strings.Contains(os, platform) {
		os = strings.TrimSpace(platform + " " + os)
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}

package domain

import "time"

// RequiredCookies is the minimum cookie set without which API calls cannot
// succeed. A bundle missing any of these is unusable.
var RequiredCookies = []string{"SID", "HSID", "SSID", "APISID", "SAPISID"}

// EssentialCookies is the superset of Google cookies worth persisting from a
// browser capture. Everything else in the jar is noise.
var EssentialCookies = map[string]struct{}{
	"SID": {}, "HSID": {}, "SSID": {}, "APISID": {}, "SAPISID": {},
	"__Secure-1PSID": {}, "__Secure-3PSID": {},
	"__Secure-1PAPISID": {}, "__Secure-3PAPISID": {},
	"OSID": {}, "__Secure-OSID": {},
	"__Secure-1PSIDTS": {}, "__Secure-3PSIDTS": {},
	"SIDCC": {}, "__Secure-1PSIDCC": {}, "__Secure-3PSIDCC": {},
}

// Credentials is the auth material captured from a logged-in browser session.
// CSRFToken and SessionID are short-lived and may be absent; a bundle with
// cookies but no token is degraded, not invalid, and triggers a refresh on
// first use.
type Credentials struct {
	Cookies    map[string]string `json:"cookies"`
	CSRFToken  string            `json:"csrf_token"`
	SessionID  string            `json:"session_id"`
	CapturedAt time.Time         `json:"captured_at"`
}

// Usable reports whether the bundle carries every required cookie.
func (c Credentials) Usable() bool {
	return len(c.MissingCookies()) == 0
}

// MissingCookies returns the required cookie names absent from the bundle.
func (c Credentials) MissingCookies() []string {
	var missing []string
	for _, name := range RequiredCookies {
		if _, ok := c.Cookies[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// FilterEssential drops every cookie outside the essential set.
func FilterEssential(cookies map[string]string) map[string]string {
	kept := make(map[string]string, len(cookies))
	for name, value := range cookies {
		if _, ok := EssentialCookies[name]; ok {
			kept[name] = value
		}
	}
	return kept
}

// Age reports how old the capture is, relative to now.
func (c Credentials) Age(now time.Time) time.Duration {
	if c.CapturedAt.IsZero() {
		return 0
	}
	return now.Sub(c.CapturedAt)
}

package protocol

import "regexp"

// The frontend embeds its CSRF token and session id in the landing page's
// inline script as quoted key/value pairs.
var (
	csrfTokenPattern = regexp.MustCompile(`"SNlM0e":"([^"]+)"`)
	sessionIDPattern = regexp.MustCompile(`"FdrFJe":"(\d+)"`)
)

// ExtractCSRFToken scrapes the request token out of a landing page.
func ExtractCSRFToken(html string) (string, bool) {
	m := csrfTokenPattern.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractSessionID scrapes the session affinity id out of a landing page.
func ExtractSessionID(html string) (string, bool) {
	m := sessionIDPattern.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}

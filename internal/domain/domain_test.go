package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsUsableRequiresAllRequiredCookies(t *testing.T) {
	creds := Credentials{Cookies: map[string]string{
		"SID": "a", "HSID": "b", "SSID": "c", "APISID": "d", "SAPISID": "e",
	}}
	assert.True(t, creds.Usable())
	assert.Empty(t, creds.MissingCookies())
}

func TestCredentialsMissingCookiesNamesAbsentOnes(t *testing.T) {
	creds := Credentials{Cookies: map[string]string{"SID": "a", "HSID": "b"}}
	require.False(t, creds.Usable())
	assert.ElementsMatch(t, []string{"SSID", "APISID", "SAPISID"}, creds.MissingCookies())
}

func TestCredentialsUsableWithoutTokenIsDegradedNotInvalid(t *testing.T) {
	creds := Credentials{Cookies: map[string]string{
		"SID": "a", "HSID": "b", "SSID": "c", "APISID": "d", "SAPISID": "e",
	}}
	require.Empty(t, creds.CSRFToken)
	assert.True(t, creds.Usable())
}

func TestFilterEssentialDropsUnknownCookies(t *testing.T) {
	filtered := FilterEssential(map[string]string{
		"SID":              "a",
		"__Secure-1PSID":   "b",
		"NID":              "tracking",
		"CONSENT":          "noise",
		"__Secure-3PSIDCC": "c",
	})
	assert.Equal(t, map[string]string{
		"SID":              "a",
		"__Secure-1PSID":   "b",
		"__Secure-3PSIDCC": "c",
	}, filtered)
}

func TestCredentialsAge(t *testing.T) {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	creds := Credentials{CapturedAt: now.Add(-3 * time.Hour)}
	assert.Equal(t, 3*time.Hour, creds.Age(now))

	assert.Zero(t, Credentials{}.Age(now))
}

func TestSourceTypeNameDefaultsToUnknown(t *testing.T) {
	assert.Equal(t, "youtube", SourceTypeName(9))
	assert.Equal(t, "pdf", SourceTypeName(3))
	assert.Equal(t, "unknown", SourceTypeName(42))
	assert.Equal(t, "unknown", SourceTypeName(0))
}

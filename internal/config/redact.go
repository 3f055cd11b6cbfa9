package config

import (
	"net/url"
	"strings"
)

// RedactURL replaces the password in a connection URL with "***" so it can
// be logged. Strings that do not parse as URLs, SQLite paths among them, and
// URLs without a password are returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	// Splice into the raw userinfo; url.URL.String would escape the mask.
	schemeEnd := strings.Index(raw, "://")
	if schemeEnd < 0 {
		return raw
	}

	start := schemeEnd + len("://")

	at := strings.Index(raw[start:], "@")
	if at < 0 {
		return raw
	}

	user, _, _ := strings.Cut(raw[start:start+at], ":")

	return raw[:start] + user + ":***" + raw[start+at:]
}

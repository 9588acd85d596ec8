package env

import (
	"net/url"
	"strings"
)

var secretMarkers = []string{
	"TOKEN", "PASSWORD", "PASSWD", "SECRET", "API_KEY", "CREDENTIAL",
}

// IsSecretKey reports whether a variable or setting name looks
// like it holds a credential.
func IsSecretKey(name string) bool {
	upper := strings.ToUpper(name)
	for _, m := range secretMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// Secrets returns the non-empty values of vars whose names look
// like credentials, in key order.
func Secrets(vars map[string]string) []string {
	var out []string
	for _, k := range SortedKeys(vars) {
		if v := vars[k]; v != "" && IsSecretKey(k) {
			out = append(out, v)
		}
	}
	return out
}

// RedactValue masks a secret, showing only the first and last
// 4 characters of long values.
func RedactValue(v string) string {
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", len(v)-8) + v[len(v)-4:]
}

// RedactURL masks credentials in a URL string, such as a proxy
// or share URL kept in the settings.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.User != nil {
		password, hasPassword := u.User.Password()
		if hasPassword {
			u.User = url.UserPassword(u.User.Username(), RedactValue(password))
		}
	}
	return u.String()
}

// RedactSettings returns a copy of settings with credential
// values masked and URL credentials hidden.
func RedactSettings(settings map[string]string) map[string]string {
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		switch {
		case IsSecretKey(k):
			out[k] = RedactValue(v)
		case strings.Contains(v, "://"):
			out[k] = RedactURL(v)
		default:
			out[k] = v
		}
	}
	return out
}

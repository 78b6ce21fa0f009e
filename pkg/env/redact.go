package env

import (
	"net/url"
	"strings"
)

// RedactAPIKey keeps the first and last four characters of key.
// Keys of eight characters or fewer are masked entirely.
func RedactAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// RedactURL masks the password in a URL's user info.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	if pass, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), RedactAPIKey(pass))
	}
	return u.String()
}

// RedactProxy masks the password of a user:pass@host:port proxy.
// Anything else is returned unchanged.
func RedactProxy(proxy string) string {
	at := strings.LastIndex(proxy, "@")
	if at < 0 {
		return proxy
	}
	user, pass, ok := strings.Cut(proxy[:at], ":")
	if !ok {
		return proxy
	}
	return user + ":" + strings.Repeat("*", len(pass)) + "@" + proxy[at+1:]
}

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
}

// RedactHeaders returns a copy of headers with credentials masked.
func RedactHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			v = RedactAPIKey(v)
		}
		out[k] = v
	}
	return out
}

// RedactValue masks v when the variable name k suggests a secret.
// URLs have their passwords masked.
func RedactValue(k, v string) string {
	upper := strings.ToUpper(k)
	switch {
	case strings.Contains(upper, "KEY"), strings.Contains(upper, "TOKEN"),
		strings.Contains(upper, "SECRET"), strings.Contains(upper, "PASSWORD"):
		return RedactAPIKey(v)
	case strings.Contains(upper, "URL"):
		return RedactURL(v)
	}
	return v
}

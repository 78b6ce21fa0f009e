package workflow

import (
	"regexp"

	"digital.vasic.salamoonder/pkg/task"
)

var proxyPattern = regexp.MustCompile(`^[A-Za-z0-9]+:[A-Za-z0-9]+@[A-Za-z0-9.]+:[0-9]+$`)

// ValidateProxy checks that proxy has the form user:pass@host:port
// with alphanumeric credentials, an alphanumeric-and-dot host and a
// numeric port.
func ValidateProxy(proxy string) error {
	if !proxyPattern.MatchString(proxy) {
		return task.InvalidProxy()
	}
	return nil
}

// validateOptionalProxy accepts an empty proxy, meaning none.
func validateOptionalProxy(proxy string) error {
	if proxy == "" {
		return nil
	}
	return ValidateProxy(proxy)
}

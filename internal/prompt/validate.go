package prompt

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
)

// URL accepts absolute http and https URLs.
func URL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("enter a valid http(s) URL")
	}
	return nil
}

// Email accepts a bare address.
func Email(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}

// Numeric accepts a non-empty string of digits.
func Numeric(s string) error {
	if s == "" {
		return fmt.Errorf("enter a numeric code")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return fmt.Errorf("enter a numeric code")
		}
	}
	return nil
}

// NotEmpty rejects blank answers.
func NotEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("a value is required")
	}
	return nil
}

// Length returns a validator requiring exactly n characters.
func Length(n int) func(string) error {
	return func(s string) error {
		if len(s) != n {
			return fmt.Errorf("invalid token length")
		}
		return nil
	}
}

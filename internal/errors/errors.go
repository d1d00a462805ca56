package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ProviderError enhances provider-specific errors with context
func ProviderError(provider string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s error during %s", provider, operation),
		Details:    err.Error(),
		Suggestion: getProviderSuggestion(provider, err),
		Err:        err,
	}
}

// getProviderSuggestion returns helpful suggestions based on provider and error
func getProviderSuggestion(provider string, err error) string {
	errStr := strings.ToLower(err.Error())

	switch provider {
	case "github":
		if strings.Contains(errStr, "status 401") {
			return "Check the token or password. Tokens need the 'repo' scope: https://github.com/settings/tokens/new?scopes=repo"
		}
		if strings.Contains(errStr, "status 404") {
			return "Verify the repository exists and the token can access it"
		}
		if strings.Contains(errStr, "two-factor") {
			return "Use a current code from your authenticator app or SMS"
		}

	case "npm":
		if strings.Contains(errStr, "status 401") || strings.Contains(errStr, "status 403") {
			return "Check your npm username and password, or pass --npm-token"
		}
		if strings.Contains(errStr, "status 409") {
			return "The user already exists with different credentials. Log in with the existing password"
		}

	case "travis":
		if strings.Contains(errStr, "status 403") || strings.Contains(errStr, "status 401") {
			return "Travis CI could not authenticate with the GitHub token. Sign in to Travis CI once in the browser"
		}
		if strings.Contains(errStr, "status 404") {
			return "Enable the repository on Travis CI, or wait for the account sync to finish"
		}

	case "circleci":
		if strings.Contains(errStr, "status 401") || strings.Contains(errStr, "status 403") {
			return "Create a new personal API token at https://app.circleci.com/settings/user/tokens"
		}

	case "keychain":
		return "Run with --no-keychain to skip storing credentials"
	}

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and proxy configuration"
	}

	return ""
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	var ue UserError
	if errors.As(err, &ue) {
		return err
	}
	var ce ConfigError
	if errors.As(err, &ce) {
		return err
	}

	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}
	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Run the command from the package root, next to package.json",
			Err:        err,
		}
	}

	return err
}

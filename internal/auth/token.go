package auth

import (
	"fmt"
	"os"
	"strings"
)

// TokenSource supplies the bearer credential attached to every orchestrator
// request. Implementations must be safe for concurrent use.
type TokenSource interface {
	Token() (string, error)
}

type staticToken string

// Static returns a TokenSource that always yields the given credential.
func Static(token string) TokenSource { return staticToken(token) }

func (s staticToken) Token() (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", fmt.Errorf("bearer token is empty")
	}
	return string(s), nil
}

type envToken string

// FromEnv returns a TokenSource that reads the credential from the named
// environment variable on every call, so rotated values are picked up. An
// unset variable yields an empty credential rather than an error: the env
// hook is ambient, and a local orchestrator may not require auth at all.
func FromEnv(name string) TokenSource { return envToken(name) }

func (e envToken) Token() (string, error) {
	return strings.TrimSpace(os.Getenv(string(e))), nil
}

type fileToken string

// FromFile returns a TokenSource that reads the credential from a file,
// trimming surrounding whitespace. The file is re-read on every call so an
// external rotation takes effect without a restart.
func FromFile(path string) TokenSource { return fileToken(path) }

func (f fileToken) Token() (string, error) {
	b, err := os.ReadFile(string(f))
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	v := strings.TrimSpace(string(b))
	if v == "" {
		return "", fmt.Errorf("token file %s is empty", string(f))
	}
	return v, nil
}

// Resolve picks a TokenSource from config, preferring an inline token, then a
// token file, then the environment variable. An inline token or token file is
// an explicit choice and must produce a credential; the env source may come
// up empty. Returns an error when no source is configured at all.
func Resolve(token, tokenFile, envName string) (TokenSource, error) {
	switch {
	case strings.TrimSpace(token) != "":
		return Static(token), nil
	case strings.TrimSpace(tokenFile) != "":
		return FromFile(tokenFile), nil
	case strings.TrimSpace(envName) != "":
		return FromEnv(envName), nil
	default:
		return nil, fmt.Errorf("no orchestrator credential configured: set token, token_file, or a token env var")
	}
}

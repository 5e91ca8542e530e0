package credential

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret expands a secret reference. "env:NAME" reads the
// environment variable NAME, "file:PATH" reads PATH with surrounding
// whitespace trimmed, and anything else is returned as the literal secret.
func ResolveSecret(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "env:"):
		name := strings.TrimPrefix(ref, "env:")
		if name == "" {
			return "", fmt.Errorf("empty environment variable name in %q", ref)
		}
		value, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("environment variable %s is not set", name)
		}
		return value, nil
	case strings.HasPrefix(ref, "file:"):
		path := strings.TrimPrefix(ref, "file:")
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read secret file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return ref, nil
	}
}

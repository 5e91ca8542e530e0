package validation

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// ValidateEmail performs basic email format validation.
// Checks for the presence of @ and validates the local and domain parts.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateGUID validates that a string matches standard GUID format (8-4-4-4-12).
// Example: 12345678-1234-1234-1234-123456789012
func ValidateGUID(guid, fieldName string) error {
	guid = strings.TrimSpace(guid)
	if guid == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if len(guid) != 36 {
		return fmt.Errorf("%s should be a GUID (36 characters, format: 12345678-1234-1234-1234-123456789012)", fieldName)
	}
	if guid[8] != '-' || guid[13] != '-' || guid[18] != '-' || guid[23] != '-' {
		return fmt.Errorf("%s has invalid GUID format (dashes at wrong positions)", fieldName)
	}
	if _, err := hex.DecodeString(strings.ReplaceAll(guid, "-", "")); err != nil {
		return fmt.Errorf("%s contains non-hexadecimal characters", fieldName)
	}
	return nil
}

// ValidateThumbprint validates a SHA-1 certificate thumbprint (40 hex
// characters). Spaces and colons, as copied from certificate dialogs, are ignored.
func ValidateThumbprint(thumbprint string) error {
	clean := NormalizeThumbprint(thumbprint)
	if clean == "" {
		return fmt.Errorf("thumbprint cannot be empty")
	}
	if len(clean) != 40 {
		return fmt.Errorf("thumbprint should be 40 hex characters (got %d)", len(clean))
	}
	if _, err := hex.DecodeString(clean); err != nil {
		return fmt.Errorf("thumbprint contains non-hexadecimal characters")
	}
	return nil
}

// NormalizeThumbprint strips separators and lowercases a thumbprint.
func NormalizeThumbprint(thumbprint string) string {
	r := strings.NewReplacer(" ", "", ":", "", "\u200e", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(thumbprint)))
}

// ValidateFilePath validates a file path for security and usability.
// Checks for path traversal attempts, verifies file exists and is a regular file.
func ValidateFilePath(path, fieldName string) error {
	if path == "" {
		return nil // Empty is allowed for optional fields
	}

	cleanPath := filepath.Clean(path)

	// Relative paths must not climb out of the working directory tree
	if !filepath.IsAbs(path) && strings.Contains(cleanPath, "..") {
		return fmt.Errorf("%s: path contains directory traversal (..) which is not allowed", fieldName)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: file not found: %s", fieldName, path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("%s: permission denied: %s", fieldName, path)
		}
		return fmt.Errorf("%s: cannot access file: %w", fieldName, err)
	}

	if !fileInfo.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file (is it a directory?): %s", fieldName, path)
	}

	return nil
}

// ValidateHostname validates a hostname or IP address.
func ValidateHostname(hostname string) error {
	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		return fmt.Errorf("hostname cannot be empty")
	}

	if net.ParseIP(hostname) != nil {
		return nil
	}

	if len(hostname) > 253 {
		return fmt.Errorf("hostname too long (max 253 characters)")
	}

	for _, ch := range hostname {
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') || ch == '.' || ch == '-') {
			return fmt.Errorf("hostname contains invalid character: %c", ch)
		}
	}

	if strings.HasPrefix(hostname, "-") || strings.HasSuffix(hostname, "-") ||
		strings.HasPrefix(hostname, ".") || strings.HasSuffix(hostname, ".") {
		return fmt.Errorf("hostname cannot start or end with hyphen or dot")
	}

	return nil
}

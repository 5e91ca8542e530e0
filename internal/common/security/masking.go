// Package security provides helpers for keeping credentials out of logs.
package security

import "strings"

// MaskSecret masks a client secret or similar credential.
// Shows first 4 characters followed by asterisks. Secret references
// (env:NAME, file:PATH) are not sensitive and are returned unchanged.
// Empty secrets return empty string.
func MaskSecret(secret string) string {
	if len(secret) == 0 {
		return ""
	}
	if strings.HasPrefix(secret, "env:") || strings.HasPrefix(secret, "file:") {
		return secret
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}

// MaskGUID masks a tenant or client id for logging.
// Shows the first 4 and last 4 characters.
func MaskGUID(guid string) string {
	if len(guid) <= 8 {
		return "****"
	}
	return guid[:4] + "****-****-****-****" + guid[len(guid)-4:]
}

// MaskThumbprint shows the last 6 hex digits of a certificate thumbprint,
// enough to tell certificates apart in a store listing.
func MaskThumbprint(thumbprint string) string {
	if len(thumbprint) <= 6 {
		return "****"
	}
	return "****" + strings.ToUpper(thumbprint[len(thumbprint)-6:])
}

// MaskAccessToken masks an access token for safe logging.
// Shows first 8 and last 4 characters with ... in between for long tokens.
// For shorter tokens, shows half on each side.
func MaskAccessToken(token string) string {
	if len(token) == 0 {
		return ""
	}
	if len(token) <= 16 {
		return token[:len(token)/2] + "..." + token[len(token)/2:]
	}
	return token[:8] + "..." + token[len(token)-4:]
}

// MaskEmail masks a mailbox address.
// Example: "user@example.com" becomes "us****@ex****"
func MaskEmail(email string) string {
	if len(email) == 0 {
		return ""
	}

	at := strings.IndexByte(email, '@')
	if at == -1 {
		if len(email) <= 4 {
			return "****"
		}
		return email[:2] + "****" + email[len(email)-2:]
	}

	localPart := email[:at]
	domain := email[at+1:]

	maskedLocal := "****"
	if len(localPart) > 2 {
		maskedLocal = localPart[:2] + "****"
	}

	maskedDomain := "****"
	if len(domain) > 2 {
		maskedDomain = domain[:2] + "****"
	}

	return maskedLocal + "@" + maskedDomain
}

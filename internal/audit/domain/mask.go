package domain

import (
	"strings"
)

const (
	// maskVisibleSuffix is how many trailing characters Mask keeps.
	maskVisibleSuffix = 4
	// maskMinLength is the shortest value that keeps a visible suffix.
	maskMinLength = 12
	// nonceVisiblePrefix is how many leading characters TruncateNonce keeps.
	nonceVisiblePrefix = 8
)

// sensitiveKeys lists metadata keys whose values are always masked.
var sensitiveKeys = map[string]struct{}{
	"access_token":  {},
	"refresh_token": {},
	"code":          {},
	"client_secret": {},
	"secret":        {},
	"master_secret": {},
	"authorization": {},
	"token":         {},
	"password":      {},
}

// Mask hides a secret value, keeping only a fixed-length suffix for correlation.
// Short values are fully hidden.
func Mask(value string) string {
	if value == "" {
		return ""
	}
	if len(value) < maskMinLength {
		return "****"
	}
	return "****" + value[len(value)-maskVisibleSuffix:]
}

// TruncateNonce keeps the leading characters of a nonce for log correlation.
func TruncateNonce(nonce string) string {
	if len(nonce) <= nonceVisiblePrefix {
		return nonce
	}
	return nonce[:nonceVisiblePrefix] + "..."
}

// IsSensitiveKey reports whether values under key must be masked.
func IsSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

// MaskMetadata returns a copy of metadata with sensitive string values masked.
// Nested maps are masked recursively; values under sensitive keys that are not strings
// are replaced entirely.
func MaskMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}

	masked := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if nested, ok := value.(map[string]any); ok {
			masked[key] = MaskMetadata(nested)
			continue
		}
		if !IsSensitiveKey(key) {
			masked[key] = value
			continue
		}
		if s, ok := value.(string); ok {
			masked[key] = Mask(s)
		} else {
			masked[key] = "****"
		}
	}
	return masked
}

package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
)

// GenerateETag returns a strong ETag over the JSON encoding of v.
// Format: "<resource_type>-<sha256 prefix>"
func GenerateETag(resourceType string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return `"` + resourceType + "-" + hex.EncodeToString(sum[:8]) + `"`, nil
}

// CheckIfNoneMatch reports whether the If-None-Match header names etag, in which case
// the client's copy is current.
func CheckIfNoneMatch(r *http.Request, etag string) bool {
	ifNoneMatch := r.Header.Get("If-None-Match")
	if ifNoneMatch == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

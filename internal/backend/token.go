// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"net/http"
	"strings"
)

// parseBearerToken extracts the token from "Bearer <token>", case-insensitively.
func parseBearerToken(value string) string {
	v := strings.TrimSpace(value)
	const prefix = "bearer "
	if len(v) <= len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(v[len(prefix):])
}

// findBearerTokenInHeaders checks Authorization first, then any header carrying a bearer value.
func findBearerTokenInHeaders(h http.Header) string {
	if t := parseBearerToken(h.Get("Authorization")); t != "" {
		return t
	}
	for _, vals := range h {
		for _, v := range vals {
			if t := parseBearerToken(v); t != "" {
				return t
			}
		}
	}
	return ""
}

// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package guardpost

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// subjectFromToken reads the sub claim without verifying the signature. The
// server verifies tokens; the CLI only needs the id for display and cache keys.
func subjectFromToken(token string) (string, bool) {
	if strings.Count(token, ".") != 2 {
		return "", false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}

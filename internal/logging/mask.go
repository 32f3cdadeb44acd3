// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides the CLI's structured logger and helpers for masking
// secrets and presenting failures to the user.
//
// Every message that reaches a log sink or the terminal goes through Mask, so
// access tokens, refresh tokens and URL credentials never leave the process.
package logging

import (
	"regexp"
	"strings"
)

var (
	rePassword  = regexp.MustCompile(`(?i)(password=)([^\s;&]+)`)
	reToken     = regexp.MustCompile(`(?i)((?:access_|refresh_)?token=|bearer\s+)([A-Za-z0-9._~+/-]+=*)`)
	reJSONToken = regexp.MustCompile(`(?i)("(?:access_token|refresh_token|token|accessToken|refreshToken)"\s*:\s*")([^"]*)(")`)
	reURLCreds  = regexp.MustCompile(`(://)([^:/@\s]+):([^@\s]+)(@)`)
	reAPIKey    = regexp.MustCompile(`(?i)(apikey=|api_key=)([^\s;&]+)`)
	reJWT       = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`)
)

// Mask replaces sensitive values in s with "***".
func Mask(s string) string {
	out := s
	out = rePassword.ReplaceAllString(out, "$1***")
	out = reToken.ReplaceAllString(out, "$1***")
	out = reJSONToken.ReplaceAllString(out, "$1***$3")
	out = reURLCreds.ReplaceAllString(out, "$1*:*$4")
	out = reAPIKey.ReplaceAllString(out, "$1***")
	out = reJWT.ReplaceAllString(out, "***")
	for _, k := range []string{"EMITRON_TOKEN", "ACCESS_TOKEN"} {
		out = strings.ReplaceAll(out, k+"=", k+"=***")
	}
	return out
}

// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"emitron/cli/internal/session"
)

// FailureType is the category of a logged failure reason.
type FailureType int

const (
	FailureUnknown FailureType = iota
	FailureNetwork
	FailureAuth
	FailureTimeout
	FailureUnavailable
	FailureCancelled
)

// ClassifyFailure categorizes a failure reason by its text.
func ClassifyFailure(reason string) FailureType {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "cancel"):
		return FailureCancelled
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "unauthenticated"),
		strings.Contains(lower, "rejected"), strings.Contains(lower, "expired"):
		return FailureAuth
	case strings.Contains(lower, "deadline"), strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return FailureTimeout
	case strings.Contains(lower, "unavailable"), strings.Contains(lower, " 502"), strings.Contains(lower, " 503"),
		strings.Contains(lower, " 504"):
		return FailureUnavailable
	case strings.Contains(lower, "connection refused"), strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "no such host"), strings.Contains(lower, "network"):
		return FailureNetwork
	default:
		return FailureUnknown
	}
}

func failureTitle(tag string) string {
	switch tag {
	case session.TagLogin:
		return "Login failed"
	case session.TagPermissions:
		return "Could not refresh permissions"
	case session.TagLogout:
		return "Remote logout failed"
	default:
		return "Something went wrong"
	}
}

// DescribeFailure renders a user-facing explanation of a failure reason
// recorded under tag.
func DescribeFailure(tag, reason string) string {
	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint(failureTitle(tag)))
	b.WriteString("\n\n")

	switch ClassifyFailure(reason) {
	case FailureCancelled:
		b.WriteString("The login was cancelled before the browser approval arrived.\n")
	case FailureAuth:
		b.WriteString("Emitron did not accept your credentials.\n")
		b.WriteString("  • The login link may have expired\n")
		b.WriteString("  • Your session may have been revoked on another device\n")
	case FailureTimeout:
		b.WriteString("The Emitron service took too long to respond.\n")
		b.WriteString("  • Finish the approval in the browser within the time limit\n")
		b.WriteString("  • Check for a slow or unstable connection\n")
	case FailureUnavailable:
		b.WriteString("The Emitron service is temporarily unavailable.\n")
		b.WriteString("  • The service may be under maintenance\n")
	case FailureNetwork:
		b.WriteString("Emitron could not be reached.\n")
		b.WriteString("  • Check your internet connection\n")
		b.WriteString("  • A firewall or proxy may be blocking the request\n")
	default:
		b.WriteString("The operation did not complete.\n")
	}

	b.WriteString("\n")
	b.WriteString(pterm.NewStyle(pterm.FgYellow).Sprint("→ Run 'emitron login' to try again"))
	b.WriteString("\n")

	if strings.TrimSpace(reason) != "" {
		b.WriteString("\n")
		b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(reason)))
	}
	return b.String()
}

// PresentFailure prints DescribeFailure with surrounding blank lines.
func PresentFailure(tag, reason string) {
	fmt.Println()
	fmt.Println(DescribeFailure(tag, reason))
	fmt.Println()
}

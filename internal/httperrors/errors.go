// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns transport failures of the account API into
// messages a user can act on.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
)

// Kind classifies a transport error.
type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindDNS
	KindRefused
	KindTLS
	KindServer
)

// Classify detects common network error types.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOther
	case isTimeoutError(err):
		return KindTimeout
	case isDNSError(err):
		return KindDNS
	case isConnectionRefusedError(err):
		return KindRefused
	case isSSLError(err):
		return KindTLS
	case isServerError(err.Error()):
		return KindServer
	}
	return KindOther
}

// IsNetwork reports whether err looks like a transport failure rather than
// an API answer.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	if Classify(err) != KindOther {
		return true
	}
	var netErr net.Error
	var urlErr *url.Error
	return errors.As(err, &netErr) || errors.As(err, &urlErr)
}

// Describe renders a troubleshooting message for err that occurred while
// doing action against host.
func Describe(err error, action, host string) string {
	if host == "" {
		host = "api.emitron.dev"
	}
	var b strings.Builder
	line := func(s string) { b.WriteString(s + "\n") }

	switch Classify(err) {
	case KindTimeout:
		line(fmt.Sprintf("⏱️  Connection timeout while %s", action))
		line("")
		line("The server took too long to respond. This could mean:")
		line("  • Slow internet connection")
		line("  • Server is under heavy load")
		line("  • Network firewall is blocking the connection")
		line("")
		line("Please try again in a few moments.")
	case KindDNS:
		line(fmt.Sprintf("🌐 Cannot resolve server address while %s", action))
		line("")
		line(fmt.Sprintf("Unable to look up %s. Please check:", host))
		line("  • Your internet connection is working")
		line("  • DNS settings are correct")
		line("  • No DNS-level blocking (corporate firewall, parental controls)")
	case KindRefused:
		line(fmt.Sprintf("🚫 Connection refused while %s", action))
		line("")
		line("The server is not accepting connections. This could mean:")
		line("  • The service is temporarily down")
		line("  • Firewall is blocking the connection")
		line("  • Wrong server address or port in config.json")
	case KindTLS:
		line(fmt.Sprintf("🔒 Secure connection failed while %s", action))
		line("")
		line("Cannot establish a secure HTTPS connection. Try:")
		line("  • Check your system date and time")
		line("  • Verify network proxy settings")
	case KindServer:
		line(fmt.Sprintf("⚠️  Server error while %s", action))
		line("")
		line("The Emitron service encountered an internal error.")
		line("This is not a problem with your setup. Please try again in a few minutes.")
	default:
		line(fmt.Sprintf("❌ Cannot connect to the Emitron service while %s", action))
		line("")
		line("Please check:")
		line("  • Your internet connection")
		line(fmt.Sprintf("  • Whether %s is accessible from your network", host))
		line("  • Firewall settings that might block HTTPS requests")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatNetworkError prints Describe and returns err wrapped for logging.
func FormatNetworkError(err error, action, host string) error {
	if err == nil {
		return nil
	}
	pterm.Println(Describe(err, action, host))
	pterm.Println()
	if details := err.Error(); details != "" {
		if len(details) > 100 {
			details = details[:100] + "..."
		}
		pterm.Debug.Printf("Technical details: %s\n", details)
	}
	return fmt.Errorf("network error: %w", err)
}

func isTimeoutError(err error) bool {
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// isServerError matches the 5xx status text produced by the backend client.
func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	for _, s := range []string{" 500", " 502", " 503", " 504", "internal server error", "bad gateway", "service unavailable", "gateway timeout"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// HostFromURL extracts the hostname from a URL for error messages.
func HostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Hostname()
}

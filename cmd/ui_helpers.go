// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"emitron/cli/internal/session"
	"emitron/cli/internal/terminal"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// terminalSurface shows the consent link in the terminal and opens the browser.
// It implements session.Surface.
type terminalSurface struct {
	w    io.Writer
	open func(string) error
	// presented runs after the link is shown, on the broker's goroutine.
	presented func()
}

func newTerminalSurface(w io.Writer) *terminalSurface {
	return &terminalSurface{w: w, open: openBrowser}
}

func (s *terminalSurface) Present(_ context.Context, authURL string) error {
	box := pterm.DefaultBox.WithTitle("Sign in to Emitron").WithTopPadding(1).WithBottomPadding(1).WithLeftPadding(1).WithRightPadding(1).Sprint(
		"Open this link to approve this device:\n\n" + pterm.Cyan(authURL))
	fmt.Fprintln(s.w, box)
	fmt.Fprintln(s.w)
	// The printed link is the fallback when no browser can be started.
	_ = s.open(authURL)
	if s.presented != nil {
		s.presented()
	}
	return nil
}

// openBrowser attempts to open the provided URL in the user's default browser.
// It uses platform-specific commands to launch the default browser:
//   - Windows: rundll32 url.dll,FileProtocolHandler
//   - macOS: open command
//   - Linux: xdg-open command
//
// The function starts the browser process but does not wait for it to complete.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// startSpinner shows a spinner followed by text in a pterm area until the
// returned stop func is called. The area is removed when done.
func startSpinner(text string) (stop func()) {
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		i := 0
		for {
			select {
			case <-t.C:
				area.Update(fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text))
				i++
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
			_ = area.Stop()
			cursor.Show()
		})
	}
}

// spinnerSlot owns at most one running spinner across goroutines.
// Once stopped it never starts again.
type spinnerSlot struct {
	mu      sync.Mutex
	stop    func()
	stopped bool
}

func (s *spinnerSlot) start(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil && !s.stopped {
		s.stop = startSpinner(text)
	}
}

func (s *spinnerSlot) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// settled is the outcome of waiting on the controller.
type settled struct {
	snap     session.Snapshot
	deferred bool
	skipped  bool
}

// awaitSettled waits until the controller publishes HasData or Failed, or
// records that the refresh was deferred for lack of connectivity or skipped
// because the gate was closed.
// The first snapshot on ch is the state before the operation and is skipped.
func awaitSettled(ctx context.Context, ctrl *session.Controller, ch <-chan session.Snapshot) (settled, error) {
	select {
	case <-ch:
	case <-ctx.Done():
		return settled{}, ctx.Err()
	}

	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return settled{snap: ctrl.Snapshot()}, nil
			}
			if s.Status == session.StatusHasData || s.Status == session.StatusFailed {
				return settled{snap: s, deferred: s.RefreshDeferred}, nil
			}
		case <-poll.C:
			// Deferred and skipped refreshes are not published; read the stored snapshot.
			s := ctrl.Snapshot()
			switch {
			case s.RefreshDeferred:
				return settled{snap: s, deferred: true}, nil
			case s.RefreshSkipped:
				return settled{snap: s, skipped: true}, nil
			}
		case <-ctx.Done():
			return settled{snap: ctrl.Snapshot()}, ctx.Err()
		}
	}
}

// confirm asks a yes/no question on stdin and clears the prompt afterwards.
func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.TrimSpace(line)
	terminal.ClearPreviousLines(os.Stdout, len(prompt)+len(answer))
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

// loginGreeting returns a random greeting phrase with the user's identifier.
func loginGreeting(identifier string) string {
	greetings := []string{
		"🎉 Welcome back, %s!",
		"✨ Great to see you, %s!",
		"🚀 You're all set, %s!",
		"👋 Hello %s! Ready to learn?",
		"💫 Successfully authenticated as %s",
		"🌟 Welcome aboard, %s!",
		"🎯 You're in, %s!",
	}
	return fmt.Sprintf(greetings[rand.Intn(len(greetings))], identifier)
}

// formatBytes renders n with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func printNotLoggedIn() {
	fmt.Println("🔒 You're not logged in yet!")
	fmt.Println("   Run 'emitron login' to get started.")
}

// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"errors"
	"fmt"

	apperrors "emitron/cli/internal/errors"
)

// PresentError formats a command error for the terminal. Typed errors show
// their message without the machine-readable kind; everything is masked.
func PresentError(command string, err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var e *apperrors.E
	if errors.As(err, &e) {
		msg = e.Message
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
	}
	if command == "" {
		return "Error: " + Mask(msg)
	}
	return fmt.Sprintf("Error (%s): %s", command, Mask(msg))
}

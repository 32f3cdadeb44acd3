// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build !darwin

package keychain

import "errors"

var errNoSecurity = errors.New("security backend only available on macOS")

type securityBackend struct{}

func newSecurityBackend() (*securityBackend, error) { return nil, errNoSecurity }

func (*securityBackend) Set(string, string) error { return errNoSecurity }
func (*securityBackend) Get(string) (string, error) { return "", errNoSecurity }
func (*securityBackend) Delete(string) error { return errNoSecurity }

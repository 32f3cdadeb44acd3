// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package guardpost

import (
	"encoding/json"
	"errors"

	apperrors "emitron/cli/internal/errors"
	"emitron/cli/internal/keychain"
	"emitron/cli/internal/session"
)

// Storage keeps the session record in the OS keychain. It implements session.SecureStore.
type Storage struct {
	km *keychain.Manager
}

// NewStorage returns a Storage backed by km.
func NewStorage(km *keychain.Manager) *Storage {
	return &Storage{km: km}
}

// Persist writes s as JSON. The token is stored separately and is not part of the record.
func (st *Storage) Persist(s session.Session) error {
	s.Token = ""
	b, err := json.Marshal(s)
	if err != nil {
		return apperrors.Wrap(apperrors.StorageFailed, "encode session", err)
	}
	if err := st.km.SaveSessionRecord(b); err != nil {
		return apperrors.Wrap(apperrors.StorageFailed, "save session", err)
	}
	return nil
}

// Load returns the stored session with its access token, or nil when nothing is stored.
func (st *Storage) Load() (*session.Session, error) {
	token, err := st.km.LoadAccessToken()
	if errors.Is(err, keychain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StorageFailed, "load access token", err)
	}

	var s session.Session
	b, err := st.km.LoadSessionRecord()
	switch {
	case errors.Is(err, keychain.ErrNotFound):
		// Tokens without a record: logged in, permissions not fetched yet.
	case err != nil:
		return nil, apperrors.Wrap(apperrors.StorageFailed, "load session", err)
	default:
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, apperrors.Wrap(apperrors.StorageFailed, "decode session", err)
		}
	}

	s.Token = token
	if s.UserID == "" {
		if sub, ok := subjectFromToken(token); ok {
			s.UserID = sub
		}
	}
	return &s, nil
}

// Clear removes tokens and the session record.
func (st *Storage) Clear() error {
	if err := st.km.ClearAuth(); err != nil {
		return apperrors.Wrap(apperrors.StorageFailed, "clear keychain", err)
	}
	return nil
}

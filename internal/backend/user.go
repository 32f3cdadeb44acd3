// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// GetMe returns the current user. A fresh cached copy is returned without a
// request; on transport or server failures any cached copy is returned instead.
// ErrUnauthorized is never masked by the cache.
func (h *HTTP) GetMe(ctx context.Context, accessToken string) (User, error) {
	if u, ok := h.freshMe(); ok {
		return u, nil
	}

	u, err := h.fetchMe(ctx, accessToken)
	if err != nil {
		if !errors.Is(err, ErrUnauthorized) {
			if cached, ok := h.cachedMe(); ok {
				return cached, nil
			}
		}
		return User{}, err
	}
	h.storeMe(&u)
	return u, nil
}

func (h *HTTP) fetchMe(ctx context.Context, accessToken string) (User, error) {
	req, err := h.newRequest(ctx, http.MethodGet, h.endpoints.Me, accessToken, nil)
	if err != nil {
		return User{}, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return User{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return User{}, statusError("get-me", resp)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return User{}, err
	}
	// JSON:API documents keep the fields under data.attributes.
	if data, ok := raw["data"].(map[string]any); ok {
		attrs, _ := data["attributes"].(map[string]any)
		if attrs == nil {
			attrs = map[string]any{}
		}
		if id, ok := data["id"].(string); ok {
			attrs["id"] = id
		}
		raw = attrs
	}
	return User{
		ID:    firstString(raw, "user_id", "id", "external_id"),
		Email: firstString(raw, "email"),
		Name:  firstString(raw, "name", "username"),
	}, nil
}

type permissionsDocument struct {
	Permissions []string `json:"permissions"`
	Data        []struct {
		Attributes struct {
			Tag  string `json:"tag"`
			Name string `json:"name"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetPermissions returns the entitlement tags of the token's user. It accepts
// a JSON:API document (data[].attributes.tag) or a flat {"permissions": [...]}.
func (h *HTTP) GetPermissions(ctx context.Context, accessToken string) ([]string, error) {
	req, err := h.newRequest(ctx, http.MethodGet, h.endpoints.Permissions, accessToken, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("permissions", resp)
	}

	var doc permissionsDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(doc.Permissions)+len(doc.Data))
	for _, p := range doc.Permissions {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	for _, d := range doc.Data {
		tag := d.Attributes.Tag
		if tag == "" {
			tag = d.Attributes.Name
		}
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

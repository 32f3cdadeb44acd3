// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultPollInterval = 3 * time.Second

// BeginDeviceLink requests a login link and device code.
func (h *HTTP) BeginDeviceLink(ctx context.Context) (DeviceLink, error) {
	req, err := h.newRequest(ctx, http.MethodGet, h.endpoints.GetLink, "", nil)
	if err != nil {
		return DeviceLink{}, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return DeviceLink{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return DeviceLink{}, statusError("get-link", resp)
	}

	// Decode into a map so renamed fields do not break login.
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return DeviceLink{}, err
	}

	link := firstString(raw, "link", "url", "verification_uri_complete", "verification_uri")
	if link == "" {
		return DeviceLink{}, errors.New("empty login link")
	}
	return DeviceLink{
		URL:          link,
		DeviceID:     extractDeviceID(raw, link),
		PollInterval: extractInterval(raw),
	}, nil
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func extractInterval(raw map[string]any) time.Duration {
	for _, k := range []string{"interval", "poll_interval"} {
		if v, ok := raw[k].(float64); ok && v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	}
	return defaultPollInterval
}

func extractDeviceID(raw map[string]any, link string) string {
	if v := firstString(raw, "device_id", "deviceId", "device_code", "deviceCode", "code", "user_code"); v != "" {
		return v
	}
	return deviceIDFromURL(link)
}

// deviceIDFromURL reads a code query parameter or the last path segment.
func deviceIDFromURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, k := range []string{"device_id", "deviceId", "code"} {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	parts := strings.Split(u.Path, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return ""
}

// PollDeviceLink exchanges the device id for tokens. Pending links yield zero
// Tokens and a nil error; 401 and 403 mean the link was rejected or expired.
func (h *HTTP) PollDeviceLink(ctx context.Context, deviceID string) (Tokens, error) {
	body, err := json.Marshal(map[string]string{"device_id": deviceID})
	if err != nil {
		return Tokens{}, err
	}
	req, err := h.newRequest(ctx, http.MethodPost, h.endpoints.GetToken, "", bytes.NewReader(body))
	if err != nil {
		return Tokens{}, err
	}
	req.Header.Set("Accept", "application/json, */*")

	resp, err := h.client.Do(req)
	if err != nil {
		return Tokens{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if t := findBearerTokenInHeaders(resp.Header); t != "" {
			return Tokens{Access: t}, nil
		}
		return parseTokensFromBody(resp.Body, resp.Header.Get("Content-Type")), nil
	case http.StatusNoContent, http.StatusAccepted, http.StatusNotFound, http.StatusTooEarly:
		return Tokens{}, nil
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusGone:
		return Tokens{}, errors.New("login link rejected or expired")
	default:
		return Tokens{}, statusError("get-token", resp)
	}
}

// parseTokensFromBody accepts JSON (nested anywhere) or a bare token in plain text.
func parseTokensFromBody(r io.Reader, contentType string) Tokens {
	b, err := io.ReadAll(r)
	if err != nil {
		return Tokens{}
	}
	ct := strings.ToLower(contentType)
	if ct == "" || strings.Contains(ct, "json") {
		var node any
		if err := json.Unmarshal(b, &node); err == nil {
			var t Tokens
			walkJSON(node, &t)
			return t
		}
	}
	return Tokens{Access: strings.TrimSpace(string(b))}
}

func walkJSON(node any, t *Tokens) {
	if t.Access != "" && t.Refresh != "" {
		return
	}
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := strings.ToLower(strings.ReplaceAll(k, "_", ""))
			if s, ok := child.(string); ok {
				s = strings.TrimSpace(s)
				switch {
				case t.Access == "" && (key == "accesstoken" || key == "access" || key == "token"):
					t.Access = s
				case t.Access == "" && key == "authorization":
					t.Access = parseBearerToken(s)
				case t.Refresh == "" && (key == "refreshtoken" || key == "refresh"):
					t.Refresh = s
				}
				continue
			}
			walkJSON(child, t)
		}
	case []any:
		for _, e := range v {
			walkJSON(e, t)
		}
	}
}

// Logout invalidates the access token and drops the cached user.
func (h *HTTP) Logout(ctx context.Context, accessToken string) error {
	h.storeMe(nil)

	req, err := h.newRequest(ctx, http.MethodPost, h.endpoints.Logout, accessToken, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return statusError("logout", resp)
}

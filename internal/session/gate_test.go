package session

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRefreshGateDue(t *testing.T) {
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		recorded bool
		elapsed  time.Duration
		want     bool
	}{
		{name: "never refreshed", recorded: false, want: true},
		{name: "just refreshed", recorded: true, elapsed: 0, want: false},
		{name: "inside interval", recorded: true, elapsed: 23 * time.Hour, want: false},
		{name: "exactly at interval", recorded: true, elapsed: 24 * time.Hour, want: true},
		{name: "past interval", recorded: true, elapsed: 48 * time.Hour, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewRefreshGate(24 * time.Hour)
			if tt.recorded {
				g.Record(base)
			}
			if got := g.Due(base.Add(tt.elapsed)); got != tt.want {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefreshGateReset(t *testing.T) {
	g := NewRefreshGate(time.Hour)
	now := time.Now()
	g.Record(now)
	if g.Due(now) {
		t.Fatal("gate should be closed right after a refresh")
	}
	g.Reset()
	if !g.Due(now) {
		t.Error("gate should be open after Reset")
	}
	if !g.LastRefreshedAt().IsZero() {
		t.Error("LastRefreshedAt should be zero after Reset")
	}
}

func TestRefreshGateNextDue(t *testing.T) {
	g := NewRefreshGate(24 * time.Hour)
	if !g.NextDue().IsZero() {
		t.Error("NextDue should be zero before any refresh")
	}
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g.Record(at)
	if got, want := g.NextDue(), at.Add(24*time.Hour); !got.Equal(want) {
		t.Errorf("NextDue() = %v, want %v", got, want)
	}
	if g.Due(g.NextDue().Add(-time.Nanosecond)) || !g.Due(g.NextDue()) {
		t.Error("Due should flip exactly at NextDue")
	}
}

func TestRefreshGateDefaultInterval(t *testing.T) {
	if got := NewRefreshGate(0).MinInterval(); got != DefaultRefreshInterval {
		t.Errorf("MinInterval() = %v, want %v", got, DefaultRefreshInterval)
	}
}

func TestSessionJSONKeepsPopulatedDistinction(t *testing.T) {
	empty := NewPermissionSet()
	tests := []struct {
		name      string
		session   Session
		populated bool
	}{
		{name: "not fetched", session: Session{UserID: "u"}, populated: false},
		{name: "fetched but empty", session: Session{UserID: "u", Permissions: &empty}, populated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.session)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var out Session
			if err := json.Unmarshal(b, &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := out.HasPermissions(); got != tt.populated {
				t.Errorf("HasPermissions() = %v, want %v (json %s)", got, tt.populated, b)
			}
		})
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	set := NewPermissionSet(PermissionDownload)
	s := &Session{UserID: "u", Permissions: &set, CanDownload: true}
	c := s.Clone()
	c.mergePermissions(NewPermissionSet(PermissionStreamBeginner))

	if !s.Permissions.Has(PermissionDownload) || !s.CanDownload {
		t.Error("mutating the clone changed the original")
	}
	if c.CanDownload {
		t.Error("clone should have lost the download capability")
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusInitial: "initial",
		StatusLoading: "loading",
		StatusHasData: "has_data",
		StatusFailed:  "failed",
		Status(42):    "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

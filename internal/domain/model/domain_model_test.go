//go:build !integration

package model

import (
	"errors"
	"fmt"
	"testing"

	"clinic-relay/internal/domain"
)

// --- Clinic Model Tests ---

func TestNewClinic(t *testing.T) {
	t.Run("should create a new clinic successfully", func(t *testing.T) {
		c, err := NewClinic("Clínica Sorriso", "5511999990000", "Atenda com cordialidade.", 100, true)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if c == nil {
			t.Fatal("expected clinic to be non-nil, but got nil")
		}
		if c.MessagesUsed != 0 {
			t.Errorf("expected a new clinic to start with 0 used messages, got %d", c.MessagesUsed)
		}
		if c.Chats == nil || len(c.Chats) != 0 {
			t.Error("expected a new clinic to start with an empty chat map")
		}
	})

	t.Run("should fail with invalid arguments", func(t *testing.T) {
		testCases := []struct {
			name  string
			cname string
			phone string
			limit int
		}{
			{"empty name", "", "5511999990000", 100},
			{"empty phone", "Clínica Sorriso", "", 100},
			{"zero limit", "Clínica Sorriso", "5511999990000", 0},
			{"negative limit", "Clínica Sorriso", "5511999990000", -5},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				c, err := NewClinic(tc.cname, tc.phone, "", tc.limit, true)
				if err == nil {
					t.Fatalf("expected an error for %s, but got nil", tc.name)
				}
				if c != nil {
					t.Error("expected clinic to be nil on error, but it was not")
				}
				if !errors.Is(err, domain.ErrInvalidArgument) {
					t.Errorf("expected error to be ErrInvalidArgument, but got %T", err)
				}
			})
		}
	})
}

func TestClinicAdmit(t *testing.T) {
	testCases := []struct {
		name    string
		active  bool
		used    int
		limit   int
		wantErr error
	}{
		{"active under limit", true, 0, 2, nil},
		{"active one below limit", true, 1, 2, nil},
		{"active at limit", true, 2, 2, domain.ErrQuotaExceeded},
		{"active over limit", true, 3, 2, domain.ErrQuotaExceeded},
		{"inactive under limit", false, 0, 2, domain.ErrClinicInactive},
		{"inactive over limit", false, 5, 2, domain.ErrClinicInactive},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Clinic{Name: "C", Phone: "1", MonthlyLimit: tc.limit, MessagesUsed: tc.used, Active: tc.active}
			err := c.Admit()
			if tc.wantErr == nil && err != nil {
				t.Fatalf("expected admission, got %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if c.MessagesUsed != tc.used {
				t.Errorf("Admit must not mutate the counter: had %d, got %d", tc.used, c.MessagesUsed)
			}
		})
	}
}

func TestClinicSystemPrompt(t *testing.T) {
	c := &Clinic{Name: "C", Phone: "1", MonthlyLimit: 1, Active: true}
	if got := c.SystemPrompt(); got != DefaultPrompt {
		t.Errorf("expected default prompt fallback, got %q", got)
	}
	c.Prompt = "Seja objetivo."
	if got := c.SystemPrompt(); got != "Seja objetivo." {
		t.Errorf("expected configured prompt, got %q", got)
	}
}

// --- Chat / Context Window Tests ---

func TestChatAppendCapsHistory(t *testing.T) {
	chat := NewChat()
	for i := 0; i < 23; i++ {
		chat.Append(Turn{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	got := chat.History()
	if len(got) != MaxTurns {
		t.Fatalf("expected exactly %d retained turns, got %d", MaxTurns, len(got))
	}
	// Oldest dropped first; relative order preserved.
	for i, turn := range got {
		want := fmt.Sprintf("m%d", 23-MaxTurns+i)
		if turn.Content != want {
			t.Errorf("turn %d: expected %q, got %q", i, want, turn.Content)
		}
	}
}

func TestChatHistoryIsACopy(t *testing.T) {
	chat := NewChat()
	chat.Append(Turn{Role: RoleUser, Content: "hello"})
	h := chat.History()
	h[0].Content = "mutated"
	if chat.Context[0].Content != "hello" {
		t.Error("History must return a copy, not the backing slice")
	}
}

func TestChatTouch(t *testing.T) {
	chat := NewChat()
	chat.Touch("Oi", "1700000000")
	if chat.LastMessage != "Oi" || chat.Timestamp != "1700000000" {
		t.Errorf("unexpected chat metadata: %+v", chat)
	}
}

// --- Dataset Tests ---

func mustClinic(t *testing.T, name, phone string, limit int) *Clinic {
	t.Helper()
	c, err := NewClinic(name, phone, "", limit, true)
	if err != nil {
		t.Fatalf("clinic fixture: %v", err)
	}
	return c
}

func TestDatasetAdd(t *testing.T) {
	ds := NewDataset()
	if err := ds.Add("c1", mustClinic(t, "A", "111", 10)); err != nil {
		t.Fatalf("first add: %v", err)
	}

	if err := ds.Add("c1", mustClinic(t, "B", "222", 10)); !errors.Is(err, domain.ErrClinicExists) {
		t.Errorf("duplicate id: expected ErrClinicExists, got %v", err)
	}
	if err := ds.Add("c2", mustClinic(t, "B", "111", 10)); !errors.Is(err, domain.ErrPhoneInUse) {
		t.Errorf("duplicate phone: expected ErrPhoneInUse, got %v", err)
	}
	if err := ds.Add("", mustClinic(t, "B", "222", 10)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("empty id: expected ErrInvalidArgument, got %v", err)
	}
	if len(ds.Clinics) != 1 {
		t.Errorf("rejected adds must not grow the dataset, got %d clinics", len(ds.Clinics))
	}
}

func TestDatasetResolve(t *testing.T) {
	ds := NewDataset()
	_ = ds.Add("c1", mustClinic(t, "A", "111", 10))
	_ = ds.Add("c2", mustClinic(t, "B", "222", 10))

	if got := ds.Resolve("222"); got != "c2" {
		t.Errorf("expected c2, got %s", got)
	}
	if got := ds.Resolve("999"); got != UnknownClinicID {
		t.Errorf("expected unknown sentinel, got %s", got)
	}

	// Datasets created out of band may carry duplicates; the first id
	// in sorted order wins, deterministically.
	ds.Clinics["c0"] = &Clinic{Name: "Z", Phone: "222", MonthlyLimit: 1, Active: true}
	if got := ds.Resolve("222"); got != "c0" {
		t.Errorf("expected deterministic first match c0, got %s", got)
	}
}

func TestDatasetHistory(t *testing.T) {
	ds := NewDataset()
	_ = ds.Add("c1", mustClinic(t, "A", "111", 10))

	if got := ds.History("missing", "p1"); len(got) != 0 {
		t.Errorf("unknown clinic should yield empty history, got %d turns", len(got))
	}
	if got := ds.History("c1", "p1"); len(got) != 0 {
		t.Errorf("unknown patient should yield empty history, got %d turns", len(got))
	}

	ds.Clinics["c1"].Chat("p1").Append(Turn{Role: RoleUser, Content: "oi"})
	if got := ds.History("c1", "p1"); len(got) != 1 || got[0].Content != "oi" {
		t.Errorf("unexpected history: %+v", got)
	}
}

func TestDatasetResetUsage(t *testing.T) {
	ds := NewDataset()
	_ = ds.Add("c1", mustClinic(t, "A", "111", 10))
	_ = ds.Add("c2", mustClinic(t, "B", "222", 10))
	ds.Clinics["c1"].MessagesUsed = 7

	if n := ds.ResetUsage(); n != 1 {
		t.Errorf("expected 1 clinic touched, got %d", n)
	}
	if ds.Clinics["c1"].MessagesUsed != 0 {
		t.Error("expected counter zeroed")
	}
}

package handler

import (
	"net/http"
	"slices"
	"testing"

	"github.com/buddybox/buddybox/internal/api/dto"
)

func TestCleanup(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		seed          int
		expectDeleted int
	}{
		{name: "explicit keep count", body: `{"keepCount":1}`, seed: 4, expectDeleted: 3},
		{name: "default keep count", body: "", seed: 4, expectDeleted: 2},
		{name: "keep more than exist", body: `{"keepCount":10}`, seed: 3, expectDeleted: 0},
		{name: "keep none", body: `{"keepCount":0}`, seed: 2, expectDeleted: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			ids := env.seedAutomated(t, tt.seed)

			w := env.makeRequest(t, http.MethodPost, "/backups/cleanup", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
			}
			resp := parseResponse[dto.CleanupResponse](t, w)
			if len(resp.Deleted) != tt.expectDeleted {
				t.Fatalf("expected %d deleted, got %d", tt.expectDeleted, len(resp.Deleted))
			}
			// The oldest records go first.
			for _, id := range ids[:tt.expectDeleted] {
				if !slices.Contains(resp.Deleted, id) {
					t.Errorf("expected %s to be deleted", id)
				}
			}

			w = env.makeRequest(t, http.MethodGet, "/backups", "")
			list := parseResponse[dto.BackupListResponse](t, w)
			if want := tt.seed - tt.expectDeleted; len(list.Backups) != want {
				t.Errorf("expected %d remaining, got %d", want, len(list.Backups))
			}
		})
	}
}

func TestCleanupRejectsNegativeKeepCount(t *testing.T) {
	env := setupTestEnv(t)
	env.seedAutomated(t, 2)

	w := env.makeRequest(t, http.MethodPost, "/backups/cleanup", `{"keepCount":-1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	w = env.makeRequest(t, http.MethodGet, "/backups", "")
	list := parseResponse[dto.BackupListResponse](t, w)
	if len(list.Backups) != 2 {
		t.Errorf("expected nothing deleted, got %d remaining", len(list.Backups))
	}
}

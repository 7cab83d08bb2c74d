package handler

import (
	"net/http"
	"testing"

	"github.com/buddybox/buddybox/internal/api/dto"
)

func TestGetScheduleDefault(t *testing.T) {
	env := setupTestEnv(t)

	w := env.makeRequest(t, http.MethodGet, "/backups/schedule", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse[dto.ScheduleResponse](t, w)
	if resp.Schedule.Enabled {
		t.Error("expected schedule to be disabled by default")
	}
	if resp.Schedule.FullBackup.Cron != "0 2 * * 0" {
		t.Errorf("unexpected default full backup cron %q", resp.Schedule.FullBackup.Cron)
	}
}

func TestUpdateSchedule(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name: "valid schedule",
			body: `{"schedule":{"enabled":true,
				"fullBackup":{"cron":"30 1 * * 6","enabled":true},
				"dbBackup":{"cron":"0 */6 * * *","enabled":true},
				"configBackup":{"cron":"0 4 * * 1","enabled":false}}}`,
			expectedStatus: http.StatusOK,
		},
		{
			name: "invalid cron",
			body: `{"schedule":{"enabled":true,
				"fullBackup":{"cron":"every sunday","enabled":true},
				"dbBackup":{"cron":"0 3 * * *","enabled":true},
				"configBackup":{"cron":"0 4 * * 1","enabled":true}}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing cron",
			body: `{"schedule":{"enabled":true,
				"fullBackup":{"enabled":true},
				"dbBackup":{"cron":"0 3 * * *","enabled":true},
				"configBackup":{"cron":"0 4 * * 1","enabled":true}}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing schedule",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)

			w := env.makeRequest(t, http.MethodPut, "/backups/schedule", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			w = env.makeRequest(t, http.MethodGet, "/backups/schedule", "")
			resp := parseResponse[dto.ScheduleResponse](t, w)
			if tt.expectedStatus == http.StatusOK {
				if !resp.Schedule.Enabled || resp.Schedule.DBBackup.Cron != "0 */6 * * *" {
					t.Errorf("expected saved schedule, got %+v", resp.Schedule)
				}
				if resp.Schedule.ConfigBackup.Enabled {
					t.Error("expected config backup entry to stay disabled")
				}
			} else if resp.Schedule.Enabled {
				t.Error("rejected update must not be saved")
			}
		})
	}
}

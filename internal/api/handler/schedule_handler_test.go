package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/nvaziri/pgvault/internal/api/dto"
)

func TestCreateScheduleEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	req := dto.CreateScheduleRequest{
		Name:          "nightly",
		Frequency:     "daily",
		TimeOfDay:     "03:00",
		RetentionDays: 30,
	}
	w := env.makeRequest(t, http.MethodPost, "/backup-schedules", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d\nBody: %s", w.Code, w.Body.String())
	}

	var resp dto.ScheduleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.ID == 0 {
		t.Error("expected a persisted id")
	}
	if !resp.Active {
		t.Error("schedules default to active")
	}

	// the timer got registered
	if len(env.registrar.registered) != 1 || env.registrar.registered[0] != resp.ID {
		t.Errorf("registrar calls = %v, want [%d]", env.registrar.registered, resp.ID)
	}
}

func TestCreateScheduleValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		req  dto.CreateScheduleRequest
	}{
		{
			name: "missing name",
			req:  dto.CreateScheduleRequest{Frequency: "daily", TimeOfDay: "03:00"},
		},
		{
			name: "unknown frequency",
			req:  dto.CreateScheduleRequest{Name: "x", Frequency: "hourly", TimeOfDay: "03:00"},
		},
		{
			name: "bad time of day",
			req:  dto.CreateScheduleRequest{Name: "x", Frequency: "daily", TimeOfDay: "25:00"},
		},
		{
			name: "day of week out of range",
			req:  dto.CreateScheduleRequest{Name: "x", Frequency: "weekly", TimeOfDay: "03:00", DayOfWeek: ptr(9)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)

			w := env.makeRequest(t, http.MethodPost, "/backup-schedules", tt.req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d\nBody: %s", w.Code, w.Body.String())
			}
			if len(env.registrar.registered) != 0 {
				t.Error("invalid schedules must not reach the registrar")
			}
		})
	}
}

func TestUpdateScheduleEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	create := dto.CreateScheduleRequest{Name: "nightly", Frequency: "daily", TimeOfDay: "03:00", RetentionDays: 30}
	w := env.makeRequest(t, http.MethodPost, "/backup-schedules", create)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}
	var created dto.ScheduleResponse
	json.Unmarshal(w.Body.Bytes(), &created)

	update := dto.UpdateScheduleRequest{TimeOfDay: ptr("04:30"), Active: ptr(false)}
	w = env.makeRequest(t, http.MethodPut, "/backup-schedules/1", update)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d\nBody: %s", w.Code, w.Body.String())
	}

	var resp dto.ScheduleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.TimeOfDay != "04:30" {
		t.Errorf("time_of_day = %q, want 04:30", resp.TimeOfDay)
	}
	if resp.Active {
		t.Error("schedule should be deactivated")
	}

	// the registrar saw both the create and the update
	if len(env.registrar.registered) != 2 {
		t.Errorf("registrar calls = %v, want create + update", env.registrar.registered)
	}
}

func TestCreateScheduleRejectsMismatchedDayField(t *testing.T) {
	env := setupTestEnv(t)

	req := dto.CreateScheduleRequest{
		Name:       "weekly",
		Frequency:  "weekly",
		TimeOfDay:  "03:00",
		DayOfWeek:  ptr(3),
		DayOfMonth: ptr(15),
	}
	w := env.makeRequest(t, http.MethodPost, "/backup-schedules", req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d\nBody: %s", w.Code, w.Body.String())
	}
}

func TestUpdateScheduleFrequencyDropsStaleDayField(t *testing.T) {
	env := setupTestEnv(t)

	create := dto.CreateScheduleRequest{Name: "job", Frequency: "weekly", TimeOfDay: "03:00", DayOfWeek: ptr(3), RetentionDays: 30}
	w := env.makeRequest(t, http.MethodPost, "/backup-schedules", create)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d\nBody: %s", w.Code, w.Body.String())
	}

	update := dto.UpdateScheduleRequest{Frequency: ptr("monthly"), DayOfMonth: ptr(15)}
	w = env.makeRequest(t, http.MethodPut, "/backup-schedules/1", update)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d\nBody: %s", w.Code, w.Body.String())
	}

	var resp dto.ScheduleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.DayOfWeek != nil {
		t.Errorf("day_of_week = %v, want cleared after the frequency change", *resp.DayOfWeek)
	}
	if resp.DayOfMonth == nil || *resp.DayOfMonth != 15 {
		t.Errorf("day_of_month = %v, want 15", resp.DayOfMonth)
	}
}

func TestUpdateScheduleNotFound(t *testing.T) {
	env := setupTestEnv(t)

	update := dto.UpdateScheduleRequest{TimeOfDay: ptr("04:30")}
	w := env.makeRequest(t, http.MethodPut, "/backup-schedules/99", update)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestDeleteScheduleEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	create := dto.CreateScheduleRequest{Name: "nightly", Frequency: "daily", TimeOfDay: "03:00", RetentionDays: 30}
	w := env.makeRequest(t, http.MethodPost, "/backup-schedules", create)
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", w.Code)
	}

	w = env.makeRequest(t, http.MethodDelete, "/backup-schedules/1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d\nBody: %s", w.Code, w.Body.String())
	}

	// timer stopped before the row went away
	if len(env.registrar.stopped) != 1 || env.registrar.stopped[0] != 1 {
		t.Errorf("stopped = %v, want [1]", env.registrar.stopped)
	}

	w = env.makeRequest(t, http.MethodGet, "/backup-schedules/1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestListSchedulesOrderedByName(t *testing.T) {
	env := setupTestEnv(t)

	for _, name := range []string{"weekly-report", "archive", "nightly"} {
		req := dto.CreateScheduleRequest{Name: name, Frequency: "daily", TimeOfDay: "03:00", RetentionDays: 7}
		if w := env.makeRequest(t, http.MethodPost, "/backup-schedules", req); w.Code != http.StatusCreated {
			t.Fatalf("create %q failed: %d", name, w.Code)
		}
	}

	w := env.makeRequest(t, http.MethodGet, "/backup-schedules", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	resp := parseScheduleListResponse(t, w)
	want := []string{"archive", "nightly", "weekly-report"}
	if len(resp.Items) != len(want) {
		t.Fatalf("items = %d, want %d", len(resp.Items), len(want))
	}
	for i, name := range want {
		if resp.Items[i].Name != name {
			t.Errorf("item[%d] = %q, want %q", i, resp.Items[i].Name, name)
		}
	}
}

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/p-n-ai/campus/internal/platform/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "history.subject.yaml"), []byte("id: hist\nname: History\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "01.unit.yaml"), []byte(`
id: hist-u1
subject_id: hist
number: 1
title: Origins
blocks:
  - id: b1
    order: 1
    type: core
    title: Sources
`), 0o644)

	return &config.Config{
		Storage:        config.StorageMemory,
		Timeouts:       config.TimeoutConfig{Request: time.Second, Bootstrap: 2 * time.Second},
		Player:         config.PlayerConfig{SessionTTL: time.Hour},
		CurriculumPath: dir,
		TeacherIDs:     []string{"t1"},
	}
}

func TestHealthEndpoints(t *testing.T) {
	handler, cleanup, err := build(t.Context(), memoryConfig(t), slog.Default())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer cleanup()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200 without backends",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestBuild_SeedsCurriculum(t *testing.T) {
	handler, cleanup, err := build(t.Context(), memoryConfig(t), slog.Default())
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("X-User-ID", "t1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Session struct {
			Profile struct {
				Role string `json:"role"`
			} `json:"profile"`
		} `json:"session"`
		Subjects []struct {
			ID         string `json:"id"`
			UnitsCount int    `json:"units_count"`
		} `json:"subjects"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding dashboard: %v", err)
	}
	if got.Session.Profile.Role != "teacher" {
		t.Errorf("role = %q, want teacher", got.Session.Profile.Role)
	}
	if len(got.Subjects) != 1 || got.Subjects[0].ID != "hist" || got.Subjects[0].UnitsCount != 1 {
		t.Errorf("subjects = %+v, want hist with 1 unit", got.Subjects)
	}
}

func TestBuild_BadCurriculumPath(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.CurriculumPath = filepath.Join(t.TempDir(), "missing")

	if _, _, err := build(t.Context(), cfg, slog.Default()); err == nil {
		t.Fatal("build() with missing curriculum dir should fail")
	}
}

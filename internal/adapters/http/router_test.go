package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkarev/pokerboard/internal/app"
	"github.com/dkarev/pokerboard/internal/config"
	"github.com/dkarev/pokerboard/internal/core"
	"github.com/dkarev/pokerboard/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Mode:        "release",
		StaticPath:  t.TempDir(),
		ReadLimit:   32768,
		PingPeriod:  30 * time.Second,
		GracePeriod: 50 * time.Millisecond,
		JoinLimit:   10,
		Secret:      "test-secret",
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *app.Coordinator) {
	t.Helper()
	cfg := testConfig(t)
	store := core.NewSessionStore()
	registry := app.NewRegistry(cfg.GracePeriod)
	caster := app.NewBroadcaster(store, registry)
	coord := app.NewCoordinator(store, registry, caster)
	t.Cleanup(registry.Shutdown)
	return SetupRouter(context.Background(), cfg, coord), coord
}

func postJSON(t *testing.T, r *gin.Engine, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpsertParticipantEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid upsert",
			body:       `{"roomId":"R","userId":"u1","name":"Alice","role":"dev"}`,
			wantStatus: 204,
		},
		{
			name:       "role optional",
			body:       `{"roomId":"R","userId":"u2","name":"Bob"}`,
			wantStatus: 204,
		},
		{
			name:       "blank name",
			body:       `{"roomId":"R","userId":"u1","name":"   "}`,
			wantStatus: 400,
			wantError:  "Invalid payload",
		},
		{
			name:       "blank room id",
			body:       `{"roomId":"","userId":"u1","name":"Alice"}`,
			wantStatus: 400,
			wantError:  "Invalid payload",
		},
		{
			name:       "unknown role",
			body:       `{"roomId":"R","userId":"u1","name":"Alice","role":"manager"}`,
			wantStatus: 400,
			wantError:  "Invalid payload",
		},
		{
			name:       "malformed json",
			body:       `{"roomId":`,
			wantStatus: 400,
			wantError:  "Invalid JSON",
		},
	}

	r, _ := newTestRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/api/upsert-participant", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantError != "" && !strings.Contains(w.Body.String(), tt.wantError) {
				t.Errorf("body = %s, want error %q", w.Body.String(), tt.wantError)
			}
		})
	}
}

func TestSubmitVoteEndpoint(t *testing.T) {
	r, coord := newTestRouter(t)
	if err := coord.UpsertParticipant("R", "u1", "Alice", domain.RoleNone); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"valid vote", `{"roomId":"R","userId":"u1","vote":"5"}`, 204, ""},
		{"retract with null", `{"roomId":"R","userId":"u1","vote":null}`, 204, ""},
		{"vote outside deck", `{"roomId":"R","userId":"u1","vote":"99"}`, 400, "Invalid vote"},
		{"blank user id", `{"roomId":"R","userId":"","vote":"5"}`, 400, "Invalid payload"},
		{"unknown participant discarded", `{"roomId":"R","userId":"ghost","vote":"5"}`, 204, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/api/submit-vote", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantError != "" && !strings.Contains(w.Body.String(), tt.wantError) {
				t.Errorf("body = %s, want error %q", w.Body.String(), tt.wantError)
			}
		})
	}
}

func TestRevealAndResetEndpoints(t *testing.T) {
	r, coord := newTestRouter(t)
	if err := coord.UpsertParticipant("R", "u1", "Alice", domain.RoleNone); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if w := postJSON(t, r, "/api/reveal", `{"roomId":"R"}`); w.Code != 204 {
		t.Fatalf("reveal status = %d", w.Code)
	}
	if got := coord.Snapshot("R").StoryStatus; got != domain.StoryRevealed {
		t.Errorf("status after reveal = %q", got)
	}

	if w := postJSON(t, r, "/api/reset", `{"roomId":"R"}`); w.Code != 204 {
		t.Fatalf("reset status = %d", w.Code)
	}
	if got := coord.Snapshot("R").StoryStatus; got != domain.StoryPending {
		t.Errorf("status after reset = %q", got)
	}

	if w := postJSON(t, r, "/api/reveal", `{"roomId":"  "}`); w.Code != 400 {
		t.Errorf("blank room reveal status = %d, want 400", w.Code)
	}
	if w := postJSON(t, r, "/api/reset", `{}`); w.Code != 400 {
		t.Errorf("blank room reset status = %d, want 400", w.Code)
	}
}

func TestRoomSnapshotEndpoint(t *testing.T) {
	r, coord := newTestRouter(t)
	if err := coord.UpsertParticipant("R", "u1", "Alice", domain.RoleDev); err != nil {
		t.Fatalf("seed: %v", err)
	}
	v := domain.Vote("5")
	if err := coord.SubmitVote("R", "u1", &v); err != nil {
		t.Fatalf("vote: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/rooms/R", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		RoomID  string        `json:"roomId"`
		Session core.Snapshot `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RoomID != "R" || len(resp.Session.Participants) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	p := resp.Session.Participants[0]
	if !p.HasVoted || p.Vote != nil {
		t.Errorf("pending snapshot must mask the vote: %+v", p)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)

	put := httptest.NewRequest("PUT", "/api/profile", bytes.NewBufferString(`{"name":"Alice","role":"qa"}`))
	put.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, put)
	if w.Code != 204 {
		t.Fatalf("save profile status = %d (body %s)", w.Code, w.Body.String())
	}

	get := httptest.NewRequest("GET", "/api/profile", nil)
	for _, c := range w.Result().Cookies() {
		get.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, get)
	if w2.Code != 200 {
		t.Fatalf("get profile status = %d", w2.Code)
	}

	var profile struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.Name != "Alice" || profile.Role != "qa" {
		t.Errorf("profile = %+v", profile)
	}

	w3 := httptest.NewRecorder()
	badPut := httptest.NewRequest("PUT", "/api/profile", bytes.NewBufferString(`{"name":"Alice","role":"boss"}`))
	badPut.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w3, badPut)
	if w3.Code != 400 {
		t.Errorf("invalid role accepted: status %d", w3.Code)
	}
}

func TestNotFoundRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest("POST", "/api/unknown", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 404 {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

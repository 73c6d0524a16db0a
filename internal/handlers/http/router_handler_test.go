package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/internal/core/services"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/middleware"
)

func decodeBody(w *httptest.ResponseRecorder, out interface{}) error {
	return json.Unmarshal(w.Body.Bytes(), out)
}

type fakeSink struct {
	mu     sync.Mutex
	events []domain.InputEvent
	err    error
}

func (f *fakeSink) Submit(_ context.Context, event domain.InputEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSink) last(t *testing.T) domain.InputEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.events)
	return f.events[len(f.events)-1]
}

type stubRunner struct{}

func (stubRunner) Start(context.Context, domain.Game) error { return nil }
func (stubRunner) Stop(context.Context) error               { return nil }
func (stubRunner) Running() bool                            { return false }

type stubPad struct{}

func (stubPad) Press([]domain.Button, time.Duration) {}
func (stubPad) Held() []domain.Button                { return nil }
func (stubPad) ReleaseAll()                          {}
func (stubPad) Close()                               {}

// asSubject simulates what the auth middleware stores for a valid token.
func asSubject(subject string, privilege domain.Privilege) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextSubject, subject)
		c.Set(middleware.ContextPrivilege, privilege)
		c.Next()
	}
}

func newRouterTestServer(t *testing.T, sink ports.InputSink, store ports.ModerationStore, privilege domain.Privilege) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zaptest.NewLogger(t).Sugar()
	registry := services.NewGameRegistry([]domain.Game{
		{Name: "Tetris"},
		{Name: "Pokemon Red"},
	}, store, stubRunner{}, stubPad{}, logger)

	handler := NewRouterHandler(sink, store, registry, func() bool { return true }, logger)

	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(logger), asSubject("viewer_one", privilege))
	router.GET("/api/v1/status", handler.Status)
	router.POST("/api/v1/command", handler.Command)
	return router
}

func TestStatusReportsRouterState(t *testing.T) {
	store := services.NewModerationStore()
	store.SetMode(domain.ModeAnarchy)
	store.SetActiveGame("Tetris")
	store.AddOperator("helper")
	store.Block("grief_bot", nil)
	store.SetCooldown(15)

	router := newRouterTestServer(t, &fakeSink{}, store, domain.PrivilegeStandard)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Mode            string            `json:"mode"`
		ActiveGame      string            `json:"active_game"`
		Games           []domain.GameInfo `json:"games"`
		Operators       []string          `json:"operators"`
		Blocks          int               `json:"blocks"`
		CooldownSeconds int64             `json:"cooldown_seconds"`
		UptimeSeconds   int64             `json:"uptime_seconds"`
		ChatConnected   bool              `json:"chat_connected"`
	}
	require.NoError(t, decodeBody(w, &resp))

	assert.Equal(t, "Anarchy", resp.Mode)
	assert.Equal(t, "Tetris", resp.ActiveGame)
	assert.Equal(t, []string{"helper"}, resp.Operators)
	assert.Equal(t, 1, resp.Blocks)
	assert.Equal(t, int64(15), resp.CooldownSeconds)
	assert.True(t, resp.ChatConnected)

	require.Len(t, resp.Games, 2)
	assert.Equal(t, domain.GameInfo{Name: "Tetris", Active: true}, resp.Games[0])
	assert.Equal(t, domain.GameInfo{Name: "Pokemon Red", Active: false}, resp.Games[1])
}

func TestCommandQueuesInputEvent(t *testing.T) {
	sink := &fakeSink{}
	router := newRouterTestServer(t, sink, services.NewModerationStore(), domain.PrivilegeBroadcaster)

	w := postJSON(router, "/api/v1/command", `{"text":"mash a"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		EventID string `json:"event_id"`
	}
	require.NoError(t, decodeBody(w, &resp))
	require.NotEmpty(t, resp.EventID)

	event := sink.last(t)
	assert.Equal(t, resp.EventID, event.ID)
	assert.Equal(t, domain.OriginAPI, event.Origin)
	assert.Equal(t, "viewer_one", event.Sender)
	assert.Equal(t, domain.RoleBroadcaster, event.Role)
	assert.Equal(t, "mash a", event.Text)
}

func TestCommandMapsPrivilegeToRole(t *testing.T) {
	cases := []struct {
		privilege domain.Privilege
		role      domain.ChannelRole
	}{
		{domain.PrivilegeStandard, domain.RoleNone},
		{domain.PrivilegeOperator, domain.RoleNone},
		{domain.PrivilegeChannelModerator, domain.RoleModerator},
		{domain.PrivilegeBroadcaster, domain.RoleBroadcaster},
	}

	for _, tc := range cases {
		sink := &fakeSink{}
		router := newRouterTestServer(t, sink, services.NewModerationStore(), tc.privilege)

		w := postJSON(router, "/api/v1/command", `{"text":"left"}`)
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, tc.role, sink.last(t).Role, "privilege %v", tc.privilege)
	}
}

func TestCommandRejectsEmptyText(t *testing.T) {
	sink := &fakeSink{}
	router := newRouterTestServer(t, sink, services.NewModerationStore(), domain.PrivilegeStandard)

	for _, body := range []string{`{}`, `{"text":""}`, `{"text":"   "}`, `not json`} {
		w := postJSON(router, "/api/v1/command", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
	assert.Empty(t, sink.events)
}

func TestCommandReportsSinkUnavailable(t *testing.T) {
	sink := &fakeSink{err: errors.New("stream closed")}
	router := newRouterTestServer(t, sink, services.NewModerationStore(), domain.PrivilegeStandard)

	w := postJSON(router, "/api/v1/command", `{"text":"up"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, decodeBody(w, &resp))
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error)
}

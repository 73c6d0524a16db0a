package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
	"github.com/shift-devs/twitch-gamepad/internal/infrastructure/middleware"
	apperrors "github.com/shift-devs/twitch-gamepad/pkg/errors"
	"github.com/shift-devs/twitch-gamepad/pkg/utils"
)

const maxCommandRunes = 500

// RouterHandler serves the status and command-injection endpoints.
type RouterHandler struct {
	sink          ports.InputSink
	store         ports.ModerationStore
	registry      ports.GameRegistry
	chatConnected func() bool
	startedAt     time.Time
	logger        *zap.SugaredLogger
}

func NewRouterHandler(
	sink ports.InputSink,
	store ports.ModerationStore,
	registry ports.GameRegistry,
	chatConnected func() bool,
	logger *zap.SugaredLogger,
) *RouterHandler {
	return &RouterHandler{
		sink:          sink,
		store:         store,
		registry:      registry,
		chatConnected: chatConnected,
		startedAt:     time.Now(),
		logger:        logger,
	}
}

// HandlerGroup combines the auth and router handlers into the single
// surface the server mounts.
type HandlerGroup struct {
	*AuthHandler
	*RouterHandler
}

var _ ports.HTTPHandler = (*HandlerGroup)(nil)

func NewHandlerGroup(auth *AuthHandler, router *RouterHandler) *HandlerGroup {
	return &HandlerGroup{AuthHandler: auth, RouterHandler: router}
}

// Status reports the router's moderation and game state.
func (h *RouterHandler) Status(c *gin.Context) {
	now := time.Now()

	c.JSON(http.StatusOK, gin.H{
		"mode":             h.store.CurrentMode().String(),
		"active_game":      h.store.ActiveGame(),
		"games":            h.registry.List(),
		"operators":        h.store.Operators(),
		"blocks":           len(h.store.Blocks(now)),
		"cooldown_seconds": h.store.Cooldown(),
		"uptime_seconds":   int64(now.Sub(h.startedAt).Seconds()),
		"chat_connected":   h.chatConnected != nil && h.chatConnected(),
	})
}

type commandRequest struct {
	Text string `json:"text" binding:"required"`
}

// Command injects one command line into the input stream. The 202 response
// only acknowledges queueing: the outcome arrives on the event feed.
func (h *RouterHandler) Command(c *gin.Context) {
	var req commandRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInput("text is required"))
		return
	}

	text := utils.SanitizeMessage(req.Text)
	if text == "" {
		c.Error(apperrors.NewInvalidInput("text is empty"))
		return
	}
	if len([]rune(text)) > maxCommandRunes {
		c.Error(apperrors.NewInvalidInput("text too long"))
		return
	}

	subject := c.GetString(middleware.ContextSubject)
	if subject == "" {
		subject = tokenSubject
	}

	event := domain.InputEvent{
		ID:      uuid.NewString(),
		Origin:  domain.OriginAPI,
		Sender:  domain.NormalizeHandle(subject),
		Display: subject,
		Role:    roleForPrivilege(contextPrivilege(c)),
		Text:    text,
	}

	if err := h.sink.Submit(c.Request.Context(), event); err != nil {
		h.logger.Warnw("api command not queued", "error", err)
		c.Error(apperrors.NewServiceUnavailable("input stream unavailable"))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"event_id": event.ID})
}

func contextPrivilege(c *gin.Context) domain.Privilege {
	value, ok := c.Get(middleware.ContextPrivilege)
	if !ok {
		return domain.PrivilegeStandard
	}
	privilege, ok := value.(domain.Privilege)
	if !ok {
		return domain.PrivilegeStandard
	}
	return privilege
}

// roleForPrivilege maps a token privilege back onto the channel role the
// privilege resolver understands.
func roleForPrivilege(p domain.Privilege) domain.ChannelRole {
	switch {
	case p >= domain.PrivilegeBroadcaster:
		return domain.RoleBroadcaster
	case p >= domain.PrivilegeChannelModerator:
		return domain.RoleModerator
	default:
		return domain.RoleNone
	}
}

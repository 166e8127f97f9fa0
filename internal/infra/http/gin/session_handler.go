package ginserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"

	"rentride/internal/app/dto"
	"rentride/internal/app/policies"
	"rentride/internal/app/reconcile"
	"rentride/internal/app/session"
)

// SessionService is the part of the session manager the HTTP layer drives.
type SessionService interface {
	Open(ctx context.Context, scope policies.Scope) (*session.Session, error)
	Get(id session.ID) (*session.Session, error)
	Close(id session.ID) error
	Resync(ctx context.Context, id session.ID) error
}

type SessionHandler struct {
	Sessions  SessionService
	Logger    *slog.Logger
	Heartbeat time.Duration
}

type openSessionRequest struct {
	Scope string `json:"scope"`
}

func (h SessionHandler) Open(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Scope == "" {
		req.Scope = c.Query("scope")
	}
	scope, err := policies.ParseScope(req.Scope)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	sess, err := h.Sessions.Open(c.Request.Context(), scope)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, sessionDTO(sess))
}

func (h SessionHandler) Get(c *gin.Context) {
	sess, err := h.Sessions.Get(session.ID(c.Param("id")))
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, sessionDTO(sess))
}

func (h SessionHandler) Close(c *gin.Context) {
	if err := h.Sessions.Close(session.ID(c.Param("id"))); err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h SessionHandler) Resync(c *gin.Context) {
	id := session.ID(c.Param("id"))
	if err := h.Sessions.Resync(c.Request.Context(), id); err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	sess, err := h.Sessions.Get(id)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.ViewFromDomain(sess.ID, sess.Snapshot()))
}

// Stream pushes the session view as server-sent events, one "view" event per
// revision. Views that pile up while the client is slow collapse into the
// latest one.
func (h SessionHandler) Stream(c *gin.Context) {
	sess, err := h.Sessions.Get(session.ID(c.Param("id")))
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	store := sess.Store()

	var (
		mu     sync.Mutex
		latest reconcile.View
		signal = make(chan struct{}, 1)
	)
	subID := store.Subscribe(func(v reconcile.View) {
		mu.Lock()
		latest = v
		mu.Unlock()
		select {
		case signal <- struct{}{}:
		default:
		}
	})
	defer store.Unsubscribe(subID)

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-signal:
			mu.Lock()
			view := latest
			mu.Unlock()
			c.SSEvent("view", dto.ViewFromDomain(sess.ID, view))
			return true
		case <-ticker.C:
			if store.Closed() {
				c.SSEvent("closed", gin.H{"sessionId": string(sess.ID)})
				return false
			}
			c.SSEvent("ping", gin.H{"at": time.Now().UTC().Format(time.RFC3339)})
			return true
		}
	})
}

func sessionDTO(sess *session.Session) dto.Session {
	return dto.Session{
		ID:       string(sess.ID),
		Scope:    string(sess.Scope),
		OpenedAt: sess.OpenedAt.UTC().Format(time.RFC3339),
		View:     dto.ViewFromDomain(sess.ID, sess.Snapshot()),
	}
}

var _ SessionHTTP = SessionHandler{}

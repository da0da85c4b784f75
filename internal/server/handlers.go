package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rbergman/wordwall/internal/apperrors"
	"github.com/rbergman/wordwall/internal/domain"
)

type createSessionRequest struct {
	Title string `json:"title"`
}

type createSessionResponse struct {
	ID     string               `json:"id"`
	Title  string               `json:"title"`
	Status domain.SessionStatus `json:"status"`
}

type submitRequest struct {
	Text        string `json:"text"`
	InputMethod string `json:"inputMethod"`
	ClientID    string `json:"clientId"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return apperrors.Validation("title must not be empty")
	}

	session, err := s.engine.CreateSession(c.Request().Context(), title)
	if err != nil {
		return apperrors.Internal("failed to create session", err)
	}
	return c.JSON(http.StatusCreated, createSessionResponse{
		ID:     session.ID.String(),
		Title:  session.Title,
		Status: session.Status,
	})
}

func (s *Server) handleListSessions(c echo.Context) error {
	sessions, err := s.engine.ListOpenSessions(c.Request().Context())
	if err != nil {
		return apperrors.Internal("failed to list sessions", err)
	}
	resp := make([]createSessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		resp = append(resp, createSessionResponse{
			ID:     sess.ID.String(),
			Title:  sess.Title,
			Status: sess.Status,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSubmit(c echo.Context) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return err
	}

	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if req.ClientID == "" {
		return apperrors.Validation("clientId must not be empty")
	}
	method := domain.InputMethod(req.InputMethod)
	if method != domain.InputText && method != domain.InputVoice {
		return apperrors.Validation("inputMethod must be text or voice")
	}

	result, err := s.engine.ProcessSubmission(c.Request().Context(), sessionID, req.ClientID, req.Text, method)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusAccepted, result)
}

func (s *Server) handleSnapshot(c echo.Context) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return err
	}

	snap, err := s.engine.Snapshot(c.Request().Context(), sessionID)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleOpenSession(c echo.Context) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return err
	}
	if err := s.engine.OpenSession(c.Request().Context(), sessionID); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCloseSession(c echo.Context) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return err
	}
	if err := s.engine.CloseSession(c.Request().Context(), sessionID); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeleteWord(c echo.Context) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return err
	}
	word := strings.ToLower(strings.TrimSpace(c.Param("word")))
	if word == "" {
		return apperrors.Validation("word must not be empty")
	}
	if err := s.engine.DeleteWord(c.Request().Context(), sessionID, word); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(c echo.Context) error {
	sessionID, err := parseSessionID(c)
	if err != nil {
		return err
	}
	if _, err := s.engine.Snapshot(c.Request().Context(), sessionID); err != nil {
		return mapDomainError(err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return apperrors.Internal("websocket upgrade failed", err)
	}

	if err := s.hub.Register(sessionID, conn); err != nil {
		conn.Close()
		return nil
	}

	// Viewers never send application messages; the read loop only
	// services control frames and detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.hub.Unregister(sessionID, conn)
	slog.Debug("Client disconnected", "session_id", sessionID.String())
	return nil
}

func parseSessionID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid session id")
	}
	return id, nil
}

// mapDomainError translates domain sentinel errors into structured HTTP
// errors.
func mapDomainError(err error) error {
	if rl, ok := domain.AsRateLimited(err); ok {
		return apperrors.RateLimited("submission cooldown active", rl.WaitSeconds())
	}
	switch {
	case errors.Is(err, domain.ErrEmptySubmission):
		return apperrors.Validation("submission is empty")
	case errors.Is(err, domain.ErrSessionNotFound):
		return apperrors.NotFound("session not found")
	case errors.Is(err, domain.ErrSessionClosed):
		return apperrors.Conflict("session is closed")
	default:
		return apperrors.Internal("request failed", err)
	}
}

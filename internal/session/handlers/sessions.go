package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"mezzanine/internal/mezzanine/models"
	"mezzanine/internal/session/service"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Session Handler
// ============================================================

type SessionHandler struct {
	sessions *service.Manager
}

func NewSessionHandler(sessions *service.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type startRequest struct {
	ViewLevelID string `json:"view_level_id"`
}

type pointRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type heightRequest struct {
	Value  any  `json:"value"`
	Cancel bool `json:"cancel"`
}

// Start открывает новую сессию построения антресоли.
func (h *SessionHandler) Start(c fiber.Ctx) error {
	var req startRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
		}
	}

	s, err := h.sessions.Start(context.Background(), req.ViewLevelID)
	if err != nil {
		return sessionError(c, err)
	}

	c.Locals("session", s.ID)
	return c.Status(http.StatusCreated).JSON(s.Snapshot())
}

// Get возвращает текущее состояние сессии.
func (h *SessionHandler) Get(c fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(s.Snapshot())
}

// AddPoint передаёт выбранную точку ожидающей сессии.
func (h *SessionHandler) AddPoint(c fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return sessionError(c, err)
	}

	var req pointRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if req.X == nil || req.Y == nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "x and y required"})
	}

	p := models.Point{X: *req.X, Y: *req.Y}
	if req.Z != nil {
		p.Z = *req.Z
	}
	if err := s.Deliver(p); err != nil {
		return sessionError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

// Finish завершает ввод точек.
func (h *SessionHandler) Finish(c fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return sessionError(c, err)
	}
	if err := s.Finish(); err != nil {
		return sessionError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

// Height отвечает на запрос высоты. {"cancel": true} закрывает диалог.
func (h *SessionHandler) Height(c fiber.Ctx) error {
	s, err := h.lookup(c)
	if err != nil {
		return sessionError(c, err)
	}

	var req heightRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	if req.Cancel {
		err = s.Answer("", false)
	} else {
		var text string
		switch v := req.Value.(type) {
		case string:
			text = v
		case float64:
			text = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "value or cancel required"})
		}
		err = s.Answer(text, true)
	}
	if err != nil {
		return sessionError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
}

// Cancel прерывает сессию. Временная графика удаляется до ответа.
func (h *SessionHandler) Cancel(c fiber.Ctx) error {
	c.Locals("session", c.Params("id"))

	s, err := h.sessions.Cancel(c.Params("id"))
	if err != nil {
		return sessionError(c, err)
	}
	<-s.Done()
	return c.JSON(s.Snapshot())
}

func (h *SessionHandler) lookup(c fiber.Ctx) (*service.Session, error) {
	id := c.Params("id")
	c.Locals("session", id)
	return h.sessions.Get(id)
}

func sessionError(c fiber.Ctx, err error) error {
	var unknownLevel service.ErrUnknownLevel
	switch {
	case errors.Is(err, service.ErrNotFound), errors.As(err, &unknownLevel):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrBusy),
		errors.Is(err, service.ErrNotAwaitingPoint),
		errors.Is(err, service.ErrNotAwaitingHeight):
		return c.Status(http.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("[SESSION] error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"mezzanine/internal/common/units"
	"mezzanine/internal/document/repository"
	"mezzanine/internal/document/scene"
	"mezzanine/internal/mezzanine/models"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Scene Handler
// ============================================================

// SceneSource is the read side of the document.
type SceneSource interface {
	Levels(ctx context.Context) ([]models.Level, error)
	Elements(ctx context.Context) ([]repository.Element, error)
}

type SceneHandler struct {
	doc      SceneSource
	renderer *scene.Renderer
}

func NewSceneHandler(doc SceneSource) *SceneHandler {
	return &SceneHandler{doc: doc, renderer: scene.NewRenderer()}
}

type levelPayload struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ElevationMM float64 `json:"elevation_mm"`
}

// Levels возвращает уровни модели с отметками в миллиметрах.
func (h *SceneHandler) Levels(c fiber.Ctx) error {
	levels, err := h.doc.Levels(context.Background())
	if err != nil {
		log.Printf("[DOCUMENT] levels: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	out := make([]levelPayload, 0, len(levels))
	for _, l := range levels {
		mm, err := units.FromInternal(l.Elevation, units.Millimeters)
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		out = append(out, levelPayload{ID: l.ID, Name: l.Name, ElevationMM: mm})
	}
	return c.JSON(out)
}

// Scene отдаёт модель в формате сцены планировщика.
func (h *SceneHandler) Scene(c fiber.Ctx) error {
	s, err := h.build()
	if err != nil {
		log.Printf("[DOCUMENT] scene: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s)
}

// SceneSVG рисует один уровень (?level=<id>) в SVG.
func (h *SceneHandler) SceneSVG(c fiber.Ctx) error {
	s, err := h.build()
	if err != nil {
		log.Printf("[DOCUMENT] scene: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	level := c.Query("level")
	if level != "" {
		if _, ok := s.Layers[level]; !ok {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "level not found"})
		}
	}

	svg, err := h.renderer.Render(s, level)
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// Render конвертирует JSON сцены обратно в SVG.
func (h *SceneHandler) Render(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "body required"})
	}

	var s scene.Scene
	if err := json.Unmarshal(c.Body(), &s); err != nil {
		log.Printf("[RENDER] Decode error: %v", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON payload"})
	}

	svg, err := h.renderer.Render(&s, c.Query("level"))
	if err != nil {
		log.Printf("[RENDER] Render error: %v", err)
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

func (h *SceneHandler) build() (*scene.Scene, error) {
	ctx := context.Background()
	levels, err := h.doc.Levels(ctx)
	if err != nil {
		return nil, err
	}
	elements, err := h.doc.Elements(ctx)
	if err != nil {
		return nil, err
	}
	return scene.Build(levels, elements)
}

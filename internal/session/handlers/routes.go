package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// Register mounts the session and scene routes on r.
func Register(r fiber.Router, sessions *SessionHandler, scenes *SceneHandler) {
	r.Post("/sessions", sessions.Start)
	r.Get("/sessions/:id", sessions.Get)
	r.Post("/sessions/:id/points", sessions.AddPoint)
	r.Post("/sessions/:id/finish", sessions.Finish)
	r.Post("/sessions/:id/height", sessions.Height)
	r.Delete("/sessions/:id", sessions.Cancel)

	r.Get("/levels", scenes.Levels)
	r.Get("/scene", scenes.Scene)
	r.Get("/scene.svg", scenes.SceneSVG)
	r.Post("/render", scenes.Render)

	r.Get("/docs/openapi.yaml", SwaggerSpec)
	r.Get("/docs", SwaggerUI)
}

package system

import (
	"go-deo/internal/common/api"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type RunEventsApi struct {
	Hub *RunEventsHub
}

func NewRunEventsApi(hub *RunEventsHub) api.Route {
	return &RunEventsApi{Hub: hub}
}

func (h *RunEventsApi) Setup(app *fiber.App) {
	app.Get("/api/ws/run-events", websocket.New(h.Hub.HandleWebSocket))
}

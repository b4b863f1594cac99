package system

import (
	"encoding/json"
	"sync"

	"go-deo/internal/features/playbook"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// RunEventsHub fans finished-run notifications out to websocket subscribers.
// A subscriber may filter to a single project via the projectId query param.
type RunEventsHub struct {
	mu          sync.Mutex
	subscribers map[*websocket.Conn]string
	logger      *zap.Logger
}

func NewRunEventsHub(logger *zap.Logger) *RunEventsHub {
	return &RunEventsHub{
		subscribers: make(map[*websocket.Conn]string),
		logger:      logger,
	}
}

// PublishRunEvent implements playbook.RunEventPublisher. Slow or dead
// subscribers are dropped rather than backpressuring the apply path.
func (h *RunEventsHub) PublishRunEvent(event playbook.RunEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to encode run event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, projectFilter := range h.subscribers {
		if projectFilter != "" && projectFilter != event.ProjectID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.subscribers, conn)
			conn.Close()
		}
	}
}

func (h *RunEventsHub) HandleWebSocket(c *websocket.Conn) {
	projectFilter := c.Query("projectId")

	h.mu.Lock()
	h.subscribers[c] = projectFilter
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, c)
		h.mu.Unlock()
	}()

	// The connection is push-only; the read loop just detects close.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

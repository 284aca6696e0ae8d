package http

import (
	"bufio"
	"strconv"
	"time"

	"subscription_server/adapter/out/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// =============================================================================
// SSE Handler - RealtimePort 기반
// =============================================================================

// SSEHandler streams scan and detection events to the browser.
type SSEHandler struct {
	hub *realtime.SSEHub
	log zerolog.Logger
}

func NewSSEHandler(hub *realtime.SSEHub, log zerolog.Logger) *SSEHandler {
	return &SSEHandler{
		hub: hub,
		log: log.With().Str("handler", "sse").Logger(),
	}
}

func (h *SSEHandler) Register(router fiber.Router) {
	router.Get("/events", h.Stream)
	router.Get("/events/status", h.Status)
}

func (h *SSEHandler) Stream(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return err
	}

	userIDStr := userID.String()
	client := h.hub.CreateClient(userIDStr)
	h.log.Info().Str("user_id", userIDStr).Msg("SSE client connected")

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // Nginx buffering 비활성화

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(client.HeartbeatInterval())
		defer ticker.Stop()
		defer func() {
			client.Close()
			h.log.Info().Str("user_id", userIDStr).Msg("SSE client disconnected")
		}()

		w.WriteString("event: connected\ndata: {\"status\":\"connected\"}\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case event, ok := <-client.Events:
				if !ok {
					return
				}
				data, err := realtime.SerializeEvent(event)
				if err != nil {
					h.log.Error().Err(err).Msg("failed to serialize event")
					continue
				}
				w.WriteString("event: " + string(event.Type) + "\n")
				w.WriteString("id: " + strconv.FormatInt(event.Seq, 10) + "\n")
				w.WriteString("data: ")
				w.Write(data)
				w.WriteString("\n\n")
				if err := w.Flush(); err != nil {
					h.log.Debug().Err(err).Msg("client disconnected during write")
					return
				}

			case <-ticker.C:
				w.WriteString(": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					h.log.Debug().Err(err).Msg("client disconnected during heartbeat")
					return
				}
			}
		}
	})
	return nil
}

func (h *SSEHandler) Status(c *fiber.Ctx) error {
	if _, err := GetUserID(c); err != nil {
		return err
	}
	return c.JSON(h.hub.Metrics())
}

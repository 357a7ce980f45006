package web

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/defistate/token-launcher-go/events"
	"github.com/gofiber/fiber/v3"
)

// DefaultKeepAlive is the interval of SSE comment frames on an idle stream.
const DefaultKeepAlive = 15 * time.Second

// Subscriber delivers the progress events of one request.
type Subscriber interface {
	Subscribe(ctx context.Context, requestID string, handler events.Handler) error
}

type streamHandler struct {
	events    Subscriber
	keepAlive time.Duration
	logger    *slog.Logger
}

// StreamLaunchEvents sends the progress events of a request as Server-Sent
// Events. The stream ends after the launch.finished event or when the client
// goes away. Only events published after the subscription are delivered.
func (h *streamHandler) StreamLaunchEvents(c fiber.Ctx) error {
	requestID := c.Params("requestID")
	if requestID == "" {
		return badRequest(c, "requestID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	feed := make(chan events.Event, 64)
	err := h.events.Subscribe(ctx, requestID, func(ctx context.Context, e events.Event) error {
		select {
		case feed <- e:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil {
		cancel()
		return internalError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	logger := h.logger.With("request_id", requestID)
	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case e := <-feed:
				if err := writeEvent(w, e); err != nil {
					logger.Debug("Event stream closed by client", "error", err)
					return
				}
				if e.Type == events.WorkflowFinishedEvent {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					logger.Debug("Event stream closed by client", "error", err)
					return
				}
			}
		}
	})
}

// writeEvent writes one SSE frame and flushes it.
func writeEvent(w *bufio.Writer, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if e.ID != "" {
		fmt.Fprintf(w, "id: %s\n", e.ID)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
	return w.Flush()
}

package web_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/defistate/token-launcher-go/events"
	"github.com/defistate/token-launcher-go/launch"
	"github.com/defistate/token-launcher-go/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubscriber replays events to every subscription.
type fakeSubscriber struct {
	mu        sync.Mutex
	requestID string
	events    []events.Event
	err       error
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, requestID string, handler events.Handler) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.requestID = requestID
	s.mu.Unlock()

	go func() {
		for _, e := range s.events {
			if err := handler(ctx, e); err != nil {
				return
			}
		}
	}()
	return nil
}

func (s *fakeSubscriber) subscribedTo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestID
}

func TestAPI_StreamLaunchEvents(t *testing.T) {
	t.Run("streams until finished", func(t *testing.T) {
		sub := &fakeSubscriber{events: []events.Event{
			{ID: "1", Type: events.StateChangedEvent, RequestID: "acme", State: "deploying"},
			{ID: "2", Type: events.StageFinishedEvent, RequestID: "acme", Stage: launch.StageDeploy},
			{ID: "3", Type: events.WorkflowFinishedEvent, RequestID: "acme", Status: launch.StatusCompleted},
			{ID: "4", Type: events.StateChangedEvent, RequestID: "acme", State: "late"},
		}}
		app := web.NewAPI(slog.New(slog.DiscardHandler), &fakeLauncher{}, nil, nil).WithEvents(sub).App()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/launches/acme/events", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		text := string(body)

		assert.Equal(t, "acme", sub.subscribedTo())
		assert.Contains(t, text, "id: 1\nevent: launch.state_changed\ndata: {")
		assert.Contains(t, text, `"state":"deploying"`)
		assert.Contains(t, text, "event: launch.finished\n")
		assert.Contains(t, text, `"status":"completed"`)
		assert.NotContains(t, text, "late", "the stream ends at the terminal event")
		assert.Equal(t, 3, strings.Count(text, "\n\n"))
	})

	t.Run("subscription failure", func(t *testing.T) {
		sub := &fakeSubscriber{err: errors.New("pubsub closed")}
		app := web.NewAPI(slog.New(slog.DiscardHandler), &fakeLauncher{}, nil, nil).WithEvents(sub).App()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/launches/acme/events", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("disabled without a subscriber", func(t *testing.T) {
		app := web.NewAPI(slog.New(slog.DiscardHandler), &fakeLauncher{}, nil, nil).App()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/launches/acme/events", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

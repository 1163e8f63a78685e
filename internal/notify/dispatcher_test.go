package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *[]string, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	d := NewDispatcher(zap.New(core))
	var shown []string
	d.desktop = func(title, message string) error {
		shown = append(shown, title+": "+message)
		return nil
	}
	return d, &shown, logs
}

func TestDispatchWebhookPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d, shown, _ := newTestDispatcher(t)
	d.Dispatch(context.Background(), Config{WebhookURL: srv.URL}, Event{
		ProfileID:   "p1",
		ProfileName: "News",
		Type:        EventListDownloaded,
		Message:     "42 rules",
		Timestamp:   time.Unix(1700000000, 0),
	})

	assert.Empty(t, *shown)
	assert.Equal(t, "News", got["profile"])
	assert.Equal(t, "p1", got["profileId"])
	assert.Equal(t, "list_downloaded", got["event"])
	assert.Equal(t, "News", got["title"])
	assert.Equal(t, "42 rules", got["message"])
	assert.EqualValues(t, 1700000000, got["timestamp"])
}

func TestDispatchDesktopDefaults(t *testing.T) {
	d, shown, _ := newTestDispatcher(t)
	d.Dispatch(context.Background(), Config{Desktop: true}, Event{Type: EventSessionEnded})
	assert.Equal(t, []string{"websmith: session_ended"}, *shown)
}

func TestDispatchTruncatesMessage(t *testing.T) {
	d, shown, _ := newTestDispatcher(t)
	d.Dispatch(context.Background(), Config{Desktop: true}, Event{Title: "T", Message: strings.Repeat("x", 900)})
	require.Len(t, *shown, 1)
	assert.True(t, strings.HasSuffix((*shown)[0], "..."))
	assert.Len(t, (*shown)[0], len("T: ")+803)
}

func TestDispatchWebhookRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d, _, logs := newTestDispatcher(t)
	d.Dispatch(context.Background(), Config{WebhookURL: srv.URL}, Event{Type: EventListFailed})
	assert.Equal(t, 1, logs.FilterMessage("Webhook rejected notification").Len())
}

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventStream_SendsConnected(t *testing.T) {
	rec := httptest.NewRecorder()

	stream, err := newEventStream(rec, "req-123")
	require.NoError(t, err)
	require.NotNil(t, stream)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-transform", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: connected\n")
	assert.Contains(t, body, `"requestID":"req-123"`)
}

func TestEventStream_EventOrder(t *testing.T) {
	rec := httptest.NewRecorder()

	stream, err := newEventStream(rec, "req-1")
	require.NoError(t, err)

	require.NoError(t, stream.send(eventChunk, map[string]string{"content": "hello "}))
	require.NoError(t, stream.send(eventChunk, map[string]string{"content": "world"}))
	require.NoError(t, stream.sendTerminal(eventComplete, map[string]string{"status": "done"}))

	events := parseEventNames(rec.Body.String())
	assert.Equal(t, []string{"connected", "chunk", "chunk", "complete"}, events)
}

func TestEventStream_NoEventsAfterTerminal(t *testing.T) {
	rec := httptest.NewRecorder()

	stream, err := newEventStream(rec, "req-1")
	require.NoError(t, err)

	require.NoError(t, stream.sendTerminal(eventComplete, map[string]string{}))

	// 終端イベント以降の送信はすべて拒否される
	assert.ErrorIs(t, stream.send(eventChunk, map[string]string{"content": "late"}), ErrStreamTerminated)
	assert.ErrorIs(t, stream.sendTerminal(eventError, map[string]string{}), ErrStreamTerminated)

	events := parseEventNames(rec.Body.String())
	assert.Equal(t, []string{"connected", "complete"}, events)
}

func TestEventStream_FailAfterTerminalIsNoop(t *testing.T) {
	rec := httptest.NewRecorder()

	stream, err := newEventStream(rec, "req-1")
	require.NoError(t, err)

	require.NoError(t, stream.sendTerminal(eventComplete, map[string]string{}))
	stream.fail("too late")

	assert.NotContains(t, rec.Body.String(), "too late")
}

func TestEventStream_FailSendsErrorEvent(t *testing.T) {
	rec := httptest.NewRecorder()

	stream, err := newEventStream(rec, "req-1")
	require.NoError(t, err)

	stream.fail("provider exploded")

	body := rec.Body.String()
	assert.Contains(t, body, "event: error\n")
	assert.Contains(t, body, "provider exploded")
}

func TestNewEventStream_RequiresFlusher(t *testing.T) {
	_, err := newEventStream(noFlushWriter{httptest.NewRecorder()}, "req-1")
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

// noFlushWriter はFlushメソッドを隠したResponseWriterラッパ
type noFlushWriter struct {
	rec *httptest.ResponseRecorder
}

func (w noFlushWriter) Header() http.Header         { return w.rec.Header() }
func (w noFlushWriter) Write(b []byte) (int, error) { return w.rec.Write(b) }
func (w noFlushWriter) WriteHeader(code int)        { w.rec.WriteHeader(code) }

// parseEventNames はSSEボディからイベント名を出現順に抽出する
func parseEventNames(body string) []string {
	var events []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			events = append(events, name)
		}
	}
	return events
}

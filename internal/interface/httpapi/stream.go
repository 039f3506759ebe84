package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ストリームイベント種別
// 1回の生成につき connected が1回、chunk が0回以上、終端イベント
// （complete または error）がちょうど1回、この順序で送出される
const (
	eventConnected = "connected"
	eventChunk     = "chunk"
	eventComplete  = "complete"
	eventError     = "error"

	// バッチストリーム専用イベント
	eventProgress  = "progress"
	eventCountdown = "countdown"
	eventFile      = "file"
	eventFileError = "file_error"
	eventSummary   = "summary"
)

var (
	// ErrStreamingUnsupported はレスポンスライタがフラッシュに対応していない場合のエラー
	ErrStreamingUnsupported = errors.New("response writer does not support streaming")

	// ErrStreamTerminated は終端イベント送出後の送信試行エラー
	ErrStreamTerminated = errors.New("stream already terminated")
)

// eventStream はServer-Sent Eventsの送出を管理する
//
// 終端イベント（complete / error）の後はいかなるイベントも送出しない。
// この不変条件はsend側で強制され、違反はErrStreamTerminatedになる。
// コネクションが終端イベントなしで閉じた場合、消費側はそれを暗黙の
// 終端（このリクエストに対して致命的・再試行不可）として扱う。
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu         sync.Mutex
	terminated bool
}

// newEventStream はSSEレスポンスを開始する
// 中継機がバッファリングしないようヘッダを設定し、connectedイベントを即座に送る
func newEventStream(w http.ResponseWriter, requestID string) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s := &eventStream{w: w, flusher: flusher}
	if err := s.send(eventConnected, map[string]string{"requestID": requestID}); err != nil {
		return nil, err
	}

	return s, nil
}

// send は非終端イベントを送出する
func (s *eventStream) send(event string, payload any) error {
	return s.write(event, payload, false)
}

// sendTerminal は終端イベントを送出し、以降の送信を禁止する
func (s *eventStream) sendTerminal(event string, payload any) error {
	return s.write(event, payload, true)
}

func (s *eventStream) write(event string, payload any, terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return ErrStreamTerminated
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event, err)
	}
	s.flusher.Flush()

	if terminal {
		s.terminated = true
	}
	return nil
}

// fail はエラー終端イベントを送出する
// 既に終端済みの場合は何もしない
func (s *eventStream) fail(message string) {
	_ = s.sendTerminal(eventError, map[string]string{"message": message})
}

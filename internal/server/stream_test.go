package server

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/config"
)

func dialStream(t *testing.T, baseURL string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) StreamEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if messageType != websocket.TextMessage {
		t.Fatalf("expected text event, got message type %d", messageType)
	}
	var event StreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("decode event %s: %v", data, err)
	}
	return event
}

// readTone 读取 tone-started 之后的二进制帧直到 tone-finished
func readTone(t *testing.T, conn *websocket.Conn) (StreamEvent, []byte, []int) {
	t.Helper()
	started := readEvent(t, conn)
	if started.Header.Event != EventToneStarted {
		t.Fatalf("expected %s, got %+v", EventToneStarted, started.Header)
	}

	var pcm bytes.Buffer
	var sizes []int
	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if messageType == websocket.BinaryMessage {
			pcm.Write(data)
			sizes = append(sizes, len(data))
			continue
		}
		var event StreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if event.Header.Event != EventToneFinished {
			t.Fatalf("expected %s, got %+v", EventToneFinished, event.Header)
		}
		if event.Header.TaskID != started.Header.TaskID {
			t.Fatalf("task id mismatch: %q vs %q", event.Header.TaskID, started.Header.TaskID)
		}
		return started, pcm.Bytes(), sizes
	}
}

func TestStream_Tone(t *testing.T) {
	ts, _ := newTestServer(t, func(cfg *config.AppConfig) {
		cfg.Server.StreamChunkSize = 1000
	})
	conn := dialStream(t, ts.URL)

	err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"task_id": "t-1", "frequency_hz": 440, "duration_ms": 100, "sample_rate": 5000, "channels": 2}`))
	if err != nil {
		t.Fatalf("write request: %v", err)
	}

	started, pcm, sizes := readTone(t, conn)
	if started.Header.TaskID != "t-1" {
		t.Fatalf("unexpected task id %q", started.Header.TaskID)
	}
	p := started.Payload
	if p == nil || p.SampleRate != 5000 || p.Channels != 2 || p.Frames != 500 || p.ChunkBytes != 1000 {
		t.Fatalf("unexpected started payload %+v", p)
	}
	if len(sizes) != 2 || sizes[0] != 1000 || sizes[1] != 1000 {
		t.Fatalf("unexpected chunk sizes %v", sizes)
	}

	want, _ := audio.Synthesize(audio.Request{FrequencyHz: 440, DurationMs: 100, SampleRateHz: 5000, Channels: 2})
	if !bytes.Equal(pcm, audio.EncodeLittleEndian16(want)) {
		t.Fatal("streamed bytes do not match the synthesized tone")
	}
}

func TestStream_FailureKeepsConnection(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	conn := dialStream(t, ts.URL)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"task_id": "bad", "frequency_hz": -440, "duration_ms": 100}`)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	failed := readEvent(t, conn)
	if failed.Header.Event != EventToneFailed || failed.Header.TaskID != "bad" || failed.Header.ErrorCode != "InvalidArgument" {
		t.Fatalf("unexpected failure event %+v", failed.Header)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	if failed := readEvent(t, conn); failed.Header.Event != EventToneFailed {
		t.Fatalf("expected failure for malformed request, got %+v", failed.Header)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"frequency_hz": 1000, "duration_ms": 10}`)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	started, pcm, _ := readTone(t, conn)
	if started.Header.TaskID == "" {
		t.Fatal("server should assign a task id")
	}
	if len(pcm) != 441*audio.BytesPerSample {
		t.Fatalf("expected 441 samples, got %d bytes", len(pcm))
	}
}

func TestStream_ZeroDuration(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	conn := dialStream(t, ts.URL)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"frequency_hz": 1000, "duration_ms": 0}`)); err != nil {
		t.Fatalf("write request: %v", err)
	}
	started, pcm, sizes := readTone(t, conn)
	if started.Payload.Frames != 0 || len(pcm) != 0 || len(sizes) != 0 {
		t.Fatalf("expected empty tone, got %d frames / %d bytes", started.Payload.Frames, len(pcm))
	}
}

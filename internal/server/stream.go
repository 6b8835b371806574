package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/logging"
	"github.com/liuscraft/frequency/internal/metrics"
)

const (
	EventToneStarted  = "tone-started"
	EventToneFinished = "tone-finished"
	EventToneFailed   = "tone-failed"
)

// StreamRequest 客户端通过文本帧发送的合成请求
type StreamRequest struct {
	TaskID string `json:"task_id,omitempty"`
	ToneRequest
}

type StreamEvent struct {
	Header  StreamHeader   `json:"header"`
	Payload *StreamPayload `json:"payload,omitempty"`
}

type StreamHeader struct {
	Event        string `json:"event"`
	TaskID       string `json:"task_id"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type StreamPayload struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
	Frames     int `json:"frames"`
	ChunkBytes int `json:"chunk_bytes"`
}

// Stream handles GET /v1/stream.
// 每个请求依次返回 tone-started、若干二进制 PCM 帧、tone-finished（或 tone-failed）
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("Server: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	metrics.StreamConnections.Inc()
	defer metrics.StreamConnections.Dec()
	logging.Infof("Server: stream connected from %s", r.RemoteAddr)

	ctx := r.Context()
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warnf("Server: stream read failed: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := s.handleStreamRequest(ctx, conn, data); err != nil {
			logging.Warnf("Server: stream write failed: %v", err)
			return
		}
	}
}

// handleStreamRequest 只在写连接失败时返回错误，请求本身的错误通过 tone-failed 通知客户端
func (s *Server) handleStreamRequest(ctx context.Context, conn *websocket.Conn, data []byte) error {
	var req StreamRequest
	if err := json.Unmarshal(data, &req); err != nil {
		err = fmt.Errorf("%w: decode request: %v", audio.ErrInvalidArgument, err)
		metrics.TonesTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		return writeEvent(conn, failedEvent("", err))
	}
	if req.TaskID == "" {
		req.TaskID = uuid.New().String()
	}

	tone, err := s.completeToneRequest(req.ToneRequest)
	if err != nil {
		metrics.TonesTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		return writeEvent(conn, failedEvent(req.TaskID, err))
	}

	samples, err := synthesize(ctx, tone.Request)
	if err != nil {
		return writeEvent(conn, failedEvent(req.TaskID, err))
	}

	frameBytes := tone.Channels * audio.BytesPerSample
	chunkBytes := s.cfg.Server.StreamChunkSize
	if chunkBytes <= 0 {
		chunkBytes = audio.DefaultMaxStreamBufferBytes
	}
	chunkBytes = max(chunkBytes/frameBytes*frameBytes, frameBytes)

	started := StreamEvent{
		Header: StreamHeader{Event: EventToneStarted, TaskID: req.TaskID},
		Payload: &StreamPayload{
			SampleRate: tone.SampleRateHz,
			Channels:   tone.Channels,
			Frames:     len(samples) / tone.Channels,
			ChunkBytes: chunkBytes,
		},
	}
	if err := writeEvent(conn, started); err != nil {
		return err
	}

	pcm := audio.EncodeLittleEndian16(samples)
	for offset := 0; offset < len(pcm); offset += chunkBytes {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(offset+chunkBytes, len(pcm))
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[offset:end]); err != nil {
			return err
		}
	}

	logging.Debugf("Server: streamed task %s, %d bytes", req.TaskID, len(pcm))
	return writeEvent(conn, StreamEvent{Header: StreamHeader{Event: EventToneFinished, TaskID: req.TaskID}})
}

func failedEvent(taskID string, err error) StreamEvent {
	return StreamEvent{Header: StreamHeader{
		Event:        EventToneFailed,
		TaskID:       taskID,
		ErrorCode:    errorCode(err),
		ErrorMessage: err.Error(),
	}}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, audio.ErrInvalidArgument):
		return "InvalidArgument"
	case errors.Is(err, audio.ErrAllocation):
		return "Allocation"
	default:
		return "InternalError"
	}
}

func writeEvent(conn *websocket.Conn, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

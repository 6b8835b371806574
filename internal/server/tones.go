package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/logging"
	"github.com/liuscraft/frequency/internal/metrics"
)

const (
	HeaderSampleRate = "X-Sample-Rate"
	HeaderChannels   = "X-Channels"
	HeaderFrames     = "X-Frames"

	FormatPCM = "pcm"
	FormatWAV = "wav"

	maxRequestBody = 1 << 16
)

// ToneRequest 请求体；sample_rate、channels 为 0 时使用配置默认值
type ToneRequest struct {
	audio.Request
	Format string `json:"format,omitempty"`
	Mode   string `json:"mode,omitempty"`
}

func (s *Server) decodeToneRequest(r io.Reader) (ToneRequest, error) {
	var req ToneRequest
	dec := json.NewDecoder(io.LimitReader(r, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: decode request: %v", audio.ErrInvalidArgument, err)
	}
	return s.completeToneRequest(req)
}

func (s *Server) completeToneRequest(req ToneRequest) (ToneRequest, error) {
	req.Request = s.cfg.Tone.Complete(req.Request)
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if req.Format == "" {
		req.Format = FormatPCM
	}
	if req.Format != FormatPCM && req.Format != FormatWAV {
		return req, fmt.Errorf("%w: unknown format %q", audio.ErrInvalidArgument, req.Format)
	}
	if maxMs := s.cfg.Server.MaxDurationMs; maxMs > 0 && req.DurationMs > maxMs {
		return req, fmt.Errorf("%w: duration %d ms exceeds limit of %d ms", audio.ErrInvalidArgument, req.DurationMs, maxMs)
	}
	if maxRate := s.cfg.Server.MaxSampleRate; maxRate > 0 && req.SampleRateHz > maxRate {
		return req, fmt.Errorf("%w: sample rate %d Hz exceeds limit of %d Hz", audio.ErrInvalidArgument, req.SampleRateHz, maxRate)
	}
	return req, req.Validate()
}

// synthesize 合成并记录指标，日志带上请求 id 和 tone_id
func synthesize(ctx context.Context, req audio.Request) ([]int16, error) {
	log := logging.ForTone(logging.NewToneID()).With("request_id", GetRequestID(ctx))
	start := time.Now()
	samples, err := audio.Synthesize(req)
	elapsed := time.Since(start)
	metrics.ObserveSynthesis(len(samples), elapsed, err)
	if err != nil {
		log.Warnf("Server: synthesize %.1f Hz failed: %v", req.FrequencyHz, err)
		return nil, err
	}
	log.Debugf("Server: synthesized %.1f Hz, %d samples in %s", req.FrequencyHz, len(samples), elapsed)
	return samples, nil
}

// CreateTone handles POST /v1/tones.
// 返回小端 16 位 PCM（audio/L16）或 WAV
func (s *Server) CreateTone(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeToneRequest(r.Body)
	if err != nil {
		metrics.TonesTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		writeError(w, statusFor(err), err)
		return
	}

	samples, err := synthesize(r.Context(), req.Request)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	var body []byte
	var contentType string
	switch req.Format {
	case FormatWAV:
		var buf bytes.Buffer
		if err := audio.WriteWAV(&buf, samples, req.SampleRateHz, req.Channels); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		body = buf.Bytes()
		contentType = "audio/wav"
	default:
		body = audio.EncodeLittleEndian16(samples)
		contentType = fmt.Sprintf("audio/L16; rate=%d; channels=%d", req.SampleRateHz, req.Channels)
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set(HeaderSampleRate, strconv.Itoa(req.SampleRateHz))
	h.Set(HeaderChannels, strconv.Itoa(req.Channels))
	h.Set(HeaderFrames, strconv.Itoa(len(samples)/req.Channels))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

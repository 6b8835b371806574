package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/logging"
	"github.com/liuscraft/frequency/internal/metrics"
)

// finishedTrackRetention 播放结束后保留状态供 GET 查询的时长
const finishedTrackRetention = time.Minute

// trackRegistry 按 id 保存音轨
// 音轨结束后自动释放输出端，只保留最终状态，retention 之后删除
type trackRegistry struct {
	mu        sync.Mutex
	entries   map[string]*trackEntry
	retention time.Duration
}

type trackEntry struct {
	track  *audio.Track // 结束并释放后为 nil
	final  trackSnapshot
	expiry *time.Timer
}

type trackSnapshot struct {
	State      string
	Mode       string
	Frames     int
	SampleRate int
	Channels   int
	Error      string
}

func snapshotOf(track *audio.Track) trackSnapshot {
	format := track.Format()
	snap := trackSnapshot{
		State:      string(track.State()),
		Mode:       track.Mode().String(),
		Frames:     track.Frames(),
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}
	if err := track.Err(); err != nil {
		snap.Error = err.Error()
	}
	return snap
}

func newTrackRegistry(retention time.Duration) *trackRegistry {
	return &trackRegistry{
		entries:   make(map[string]*trackEntry),
		retention: retention,
	}
}

func (reg *trackRegistry) add(track *audio.Track) string {
	id := uuid.New().String()
	reg.mu.Lock()
	reg.entries[id] = &trackEntry{track: track}
	reg.mu.Unlock()
	metrics.ActiveTracks.Inc()

	go reg.reap(id, track)
	return id
}

// reap 等待音轨结束后释放输出端，记录最终状态
func (reg *trackRegistry) reap(id string, track *audio.Track) {
	<-track.Done()
	snap := snapshotOf(track)

	reg.mu.Lock()
	entry, ok := reg.entries[id]
	if !ok || entry.track != track {
		// 已被 DELETE 或 releaseAll 处理
		reg.mu.Unlock()
		return
	}
	entry.track = nil
	entry.final = snap
	entry.expiry = time.AfterFunc(reg.retention, func() {
		reg.mu.Lock()
		if reg.entries[id] == entry {
			delete(reg.entries, id)
		}
		reg.mu.Unlock()
	})
	reg.mu.Unlock()
	metrics.ActiveTracks.Dec()

	if err := track.Release(); err != nil {
		logging.Warnf("Server: release finished track %s: %v", id, err)
	}
	logging.Debugf("Server: track %s %s, sink released", id, snap.State)
}

func (reg *trackRegistry) get(id string) (trackSnapshot, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	entry, ok := reg.entries[id]
	if !ok {
		return trackSnapshot{}, false
	}
	if entry.track != nil {
		return snapshotOf(entry.track), true
	}
	return entry.final, true
}

// remove 删除记录；仍在播放的音轨返回给调用方释放
func (reg *trackRegistry) remove(id string) (*audio.Track, bool) {
	reg.mu.Lock()
	entry, ok := reg.entries[id]
	delete(reg.entries, id)
	reg.mu.Unlock()
	if !ok {
		return nil, false
	}
	if entry.expiry != nil {
		entry.expiry.Stop()
	}
	if entry.track != nil {
		metrics.ActiveTracks.Dec()
	}
	return entry.track, true
}

func (reg *trackRegistry) count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.entries)
}

func (reg *trackRegistry) releaseAll() error {
	reg.mu.Lock()
	entries := reg.entries
	reg.entries = make(map[string]*trackEntry)
	reg.mu.Unlock()

	var errs []error
	for id, entry := range entries {
		if entry.expiry != nil {
			entry.expiry.Stop()
		}
		if entry.track == nil {
			continue
		}
		metrics.ActiveTracks.Dec()
		if err := entry.track.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release track %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

type createTrackResponse struct {
	TrackID string `json:"track_id"`
	Frames  int    `json:"frames"`
	Mode    string `json:"mode"`
}

type trackStatusResponse struct {
	TrackID    string `json:"track_id"`
	State      string `json:"state"`
	Mode       string `json:"mode"`
	Frames     int    `json:"frames"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Error      string `json:"error,omitempty"`
}

// CreateTrack handles POST /v1/tracks.
// 在服务端的输出设备上创建并播放音轨
func (s *Server) CreateTrack(w http.ResponseWriter, r *http.Request) {
	if s.factory == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("no playback backend configured"))
		return
	}

	req, err := s.decodeToneRequest(r.Body)
	if err != nil {
		metrics.TonesTotal.WithLabelValues(metrics.Outcome(err)).Inc()
		writeError(w, statusFor(err), err)
		return
	}
	mode, err := audio.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// 音轨生命周期独立于请求
	track, err := s.factory.Create(context.WithoutCancel(r.Context()), req.Request, mode)
	if err != nil {
		logging.Warnf("Server: create track failed: %v", err)
		writeError(w, statusFor(err), err)
		return
	}
	if mode == audio.ModeStatic {
		if err := track.Play(); err != nil {
			_ = track.Release()
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	id := s.tracks.add(track)
	logging.Infof("Server: track %s playing %.1f Hz for %d ms (%s)", id, req.FrequencyHz, req.DurationMs, mode)
	writeJSON(w, http.StatusCreated, createTrackResponse{
		TrackID: id,
		Frames:  track.Frames(),
		Mode:    mode.String(),
	})
}

// GetTrack handles GET /v1/tracks/{trackId}.
func (s *Server) GetTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trackId")
	snap, ok := s.tracks.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("track %s not found", id))
		return
	}

	writeJSON(w, http.StatusOK, trackStatusResponse{
		TrackID:    id,
		State:      snap.State,
		Mode:       snap.Mode,
		Frames:     snap.Frames,
		SampleRate: snap.SampleRate,
		Channels:   snap.Channels,
		Error:      snap.Error,
	})
}

// DeleteTrack handles DELETE /v1/tracks/{trackId}.
func (s *Server) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "trackId")
	track, ok := s.tracks.remove(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("track %s not found", id))
		return
	}
	if track != nil {
		if err := track.Release(); err != nil {
			logging.Warnf("Server: release track %s: %v", id, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

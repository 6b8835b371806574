// Package server 通过 HTTP / WebSocket 对外提供正弦音合成与播放
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/config"
	"github.com/liuscraft/frequency/internal/metrics"
)

// Server 持有音轨工厂和音轨表
type Server struct {
	cfg      *config.AppConfig
	factory  *audio.TrackFactory
	tracks   *trackRegistry
	upgrader websocket.Upgrader
	router   chi.Router
}

// New opener 为 nil 时 /v1/tracks 不可用
func New(cfg *config.AppConfig, opener audio.SinkOpener) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		cfg:    cfg,
		tracks: newTrackRegistry(finishedTrackRetention),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: max(cfg.Server.StreamChunkSize, 1024),
			CheckOrigin:     originChecker(cfg.Server.AllowedOrigins),
		},
	}
	if opener != nil {
		s.factory = audio.NewTrackFactory(opener, cfg.Playback.MaxStreamBufferBytes)
		s.factory.SetObserver(metrics.ObserveSynthesis)
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Close 释放所有未释放的音轨
func (s *Server) Close() error {
	return s.tracks.releaseAll()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(RequestID)
	r.Use(Logging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders:   []string{HeaderSampleRate, HeaderChannels, HeaderFrames, RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/tones", s.CreateTone)
		r.Get("/stream", s.Stream)
		r.Route("/tracks", func(r chi.Router) {
			r.Post("/", s.CreateTrack)
			r.Route("/{trackId}", func(r chi.Router) {
				r.Get("/", s.GetTrack)
				r.Delete("/", s.DeleteTrack)
			})
		})
	})
	return r
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// NewHTTPServer 带超时的 http.Server
func (s *Server) NewHTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor 将合成错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, audio.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, audio.ErrAllocation):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

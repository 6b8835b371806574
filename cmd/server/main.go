package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/audio/backend"
	"github.com/liuscraft/frequency/internal/config"
	"github.com/liuscraft/frequency/internal/logging"
	"github.com/liuscraft/frequency/internal/server"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "config file path")
	flag.Parse()

	appConfig, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Init(logging.Config{
		Level:  appConfig.Logging.Level,
		Format: appConfig.Logging.Format,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()
	logging.SetTraceID(logging.NewTraceID())

	// 没有音频设备时仍然提供合成接口
	var opener audio.SinkOpener
	out, err := backend.Open(appConfig.Playback.Backend,
		backend.WithOtoDevice(appConfig.Playback.DeviceSampleRate, appConfig.Playback.DeviceChannels))
	if err != nil {
		logging.Warnf("Playback backend %s unavailable, /v1/tracks disabled: %v", appConfig.Playback.Backend, err)
	} else {
		defer out.Close()
		opener = out
		logging.Infof("Playback backend: %s", out.Name())
	}

	srv := server.New(appConfig, opener)
	defer srv.Close()
	httpServer := srv.NewHTTPServer()

	go func() {
		logging.Infof("frequency server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Infof("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logging.Warnf("HTTP shutdown: %v", err)
	}
}

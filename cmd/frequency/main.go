package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/audio/backend"
	"github.com/liuscraft/frequency/internal/config"
	"github.com/liuscraft/frequency/internal/logging"
)

var (
	configPath  = flag.String("config", config.DefaultPath, "配置文件路径")
	freq        = flag.Float64("freq", 440, "频率（Hz）")
	durationMs  = flag.Int("duration", 1000, "时长（毫秒）")
	sampleRate  = flag.Int("rate", 0, "采样率（Hz），0 使用配置")
	channels    = flag.Int("channels", 0, "声道数 1 或 2，0 使用配置")
	mode        = flag.String("mode", "", "播放方式 static|stream，空使用配置")
	backendName = flag.String("backend", "", "播放后端 portaudio|oto|memory，空使用配置")
	marker      = flag.Int("marker", -1, "播放到该帧时打印提示，-1 表示不设置")
	help        = flag.Bool("h", false, "显示帮助信息")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

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

	if *backendName != "" {
		appConfig.Playback.Backend = *backendName
	}
	if *mode != "" {
		appConfig.Playback.Mode = *mode
	}
	playMode, err := audio.ParseMode(appConfig.Playback.Mode)
	if err != nil {
		logging.Fatalf("Invalid mode: %v", err)
	}

	req := appConfig.Tone.Complete(audio.Request{
		FrequencyHz:  *freq,
		DurationMs:   *durationMs,
		SampleRateHz: *sampleRate,
		Channels:     *channels,
	})

	out, err := backend.Open(appConfig.Playback.Backend,
		backend.WithOtoDevice(appConfig.Playback.DeviceSampleRate, appConfig.Playback.DeviceChannels))
	if err != nil {
		logging.Fatalf("Failed to open backend %s: %v", appConfig.Playback.Backend, err)
	}
	defer out.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	factory := audio.NewTrackFactory(out, appConfig.Playback.MaxStreamBufferBytes)
	track, err := factory.Create(ctx, req, playMode)
	if err != nil {
		logging.Errorf("Failed to create track: %v", err)
		return
	}
	defer track.Release()

	if *marker >= 0 {
		track.SetNotificationMarker(*marker, func() {
			logging.Infof("Marker reached at frame %d", *marker)
		})
	}

	fmt.Printf("播放 %.1f Hz，%d ms（%d Hz x%d，%s，后端 %s）\n",
		req.FrequencyHz, req.DurationMs, req.SampleRateHz, req.Channels, playMode, out.Name())

	if playMode == audio.ModeStatic {
		if err := track.Play(); err != nil {
			logging.Errorf("Failed to play: %v", err)
			return
		}
	}

	<-track.Done()
	if err := track.Err(); err != nil {
		logging.Errorf("Playback failed: %v", err)
		return
	}
	fmt.Printf("结束：%s，%d 帧\n", track.State(), track.Frames())
}

func printHelp() {
	fmt.Println("正弦音播放工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  go run ./cmd/frequency [选项]")
	fmt.Println()
	fmt.Println("示例:")
	fmt.Println("  go run ./cmd/frequency -freq 440 -duration 500")
	fmt.Println("  go run ./cmd/frequency -freq 1000 -rate 5000 -mode stream -backend oto")
	fmt.Println()
	flag.PrintDefaults()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/liuscraft/frequency/internal/ai"
	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/audio/backend"
	"github.com/liuscraft/frequency/internal/config"
	"github.com/liuscraft/frequency/internal/logging"
	"github.com/liuscraft/frequency/internal/metrics"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "config file path")
	flag.Parse()

	input := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if input == "" {
		input = "播放一个 A4 音，半秒就好"
	}

	appConfig, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := appConfig.ValidateKeys(true); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
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

	ctx := context.Background()

	out, err := backend.Open(appConfig.Playback.Backend,
		backend.WithOtoDevice(appConfig.Playback.DeviceSampleRate, appConfig.Playback.DeviceChannels))
	if err != nil {
		logging.Fatalf("Failed to open backend %s: %v", appConfig.Playback.Backend, err)
	}
	defer out.Close()

	factory := audio.NewTrackFactory(out, appConfig.Playback.MaxStreamBufferBytes)
	factory.SetObserver(metrics.ObserveSynthesis)

	playTool, err := ai.NewPlayFrequencyTool(factory, appConfig.Tone, appConfig.Server.MaxDurationMs)
	if err != nil {
		logging.Fatalf("Create tool failed: %v", err)
	}

	agent, err := ai.CreateToneAgent(ctx, appConfig.LLM, []tool.BaseTool{playTool})
	if err != nil {
		logging.Fatalf("Create agent failed: %v", err)
	}

	messages, err := ai.BuildMessages(ctx, input, nil, appConfig.Server.MaxDurationMs)
	if err != nil {
		logging.Fatalf("Build messages failed: %v", err)
	}

	logging.Infof("=== 开始 ToneAgent ===")
	logging.Infof("输入: %s", input)

	result, err := agent.Generate(ctx, messages)
	if err != nil {
		logging.Errorf("Generate failed: %v", err)
		return
	}

	fmt.Println(result.Content)
}

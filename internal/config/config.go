package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/liuscraft/frequency/internal/audio"
)

const (
	DefaultPath = "config/frequency.json"

	// DefaultMaxSampleRate 服务端接受的最大采样率
	DefaultMaxSampleRate = 192_000
)

type AppConfig struct {
	Logging  LoggingConfig  `json:"logging"`
	Tone     ToneConfig     `json:"tone"`
	Playback PlaybackConfig `json:"playback"`
	Server   ServerConfig   `json:"server"`
	LLM      LLMConfig      `json:"llm"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// ToneConfig 请求未指定采样率、声道时使用的默认值
type ToneConfig struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
}

type PlaybackConfig struct {
	Backend              string `json:"backend"`
	Mode                 string `json:"mode"`
	MaxStreamBufferBytes int    `json:"max_stream_buffer_bytes"`
	// oto 设备格式，0 表示沿用第一个音轨的格式
	DeviceSampleRate int `json:"device_sample_rate"`
	DeviceChannels   int `json:"device_channels"`
}

type ServerConfig struct {
	Addr            string   `json:"addr"`
	AllowedOrigins  []string `json:"allowed_origins"`
	StreamChunkSize int      `json:"stream_chunk_bytes"`
	MaxDurationMs   int      `json:"max_duration_ms"`
	// 0 表示不限制
	MaxSampleRate int `json:"max_sample_rate"`
}

type LLMConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

func DefaultConfig() *AppConfig {
	return &AppConfig{
		Logging: LoggingConfig{},
		Tone: ToneConfig{
			SampleRate: audio.StaticSampleRate,
			Channels:   1,
		},
		Playback: PlaybackConfig{
			Backend:              "portaudio",
			Mode:                 "static",
			MaxStreamBufferBytes: audio.DefaultMaxStreamBufferBytes,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			StreamChunkSize: audio.DefaultMaxStreamBufferBytes,
			MaxDurationMs:   60_000,
			MaxSampleRate:   DefaultMaxSampleRate,
		},
		LLM: LLMConfig{
			BaseURL: "https://open.bigmodel.cn/api/coding/paas/v4",
			Model:   "glm-4-flash",
		},
	}
}

func Load(path string) (*AppConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.ApplyEnv()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

func (c *AppConfig) ApplyEnv() {
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
	if format := strings.TrimSpace(os.Getenv("LOG_FORMAT")); format != "" {
		c.Logging.Format = format
	}
	if backend := strings.TrimSpace(os.Getenv("FREQUENCY_BACKEND")); backend != "" {
		c.Playback.Backend = backend
	}
	if addr := strings.TrimSpace(os.Getenv("FREQUENCY_ADDR")); addr != "" {
		c.Server.Addr = addr
	}

	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		c.LLM.APIKey = key
	}
	if zhipu := strings.TrimSpace(os.Getenv("ZHIPU_API_KEY")); zhipu != "" {
		c.LLM.APIKey = zhipu
	}
}

func (c *AppConfig) Validate() error {
	if c.Tone.SampleRate <= 0 {
		return errors.New("tone.sample_rate must be positive")
	}
	if c.Tone.Channels != 1 && c.Tone.Channels != 2 {
		return fmt.Errorf("tone.channels must be 1 or 2, got %d", c.Tone.Channels)
	}

	if strings.TrimSpace(c.Playback.Backend) == "" {
		return errors.New("playback.backend is required")
	}
	if _, err := audio.ParseMode(c.Playback.Mode); err != nil {
		return fmt.Errorf("playback.mode: %w", err)
	}
	if c.Playback.MaxStreamBufferBytes < 0 {
		return errors.New("playback.max_stream_buffer_bytes must be non-negative")
	}
	if c.Playback.DeviceSampleRate < 0 {
		return errors.New("playback.device_sample_rate must be non-negative")
	}
	switch c.Playback.DeviceChannels {
	case 0, 1, 2:
	default:
		return fmt.Errorf("playback.device_channels must be 0, 1 or 2, got %d", c.Playback.DeviceChannels)
	}

	if c.Server.StreamChunkSize < 0 || c.Server.StreamChunkSize%2 != 0 {
		return fmt.Errorf("server.stream_chunk_bytes must be a non-negative even number, got %d", c.Server.StreamChunkSize)
	}
	if c.Server.MaxDurationMs < 0 {
		return errors.New("server.max_duration_ms must be non-negative")
	}
	if c.Server.MaxSampleRate < 0 {
		return errors.New("server.max_sample_rate must be non-negative")
	}
	if c.Server.MaxSampleRate > 0 && c.Tone.SampleRate > c.Server.MaxSampleRate {
		return fmt.Errorf("tone.sample_rate %d exceeds server.max_sample_rate %d", c.Tone.SampleRate, c.Server.MaxSampleRate)
	}

	return nil
}

// ValidateKeys 检查需要的外部服务密钥
func (c *AppConfig) ValidateKeys(requireLLM bool) error {
	if requireLLM && strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm api_key is required")
	}
	return nil
}

// Complete 补全 req 中未设置（为 0）的采样率和声道
func (t ToneConfig) Complete(req audio.Request) audio.Request {
	if req.SampleRateHz == 0 {
		req.SampleRateHz = t.SampleRate
	}
	if req.Channels == 0 {
		req.Channels = t.Channels
	}
	return req
}

package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/liuscraft/frequency/internal/audio"
	"github.com/liuscraft/frequency/internal/config"
	"github.com/liuscraft/frequency/internal/logging"
)

const PlayFrequencyToolName = "playFrequency"

// PlayFrequencyArgs playFrequency 工具参数
type PlayFrequencyArgs struct {
	FrequencyHz float64 `json:"frequency_hz"`
	DurationMs  int     `json:"duration_ms"`
}

// NewPlayFrequencyTool 创建 playFrequency 工具：合成正弦音并在 factory 的输出端上播放，播放结束后返回
// maxDurationMs > 0 时拒绝更长的请求
func NewPlayFrequencyTool(factory *audio.TrackFactory, defaults config.ToneConfig, maxDurationMs int) (tool.InvokableTool, error) {
	if factory == nil {
		return nil, errors.New("playFrequency tool needs a track factory")
	}

	return utils.InferTool(PlayFrequencyToolName, "播放指定频率（Hz）和时长（毫秒）的正弦提示音",
		func(ctx context.Context, args PlayFrequencyArgs) (string, error) {
			logging.Infof("[Tool] playFrequency 执行，频率: %.1f Hz，时长: %d ms", args.FrequencyHz, args.DurationMs)

			if maxDurationMs > 0 && args.DurationMs > maxDurationMs {
				return fmt.Sprintf("无法播放：时长 %d ms 超过上限 %d ms", args.DurationMs, maxDurationMs), nil
			}
			req := defaults.Complete(audio.Request{FrequencyHz: args.FrequencyHz, DurationMs: args.DurationMs})

			track, err := factory.Create(ctx, req, audio.ModeStatic)
			if errors.Is(err, audio.ErrInvalidArgument) || errors.Is(err, audio.ErrAllocation) {
				// 参数问题交给模型修正
				return fmt.Sprintf("无法播放：%v", err), nil
			}
			if err != nil {
				return "", err
			}
			defer func() {
				if err := track.Release(); err != nil {
					logging.Warnf("[Tool] playFrequency release failed: %v", err)
				}
			}()

			if err := track.Play(); err != nil {
				return "", fmt.Errorf("play tone: %w", err)
			}
			select {
			case <-track.Done():
			case <-ctx.Done():
				return "", ctx.Err()
			}
			if err := track.Err(); err != nil {
				return "", err
			}
			if track.State() == audio.TrackStopped {
				return "播放被中断", nil
			}

			return fmt.Sprintf("已播放 %.1f Hz 正弦音 %d 毫秒（%d 帧，%d Hz）",
				req.FrequencyHz, req.DurationMs, track.Frames(), req.SampleRateHz), nil
		})
}

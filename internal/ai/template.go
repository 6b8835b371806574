package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

func DefaultTemplate() prompt.ChatTemplate {

	return prompt.FromMessages(schema.FString,
		schema.SystemMessage("你是一个提示音助手。用户想听某个音调时调用 {tool} 工具播放正弦音；"+
			"频率单位为 Hz，时长单位为毫秒，时长不超过 {max_duration_ms} 毫秒。播放后简短说明播放了什么。"),
		schema.MessagesPlaceholder("chat_history", true),
		schema.UserMessage("{question}"),
	)
}

// BuildMessages 用默认模板生成一轮对话的输入消息
func BuildMessages(ctx context.Context, question string, history []*schema.Message, maxDurationMs int) ([]*schema.Message, error) {
	messages, err := DefaultTemplate().Format(ctx, map[string]any{
		"tool":            PlayFrequencyToolName,
		"max_duration_ms": maxDurationMs,
		"chat_history":    history,
		"question":        question,
	})
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}
	return messages, nil
}

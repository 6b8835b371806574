package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/liuscraft/frequency/internal/config"
	"github.com/liuscraft/frequency/internal/logging"
)

const defaultMaxStep = 10

// CreateToneAgent 创建 ReAct Agent，模型可以调用 tools 播放提示音
// ReAct 循环：思考 → 行动 → 观察 → 思考 ... → 最终答案
func CreateToneAgent(ctx context.Context, cfg config.LLMConfig, tools []tool.BaseTool) (*react.Agent, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm api_key is required")
	}
	if len(tools) == 0 {
		return nil, errors.New("tone agent needs at least one tool")
	}

	// 1. 创建 ChatModel（支持工具调用）
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	// 2. 工具信息由 react.NewAgent 绑定到模型，这里只记录名称
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		names = append(names, info.Name)
	}

	// 3. 创建 ReAct Agent
	agent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: tools,
		},
		MaxStep: defaultMaxStep,
	})
	if err != nil {
		return nil, fmt.Errorf("create react agent failed: %w", err)
	}

	logging.Infof("ToneAgent: created with model %s, tools: %s", cfg.Model, strings.Join(names, ", "))
	return agent, nil
}

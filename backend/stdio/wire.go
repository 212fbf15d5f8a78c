package stdio

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lambdaflows/devteam/backend"
)

// wireMessage is one JSONL line emitted by a stdio agent CLI.
type wireMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`

	Usage *wireUsage `json:"usage,omitempty"`

	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	Files     []string       `json:"files,omitempty"`
}

type wireUsage struct {
	InputTokens     int     `json:"input_tokens"`
	OutputTokens    int     `json:"output_tokens"`
	CacheReadTokens int     `json:"cache_read_tokens"`
	CostUSD         float64 `json:"cost_usd"`
}

type wireToolCall struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input,omitempty"`
}

// decodeLine parses one JSONL line into a backend event. Unknown message
// types return (nil, nil) and are skipped, so a newer CLI can add message
// types without breaking older hosts.
func decodeLine(line []byte) (backend.Event, error) {
	var msg wireMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, fmt.Errorf("parse line: %w", err)
	}

	switch msg.Type {
	case "session":
		return backend.SessionInfoEvent{ID: msg.SessionID}, nil
	case "delta":
		return backend.ContentDeltaEvent{Delta: msg.Text}, nil
	case "message":
		return backend.MessageDoneEvent{Text: msg.Text}, nil
	case "result":
		ev := backend.ResultEvent{Files: msg.Files}
		if msg.Usage != nil {
			ev.InputTokens = msg.Usage.InputTokens
			ev.OutputTokens = msg.Usage.OutputTokens
			ev.CacheReadTokens = msg.Usage.CacheReadTokens
			ev.CostUSD = msg.Usage.CostUSD
		}
		for _, tc := range msg.ToolCalls {
			ev.ToolCalls = append(ev.ToolCalls, backend.ToolCall{Name: tc.Name, Input: tc.Input})
		}
		return ev, nil
	case "end":
		return backend.EndEvent{Reason: msg.Reason}, nil
	case "aborted":
		return backend.AbortedEvent{}, nil
	case "error":
		return backend.ErrorEvent{Cause: errors.New(msg.Message)}, nil
	default:
		return nil, nil
	}
}

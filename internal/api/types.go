package api

import "fmt"

type ChatMode string

const (
	ModeNormal ChatMode = "normal"
	ModeAdmin  ChatMode = "admin"
)

func ParseChatMode(s string) (ChatMode, error) {
	switch m := ChatMode(s); m {
	case ModeNormal, ModeAdmin:
		return m, nil
	case "":
		return ModeNormal, nil
	default:
		return "", fmt.Errorf("unknown chat mode %q (want normal or admin)", s)
	}
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type ChatMessageRequest struct {
	Message   string   `json:"message"`
	SessionID string   `json:"session_id"`
	Mode      ChatMode `json:"mode"`
}

type ChatMessageResponse struct {
	Response  string  `json:"response"`
	SessionID string  `json:"session_id"`
	SQLQuery  *string `json:"sql_query"`
}

type ChatHistoryMessage struct {
	Role     Role    `json:"role"`
	Content  string  `json:"content"`
	SQLQuery *string `json:"sql_query"`
}

type ChatHistoryResponse struct {
	Messages  []ChatHistoryMessage `json:"messages"`
	SessionID string               `json:"session_id"`
}

package resolver

import (
	"strings"

	apperrors "deepclaude-go/internal/errors"
	"github.com/tidwall/gjson"
)

// Message is one chat turn. Order is preserved end to end.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

func validRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// parseMessages extracts and validates the messages array from a request body.
// Anthropic-style content blocks are flattened to their text parts.
func parseMessages(body []byte) ([]Message, *apperrors.APIError) {
	raw := gjson.GetBytes(body, "messages")
	if !raw.Exists() || !raw.IsArray() {
		return nil, apperrors.InvalidRequest("Field \"messages\" must be a non-empty array")
	}

	var msgs []Message
	var bad *apperrors.APIError
	raw.ForEach(func(_, item gjson.Result) bool {
		role := item.Get("role").String()
		if !validRole(role) {
			bad = apperrors.InvalidRequest("Unsupported message role " + strings.TrimSpace(role))
			return false
		}
		msgs = append(msgs, Message{Role: role, Content: flattenContent(item.Get("content"))})
		return true
	})
	if bad != nil {
		return nil, bad
	}
	if len(msgs) == 0 {
		return nil, apperrors.InvalidRequest("Field \"messages\" must be a non-empty array")
	}
	return msgs, nil
}

func flattenContent(content gjson.Result) string {
	if !content.IsArray() {
		return content.String()
	}
	var sb strings.Builder
	content.ForEach(func(_, block gjson.Result) bool {
		if t := block.Get("text"); t.Exists() {
			sb.WriteString(t.String())
		}
		return true
	})
	return sb.String()
}

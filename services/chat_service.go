package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/cppla/nuobot/memory"
	"github.com/cppla/nuobot/utils"
)

// Chatter is the chat-model capability ChatService consumes.
type Chatter interface {
	Chat(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// ChatService produces free-form replies. Each round assembles a system prompt
// from the user's persona (default or purchased override), the long-term
// memories for the user and the group, and the hard behavioral rules, then
// records the exchange into the short-term buffers.
type ChatService struct {
	llm      Chatter
	profiles *memory.ProfileStore
	buffer   *memory.Buffer
}

// NewChatService wires the chat path.
func NewChatService(llm Chatter, profiles *memory.ProfileStore, buffer *memory.Buffer) *ChatService {
	return &ChatService{llm: llm, profiles: profiles, buffer: buffer}
}

// Chat answers one user message. A failure to record memory is logged but does
// not fail the reply; the model answer is already committed to the user.
func (s *ChatService) Chat(ctx context.Context, groupID, userID, message string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("userID is required")
	}
	if groupID == "" {
		groupID = memory.PrivateGroup
	}
	message = strings.TrimSpace(message)

	systemPrompt, err := s.buildSystemPrompt(ctx, groupID, userID)
	if err != nil {
		return "", err
	}

	var prefix string
	if groupID == memory.PrivateGroup {
		prefix = fmt.Sprintf("[私聊|用户ID:%s] ", userID)
	} else {
		prefix = fmt.Sprintf("[群组ID:%s|用户ID:%s] ", groupID, userID)
	}

	reply, err := s.llm.Chat(ctx, systemPrompt, prefix+message)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	reply = strings.TrimSpace(reply)

	turns := []memory.Turn{
		{Role: memory.RoleUser, Content: message},
		{Role: memory.RoleAssistant, Content: reply},
	}
	if err := s.buffer.Append(ctx, groupID, userID, turns); err != nil {
		utils.Sugar.Errorw("memory append failed", "group", groupID, "user", userID, "error", err)
	}

	return reply, nil
}

func (s *ChatService) buildSystemPrompt(ctx context.Context, groupID, userID string) (string, error) {
	persona, err := s.profiles.SystemPrompt(ctx, groupID, userID)
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}

	var b strings.Builder
	b.WriteString(persona)

	userProfile, err := s.profiles.UserProfile(ctx, groupID, userID)
	if err != nil {
		utils.Sugar.Warnw("user profile read failed", "group", groupID, "user", userID, "error", err)
	} else if userProfile != "" {
		b.WriteString("\n\n【该用户的长期画像】\n")
		b.WriteString(userProfile)
	}

	if groupID != memory.PrivateGroup {
		groupProfile, err := s.profiles.GroupProfile(ctx, groupID)
		if err != nil {
			utils.Sugar.Warnw("group profile read failed", "group", groupID, "error", err)
		} else if groupProfile != "" {
			b.WriteString("\n\n【本群的长期记忆】\n")
			b.WriteString(groupProfile)
		}
	}

	b.WriteString("\n\n")
	b.WriteString(ChatRulesPrompt)
	return b.String(), nil
}

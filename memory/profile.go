package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cppla/nuobot/store"
	"github.com/cppla/nuobot/utils"
)

var (
	// ErrInsufficientBalance rejects a cost-gated action before any mutation.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrDebitedNotSaved signals the durable prompt write failed after the
	// debit already went through. Points are not refunded.
	ErrDebitedNotSaved = errors.New("prompt not persisted after debit")
)

// ProfileStore reads and writes long-term profiles and the cost-gated system
// prompt override with its short-TTL cache.
type ProfileStore struct {
	kv       KV
	prompts  *store.Prompts
	ledger   *store.Ledger
	sum      Summarizer
	persona  string
	cacheTTL time.Duration
}

// NewProfileStore wires the store. persona is the fixed default returned when
// a user never purchased an override.
func NewProfileStore(kv KV, prompts *store.Prompts, ledger *store.Ledger, sum Summarizer, persona string, cacheTTL time.Duration) *ProfileStore {
	return &ProfileStore{
		kv:       kv,
		prompts:  prompts,
		ledger:   ledger,
		sum:      sum,
		persona:  persona,
		cacheTTL: cacheTTL,
	}
}

// UserProfile returns the user's long-term profile, empty when none exists.
func (p *ProfileStore) UserProfile(ctx context.Context, groupID, userID string) (string, error) {
	return p.kv.Get(ctx, UserLongKey(groupID, userID))
}

// GroupProfile returns the group's long-term profile, empty when none exists.
func (p *ProfileStore) GroupProfile(ctx context.Context, groupID string) (string, error) {
	return p.kv.Get(ctx, GroupLongKey(groupID))
}

// SetUserProfile overwrites the user's profile verbatim.
func (p *ProfileStore) SetUserProfile(ctx context.Context, groupID, userID, profile string) error {
	return p.kv.Set(ctx, UserLongKey(groupID, userID), profile)
}

// ClearUserProfile deletes the profile and reports whether one existed.
func (p *ProfileStore) ClearUserProfile(ctx context.Context, groupID, userID string) (bool, error) {
	return p.kv.Del(ctx, UserLongKey(groupID, userID))
}

// UpdateUserProfile is the manual edit path: the user's instruction is merged
// into the current profile (or a fresh profile is synthesized) in one
// summarization call, then written back synchronously.
func (p *ProfileStore) UpdateUserProfile(ctx context.Context, groupID, userID, instruction string) (string, error) {
	key := UserLongKey(groupID, userID)
	current, err := p.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read profile: %w", err)
	}

	profile, err := p.sum.Complete(ctx, manualUpdatePrompt(current, instruction))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	profile = strings.TrimSpace(profile)

	if err := p.kv.Set(ctx, key, profile); err != nil {
		return "", fmt.Errorf("write profile: %w", err)
	}
	return profile, nil
}

// SystemPrompt is a cache-through read: TTL cache, then the durable store,
// then the default persona.
func (p *ProfileStore) SystemPrompt(ctx context.Context, groupID, userID string) (string, error) {
	cacheKey := UserPromptKey(groupID, userID)
	cached, err := p.kv.Get(ctx, cacheKey)
	if err == nil && cached != "" {
		return cached, nil
	}
	if err != nil && utils.Sugar != nil {
		utils.Sugar.Warnw("prompt cache read failed", "key", cacheKey, "error", err)
	}

	prompt, ok, err := p.prompts.Get(ctx, groupID, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return p.persona, nil
	}

	if err := p.kv.SetTTL(ctx, cacheKey, prompt, p.cacheTTL); err != nil && utils.Sugar != nil {
		utils.Sugar.Warnw("prompt cache populate failed", "key", cacheKey, "error", err)
	}
	return prompt, nil
}

// SetSystemPrompt debits cost from the ledger, persists the prompt, then
// refreshes the cache. A balance below cost (or an untouched account) returns
// ErrInsufficientBalance with nothing mutated. The read-then-debit pair is not
// serialized against concurrent debits on the same key.
func (p *ProfileStore) SetSystemPrompt(ctx context.Context, groupID, userID, prompt string, cost int) error {
	balance, ok, err := p.ledger.GetBalance(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	if !ok || balance < cost {
		return ErrInsufficientBalance
	}

	affected, err := p.ledger.Adjust(ctx, groupID, userID, -cost)
	if err != nil {
		return fmt.Errorf("debit: %w", err)
	}
	if !affected {
		return fmt.Errorf("debit: no balance row for %s:%s", groupID, userID)
	}

	if err := p.prompts.Set(ctx, groupID, userID, prompt); err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Errorw("prompt persist failed after debit",
				"group", groupID, "user", userID, "cost", cost, "error", err)
		}
		return fmt.Errorf("%w: %v", ErrDebitedNotSaved, err)
	}

	if err := p.kv.SetTTL(ctx, UserPromptKey(groupID, userID), prompt, p.cacheTTL); err != nil && utils.Sugar != nil {
		utils.Sugar.Warnw("prompt cache refresh failed", "group", groupID, "user", userID, "error", err)
	}
	return nil
}

// manualUpdatePrompt mirrors the consolidation prompts for the user-issued
// update path: merge when a profile exists, synthesize otherwise.
func manualUpdatePrompt(current, instruction string) string {
	if current != "" {
		return fmt.Sprintf(
			"你是一个记忆管理助手。以下是某用户的当前画像：\n"+
				"--- 当前画像 ---\n%s\n--- 结束 ---\n\n"+
				"用户提供了以下更新指令：\n「%s」\n\n"+
				"请结合当前画像和用户的新指令，生成一个**更新后的、连贯的用户画像**。\n"+
				"保留未被否定的旧信息，融入新内容，删除明显过时或被纠正的信息。\n"+
				"输出应简洁、结构清晰，不超过500字。不要包含解释或问候语。",
			current, instruction)
	}
	return fmt.Sprintf(
		"你是一个记忆管理助手。用户提供了以下关于自己的新信息：\n「%s」\n\n"+
			"请基于此生成一个初步的用户画像，包括兴趣、偏好或背景等。\n"+
			"输出应简洁、结构清晰，不超过500字。不要包含解释或问候语。",
		instruction)
}

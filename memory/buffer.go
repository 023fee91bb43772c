package memory

import (
	"context"
	"encoding/json"
	"fmt"
)

// Buffer accumulates conversational turns per user-in-group and per group until
// a size threshold hands the snapshot to the consolidator.
//
// Append is read-extend-write without cross-request locking: two concurrent
// appends for the same key can lose turns, and an append racing an in-flight
// consolidation still sees the not-yet-cleared buffer. Accepted for this
// domain.
type Buffer struct {
	kv       KV
	cons     *Consolidator
	maxUser  int
	maxGroup int
}

// NewBuffer wires the buffer to its stores and thresholds.
func NewBuffer(kv KV, cons *Consolidator, maxUser, maxGroup int) *Buffer {
	return &Buffer{kv: kv, cons: cons, maxUser: maxUser, maxGroup: maxGroup}
}

// Append records one round of conversation in the user buffer and, outside
// private chats, the group buffer. When a buffer crosses its threshold the
// extended snapshot goes to the consolidator instead of being written back,
// and the key keeps its pre-threshold value until the round clears it.
func (b *Buffer) Append(ctx context.Context, groupID, userID string, turns []Turn) error {
	if userID == "" {
		return fmt.Errorf("userID is required")
	}
	if len(turns) == 0 {
		return nil
	}

	if err := b.appendOne(ctx, UserTempKey(groupID, userID), UserLongKey(groupID, userID), false, b.maxUser, turns); err != nil {
		return err
	}

	if groupID == "" || groupID == PrivateGroup {
		return nil
	}
	return b.appendOne(ctx, GroupTempKey(groupID), GroupLongKey(groupID), true, b.maxGroup, turns)
}

// Read returns the current buffered turns for a key, empty when absent.
func (b *Buffer) Read(ctx context.Context, key string) ([]Turn, error) {
	raw, err := b.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("decode buffer %s: %w", key, err)
	}
	return turns, nil
}

func (b *Buffer) appendOne(ctx context.Context, tempKey, longKey string, isGroup bool, threshold int, turns []Turn) error {
	existing, err := b.Read(ctx, tempKey)
	if err != nil {
		return err
	}
	extended := append(existing, turns...)

	if len(extended) >= threshold {
		b.cons.Submit(Job{
			TempKey: tempKey,
			LongKey: longKey,
			IsGroup: isGroup,
			Turns:   extended,
		})
		return nil
	}

	raw, err := json.Marshal(extended)
	if err != nil {
		return fmt.Errorf("encode buffer %s: %w", tempKey, err)
	}
	return b.kv.Set(ctx, tempKey, string(raw))
}

package memory

import (
	"context"
	"encoding/json"
	"testing"
)

func round(user, assistant string) []Turn {
	return []Turn{
		{Role: RoleUser, Content: user},
		{Role: RoleAssistant, Content: assistant},
	}
}

func readTurns(t *testing.T, kv *fakeKV, key string) []Turn {
	t.Helper()
	raw := kv.value(key)
	if raw == "" {
		return nil
	}
	var turns []Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		t.Fatalf("decode %s: %v", key, err)
	}
	return turns
}

func TestAppendBelowThresholdWritesBothBuffers(t *testing.T) {
	kv := newFakeKV()
	cons := NewConsolidator(kv, &fakeSummarizer{reply: "x"}, 1, 8)
	defer cons.Close()
	buf := NewBuffer(kv, cons, 10, 10)

	if err := buf.Append(context.Background(), "g1", "u1", round("你好", "你好呀～")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if got := readTurns(t, kv, UserTempKey("g1", "u1")); len(got) != 2 {
		t.Fatalf("expected 2 turns in user buffer, got %d", len(got))
	}
	if got := readTurns(t, kv, GroupTempKey("g1")); len(got) != 2 {
		t.Fatalf("expected 2 turns in group buffer, got %d", len(got))
	}
}

func TestAppendExtendsExistingBuffer(t *testing.T) {
	kv := newFakeKV()
	cons := NewConsolidator(kv, &fakeSummarizer{reply: "x"}, 1, 8)
	defer cons.Close()
	buf := NewBuffer(kv, cons, 10, 10)
	ctx := context.Background()

	_ = buf.Append(ctx, "g1", "u1", round("第一句", "嗯嗯"))
	_ = buf.Append(ctx, "g1", "u1", round("第二句", "好的"))

	got := readTurns(t, kv, UserTempKey("g1", "u1"))
	if len(got) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(got))
	}
	if got[2].Content != "第二句" {
		t.Fatalf("turns out of order: %+v", got)
	}
}

func TestAppendPrivateChatSkipsGroupBuffer(t *testing.T) {
	kv := newFakeKV()
	cons := NewConsolidator(kv, &fakeSummarizer{reply: "x"}, 1, 8)
	defer cons.Close()
	buf := NewBuffer(kv, cons, 10, 10)

	if err := buf.Append(context.Background(), PrivateGroup, "u1", round("嗨", "嗨呀")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if len(readTurns(t, kv, UserTempKey(PrivateGroup, "u1"))) != 2 {
		t.Fatal("user buffer should still be written in private chats")
	}
	if kv.has(GroupTempKey(PrivateGroup)) {
		t.Fatal("group buffer must not be written for private chats")
	}
}

func TestAppendAtThresholdTriggersConsolidation(t *testing.T) {
	kv := newFakeKV()
	sum := &fakeSummarizer{reply: "新画像"}
	cons := NewConsolidator(kv, sum, 1, 8)
	defer cons.Close()
	// User threshold of 2 trips on the first round; group stays buffered.
	buf := NewBuffer(kv, cons, 2, 10)

	if err := buf.Append(context.Background(), "g1", "u1", round("我喜欢下雨天", "记住啦～")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	cons.Wait()

	if kv.has(UserTempKey("g1", "u1")) {
		t.Fatal("user buffer should be cleared by consolidation")
	}
	if got := kv.value(UserLongKey("g1", "u1")); got != "新画像" {
		t.Fatalf("unexpected user profile: %q", got)
	}
	if !kv.has(GroupTempKey("g1")) {
		t.Fatal("group buffer below threshold should persist")
	}
}

func TestAppendRequiresUser(t *testing.T) {
	kv := newFakeKV()
	cons := NewConsolidator(kv, &fakeSummarizer{reply: "x"}, 1, 8)
	defer cons.Close()
	buf := NewBuffer(kv, cons, 10, 10)

	if err := buf.Append(context.Background(), "g1", "", round("a", "b")); err == nil {
		t.Fatal("expected an error for empty user id")
	}
}

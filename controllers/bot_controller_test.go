package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/nuobot/memory"
	"github.com/cppla/nuobot/models"
	"github.com/cppla/nuobot/services"
	"github.com/cppla/nuobot/store"
	"github.com/cppla/nuobot/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()
	os.Exit(m.Run())
}

type mapKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (f *mapKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

func (f *mapKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *mapKV) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return f.Set(ctx, key, value)
}

func (f *mapKV) Del(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	delete(f.data, key)
	return ok, nil
}

type echoLLM struct{}

func (echoLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return "摘要", nil
}

func (echoLLM) Chat(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return "AI回复：" + userMessage, nil
}

func newBotRouter(t *testing.T) *gin.Engine {
	t.Helper()

	dsn := fmt.Sprintf("file:bot_%s?mode=memory&cache=shared&_foreign_keys=on",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.UserStatus{}, &models.UserPoints{},
		&models.CheckinRecord{}, &models.UserSystemPrompt{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	kv := &mapKV{data: map[string]string{}}
	ledger := store.NewLedger(db)
	checkins := store.NewCheckins(db)
	llm := echoLLM{}
	cons := memory.NewConsolidator(kv, llm, 1, 8)
	t.Cleanup(cons.Close)
	buffer := memory.NewBuffer(kv, cons, 40, 100)
	profiles := memory.NewProfileStore(kv, store.NewPrompts(db), ledger, llm, services.ChatPersonaPrompt, time.Hour)

	users := services.NewUserService(checkins, ledger, profiles, 50, map[int]int{7: 50, 30: 150}, 50)
	chat := services.NewChatService(llm, profiles, buffer)

	r := gin.New()
	r.POST("/api/v1/bot/message", NewBotController(users, chat).HandleMessage)
	return r
}

func postMessage(t *testing.T, r *gin.Engine, groupID, userID, content string) (int, string) {
	t.Helper()
	body, _ := json.Marshal(MessageRequest{GroupID: groupID, UserID: userID, Content: content})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bot/message", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Reply string `json:"reply"`
		} `json:"data"`
	}
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return w.Code, resp.Data.Reply
}

func TestHandleMessageRequiresFields(t *testing.T) {
	r := newBotRouter(t)

	status, _ := postMessage(t, r, "g1", "", "签到")
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing user_id, got %d", status)
	}
}

func TestHandleMessageCheckinCommand(t *testing.T) {
	r := newBotRouter(t)

	status, reply := postMessage(t, r, "g1", "u1", "/签到")
	if status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if !strings.Contains(reply, "签到成功！+50 积分") {
		t.Fatalf("unexpected reply: %q", reply)
	}

	_, reply = postMessage(t, r, "g1", "u1", "  /签到  ")
	if reply != "你今天已经签到过了！" {
		t.Fatalf("repeat checkin reply: %q", reply)
	}
}

func TestHandleMessageHelpVariants(t *testing.T) {
	r := newBotRouter(t)

	for _, msg := range []string{"/帮助", "帮助", "help", "菜单"} {
		_, reply := postMessage(t, r, "", "u1", msg)
		if !strings.Contains(reply, "使用指南") {
			t.Fatalf("%q should trigger help, got %q", msg, reply)
		}
	}
}

func TestHandleMessageSetProfileNeedsArgument(t *testing.T) {
	r := newBotRouter(t)

	_, reply := postMessage(t, r, "g1", "u1", "/设置用户画像")
	if !strings.Contains(reply, "请提供要设置的用户画像内容") {
		t.Fatalf("unexpected reply: %q", reply)
	}

	_, reply = postMessage(t, r, "g1", "u1", "/设置系统提示词   ")
	if !strings.Contains(reply, "请提供要设置的系统提示词内容") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestHandleMessageSystemPromptFlow(t *testing.T) {
	r := newBotRouter(t)

	_, reply := postMessage(t, r, "g1", "u1", "/设置系统提示词 冷静的学术助手")
	if reply != "积分不足！设置系统提示词需要 50 积分。" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	postMessage(t, r, "g1", "u1", "/签到")

	_, reply = postMessage(t, r, "g1", "u1", "/设置系统提示词 冷静的学术助手")
	if reply != "个性化系统提示词已设置成功！已扣除 50 积分。" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	_, reply = postMessage(t, r, "g1", "u1", "/查看系统提示词")
	if reply != "冷静的学术助手" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestHandleMessageFallsThroughToChat(t *testing.T) {
	r := newBotRouter(t)

	_, reply := postMessage(t, r, "g1", "u1", "今晚吃什么？")
	if !strings.HasPrefix(reply, "AI回复：[群组ID:g1|用户ID:u1] ") {
		t.Fatalf("unexpected reply: %q", reply)
	}

	_, reply = postMessage(t, r, "", "u1", "今晚吃什么？")
	if !strings.HasPrefix(reply, "AI回复：[私聊|用户ID:u1] ") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestHandleMessageQueryPointsCommand(t *testing.T) {
	r := newBotRouter(t)

	_, reply := postMessage(t, r, "g1", "u1", "/查询积分")
	if reply != "你还没有签到记录。发送“签到”开始吧！" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

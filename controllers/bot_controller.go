package controllers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/nuobot/memory"
	"github.com/cppla/nuobot/services"
	"github.com/cppla/nuobot/utils"
)

// Command patterns, anchored so a command must be the whole message.
var (
	checkinPattern     = regexp.MustCompile(`^\s*/签到\s*$`)
	queryPointsPattern = regexp.MustCompile(`^\s*/查询积分\s*$`)
	clearMemPattern    = regexp.MustCompile(`^\s*/清空用户画像\s*$`)
	queryMemPattern    = regexp.MustCompile(`^\s*/查询用户画像\s*$`)
	setMemPattern      = regexp.MustCompile(`(?s)^\s*/设置用户画像\s*(.*)$`)
	viewPromptPattern  = regexp.MustCompile(`^\s*/查看系统提示词\s*$`)
	setPromptPattern   = regexp.MustCompile(`(?s)^\s*/设置系统提示词\s*(.*)$`)
	helpPattern        = regexp.MustCompile(`(?i)^\s*(帮助|help|菜单|/帮助)\s*$`)
)

const fallbackReply = "抱歉，系统出错了，请稍后再试。"

// BotController receives inbound chat messages and dispatches commands or the
// AI reply path.
type BotController struct {
	users *services.UserService
	chat  *services.ChatService
}

// NewBotController creates a new controller instance.
func NewBotController(users *services.UserService, chat *services.ChatService) *BotController {
	return &BotController{users: users, chat: chat}
}

// MessageRequest is one inbound message. An empty group_id means a private
// conversation.
type MessageRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// HandleMessage routes a message to its command handler, or to the chat model
// when no command matches. Internal failures never leak; the user gets a
// generic apology and the cause goes to the log.
func (b *BotController) HandleMessage(ctx *gin.Context) {
	var req MessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "user_id and content are required")
		return
	}

	gid := strings.TrimSpace(req.GroupID)
	if gid == "" {
		gid = memory.PrivateGroup
	}
	uid := strings.TrimSpace(req.UserID)
	msg := utils.Sanitize(req.Content)

	reply, err := b.dispatch(ctx, gid, uid, msg)
	if err != nil {
		utils.Sugar.Errorw("message handling failed", "group", gid, "user", uid, "error", err)
		reply = fallbackReply
	}
	utils.Success(ctx, gin.H{"reply": reply})
}

func (b *BotController) dispatch(ctx *gin.Context, gid, uid, msg string) (string, error) {
	rc := ctx.Request.Context()

	switch {
	case checkinPattern.MatchString(msg):
		return b.users.HandleCheckin(rc, gid, uid)

	case queryPointsPattern.MatchString(msg):
		return b.users.HandleQueryPoints(rc, gid, uid)

	case clearMemPattern.MatchString(msg):
		return b.users.ClearUserProfile(rc, gid, uid)

	case queryMemPattern.MatchString(msg):
		return b.users.QueryUserProfile(rc, gid, uid)

	case viewPromptPattern.MatchString(msg):
		return b.users.GetSystemPrompt(rc, gid, uid)

	case helpPattern.MatchString(msg):
		return b.users.Help(), nil
	}

	if m := setMemPattern.FindStringSubmatch(msg); m != nil {
		arg := strings.TrimSpace(m[1])
		if arg == "" {
			return "请提供要设置的用户画像内容，例如：\n/设置用户画像 我喜欢科幻电影，讨厌香菜", nil
		}
		return b.users.UpdateUserProfile(rc, gid, uid, arg)
	}

	if m := setPromptPattern.FindStringSubmatch(msg); m != nil {
		arg := strings.TrimSpace(m[1])
		if arg == "" {
			return "请提供要设置的系统提示词内容，例如：\n/设置系统提示词 你是一个冷静的学术助手，禁止使用颜文字", nil
		}
		return b.users.UpdateSystemPrompt(rc, gid, uid, arg)
	}

	return b.chat.Chat(rc, gid, uid, msg)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cppla/nuobot/memory"
	"github.com/cppla/nuobot/models"
	"github.com/cppla/nuobot/store"
	"github.com/cppla/nuobot/utils"
)

const dateLayout = "2006-01-02"

// UserService implements the user-facing commands: daily check-in, points
// query, profile management and the paid system prompt override. Every method
// returns a ready-to-send reply string; an error means an unexpected failure
// the caller should mask with a generic apology.
type UserService struct {
	checkins *store.Checkins
	ledger   *store.Ledger
	profiles *memory.ProfileStore

	checkinPoints int
	streakBonus   map[int]int
	promptCost    int

	// now is swapped in tests to pin the calendar.
	now func() time.Time
}

// NewUserService wires the service over its stores.
func NewUserService(checkins *store.Checkins, ledger *store.Ledger, profiles *memory.ProfileStore, checkinPoints int, streakBonus map[int]int, promptCost int) *UserService {
	return &UserService{
		checkins:      checkins,
		ledger:        ledger,
		profiles:      profiles,
		checkinPoints: checkinPoints,
		streakBonus:   streakBonus,
		promptCost:    promptCost,
		now:           time.Now,
	}
}

// HandleCheckin runs the daily check-in. A second check-in the same day is a
// no-op, a gap resets the streak, a recorded date in the future (clock rolled
// back) counts the day without touching the streak. The record is persisted
// before any points are awarded; if persistence fails nothing is awarded.
func (s *UserService) HandleCheckin(ctx context.Context, groupID, userID string) (string, error) {
	today := s.now()
	todayStr := today.Format(dateLayout)
	yesterdayStr := today.AddDate(0, 0, -1).Format(dateLayout)

	rec, err := s.checkins.Get(ctx, groupID, userID)
	if err != nil {
		return "", fmt.Errorf("read checkin record: %w", err)
	}

	var totalDays, streakDays int
	if rec == nil {
		totalDays = 1
		streakDays = 1
	} else {
		lastStr := rec.LastCheckinDate.Format(dateLayout)
		if lastStr == todayStr {
			return "你今天已经签到过了！", nil
		}
		totalDays = rec.TotalDays + 1
		switch {
		case lastStr == yesterdayStr:
			streakDays = rec.StreakDays + 1
		case lastStr < yesterdayStr:
			streakDays = 1
		default:
			// Recorded date is in the future; keep the streak as-is.
			streakDays = rec.StreakDays
		}
	}

	err = s.checkins.Upsert(ctx, &models.CheckinRecord{
		UserID:          userID,
		GroupID:         groupID,
		LastCheckinDate: time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()),
		TotalDays:       totalDays,
		StreakDays:      streakDays,
		UpdatedAt:       today,
	})
	if err != nil {
		utils.Sugar.Errorw("checkin persist failed", "group", groupID, "user", userID, "error", err)
		return "签到失败，请稍后再试。", nil
	}

	bonus := s.streakBonus[streakDays]
	delta := s.checkinPoints + bonus

	if err := s.ledger.EnsureStatus(ctx, groupID, userID); err != nil {
		return "", fmt.Errorf("ensure status: %w", err)
	}
	if _, err := s.ledger.Adjust(ctx, groupID, userID, delta); err != nil {
		return "", fmt.Errorf("award points: %w", err)
	}

	points, _, err := s.ledger.GetBalance(ctx, groupID, userID)
	if err != nil {
		return "", fmt.Errorf("read balance: %w", err)
	}

	reply := fmt.Sprintf("签到成功！+%d 积分", s.checkinPoints)
	if bonus > 0 {
		reply += fmt.Sprintf("\n连续签到 %d 天！额外奖励 +%d 积分", streakDays, bonus)
	}
	reply += fmt.Sprintf("\n当前积分：%d", points)
	reply += fmt.Sprintf("\n累计签到：%d 天", totalDays)
	reply += fmt.Sprintf("\n连续签到：%d 天", streakDays)
	return reply, nil
}

// HandleQueryPoints reports the balance and check-in history for a user.
func (s *UserService) HandleQueryPoints(ctx context.Context, groupID, userID string) (string, error) {
	points, hasPoints, err := s.ledger.GetBalance(ctx, groupID, userID)
	if err != nil {
		return "", fmt.Errorf("read balance: %w", err)
	}
	rec, err := s.checkins.Get(ctx, groupID, userID)
	if err != nil {
		return "", fmt.Errorf("read checkin record: %w", err)
	}

	if !hasPoints && rec == nil {
		return "你还没有签到记录。发送“签到”开始吧！", nil
	}

	reply := ""
	if hasPoints {
		reply = fmt.Sprintf("当前积分：%d", points)
	}
	if rec != nil {
		if reply != "" {
			reply += "\n"
		}
		reply += fmt.Sprintf("累计签到：%d 天\n连续签到：%d 天\n上次签到：%s",
			rec.TotalDays, rec.StreakDays, rec.LastCheckinDate.Format(dateLayout))
	}
	return reply, nil
}

// QueryUserProfile returns the long-term profile text for display.
func (s *UserService) QueryUserProfile(ctx context.Context, groupID, userID string) (string, error) {
	profile, err := s.profiles.UserProfile(ctx, groupID, userID)
	if err != nil {
		return "", fmt.Errorf("read profile: %w", err)
	}
	if profile == "" {
		return "暂无关于该用户的长期记忆。", nil
	}
	return profile, nil
}

// ClearUserProfile removes the long-term profile for the user in this context.
func (s *UserService) ClearUserProfile(ctx context.Context, groupID, userID string) (string, error) {
	deleted, err := s.profiles.ClearUserProfile(ctx, groupID, userID)
	if err != nil {
		return "", fmt.Errorf("clear profile: %w", err)
	}
	if deleted {
		return fmt.Sprintf("已成功清除用户 %s 在上下文 %s 中的长期记忆。", userID, groupID), nil
	}
	return fmt.Sprintf("未找到用户 %s 在上下文 %s 的长期记忆，无需清除。", userID, groupID), nil
}

// UpdateUserProfile merges a user-issued instruction into the stored profile.
func (s *UserService) UpdateUserProfile(ctx context.Context, groupID, userID, instruction string) (string, error) {
	profile, err := s.profiles.UpdateUserProfile(ctx, groupID, userID, instruction)
	if err != nil {
		utils.Sugar.Errorw("profile update failed", "group", groupID, "user", userID, "error", err)
		return "更新失败，请稍后再试。", nil
	}
	return "用户画像已更新。新画像：" + profile, nil
}

// GetSystemPrompt shows the prompt currently in effect for the user.
func (s *UserService) GetSystemPrompt(ctx context.Context, groupID, userID string) (string, error) {
	return s.profiles.SystemPrompt(ctx, groupID, userID)
}

// UpdateSystemPrompt debits the configured cost and installs a personal system
// prompt override.
func (s *UserService) UpdateSystemPrompt(ctx context.Context, groupID, userID, prompt string) (string, error) {
	err := s.profiles.SetSystemPrompt(ctx, groupID, userID, prompt, s.promptCost)
	switch {
	case err == nil:
		return fmt.Sprintf("个性化系统提示词已设置成功！已扣除 %d 积分。", s.promptCost), nil
	case errors.Is(err, memory.ErrInsufficientBalance):
		return fmt.Sprintf("积分不足！设置系统提示词需要 %d 积分。", s.promptCost), nil
	case errors.Is(err, memory.ErrDebitedNotSaved):
		return fmt.Sprintf("保存失败，但已扣除 %d 积分（请联系管理员）。", s.promptCost), nil
	default:
		utils.Sugar.Errorw("system prompt debit failed", "group", groupID, "user", userID, "error", err)
		return "扣除积分失败，请稍后再试。", nil
	}
}

// Help returns the usage guide.
func (s *UserService) Help() string {
	return HelpMessage(s.promptCost)
}

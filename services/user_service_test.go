package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/nuobot/models"
	"github.com/cppla/nuobot/store"
	"github.com/cppla/nuobot/utils"
)

func TestMain(m *testing.M) {
	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_foreign_keys=on",
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
	return db
}

// newCheckinService pins the clock to a fixed day so streak math is stable.
func newCheckinService(t *testing.T, today time.Time) (*UserService, *store.Ledger, *store.Checkins) {
	t.Helper()
	db := newTestDB(t)
	ledger := store.NewLedger(db)
	checkins := store.NewCheckins(db)
	svc := NewUserService(checkins, ledger, nil, 50, map[int]int{7: 50, 30: 150}, 50)
	svc.now = func() time.Time { return today }
	return svc, ledger, checkins
}

var day10 = time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)

func seedRecord(t *testing.T, checkins *store.Checkins, last time.Time, total, streak int) {
	t.Helper()
	err := checkins.Upsert(context.Background(), &models.CheckinRecord{
		UserID: "u1", GroupID: "g1",
		LastCheckinDate: last, TotalDays: total, StreakDays: streak, UpdatedAt: last,
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func TestHandleCheckinFirstTime(t *testing.T) {
	svc, ledger, checkins := newCheckinService(t, day10)
	ctx := context.Background()

	reply, err := svc.HandleCheckin(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("HandleCheckin: %v", err)
	}
	if !strings.Contains(reply, "签到成功！+50 积分") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if !strings.Contains(reply, "当前积分：50") {
		t.Fatalf("balance missing from reply: %q", reply)
	}
	if strings.Contains(reply, "额外奖励") {
		t.Fatalf("no bonus expected on day 1: %q", reply)
	}

	points, _, _ := ledger.GetBalance(ctx, "g1", "u1")
	if points != 50 {
		t.Fatalf("expected 50 points, got %d", points)
	}
	rec, _ := checkins.Get(ctx, "g1", "u1")
	if rec == nil || rec.TotalDays != 1 || rec.StreakDays != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestHandleCheckinSameDayIsNoOp(t *testing.T) {
	svc, ledger, _ := newCheckinService(t, day10)
	ctx := context.Background()

	if _, err := svc.HandleCheckin(ctx, "g1", "u1"); err != nil {
		t.Fatalf("first checkin: %v", err)
	}
	reply, err := svc.HandleCheckin(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("second checkin: %v", err)
	}
	if reply != "你今天已经签到过了！" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	points, _, _ := ledger.GetBalance(ctx, "g1", "u1")
	if points != 50 {
		t.Fatalf("balance must not change on a repeat, got %d", points)
	}
}

func TestHandleCheckinConsecutiveDayExtendsStreak(t *testing.T) {
	svc, _, checkins := newCheckinService(t, day10)
	seedRecord(t, checkins, day10.AddDate(0, 0, -1), 4, 2)

	reply, err := svc.HandleCheckin(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("HandleCheckin: %v", err)
	}
	if !strings.Contains(reply, "累计签到：5 天") || !strings.Contains(reply, "连续签到：3 天") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestHandleCheckinStreakBonusExactMilestone(t *testing.T) {
	svc, ledger, checkins := newCheckinService(t, day10)
	seedRecord(t, checkins, day10.AddDate(0, 0, -1), 10, 6)

	reply, err := svc.HandleCheckin(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("HandleCheckin: %v", err)
	}
	if !strings.Contains(reply, "连续签到 7 天！额外奖励 +50 积分") {
		t.Fatalf("expected day-7 bonus line: %q", reply)
	}

	points, _, _ := ledger.GetBalance(context.Background(), "g1", "u1")
	if points != 100 {
		t.Fatalf("expected 50+50 points, got %d", points)
	}
}

func TestHandleCheckinNoBonusPastMilestone(t *testing.T) {
	svc, ledger, checkins := newCheckinService(t, day10)
	seedRecord(t, checkins, day10.AddDate(0, 0, -1), 11, 7)

	reply, err := svc.HandleCheckin(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("HandleCheckin: %v", err)
	}
	if strings.Contains(reply, "额外奖励") {
		t.Fatalf("day 8 must not award a bonus: %q", reply)
	}

	points, _, _ := ledger.GetBalance(context.Background(), "g1", "u1")
	if points != 50 {
		t.Fatalf("expected 50 points, got %d", points)
	}
}

func TestHandleCheckinGapResetsStreak(t *testing.T) {
	svc, _, checkins := newCheckinService(t, day10)
	seedRecord(t, checkins, day10.AddDate(0, 0, -3), 9, 5)

	reply, err := svc.HandleCheckin(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("HandleCheckin: %v", err)
	}
	if !strings.Contains(reply, "累计签到：10 天") || !strings.Contains(reply, "连续签到：1 天") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestHandleCheckinClockRollbackKeepsStreak(t *testing.T) {
	svc, _, checkins := newCheckinService(t, day10)
	// Record dated after "today": the clock moved backwards.
	seedRecord(t, checkins, day10.AddDate(0, 0, 2), 6, 4)

	reply, err := svc.HandleCheckin(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("HandleCheckin: %v", err)
	}
	if !strings.Contains(reply, "累计签到：7 天") || !strings.Contains(reply, "连续签到：4 天") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestHandleCheckinPersistFailureAwardsNothing(t *testing.T) {
	db := newTestDB(t)
	ledger := store.NewLedger(db)
	svc := NewUserService(store.NewCheckins(db), ledger, nil, 50, map[int]int{7: 50}, 50)
	svc.now = func() time.Time { return day10 }
	ctx := context.Background()

	// Block record writes so the persist step fails.
	err := db.Exec(`CREATE TRIGGER block_checkins BEFORE INSERT ON checkin_records
		BEGIN SELECT RAISE(ABORT, 'checkin writes blocked'); END`).Error
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	reply, err := svc.HandleCheckin(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("HandleCheckin: %v", err)
	}
	if reply != "签到失败，请稍后再试。" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	_, ok, err := ledger.GetBalance(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if ok {
		t.Fatal("no points may be awarded when the record does not persist")
	}
}

func TestHandleQueryPointsNoHistory(t *testing.T) {
	svc, _, _ := newCheckinService(t, day10)

	reply, err := svc.HandleQueryPoints(context.Background(), "g1", "u1")
	if err != nil {
		t.Fatalf("HandleQueryPoints: %v", err)
	}
	if reply != "你还没有签到记录。发送“签到”开始吧！" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestHandleQueryPointsAfterCheckin(t *testing.T) {
	svc, _, _ := newCheckinService(t, day10)
	ctx := context.Background()

	if _, err := svc.HandleCheckin(ctx, "g1", "u1"); err != nil {
		t.Fatalf("HandleCheckin: %v", err)
	}
	reply, err := svc.HandleQueryPoints(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("HandleQueryPoints: %v", err)
	}
	for _, want := range []string{"当前积分：50", "累计签到：1 天", "连续签到：1 天", "上次签到：2026-03-10"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("reply missing %q: %q", want, reply)
		}
	}
}

func TestHelpMentionsEveryCommand(t *testing.T) {
	svc, _, _ := newCheckinService(t, day10)

	help := svc.Help()
	for _, cmd := range []string{"/签到", "/查询积分", "/查询用户画像", "/清空用户画像", "/设置用户画像", "/查看系统提示词", "/设置系统提示词", "/帮助"} {
		if !strings.Contains(help, cmd) {
			t.Fatalf("help missing %q", cmd)
		}
	}
	if !strings.Contains(help, "消耗 50 积分") {
		t.Fatal("help should state the configured prompt cost")
	}
}

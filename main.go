package main

import (
	"time"

	"github.com/cppla/nuobot/config"
	"github.com/cppla/nuobot/controllers"
	"github.com/cppla/nuobot/llm"
	"github.com/cppla/nuobot/memory"
	"github.com/cppla/nuobot/models"
	"github.com/cppla/nuobot/routes"
	"github.com/cppla/nuobot/services"
	"github.com/cppla/nuobot/store"
	"github.com/cppla/nuobot/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db, err := config.InitDatabase(cfg,
		&models.UserStatus{}, &models.UserPoints{},
		&models.CheckinRecord{}, &models.UserSystemPrompt{})
	if err != nil {
		utils.Sugar.Fatalf("database init failed: %v", err)
	}

	rdb, err := config.InitRedis(cfg)
	if err != nil {
		utils.Sugar.Fatalf("redis init failed: %v", err)
	}

	llmClient, err := llm.NewClient(llm.Config{
		APIKey:             cfg.LLMAPIKey,
		BaseURL:            cfg.LLMBaseURL,
		ChatModel:          cfg.ChatModel,
		SummaryModel:       cfg.SummaryModel,
		ChatTemperature:    cfg.ChatTemperature,
		ChatMaxTokens:      cfg.ChatMaxTokens,
		SummaryTemperature: cfg.SummaryTemperature,
		SummaryMaxTokens:   cfg.SummaryMaxTokens,
	})
	if err != nil {
		utils.Sugar.Fatalf("llm client init failed: %v", err)
	}

	ledger := store.NewLedger(db)
	checkins := store.NewCheckins(db)
	prompts := store.NewPrompts(db)

	kv := memory.NewRedisKV(rdb)
	consolidator := memory.NewConsolidator(kv, llmClient, cfg.ConsolidateWorkers, cfg.ConsolidateQueueSize)
	buffer := memory.NewBuffer(kv, consolidator, cfg.MaxUserMessages, cfg.MaxGroupMessages)
	profiles := memory.NewProfileStore(kv, prompts, ledger, llmClient,
		services.ChatPersonaPrompt, time.Duration(cfg.PromptCacheTTLSec)*time.Second)

	userService := services.NewUserService(checkins, ledger, profiles,
		cfg.CheckinPoints, cfg.StreakBonus, cfg.SystemPromptCost)
	chatService := services.NewChatService(llmClient, profiles, buffer)

	r := routes.SetupRouter(
		controllers.NewBotController(userService, chatService),
		controllers.NewAuthController(),
		controllers.NewPointsController(ledger, checkins),
	)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, consolidator.Close); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

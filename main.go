package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/anthropics/feishu-trigger-bot/feishu"
	"github.com/anthropics/feishu-trigger-bot/internal/biz/usecase"
	"github.com/anthropics/feishu-trigger-bot/internal/conf"
	"github.com/anthropics/feishu-trigger-bot/internal/data"
	"github.com/anthropics/feishu-trigger-bot/internal/server"
	"github.com/anthropics/feishu-trigger-bot/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := conf.LoadFromEnv()
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	repos, err := data.NewRepositories(config.DBPath)
	if err != nil {
		log.Fatalf("Failed to open trigger database: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	settingsUC := usecase.NewSettingsUsecase(repos.Settings)
	if err := settingsUC.Load(ctx); err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	triggerUC := usecase.NewTriggerUsecase(repos.Trigger, settingsUC)
	if err := triggerUC.Load(ctx); err != nil {
		log.Fatalf("Failed to load triggers: %v", err)
	}
	log.Printf("[Main] Loaded %d triggers from %s", triggerUC.Count(), config.DBPath)

	helpCfg, err := conf.LoadHelpConfig(config.HelpConfigPath)
	if err != nil {
		log.Fatalf("Failed to load help pages: %v", err)
	}

	client := feishu.NewClient(config.Feishu.AppID, config.Feishu.AppSecret)
	commandSvc := service.NewCommandService(triggerUC, settingsUC, helpCfg)
	triggerSvc := service.NewTriggerService(triggerUC, client)

	srv := server.NewFeishuServer(client, commandSvc, triggerSvc, config.OwnerID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		srv.Stop()
		repos.Close()
		os.Exit(0)
	}()

	fmt.Println("Starting Feishu Trigger Bot...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

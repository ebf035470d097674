package cmd

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aldikteam/aldikbot/internal/ai"
	"github.com/aldikteam/aldikbot/internal/anon"
	"github.com/aldikteam/aldikbot/internal/channels/telegram"
	"github.com/aldikteam/aldikbot/internal/config"
	"github.com/aldikteam/aldikbot/internal/engine"
	"github.com/aldikteam/aldikbot/internal/memes"
	"github.com/aldikteam/aldikbot/internal/memes/inflact"
	"github.com/aldikteam/aldikbot/internal/memes/tikwm"
	"github.com/aldikteam/aldikbot/internal/store"
	"github.com/aldikteam/aldikbot/internal/texts"
)

func runBot() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	// .env is optional; real deployments set env vars directly.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env")
	}

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateForRun(); err != nil {
		slog.Error("configuration incomplete", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("database ready", "path", cfg.Database.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go st.StartPruner(ctx, cfg.Database.PruneSchedule)

	anonState := anon.NewState()
	channel, err := telegram.New(telegram.Config{
		Token: cfg.Telegram.Token,
		Proxy: cfg.Telegram.Proxy,
	}, st, anonState)
	if err != nil {
		slog.Error("failed to create telegram channel", "error", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	styleClient := ai.New(ai.Config{
		BaseURL:   cfg.AI.BaseURL,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	}, texts.AIVocab, rand.New(rand.NewSource(rng.Int63())))

	eng := engine.New(engine.Config{
		BotUsername:          channel.Username(),
		SpecialSenderHandle:  cfg.Special.SenderHandle,
		SpecialTargetHandle:  cfg.Special.TargetHandle,
		DecorationFileID:     cfg.Responses.DecorationFileID,
		ModeratorVoiceFileID: cfg.Responses.ModeratorVoiceFileID,
		PhotoFreshness:       cfg.Memes.PhotoFreshness(),
		VideoFreshness:       cfg.Memes.VideoFreshness(),
		SadFreshness:         cfg.Memes.SadFreshness(),
	}, engine.Deps{
		Settings:     st,
		History:      st,
		Deliver:      channel,
		PhotoSources: []memes.Source{inflact.New(cfg.Memes.InstagramProfile)},
		VideoSources: []memes.Source{tikwm.New(cfg.Memes.TikTokKeywords...)},
		SadSources:   []memes.Source{tikwm.New(cfg.Memes.SadTikTokKeywords...)},
		Style:        styleClient,
		Chat:         channel.History(),
	}, rng)
	channel.SetEngine(eng)

	if err := channel.Start(ctx); err != nil {
		slog.Error("failed to start telegram channel", "error", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	slog.Info("shutting down")

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	if err := channel.Stop(stopCtx); err != nil {
		slog.Warn("channel stop failed", "error", err)
	}
}

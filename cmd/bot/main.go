package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/slog"
	"github.com/joho/godotenv"

	"nutribot/internal/auth"
	"nutribot/internal/chat"
	"nutribot/internal/config"
	"nutribot/internal/gateway"
	"nutribot/internal/notify"
	"nutribot/internal/prefs"
	"nutribot/internal/profile"
	"nutribot/internal/scheduler"
	"nutribot/internal/session"
	"nutribot/internal/storage"
	"nutribot/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warnf(".env file not found: %v", err)
	}

	cfg := config.New()
	slog.SetLogLevel(slog.LevelByName(cfg.LogLevel))

	kv, closeKV, err := newStore(cfg)
	if err != nil {
		slog.Fatalf("failed to init local store: %v", err)
	}
	defer closeKV()

	var allowRepo auth.Repository
	if cfg.AllowlistFilePath != "" {
		repo, err := auth.NewFileRepository(cfg.AllowlistFilePath)
		if err != nil {
			slog.Errorf("failed to init allowlist repo: %v", err)
		} else {
			allowRepo = repo
		}
	}
	authSvc, err := auth.NewWithRepo(allowRepo, cfg.AllowedUsers)
	if err != nil {
		slog.Fatalf("failed to init auth: %v", err)
	}

	api := gateway.New(cfg.APIBaseURL, cfg.APITimeout)
	sessionStore := session.NewStore(api, kv)
	api.SetTokenSource(sessionStore.Token)

	prefsStore := prefs.NewStore(kv)
	profileStore := profile.NewStore(kv)
	chats := chat.NewStore(api, kv, prefsStore.Language, func() any {
		p := profileStore.Profile()
		if p.Name == "" && p.AgeRange == "" && len(p.HealthConditions) == 0 {
			return nil
		}
		return p
	})

	bot, err := telegram.New(cfg.TelegramBotToken, telegram.Deps{
		Auth:        authSvc,
		Session:     sessionStore,
		Chats:       chats,
		Profile:     profileStore,
		Prefs:       prefsStore,
		Gateway:     api,
		DownloadDir: cfg.DownloadDir,
		AdminUserID: cfg.AdminUserID,
	})
	if err != nil {
		slog.Fatalf("failed to create bot: %v", err)
	}

	// A rejected token means the session is gone for good; drop it and tell
	// the user instead of retrying with the same credentials.
	api.SetUnauthorizedHandler(func() {
		sessionStore.Logout()
		bot.Toasts().Error("Session expired", "Please /login again.")
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Rehydrate persisted state before taking updates.
	sessionStore.CheckAuth(ctx)
	if err := chats.LoadConversations(); err != nil {
		slog.Errorf("failed to load conversations: %v", err)
	}
	if err := profileStore.Load(); err != nil {
		slog.Errorf("failed to load profile: %v", err)
	}

	sched := scheduler.New(cfg.ReminderCron)
	sched.SetReminderFunc(func(context.Context) error {
		if !prefsStore.NotificationsEnabled() {
			return nil
		}
		bot.Toasts().Show("Meal reminder", "Time to plan today's meals. Ask me or run /mealplan.",
			notify.WithDuration(0))
		return nil
	})
	if err := sched.Start(); err != nil {
		slog.Errorf("failed to start reminder scheduler: %v", err)
	}
	defer sched.Stop()

	slog.Infof("nutribot started, api at %s", cfg.APIBaseURL)
	bot.Start(ctx)
}

func newStore(cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		s, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Errorf("failed to close store: %v", err)
			}
		}, nil
	default:
		s, err := storage.NewFileStore(cfg.StoreFilePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

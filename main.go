package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"voice-blog-bot/auth"
	"voice-blog-bot/compiler"
	"voice-blog-bot/config"
	"voice-blog-bot/formatter"
	"voice-blog-bot/ingest"
	"voice-blog-bot/publisher"
	"voice-blog-bot/scheduler"
	"voice-blog-bot/store"
	"voice-blog-bot/storage"
	"voice-blog-bot/transcriber"
)

func main() {
	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	slog.Info("starting Voice Blog Bot")

	// Load configuration
	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("config loaded", "path", configPath, "platform", cfg.Platform)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Error("failed to load timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database initialized", "path", cfg.DBPath)

	// Initialize Telegram bot
	tgBot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		slog.Error("failed to initialize Telegram bot", "error", err)
		os.Exit(1)
	}
	slog.Info("telegram bot initialized", "username", tgBot.Self.UserName)

	// Initialize components
	transcripts := store.New(loc)
	guard := auth.NewGuard(cfg.AllowedUserID)
	voiceTranscriber := transcriber.NewTranscriber(
		cfg.TranscriberAPIKey,
		transcriber.WithBaseURL(cfg.TranscriberURL),
		transcriber.WithTimeout(time.Duration(cfg.TranscribeTimeoutS)*time.Second),
	)
	articleFormatter := formatter.NewFormatter(
		cfg.OpenRouterAPIKey,
		formatter.WithModel(cfg.OpenRouterModel),
		formatter.WithTimeout(time.Duration(cfg.FormatTimeoutS)*time.Second),
	)
	blogPublisher, err := publisher.New(
		cfg.Platform,
		cfg.BlogAPIURL,
		cfg.BlogAPIKey,
		time.Duration(cfg.PublishTimeoutS)*time.Second,
	)
	if err != nil {
		slog.Error("failed to initialize publisher", "platform", cfg.Platform, "error", err)
		os.Exit(1)
	}

	// Initialize scheduler
	sched, err := scheduler.NewScheduler(cfg.Timezone)
	if err != nil {
		slog.Error("failed to initialize scheduler", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	// Create app instance
	app := &App{
		cfg:         cfg,
		db:          db,
		tgBot:       tgBot,
		guard:       guard,
		transcripts: transcripts,
		ingester:    ingest.NewHandler(voiceTranscriber, transcripts),
		formatter:   articleFormatter,
		publisher:   blogPublisher,
		scheduler:   sched,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		chatID:      cfg.AllowedUserID,
	}

	// A private chat with the allowed user has chat ID == user ID, but a
	// stored one from a previous /start wins.
	if chatIDStr, err := db.GetSetting(context.Background(), "chat_id"); err == nil {
		if id, err := strconv.ParseInt(chatIDStr, 10, 64); err == nil {
			app.chatID = id
		}
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Schedule the daily compile
	if err := sched.Schedule(cfg.CompileTime, func() {
		app.runCompile(context.Background())
	}); err != nil {
		slog.Error("failed to schedule compile", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()
	slog.Info("daily compile scheduled", "time", cfg.CompileTime, "timezone", cfg.Timezone)

	// Run the bot
	slog.Info("starting bot polling")
	app.run(ctx)
	slog.Info("bot stopped")
}

// App holds all application dependencies.
type App struct {
	cfg         *config.Config
	db          *storage.DB
	tgBot       *tgbotapi.BotAPI
	guard       *auth.Guard
	transcripts *store.Store
	ingester    *ingest.Handler
	formatter   *formatter.Formatter
	publisher   publisher.Publisher
	scheduler   *scheduler.Scheduler
	httpClient  *http.Client
	chatID      int64
	mu          sync.RWMutex
}

func (a *App) run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := a.tgBot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.tgBot.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message != nil {
				a.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (a *App) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}

	// Authorization comes before anything else; unauthorized events cause
	// no state change and no external calls.
	if !a.guard.Allow(msg.From.ID) {
		slog.Warn("rejected message from unauthorized user", "user_id", msg.From.ID)
		a.reply(msg.Chat.ID, "Sorry, you are not authorized to use this bot.")
		return
	}

	if msg.Voice != nil {
		a.handleVoiceMessage(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	slog.Info("received command", "chat_id", msg.Chat.ID, "text", text)

	switch text {
	case "/start":
		a.handleStartCommand(ctx, msg.Chat.ID)
	case "/compile":
		a.handleCompileCommand(ctx, msg.Chat.ID)
	case "/status":
		a.handleStatusCommand(ctx, msg.Chat.ID)
	}
}

func (a *App) handleStartCommand(ctx context.Context, chatID int64) {
	a.mu.Lock()
	a.chatID = chatID
	a.mu.Unlock()

	if err := a.db.SetSetting(ctx, "chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		slog.Warn("failed to save chat_id", "error", err)
	}

	msg := "👋 Welcome to your Voice Blog Bot!\n\n" +
		"Send me voice messages throughout the day, and I'll compile them into a blog post every evening at " + a.cfg.CompileTime + ".\n\n" +
		"Commands:\n" +
		"/start - Show this message\n" +
		"/compile - Compile today's voice notes into a blog post now\n" +
		"/status - Check how many voice notes you've sent today"

	a.reply(chatID, msg)
}

func (a *App) handleCompileCommand(ctx context.Context, chatID int64) {
	a.mu.Lock()
	a.chatID = chatID
	a.mu.Unlock()

	a.reply(chatID, "Compiling today's voice notes...")

	// The store's per-day compile flag rejects a trigger that races the
	// scheduled one, so this can run off the update loop.
	go a.runCompile(ctx)
}

func (a *App) handleStatusCommand(ctx context.Context, chatID int64) {
	today := a.transcripts.Today()
	count := a.transcripts.Count(today)

	msg := fmt.Sprintf("You've sent %d voice notes today.", count)

	if published, err := a.db.CountPosts(ctx); err == nil && published > 0 {
		msg += fmt.Sprintf("\n%d posts published so far.", published)
	}

	a.reply(chatID, msg)
}

func (a *App) handleVoiceMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	slog.Info("received voice message", "chat_id", chatID, "duration", msg.Voice.Duration)

	audio, err := a.downloadVoice(ctx, msg.Voice.FileID)
	if err != nil {
		slog.Error("failed to download voice message", "error", err)
		a.reply(chatID, "Couldn't download that voice message, please try again.")
		return
	}

	ts := time.Unix(int64(msg.Date), 0)
	_, count, err := a.ingester.Ingest(ctx, audio, ts)
	if err != nil {
		slog.Error("failed to transcribe voice message", "error", err)
		a.reply(chatID, "Transcription failed, that note was not recorded: "+err.Error())
		return
	}

	a.reply(chatID, fmt.Sprintf("🎤 Added to today's draft (%d notes).", count))
}

func (a *App) downloadVoice(ctx context.Context, fileID string) ([]byte, error) {
	file, err := a.tgBot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(a.cfg.TelegramToken), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (a *App) runCompile(ctx context.Context) {
	runner := compiler.NewRunner(
		a.transcripts,
		a.formatter,
		&publisherAdapter{a.publisher},
		compiler.WithArchive(&archiveAdapter{db: a.db, platform: a.cfg.Platform}),
		compiler.WithNotifier(&notifierAdapter{a}),
	)

	err := runner.Run(ctx, a.transcripts.Today())
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNothingToCompile), errors.Is(err, store.ErrCompileInProgress):
		// Expected outcomes, already reported to the user.
		slog.Info("compile skipped", "reason", err)
	default:
		slog.Error("compile run failed", "error", err)
	}
}

func (a *App) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := a.tgBot.Send(msg); err != nil {
		slog.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
}

// Adapter types to bridge between concrete packages and the compiler interfaces

type publisherAdapter struct {
	publisher publisher.Publisher
}

func (p *publisherAdapter) Publish(ctx context.Context, article compiler.Article) (string, error) {
	result, err := p.publisher.Publish(ctx, publisher.Article{
		Title: article.Title,
		Body:  article.Body,
		Day:   article.Day,
	})
	if err != nil {
		return "", err
	}
	return result.URL, nil
}

type archiveAdapter struct {
	db       *storage.DB
	platform string
}

func (a *archiveAdapter) SavePost(ctx context.Context, day, title, body, url string) error {
	return a.db.SavePost(ctx, &storage.Post{
		Day:         day,
		Title:       title,
		Body:        body,
		Platform:    a.platform,
		URL:         url,
		PublishedAt: time.Now(),
	})
}

type notifierAdapter struct {
	app *App
}

func (n *notifierAdapter) Notify(ctx context.Context, text string) {
	n.app.mu.RLock()
	chatID := n.app.chatID
	n.app.mu.RUnlock()

	if chatID == 0 {
		slog.Warn("cannot notify: no chat_id set")
		return
	}
	n.app.reply(chatID, text)
}

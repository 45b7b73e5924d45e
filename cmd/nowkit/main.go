// Command nowkit runs a demo bot exercising the command router, the dialogue
// engine, and the webhook transport.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nowkit/nowkit/core/bot"
	"github.com/nowkit/nowkit/core/bot/dialogue"
	"github.com/nowkit/nowkit/core/bot/parse"
	"github.com/nowkit/nowkit/core/bot/render"
	"github.com/nowkit/nowkit/core/bot/router"
	"github.com/nowkit/nowkit/core/config"
	"github.com/nowkit/nowkit/core/database"
	"github.com/nowkit/nowkit/core/logger"
	"github.com/nowkit/nowkit/core/sender"
	"github.com/nowkit/nowkit/core/state"
	"github.com/nowkit/nowkit/core/webhook"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("nowkit: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := sender.New(cfg.Bot.Token, sender.Options{APIURL: cfg.Bot.APIURL})
	if err != nil {
		return err
	}

	rt := router.New(router.Options{
		BotUsername:  cfg.Bot.Username,
		Store:        store,
		HelpTemplate: "The commands I can perform:\n\n%{help}",
		Messages: map[string]string{
			"CHAT_INITIAL": "Greetings. What's your name?",
			"CHAT_INTERIM": "Hello %{name}",
			"CHAT_FINAL":   "Good bye",
		},
	})
	if err := registerRoutes(rt); err != nil {
		return err
	}

	if cfg.Webhook.PublicURL != "" {
		url := strings.TrimSuffix(cfg.Webhook.PublicURL, "/") + cfg.Webhook.Path
		if err := client.SetWebhook(ctx, url); err != nil {
			return err
		}
	}

	srv := webhook.New(rt, client, cfg.Webhook.Path)
	return srv.Run(ctx, cfg.Webhook.Listen, cfg.Webhook.Port)
}

func registerRoutes(rt *router.Router) error {
	if err := rt.Register("ping", router.Route{
		Description: "check that the server is alive",
		Handler: func(context.Context, *bot.Message, *router.Context) ([]render.Template, error) {
			return render.Text("pong!"), nil
		},
	}); err != nil {
		return err
	}

	if err := rt.Register("echo", router.Route{
		Description: "repeat the given text back",
		Handler: func(_ context.Context, m *bot.Message, _ *router.Context) ([]render.Template, error) {
			if m.Args == "" {
				return render.Text("Nothing to echo."), nil
			}
			return render.Text(m.Args), nil
		},
	}); err != nil {
		return err
	}

	steps := []dialogue.Step{
		{Name: "initial"},
		{Name: "interim", Post: func(_ context.Context, v parse.Value, _ []dialogue.Response) (parse.Value, error) {
			return parse.Fields(map[string]string{"name": v.Scalar()}), nil
		}},
		{Name: "final"},
	}
	return rt.Register("chat", router.Route{
		Description: "have a short conversation",
		Handler:     rt.Dialogue(steps),
	})
}

func buildStore(ctx context.Context, cfg *config.Config) (state.Store, func(), error) {
	switch cfg.State.Backend {
	case config.StateRedis:
		var opts []state.RedisOption
		if cfg.State.Redis.Prefix != "" {
			opts = append(opts, state.WithPrefix(cfg.State.Redis.Prefix))
		}
		rs := state.NewRedisStore(cfg.State.Redis.Addr, cfg.State.Redis.Password, cfg.State.Redis.DB, opts...)
		return rs, func() { _ = rs.Close() }, nil
	case config.StatePostgres:
		if err := database.RunMigrations(ctx, cfg.Database, ""); err != nil {
			return nil, nil, err
		}
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return state.NewPostgresStore(db), func() { _ = db.Close() }, nil
	default:
		return state.NewMemoryStore(), func() {}, nil
	}
}

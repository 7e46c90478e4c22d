// Command server runs the chatbot lead-qualification inbound processing
// core: the HTTP webhook transport, the handler pipeline, and the job
// workers that drain its two queues.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/config"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/handler"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/httpapi"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/jobs"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/kvstore"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/leadstore"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/logging"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/templates"
)

func main() {
	app := &cli.App{
		Name:  "chatbot-leads",
		Usage: "WhatsApp/Telegram lead-qualification inbound message processing core",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "run pending database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.LogPretty)
			store, err := leadstore.Open(c.Context, cfg.DatabaseDriver, cfg.DatabaseDSN, log)
			if err != nil {
				return err
			}
			defer store.Close()
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the webhook HTTP server and job workers",
		Action: func(c *cli.Context) error {
			return runServe(c.Context)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)

	store, err := leadstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN, log)
	if err != nil {
		return fmt.Errorf("open lead store: %w", err)
	}
	defer store.Close()

	var kv kvstore.Store
	if cfg.RedisAddr == "memory" {
		mem := kvstore.NewMemoryStore()
		janitor, err := mem.StartJanitor("*/5 * * * *")
		if err != nil {
			return fmt.Errorf("start memory janitor: %w", err)
		}
		defer janitor.Stop()
		kv = mem
		log.Warn().Msg("running with in-memory backing store; dedup/lock/cooldown/queues are not shared across instances")
	} else {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer redisClient.Close()
		kv = kvstore.NewRedisStore(redisClient, log)
	}

	tpl, err := templates.Load(cfg.TemplatesOverridePath)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	dispatcher := jobs.NewDispatcher(kv, log)

	h := handler.New(store, kv, dispatcher, tpl, handler.Config{
		LockTTL:                            cfg.LockTTL,
		UserCooldown:                       cfg.UserCooldown,
		LockMaxAttempts:                    cfg.LockMaxAttempts,
		MaxWarnings:                        cfg.MaxWarnings,
		MarkBeforeCommit:                   cfg.IdempotencyMarkTiming == "before_commit",
		IdentityMergeReparentInteractions:  cfg.IdentityMergeReparentInteractions,
	}, log)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	spreadsheetPolicy := jobs.SpreadsheetSyncPolicy
	spreadsheetPolicy.MaxAttempts = cfg.SpreadsheetSyncMaxAttempts
	spreadsheetWorker := jobs.NewWorker(kv, jobs.QueueSpreadsheetSync, spreadsheetPolicy, log)
	go spreadsheetWorker.Run(workerCtx, jobs.DecodeSpreadsheetSync(noopSpreadsheetClient{}))

	notifyPolicy := jobs.OperatorNotifyPolicy
	notifyPolicy.MaxAttempts = cfg.OperatorNotifyMaxAttempts
	notifyWorker := jobs.NewWorker(kv, jobs.QueueOperatorNotify, notifyPolicy, log)
	go notifyWorker.Run(workerCtx, jobs.DecodeOperatorNotify(noopNotifierClient{log: log, chatID: cfg.OperatorNotifyChatID}))

	router := httpapi.NewRouter(h, cfg.BasePath, cfg.RequestDeadline, log)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-sigCtx.Done():
		log.Info().Msg("shutting down")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// noopSpreadsheetClient and noopNotifierClient are the default bindings for
// jobs.SpreadsheetClient/NotifierClient. The actual spreadsheet API and
// notification formatting are out of scope (spec §1); operators wire a
// real implementation by replacing these at startup.
type noopSpreadsheetClient struct{}

func (noopSpreadsheetClient) Sync(ctx context.Context, payload jobs.SpreadsheetSyncPayload) error {
	return nil
}

type noopNotifierClient struct {
	log    zerolog.Logger
	chatID string
}

func (n noopNotifierClient) Notify(ctx context.Context, payload jobs.OperatorNotifyPayload) error {
	n.log.Info().Str("chat_id", n.chatID).Str("kind", string(payload.Kind)).Msg("operator notification (no-op client)")
	return nil
}

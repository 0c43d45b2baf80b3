package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-session-service/internal/app"
	"assessment-session-service/internal/config"
	"assessment-session-service/internal/domain"
	"assessment-session-service/internal/infra/memory"
	"assessment-session-service/internal/infra/postgres"
	redisstore "assessment-session-service/internal/infra/redis"
	"assessment-session-service/internal/logger"
	"assessment-session-service/internal/metrics"
	transport "assessment-session-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type catalog interface {
	app.AssessmentRepository
	app.QuestionRepository
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.CatalogLoader = memory.NewStaticCatalog(sampleCatalog())
	if pool != nil {
		loader = postgres.NewCatalogLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var repo catalog
	if redisClient != nil {
		repo = redisstore.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		repo = memory.NewCatalogRepository(loader, catalogTTL)
	}

	var snapshots app.SnapshotStore
	switch {
	case redisClient != nil:
		snapshots = redisstore.NewSnapshotStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis snapshot store")
	case pool != nil:
		snapshots = postgres.NewSnapshotStore(pool)
		log.Info().Msg("Using Postgres snapshot store")
	default:
		snapshots = memory.NewSnapshotStore()
		log.Warn().Msg("No snapshot backend configured, sessions will not survive restarts")
	}

	var results app.ResultSink = memory.NewResultStore()
	if pool != nil {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		results = postgres.NewResultStore(db)
	}

	service := app.NewAssessmentService(repo, repo, snapshots, results, memory.NewSessionRegistry(), app.Options{
		TickInterval:     config.TTLDuration(cfg.Session.TickInterval, time.Second),
		WarningThreshold: config.TTLDuration(cfg.Session.WarningThreshold, app.DefaultWarningThreshold),
		Logger:           log,
	})
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("Starting assessment service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("Shutting down server")
	case <-ctx.Done():
		log.Info().Msg("Context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalog is served when no Postgres loader is configured.
func sampleCatalog() ([]domain.AssessmentDefinition, []domain.Question) {
	yesNo := []domain.Option{{Key: "a", Text: "Yes"}, {Key: "b", Text: "No"}}
	return []domain.AssessmentDefinition{
			{
				ID:               "go-basics",
				Title:            "Go Basics",
				QuestionIDs:      []string{"go-1", "go-2", "go-3"},
				TimeLimitMinutes: 15,
			},
		}, []domain.Question{
			{
				ID:          "go-1",
				Topic:       "concurrency",
				Prompt:      "Does sending on a nil channel block forever?",
				Options:     yesNo,
				CorrectKey:  "a",
				Explanation: "Send and receive on a nil channel block forever.",
			},
			{
				ID:     "go-2",
				Topic:  "types",
				Prompt: "Which keyword declares an interface?",
				Options: []domain.Option{
					{Key: "a", Text: "struct"},
					{Key: "b", Text: "interface"},
					{Key: "c", Text: "type"},
				},
				CorrectKey: "c",
			},
			{
				ID:          "go-3",
				Topic:       "concurrency",
				Prompt:      "Is a map safe for concurrent writes?",
				Options:     yesNo,
				CorrectKey:  "b",
				Explanation: "Concurrent map writes need external synchronization.",
			},
		}
}

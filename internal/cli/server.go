package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"club-survey-engine/internal/app"
	"club-survey-engine/internal/config"
	"club-survey-engine/internal/domain"
	"club-survey-engine/internal/infra/memory"
	pgstore "club-survey-engine/internal/infra/postgres"
	redisstore "club-survey-engine/internal/infra/redis"
	transport "club-survey-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the survey engine server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	cacheTTL := config.TTLDuration(cfg.Survey.CacheTTL, 10*time.Minute)
	stampTTL := config.TTLDuration(cfg.Redis.StampTTL, 24*time.Hour)

	var loader memory.SurveyLoader = memory.NewStaticSurveyLoader(sampleSurveys())
	if pool != nil {
		loader = pgstore.NewSurveyLoader(pool)
	}
	var surveys app.SurveyRepository
	if redisClient != nil {
		surveys = redisstore.NewSurveyRepository(redisClient, loader, cacheTTL)
	} else {
		surveys = memory.NewSurveyRepository(loader, cacheTTL)
	}

	var attempts app.AttemptRepository
	var profiles app.ProfileRepository
	if pool != nil {
		attempts = pgstore.NewAttemptStore(pool)
		profiles = pgstore.NewProfileStore(pool)
	} else {
		attempts = memory.NewAttemptStore()
		profiles = memory.NewProfileStore(nil)
	}

	// The durable attempt row is the authoritative stamp when Postgres is
	// around; Redis only takes over for the storage-less demo mode.
	var stamps app.StampStore = attempts
	if pool == nil && redisClient != nil {
		stamps = redisstore.NewStampStore(redisClient, stampTTL)
	}

	clock := app.NewSessionClock(stamps)
	feed := app.NewStatsFeed()
	service := app.NewSurveyService(surveys, attempts, profiles, clock, feed, log)

	restHandler := transport.NewRestHandler(service, log)
	wsHandler := transport.NewWSHandler(service, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	restHandler.Register(mux)
	mux.HandleFunc("/ws/statistics", wsHandler.ServeStatistics)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting survey engine")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// sampleSurveys seeds the storage-less demo mode with one timed quiz.
func sampleSurveys() map[string]domain.Survey {
	return map[string]domain.Survey{
		"survey-1": {
			ID:              "survey-1",
			Title:           "Club knowledge quiz",
			Kind:            domain.KindQuiz,
			Active:          true,
			StartsAt:        time.Now().Add(-time.Hour),
			DurationMinutes: 10,
			MaxAttempts:     1,
			Questions: []domain.Question{
				{
					ID:       "q1",
					Text:     "Which city hosts the club's headquarters?",
					Type:     domain.TypeMultipleChoice,
					Options:  []string{"Tehran", "Shiraz", "Tabriz"},
					Points:   10,
					Required: true,
					Correct:  &domain.CorrectAnswer{Kind: domain.CorrectChoice, SelectedOption: 0},
				},
				{
					ID:      "q2",
					Text:    "In which year was the club founded?",
					Type:    domain.TypeNumber,
					Points:  5,
					Correct: &domain.CorrectAnswer{Kind: domain.CorrectNumber, Min: 1998, Max: 1998},
				},
				{
					ID:   "q3",
					Text: "How satisfied are you with the rewards program?",
					Type: domain.TypeRating,
				},
			},
		},
	}
}

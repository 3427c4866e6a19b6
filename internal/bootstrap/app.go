package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"jobpilot-backend/internal/applications"
	"jobpilot-backend/internal/dispatch"
	"jobpilot-backend/internal/feedback"
	"jobpilot-backend/internal/matching"
	"jobpilot-backend/internal/notify"
	"jobpilot-backend/internal/postings"
	"jobpilot-backend/internal/profiles"
	"jobpilot-backend/internal/queue"
	"jobpilot-backend/internal/shared/config"
	"jobpilot-backend/internal/shared/server"
	"jobpilot-backend/internal/shared/storage/db"
	"jobpilot-backend/internal/throttle"
	"jobpilot-backend/internal/weights"
)

// App holds shared dependencies for the api, worker, and scheduler binaries.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	RDB    *redis.Client
	Queue  queue.Client

	ProfilesRepo profiles.Repo
	PostingsRepo postings.Repo
	MatchRepo    matching.Repo
	WeightsRepo  weights.Repo
	FeedbackRepo feedback.Repo
	AppRepo      applications.Repo

	Notify         *notify.Publisher
	ThrottleGate   *throttle.Gate
	QueueManager   *matching.QueueManager
	ScoringService *matching.Service
	SkillGapBridge *matching.Bridge
	Learner        *feedback.Learner
	AppService     *applications.Service
	MatchHandler   *matching.Handler
	AppHandler     *applications.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	rdb := buildRedis(ctx, cfg)
	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		RDB:    rdb,
		Queue:  queueClient,
		Notify: &notify.Publisher{RDB: rdb},
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             cfg,
		MatchHandler:       app.MatchHandler,
		ApplicationHandler: app.AppHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildRedis(ctx context.Context, cfg config.Config) *redis.Client {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil
	}
	rdb, err := notify.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("bootstrap: redis unavailable; events disabled: %v", err)
		return nil
	}
	return rdb
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("JP_SQS_QUEUE_URL")) == "" {
		log.Printf("bootstrap: JP_SQS_QUEUE_URL empty; using in-memory queue")
		return queue.NewMemoryClient(), nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	cfg := app.Config

	if app.DB != nil {
		app.ProfilesRepo = &profiles.PGRepo{DB: app.DB}
		app.PostingsRepo = &postings.PGRepo{DB: app.DB}
		app.MatchRepo = &matching.PGRepo{DB: app.DB}
		app.WeightsRepo = &weights.PGRepo{DB: app.DB}
		app.FeedbackRepo = &feedback.PGRepo{DB: app.DB}
		app.AppRepo = &applications.PGRepo{DB: app.DB}
	} else {
		app.ProfilesRepo = profiles.NewMemoryRepo()
		app.PostingsRepo = postings.NewMemoryRepo()
		app.MatchRepo = matching.NewMemoryRepo()
		app.WeightsRepo = weights.NewMemoryRepo()
		app.FeedbackRepo = feedback.NewMemoryRepo()
		app.AppRepo = applications.NewMemoryRepo()
	}

	var throttleStore throttle.Store
	if app.DB != nil {
		throttleStore = &throttle.PGStore{DB: app.DB}
	} else {
		throttleStore = throttle.NewMemoryStore()
	}
	app.ThrottleGate = &throttle.Gate{
		Store: throttleStore,
		Rules: map[string]throttle.Rule{
			string(applications.ChannelEmail): {
				Window: cfg.ThrottleEmail.Window,
				Limit:  cfg.ThrottleEmail.Limit,
			},
			string(applications.ChannelLinkedIn): {
				Window: cfg.ThrottleLinkedIn.Window,
				Limit:  cfg.ThrottleLinkedIn.Limit,
			},
		},
	}

	app.AppService = &applications.Service{
		Repo:            app.AppRepo,
		Matches:         app.MatchRepo,
		Postings:        app.PostingsRepo,
		Throttle:        app.ThrottleGate,
		Channels:        buildChannels(cfg),
		Queue:           app.Queue,
		Notify:          app.Notify,
		MaxSendAttempts: cfg.MaxSendAttempts,
	}

	app.QueueManager = &matching.QueueManager{
		Repo:         app.MatchRepo,
		Feedback:     app.FeedbackRepo,
		Applications: app.AppService,
		Notify:       app.Notify,
		Threshold:    cfg.SurfacingThreshold,
		Capacity:     cfg.MatchQueueCapacity,
	}

	engine := matching.Engine{SimilarityFloor: cfg.SimilarityFloor}
	app.ScoringService = &matching.Service{
		Engine:   engine,
		Repo:     app.MatchRepo,
		Profiles: app.ProfilesRepo,
		Postings: app.PostingsRepo,
		Weights:  app.WeightsRepo,
		Queue:    app.QueueManager,
	}
	app.SkillGapBridge = &matching.Bridge{
		Engine:   engine,
		Repo:     app.MatchRepo,
		Profiles: app.ProfilesRepo,
		Postings: app.PostingsRepo,
		Weights:  app.WeightsRepo,
	}

	app.Learner = &feedback.Learner{
		Repo:                app.FeedbackRepo,
		Weights:             app.WeightsRepo,
		Notify:              app.Notify,
		ActivationThreshold: cfg.FeedbackActivation,
		LearningRate:        cfg.LearningRate,
	}

	app.MatchHandler = matching.NewHandler(app.QueueManager, app.SkillGapBridge)
	app.AppHandler = applications.NewHandler(app.AppService)
}

func buildChannels(cfg config.Config) map[applications.Channel]dispatch.Channel {
	channels := make(map[applications.Channel]dispatch.Channel, 2)

	if cfg.SMTPHost != "" {
		port, err := strconv.Atoi(strings.TrimSpace(cfg.SMTPPort))
		if err != nil || port <= 0 {
			port = 587
		}
		channels[applications.ChannelEmail] = &dispatch.EmailChannel{
			Host:     cfg.SMTPHost,
			Port:     port,
			Username: cfg.SMTPFrom,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}
	} else {
		log.Printf("bootstrap: SMTP_HOST empty; email channel records deliveries locally")
		channels[applications.ChannelEmail] = &dispatch.Recorder{ChannelName: "email"}
	}

	if cfg.LinkedInToken != "" {
		channels[applications.ChannelLinkedIn] = &dispatch.LinkedInChannel{
			BaseURL: cfg.LinkedInAPIBase,
			Token:   cfg.LinkedInToken,
		}
	} else {
		log.Printf("bootstrap: LINKEDIN_TOKEN empty; linkedin channel records deliveries locally")
		channels[applications.ChannelLinkedIn] = &dispatch.Recorder{ChannelName: "linkedin"}
	}

	return channels
}

package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"interview-backend/internal/candidates"
	"interview-backend/internal/interview"
	"interview-backend/internal/llm"
	openai "interview-backend/internal/llm/openai"
	"interview-backend/internal/llm/static"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/server"
	"interview-backend/internal/shared/server/middleware"
	"interview-backend/internal/shared/storage/db"
	"interview-backend/internal/shared/storage/object"
	localstore "interview-backend/internal/shared/storage/object/local"
	s3store "interview-backend/internal/shared/storage/object/s3"
	"interview-backend/internal/timer"
)

// App holds shared dependencies.
type App struct {
	Config     config.Config
	Interview  *config.Interview
	Router     *gin.Engine
	DB         *sql.DB
	Redis      *redis.Client
	Store      object.ObjectStore
	LLM        llm.Client
	Service    *interview.Service
	Candidates *candidates.Service
}

// Options tweak Build for callers other than the API server.
type Options struct {
	// Clock drives the question countdown; nil uses the system clock.
	Clock timer.Clock
	// SkipRouter leaves Router nil.
	SkipRouter bool
}

// Build prepares dependencies, restores persisted interview state and wires
// routes.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	icfg, err := config.LoadInterview(cfg.InterviewConfigPath)
	if err != nil {
		return nil, err
	}
	if cfg.ValidationDelaySet {
		icfg.Settings.ValidationDelay = cfg.ValidationDelay
	}

	app := &App{Config: cfg, Interview: icfg}

	repo, err := app.buildRepo(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	client, err := buildLLM(cfg, icfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.LLM = client

	app.Service = interview.NewService(interview.Deps{
		Repo:    repo,
		AI:      client,
		Objects: store,
		Clock:   opts.Clock,
		Config:  icfg,
	})
	if err := app.Service.Start(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("start interview service: %w", err)
	}
	app.Candidates = candidates.NewService(app.Service.Store)

	if !opts.SkipRouter {
		app.Router = server.NewRouter(server.RouterDeps{
			Config:     cfg,
			Interview:  app.Service,
			Candidates: app.Candidates,
			MaxUpload:  icfg.Settings.MaxUploadBytes,
			Limiter:    middleware.NewRateLimiter(nil),
		})
	}
	return app, nil
}

// Close releases connections. It is safe to call on a partially built App.
func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Printf("bootstrap: close database: %v", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Printf("bootstrap: close redis: %v", err)
		}
	}
}

func (a *App) buildRepo(ctx context.Context) (interview.Repo, error) {
	cfg := a.Config
	switch cfg.StateStore {
	case "memory":
		return interview.NewMemoryRepo(), nil
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err == nil {
			err = db.RunMigrations(ctx, sqlDB, db.DialectPostgres)
		}
		if err != nil {
			if sqlDB != nil {
				_ = sqlDB.Close()
			}
			if isDevLike(cfg.Env) {
				log.Printf("bootstrap: postgres unavailable; using state file %s: %v", cfg.StateFile, err)
				return interview.NewFileRepo(cfg.StateFile), nil
			}
			return nil, err
		}
		a.DB = sqlDB
		return interview.NewPGRepo(sqlDB), nil
	case "sqlite":
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath, db.SQLiteOptions())
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx, sqlDB, db.DialectSQLite); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		a.DB = sqlDB
		return interview.NewSQLiteRepo(sqlDB), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		a.Redis = client
		return interview.NewRedisRepo(client, cfg.RedisKey), nil
	default:
		return interview.NewFileRepo(cfg.StateFile), nil
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "none":
		return nil, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildLLM(cfg config.Config, icfg *config.Interview) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		log.Printf("bootstrap: LLM_PROVIDER=%s; using the offline question bank and scorer", cfg.LLMProvider)
		return static.New(icfg), nil
	}
	client, err := openai.NewClient(openai.Options{
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
		Timeout: cfg.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}
	return llm.WithRetry(client), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

// Package bootstrap assembles the application from configuration. It is shared
// by the HTTP server, the Lambda entrypoints and the worker.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/agent"
	googleauth "photoreq-backend/internal/auth"
	"photoreq-backend/internal/intake"
	"photoreq-backend/internal/llm"
	"photoreq-backend/internal/llm/gemini"
	"photoreq-backend/internal/llm/openai"
	"photoreq-backend/internal/notify"
	"photoreq-backend/internal/queue"
	"photoreq-backend/internal/receiver"
	"photoreq-backend/internal/requests"
	"photoreq-backend/internal/services/health"
	"photoreq-backend/internal/sessions"
	"photoreq-backend/internal/shared/auth"
	"photoreq-backend/internal/shared/config"
	"photoreq-backend/internal/shared/server"
	"photoreq-backend/internal/shared/storage/db"
	"photoreq-backend/internal/shared/storage/object"
	localstore "photoreq-backend/internal/shared/storage/object/local"
	s3store "photoreq-backend/internal/shared/storage/object/s3"
	"photoreq-backend/internal/upload"
)

// localReceiver selects the in-process intake service as the receiver.
const localReceiver = "local"

// AI is the configured provider behind both AI features.
type AI interface {
	llm.Classifier
	llm.DocumentParser
}

// App holds shared dependencies.
type App struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *sql.DB
	Store      object.ObjectStore
	Queue      queue.Client
	Notifier   notify.Notifier
	AI         AI
	Signer     *auth.Signer
	Receiver   receiver.Sender
	Sessions   *sessions.Store
	Intake     *intake.Service
	Agent      *agent.Service
	GoogleAuth *googleauth.GoogleService
	Health     *health.Service
}

// Build prepares dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	app := &App{
		Config:   cfg,
		Notifier: BuildNotifier(cfg),
		AI:       BuildAI(ctx, cfg),
		Signer:   auth.NewSigner(cfg.JWTSecret, cfg.AgentTokenTTL),
	}

	if cfg.IntakeEnabled {
		if err := buildIntake(ctx, app); err != nil {
			return nil, err
		}
	}

	rcv, err := buildReceiver(app)
	if err != nil {
		return nil, err
	}
	app.Receiver = rcv

	app.Sessions = sessions.NewStore(func(req requests.PhotoRequest) (*upload.Orchestrator, error) {
		return upload.New(req, upload.Options{
			Classifier:         app.AI,
			Receiver:           app.Receiver,
			Previews:           upload.TempPreviews{Dir: cfg.PreviewDir},
			ConfirmationPrefix: cfg.ConfirmationPrefix,
			DefaultAgentEmail:  cfg.AgentEmail,
		})
	}, cfg.SessionTTL)

	app.Agent = &agent.Service{
		Signer:     app.Signer,
		Parser:     app.AI,
		AccessCode: cfg.AgentAccessCode,
		AgentEmail: cfg.AgentEmail,
		AppOrigin:  cfg.AppOrigin,
		Branding:   agent.DefaultBranding,
	}
	app.GoogleAuth = googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:      cfg.GoogleClientID,
		ClientSecret:  cfg.GoogleClientSecret,
		RedirectURL:   cfg.GoogleRedirectURL,
		UIRedirect:    cfg.UIRedirectURL,
		AllowedDomain: cfg.AgentEmailDomain,
	}, app.Signer)

	app.Health = buildHealth(app)

	deps := server.RouterDeps{
		Config:         cfg,
		Signer:         app.Signer,
		SessionHandler: sessions.NewHandler(app.Sessions),
		AgentHandler:   agent.NewHandler(app.Agent),
		GoogleAuth:     app.GoogleAuth,
		Health:         app.Health,
	}
	if app.Intake != nil {
		deps.IntakeHandler = intake.NewHandler(app.Intake)
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

// Close releases sessions and the database pool.
func (a *App) Close() {
	if a.Sessions != nil {
		a.Sessions.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Printf("bootstrap: close database: %v", err)
		}
	}
}

func buildHealth(app *App) *health.Service {
	h := health.NewService()
	receiverMode := "remote"
	switch {
	case strings.EqualFold(strings.TrimSpace(app.Config.ReceiverURL), localReceiver):
		receiverMode = localReceiver
	case !app.Receiver.Configured():
		receiverMode = "not_configured"
	}
	h.SetInfo("receiver", receiverMode)
	h.SetInfo("intake", app.Intake != nil)
	h.SetInfo("aiVerification", app.Config.LLMProvider != "none" && !isDisabled(app.AI))
	if app.DB != nil {
		h.AddCheck("database", app.DB.PingContext)
	}
	return h
}

func isDisabled(ai AI) bool {
	_, ok := ai.(llm.Disabled)
	return ok
}

// BuildAI returns the configured provider, or llm.Disabled when it has no key.
func BuildAI(ctx context.Context, cfg config.Config) AI {
	var (
		client AI
		err    error
	)
	switch cfg.LLMProvider {
	case "none":
		return llm.Disabled{}
	case "openai":
		client, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	default:
		client, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	}
	if err != nil {
		if !errors.Is(err, llm.ErrNotConfigured) || !isDevLike(cfg.Env) {
			log.Printf("bootstrap: %s provider unavailable; photo verification is skipped: %v", cfg.LLMProvider, err)
		}
		return llm.Disabled{}
	}
	return client
}

// BuildNotifier returns an SMTP notifier when a relay is configured and a
// logging notifier otherwise.
func BuildNotifier(cfg config.Config) notify.Notifier {
	if strings.TrimSpace(cfg.SMTPAddr) == "" {
		return notify.LogNotifier{}
	}
	return notify.NewSMTPNotifier(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.NotifyFrom)
}

func buildReceiver(app *App) (receiver.Sender, error) {
	url := strings.TrimSpace(app.Config.ReceiverURL)
	if strings.EqualFold(url, localReceiver) {
		if app.Intake == nil {
			return nil, fmt.Errorf("RECEIVER_URL=local requires INTAKE_ENABLED")
		}
		return intake.LocalSender{Svc: app.Intake}, nil
	}
	if url == "" {
		log.Printf("bootstrap: RECEIVER_URL empty; submissions will fail as not configured")
	}
	return receiver.NewClient(url, app.Config.ReceiverTimeout), nil
}

func buildIntake(ctx context.Context, app *App) error {
	cfg := app.Config

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	app.Store = store

	repo, err := buildSubmissionRepo(ctx, app)
	if err != nil {
		return err
	}

	if strings.TrimSpace(cfg.NotifyQueueURL) != "" {
		q, err := queue.NewSQSClient(ctx, cfg.NotifyQueueURL, cfg.AWSRegion)
		if err != nil {
			return err
		}
		app.Queue = q
	}

	app.Intake = &intake.Service{
		Store:    store,
		Repo:     repo,
		Queue:    app.Queue,
		Notifier: app.Notifier,
		NotifyTo: cfg.NotifyTo,
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildSubmissionRepo(ctx context.Context, app *App) (intake.SubmissionRepo, error) {
	cfg := app.Config
	switch cfg.SubmissionStore {
	case "postgres":
		sqlDB, err := buildDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if sqlDB == nil {
			return intake.NewMemoryRepo(), nil
		}
		app.DB = sqlDB
		return &intake.PGRepo{DB: sqlDB}, nil
	case "dynamodb":
		return intake.NewDynamoRepo(ctx, cfg.AWSRegion, cfg.DynamoTable)
	case "csv":
		return intake.NewCSVRepo(cfg.SheetPath), nil
	default:
		return intake.NewMemoryRepo(), nil
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory submission log")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.Shared(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultOptions("lambda")))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultOptions("server")))
	}
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB); err != nil && !db.IsLambdaRuntime() {
			sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database unavailable; using in-memory submission log: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

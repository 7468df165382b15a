package app

import (
	"context"
	"time"

	"fitadmin/config"
	"fitadmin/internal/database"
	"fitadmin/internal/events"
	"fitadmin/internal/handlers/middleware"
	"fitadmin/internal/logger"
	"fitadmin/internal/playback"
	"fitadmin/internal/repositories"
	"fitadmin/internal/services"
	"fitadmin/internal/websockets"

	memberController "fitadmin/internal/controllers/member"
	resultController "fitadmin/internal/controllers/result"
	statisticsController "fitadmin/internal/controllers/statistics"
	subjectController "fitadmin/internal/controllers/subject"
	syncController "fitadmin/internal/controllers/sync"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	EventBus   *events.EventBus
	Config     config.Config
	Negotiator *playback.Negotiator

	// Services
	TransactionService *services.TransactionService
	CacheInvalidation  *services.CacheInvalidationService

	// Repositories
	SubjectRepo    repositories.SubjectRepository
	TestResultRepo repositories.TestResultRepository
	SyncLogRepo    repositories.SyncLogRepository
	MemberRepo     repositories.MemberRepository
	StatisticsRepo repositories.StatisticsRepository

	// Controllers
	SyncController       *syncController.SyncController
	SubjectController    *subjectController.SubjectController
	ResultController     *resultController.ResultController
	MemberController     *memberController.MemberController
	StatisticsController *statisticsController.StatisticsController
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider, err := playback.NewAWSProvider(ctx, playback.ConfigFrom(config))
	if err != nil {
		_ = db.Close()
		return &App{}, log.Err("failed to create KVS provider", err)
	}

	app, err := NewWithDependencies(config, db, provider)
	if err != nil {
		_ = db.Close()
		return &App{}, err
	}

	return app, nil
}

// NewWithDependencies assembles the app around an already opened store and a
// streaming provider, so tests can substitute either.
func NewWithDependencies(config config.Config, db database.DB, provider playback.Provider) (*App, error) {
	log := logger.New("app").Function("NewWithDependencies")

	location, err := config.Location()
	if err != nil {
		return &App{}, log.Err("failed to load display timezone", err, "timezone", config.DisplayTimezone)
	}

	eventBus := events.New()

	// Initialize services
	transactionService := services.NewTransactionService(db)
	cacheInvalidation := services.NewCacheInvalidationService(db, eventBus)

	// Initialize repositories
	subjectRepo := repositories.NewSubject(db)
	testResultRepo := repositories.NewTestResult(db)
	syncLogRepo := repositories.NewSyncLog(db)
	memberRepo := repositories.NewMember(db)
	statisticsRepo := repositories.NewStatistics(db)

	// Initialize controllers with repositories and services
	sessionTTL := time.Duration(config.SessionTTLHours) * time.Hour
	memberController := memberController.New(memberRepo, sessionTTL)
	syncController := syncController.New(
		subjectRepo,
		testResultRepo,
		syncLogRepo,
		transactionService,
		cacheInvalidation,
	)
	subjectController := subjectController.New(subjectRepo, testResultRepo, transactionService, cacheInvalidation)
	resultController := resultController.New(testResultRepo, location)
	statisticsController := statisticsController.New(
		statisticsRepo,
		subjectRepo,
		testResultRepo,
		memberRepo,
		syncLogRepo,
		db.Cache.Statistics,
		location,
	).WithDashboardCache(db.Cache.General)
	middleware := middleware.New(memberController, config)
	negotiator := playback.New(playback.ConfigFrom(config), provider)

	websocket, err := websockets.New(eventBus)
	if err != nil {
		_ = eventBus.Close()
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	app := &App{
		Database:             db,
		Config:               config,
		Middleware:           middleware,
		Websocket:            websocket,
		EventBus:             eventBus,
		Negotiator:           negotiator,
		TransactionService:   transactionService,
		CacheInvalidation:    cacheInvalidation,
		SubjectRepo:          subjectRepo,
		TestResultRepo:       testResultRepo,
		SyncLogRepo:          syncLogRepo,
		MemberRepo:           memberRepo,
		StatisticsRepo:       statisticsRepo,
		SyncController:       syncController,
		SubjectController:    subjectController,
		ResultController:     resultController,
		MemberController:     memberController,
		StatisticsController: statisticsController,
	}

	if err := app.validate(); err != nil {
		websocket.Close()
		_ = eventBus.Close()
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := map[string]any{
		"websocket":            a.Websocket,
		"eventBus":             a.EventBus,
		"negotiator":           a.Negotiator,
		"transactionService":   a.TransactionService,
		"cacheInvalidation":    a.CacheInvalidation,
		"subjectRepo":          a.SubjectRepo,
		"testResultRepo":       a.TestResultRepo,
		"syncLogRepo":          a.SyncLogRepo,
		"memberRepo":           a.MemberRepo,
		"statisticsRepo":       a.StatisticsRepo,
		"syncController":       a.SyncController,
		"subjectController":    a.SubjectController,
		"resultController":     a.ResultController,
		"memberController":     a.MemberController,
		"statisticsController": a.StatisticsController,
	}

	for name, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed: " + name)
		}
	}

	return nil
}

// Close also closes the database, including one handed to
// NewWithDependencies.
func (a *App) Close() (err error) {
	if a.Websocket != nil {
		a.Websocket.Close()
	}

	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}

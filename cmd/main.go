package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/immxrtalbeast/teamspace/internal/api/http"
	"github.com/immxrtalbeast/teamspace/internal/auth"
	"github.com/immxrtalbeast/teamspace/internal/config"
	"github.com/immxrtalbeast/teamspace/internal/realtime"
	"github.com/immxrtalbeast/teamspace/internal/repository"
	"github.com/immxrtalbeast/teamspace/internal/repository/model"
	"github.com/immxrtalbeast/teamspace/internal/service"
	"github.com/immxrtalbeast/teamspace/lib/logger/sl"
	"github.com/immxrtalbeast/teamspace/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	db, err := connectDatabase(cfg.Database)
	if err != nil {
		log.Error("failed to connect database", sl.Err(err))
		os.Exit(1)
	}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		SigningSecret: []byte(cfg.Auth.SigningSecret),
		Issuer:        cfg.Auth.Issuer,
	})
	if err != nil {
		log.Error("failed to build token verifier", sl.Err(err))
		os.Exit(1)
	}

	userRepo := repository.NewPostgresUserRepository(db)
	workspaceRepo := repository.NewPostgresWorkspaceRepository(db)
	roomRepo := repository.NewPostgresRoomRepository(db)
	boardRepo := repository.NewPostgresBoardRepository(db)
	documentRepo := repository.NewPostgresDocumentRepository(db)
	presenceRepo := repository.NewPostgresPresenceRepository(db)

	gate := service.NewMembershipService(workspaceRepo)
	userService := service.NewUserService(userRepo, log)
	workspaceService := service.NewWorkspaceService(workspaceRepo, gate, log)

	hub := realtime.NewHub(realtime.HubDeps{
		Gate:      gate,
		Rooms:     roomRepo,
		Boards:    boardRepo,
		Documents: documentRepo,
		Presence:  presenceRepo,
		Snapshots: realtime.SnapshotPolicy{
			UpdateThreshold: cfg.Realtime.SnapshotUpdates,
			MaxInterval:     cfg.Realtime.SnapshotInterval,
		},
		Log: log,
	})

	realtimeController := httpapi.NewRealtimeController(hub, verifier, cfg.WebRTC.STUNServers, log)
	workspaceController := httpapi.NewWorkspaceController(workspaceService, roomRepo, hub)
	userController := httpapi.NewUserController(userService)

	router := httpapi.SetupRouter(realtimeController, workspaceController, userController, cfg.HTTP.AllowOrigins)

	server := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	go func() {
		log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", sl.Err(err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", sl.Err(err))
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func connectDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	db.AutoMigrate(
		&model.User{},
		&model.Workspace{},
		&model.WorkspaceMember{},
		&model.Room{},
		&model.RoomMember{},
		&model.ChatMessage{},
		&model.Board{},
		&model.DocumentPermission{},
		&model.DocumentSnapshot{},
		&model.UserPresence{},
	)

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

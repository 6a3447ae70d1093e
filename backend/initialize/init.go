package initialize

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"fota-manager/backend/app/controllers"
	"fota-manager/backend/app/db"
	jwtutil "fota-manager/backend/app/jwt"
	"fota-manager/backend/app/metrics"
	"fota-manager/backend/app/middleware"
	"fota-manager/backend/app/repo"
	"fota-manager/backend/app/services"
	"fota-manager/backend/config"
	"fota-manager/backend/global"
	"fota-manager/backend/router"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// dataDirName holds server-private files under the storage root. Dot
// directories are never listed as target types.
const dataDirName = ".fota"

type App struct {
	Cfg       *config.Config
	DB        *gorm.DB
	Redis     *redis.Client
	Router    http.Handler
	Inventory *services.InventoryService
	Devices   *services.DeviceService
	Users     *services.UserService
	Sessions  *services.SessionService
	Push      *services.PushService
	History   *repo.PushHistoryRepository
	Watcher   *services.InventoryWatcher
}

func Build(configPath string) (*App, error) {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return BuildWithConfig(cfg)
}

// BuildWithConfig wires every service against cfg. Call Close when done.
func BuildWithConfig(cfg *config.Config) (*App, error) {
	global.Config = cfg
	app := &App{Cfg: cfg}

	// Push history DB
	gdb, err := db.Connect(db.Config{Driver: cfg.DB.Driver, DSN: cfg.DB.DSN, DataDir: filepath.Join(cfg.Storage.Root, dataDirName)})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb
	app.DB = gdb
	app.History = repo.NewPushHistoryRepository(gdb)
	if err := app.History.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Optional Redis session mirror
	var mirror services.SessionMirror
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			global.Logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, sessions stay in memory")
			_ = rdb.Close()
		} else {
			global.Rdb = rdb
			app.Redis = rdb
			mirror = repo.NewSessionRedisRepository(rdb)
		}
	}

	// Services
	layout := repo.NewLayout(cfg.Storage.Root)
	firmwareRepo := repo.NewFirmwareRepository(layout)
	ledgerRepo := repo.NewLedgerRepository(layout)
	app.Inventory = services.NewInventoryService(firmwareRepo, ledgerRepo)
	app.Devices = services.NewDeviceService(ledgerRepo, firmwareRepo)
	app.Users = services.NewUserService(repo.NewCredentialRepository(cfg.Storage.AuthRoot), cfg.Auth.AdminID)
	if err := app.Users.EnsureAdmin(cfg.Auth.AdminPassword); err != nil {
		return nil, fmt.Errorf("bootstrap credentials: %w", err)
	}
	app.Sessions = services.NewSessionService(cfg.Session.TTL, cfg.Session.MaxLogs, mirror)
	app.Push = services.NewPushService(app.Devices, app.Inventory, app.History, cfg.Push.Steps, cfg.Push.StepInterval)

	if cfg.Watcher {
		w, err := services.NewInventoryWatcher(cfg.Storage.Root, app.Sessions.InvalidateVersions)
		if err != nil {
			global.Logger.Warn().Err(err).Msg("inventory watcher disabled")
		} else {
			w.Start()
			app.Watcher = w
		}
	}

	// Controllers
	signer := &jwtutil.Signer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, ExpMin: cfg.JWT.ExpMin}
	mw := &middleware.Auth{Signer: signer, Sessions: app.Sessions}
	metrics.Register()

	// Router
	h := router.NewRouter(router.Controllers{
		HTTP:    controllers.NewHTTPController(),
		Auth:    controllers.NewAuthController(app.Users, app.Sessions, signer),
		Admin:   controllers.NewAdminController(app.Users),
		Targets: controllers.NewTargetController(app.Inventory, app.Sessions),
		Devices: controllers.NewDeviceController(app.Devices),
		Push:    controllers.NewPushController(app.Push, app.History),
	}, mw)
	// Wrap with logging middleware
	app.Router = middleware.Logging(h)

	global.Logger.Info().Str("root", cfg.Storage.Root).Str("db", cfg.DB.Driver).Bool("redis", mirror != nil).Bool("watcher", app.Watcher != nil).Msg("app ready")
	return app, nil
}

// Close waits for running pushes and releases watchers and connections.
func (a *App) Close(ctx context.Context) error {
	err := a.Push.Shutdown(ctx)
	if a.Watcher != nil {
		_ = a.Watcher.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, dbErr := a.DB.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}
	return err
}

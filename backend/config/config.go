package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultAdminPassword seeds a fresh credential file when auth.admin_password
// is not set.
const DefaultAdminPassword = "admin123"

type Server struct {
	Host string
	Port int
}

type Storage struct {
	Root     string
	AuthRoot string
}

type Auth struct {
	AdminID       string
	AdminPassword string
}

type Session struct {
	TTL     time.Duration
	MaxLogs int
}

// Push controls the simulated transfer: Steps ticks of StepInterval each.
type Push struct {
	Steps        int
	StepInterval time.Duration
}

type DB struct {
	Driver string
	DSN    string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	Server  Server
	Storage Storage
	Auth    Auth
	JWT     struct {
		Secret string
		Issuer string
		ExpMin int
	}
	Session Session
	Push    Push
	DB      DB
	Redis   Redis
	Watcher bool
}

// Load reads the YAML file at path. An empty path means defaults plus
// FOTA_* environment overrides only.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FOTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 9400)
	v.SetDefault("storage.root", "firmware")
	v.SetDefault("storage.auth_root", "auth")
	v.SetDefault("auth.admin_id", "admin")
	v.SetDefault("auth.admin_password", DefaultAdminPassword)
	v.SetDefault("jwt.secret", "dev-secret")
	v.SetDefault("jwt.issuer", "fota-manager")
	v.SetDefault("jwt.exp_min", 60)
	v.SetDefault("session.ttl_min", 60)
	v.SetDefault("session.max_logs", 200)
	v.SetDefault("push.steps", 100)
	v.SetDefault("push.step_interval_ms", 50)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("watcher.enabled", true)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Server:  Server{Host: v.GetString("server.host"), Port: v.GetInt("server.port")},
		Storage: Storage{Root: v.GetString("storage.root"), AuthRoot: v.GetString("storage.auth_root")},
		Auth:    Auth{AdminID: v.GetString("auth.admin_id"), AdminPassword: v.GetString("auth.admin_password")},
		Session: Session{
			TTL:     time.Duration(v.GetInt("session.ttl_min")) * time.Minute,
			MaxLogs: v.GetInt("session.max_logs"),
		},
		Push: Push{
			Steps:        v.GetInt("push.steps"),
			StepInterval: time.Duration(v.GetInt("push.step_interval_ms")) * time.Millisecond,
		},
		DB:      DB{Driver: v.GetString("db.driver"), DSN: v.GetString("db.dsn")},
		Redis:   Redis{Addr: v.GetString("redis.addr"), Password: v.GetString("redis.password"), DB: v.GetInt("redis.db")},
		Watcher: v.GetBool("watcher.enabled"),
	}
	cfg.JWT.Secret = v.GetString("jwt.secret")
	cfg.JWT.Issuer = v.GetString("jwt.issuer")
	cfg.JWT.ExpMin = v.GetInt("jwt.exp_min")
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.Storage.Root == "" {
		c.Storage.Root = "firmware"
	}
	if c.Storage.AuthRoot == "" {
		c.Storage.AuthRoot = c.Storage.Root
	}
	if c.Auth.AdminID == "" {
		c.Auth.AdminID = "admin"
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = "dev-secret"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "fota-manager"
	}
	if c.JWT.ExpMin <= 0 {
		c.JWT.ExpMin = 60
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = time.Hour
	}
	if c.Session.MaxLogs <= 0 {
		c.Session.MaxLogs = 200
	}
	if c.Push.Steps <= 0 {
		c.Push.Steps = 100
	}
	if c.Push.StepInterval < 0 {
		c.Push.StepInterval = 0
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
}

func (c *Config) Addr() string { return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port) }

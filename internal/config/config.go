package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "DARSI_"

type Config struct {
	App    AppConfig    `koanf:"app"`
	Server ServerConfig `koanf:"server"`
	DB     DBConfig     `koanf:"db"`
	Auth   AuthConfig   `koanf:"auth"`
	CORS   CORSConfig   `koanf:"cors"`
	Log    LogConfig    `koanf:"log"`
}

type AppConfig struct {
	Env string `koanf:"env" validate:"oneof=development production"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes" validate:"gt=0"`
}

type DBConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite3 postgres"`
	DSN    string `koanf:"dsn" validate:"required"`
}

type AuthConfig struct {
	JWTSecret           string        `koanf:"jwt_secret" validate:"required"`
	TokenTTL            time.Duration `koanf:"token_ttl" validate:"gt=0"`
	BcryptCost          int           `koanf:"bcrypt_cost" validate:"min=4,max=31"`
	MaxConcurrentHashes int           `koanf:"max_concurrent_hashes" validate:"min=1"`
	TeacherOnlyWrites   bool          `koanf:"teacher_only_writes"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type LogConfig struct {
	Mode string `koanf:"mode"`
}

// Production reports whether cookies should be marked Secure.
func (c *Config) Production() bool {
	return c.App.Env == "production"
}

// Load reads configuration from, in increasing priority: flag defaults, an
// optional YAML file (--config), DARSI_* environment variables and flags set
// on the command line. A .env file in the working directory is loaded into
// the environment first if present.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	f := newFlagSet()
	if err := f.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	// Unchanged flags only fill keys no other source set.
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to read flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	}

	return &cfg, nil
}

// DARSI_AUTH__JWT_SECRET -> auth.jwt_secret
func envValue(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "cors.allowed_origins" {
		var origins []string
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return key, origins
	}
	return key, value
}

func newFlagSet() *pflag.FlagSet {
	f := pflag.NewFlagSet("darsi", pflag.ContinueOnError)
	f.String("config", "", "path to a YAML config file")
	f.String("app.env", "development", "development or production")
	f.String("server.addr", ":7000", "listen address")
	f.Duration("server.read_timeout", 15*time.Second, "HTTP read timeout")
	f.Duration("server.write_timeout", 15*time.Second, "HTTP write timeout")
	f.Duration("server.shutdown_timeout", 10*time.Second, "graceful shutdown timeout")
	f.Int64("server.max_body_bytes", 1<<20, "request body size limit")
	f.String("db.driver", "sqlite3", "sqlite3 or postgres")
	f.String("db.dsn", "local.db", "database file or connection string")
	f.String("auth.jwt_secret", "", "HMAC secret for signing tokens")
	f.Duration("auth.token_ttl", 24*time.Hour, "token lifetime")
	f.Int("auth.bcrypt_cost", 10, "bcrypt work factor")
	f.Int("auth.max_concurrent_hashes", runtime.NumCPU(), "concurrent bcrypt operations")
	f.Bool("auth.teacher_only_writes", false, "restrict content changes to teachers")
	f.StringSlice("cors.allowed_origins", []string{"http://localhost:5173"}, "origins allowed to call the API with credentials")
	f.String("log.mode", "development", "development or production")
	return f
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Store     StoreConfig
	Worker    WorkerConfig
	Assets    AssetsConfig
	Storage   StorageConfig
	Audio     AudioConfig
	Plan      PlanConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type JWTConfig struct {
	Secret string // empty disables auth
}

type RateLimitConfig struct {
	GeneratePerHour int
}

// StoreConfig selects the durable job store.
type StoreConfig struct {
	Driver      string // memory, redis, sqlite3, mysql
	SQLitePath  string
	MySQLDSN    string
	RedisPrefix string
}

type WorkerConfig struct {
	Enabled      bool
	PollInterval time.Duration
	Concurrency  int // asynq handler concurrency
}

// AssetsConfig locates the cue clip library.
type AssetsConfig struct {
	Driver   string // dir, s3
	Dir      string
	Bucket   string
	Prefix   string
	Manifest string
}

// StorageConfig configures where rendered classes are uploaded.
type StorageConfig struct {
	Driver          string // local, s3
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	LocalDir        string
	PresignTTL      time.Duration
	ObjectPrefix    string
}

type AudioConfig struct {
	FFmpegPath string
	Format     string // mp3, wav
	Bitrate    string
}

type PlanConfig struct {
	StrictInput   bool
	DefaultLength int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("MYSQL_DSN")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("ratelimit.generate_per_hour", "RATELIMIT_GENERATE_PER_HOUR")
	_ = viper.BindEnv("store.driver", "STORE_DRIVER")
	_ = viper.BindEnv("store.sqlite_path", "STORE_SQLITE_PATH")
	_ = viper.BindEnv("store.mysql_dsn", "MYSQL_DSN")
	_ = viper.BindEnv("store.redis_prefix", "STORE_REDIS_PREFIX")
	_ = viper.BindEnv("worker.enabled", "WORKER_ENABLED")
	_ = viper.BindEnv("worker.poll_interval_ms", "WORKER_POLL_INTERVAL_MS")
	_ = viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	_ = viper.BindEnv("assets.driver", "ASSETS_DRIVER")
	_ = viper.BindEnv("assets.dir", "ASSETS_DIR")
	_ = viper.BindEnv("assets.bucket", "ASSETS_BUCKET")
	_ = viper.BindEnv("assets.prefix", "ASSETS_PREFIX")
	_ = viper.BindEnv("assets.manifest", "ASSETS_MANIFEST")
	_ = viper.BindEnv("storage.driver", "STORAGE_DRIVER")
	_ = viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = viper.BindEnv("storage.region", "STORAGE_REGION")
	_ = viper.BindEnv("storage.bucket", "STORAGE_BUCKET")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = viper.BindEnv("storage.local_dir", "STORAGE_LOCAL_DIR")
	_ = viper.BindEnv("storage.presign_ttl_sec", "STORAGE_PRESIGN_TTL_SEC")
	_ = viper.BindEnv("storage.object_prefix", "STORAGE_OBJECT_PREFIX")
	_ = viper.BindEnv("audio.ffmpeg_path", "FFMPEG_PATH")
	_ = viper.BindEnv("audio.format", "AUDIO_FORMAT")
	_ = viper.BindEnv("audio.bitrate", "AUDIO_BITRATE")
	_ = viper.BindEnv("plan.strict_input", "PLAN_STRICT_INPUT")
	_ = viper.BindEnv("plan.default_length", "PLAN_DEFAULT_LENGTH")

	// Defaults
	viper.SetDefault("server.port", "10000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("ratelimit.generate_per_hour", 20)

	// Job store defaults
	viper.SetDefault("store.driver", "memory")
	viper.SetDefault("store.sqlite_path", "./data/jobs.db")
	viper.SetDefault("store.redis_prefix", "corner")

	// Worker defaults
	viper.SetDefault("worker.enabled", true)
	viper.SetDefault("worker.poll_interval_ms", 1000)
	viper.SetDefault("worker.concurrency", 1)

	// Asset defaults
	viper.SetDefault("assets.driver", "dir")
	viper.SetDefault("assets.dir", "./audio")
	viper.SetDefault("assets.manifest", "")

	// Storage defaults
	viper.SetDefault("storage.driver", "local")
	viper.SetDefault("storage.region", "auto")
	viper.SetDefault("storage.bucket", "audio")
	viper.SetDefault("storage.local_dir", "./data/files")
	viper.SetDefault("storage.presign_ttl_sec", 0)
	viper.SetDefault("storage.object_prefix", "generated")

	// Audio defaults
	viper.SetDefault("audio.ffmpeg_path", "ffmpeg")
	viper.SetDefault("audio.format", "mp3")
	viper.SetDefault("audio.bitrate", "128k")

	// Plan defaults
	viper.SetDefault("plan.strict_input", false)
	viper.SetDefault("plan.default_length", 60)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			Enabled:  viper.GetBool("redis.enabled"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(viper.GetString("store.driver")),
			SQLitePath:  viper.GetString("store.sqlite_path"),
			MySQLDSN:    viper.GetString("store.mysql_dsn"),
			RedisPrefix: viper.GetString("store.redis_prefix"),
		},
		Worker: WorkerConfig{
			Enabled:      viper.GetBool("worker.enabled"),
			PollInterval: time.Duration(viper.GetInt("worker.poll_interval_ms")) * time.Millisecond,
			Concurrency:  viper.GetInt("worker.concurrency"),
		},
		Assets: AssetsConfig{
			Driver:   strings.ToLower(viper.GetString("assets.driver")),
			Dir:      viper.GetString("assets.dir"),
			Bucket:   viper.GetString("assets.bucket"),
			Prefix:   viper.GetString("assets.prefix"),
			Manifest: viper.GetString("assets.manifest"),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(viper.GetString("storage.driver")),
			Endpoint:        viper.GetString("storage.endpoint"),
			Region:          viper.GetString("storage.region"),
			Bucket:          viper.GetString("storage.bucket"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			PublicURL:       strings.TrimRight(viper.GetString("storage.public_url"), "/"),
			LocalDir:        viper.GetString("storage.local_dir"),
			PresignTTL:      time.Duration(viper.GetInt("storage.presign_ttl_sec")) * time.Second,
			ObjectPrefix:    strings.Trim(viper.GetString("storage.object_prefix"), "/"),
		},
		Audio: AudioConfig{
			FFmpegPath: viper.GetString("audio.ffmpeg_path"),
			Format:     strings.ToLower(viper.GetString("audio.format")),
			Bitrate:    viper.GetString("audio.bitrate"),
		},
		Plan: PlanConfig{
			StrictInput:   viper.GetBool("plan.strict_input"),
			DefaultLength: viper.GetInt("plan.default_length"),
		},
	}

	if cfg.Worker.PollInterval <= 0 {
		cfg.Worker.PollInterval = time.Second
	}
	if cfg.Worker.Concurrency <= 0 {
		cfg.Worker.Concurrency = 1
	}

	return cfg, nil
}

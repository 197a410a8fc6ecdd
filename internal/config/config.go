package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/weiawesome/microblog/internal/reconciler"
	pkgconfig "github.com/weiawesome/microblog/pkg/config"
	pkglog "github.com/weiawesome/microblog/pkg/log"
	"github.com/weiawesome/microblog/pkg/pubsub"
	"github.com/weiawesome/microblog/pkg/storage"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Events        pubsub.Config
	Elasticsearch ElasticsearchConfig
	Storage       StorageConfig
	Auth          AuthConfig
	Reconciler    reconciler.Config
	Log           pkglog.Config
	Languages     []string
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string        `mapstructure:"file_path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime int           `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	LogLevel        string        `mapstructure:"log_level"`
}

// RedisConfig configures the follower-count cache. An empty address
// disables it.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ElasticsearchConfig configures post search. Without addresses posts
// are searched in the database.
type ElasticsearchConfig struct {
	Addresses []string
	Index     string `mapstructure:"index"`
}

type StorageConfig struct {
	Type   string // local, s3
	Local  storage.LocalConfig
	S3     storage.S3Config
	URLTTL time.Duration `mapstructure:"url_ttl"`
}

type AuthConfig struct {
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	ReuseWindow time.Duration `mapstructure:"reuse_window"`
	BcryptCost  int           `mapstructure:"bcrypt_cost"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_upload_mb", 8)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "microblog")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/microblog.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.slow_threshold", "200ms")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("events.driver", "")
	v.SetDefault("events.kafka.brokers", "localhost:9092")
	v.SetDefault("events.kafka.partitions", 3)
	v.SetDefault("elasticsearch.index", "posts")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local.base_path", "./data/media")
	v.SetDefault("storage.local.url_prefix", "/media")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.url_ttl", "24h")
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("auth.reuse_window", "60s")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("reconciler.interval", "60s")
	v.SetDefault("reconciler.top_n", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "microblog")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 28)
	v.SetDefault("languages", []string{"en", "es"})
}

var envBindings = map[string]string{
	"server.port":                  "PORT",
	"database.driver":              "DB_DRIVER",
	"database.host":                "DB_HOST",
	"database.port":                "DB_PORT",
	"database.user":                "DB_USER",
	"database.password":            "DB_PASSWORD",
	"database.dbname":              "DB_NAME",
	"database.sslmode":             "DB_SSLMODE",
	"database.file_path":           "DB_FILE_PATH",
	"database.max_idle_conns":      "DB_MAX_IDLE_CONNS",
	"database.max_open_conns":      "DB_MAX_OPEN_CONNS",
	"database.conn_max_lifetime":   "DB_CONN_MAX_LIFETIME",
	"redis.address":                "REDIS_ADDRESS",
	"redis.password":               "REDIS_PASSWORD",
	"redis.db":                     "REDIS_DB",
	"events.driver":                "EVENTS_DRIVER",
	"events.kafka.brokers":         "KAFKA_BROKERS",
	"elasticsearch.addresses":      "ELASTICSEARCH_ADDRESSES",
	"elasticsearch.index":          "ELASTICSEARCH_INDEX",
	"storage.type":                 "STORAGE_TYPE",
	"storage.local.base_path":      "STORAGE_LOCAL_PATH",
	"storage.s3.endpoint":          "S3_ENDPOINT",
	"storage.s3.region":            "S3_REGION",
	"storage.s3.bucket":            "S3_BUCKET",
	"storage.s3.access_key_id":     "S3_ACCESS_KEY_ID",
	"storage.s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
	"storage.s3.use_path_style":    "S3_USE_PATH_STYLE",
	"storage.s3.public_url":        "S3_PUBLIC_URL",
	"auth.token_ttl":               "TOKEN_TTL",
	"auth.reuse_window":            "TOKEN_REUSE_WINDOW",
	"reconciler.interval":          "RECONCILER_INTERVAL",
	"reconciler.top_n":             "RECONCILER_TOP_N",
	"log.level":                    "LOG_LEVEL",
	"log.pretty":                   "LOG_PRETTY",
	"log.file.path":                "LOG_FILE",
	"languages":                    "LANGUAGES",
}

// Load reads ./config/config.yaml, applies defaults and environment
// overrides.
func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper builds a Config from an already loaded viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	if err := pkgconfig.BindEnvs(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Lists may arrive from the environment as comma-separated strings.
	cfg.Languages = pkgconfig.StringList(v, "languages")
	cfg.Elasticsearch.Addresses = pkgconfig.StringList(v, "elasticsearch.addresses")
	if len(cfg.Events.Kafka.Topics) == 0 {
		cfg.Events.Kafka.Topics = pkgconfig.StringList(v, "events.kafka.topics")
	}

	return &cfg, nil
}

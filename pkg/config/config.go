package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SHOP_DATABASE_DSN.
const EnvPrefix = "SHOP"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Identity IdentityConfig `mapstructure:"identity"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Cache    CacheConfig    `mapstructure:"cache"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Name            string        `mapstructure:"name"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	RawDSN       string `mapstructure:"dsn"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoDBConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	URI             string `mapstructure:"uri"`
	Database        string `mapstructure:"database"`
	AuditCollection string `mapstructure:"audit_collection"`
	GridFSBucket    string `mapstructure:"gridfs_bucket"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

func (c *GRPCConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Issuer     string        `mapstructure:"issuer"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

type IdentityConfig struct {
	Provider        string           `mapstructure:"provider"`
	ProjectID       string           `mapstructure:"project_id"`
	CredentialsFile string           `mapstructure:"credentials_file"`
	CheckRevoked    bool             `mapstructure:"check_revoked"`
	StaticTokens    []StaticIdentity `mapstructure:"static_tokens"`
}

// StaticIdentity maps a fixed token to a phone identity. Only meant for local development.
type StaticIdentity struct {
	Token string `mapstructure:"token"`
	UID   string `mapstructure:"uid"`
	Phone string `mapstructure:"phone"`
}

type UploadConfig struct {
	Backend       string   `mapstructure:"backend"`
	Dir           string   `mapstructure:"dir"`
	PublicBaseURL string   `mapstructure:"public_base_url"`
	MaxSize       int64    `mapstructure:"max_size"`
	AllowedTypes  []string `mapstructure:"allowed_types"`
}

type AdminConfig struct {
	APIKeyHash string `mapstructure:"api_key_hash"`
}

type CacheConfig struct {
	PageTTL time.Duration `mapstructure:"page_ttl"`
	UserTTL time.Duration `mapstructure:"user_ttl"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "foodshop-api")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "foodshop")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("mongodb.enabled", false)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "foodshop")
	v.SetDefault("mongodb.audit_collection", "audit_logs")
	v.SetDefault("mongodb.gridfs_bucket", "images")

	v.SetDefault("etcd.endpoints", []string{})
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("etcd.lease_ttl", 30)

	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 9090)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "foodshop")
	v.SetDefault("auth.session_ttl", 24*time.Hour)

	v.SetDefault("identity.provider", "firebase")
	v.SetDefault("identity.project_id", "")
	v.SetDefault("identity.credentials_file", "")
	v.SetDefault("identity.check_revoked", true)

	v.SetDefault("upload.backend", "local")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.public_base_url", "http://localhost:8080/uploads")
	v.SetDefault("upload.max_size", 5<<20)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif"})

	v.SetDefault("admin.api_key_hash", "")

	v.SetDefault("cache.page_ttl", 5*time.Minute)
	v.SetDefault("cache.user_ttl", 30*time.Minute)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads the YAML file at configPath (optional when empty) on top of the defaults.
// A .env file in the working directory is loaded first so its values reach the SHOP_* overrides.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of mysql, postgres, sqlite", c.Database.Driver))
	}
	switch c.Identity.Provider {
	case "firebase", "static":
	default:
		errs = append(errs, fmt.Errorf("identity.provider %q is not one of firebase, static", c.Identity.Provider))
	}
	switch c.Upload.Backend {
	case "local":
	case "gridfs":
		if !c.MongoDB.Enabled {
			errs = append(errs, errors.New("upload.backend gridfs requires mongodb.enabled"))
		}
	default:
		errs = append(errs, fmt.Errorf("upload.backend %q is not one of local, gridfs", c.Upload.Backend))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Upload.MaxSize <= 0 {
		errs = append(errs, errors.New("upload.max_size must be positive"))
	}

	return errors.Join(errs...)
}

// DSN builds the driver-specific connection string unless database.dsn is set explicitly.
func (c *DatabaseConfig) DSN() string {
	if c.RawDSN != "" {
		return c.RawDSN
	}
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
			c.Host, c.Username, c.Password, c.Database, c.Port)
	case "sqlite":
		return c.Database + ".db"
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.Username, c.Password, c.Host, c.Port, c.Database)
	}
}

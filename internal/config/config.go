package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string
	LogLevel     string
	LogFormat    string
	OtelEnabled  bool
	OtelSampling float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Sources []SourceConfig

	CacheSync CacheSyncConfig
	Redis     RedisConfig
	Report    ReportConfig

	MetricsPush MetricsPushConfig
}

// SourceConfig describes one operational MariaDB instance (a tenant).
type SourceConfig struct {
	Name     string
	Host     string
	Port     int
	DB       string
	User     string
	Password string
}

type CacheSyncConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
	LockTTL  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MetricsPushConfig selects where one-shot commands push their metrics.
// An empty Exporter disables pushing.
type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
}

type ReportConfig struct {
	TablePriority []string
	QueryTimeout  time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "ispreport"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		LogLevel:          strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:         strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		OtelEnabled:       getenvBool("OTEL_ENABLED", false),
		OtelSampling:      getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "sqlite")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "ispreport"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "permcache.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Sources:           ParseSources(os.Getenv("MARIA_SOURCES")),
		CacheSync: CacheSyncConfig{
			Enabled:  getenvBool("CACHE_SYNC_ENABLED", true),
			Interval: time.Duration(getenvInt("CACHE_SYNC_INTERVAL_MINUTES", 5)) * time.Minute,
			Timeout:  time.Duration(getenvInt("CACHE_SYNC_TIMEOUT_SECONDS", 120)) * time.Second,
			LockTTL:  time.Duration(getenvInt("CACHE_SYNC_LOCK_TTL_SECONDS", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Report: ReportConfig{
			TablePriority: parseList(getenv("REPORT_TABLE_PRIORITY", getenv("BQ_TABLE_PRIORITY", ""))),
			QueryTimeout:  time.Duration(getenvInt("REPORT_QUERY_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		MetricsPush: MetricsPushConfig{
			Exporter:  strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_AUTH_TOKEN", "")),
		},
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = []SourceConfig{fallbackSource()}
	}
	if len(cfg.Report.TablePriority) == 0 {
		cfg.Report.TablePriority = []string{DefaultReportTable}
	}

	return cfg
}

const DefaultReportTable = "Huser_servicebase"

// ParseSources parses MARIA_SOURCES: "name,host,port,db,user,password;..."
// Entries with fewer than six fields are skipped.
func ParseSources(raw string) []SourceConfig {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var sources []SourceConfig
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ",")
		if len(parts) < 6 {
			log.Printf("[config] skipping malformed MARIA_SOURCES entry (%d fields)", len(parts))
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		port, err := strconv.Atoi(parts[2])
		if err != nil {
			log.Printf("[config] skipping MARIA_SOURCES entry %q: invalid port", parts[0])
			continue
		}
		name := parts[0]
		if name == "" {
			name = parts[1]
		}
		sources = append(sources, SourceConfig{
			Name:     name,
			Host:     parts[1],
			Port:     port,
			DB:       parts[3],
			User:     parts[4],
			Password: parts[5],
		})
	}
	return sources
}

func fallbackSource() SourceConfig {
	db := getenv("MARIA_DB", "")
	name := db
	if name == "" {
		name = "default"
	}
	return SourceConfig{
		Name:     name,
		Host:     getenv("MARIA_HOST", "localhost"),
		Port:     getenvInt("MARIA_PORT", 3306),
		DB:       db,
		User:     getenv("MARIA_USER", "root"),
		Password: getenv("MARIA_PASSWORD", ""),
	}
}

// SourceNames returns tenant names in configuration order.
func (c Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, src := range c.Sources {
		if src.Name != "" {
			names = append(names, src.Name)
		}
	}
	return names
}

func parseList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains all the configuration options
type Config struct {
	// Environment related options

	// Stage is the current execution environment. Can be one of "prod", "dev", "docker" or "test"
	Stage string `json:"Stage" yaml:"stage"`

	// Logging related options

	// LogFileName is the name of the log file name. "stdout" logs to the console
	LogFileName string `json:"LogFileName" yaml:"log_file_name"`
	// LogMaxSize is the maximum size(MB) of a log file before it gets rotated
	LogMaxSize int `json:"LogMaxSize" yaml:"log_max_size"`
	// LogLevel determines the log level.
	// Can be one of "debug", "info", "warn", "error"
	LogLevel string `json:"LogLevel" yaml:"log_level"`

	// Database related options

	// DbDialect is the gorm dialect. Can be one of "mysql", "postgres" or "sqlite3"
	DbDialect string `json:"DbDialect" yaml:"db_dialect"`
	// DbUser is the name of the database user
	DbUser string `json:"DbUser" yaml:"db_user"`
	// DbPassword is the password of the database user
	DbPassword string `json:"DbPassword" yaml:"db_password"`
	// DbHost is the host name of the database server
	DbHost string `json:"DbHost" yaml:"db_host"`
	// DbName is the name of the database. For sqlite3 it is the file path
	DbName string `json:"DbName" yaml:"db_name"`

	// HTTP Server related options

	// ServerPort is the address to which the HTTP server will bind
	ServerPort string `json:"ServerPort" yaml:"server_port"`
	// AllowedOrigins lists the origins allowed by CORS. Empty allows all
	AllowedOrigins []string `json:"AllowedOrigins" yaml:"allowed_origins"`
	// CacheSize is the size of the LRU caches (sessions, quotes, sentiment)
	CacheSize int `json:"CacheSize" yaml:"cache_size"`

	// Market data related options

	// FinnhubApiKey is the token for the Finnhub quote and news APIs
	FinnhubApiKey string `json:"FinnhubApiKey" yaml:"finnhub_api_key"`
	// FinnhubBaseUrl is the base url of the Finnhub API
	FinnhubBaseUrl string `json:"FinnhubBaseUrl" yaml:"finnhub_base_url"`
	// AlphaVantageApiKey is the key for the Alpha Vantage API
	AlphaVantageApiKey string `json:"AlphaVantageApiKey" yaml:"alpha_vantage_api_key"`
	// AlphaVantageBaseUrl is the base url of the Alpha Vantage API
	AlphaVantageBaseUrl string `json:"AlphaVantageBaseUrl" yaml:"alpha_vantage_base_url"`
	// HttpTimeoutSeconds bounds every outbound provider call
	HttpTimeoutSeconds int `json:"HttpTimeoutSeconds" yaml:"http_timeout_seconds"`
	// QuoteCacheSeconds is how long a fetched quote is served from cache
	QuoteCacheSeconds int `json:"QuoteCacheSeconds" yaml:"quote_cache_seconds"`
	// HistoryCacheSeconds is how long fetched price history is served from cache
	HistoryCacheSeconds int `json:"HistoryCacheSeconds" yaml:"history_cache_seconds"`
	// SentimentCacheSeconds is how long a sentiment result is served from cache
	SentimentCacheSeconds int `json:"SentimentCacheSeconds" yaml:"sentiment_cache_seconds"`

	// Live ticker related options

	// TickerCron is the cron spec (with seconds) of the market ticker refresh
	TickerCron string `json:"TickerCron" yaml:"ticker_cron"`
	// StreamIntervalSeconds is how often pending quote updates are pushed to websocket clients
	StreamIntervalSeconds int `json:"StreamIntervalSeconds" yaml:"stream_interval_seconds"`

	// Authentication related options

	// AuthJwtSecret is the HS256 secret the auth provider signs access tokens with
	AuthJwtSecret string `json:"AuthJwtSecret" yaml:"auth_jwt_secret"`
	// SessionCookieSecure marks the sid cookie as Secure
	SessionCookieSecure bool `json:"SessionCookieSecure" yaml:"session_cookie_secure"`
}

// MissingJwtSecretError is returned by InitConfiguration when a non test stage
// has no AuthJwtSecret
var MissingJwtSecretError = errors.New("AuthJwtSecret is empty. Set auth_jwt_secret or AUTH_JWT_SECRET")

// Struct to load configurations of all possible modes i.e dev, docker, prod, test
// Only one of them will be selected based on the environment variable STOCKPULSE_ENV
type allConfigurations struct {

	// Configuration for environment : dev
	Dev Config `json:"Dev" yaml:"dev"`

	// Configuration for environment : docker
	Docker Config `json:"Docker" yaml:"docker"`

	// Configuration for environment : prod
	Prod Config `json:"Prod" yaml:"prod"`

	// Configuration for environment : test
	Test Config `json:"Test" yaml:"test"`
}

// setting config defaults for test, because when running tests
// config.json won't get loaded correctly unless specified by flags
var config = &Config{
	Stage:                 "test",
	LogFileName:           "stdout",
	LogMaxSize:            50,
	LogLevel:              "debug",
	DbDialect:             "sqlite3",
	DbName:                ":memory:",
	ServerPort:            ":8000",
	CacheSize:             1000,
	FinnhubBaseUrl:        "https://finnhub.io/api/v1",
	AlphaVantageBaseUrl:   "https://www.alphavantage.co",
	HttpTimeoutSeconds:    10,
	QuoteCacheSeconds:     60,
	HistoryCacheSeconds:   300,
	SentimentCacheSeconds: 1800,
	TickerCron:            "*/30 * * * * *",
	StreamIntervalSeconds: 5,
	AuthJwtSecret:         "test-jwt-secret",
}

// InitConfiguration reads the config file and loads the options of the stage
// named by STOCKPULSE_ENV into config. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON.
func InitConfiguration(configFileName string) error {
	stage, exists := os.LookupEnv("STOCKPULSE_ENV")
	if !exists {
		os.Stderr.WriteString("Set environment variable STOCKPULSE_ENV to one of : Dev, Docker, Prod, Test. Taking Dev as default.\n")
		stage = "Dev"
	}

	data, err := os.ReadFile(configFileName)
	if err != nil {
		if stage == "Test" {
			return nil // config is already set to default value for test. nothing to do.
		}
		return fmt.Errorf("open %s: %w", configFileName, err)
	}

	var all allConfigurations
	switch strings.ToLower(filepath.Ext(configFileName)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &all)
	default:
		err = json.Unmarshal(data, &all)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", configFileName, err)
	}

	switch stage {
	case "Docker":
		config = &all.Docker
	case "Prod":
		config = &all.Prod
	case "Test":
		config = &all.Test
	default:
		// Take Dev as default
		config = &all.Dev
	}

	if config.Stage == "" {
		config.Stage = strings.ToLower(stage)
	}
	applyEnvOverrides(config)
	applyDefaults(config)

	// an empty HMAC key would accept tokens anyone can sign
	if config.AuthJwtSecret == "" && !IsTestEnv() {
		return MissingJwtSecretError
	}

	log.Printf("Loaded %s configuration from %s\n", stage, configFileName)
	return nil
}

// applyEnvOverrides lets secrets live outside of the config file
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.FinnhubApiKey = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		c.AlphaVantageApiKey = v
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		c.AuthJwtSecret = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.DbPassword = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.DbHost = v
	}
}

func applyDefaults(c *Config) {
	if c.LogFileName == "" {
		c.LogFileName = "stdout"
	}
	if c.LogMaxSize == 0 {
		c.LogMaxSize = 50
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DbDialect == "" {
		c.DbDialect = "mysql"
	}
	if c.ServerPort == "" {
		c.ServerPort = ":8000"
	}
	if c.CacheSize == 0 {
		c.CacheSize = 1000
	}
	if c.FinnhubBaseUrl == "" {
		c.FinnhubBaseUrl = "https://finnhub.io/api/v1"
	}
	if c.AlphaVantageBaseUrl == "" {
		c.AlphaVantageBaseUrl = "https://www.alphavantage.co"
	}
	if c.HttpTimeoutSeconds == 0 {
		c.HttpTimeoutSeconds = 10
	}
	if c.QuoteCacheSeconds == 0 {
		c.QuoteCacheSeconds = 60
	}
	if c.HistoryCacheSeconds == 0 {
		c.HistoryCacheSeconds = 300
	}
	if c.SentimentCacheSeconds == 0 {
		c.SentimentCacheSeconds = 1800
	}
	if c.TickerCron == "" {
		c.TickerCron = "*/30 * * * * *"
	}
	if c.StreamIntervalSeconds == 0 {
		c.StreamIntervalSeconds = 5
	}
}

// GetConfiguration returns the configuration loaded from the config file
func GetConfiguration() *Config {
	return config
}

// Init intializes the utils package. The config is accepted as a parameter for helping with testing.
func Init(config *Config) error {
	initLogger(config)
	return initDbHelper(config)
}

package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"crosspost/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	TikTok      TikTok      `json:"tiktok"`
	Crypto      Crypto      `json:"crypto"`
	Storage     Storage     `json:"storage"`
	Scheduler   Scheduler   `json:"scheduler"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string `json:"allowedOrigins"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
}

// TikTok holds the Content Posting API client credentials and pipeline tuning.
type TikTok struct {
	ClientKey          string        `json:"clientKey"`
	ClientSecret       string        `json:"clientSecret"`
	RedirectURI        string        `json:"redirectURI"`
	APIBaseURL         string        `json:"apiBaseURL"`
	AuthURL            string        `json:"authURL"`
	Scopes             []string      `json:"scopes"`
	PullAllowedDomains []string      `json:"pullAllowedDomains"`
	PollInterval       time.Duration `json:"pollInterval"`
	PollAttempts       int           `json:"pollAttempts"`
	RateLimitBackoff   time.Duration `json:"rateLimitBackoff"`
	HTTPTimeout        time.Duration `json:"httpTimeout"`
}

// Crypto configures at-rest encryption of platform tokens.
type Crypto struct {
	TokenKey string `json:"tokenKey"`
	Salt     string `json:"salt"`
}

// Storage describes the S3-compatible bucket hosting source videos.
type Storage struct {
	Bucket          string        `json:"bucket"`
	Region          string        `json:"region"`
	Endpoint        string        `json:"endpoint"`
	AccessKeyID     string        `json:"accessKeyID"`
	SecretAccessKey string        `json:"secretAccessKey"`
	SignedURLTTL    time.Duration `json:"signedURLTTL"`
}

type Scheduler struct {
	Interval    time.Duration `json:"interval"`
	BatchSize   int           `json:"batchSize"`
	Concurrency int           `json:"concurrency"`
}

var C Config

func init() {
	LoadEnvFromFile(".env", "config.env")
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initTikTok(&C)
	initCrypto(&C)
	initStorage(&C)
	initScheduler(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

// LoadEnvFromFile merges KEY=VALUE files into the process environment.
// Variables already present in the environment win.
func LoadEnvFromFile(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		v := viper.New()
		v.SetConfigFile(p)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			logger.GetLogger().WithField("file", p).WithField("error", err).Warn("Unable to read env file")
			continue
		}
		for _, key := range v.AllKeys() {
			envKey := strings.ToUpper(key)
			if _, exists := os.LookupEnv(envKey); !exists {
				_ = os.Setenv(envKey, v.GetString(key))
			}
		}
		logger.GetLogger().WithField("file", p).Info("Loaded env file")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	setIfEmpty(&C.Database.Psql.Name, os.Getenv("DB_NAME"))
	setIfEmpty(&C.Database.Psql.Host, os.Getenv("DB_HOST"))
	setIfEmpty(&C.Database.Psql.User, os.Getenv("DB_USER"))
	setIfEmpty(&C.Database.Psql.Password, os.Getenv("DB_PASSWORD"))
	setIfEmpty(&C.Database.Psql.Port, os.Getenv("DB_PORT"))
	setIfEmpty(&C.Database.Psql.Port, "5432")

	setIfEmpty(&C.Database.Mssql.Name, os.Getenv("MSSQL_DB_NAME"))
	setIfEmpty(&C.Database.Mssql.Host, os.Getenv("MSSQL_HOST"))
	setIfEmpty(&C.Database.Mssql.User, os.Getenv("MSSQL_USER"))
	setIfEmpty(&C.Database.Mssql.Password, os.Getenv("MSSQL_PASSWORD"))
	setIfEmpty(&C.Database.Mssql.Port, os.Getenv("MSSQL_PORT"))
	setIfEmpty(&C.Database.Mssql.Port, "1433")

	setIfEmpty(&C.Database.Mongo.Host, os.Getenv("MONGO_HOST"))
	setIfEmpty(&C.Database.Mongo.Port, os.Getenv("MONGO_PORT"))
	setIfEmpty(&C.Database.Mongo.User, os.Getenv("MONGO_USER"))
	setIfEmpty(&C.Database.Mongo.Password, os.Getenv("MONGO_PASSWORD"))
	setIfEmpty(&C.Database.Mongo.Name, os.Getenv("MONGO_DB_NAME"))
	setIfEmpty(&C.Database.Mongo.Port, "27017")
	setIfEmpty(&C.Database.Mongo.Name, "crosspost")
}

func initApp(C *Config) {
	// SECRET_KEY from the environment overrides the config file for JWT verification
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order: APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	setIfEmpty(&C.App.TLSCertFile, os.Getenv("TLS_CERT_FILE"))
	setIfEmpty(&C.App.TLSKeyFile, os.Getenv("TLS_KEY_FILE"))
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		C.App.AllowedOrigins = strings.Split(v, ",")
	}
	if len(C.App.AllowedOrigins) == 0 {
		C.App.AllowedOrigins = []string{"http://localhost:4200", "https://localhost:4200"}
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initTikTok(C *Config) {
	t := &C.TikTok
	if v := os.Getenv("TIKTOK_CLIENT_KEY"); v != "" {
		t.ClientKey = v
	}
	if v := os.Getenv("TIKTOK_CLIENT_SECRET"); v != "" {
		t.ClientSecret = v
	}
	if v := os.Getenv("TIKTOK_REDIRECT_URI"); v != "" {
		t.RedirectURI = v
	}
	setIfEmpty(&t.APIBaseURL, "https://open.tiktokapis.com")
	setIfEmpty(&t.AuthURL, "https://www.tiktok.com/v2/auth/authorize/")
	if t.RedirectURI == "" {
		scheme := "http"
		if C.App.TLSEnabled {
			scheme = "https"
		}
		t.RedirectURI = fmt.Sprintf("%s://localhost:%d/auth/tiktok/callback", scheme, C.App.Port)
	}
	if len(t.Scopes) == 0 {
		t.Scopes = []string{"user.info.basic", "video.publish", "video.upload"}
	}
	if t.PollInterval <= 0 {
		t.PollInterval = 10 * time.Second
	}
	if t.PollAttempts <= 0 {
		t.PollAttempts = 30
	}
	if t.RateLimitBackoff <= 0 {
		t.RateLimitBackoff = 10 * time.Second
	}
	if t.HTTPTimeout <= 0 {
		t.HTTPTimeout = 60 * time.Second
	}
	if t.ClientKey == "" {
		logger.GetLogger().Warn("TikTok client key not set; token refresh and OAuth will fail")
	}
}

func initCrypto(C *Config) {
	if v := os.Getenv("TOKEN_ENCRYPTION_KEY"); v != "" {
		C.Crypto.TokenKey = v
	}
	if v := os.Getenv("TOKEN_ENCRYPTION_SALT"); v != "" {
		C.Crypto.Salt = v
	}
	setIfEmpty(&C.Crypto.Salt, "crosspost-token-salt")
}

func initStorage(C *Config) {
	s := &C.Storage
	setIfEmpty(&s.Bucket, os.Getenv("STORAGE_BUCKET"))
	setIfEmpty(&s.Region, os.Getenv("STORAGE_REGION"))
	setIfEmpty(&s.Endpoint, os.Getenv("STORAGE_ENDPOINT"))
	setIfEmpty(&s.AccessKeyID, os.Getenv("STORAGE_ACCESS_KEY_ID"))
	setIfEmpty(&s.SecretAccessKey, os.Getenv("STORAGE_SECRET_ACCESS_KEY"))
	setIfEmpty(&s.Region, "us-east-1")
	if s.SignedURLTTL <= 0 {
		s.SignedURLTTL = time.Hour
	}
}

func initScheduler(C *Config) {
	s := &C.Scheduler
	if s.Interval <= 0 {
		s.Interval = 30 * time.Second
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 10
	}
	if s.Concurrency <= 0 {
		s.Concurrency = 4
	}
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

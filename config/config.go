// config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// --- Sub-structs mirroring the YAML layout ---

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowedOrigins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type MongoConfig struct {
	URI    string `mapstructure:"uri"`
	DBName string `mapstructure:"dbName"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

// TTL parses Expiration as a Go duration.
func (j JWTConfig) TTL() (time.Duration, error) {
	return time.ParseDuration(j.Expiration)
}

type AuthConfig struct {
	AllowAdminSignUp bool `mapstructure:"allowAdminSignUp"`
}

type SeedConfig struct {
	AdminEmail    string `mapstructure:"adminEmail"`
	AdminPassword string `mapstructure:"adminPassword"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

// Enabled reports whether exports can be uploaded.
func (s S3Config) Enabled() bool {
	return s.Bucket != "" && s.Region != ""
}

type FaceConfig struct {
	ModelDir string `mapstructure:"modelDir"`
}

type FabricConfig struct {
	ChannelName       string `mapstructure:"channelName"`
	ChaincodeName     string `mapstructure:"chaincodeName"`
	OrgName           string `mapstructure:"orgName"`
	UserName          string `mapstructure:"userName"`
	ConnectionProfile string `mapstructure:"connectionProfile"`
	UserCertPath      string `mapstructure:"userCertPath"`
	UserKeyDir        string `mapstructure:"userKeyDir"`
	WalletDir         string `mapstructure:"walletDir"`
}

// Enabled reports whether punch anchoring is configured.
func (f FabricConfig) Enabled() bool {
	return f.ConnectionProfile != ""
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text|json
}

// --- Root config ---

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Seed    SeedConfig    `mapstructure:"seed"`
	Redis   RedisConfig   `mapstructure:"redis"`
	S3      S3Config      `mapstructure:"s3"`
	Face    FaceConfig    `mapstructure:"face"`
	Fabric  FabricConfig  `mapstructure:"fabric"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.port":              "SERVER_PORT",
	"server.allowedOrigins":    "SERVER_ALLOWED_ORIGINS",
	"mongo.uri":                "MONGO_URI",
	"mongo.dbName":             "MONGO_DBNAME",
	"jwt.secret":               "JWT_SECRET",
	"jwt.expiration":           "JWT_EXPIRATION",
	"auth.allowAdminSignUp":    "AUTH_ALLOW_ADMIN_SIGNUP",
	"seed.adminEmail":          "SEED_ADMIN_EMAIL",
	"seed.adminPassword":       "SEED_ADMIN_PASSWORD",
	"redis.addr":               "REDIS_ADDR",
	"redis.password":           "REDIS_PASSWORD",
	"redis.db":                 "REDIS_DB",
	"s3.bucket":                "S3_BUCKET",
	"s3.region":                "S3_REGION",
	"s3.accessKeyID":           "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":       "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":      "S3_CLOUDFRONT_DOMAIN",
	"face.modelDir":            "FACE_MODEL_DIR",
	"fabric.connectionProfile": "FABRIC_CONNECTION_PROFILE",
	"fabric.channelName":       "FABRIC_CHANNEL_NAME",
	"fabric.chaincodeName":     "FABRIC_CHAINCODE_NAME",
	"logging.level":            "LOG_LEVEL",
	"logging.format":           "LOG_FORMAT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("mongo.dbName", "driver_punch")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("face.modelDir", "./models")
	v.SetDefault("fabric.walletDir", "wallet")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// LoadConfig reads config.yaml from path and overrides it with environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)

	v.AutomaticEnv()
	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	// Without a config file viper falls back to defaults and environment variables.
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	// SERVER_ALLOWED_ORIGINS arrives as a single comma-separated value.
	if len(config.Server.AllowedOrigins) == 1 && strings.Contains(config.Server.AllowedOrigins[0], ",") {
		config.Server.AllowedOrigins = splitCSV(config.Server.AllowedOrigins[0])
	}

	err = config.Validate()
	return
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	ttl, err := c.JWT.TTL()
	if err != nil {
		return fmt.Errorf("invalid jwt.expiration %q: %w", c.JWT.Expiration, err)
	}
	if ttl <= 0 {
		return fmt.Errorf("jwt.expiration must be positive, got %s", ttl)
	}
	return nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

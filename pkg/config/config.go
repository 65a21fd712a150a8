package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type AppConfig struct {
	Port               string        `mapstructure:"PORT"`
	GRPCPort           string        `mapstructure:"GRPC_PORT"`
	StoreDriver        string        `mapstructure:"STORE_DRIVER"`
	PostgresUsername   string        `mapstructure:"POSTGRES_USERNAME"`
	PostgresPassword   string        `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDatabase   string        `mapstructure:"POSTGRES_DATABASE"`
	PostgresSSLMode    string        `mapstructure:"POSTGRES_SSLMODE"`
	PostgresHost       string        `mapstructure:"POSTGRES_HOST"`
	PostgresPort       string        `mapstructure:"POSTGRES_PORT"`
	MigrationsPath     string        `mapstructure:"MIGRATIONS_PATH"`
	RabbitMQURL        string        `mapstructure:"RABBITMQ_URL"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	ServiceName        string        `mapstructure:"SERVICE_NAME"`
	AWSEndpoint        string        `mapstructure:"AWS_ENDPOINT"`
	AWSBucket          string        `mapstructure:"AWS_BUCKET"`
	AWSDefaultRegion   string        `mapstructure:"AWS_DEFAULT_REGION"`
	AWSAccessKey       string        `mapstructure:"AWS_ACCESS_KEY"`
	AWSSecretKey       string        `mapstructure:"AWS_SECRET_KEY"`
	DirectoryCacheSize int           `mapstructure:"DIRECTORY_CACHE_SIZE"`
	DirectoryCacheTTL  time.Duration `mapstructure:"DIRECTORY_CACHE_TTL"`
}

func Read() *AppConfig {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	var appConfig AppConfig
	err := viper.Unmarshal(&appConfig)
	if err != nil {
		panic(fmt.Errorf("fatal error unmarshalling config: %w", err))
	}

	return &appConfig
}

// PostgresDSN builds a lib/pq connection URL.
func (c *AppConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.PostgresUsername,
		c.PostgresPassword,
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDatabase,
		c.PostgresSSLMode,
	)
}

func (c *AppConfig) ArchiveEnabled() bool {
	return c.AWSBucket != ""
}

func bindEnvVariables() {
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("GRPC_PORT")
	_ = viper.BindEnv("STORE_DRIVER")
	_ = viper.BindEnv("POSTGRES_USERNAME")
	_ = viper.BindEnv("POSTGRES_PASSWORD")
	_ = viper.BindEnv("POSTGRES_DATABASE")
	_ = viper.BindEnv("POSTGRES_SSLMODE")
	_ = viper.BindEnv("POSTGRES_HOST")
	_ = viper.BindEnv("POSTGRES_PORT")
	_ = viper.BindEnv("MIGRATIONS_PATH")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("SERVICE_NAME")
	_ = viper.BindEnv("AWS_ENDPOINT")
	_ = viper.BindEnv("AWS_BUCKET")
	_ = viper.BindEnv("AWS_DEFAULT_REGION")
	_ = viper.BindEnv("AWS_ACCESS_KEY")
	_ = viper.BindEnv("AWS_SECRET_KEY")
	_ = viper.BindEnv("DIRECTORY_CACHE_SIZE")
	_ = viper.BindEnv("DIRECTORY_CACHE_TTL")
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GRPC_PORT", "9090")
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", "5432")
	viper.SetDefault("MIGRATIONS_PATH", "migrations")
	viper.SetDefault("SERVICE_NAME", "discussion")
	viper.SetDefault("DIRECTORY_CACHE_SIZE", 1024)
	viper.SetDefault("DIRECTORY_CACHE_TTL", "5m")
}

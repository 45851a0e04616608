package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type Config struct {
	ServerPort int
	Database   DatabaseConfig
	Auth       AuthConfig
	Admin      AdminConfig
	Booking    BookingConfig
	Notify     NotifyConfig
	RabbitMQ   RabbitMQConfig
	PubSub     PubSubConfig
	Kafka      KafkaConfig
	Redis      RedisConfig
	Storage    StorageConfig
	CORS       CORSConfig
	Log        LogConfig
}

type DatabaseConfig struct {
	Driver      string `env:"DB_DRIVER" envDefault:"mysql"`
	Host        string `env:"DB_HOST" envDefault:"localhost"`
	Port        int    `env:"DB_PORT"`
	User        string `env:"DB_USER" envDefault:"root"`
	Password    string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME" envDefault:"charisma_move"`
	UseSSL      bool   `env:"DB_USE_SSL" envDefault:"false"`
	Path        string `env:"DB_PATH" envDefault:"charisma_move.db"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
}

// AdminConfig holds the credentials of the account created when no admin
// exists yet.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL" envDefault:"admin@example.com"`
	Password string `env:"ADMIN_PASSWORD" envDefault:"admin123"`
	Name     string `env:"ADMIN_NAME" envDefault:"Admin"`
	Phone    string `env:"ADMIN_PHONE"`
}

type BookingConfig struct {
	// ConfirmPolicy is "any" or "owner_or_admin".
	ConfirmPolicy string `env:"BOOKING_CONFIRM_POLICY" envDefault:"any"`
}

type NotifyConfig struct {
	Backend        string        `env:"NOTIFY_BACKEND" envDefault:"direct"`
	Channel        string        `env:"NOTIFY_CHANNEL" envDefault:"booking.confirmed"`
	PoolSize       int           `env:"NOTIFY_POOL_SIZE" envDefault:"16"`
	Timeout        time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
	SendGridAPIKey string        `env:"SENDGRID_API_KEY"`
	FromEmail      string        `env:"FROM_EMAIL"`
	TextbeltKey    string        `env:"TEXTBELT_KEY" envDefault:"textbelt"`
	SendGridURL    string        `env:"SENDGRID_URL" envDefault:"https://api.sendgrid.com/v3/mail/send"`
	TextbeltURL    string        `env:"TEXTBELT_URL" envDefault:"https://textbelt.com/text"`
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE" envDefault:"false"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH" envDefault:"10"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	GroupID string   `env:"KAFKA_GROUP_ID" envDefault:"charisma-notifier"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"30s"`
}

type StorageConfig struct {
	// Backend is "none", "minio" or "gcs".
	Backend string `env:"STORAGE_BACKEND" envDefault:"none"`
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"charisma-exports"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

type GCSConfig struct {
	Bucket          string `env:"GCS_BUCKET"`
	ProjectID       string `env:"GCS_PROJECT_ID"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

type CORSConfig struct {
	Origins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	var cfg Config
	var errs []error
	for _, section := range []any{
		&cfg.Database,
		&cfg.Auth,
		&cfg.Admin,
		&cfg.Booking,
		&cfg.Notify,
		&cfg.RabbitMQ,
		&cfg.PubSub,
		&cfg.Kafka,
		&cfg.Redis,
		&cfg.Storage,
		&cfg.Storage.Minio,
		&cfg.Storage.GCS,
		&cfg.CORS,
		&cfg.Log,
	} {
		if err := parseSection(section); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logrus.WithError(err).Warn("invalid configuration values replaced by defaults")
	}

	cfg.ServerPort = getEnvInt("SERVER_PORT", getEnvInt("PORT", 3001))
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDBPort(cfg.Database.Driver)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))

	return cfg
}

// parseSection loads section from the environment. Fields whose variable
// fails to parse fall back to their envDefault and are reported.
func parseSection(section any) error {
	err := env.Parse(section)
	if err == nil {
		return nil
	}

	ref := reflect.ValueOf(section).Elem()
	var errs []error
	for i := 0; i < ref.NumField(); i++ {
		field := ref.Type().Field(i)
		key := strings.Split(field.Tag.Get("env"), ",")[0]
		if key == "" {
			continue
		}
		if _, ok := os.LookupEnv(key); !ok {
			continue
		}
		fieldErr := env.Parse(singleField(field, field.Tag).Interface())
		if fieldErr == nil {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", key, fieldErr))

		// Without an env key the parser only sees envDefault.
		fallback := singleField(field, reflect.StructTag(fmt.Sprintf(`envDefault:%q envSeparator:%q`,
			field.Tag.Get("envDefault"), field.Tag.Get("envSeparator"))))
		if env.Parse(fallback.Interface()) == nil {
			ref.Field(i).Set(fallback.Elem().Field(0))
		}
	}
	if len(errs) == 0 {
		return err
	}
	return errors.Join(errs...)
}

// singleField allocates a struct holding only field, tagged with tag.
func singleField(field reflect.StructField, tag reflect.StructTag) reflect.Value {
	return reflect.New(reflect.StructOf([]reflect.StructField{{Name: field.Name, Type: field.Type, Tag: tag}}))
}

func defaultDBPort(driver string) int {
	switch strings.ToLower(driver) {
	case DriverPostgres:
		return 5432
	default:
		return 3306
	}
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.Atoi(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

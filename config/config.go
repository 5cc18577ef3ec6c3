package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	HTTP     HTTPServer
	Mongo    MongoConnection
	Redis    RedisConnection
	Kafka    KafkaConnection
	Mail     Mail
	Razorpay Razorpay

	JWTSecret string `env:"JWT_SECRET" env-default:"change-me"`
	UploadDir string `env:"UPLOAD_DIR" env-default:"./static/uploads"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
}

type HTTPServer struct {
	Port        string   `env:"PORT" env-default:"8080"`
	CORSOrigins []string `env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
}

type MongoConnection struct {
	URI      string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `env:"MONGO_DB" env-default:"bakehouse"`
}

type RedisConnection struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type KafkaConnection struct {
	Brokers []string `env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `env:"KAFKA_TOPIC" env-default:"order-events"`
}

type Mail struct {
	Provider      string `env:"MAIL_PROVIDER" env-default:"log"` // log, postmark, sendgrid
	From          string `env:"MAIL_FROM" env-default:"orders@bakehouse.local"`
	PostmarkToken string `env:"POSTMARK_TOKEN"`
	SendGridKey   string `env:"SENDGRID_KEY"`
}

type Razorpay struct {
	KeyID     string `env:"RAZORPAY_KEY_ID"`
	KeySecret string `env:"RAZORPAY_KEY_SECRET"`
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	const op = "config.Load"
	// a missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Mail.Provider {
	case "log":
	case "postmark":
		if c.Mail.PostmarkToken == "" {
			return fmt.Errorf("MAIL_PROVIDER=postmark needs POSTMARK_TOKEN")
		}
	case "sendgrid":
		if c.Mail.SendGridKey == "" {
			return fmt.Errorf("MAIL_PROVIDER=sendgrid needs SENDGRID_KEY")
		}
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}
	if (c.Razorpay.KeyID == "") != (c.Razorpay.KeySecret == "") {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set together")
	}
	return nil
}

// Addr is the listen address derived from PORT.
func (h HTTPServer) Addr() string {
	if strings.HasPrefix(h.Port, ":") {
		return h.Port
	}
	return ":" + h.Port
}

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const (
	defaultServerAddress      = ":8080"
	defaultDatabaseDSN        = ""
	defaultLogLevel           = "debug"
	defaultBamboraAPIURL      = "https://payform.bambora.com/pbwapi"
	defaultTalpaAPIURL        = ""
	defaultTalpaCheckoutURL   = ""
	defaultTalpaNamespace     = "marinapay"
	defaultProfileAPIURL      = ""
	defaultNotificationAPIURL = ""
	defaultUIReturnURL        = ""
	defaultPublicBaseURL      = ""
	defaultMaxFailures        = 100
	defaultDueDateDays        = 14
	defaultExpireMinutes      = 60
)

type Config struct {
	ServerAddr  string
	DatabaseDSN string
	LogLevel    string

	BamboraAPIURL         string
	BamboraAPIKey         string
	BamboraAPISecret      string
	BamboraPaymentMethods []string

	TalpaAPIURL      string
	TalpaCheckoutURL string
	TalpaNamespace   string
	TalpaAPIKey      string

	ProfileAPIURL      string
	ProfileAPIKey      string
	NotificationAPIURL string
	NotificationAPIKey string

	UIReturnURL   string
	PublicBaseURL string

	AuthTokenKey string

	InvoicingMaxFailures int
	InvoicingDueDateDays int
	OrderExpireMinutes   int
}

var (
	once      sync.Once
	singleton *Config
)

// New returns new Config. It parses command line and environment variables
// only once. A .env file in the working directory is loaded first, so both
// sources see its values.
func New() (*Config, error) {
	once.Do(func() {
		// missing .env is fine
		_ = godotenv.Load()

		cfg := Config{}

		// initialize flags
		flag.StringVar(&cfg.ServerAddr, "a", defaultServerAddress, "server address")
		flag.StringVar(&cfg.DatabaseDSN, "d", defaultDatabaseDSN, "database DSN")
		flag.StringVar(&cfg.LogLevel, "l", defaultLogLevel, "log level")

		flag.Parse()

		// if environment variable is set, then using it
		if v := os.Getenv("RUN_ADDRESS"); v != "" {
			cfg.ServerAddr = v
		}
		if v := os.Getenv("DATABASE_URI"); v != "" {
			cfg.DatabaseDSN = v
		}
		if v := os.Getenv("LOG_LEVEL"); v != "" {
			cfg.LogLevel = v
		}

		cfg.BamboraAPIURL = envOrDefault("BAMBORA_API_URL", defaultBamboraAPIURL)
		cfg.BamboraAPIKey = os.Getenv("BAMBORA_API_KEY")
		cfg.BamboraAPISecret = os.Getenv("BAMBORA_API_SECRET")
		if v := os.Getenv("BAMBORA_PAYMENT_METHODS"); v != "" {
			cfg.BamboraPaymentMethods = strings.Split(v, ",")
		}

		cfg.TalpaAPIURL = envOrDefault("TALPA_API_URL", defaultTalpaAPIURL)
		cfg.TalpaCheckoutURL = envOrDefault("TALPA_CHECKOUT_URL", defaultTalpaCheckoutURL)
		cfg.TalpaNamespace = envOrDefault("TALPA_NAMESPACE", defaultTalpaNamespace)
		cfg.TalpaAPIKey = os.Getenv("TALPA_API_KEY")

		cfg.ProfileAPIURL = envOrDefault("PROFILE_API_URL", defaultProfileAPIURL)
		cfg.ProfileAPIKey = os.Getenv("PROFILE_API_KEY")
		cfg.NotificationAPIURL = envOrDefault("NOTIFICATION_API_URL", defaultNotificationAPIURL)
		cfg.NotificationAPIKey = os.Getenv("NOTIFICATION_API_KEY")

		cfg.UIReturnURL = envOrDefault("UI_RETURN_URL", defaultUIReturnURL)
		cfg.PublicBaseURL = envOrDefault("PUBLIC_BASE_URL", defaultPublicBaseURL)

		cfg.AuthTokenKey = os.Getenv("AUTH_TOKEN_KEY")

		cfg.InvoicingMaxFailures = envIntOrDefault("INVOICING_MAX_FAILURES", defaultMaxFailures)
		cfg.InvoicingDueDateDays = envIntOrDefault("INVOICING_DUE_DATE_DAYS", defaultDueDateDays)
		cfg.OrderExpireMinutes = envIntOrDefault("ORDER_EXPIRE_MINUTES", defaultExpireMinutes)

		singleton = &cfg
	})

	return singleton, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// eSewaのテスト環境フォーム
const DefaultEsewaFormURL = "https://rc-epay.esewa.com.np/api/epay/main/v2/form"

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あればPOSTGRES_*より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5433）
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット

	GoEnv    string // dev/prod
	LogLevel string

	EsewaSecretKey   string
	EsewaProductCode string
	EsewaFormURL     string
	PublicBaseURL    string // success_url / failure_url の起点

	TaxRatePercent decimal.Decimal
	HomeURL        string
	StoreURL       string

	// 他の購入者の決済でもレシートを出す（旧データ用）
	LegacyReceiptLookup bool

	SMTPHost     string // 空ならメールはログ出力のみ
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	RedisAddr string // 空ならコールバックの補助ロック無し

	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceSampleRate float64
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: os.Getenv("PORT"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		EsewaSecretKey:   os.Getenv("ESEWA_SECRET_KEY"),
		EsewaProductCode: os.Getenv("ESEWA_PRODUCT_CODE"),
		EsewaFormURL:     getenv("ESEWA_FORM_URL", DefaultEsewaFormURL),
		PublicBaseURL:    strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),

		HomeURL:  getenv("HOME_URL", "/"),
		StoreURL: getenv("STORE_URL", "/store"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getenv("MAIL_FROM", "no-reply@localhost"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var err error
	if cfg.PostgresPort, err = atoiDefault("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.SMTPPort, err = atoiDefault("SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	if cfg.LegacyReceiptLookup, err = boolDefault("LEGACY_RECEIPT_LOOKUP", true); err != nil {
		return Config{}, err
	}
	if cfg.OTLPInsecure, err = boolDefault("OTEL_EXPORTER_OTLP_INSECURE", false); err != nil {
		return Config{}, err
	}

	rate, err := decimal.NewFromString(getenv("TAX_RATE_PERCENT", "2"))
	if err != nil {
		return Config{}, fmt.Errorf("TAX_RATE_PERCENT must be number: %w", err)
	}
	if rate.IsNegative() {
		return Config{}, fmt.Errorf("TAX_RATE_PERCENT must not be negative")
	}
	cfg.TaxRatePercent = rate

	sample, err := strconv.ParseFloat(getenv("OTEL_TRACES_SAMPLE_RATE", "1"), 64)
	if err != nil {
		return Config{}, fmt.Errorf("OTEL_TRACES_SAMPLE_RATE must be number: %w", err)
	}
	cfg.TraceSampleRate = sample

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresPassword == "" {
			return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
		if cfg.PostgresHost == "" {
			return Config{}, fmt.Errorf("POSTGRES_HOST is required")
		}
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.EsewaSecretKey == "" {
		return Config{}, fmt.Errorf("ESEWA_SECRET_KEY is required")
	}
	if cfg.EsewaProductCode == "" {
		return Config{}, fmt.Errorf("ESEWA_PRODUCT_CODE is required")
	}
	if cfg.PublicBaseURL == "" {
		return Config{}, fmt.Errorf("PUBLIC_BASE_URL is required")
	}

	return cfg, nil
}

// gorm用のDSN
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func boolDefault(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds the listener and HTTP-layer settings of the gateway itself.
type ServerConfig struct {
	Port         string
	AdminPort    string
	APIPrefix    string
	BodyLimitMB  int
	LogLevel     string
	LogTimezone  string
	Environment  string
	ServiceName  string
	SwaggerTitle string
}

// BackendConfig points at the upstream API every intercepted and forwarded request goes to.
type BackendConfig struct {
	BaseURL string
}

// CORSConfig holds the allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string
}

// UploadConfig controls where mirrored documents are written.
// Driver is "local" (filesystem under Root) or "minio" (bucket from MinIOConfig).
type UploadConfig struct {
	Root   string
	Driver string
}

// DatabaseConfig holds PostgreSQL settings for the side-effect journal.
// The journal is disabled when Host is empty.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// Enabled reports whether a database was configured.
func (d DatabaseConfig) Enabled() bool { return d.Host != "" }

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// SMTPAccount is one outgoing mail provider.
type SMTPAccount struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
	UseTLS   bool
}

// EmailConfig holds the primary SMTP account and an alternate provider that can be switched on.
type EmailConfig struct {
	Primary        SMTPAccount
	Alternate      SMTPAccount
	UseAltProvider bool
}

// Active returns the account OTP and document mail should be sent through.
// The alternate provider reuses the primary port when it does not set one.
func (e EmailConfig) Active() SMTPAccount {
	if !e.UseAltProvider {
		return e.Primary
	}
	acc := e.Alternate
	if acc.Port == 0 {
		acc.Port = e.Primary.Port
	}
	return acc
}

// SMSConfig holds the HTTP SMS endpoint template and its optional outbound proxy.
// Endpoint contains the placeholders @Phoneno and @otp.
type SMSConfig struct {
	Endpoint      string
	UseProxy      bool
	ProxyAddress  string
	ProxyUsername string
	ProxyPassword string
	ProxyDomain   string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated once at startup and treated as read-only afterwards.
type AppConfig struct {
	Server               ServerConfig
	Backend              BackendConfig
	CORS                 CORSConfig
	Upload               UploadConfig
	Database             DatabaseConfig
	MinIO                MinIOConfig
	Email                EmailConfig
	SMS                  SMSConfig
	SideEffectTimeoutSec int
	Proxy                ProxyConfig
}

// SideEffectTimeout bounds every notifier and document store call made for one request.
func (c *AppConfig) SideEffectTimeout() time.Duration {
	return time.Duration(c.SideEffectTimeoutSec) * time.Second
}

// Location returns the timezone used for log timestamps, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.LogTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// When PROXY_ROUTES_FILE is set the reverse-proxy route table is read from that YAML file.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			AdminPort:    getEnv("ADMIN_PORT", "9090"),
			APIPrefix:    strings.TrimRight(getEnv("API_PREFIX", "/api"), "/"),
			BodyLimitMB:  getEnvInt("BODY_LIMIT_MB", 20),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			LogTimezone:  getEnv("LOG_TIMEZONE", "UTC"),
			Environment:  getEnv("APP_ENV", "development"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "gateway"),
			SwaggerTitle: getEnv("SWAGGER_TITLE", "Interception Gateway"),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_BASE_URL", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		},
		Upload: UploadConfig{
			Root:   getEnv("UPLOAD_ROOT", ""),
			Driver: strings.ToLower(getEnv("UPLOAD_DRIVER", "local")),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Email: EmailConfig{
			Primary: SMTPAccount{
				Host:     getEnv("SMTP_HOST", ""),
				Port:     getEnvInt("SMTP_PORT", 25),
				From:     getEnv("SMTP_FROM", ""),
				Username: getEnv("SMTP_USERNAME", ""),
				Password: getEnv("SMTP_PASSWORD", ""),
				UseTLS:   getEnvBool("SMTP_USE_TLS", false),
			},
			Alternate: SMTPAccount{
				Host:     getEnv("EMAIL_ALT_HOST", ""),
				Port:     getEnvInt("EMAIL_ALT_PORT", 0),
				From:     getEnv("EMAIL_ALT_FROM", ""),
				Username: getEnv("EMAIL_ALT_USERNAME", ""),
				Password: getEnv("EMAIL_ALT_PASSWORD", ""),
				UseTLS:   getEnvBool("EMAIL_ALT_USE_TLS", false),
			},
			UseAltProvider: getEnvBool("EMAIL_USE_ALT_PROVIDER", false),
		},
		SMS: SMSConfig{
			Endpoint:      getEnv("SMS_ENDPOINT", ""),
			UseProxy:      getEnvBool("SMS_USE_PROXY", false),
			ProxyAddress:  getEnv("SMS_PROXY_ADDRESS", ""),
			ProxyUsername: getEnv("SMS_PROXY_USERNAME", ""),
			ProxyPassword: getEnv("SMS_PROXY_PASSWORD", ""),
			ProxyDomain:   getEnv("SMS_PROXY_DOMAIN", ""),
		},
		SideEffectTimeoutSec: getEnvInt("SIDE_EFFECT_TIMEOUT_SEC", 30),
	}

	if path := getEnv("PROXY_ROUTES_FILE", ""); path != "" {
		pc, err := LoadProxyConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.Proxy = *pc
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the gateway cannot start without.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("BACKEND_BASE_URL is required"))
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BACKEND_BASE_URL %q is not an absolute URL", c.Backend.BaseURL))
	}

	if c.Server.AdminPort == c.Server.Port {
		errs = append(errs, fmt.Errorf("ADMIN_PORT must differ from PORT (%s)", c.Server.Port))
	}

	switch c.Upload.Driver {
	case "local":
		if c.Upload.Root == "" {
			errs = append(errs, errors.New("UPLOAD_ROOT is required for the local upload driver"))
		}
	case "minio":
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT and MINIO_BUCKET are required for the minio upload driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported UPLOAD_DRIVER %q", c.Upload.Driver))
	}

	if c.SMS.UseProxy && c.SMS.ProxyAddress == "" {
		errs = append(errs, errors.New("SMS_PROXY_ADDRESS is required when SMS_USE_PROXY is set"))
	}
	if c.SideEffectTimeoutSec <= 0 {
		errs = append(errs, errors.New("SIDE_EFFECT_TIMEOUT_SEC must be positive"))
	}
	if err := c.Proxy.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Server configuration
type ServerConfig struct {
	Port string
	Host string
	Env  string
}

// MongoDB configuration
type MongoConfig struct {
	URI      string
	Database string
}

// Auth configuration
type AuthConfig struct {
	JWTSecret       string
	TokenTTLHours   int
	SysAdminEmails  []string
	BootstrapPasswd string
}

// Stripe configuration
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

// CORS configuration
type CORSConfig struct {
	Origins []string
}

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	Auth   AuthConfig
	Stripe StripeConfig
	CORS   CORSConfig
}

// PackageConfig describes a purchasable subscription package.
// Amounts are fixed server-side and never taken from a request.
type PackageConfig struct {
	Name     string
	Amount   float64
	Currency string
}

// Default configuration values
const (
	DefaultServerPort    = "8001"
	DefaultServerHost    = ""
	DefaultEnv           = "development"
	DefaultMongoURI      = "mongodb://localhost:27017"
	DefaultMongoDB       = "taskflow"
	DefaultJWTSecret     = "your-secret-key-change-in-production"
	DefaultTokenTTLHours = 24
	DefaultStripeKey     = "sk_test_emergent"
	DefaultCurrency      = "usd"
)

// defaultCORSOrigins are always allowed; CORS_ORIGINS entries are appended.
var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"https://taskflow-2frontend.onrender.com",
}

// New returns a new Config populated from the environment.
// A .env file is loaded first if present; real env vars take precedence.
func New() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", DefaultServerPort),
			Host: getEnv("SERVER_HOST", DefaultServerHost),
			Env:  getEnv("APP_ENV", DefaultEnv),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URL", DefaultMongoURI),
			Database: getEnv("DB_NAME", DefaultMongoDB),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", DefaultJWTSecret),
			TokenTTLHours:   getEnvInt("JWT_EXPIRATION_HOURS", DefaultTokenTTLHours),
			SysAdminEmails:  getEnvList("SYS_ADMIN_EMAILS"),
			BootstrapPasswd: getEnv("SYS_ADMIN_PASSWORD", ""),
		},
		Stripe: StripeConfig{
			APIKey:        getEnv("STRIPE_API_KEY", DefaultStripeKey),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		},
		CORS: CORSConfig{
			Origins: append(append([]string{}, defaultCORSOrigins...), getEnvList("CORS_ORIGINS")...),
		},
	}
}

// Packages is the fixed catalog of purchasable packages.
func Packages() map[string]PackageConfig {
	return map[string]PackageConfig{
		"starter":      {Name: "Starter Plan", Amount: 29.00, Currency: DefaultCurrency},
		"professional": {Name: "Professional Plan", Amount: 79.00, Currency: DefaultCurrency},
		"enterprise":   {Name: "Enterprise Plan", Amount: 199.00, Currency: DefaultCurrency},
	}
}

// Address returns the server address string
func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

// IsDevelopment reports whether the server runs in development mode.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env != "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return nil
	}

	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

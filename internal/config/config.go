package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int

	// PocketBaseURL is the remote record store. The hosted instance is plain
	// HTTP, which is what the mixed-content guard exists for.
	PocketBaseURL string

	// AppOrigin is the origin the storefront is served from. An HTTPS origin
	// with an HTTP PocketBaseURL blocks most remote calls.
	AppOrigin string

	// DataPath is the embedded store location. ":memory:" for tests.
	DataPath string

	JWTSecret    []byte
	KafkaBrokers []string
	LogLevel     string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return &Config{
		ServerPort:    envIntDefault("SERVER_PORT", 8080),
		PocketBaseURL: envDefault("POCKETBASE_URL", "http://node68.lunes.host:3246"),
		AppOrigin:     envDefault("APP_ORIGIN", "http://localhost:8000"),
		DataPath:      envDefault("DATA_PATH", "storefront.db"),
		JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
		KafkaBrokers:  csv(os.Getenv("KAFKA_BROKERS")),
		LogLevel:      envDefault("LOG_LEVEL", "info"),
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntDefault(key string, def int) int {
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

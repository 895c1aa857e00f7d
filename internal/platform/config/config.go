package config

import (
	"os"
	"time"
)

// Server captures process-level configuration for the vault service.
type Server struct {
	Addr            string
	MetricsAddr     string
	Environment     string
	DatabaseURL     string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	VaultMasterKey  string
	TrustProxy      bool
	ListPageLimit   int
	ShutdownTimeout time.Duration
}

// DefaultListPageLimit caps ListByState page sizes when the caller asks for more.
const DefaultListPageLimit = 100

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("SATSVAULT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	metricsAddr := os.Getenv("SATSVAULT_METRICS_ADDR")
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}

	environment := os.Getenv("SATSVAULT_ENV")
	if environment == "" {
		environment = "development"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	shutdownTimeout := 10 * time.Second
	if s := os.Getenv("SATSVAULT_SHUTDOWN_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			shutdownTimeout = d
		}
	}

	return Server{
		Addr:            addr,
		MetricsAddr:     metricsAddr,
		Environment:     environment,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSigningKey:   jwtSigningKey,
		JWTIssuer:       os.Getenv("SATSVAULT_JWT_ISSUER"),
		JWTAudience:     os.Getenv("SATSVAULT_JWT_AUDIENCE"),
		VaultMasterKey:  os.Getenv("VAULT_MASTER_KEY"),
		TrustProxy:      os.Getenv("SATSVAULT_TRUST_PROXY") == "true",
		ListPageLimit:   DefaultListPageLimit,
		ShutdownTimeout: shutdownTimeout,
	}
}

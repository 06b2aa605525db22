// Command authserverd runs the OAuth authorization server as a standalone
// daemon. User authentication is delegated to a front proxy that sets the
// X-Auth-User header; replace the session provider before exposing this
// binary to real users.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	oauthcore "github.com/helixauth/oauthcore"
	"github.com/helixauth/oauthcore/instrumentation"
	"github.com/helixauth/oauthcore/security"
	"github.com/helixauth/oauthcore/sessions/mock"
	"github.com/helixauth/oauthcore/storage"
	"github.com/helixauth/oauthcore/storage/memory"
	"github.com/helixauth/oauthcore/storage/valkey"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	logger := setupLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	store, err := buildStore(logger)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	sessions := &mock.Provider{
		Header:    "X-Auth-User",
		LoginBase: getEnvOrDefault("LOGIN_URL", "/login"),
	}

	config := &oauthcore.ServerConfig{
		Issuer:               getEnvOrDefault("ISSUER", "http://localhost:8080"),
		AuthorizationCodeTTL: getInt64Env("AUTHORIZATION_CODE_TTL", 0),
		AccessTokenTTL:       getInt64Env("ACCESS_TOKEN_TTL", 0),
		RefreshTokenTTL:      getInt64Env("REFRESH_TOKEN_TTL", 0),
		TrustProxy:           getBoolEnv("TRUST_PROXY", false),
		TrustedProxyCount:    int(getInt64Env("TRUSTED_PROXY_COUNT", 0)),
	}
	if scopes := os.Getenv("SUPPORTED_SCOPES"); scopes != "" {
		config.SupportedScopes = strings.Fields(scopes)
	}

	srv, err := oauthcore.NewServer(store, sessions, config, logger)
	if err != nil {
		return err
	}

	srv.SetAuditor(security.NewAuditor(logger, getBoolEnv("AUDIT_ENABLED", true)))

	rateLimiter := security.NewRateLimiter(
		int(getInt64Env("RATE_LIMIT_RPS", 10)),
		int(getInt64Env("RATE_LIMIT_BURST", 20)),
		logger,
	)
	defer rateLimiter.Stop()
	srv.SetRateLimiter(rateLimiter)

	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName: "authserverd",
		Enabled:     getBoolEnv("OTEL_ENABLED", false),
	})
	if err != nil {
		return fmt.Errorf("initializing instrumentation: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = inst.Shutdown(ctx)
	}()
	srv.SetInstrumentation(inst)

	if ms, ok := store.(*memory.Store); ok {
		err := inst.RegisterStorageSizeCallbacks(
			func() int64 { n, _, _, _ := ms.Counts(); return n },
			func() int64 { _, n, _, _ := ms.Counts(); return n },
			func() int64 { _, _, n, _ := ms.Counts(); return n },
			func() int64 { _, _, _, n := ms.Counts(); return n },
		)
		if err != nil {
			logger.Warn("Failed to register storage gauges", "error", err)
		}
	}

	if err := seedClient(srv, logger); err != nil {
		return err
	}

	handler, err := oauthcore.NewHandler(srv, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	httpServer := &http.Server{
		Addr:         getEnvOrDefault("LISTEN_ADDR", ":8080"),
		Handler:      security.RequestIDMiddleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting authorization server", "addr", httpServer.Addr, "issuer", config.Issuer)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildStore selects the storage backend from the STORE environment variable.
func buildStore(logger *slog.Logger) (storage.Store, error) {
	switch backend := getEnvOrDefault("STORE", "memory"); backend {
	case "memory":
		return memory.NewStore(memory.WithLogger(logger)), nil
	case "valkey":
		return valkey.New(valkey.Config{
			Address:   getEnvOrFail("VALKEY_ADDR"),
			Password:  os.Getenv("VALKEY_PASSWORD"),
			DB:        int(getInt64Env("VALKEY_DB", 0)),
			KeyPrefix: os.Getenv("VALKEY_KEY_PREFIX"),
			Logger:    logger,
		})
	default:
		return nil, fmt.Errorf("unknown STORE backend %q (use memory or valkey)", backend)
	}
}

// seedClient registers a single client from the environment so the server is
// usable out of the box. Real registries are managed out of band.
func seedClient(srv *oauthcore.Server, logger *slog.Logger) error {
	clientID := os.Getenv("SEED_CLIENT_ID")
	if clientID == "" {
		return nil
	}

	redirectURI := getEnvOrFail("SEED_REDIRECT_URI")
	secret := os.Getenv("SEED_CLIENT_SECRET")

	_, err := srv.RegisterClient(context.Background(), oauthcore.RegisterClientParams{
		ClientID:     clientID,
		Secret:       secret,
		RedirectURIs: []string{redirectURI},
		Confidential: secret != "",
	})
	if err != nil {
		return fmt.Errorf("seeding client %q: %w", clientID, err)
	}

	logger.Info("Seeded client", "client_id", clientID, "confidential", secret != "")
	return nil
}

func setupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: getLogLevel()}

	var handler slog.Handler
	if getBoolEnv("LOG_JSON", true) {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func getLogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrFail(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Environment variable %s is required", key)
	}
	return value
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Fatalf("Environment variable %s must be an integer, got %q", key, value)
	}
	return parsed
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

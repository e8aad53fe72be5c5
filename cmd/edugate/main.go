// EduGate Core - authentication and authorisation service.
//
// This is the main entry point. It loads configuration, prepares the
// account store, wires the auth pipeline and serves the HTTP API until
// interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/edugate-core/migrations"

	"github.com/nerrad567/edugate-core/internal/api"
	"github.com/nerrad567/edugate-core/internal/audit"
	"github.com/nerrad567/edugate-core/internal/auth"
	"github.com/nerrad567/edugate-core/internal/events"
	"github.com/nerrad567/edugate-core/internal/infrastructure/config"
	"github.com/nerrad567/edugate-core/internal/infrastructure/database"
	"github.com/nerrad567/edugate-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/edugate-core/internal/infrastructure/logging"
	"github.com/nerrad567/edugate-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// startupHealthTimeout bounds the post-startup health check.
const startupHealthTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting EduGate Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // best-effort flush on exit
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	accounts := auth.NewAccountRepository(db.DB)
	if cfg.Security.Seed.Enabled {
		if _, seedErr := auth.SeedAdmin(ctx, accounts, cfg.Security.Seed.AdminUsername, log.Logger); seedErr != nil {
			return fmt.Errorf("seeding admin account: %w", seedErr)
		}
	}

	auditRepo := audit.NewSQLiteRepository(db.DB)
	health := map[string]api.HealthChecker{"database": db}
	recorderDeps := events.Deps{
		Audit:  auditRepo,
		Topics: mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix},
		Logger: log,
	}

	// MQTT (optional): security events degrade to audit-only without it.
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			log.Warn("MQTT unavailable, security events will not be published", "error", mqttErr)
		} else {
			mqttClient.SetLogger(log)
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)
			recorderDeps.Publisher = mqttClient
			health["mqtt"] = mqttClient
		}
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			log.Warn("InfluxDB unavailable, auth metrics disabled", "error", influxErr)
		} else {
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			log.Info("InfluxDB connected",
				"url", cfg.InfluxDB.URL,
				"org", cfg.InfluxDB.Org,
				"bucket", cfg.InfluxDB.Bucket,
			)
			recorderDeps.Metrics = influxClient
			health["influxdb"] = influxClient
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	// Events are flushed after the API stops (defers run in reverse).
	recorder := events.New(recorderDeps)
	defer recorder.Close() //nolint:errcheck // Close always returns nil

	// Auth
	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret: cfg.Security.Token.Secret,
		Expiry: cfg.TokenExpiry(),
		Issuer: cfg.Security.Token.Issuer,
	}, accounts)
	if err != nil {
		return fmt.Errorf("creating token codec: %w", err)
	}

	policies, err := auth.NewPolicyTable(auth.DefaultPolicies())
	if err != nil {
		return fmt.Errorf("building policy table: %w", err)
	}
	pipeline := auth.NewPipeline(policies, codec, auth.WithEventSink(recorder))
	authenticator := auth.NewAuthenticator(auth.NewCredentialVerifier(accounts), codec, recorder, log.Logger)
	log.Info("auth pipeline ready",
		"operations", len(policies.Operations()),
		"csrf_exempt", policies.CSRFExemptions(),
		"token_expiry", codec.Expiry().String(),
	)

	// API
	server, err := api.New(api.Deps{
		Config:        cfg.API,
		CSRF:          cfg.Security.CSRF,
		Logger:        log,
		Pipeline:      pipeline,
		Authenticator: authenticator,
		Accounts:      accounts,
		AuditRepo:     auditRepo,
		Recorder:      recorder,
		DB:            db,
		Health:        health,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	health["api"] = server
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, health); err != nil {
		log.Warn("startup health check reported problems", "error", err)
	}

	log.Info("EduGate Core started successfully")

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// getConfigPath returns the configuration file path.
// Checks EDUGATE_CONFIG environment variable first, then falls back to default.
func getConfigPath() string {
	if path := os.Getenv("EDUGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck probes every component and joins the failures.
func healthCheck(ctx context.Context, checkers map[string]api.HealthChecker) error {
	ctx, cancel := context.WithTimeout(ctx, startupHealthTimeout)
	defer cancel()

	var errs []error
	for name, hc := range checkers {
		if err := hc.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

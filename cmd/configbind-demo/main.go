// Command configbind-demo boots a small HTTP process that loads
// layered configuration, binds it through package configbind, and
// serves introspection endpoints over the result.
//
// Life cycle:
//
//  1. Load .env (jail-wide path, falling back to a local .env).
//  2. Start the daily rotating logger (tees to console in a TTY).
//  3. Flatten conf/global.yaml plus CONFIGBIND_-prefixed env overrides into
//     a property map, resolving any vault:<path>#<key> references
//     against a live Vault server when VAULT_ADDR is set.
//  4. Open the audit log's backing store when AUDIT_DSN is set, and
//     build a Factory with a warnings monitor that both logs via zap
//     and persists to that store.
//  5. Serve /metrics (Prometheus) and /configbind/{seen,used}
//     (package inspect) until interrupted.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/configbind"
	"github.com/yanizio/configbind/audit"
	"github.com/yanizio/configbind/database"
	"github.com/yanizio/configbind/inspect"
	"github.com/yanizio/configbind/logging"
	"github.com/yanizio/configbind/metrics"
	"github.com/yanizio/configbind/server"
	"github.com/yanizio/configbind/source"
	"github.com/yanizio/configbind/vault"
)

const serverEnvPath = "/usr/local/etc/configbind-demo/global.env"

// DemoConfig is the configuration this process binds, exercising the
// full coercion cascade: a simple integer, a deprecated alias for it,
// a redacted secret, an enum, and a list.
type DemoConfig struct {
	Port     int      `config:"http.port" legacyconfig:"server.http-port" validate:"required"`
	APIToken string   `config:"api.token" sensitive:"true"`
	LogLevel LogLevel `config:"log.level"`
	Tags     []string `config:"tags"`
}

// LogLevel is a small fuzzy-matched enum bound through coerce.EnumValues.
type LogLevel int

const (
	LogLevelInfo LogLevel = iota
	LogLevelWarn
	LogLevelError
)

// EnumValues implements coerce.EnumValues.
func (LogLevel) EnumValues() []string { return []string{"INFO", "WARN", "ERROR"} }

func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

type zapWarnings struct{ log *zap.SugaredLogger }

func (w zapWarnings) OnWarning(propertyName, message string) {
	w.log.Warnw(message, "property", propertyName)
	metrics.WarningsCounter{}.OnWarning(propertyName, message)
}

// multiWarnings broadcasts a warning to every monitor in order, so the
// zap-backed monitor and a durable sink like audit.WarningLog can both
// observe the same stream without either needing to know about the
// other.
type multiWarnings []configbind.WarningsMonitor

func (m multiWarnings) OnWarning(propertyName, message string) {
	for _, monitor := range m {
		monitor.OnWarning(propertyName, message)
	}
}

func main() {
	rootDir, _ := os.Getwd()
	log, err := logging.New(rootDir, runningInTTY())
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := source.NewLoader()
	yamlPath := rootDir + "/conf/global.yaml"
	if _, statErr := os.Stat(yamlPath); statErr == nil {
		if err := loader.LoadYAML(yamlPath); err != nil {
			log.Fatalw("loading global.yaml failed", "err", err)
		}
	}
	if err := loader.LoadEnvDefault("CONFIGBIND_"); err != nil {
		log.Fatalw("loading env overrides failed", "err", err)
	}
	properties := loader.Properties()

	if os.Getenv("VAULT_ADDR") != "" {
		vaultClient, err := vault.New(ctx, log.Infof)
		if err != nil {
			log.Fatalw("vault client init failed", "err", err)
		}
		if err := source.NewVaultSecrets(vaultClient, 5*time.Minute).Resolve(ctx, properties); err != nil {
			log.Fatalw("resolving vault-backed properties failed", "err", err)
		}
	}

	warnings := multiWarnings{zapWarnings{log: log}}
	if dsn := os.Getenv("AUDIT_DSN"); dsn != "" {
		db, err := database.Open(dsn)
		if err != nil {
			log.Fatalw("opening audit log database failed", "err", err)
		}
		defer db.Close()
		auditLog := audit.NewWarningLog(ctx, db)
		if err := auditLog.EnsureSchema(); err != nil {
			log.Fatalw("preparing audit log schema failed", "err", err)
		}
		warnings = append(warnings, auditLog)
	}

	factory := configbind.NewFactory(
		properties,
		configbind.WithLogger(log.Desugar()),
		configbind.WithWarningsMonitor(warnings),
	)
	factory.AddListener(metrics.RegistrationListener{})

	provider := configbind.NewProvider[DemoConfig]("", nil)
	factory.RegisterProvider(provider, "configbind-demo")

	cfg, err := provider.Get()
	if err != nil {
		metrics.RecordBindError()
		log.Fatalw("binding demo configuration failed", "err", err)
	}
	metrics.RecordBindSuccess()
	metrics.SetPropertiesSeen(len(factory.AllSeenProperties()))
	log.Infow("demo configuration bound", "port", cfg.Port, "tags", cfg.Tags)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/configbind", inspect.Routes(factory))

	srv := server.New(":8080", router)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("server stopped unexpectedly", "err", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

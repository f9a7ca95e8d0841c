// Package server initializes and runs the vault server: storage,
// migrations, the collaborator services, the expiry sweep, and the
// HTTP surface, with graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/afterword/vaultword/internal/logging"
	"github.com/afterword/vaultword/internal/server/blob"
	"github.com/afterword/vaultword/internal/server/config"
	"github.com/afterword/vaultword/internal/server/entitlement"
	"github.com/afterword/vaultword/internal/server/gate"
	"github.com/afterword/vaultword/internal/server/httpapi"
	"github.com/afterword/vaultword/internal/server/identity"
	"github.com/afterword/vaultword/internal/server/lifecycle"
	"github.com/afterword/vaultword/internal/server/repositories/repomanager"
	"github.com/afterword/vaultword/internal/server/sweep"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	httpSrv *http.Server
	sweeper *sweep.Service
}

func NewApp(c *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	verifier := newVerifier(c)

	blobs := blob.NewS3Store(blob.S3Config{
		RootUser:     c.S3RootUser,
		RootPassword: c.S3RootPassword,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		Timeout:      c.OutboundTimeout,
	})

	lc := lifecycle.NewService(db, m)

	g, err := gate.NewService(db, m, verifier, lc, blobs, c.ServerSecret, logger)
	if err != nil {
		return nil, err
	}

	billing := entitlement.NewHTTPBillingClient(c.BillingBaseURL, c.BillingAPISecret, c.OutboundTimeout)
	e := entitlement.NewService(db, m, billing, c.EntitlementName, logger)

	api := httpapi.NewServer(g, lc, e, verifier, logger)
	httpSrv := &http.Server{
		Addr:    c.EndpointAddr,
		Handler: api.Router(),
	}

	sweeper := sweep.NewService(db, m, blobs, c.SweepInterval, logger)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		httpSrv: httpSrv,
		sweeper: sweeper,
	}, nil
}

// newVerifier picks local JWT verification when a signing secret is
// configured, otherwise the remote identity endpoint.
func newVerifier(c *config.Config) identity.Verifier {
	if c.IdentityJWTSecret != "" {
		return identity.NewJWTVerifier([]byte(c.IdentityJWTSecret))
	}
	return identity.NewHTTPVerifier(c.IdentityBaseURL, c.IdentityAnonKey, c.OutboundTimeout)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	app.logger.Info(ctx, "Starting HTTP server...", "addr", app.config.EndpointAddr)

	if err := app.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.httpSrv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, err.Error())
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), err.Error())
	}
}

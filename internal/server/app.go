// Package server assembles a directory node: the record store backend, the
// directory core on top of it, the gRPC record service, the admin HTTP
// router and the orphan sweep. Run blocks until a signal or a fatal error.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/access"
	"github.com/MobilityFirst/GNS-sub011/internal/server/config"
	"github.com/MobilityFirst/GNS-sub011/internal/server/directory"
	"github.com/MobilityFirst/GNS-sub011/internal/server/fields"
	"github.com/MobilityFirst/GNS-sub011/internal/server/groups"
	"github.com/MobilityFirst/GNS-sub011/internal/server/httpapi"
	"github.com/MobilityFirst/GNS-sub011/internal/server/mail"
	"github.com/MobilityFirst/GNS-sub011/internal/server/metrics"
	"github.com/MobilityFirst/GNS-sub011/internal/server/repositories/repomanager"
	"github.com/MobilityFirst/GNS-sub011/internal/server/services"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store/s3store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/worker"

	gs "github.com/MobilityFirst/GNS-sub011/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

// seams for tests
var (
	openPostgres = repomanager.OpenPostgres
	newS3Store   = s3store.New
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	store     store.RemoteStore
	scanner   store.Scanner
	closeFn   func() error
	registry  *prometheus.Registry
	metrics   *metrics.Collector
	checker   *access.Checker
	directory *directory.Directory
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	st, closeFn, err := openStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	app := &App{config: c, logger: logger, store: st, closeFn: closeFn}
	app.scanner, _ = st.(store.Scanner)

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = metrics.NewCollector(app.registry)

	mailer, err := newMailer(c, logger)
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	app.checker = access.NewChecker(st, c.Directory, logger, access.WithObserver(app.metrics))
	fs := fields.NewService(st, app.checker, logger)
	ls := groups.NewLinkage(st, app.checker, logger)

	opts := []directory.Option{
		directory.WithObserver(app.metrics),
		directory.WithKeyCache(app.checker),
	}
	if app.scanner != nil {
		opts = append(opts, directory.WithScanner(app.scanner))
	}
	app.directory = directory.New(st, fs, ls, mailer, c.Directory, logger, opts...)

	return app, nil
}

// Directory returns the directory core the node serves.
func (app *App) Directory() *directory.Directory { return app.directory }

func openStore(ctx context.Context, c *config.Config, logger logging.Logger) (store.RemoteStore, func() error, error) {
	nop := func() error { return nil }

	switch c.StoreBackend {
	case config.BackendMemory, "":
		return store.NewMemory(), nop, nil

	case config.BackendPostgres:
		db, err := openPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("db init error: %w", err)
		}
		m := repomanager.NewPostgresRepositoryManager()
		if err := m.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		return services.NewRecordService(db, m, logger), db.Close, nil

	case config.BackendS3:
		s, err := newS3Store(ctx, s3store.Options{
			Region:       c.S3Region,
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, nop, nil

	case config.BackendRemote:
		cl, err := gs.Dial(c.RemoteStoreAddr, c.NodeID, c.SecretKey, c.NodeTokenValidityDuration)
		if err != nil {
			return nil, nil, err
		}
		return cl, cl.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
}

func newMailer(c *config.Config, logger logging.Logger) (directory.Mailer, error) {
	if c.SMTPAddr == "" {
		return mail.NewLogMailer(logger), nil
	}
	m, err := mail.NewSMTPMailer(c.SMTPAddr, c.SMTPFrom, c.SMTPUser, c.SMTPPassword, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	opts := []gs.Option{gs.WithRateLimit(app.config.RateLimitPerSecond, app.config.RateLimitBurst)}
	if app.scanner != nil {
		opts = append(opts, gs.WithScanner(app.scanner))
	}

	s, err := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.store, app.config.SecretKey, opts...)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

// verificationPrefix is the path of VerificationURLBase, under which the
// emailed verification links point.
func verificationPrefix(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return u.Path
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr: app.config.EndpointAddrHTTP,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Gatherer: app.registry,
			Verifier: app.directory,
			Prefix:   verificationPrefix(app.config.Directory.VerificationURLBase),
			Logger:   app.logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.StoreBackend, "node", app.config.NodeID)

	app.initSignalHandler(cancelFunc)
	app.checker.Start(ctx)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.scanner != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.NewReconciler(app.directory, app.config.ReconcileInterval, app.logger, app.metrics).Run(ctx)
		}()
	}

	wg.Wait()

	if err := app.closeFn(); err != nil {
		app.logger.Error(context.Background(), "closing store", "error", err.Error())
	}
	app.logger.Info(context.Background(), "App stopped")
}

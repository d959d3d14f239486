// Package server wires the authkeeper components together and runs the HTTP
// and gRPC listeners until the process is signalled to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/authkeeper/internal/server/infra"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocation"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"

	gs "github.com/dmitrijs2005/authkeeper/internal/server/grpc"
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	infra         *infra.Infra
	loginService  *services.LoginService
	authenticator *services.Authenticator
	userService   *services.UserService
}

// NewApp connects to PostgreSQL and Redis, applies migrations and builds the
// services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.Environment)

	if !c.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	if c.SecretKey == config.DefaultSecretKey && !c.IsDevelopment() {
		logger.Warn(ctx, "JWT secret is the built-in default; set JWT_SECRET")
	}

	inf, err := infra.Setup(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("infra init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, inf.DB); err != nil {
		_ = inf.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	var ledgerOpts []revocation.RedisOption
	if c.RevocationMinReplicas > 0 {
		ledgerOpts = append(ledgerOpts, revocation.WithReplicaAck(c.RevocationMinReplicas, c.RevocationWaitTimeout))
	}
	ledger := revocation.NewRedisLedger(inf.Redis, ledgerOpts...)

	hasher := auth.NewHasher(c.BcryptCost)
	issuer := auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration, nil)
	directory := rm.Users(inf.DB)

	validator, err := services.NewCredentialValidator(directory, hasher)
	if err != nil {
		_ = inf.Close()
		return nil, fmt.Errorf("credential validator init error: %w", err)
	}

	return &App{
		config:        c,
		logger:        logger,
		infra:         inf,
		loginService:  services.NewLoginService(validator, issuer, ledger, logger),
		authenticator: services.NewAuthenticator(issuer, ledger, directory, logger),
		userService:   services.NewUserService(inf.DB, rm, hasher, logger),
	}, nil
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
	h := httpapi.NewHandler(app.authenticator, app.loginService, app.userService, app.logger, app.config.IsDevelopment())
	router := httpapi.NewRouter(h, app.logger, map[string]httpapi.HealthCheck{
		"postgres": app.infra.PingDB,
		"redis":    app.infra.PingRedis,
	})

	s := httpapi.NewHTTPServer(app.config.HTTPAddr, router, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.loginService, app.authenticator)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or a listener fails, then shuts both
// listeners down and closes the connections.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.logger.Info(ctx, "Closing connections...")
	return app.infra.Close()
}

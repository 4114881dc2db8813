package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bloomforlungs/bloom/db"
	"github.com/bloomforlungs/bloom/internal/auth"
	"github.com/bloomforlungs/bloom/internal/gate"
	"github.com/bloomforlungs/bloom/internal/handlers"
	"github.com/bloomforlungs/bloom/internal/livecount"
	"github.com/bloomforlungs/bloom/internal/models"
	"github.com/bloomforlungs/bloom/internal/monitors"
	"github.com/bloomforlungs/bloom/internal/pledge"
	"github.com/bloomforlungs/bloom/internal/realtime"
	"github.com/bloomforlungs/bloom/internal/referral"
	"github.com/bloomforlungs/bloom/internal/router"
	"github.com/bloomforlungs/bloom/internal/services"
	"github.com/bloomforlungs/bloom/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the live pledge count",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := db.ConnectDatabase(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
		return err
	}

	if err := db.MigrateDatabase(); err != nil {
		return err
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// On PostgreSQL every insert reaches the hub through LISTEN/NOTIFY, so the
	// store must not publish its own inserts a second time. config.Load has
	// already normalized the driver name.
	listen := cfg.DatabaseDriver == db.DriverPostgres

	hub := realtime.NewHub(logger, 0)
	repo := store.New(db.DB, hub, store.WithLocalPublish(!listen), store.WithLogger(logger))

	gates := gate.NewRegistry(cfg.CountdownSeconds, gate.WithLogger(logger))
	defer gates.Stop()

	notifier := services.NewNotifier(cfg.DiscordWebhookURL, cfg.SlackWebhookURL, logger)
	defer notifier.Wait()

	submitter := pledge.NewSubmitter(repo,
		referral.NewGenerator(repo, referral.WithLogger(logger)),
		pledge.WithGate(gates),
		pledge.WithCodeAttempts(cfg.CodeAttempts),
		pledge.WithLogger(logger),
		pledge.OnSuccess(notifier.Hook(context.WithoutCancel(ctx))),
	)

	stream := handlers.NewPledgeStream(cfg.Origins(), logger)

	counter := livecount.New(repo,
		livecount.WithLogger(logger),
		livecount.OnIncrement(func(count int64, _ models.Pledge) {
			stream.Broadcast(count)
		}),
	)

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	if cfg.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID is not set, sign-in will fail")
	}

	h := &handlers.Handler{
		Submitter:     submitter,
		Gates:         gates,
		Counter:       counter,
		Directory:     repo,
		Stream:        stream,
		Issuer:        issuer,
		Provider:      auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		ClientURL:     cfg.ClientURL,
		PublicBaseURL: cfg.PublicBaseURL,
		CookieDomain:  cfg.CookieDomain,
		Ready: func(ctx context.Context) error {
			return monitors.CheckDatabase(ctx, db.DB, monitors.DefaultTimeout)
		},
		Logger: logger,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(h, cfg.Origins(), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return counter.Run(gctx)
	})

	if listen {
		g.Go(func() error {
			return realtime.NewListener(cfg.DatabaseURL, hub, logger).Run(gctx)
		})
	}

	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", srv.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/internal/config"
	"github.com/layer-3/walletauth/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name:  "walletauth",
		Usage: "Stellar wallet authentication and transfer reconciliation",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to a YAML config file",
				EnvVars: []string{"WALLET_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			commandServer(),
			commandMigrate(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func commandServer() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "start the web server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "serve address"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "store", Usage: "challenge and session store: memory or redis"},
			&cli.StringSliceFlag{Name: "network", Usage: "allowed network, repeatable"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			log, err := logging.New(cfg.LogLevel, cfg.LogJSON)
			if err != nil {
				return err
			}
			gin.SetMode(gin.ReleaseMode)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer app.close(log)

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           app.router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errWg, errCtx := errgroup.WithContext(ctx)

			errWg.Go(func() error {
				log.Info(errCtx, "listening", "addr", cfg.HTTPAddr, "store", cfg.Store.Backend)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})

			if app.cron != nil {
				app.cron.Start()
			}

			errWg.Go(func() error {
				<-errCtx.Done()
				if app.cron != nil {
					<-app.cron.Stop().Done()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			return errWg.Wait()
		},
	}
}

func commandMigrate() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply the Postgres schema for recorded transfers",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if cfg.Store.PostgresDSN == "" {
				return errors.New("DATABASE_DSN is not set")
			}

			db, err := store.OpenPostgres(c.Context, cfg.Store.PostgresDSN)
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
}

// loadConfig layers defaults, the config file, the environment and the command flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"), os.Environ())
	if err != nil {
		return nil, err
	}

	if c.IsSet("addr") {
		cfg.HTTPAddr = c.String("addr")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("store") {
		cfg.Store.Backend = c.String("store")
	}
	if c.IsSet("network") {
		cfg.Stellar.AllowedNetworks = c.StringSlice("network")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/orgperm/pkg/audit"
	"github.com/doodlesbykumbi/orgperm/pkg/config"
	"github.com/doodlesbykumbi/orgperm/pkg/metrics"
	"github.com/doodlesbykumbi/orgperm/pkg/server"
	"github.com/doodlesbykumbi/orgperm/pkg/server/endpoints"
	"github.com/doodlesbykumbi/orgperm/pkg/server/middleware"
	gormstore "github.com/doodlesbykumbi/orgperm/pkg/server/store/gorm"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port, err := strconv.Atoi(defaultPort()); err == nil {
		return port
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the permission matrix server",
	Long: `Run the permission matrix server.

To run the server requires the environment variables DATABASE_URL and
PERMCTL_JWT_SECRET. Operator tokens for the API are created with
"permctl token issue".

By default, database migrations are run on startup. Use --no-migrate to skip.
Changes to permctl.yml are picked up without a restart.`,
	Run: func(cmd *cobra.Command, args []string) {
		if os.Getenv("PERMCTL_JWT_SECRET") == "" {
			fmt.Fprintln(os.Stderr, "PERMCTL_JWT_SECRET environment variable is required")
			os.Exit(1)
		}
		if os.Getenv("DATABASE_URL") == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL environment variable is required")
			os.Exit(1)
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			fmt.Println("Running database migrations...")
			if err := runMigrations(); err != nil {
				fail("Migration failed", err)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := newEnvironment(ctx)
		if err != nil {
			fail("Unable to start server", err)
		}
		defer env.Close()

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		if err := serve(ctx, env, host, port); err != nil {
			fail("Server failed", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}

func serve(ctx context.Context, env *environment, host, port string) error {
	logger := env.logger.Logger
	audit.SetEnabled(env.cfg.AuditEnabled)

	m := metrics.New()
	env.resolver.WithObserver(m)

	s := server.NewServer(env.resolver, gormstore.NewHealthStore(env.db), env.cfg, logger, host, port).
		WithMetrics(m).
		WithJWT(middleware.NewJWTAuthenticator([]byte(env.cfg.JWTSecret), env.cfg.TokenDuration())).
		WithRateLimiter(middleware.NewRateLimiter(env.cfg.RateLimitRPS, env.cfg.RateLimitBurst))
	endpoints.RegisterAll(s)

	go func() {
		err := config.Watch(ctx, logger, func(cfg *config.Config) {
			if err := env.logger.SetLevel(cfg.LogLevel); err != nil {
				logger.Warn("ignoring log level", zap.String("level", cfg.LogLevel), zap.Error(err))
			}
			audit.SetEnabled(cfg.AuditEnabled)
			s.SetConfig(cfg)
		})
		if err != nil {
			logger.Warn("configuration watch stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("running server", zap.String("address", fmt.Sprintf("http://%s:%s", host, port)))
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

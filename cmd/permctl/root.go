package main

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/orgperm/pkg/config"
	"github.com/doodlesbykumbi/orgperm/pkg/db"
	"github.com/doodlesbykumbi/orgperm/pkg/logging"
	"github.com/doodlesbykumbi/orgperm/pkg/permission"
	gormstore "github.com/doodlesbykumbi/orgperm/pkg/server/store/gorm"
	redisstore "github.com/doodlesbykumbi/orgperm/pkg/server/store/redis"
)

var rootCmd = &cobra.Command{
	Use:   "permctl",
	Short: "Organization permission matrix server and tools",
	Long: `permctl runs the permission matrix server and manages the catalog,
role, department and user grants stored in its database.

Most commands need DATABASE_URL. Settings are read from
$PERMCTL_CONFIG_PATH/permctl.yml and PERMCTL_* environment variables.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// fail prints the error the way every command reports it and exits.
func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Reload()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// environment holds what commands that touch the database share.
type environment struct {
	cfg      *config.Config
	logger   *logging.Logger
	db       *gorm.DB
	resolver *permission.Resolver
	cache    permission.Cache
	closers  []func()
}

// newEnvironment loads configuration, connects to the database and, when
// redis_url is set, to the effective-set cache.
func newEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(db.Config{LogLevel: cfg.LogLevel})
	if err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, logger: logger, db: database}
	env.resolver = permission.NewResolver(gormstore.NewPermissionStore(database)).WithLogger(logger.Logger)

	if cfg.RedisURL != "" {
		client, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, func() { _ = client.Close() })
		env.cache = redisstore.NewEffectiveCache(client, logger.Logger, cfg.CacheDuration())
		env.resolver.WithCache(env.cache)
	}
	return env, nil
}

func (e *environment) Close() {
	for _, c := range e.closers {
		c()
	}
	_ = e.logger.Sync()
}

// operator names the local user for audit events of CLI writes.
func operator() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "permctl"
}

func parseTarget(org, kind, id, parentRole string) (permission.Target, error) {
	targetType, err := permission.TargetTypeString(kind)
	if err != nil {
		return permission.Target{}, fmt.Errorf("%w: %s", permission.ErrInvalidTarget, err)
	}
	target := permission.Target{Type: targetType, ID: id, OrganizationID: org}
	if targetType == permission.TargetDepartment {
		target.ParentRoleID = parentRole
	}
	return target, target.Validate()
}

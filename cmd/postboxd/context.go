package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jamesbarge/postboxd-sub001/internal/catalog"
	"github.com/jamesbarge/postboxd-sub001/internal/confidence"
	"github.com/jamesbarge/postboxd-sub001/internal/config"
	"github.com/jamesbarge/postboxd-sub001/internal/database"
	"github.com/jamesbarge/postboxd-sub001/internal/dedupe"
	"github.com/jamesbarge/postboxd-sub001/internal/logging"
	"github.com/jamesbarge/postboxd-sub001/internal/notifications"
	"github.com/jamesbarge/postboxd-sub001/internal/queue"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	db      *sql.DB
	catalog *catalog.Store
	reviews *queue.Store
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// JSONMode reports whether --json was given.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// loggerFor returns the shared logger. It writes to the command's stderr so
// stdout stays clean for tables and JSON.
func (c *commandContext) loggerFor(cmd *cobra.Command) *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		logger, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
		if err != nil {
			fallback, _ := logging.New(logging.Options{Level: "info", Format: "json", Stdout: os.Stderr})
			logger = fallback
		}
		c.logger = logger
	})
	return c.logger
}

// stores opens the database once and returns the catalog and review queue.
func (c *commandContext) stores(ctx context.Context) (*catalog.Store, *queue.Store, error) {
	if c.db != nil {
		return c.catalog, c.reviews, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.OpenAndMigrate(ctx, cfg.Paths.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	c.db = db
	c.catalog = catalog.New(db)
	c.reviews = queue.New(db)
	return c.catalog, c.reviews, nil
}

func (c *commandContext) notifier() notifications.Service {
	cfg, err := c.ensureConfig()
	if err != nil {
		return notifications.NewService(&config.Config{})
	}
	return notifications.NewService(cfg)
}

func (c *commandContext) engine() *confidence.Engine {
	policy := confidence.DefaultPolicy()
	if cfg, err := c.ensureConfig(); err == nil {
		policy = confidence.Policy{
			AutoApplyThreshold: cfg.Matching.AutoApplyThreshold,
			ReviewFloor:        cfg.Matching.ReviewFloor,
		}
	}
	return confidence.NewEngine(policy)
}

func (c *commandContext) merger(cmd *cobra.Command, films *catalog.Store) *dedupe.Resolver {
	return dedupe.NewResolver(films, c.loggerFor(cmd))
}

func (c *commandContext) close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db, c.catalog, c.reviews = nil, nil, nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

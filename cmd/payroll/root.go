package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/payroll-basis/config"
	"github.com/warp/payroll-basis/payroll"
	"github.com/warp/payroll-basis/store/memory"
	"github.com/warp/payroll-basis/store/redislock"
	"github.com/warp/payroll-basis/store/sqlite"
)

const defaultConfigFile = "config.yaml"

// app is the state shared by every subcommand after PersistentPreRunE.
type app struct {
	configPath string
	envFiles   []string

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "payroll",
		Short:        "Payroll basis engine: hours, overtime and OB per pay period",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (default: "+defaultConfigFile+" if present)")
	cmd.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env", ".env.local"}, ".env files to load if present")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newRefreshCmd(a))
	cmd.AddCommand(newSeedCmd(a))

	cmd.SetErrPrefix("payroll:")
	return cmd
}

func (a *app) init(stderr io.Writer) error {
	if _, err := config.LoadEnvFiles(a.envFiles...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}

	path := a.configPath
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg, stderr)
	return nil
}

// newLogger builds a console or JSON zerolog logger at the configured level.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Log.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// openStore opens the configured database, creating its directory.
func (a *app) openStore() (*sqlite.Store, error) {
	if err := a.cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := sqlite.New(a.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.Database.Path, err)
	}
	return store, nil
}

// newLocker returns a Redis locker when redis.address is set, otherwise an
// in-process one. The returned close func is never nil.
func (a *app) newLocker(ctx context.Context) (payroll.KeyLocker, func() error, error) {
	if a.cfg.Redis.Address == "" {
		return memory.NewKeyLocker(), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Address,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", a.cfg.Redis.Address, err)
	}

	a.logger.Info().Str("addr", a.cfg.Redis.Address).Msg("using redis basis locks")
	return redislock.New(client, redislock.WithTTL(a.cfg.Redis.LockTTL), redislock.WithLogger(a.logger)), client.Close, nil
}

func (a *app) newRefresher(store *sqlite.Store, locker payroll.KeyLocker) *payroll.Refresher {
	return &payroll.Refresher{
		Source:  store,
		Store:   store,
		Locker:  locker,
		Logger:  a.logger,
		Workers: a.cfg.Refresh.Workers,
	}
}

func closeAll(logger zerolog.Logger, closers ...func() error) {
	var errs []error
	for _, c := range closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Warn().Err(err).Msg("close resources")
	}
}

// Command agencyauth-server serves the login, logout and registration pages
// of an agency portal together with guarded example routes.
//
// Settings come from an optional YAML file (--config) and the environment
// (SECRET_KEY, DATABASE_URL, REDIS_URL, LOGIN_URL, DASHBOARD_URL, APP_ENV,
// PORT). Without DATABASE_URL an in-memory credential store is used; without
// REDIS_URL sessions live in an embedded miniredis.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	agencyAuth "github.com/MrEthical07/agencyAuth"
	"github.com/MrEthical07/agencyAuth/config"
	"github.com/MrEthical07/agencyAuth/store/cache"
	"github.com/MrEthical07/agencyAuth/store/memory"
	"github.com/MrEthical07/agencyAuth/store/postgres"
)

type options struct {
	configPath string
	seedAdmin  string
	logLevel   string
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("agencyauth-server", pflag.ExitOnError)
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&opts.seedAdmin, "seed-admin", "", "email:password of an admin created in the in-memory store")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	_ = flags.Parse(os.Args[1:])

	log := logrus.New()
	if err := run(opts, log); err != nil {
		log.WithError(err).Fatal("agencyauth-server stopped")
	}
}

func run(opts options, log *logrus.Logger) error {
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	file, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if file.Environment == config.Production {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	cfg, err := file.EngineConfig()
	if err != nil {
		return err
	}
	for _, w := range cfg.Lint() {
		entry := log.WithFields(logrus.Fields{"code": w.Code, "severity": w.Severity.String()})
		if w.Severity >= agencyAuth.LintMedium {
			entry.Warn(w.Message)
		} else {
			entry.Info(w.Message)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis, err := openRedis(file.RedisURL, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	credentials, parents, closeStore, err := openStore(ctx, file, opts.seedAdmin, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if file.ParentCache.TTL > 0 {
		parents = cache.NewParentEntityCache(parents, cache.Config{
			Size: file.ParentCache.Size,
			TTL:  file.ParentCache.TTL,
		})
	}

	builder := agencyAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(credentials).
		WithParentEntityStore(parents).
		WithLogger(log)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(agencyAuth.NewLoggerSink(log.WithField("component", "audit")))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:              file.Listen,
		Handler:           newRouter(engine, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":        file.Listen,
			"environment": file.Environment,
		}).Info("agencyauth-server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRedis(url string, log logrus.FieldLogger) (redis.UniversalClient, func(), error) {
	if url == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		log.WithField("addr", mr.Addr()).Warn("REDIS_URL not set, using embedded miniredis")
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	return client, func() { _ = client.Close() }, nil
}

func openStore(ctx context.Context, file *config.File, seedAdmin string, cfg agencyAuth.Config, log logrus.FieldLogger) (agencyAuth.CredentialStore, agencyAuth.ParentEntityStore, func(), error) {
	if file.DatabaseURL != "" {
		pg, err := postgres.Open(file.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pg.Ping(pingCtx); err != nil {
			_ = pg.Close()
			return nil, nil, nil, fmt.Errorf("ping database: %w", err)
		}
		return pg, pg, func() { _ = pg.Close() }, nil
	}

	if file.Environment == config.Production {
		return nil, nil, nil, errors.New("DATABASE_URL is required in production")
	}
	log.Warn("DATABASE_URL not set, using in-memory credential store")

	mem := memory.New()
	if seedAdmin != "" {
		if err := seed(mem, seedAdmin, cfg); err != nil {
			return nil, nil, nil, err
		}
	}
	return mem, mem, func() {}, nil
}

func seed(mem *memory.Store, account string, cfg agencyAuth.Config) error {
	email, secret, ok := strings.Cut(account, ":")
	if !ok || email == "" || secret == "" {
		return errors.New("--seed-admin must be email:password")
	}
	hash, err := hashWith(cfg, secret)
	if err != nil {
		return err
	}
	mem.Put(agencyAuth.CredentialRecord{
		SubjectID:    "admin-seed",
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Admin",
		Role:         agencyAuth.RoleAdmin,
		Active:       true,
		Approved:     true,
	})
	return nil
}

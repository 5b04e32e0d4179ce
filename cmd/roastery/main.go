// Command roastery runs the federated sign-in service for the roaster
// directory: provider authorization flows, linked-account management and
// encrypted token storage.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/beanfolio/roastery/internal/audit"
	"github.com/beanfolio/roastery/internal/cache"
	"github.com/beanfolio/roastery/internal/config"
	"github.com/beanfolio/roastery/internal/domain/repository"
	httpserver "github.com/beanfolio/roastery/internal/http"
	oauthctl "github.com/beanfolio/roastery/internal/http/controllers/oauth"
	svc "github.com/beanfolio/roastery/internal/http/services/oauth"
	"github.com/beanfolio/roastery/internal/jwt"
	"github.com/beanfolio/roastery/internal/metrics"
	"github.com/beanfolio/roastery/internal/oauth"
	"github.com/beanfolio/roastery/internal/oauth/facebook"
	"github.com/beanfolio/roastery/internal/oauth/github"
	"github.com/beanfolio/roastery/internal/oauth/google"
	"github.com/beanfolio/roastery/internal/observability/logger"
	"github.com/beanfolio/roastery/internal/security/vault"
	"github.com/beanfolio/roastery/internal/store/flowcache"
	"github.com/beanfolio/roastery/internal/store/memory"
	"github.com/beanfolio/roastery/internal/store/pg"
)

var (
	flagConfig  string
	flagEnvFile string
)

func main() {
	root := &cobra.Command{
		Use:           "roastery",
		Short:         "Roastery federated sign-in service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "path to config file")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "path to env file (optional)")

	root.AddCommand(serveCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	// .env is optional convenience for dev; real deployments use the
	// environment directly.
	_ = godotenv.Load(flagEnvFile)
	return config.Load(flagConfig)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       cfg.Log.Level,
				ServiceName: "roastery-auth",
			})
			defer func() { _ = logger.Sync() }()
			log := logger.L()

			key, err := cfg.VaultKey()
			if err != nil {
				return err
			}
			v, err := vault.New(key)
			if err != nil {
				return err
			}

			issuer, err := jwt.NewIssuer([]byte(cfg.Session.Secret), cfg.Session.Issuer, cfg.SessionTTL())
			if err != nil {
				return err
			}

			registry, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			log.Info("providers registered", logger.Count(len(registry.Supported())))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var (
				users    repository.UserRepository
				accounts repository.LinkedAccountRepository
				tokens   repository.TokenRepository
				flows    repository.FlowStateStore
				auditLog repository.AuditLogger
				ping     func(context.Context) error
			)

			switch cfg.Storage.Driver {
			case "postgres":
				store, err := pg.New(ctx, cfg.Storage.DSN)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				users, accounts, tokens = store.Users, store.Accounts, store.Tokens
				flows, auditLog, ping = store.Flows, store.Audit, store.Ping
				log.Info("postgres store ready")
			default:
				store := memory.New()
				users, accounts, tokens = store.Users, store.Accounts, store.Tokens
				flows, auditLog = store.Flows, store.Audit
				log.Warn("using in-memory store; all state is lost on restart")
			}

			if cfg.Storage.FlowState == "cache" {
				client, err := cache.New(cache.Config{
					Kind:     cfg.Cache.Kind,
					Addr:     cfg.Cache.Redis.Addr,
					Password: cfg.Cache.Redis.Password,
					DB:       cfg.Cache.Redis.DB,
					Prefix:   cfg.Cache.Redis.Prefix,
				})
				if err != nil {
					return err
				}
				defer func() { _ = client.Close() }()
				flows = flowcache.New(client)
				log.Info("flow state on cache backend", logger.String("kind", cfg.Cache.Kind))
			}

			recorder := audit.New(auditLog)
			identity := svc.NewIdentityService(svc.IdentityDeps{Users: users, Accounts: accounts})

			controllers := oauthctl.New(oauthctl.Deps{
				StartService: svc.NewStartService(svc.StartDeps{
					Registry: registry,
					Flows:    flows,
					StateTTL: cfg.FlowStateTTL(),
				}),
				CallbackService: svc.NewCallbackService(svc.CallbackDeps{
					Registry: registry,
					Flows:    flows,
					Identity: identity,
					Tokens:   tokens,
					Users:    users,
					Vault:    v,
					Issuer:   issuer,
					Audit:    recorder,
				}),
				AccountsService: svc.NewAccountsService(svc.AccountsDeps{
					Users:    users,
					Accounts: accounts,
					Tokens:   tokens,
					Audit:    recorder,
				}),
				Registry: registry,
				Frontend: oauthctl.FrontendURLs{
					SuccessURL: cfg.Frontend.SuccessURL,
					ErrorURL:   cfg.Frontend.ErrorURL,
				},
			})

			metricsHandler, err := metrics.Register(prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}

			router := httpserver.NewRouter(httpserver.RouterDeps{
				Controllers: controllers,
				Issuer:      issuer,
				Ping:        ping,
				Metrics:     metricsHandler,
			})
			server := httpserver.NewServer(cfg.Server.Addr, router)
			sweeper := svc.NewSweeper(flows, cfg.SweepInterval())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return server.Run(gctx) })
			g.Go(func() error {
				err := sweeper.Run(gctx)
				if err == context.Canceled {
					return nil
				}
				return err
			})

			err = g.Wait()
			if err != nil && err != context.Canceled {
				return err
			}
			log.Info("shutdown complete")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate requires the postgres storage driver")
			}

			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := pg.New(ctx, cfg.Storage.DSN)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			logger.L().Info("schema applied")
			return nil
		},
	}
}

// buildRegistry registers a factory per configured provider. Unconfigured
// providers stay unregistered, so /oauth/providers only advertises what will
// actually work.
func buildRegistry(cfg *config.Config) (*oauth.Registry, error) {
	registry := oauth.NewRegistry()

	constructors := map[string]func(oauth.Config) (oauth.Provider, error){
		"google":   google.New,
		"github":   github.New,
		"facebook": facebook.New,
	}

	for name, pc := range cfg.Providers {
		ctor, ok := constructors[name]
		if !ok {
			return nil, fmt.Errorf("provider %s: no adapter available", name)
		}
		oc := oauth.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  pc.RedirectURL,
			Scopes:       pc.Scopes,
		}
		registry.Register(name, func() (oauth.Provider, error) { return ctor(oc) })
	}

	// Fail fast: build every provider once so config errors surface now.
	for _, name := range registry.Supported() {
		if _, err := registry.Create(name); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

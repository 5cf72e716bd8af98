package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-secure-stdlib/base62"
	"github.com/spf13/cobra"

	"github.com/stephnangue/credvault/audit"
	"github.com/stephnangue/credvault/config"
	"github.com/stephnangue/credvault/crypto"
	"github.com/stephnangue/credvault/logger"
	"github.com/stephnangue/credvault/physical"
	"github.com/stephnangue/credvault/physical/inmem"
	"github.com/stephnangue/credvault/physical/postgres"
	"github.com/stephnangue/credvault/project"
	"github.com/stephnangue/credvault/provider"
	"github.com/stephnangue/credvault/store"
	"github.com/stephnangue/credvault/tools"
)

var (
	configPath  string
	flagDevMode bool

	storageBackends = map[string]physical.Factory{
		"inmem":    inmem.NewInmemBackend,
		"postgres": postgres.NewPostgresBackend,
	}

	serverCmd = &cobra.Command{
		Use:   "server",
		Short: "Start the vault and serve credential tools over MCP stdio",
		Long: `
Usage: credvault server [options]

  Starts the vault and serves the credential tools over MCP on stdio.
  Configuration comes from an HCL file plus CREDVAULT_* environment
  variables; the environment always wins.

      $ CREDVAULT_ENCRYPTION_KEY=... credvault server --config=/etc/credvault/vault.hcl

  With --dev the vault runs entirely in memory under an ephemeral
  encryption key and all data is lost on exit.
`,
		RunE: runServer,
	}
)

func init() {
	serverCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (e.g., /etc/credvault/vault.hcl)")
	serverCmd.Flags().BoolVar(&flagDevMode, "dev", false, "Run in dev mode: in-memory storage, ephemeral encryption key")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if flagDevMode {
		cfg.Storage = &config.Storage{Type: "inmem"}
		if cfg.Crypto.EncryptionKey == "" {
			key, err := base62.Random(32)
			if err != nil {
				return fmt.Errorf("failed to generate dev encryption key: %w", err)
			}
			cfg.Crypto.EncryptionKey = key
			printDevBanner(os.Stderr)
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logConfig := &logger.Config{
		Level:  logger.ParseLogLevel(cfg.LogLevel),
		Format: logger.ParseOutputFormat(cfg.LogFormat),
		Output: os.Stderr,
	}
	if cfg.LogFile != "" {
		logConfig.FileConfig = &logger.FileConfig{Filename: cfg.LogFile}
	}
	log := logger.NewZerologLogger(logConfig)
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := crypto.NewEngine(cfg.Crypto.EncryptionKey, saltBytes(cfg), cfg.Crypto.Iterations)
	if err != nil {
		return fmt.Errorf("failed to build crypto engine: %w", err)
	}

	factory, ok := storageBackends[cfg.Storage.Type]
	if !ok {
		return fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
	backend, err := factory(cfg.Storage.BackendConfig(), log)
	if err != nil {
		return fmt.Errorf("failed to build %s storage: %w", cfg.Storage.Type, err)
	}
	if err := backend.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Type, err)
	}
	defer backend.Stop()

	auditor, err := buildAuditor(cfg, log)
	if err != nil {
		return err
	}
	defer auditor.Close()

	cacheTTL, err := cfg.Cache.ParsedTTL()
	if err != nil {
		return err
	}
	s := store.New(provider.Builtin(), engine, backend, auditor, log, store.Config{
		CacheTTL:  cacheTTL,
		CacheSize: cfg.Cache.MaxEntries,
	})
	projects := project.NewManager(s, auditor, log)

	log.Info("vault started",
		logger.String("storage", cfg.Storage.Type),
		logger.Any("providers", s.Providers()))

	return tools.NewVaultServer(s, projects, log).Serve(ctx)
}

func saltBytes(cfg *config.Config) []byte {
	if cfg.Crypto.Salt == "" {
		return nil
	}
	return []byte(cfg.Crypto.Salt)
}

func buildAuditor(cfg *config.Config, log logger.Logger) (*audit.Broadcaster, error) {
	var sinks []audit.Sink
	for _, a := range cfg.Audit {
		switch a.Type {
		case "stdout":
			// MCP owns stdout, so "stdout" audit goes to stderr.
			sinks = append(sinks, audit.NewWriterSink("stderr", os.Stderr))
		case "file":
			sinks = append(sinks, audit.NewFileSink(audit.FileSinkConfig{
				Path:       a.Path,
				MaxSize:    a.MaxSize,
				MaxAge:     a.MaxAge,
				MaxBackups: a.MaxBackups,
			}))
		default:
			return nil, fmt.Errorf("unknown audit sink type %q", a.Type)
		}
	}
	return audit.NewBroadcaster(log, sinks...), nil
}

func printDevBanner(w *os.File) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "==> credvault started in dev mode! <==\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "WARNING! dev mode is enabled! The vault is using an ephemeral\n")
	fmt.Fprintf(w, "encryption key and in-memory storage. All stored credentials\n")
	fmt.Fprintf(w, "are lost on restart. Do NOT run dev mode in production!\n")
	fmt.Fprintf(w, "\n")
}

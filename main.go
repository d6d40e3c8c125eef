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

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lake/pkg/adapters"
	"github.com/ekaya-inc/ekaya-lake/pkg/config"
	"github.com/ekaya-inc/ekaya-lake/pkg/crypto"
	"github.com/ekaya-inc/ekaya-lake/pkg/logging"
	"github.com/ekaya-inc/ekaya-lake/pkg/mcp"
	"github.com/ekaya-inc/ekaya-lake/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-lake/pkg/repositories"
	"github.com/ekaya-inc/ekaya-lake/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configPath string
	database   string
	limit      int
	sampleSize int
	manifest   string
	httpAddr   string
)

var rootCmd = &cobra.Command{
	Use:   "ekaya-lake",
	Short: "Browse and query Parquet lakes in S3 and Azure Blob Storage as relational databases",
	Long: `ekaya-lake treats buckets and containers as databases, top-level folders as
schemas and Parquet files or partitioned folders as tables. Every command reads
a named datasource from the datasources file and prints JSON.`,
	Version: Version,
}

// application holds the services every command shares.
type application struct {
	cfg         *config.Config
	logger      *zap.Logger
	datasources services.DatasourceService
	discovery   services.DiscoveryService
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// newApplication loads configuration and the datasources file.
func newApplication() (*application, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var enc *crypto.CredentialEncryptor
	if cfg.ProjectCredentialsKey != "" {
		enc, err = crypto.NewCredentialEncryptor(cfg.ProjectCredentialsKey)
		if err != nil {
			return nil, fmt.Errorf("invalid PROJECT_CREDENTIALS_KEY: %w", err)
		}
	}

	sources, err := config.LoadDatasources(cfg.DatasourcesFile, enc)
	if err != nil {
		return nil, err
	}

	repo := repositories.NewDatasourceRepository(sources)
	factory := adapters.NewDatasourceAdapterFactory(cfg, logger)

	logger.Debug("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("datasources_file", cfg.DatasourcesFile),
		zap.Int("datasources", len(sources)))

	return &application{
		cfg:         cfg,
		logger:      logger,
		datasources: services.NewDatasourceService(repo, factory, logger),
		discovery:   services.NewDiscoveryService(repo, factory, cfg.Discovery.DefaultSampleLimit, logger),
	}, nil
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the discovery tools over MCP (stdio by default)",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.logger.Sync() //nolint:errcheck

	audit := mcp.NewAuditLogger(app.logger)
	s := mcp.NewServer("ekaya-lake", Version, app.logger, server.WithHooks(audit.Hooks()))
	tools.RegisterHealthTool(s.MCP(), Version, app.datasources)
	tools.RegisterDiscoveryTools(s.MCP(), &tools.DiscoveryToolDeps{
		Datasources: app.datasources,
		Discovery:   app.discovery,
		Logger:      app.logger.Named("tools"),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if httpAddr == "" {
		return s.ServeStdio(ctx, os.Stdin, os.Stdout)
	}
	return serveHTTP(ctx, app.logger, s, httpAddr)
}

func serveHTTP(ctx context.Context, logger *zap.Logger, s *mcp.Server, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.NewStreamableHTTPServer())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving MCP over HTTP", zap.String("addr", addr), zap.String("version", Version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

var encryptSecretCmd = &cobra.Command{
	Use:   "encrypt-secret <value>",
	Short: "Encrypt a credential for the datasources file with PROJECT_CREDENTIALS_KEY",
	Args:  cobra.ExactArgs(1),
	RunE:  runEncryptSecret,
}

func runEncryptSecret(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return err
	}
	if cfg.ProjectCredentialsKey == "" {
		return errors.New("PROJECT_CREDENTIALS_KEY is not set")
	}
	enc, err := crypto.NewCredentialEncryptor(cfg.ProjectCredentialsKey)
	if err != nil {
		return err
	}
	sealed, err := enc.EncryptValue(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), sealed)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")

	mcpCmd.Flags().StringVar(&httpAddr, "http", "", "Serve streamable HTTP on this address (e.g. :3443) instead of stdio")

	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(encryptSecretCmd)
	addDiscoveryCommands(rootCmd)

	cobra.OnInitialize(func() {
		rootCmd.SilenceUsage = true
		rootCmd.SilenceErrors = true
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, logging.SanitizeError(err))
		os.Exit(1)
	}
}

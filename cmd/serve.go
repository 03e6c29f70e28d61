package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"terramcp/internal/config"
	"terramcp/internal/gcslog"
	"terramcp/internal/lifesciences"
	"terramcp/internal/rest"
	"terramcp/internal/terra"
	"terramcp/internal/tools"
	"terramcp/pkg/logger"
)

var (
	serveTransport string
	serveAddress   string
	serveControl   string
	readWrite      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Start the MCP server on stdio (for MCP clients that spawn the process)
or on a streamable HTTP endpoint. An optional control surface serves
health, readiness and version probes alongside the MCP transport.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "transport: stdio or http (overrides config)")
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "listen address for the http transport (overrides config)")
	serveCmd.Flags().StringVar(&serveControl, "control", "", "control-surface listen address (overrides config, empty disables)")
	serveCmd.Flags().BoolVar(&readWrite, "read-write", false, "enable the mutating tools (submit, abort, upload, update, copy)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.SetLevelFromString(cfg.Logging.Level)
	if debug {
		logger.SetLevel(logger.LevelDebug)
	}

	gate := tools.NewGate(cfg.Server.EnableWrites)
	svc := tools.NewService(
		terra.New(terra.Config{
			BaseURL:        cfg.Terra.BaseURL,
			RequestTimeout: cfg.Terra.RequestTimeout.Std(),
		}),
		gcslog.New(gcslog.Config{
			Endpoint:       cfg.Storage.Endpoint,
			RequestTimeout: cfg.Storage.RequestTimeout.Std(),
		}),
		gate,
		func() lifesciences.Client {
			return lifesciences.New(lifesciences.Config{
				Endpoint:       cfg.Jobs.Endpoint,
				RequestTimeout: cfg.Jobs.RequestTimeout.Std(),
			})
		},
	)

	mcpServer := server.NewMCPServer("terramcp", Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	svc.Register(mcpServer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.ControlAddress != "" {
		control := rest.NewServer(&rest.Config{Address: cfg.Server.ControlAddress}, gate, Version)
		go func() {
			if err := control.StartWithContext(ctx); err != nil {
				logger.Error("control surface stopped: %v", err)
			}
		}()
		logger.Info("control surface listening on %s", cfg.Server.ControlAddress)
	}

	if gate.WritesEnabled() {
		logger.Warn("write tools are ENABLED; submissions can be created and aborted")
	} else {
		logger.Info("running read-only; start with --read-write to enable write tools")
	}

	switch cfg.Server.Transport {
	case "stdio":
		logger.Info("serving MCP on stdio")
		return server.ServeStdio(mcpServer)
	case "http":
		logger.Info("serving MCP over HTTP on %s", cfg.Server.HTTPAddress)
		httpServer := server.NewStreamableHTTPServer(mcpServer)
		go func() {
			<-ctx.Done()
			_ = httpServer.Shutdown(context.Background())
		}()
		return httpServer.Start(cfg.Server.HTTPAddress)
	default:
		return fmt.Errorf("unknown transport %q", cfg.Server.Transport)
	}
}

// applyServeFlags lets explicit flags win over file and environment
// settings.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if serveTransport != "" {
		cfg.Server.Transport = serveTransport
	}
	if serveAddress != "" {
		cfg.Server.HTTPAddress = serveAddress
	}
	if cmd.Flags().Changed("control") {
		cfg.Server.ControlAddress = serveControl
	}
	if readWrite {
		cfg.Server.EnableWrites = true
	}
}

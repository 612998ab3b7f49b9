package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/gopherd/internal/logger"
	"github.com/marmos91/gopherd/pkg/config"
	"github.com/marmos91/gopherd/pkg/server"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
)

const usage = `gopherd - Gopher server

Usage:
  gopherd <command> [flags]

Commands:
  start     Start the server
  init      Write a default configuration file
  version   Print version information

Run 'gopherd <command> -h' for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "start":
		err = runStart(os.Args[2:])
	case "init":
		err = runInit(os.Args[2:])
	case "version":
		fmt.Printf("gopherd %s (commit %s)\n", version, commit)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing configuration file")
	configPath := fs.String("config", "", "Where to write the file (default: "+config.GetDefaultConfigPath()+")")
	_ = fs.Parse(args)

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println("Edit adapters.gopher.root and adapters.gopher.hosts, then run 'gopherd start'.")
	return nil
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := fs.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("gopherd %s starting", version)
	logConfiguration(cfg)

	metricsResult := config.InitializeMetrics(cfg)

	reg, err := config.InitializeRegistry(cfg, metricsResult.CacheMetrics)
	if err != nil {
		return err
	}

	adapters, err := config.CreateAdapters(cfg, metricsResult.GopherMetrics)
	if err != nil {
		_ = reg.Close()
		return err
	}

	srv := server.New(reg)
	srv.SetStopTimeout(cfg.Server.ShutdownTimeout)
	if metricsResult.Server != nil {
		srv.SetMetricsServer(metricsResult.Server)
		logger.Info("Metrics available on :%d/metrics", metricsResult.Server.Port())
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			_ = reg.Close()
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil {
		logger.Error("Server stopped with error: %v", err)
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func logConfiguration(cfg *config.Config) {
	g := cfg.Adapters.Gopher

	logger.Info("Server configuration:")
	logger.Info("  Root: %s", g.Root)
	logger.Info("  Hosts: %v", g.Hosts)
	logger.Info("  Listen: %s:%d", g.Host, g.Port)
	if g.AdvertisedPort > 0 {
		logger.Info("  Advertised port: %d", g.AdvertisedPort)
	}
	if g.MaxConnections > 0 {
		logger.Info("  Max connections: %d", g.MaxConnections)
	} else {
		logger.Info("  Max connections: unlimited")
	}
	logger.Info("  Read timeout: %v", g.ReadTimeout)
	logger.Info("  Write timeout: %v", g.WriteTimeout)
	logger.Info("  Shutdown timeout: %v", g.ShutdownTimeout)
	if g.RateLimit.RequestsPerSecond > 0 {
		logger.Info("  Rate limit: %d conn/s (burst %d)", g.RateLimit.RequestsPerSecond, g.RateLimit.Burst)
	}
	logger.Info("  Cache backend: %s", cfg.Cache.Type)
}

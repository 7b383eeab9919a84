package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/crewtrace/crewtrace/internal/config"
	"github.com/crewtrace/crewtrace/internal/db"
	"github.com/crewtrace/crewtrace/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to tracking tuning config (JSON)")
	listen      = flag.String("listen", "", "HTTP listen address (overrides CREWTRACE_LISTEN)")
	dbPath      = flag.String("db", "", "Database file path (overrides CREWTRACE_DB)")
	fixtures    = flag.String("fixtures", "fixtures.txt", "Fixture file for the agent's scripted location source")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("crewtrace %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	if *listen != "" {
		env.ListenAddr = *listen
	}
	if *dbPath != "" {
		env.DBPath = *dbPath
	}

	cfg := config.EmptyTrackingConfig()
	if *configPath != "" {
		cfg, err = config.LoadTrackingConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
	}

	command := "serve"
	if args := flag.Args(); len(args) > 0 {
		command = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		runServe(ctx, env, cfg)
	case "agent":
		runAgent(ctx, env, cfg)
	case "migrate":
		db.RunMigrateCommand(flag.Args()[1:], env.DBPath)
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: crewtrace [flags] <command>

Commands:
  serve        Run the ingestion server (default)
  agent        Run the tracking agent
  migrate      Manage database schema (see 'crewtrace migrate help')
  help         Show this help

Flags:`)
	flag.PrintDefaults()
}

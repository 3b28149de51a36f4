package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mdp/qrterminal/v3"

	"github.com/nampox/reveal/internal/api"
	"github.com/nampox/reveal/internal/flow"
	"github.com/nampox/reveal/internal/store"
	"github.com/nampox/reveal/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for reveal state data
	DefaultStateDir = "/var/lib/reveal"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "reveal.db"
	// DefaultVisitorRetention is how long an unfinished visitor record is kept
	DefaultVisitorRetention = 30 * 24 * time.Hour
)

// logLevel starts at debug so configuration loading is visible, then follows REVEAL_LOG_LEVEL / -log-level.
var logLevel = new(slog.LevelVar)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		os.Exit(2)
	}
	logLevel.Set(util.ParseLogLevel(flags.logLevel, slog.LevelInfo))

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Load the choreography served to front-ends
	choreo, err := flow.LoadConfig(flags.choreography)
	if err != nil {
		slog.Error("Failed to load choreography", "error", err)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	apiOpts := buildAPIOptions(flags, choreo)

	if flags.showQR {
		printQRCode(os.Stdout, qrTarget(flags))
	}

	// Start the service
	slog.Info("Bootstrapping reveal with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", flags.stateDir, "dsn_set", flags.dbDSN != "", "api_addr", flags.apiAddr)
	if err := api.Run(storeOpts, apiOpts); err != nil {
		slog.Error("reveal failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("reveal exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	StateDir     string
	APIAddr      string
	ServerLabel  string
	PublicURL    string
	Choreography string
	ShowQR       bool
	LogLevel     string
	Retention    time.Duration
	PruneCron    string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     string
	dbDSN        string
	apiAddr      string
	serverLabel  string
	publicURL    string
	choreography string
	showQR       bool
	logLevel     string
	retention    time.Duration
	pruneCron    string
}

// initializeLogger sets up structured logging
func initializeLogger() {
	logLevel.Set(slog.LevelDebug)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     os.Getenv("REVEAL_STATE_DIR"),
		APIAddr:      os.Getenv("REVEAL_API_ADDR"),
		ServerLabel:  os.Getenv("REVEAL_SERVER_LABEL"),
		PublicURL:    os.Getenv("REVEAL_PUBLIC_URL"),
		Choreography: os.Getenv("REVEAL_CHOREOGRAPHY"),
		ShowQR:       util.ParseBoolEnv("REVEAL_SHOW_QR", false),
		LogLevel:     os.Getenv("REVEAL_LOG_LEVEL"),
		Retention:    util.ParseDurationEnv("REVEAL_VISITOR_RETENTION", DefaultVisitorRetention),
		PruneCron:    os.Getenv("REVEAL_PRUNE_SCHEDULE"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No REVEAL_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("REVEAL_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"REVEAL_STATE_DIR", config.StateDir,
		"REVEAL_API_ADDR", config.APIAddr,
		"REVEAL_SERVER_LABEL", config.ServerLabel,
		"REVEAL_CHOREOGRAPHY", config.Choreography,
		"REVEAL_SHOW_QR", config.ShowQR,
		"REVEAL_VISITOR_RETENTION", config.Retention)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	var flags Flags
	fs.StringVar(&flags.stateDir, "state-dir", config.StateDir, "state directory for reveal data (overrides $REVEAL_STATE_DIR)")
	fs.StringVar(&flags.dbDSN, "db-dsn", config.DatabaseURL, "database DSN: postgres URL, SQLite path or \"memory\" (overrides $DATABASE_URL)")
	fs.StringVar(&flags.apiAddr, "api-addr", config.APIAddr, "API server address (overrides $REVEAL_API_ADDR)")
	fs.StringVar(&flags.serverLabel, "server-label", config.ServerLabel, "label reported by GET /time (overrides $REVEAL_SERVER_LABEL)")
	fs.StringVar(&flags.publicURL, "public-url", config.PublicURL, "public URL encoded in the startup QR code (overrides $REVEAL_PUBLIC_URL)")
	fs.StringVar(&flags.choreography, "choreography", config.Choreography, "YAML choreography file (overrides $REVEAL_CHOREOGRAPHY)")
	fs.BoolVar(&flags.showQR, "qr", config.ShowQR, "print the public URL as a QR code at startup (overrides $REVEAL_SHOW_QR)")
	fs.StringVar(&flags.logLevel, "log-level", config.LogLevel, "debug, info, warn or error (overrides $REVEAL_LOG_LEVEL)")
	fs.DurationVar(&flags.retention, "visitor-retention", config.Retention, "prune unfinished visitors older than this, 0 disables (overrides $REVEAL_VISITOR_RETENTION)")
	fs.StringVar(&flags.pruneCron, "prune-schedule", config.PruneCron, "cron expression for visitor pruning (overrides $REVEAL_PRUNE_SCHEDULE)")

	if err := fs.Parse(args); err != nil {
		return flags, err
	}

	slog.Debug("flags parsed",
		"stateDir", flags.stateDir,
		"dbDSN_set", flags.dbDSN != "",
		"apiAddr", flags.apiAddr,
		"serverLabel", flags.serverLabel,
		"choreography", flags.choreography,
		"showQR", flags.showQR)

	// Update database DSN if not explicitly set but state directory is provided
	if flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && flags.stateDir != config.StateDir {
		flags.dbDSN = filepath.Join(flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", flags.stateDir)
	}

	return flags, nil
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(flags.dbDSN) != "sqlite" {
		return nil
	}
	dirs := []string{filepath.Dir(flags.dbDSN)}
	if flags.stateDir != "" && flags.stateDir != dirs[0] {
		dirs = append(dirs, flags.stateDir)
	}
	for _, dir := range dirs {
		slog.Debug("Creating state directory for file-based database", "state_dir", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", dir)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	switch store.DetectDSNType(flags.dbDSN) {
	case "postgres":
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		storeOpts = append(storeOpts, store.WithPostgresDSN(flags.dbDSN))
	case "sqlite":
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(flags.dbDSN))
	default:
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, choreo flow.Config) []api.Option {
	apiOpts := []api.Option{api.WithChoreography(choreo)}
	if flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(flags.apiAddr))
	}
	if flags.serverLabel != "" {
		apiOpts = append(apiOpts, api.WithServerLabel(flags.serverLabel))
	}
	if flags.retention > 0 {
		apiOpts = append(apiOpts, api.WithVisitorRetention(flags.retention, flags.pruneCron))
	}
	// Only a file-backed store needs the single-instance lock
	if store.DetectDSNType(flags.dbDSN) == "sqlite" && flags.stateDir != "" {
		apiOpts = append(apiOpts, api.WithStateDir(flags.stateDir))
	}
	return apiOpts
}

// qrTarget is the URL visitors should open: the public URL when set, otherwise the local listen address.
func qrTarget(flags Flags) string {
	if flags.publicURL != "" {
		return flags.publicURL
	}
	addr := flags.apiAddr
	if addr == "" {
		addr = api.DefaultAddr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func printQRCode(w io.Writer, target string) {
	fmt.Fprintf(w, "Open %s\n", target)
	qrterminal.GenerateHalfBlock(target, qrterminal.L, w)
}

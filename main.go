// MediaWiki Export - dumps every page of a MediaWiki wiki to plain text files
// and builds a combined corpus with a word count
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/olgasafonova/mediawiki-export/export"
	"github.com/olgasafonova/mediawiki-export/internal/logging"
	"github.com/olgasafonova/mediawiki-export/metrics"
	"github.com/olgasafonova/mediawiki-export/tracing"
	"github.com/olgasafonova/mediawiki-export/wiki"
)

const (
	AppName    = tracing.TracerName
	AppVersion = "1.0.0"
)

// runConfig holds process-level settings that belong to neither the wiki client
// nor the exporter
type runConfig struct {
	LogFile     string `yaml:"log_file" env:"EXPORT_LOG_FILE" env-default:"scraper.log"`
	LogLevel    string `yaml:"log_level" env:"EXPORT_LOG_LEVEL" env-default:"info"`
	MetricsFile string `yaml:"metrics_file" env:"EXPORT_METRICS_FILE"`
}

// appConfig is everything one run needs
type appConfig struct {
	Run     runConfig
	Wiki    *wiki.Config
	Export  export.Options
	Tracing tracing.Config
}

// loadConfig reads the optional YAML file named by CONFIG_PATH, then the environment
func loadConfig() (*appConfig, error) {
	path := os.Getenv("CONFIG_PATH")

	var rc runConfig
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &rc)
	} else {
		err = cleanenv.ReadEnv(&rc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run settings: %w", err)
	}

	wikiConfig, err := wiki.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	opts, err := export.LoadOptions(path)
	if err != nil {
		return nil, err
	}
	tracingConfig, err := tracing.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return &appConfig{Run: rc, Wiki: wikiConfig, Export: opts, Tracing: tracingConfig}, nil
}

// recoverPanic turns a panic in the export into a logged error
func recoverPanic(logger *slog.Logger, errp *error) {
	if r := recover(); r != nil {
		logger.Error("Panic recovered",
			"panic", r,
			"stack", string(debug.Stack()))
		*errp = fmt.Errorf("panic: %v", r)
	}
}

func main() {
	if err := run(); err != nil {
		log.Printf("%s: %v", AppName, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Run.LogLevel)
	if err != nil {
		return err
	}

	logFile, err := os.Create(cfg.Run.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	logger := logging.New(AppName, os.Stderr, logFile, level)
	defer recoverPanic(logger, &err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.Setup(ctx, cfg.Tracing, AppName, AppVersion)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("Tracing shutdown failed", "error", err)
			}
		}()
	}

	client := wiki.NewClient(cfg.Wiki, logger)
	defer client.Close()

	exporter := export.New(client, client.Pacer(), cfg.Export, logger)
	logger.Info("Starting export",
		"name", AppName,
		"version", AppVersion,
		"run_id", exporter.RunID(),
		"wiki_url", cfg.Wiki.BaseURL,
		"output_dir", cfg.Export.OutputDir,
		"request_delay", client.Pacer().Delay(),
	)

	summary, runErr := exporter.Run(ctx)

	if cfg.Run.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.Run.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics", "path", cfg.Run.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		if wiki.IsParseError(runErr) {
			logger.Error("Wiki returned a response that is not JSON, check MEDIAWIKI_URL points at api.php",
				"wiki_url", cfg.Wiki.BaseURL,
				"error", runErr)
		} else {
			logger.Error("Export failed", "error", runErr)
		}
		return runErr
	}

	logger.Info("Export complete",
		"pages", summary.Total,
		"processed", summary.Processed,
		"skipped_redirects", summary.Redirects,
		"unavailable", summary.Unavailable,
		"words", summary.WordCount,
		"paced_requests", client.Pacer().Waits(),
		"duration", summary.Duration,
	)
	return nil
}

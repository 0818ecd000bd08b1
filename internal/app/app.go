// Package app wires the extraction, evaluation and background services
// together for the command line and HTTP entry points.
package app

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"expansion-evaluator/background"
	"expansion-evaluator/evaluation"
	"expansion-evaluator/extractor"
	"expansion-evaluator/internal/types"
	"expansion-evaluator/knowledge"
	"expansion-evaluator/utils"
)

// App owns every long lived service
type App struct {
	Config       *types.Config
	Logger       *logrus.Logger
	Orchestrator *extractor.Orchestrator
	Evaluator    *evaluation.Evaluator
	Background   *background.Extractor

	client *utils.HTTPClient
}

// NewLogger builds the logrus logger. LOG_LEVEL wins over the configured
// level, and verbose forces debug when neither is set explicitly.
func NewLogger(level string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	} else if verbose {
		level = "debug"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

// New builds the services. The background worker is created but not started.
func New(ctx context.Context, config *types.Config, logger *logrus.Logger) (*App, error) {
	kb, err := extractor.NewKnowledge(ctx, config, logger)
	if err != nil {
		return nil, err
	}

	client := utils.NewHTTPClient(config, logger)
	orchestrator := extractor.NewOrchestrator(config, client, kb, logger)

	worker := background.New(config, orchestrator, kb.Dynamic, knowledge.NewUpgradeLog(config.Knowledge.UpgradeLogPath), logger)
	orchestrator.SetBackground(worker)

	qualifier := evaluation.NewB2BQualifier(client, config, logger)

	return &App{
		Config:       config,
		Logger:       logger,
		Orchestrator: orchestrator,
		Evaluator:    evaluation.NewEvaluator(orchestrator, qualifier, config, logger),
		Background:   worker,
		client:       client,
	}, nil
}

// Start launches the background worker when enabled
func (a *App) Start() {
	if a.Config.Background.Enabled {
		a.Background.Start()
	}
}

// Close stops the worker, waiting at most the configured shutdown timeout
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Background.ShutdownTimeout)
	defer cancel()
	if err := a.Background.Shutdown(ctx); err != nil {
		a.Logger.Warnf("Background worker did not stop in time: %v", err)
	}
	a.client.Close()
}

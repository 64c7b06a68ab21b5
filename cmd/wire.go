package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bnema/notebooklm-cli/internal/adapters/credstore"
	"github.com/bnema/notebooklm-cli/internal/application"
	"github.com/bnema/notebooklm-cli/internal/config"
	"github.com/bnema/notebooklm-cli/internal/ports"
)

type app struct {
	cfg     config.Config
	store   ports.CredentialStore
	session *application.Session
	logger  *zap.Logger
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := buildLogger()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	store := credstore.New(cfg.AuthFilePath())

	return &app{
		cfg:     cfg,
		store:   store,
		session: application.NewSession(cfg, store, ports.SystemClock{}, logger),
		logger:  logger,
	}, nil
}

// buildLogger writes console-encoded logs to stderr so stdout stays clean
// for command output and the MCP stream. NLM_DEBUG turns on debug logging.
func buildLogger() (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if os.Getenv("NLM_DEBUG") != "" {
		level = zapcore.DebugLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	return zcfg.Build()
}

/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/email-notifier/pkg/config"
	"github.com/telekom/email-notifier/pkg/system"
	"github.com/telekom/email-notifier/pkg/telemetry"
	"github.com/telekom/email-notifier/pkg/version"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath string
	debug      bool
	cfg        *config.Config
	log        *zap.Logger
	writer     io.Writer
	shutdown   telemetry.ShutdownFunc
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   getEnvString("EMAIL_NOTIFIER_CONFIG", config.DefaultConfigPath),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath: cfg.ConfigPath,
		debug:      getEnvBool("EMAIL_NOTIFIER_DEBUG", false),
		writer:     cfg.OutputWriter,
	}

	root := &cobra.Command{
		Use:           "email-notifier",
		Short:         "Compose and send templated HTML email notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath
			}
			// version and post never read the local configuration
			if cmd.Name() == "version" || cmd.Name() == "post" {
				return nil
			}

			log, err := system.NewLogger(rt.debug)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}
			rt.log = log

			loaded, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid configuration %s: %w", rt.configPath, err)
			}
			rt.cfg = &loaded

			_, shutdown, err := telemetry.Init(cmd.Context(),
				telemetry.OptionsFromConfig(loaded.Telemetry, version.Version, rt.log.Sugar().Named("telemetry")))
			if err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}
			rt.shutdown = shutdown

			rt.log.Sugar().Infow("Loaded configuration",
				"version", version.Version,
				"configPath", rt.configPath,
				"host", loaded.Notifier.Host,
				"port", loaded.Notifier.Port,
				"templatesPath", loaded.Notifier.TemplatesPath)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt.shutdown != nil {
				if err := rt.shutdown(context.WithoutCancel(cmd.Context())); err != nil {
					rt.Logger().Sugar().Warnw("Failed to flush traces", "error", err)
				}
			}
			if rt.log != nil {
				_ = rt.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to the notifier configuration file")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", rt.debug, "Enable debug level logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewSendCommand(),
		NewRenderCommand(),
		NewServeCommand(),
		NewPostCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) Logger() *zap.Logger {
	if rt.log != nil {
		return rt.log
	}
	return zap.NewNop()
}

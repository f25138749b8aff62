// Copyright 2025 The mcpkit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcpkit/mcpkit/internal/log"
	"github.com/mcpkit/mcpkit/internal/server"
	"github.com/mcpkit/mcpkit/internal/telemetry"
	"github.com/mcpkit/mcpkit/internal/util"
)

var (
	// versionString indicates the version of this library.
	//go:embed version.txt
	versionString string
	// metadataString indicates additional build or distribution metadata.
	metadataString string
)

func init() {
	versionString = semanticVersion()
}

// semanticVersion returns the version of the CLI including compile-time metadata.
func semanticVersion() string {
	v := strings.TrimSpace(versionString)
	if metadataString != "" {
		v += "+" + metadataString
	}
	return v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewCommand().Execute(); err != nil {
		exit := 1
		os.Exit(exit)
	}
}

// Command represents an invocation of the CLI.
type Command struct {
	*cobra.Command

	cfg        server.ServerConfig
	logger     log.Logger
	configFile string
	stdio      bool
}

// NewCommand returns a Command object representing an invocation of the CLI.
func NewCommand(opts ...Option) *Command {
	cmd := &Command{
		Command: &cobra.Command{
			Use:           "mcpkit",
			Version:       versionString,
			SilenceErrors: true,
		},
	}

	for _, o := range opts {
		o(cmd)
	}

	flags := cmd.Flags()
	flags.StringVarP(&cmd.cfg.Address, "address", "a", "127.0.0.1", "Address of the interface the server will listen on.")
	flags.IntVarP(&cmd.cfg.Port, "port", "p", 5000, "Port the server will listen on.")
	flags.BoolVar(&cmd.stdio, "stdio", false, "Listen via MCP stdio instead of HTTP.")
	flags.StringVar(&cmd.configFile, "config", "", "File path specifying the components configuration.")
	flags.Var(&cmd.cfg.LogLevel, "log-level", "Specify the minimum level logged. Allowed: 'DEBUG', 'INFO', 'WARN', 'ERROR'.")
	flags.Var(&cmd.cfg.LoggingFormat, "logging-format", "Specify logging format to use. Allowed: 'standard' or 'JSON'.")
	flags.StringVar(&cmd.cfg.TelemetryOTLP, "telemetry-otlp", "", "Export telemetry to the given OTLP HTTP endpoint (e.g. 'http://127.0.0.1:4318').")
	flags.StringVar(&cmd.cfg.Instructions, "instructions", "", "Usage instructions included in the initialize response.")

	// wrap RunE command so that we have access to the original Command object
	cmd.RunE = func(*cobra.Command, []string) error { return run(cmd) }

	return cmd
}

func run(cmd *Command) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd.cfg.Version = versionString

	// Handle logger separately from config. A stdio server must keep
	// stdout clean for the protocol, so logs go to stderr.
	outW := os.Stdout
	if cmd.stdio {
		outW = os.Stderr
	}
	switch strings.ToLower(cmd.cfg.LoggingFormat.String()) {
	case "json":
		logger, err := log.NewStructuredLogger(outW, os.Stderr, cmd.cfg.LogLevel.String())
		if err != nil {
			return fmt.Errorf("unable to initialize logger: %w", err)
		}
		cmd.logger = logger
	default:
		logger, err := log.NewStdLogger(outW, os.Stderr, cmd.cfg.LogLevel.String())
		if err != nil {
			return fmt.Errorf("unable to initialize logger: %w", err)
		}
		cmd.logger = logger
	}
	ctx = util.WithLogger(ctx, cmd.logger)
	ctx = util.WithUserAgent(ctx, versionString)

	if cmd.cfg.TelemetryOTLP != "" {
		shutdown, err := telemetry.SetupOTLP(ctx, cmd.cfg.TelemetryOTLP, "mcpkit", versionString)
		if err != nil {
			errMsg := fmt.Errorf("unable to set up telemetry: %w", err)
			cmd.logger.Error(errMsg.Error())
			return errMsg
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := shutdown(shutdownCtx); err != nil {
				cmd.logger.Error(fmt.Sprintf("error shutting down telemetry: %v", err))
			}
		}()
	}

	// Server settings in the config file merge in before the server is
	// built; components register afterwards.
	var fileCfg *server.FileConfig
	if cmd.configFile != "" {
		raw, err := os.ReadFile(cmd.configFile)
		if err != nil {
			errMsg := fmt.Errorf("unable to read config file at %q: %w", cmd.configFile, err)
			cmd.logger.Error(errMsg.Error())
			return errMsg
		}
		fileCfg, err = server.ParseFileConfig(raw)
		if err != nil {
			errMsg := fmt.Errorf("unable to parse config file at %q: %w", cmd.configFile, err)
			cmd.logger.Error(errMsg.Error())
			return errMsg
		}
		if fileCfg.Server.Instructions != "" {
			cmd.cfg.Instructions = fileCfg.Server.Instructions
		}
		if fileCfg.Server.Capabilities != nil {
			cmd.cfg.Capabilities = *fileCfg.Server.Capabilities
		}
	}
	if cmd.cfg.Capabilities == (server.CapabilitiesConfig{}) {
		// serve the full surface unless the config narrows it
		cmd.cfg.Capabilities = server.CapabilitiesConfig{
			Tools:      &server.ListChangedConfig{ListChanged: true},
			Prompts:    &server.ListChangedConfig{ListChanged: true},
			Resources:  &server.ResourcesConfig{ListChanged: true},
			Logging:    true,
			Completion: true,
		}
	}

	s, err := server.NewServer(ctx, cmd.cfg)
	if err != nil {
		errMsg := fmt.Errorf("mcpkit failed to start with the following error: %w", err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}

	if fileCfg != nil {
		if err := s.ReplaceRegistry(ctx, fileCfg.Register); err != nil {
			errMsg := fmt.Errorf("unable to register components: %w", err)
			cmd.logger.Error(errMsg.Error())
			return errMsg
		}
		if err := s.WatchConfigFile(ctx, cmd.configFile); err != nil {
			cmd.logger.Warn(fmt.Sprintf("config file watching disabled: %v", err))
		}
	}

	if cmd.stdio {
		stdio := server.NewStdioSession(s, os.Stdin, os.Stdout)
		if err := stdio.Start(ctx); err != nil && ctx.Err() == nil {
			errMsg := fmt.Errorf("mcpkit crashed with the following error: %w", err)
			cmd.logger.Error(errMsg.Error())
			return errMsg
		}
		return nil
	}

	if err := s.Listen(ctx); err != nil {
		errMsg := fmt.Errorf("mcpkit failed to start with the following error: %w", err)
		cmd.logger.Error(errMsg.Error())
		return errMsg
	}
	cmd.logger.InfoContext(ctx, "Server ready to serve!")

	srvErr := make(chan error, 1)
	go func() {
		err := s.Serve(ctx)
		if err == http.ErrServerClosed {
			err = nil
		}
		srvErr <- err
	}()

	select {
	case err := <-srvErr:
		if err != nil {
			errMsg := fmt.Errorf("mcpkit crashed with the following error: %w", err)
			cmd.logger.Error(errMsg.Error())
			return errMsg
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			cmd.logger.Error(fmt.Sprintf("error during shutdown: %v", err))
		}
	}
	return nil
}

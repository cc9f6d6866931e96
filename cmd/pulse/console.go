package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/layer97/pulse/internal/app"
	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/config"
	"github.com/layer97/pulse/internal/logx"
	"github.com/layer97/pulse/internal/projection"
)

type consoleFlags struct {
	url        string
	user       string
	logFile    string
	noMarkdown bool
	debug      bool
}

// apply layers command-line overrides on top of the loaded config.
func (f consoleFlags) apply(cfg *config.Config) {
	if v := strings.TrimSpace(f.url); v != "" {
		cfg.Client.URL = v
	}
	if v := strings.TrimSpace(f.user); v != "" {
		cfg.Client.UserID = v
	}
	if f.logFile != "" {
		cfg.UI.LogFile = f.logFile
	}
	if f.noMarkdown {
		cfg.UI.Markdown = false
	}
}

func newConsoleCmd(cfgPath *string) *cobra.Command {
	var flags consoleFlags
	cmd := &cobra.Command{
		Use:           "pulse",
		Short:         "Real-time console for the agent backend",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			flags.apply(&cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runConsole(cmd.Context(), cfg, flags.debug)
		},
	}
	cmd.Flags().StringVar(&flags.url, "url", "", "WebSocket URL of the backend")
	cmd.Flags().StringVarP(&flags.user, "user", "u", "", "user id for chat and history")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "log file while the console runs")
	cmd.Flags().BoolVar(&flags.noMarkdown, "no-markdown", false, "show replies as plain text")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "debug-level logging")
	return cmd
}

func runConsole(ctx context.Context, cfg config.Config, debug bool) error {
	logger, closer, err := logx.OpenFile(cfg.UI.LogFile, debug)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closer.Close()
	logger = logger.With("user_id", cfg.Client.UserID)

	bus := client.NewBus(logx.WithComponent(logger, "bus"))
	mgr := client.NewManager(cfg.Client.URL, client.Options{
		ReconnectDelay:    cfg.Client.ReconnectDelay,
		HeartbeatInterval: cfg.Client.HeartbeatInterval,
		WriteTimeout:      cfg.Client.WriteTimeout,
		Bus:               bus,
		Logger:            logx.WithComponent(logger, "ws"),
	})

	base := cfg.Client.HTTPBase
	if base == "" {
		base = client.DeriveHTTPBase(cfg.Client.URL)
	}

	model := app.New(app.Options{
		Conn:         mgr,
		History:      client.NewHTTPClient(base),
		Roster:       projection.NewRoster(rosterAgents(cfg.Agents)),
		UserID:       cfg.Client.UserID,
		HistoryLimit: cfg.Client.HistoryLimit,
		Markdown:     cfg.UI.Markdown,
		Logger:       logx.WithComponent(logger, "ui"),
	})
	defer model.Close()

	logger.Info("console starting", "url", cfg.Client.URL, "http_base", base)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	logger.Info("console stopped")
	return nil
}

func rosterAgents(agents []config.Agent) []projection.Agent {
	out := make([]projection.Agent, 0, len(agents))
	for _, a := range agents {
		out = append(out, projection.Agent{Key: a.Key, Name: a.Name})
	}
	return out
}

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"

	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/config"
	"github.com/layer97/pulse/internal/logx"
	"github.com/layer97/pulse/internal/mock"
	"github.com/layer97/pulse/internal/server"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string
	var maxConns int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development backend with mock agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr()
			}
			return runServe(cmd.Context(), cfg, addr, maxConns)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().IntVar(&maxConns, "max-conns", 0, "maximum WebSocket clients, 0 for no limit")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, addr string, maxConns int) error {
	logger := pslog.Ctx(ctx)

	b := server.NewBroadcaster(logx.WithComponent(logger, "broadcast"), maxConns)
	defer b.Close()

	history := mock.NewHistory(cfg.Server.HistoryCap)
	names := make(map[string]string, len(cfg.Agents))
	for _, a := range cfg.Agents {
		names[a.Key] = a.Name
	}
	responder := mock.NewResponder(mock.ResponderOptions{
		Router:       mock.NewRouter(mock.DefaultRules(), mock.DefaultAgent),
		Agents:       names,
		History:      history,
		Publisher:    b,
		ThinkDelay:   cfg.Server.ThinkDelay,
		ErrorTrigger: cfg.Server.ErrorTrigger,
	})

	state := initialState(ctx, mock.HostProber{}, logger)
	gen := mock.NewSyncGenerator(state, b, mock.HostProber{}, cfg.Server.SyncInterval, cfg.Server.HandoverInterval)
	gen.Start(ctx)

	srv := server.NewServer(ctx, server.Options{
		Broadcaster:    b,
		Chat:           responder,
		State:          state,
		History:        history,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})
	logger.Info("dev backend starting", "addr", addr, "agents", len(cfg.Agents), "sync_interval", cfg.Server.SyncInterval)
	return server.ListenAndServe(ctx, addr, srv.Handler())
}

// initialState seeds the sync state from one host probe. A failed probe
// starts from the local-machine defaults.
func initialState(ctx context.Context, prober mock.Prober, logger pslog.Logger) *mock.SyncState {
	node, location := client.NodeMacbook, mock.LocationLocalMac
	if st, err := prober.Probe(ctx); err != nil {
		logger.Warn("host probe failed", "err", err)
	} else {
		node, location = st.Node(), st.Location
		logger.Info("host probed", "hostname", st.Hostname, "location", location, "node", node)
	}
	return mock.NewSyncState(node, location, time.Now())
}

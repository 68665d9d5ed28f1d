package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lottochain/internal/app"
	"lottochain/internal/config"
	"lottochain/internal/events"
)

func newStartCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the lottery application over ABCI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return start(cmd, cfg)
		},
	}
	flags := cmd.Flags()
	flags.String("addr", "tcp://127.0.0.1:26658", "ABCI listen address")
	flags.String("transport", "socket", "ABCI transport (socket|grpc)")
	flags.String("nats-url", "", "NATS server for committed events (empty disables publishing)")
	mustBind(v, "abci.addr", flags.Lookup("addr"))
	mustBind(v, "abci.transport", flags.Lookup("transport"))
	mustBind(v, "nats.url", flags.Lookup("nats-url"))
	return cmd
}

func start(cmd *cobra.Command, cfg config.Config) error {
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	programID, err := cfg.ProgramID()
	if err != nil {
		return err
	}
	params, err := cfg.LotteryParams()
	if err != nil {
		return err
	}

	var sink events.Sink = events.NopSink{}
	if cfg.NATS.URL != "" {
		ns, err := events.NewNATSSink(cfg.NATS.URL, cfg.NATS.Token, cfg.NATS.Subject, logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		sink = ns
	}

	a, err := app.New(app.Options{
		Home:      cfg.Home,
		ProgramID: programID,
		Params:    params,
		Rent:      cfg.Rent,
		Logger:    logger,
		Sink:      sink,
	})
	if err != nil {
		_ = sink.Close()
		return fmt.Errorf("init app: %w", err)
	}
	defer func() { _ = a.Close() }()

	srv, err := server.NewServer(cfg.ABCI.Addr, cfg.ABCI.Transport, a)
	if err != nil {
		return fmt.Errorf("start abci server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("abci server start: %w", err)
	}
	defer func() { _ = srv.Stop() }()
	logger.Info("abci server listening", "addr", cfg.ABCI.Addr, "transport", cfg.ABCI.Transport, "program", programID.String())

	// Wait for signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
	return nil
}

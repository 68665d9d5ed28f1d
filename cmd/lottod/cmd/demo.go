package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lottochain/internal/app"
	"lottochain/internal/config"
	"lottochain/internal/scenario"
)

func newDemoCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Play one lottery round on a throwaway chain and replay known attacks against it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return demo(cmd, cfg)
		},
	}
}

func demo(cmd *cobra.Command, cfg config.Config) error {
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

	home, err := os.MkdirTemp("", "lottod-demo-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(home) }()

	a, err := app.New(app.Options{
		Home:      home,
		ProgramID: programID,
		Params:    params,
		Rent:      cfg.Rent,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer func() { _ = a.Close() }()

	report, err := scenario.Run(cmd.Context(), a, a.Params(), time.Now())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HEIGHT\tSTEP\tRESULT\tOK")
	for _, s := range report.Steps {
		result := "ok"
		if s.Code != 0 {
			result = fmt.Sprintf("%s/%d", s.Codespace, s.Code)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", s.Height, s.Name, result, s.Passed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "prize paid: %d lamports\n", report.Prize)
	if !report.Passed() {
		return fmt.Errorf("scenario did not behave as expected")
	}
	return nil
}

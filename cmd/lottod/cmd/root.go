package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// NewRootCmd creates the lottod root command. It is called once in main.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "lottod",
		Short:         "Lottery program chain daemon",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetOut(cmd.OutOrStdout())
			cmd.SetErr(cmd.ErrOrStderr())
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("home", ".lottod", "app home directory (state is stored in <home>/state.db)")
	flags.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	flags.String("log-format", "plain", "log format (plain|json)")
	mustBind(v, "home", flags.Lookup("home"))
	mustBind(v, "log.level", flags.Lookup("log-level"))
	mustBind(v, "log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(
		newStartCmd(v),
		newDemoCmd(v),
	)
	return rootCmd
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

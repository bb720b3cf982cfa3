package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/harukisato/tabstack/pkg/log"
)

// newRootCmd wires the subcommands and the shared configuration surface.
// Every flag is also readable from a config file (--config) and from the
// environment with the TABSTACK_ prefix; flags win over both.
func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "tabstack",
		Short:        "reproducible training, stacking and evaluation for tabular classifiers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfg, _ := cmd.Flags().GetString("config"); cfg != "" {
				v.SetConfigFile(cfg)
				if err := v.ReadInConfig(); err != nil {
					return err
				}
			}
			v.SetEnvPrefix("TABSTACK")
			v.AutomaticEnv()
			return v.BindPFlags(cmd.Flags())
		},
	}

	root.PersistentFlags().String("config", "", "config file (yaml)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().Uint64("seed", 42, "random seed for every stochastic operation")

	root.AddCommand(newTrainCmd(v))
	root.AddCommand(newPredictCmd(v))
	root.AddCommand(newEvaluateCmd(v))
	return root
}

// provider builds the logger provider from the resolved log level.
func provider(v *viper.Viper) log.LoggerProvider {
	return log.NewZerologProvider(log.ToLogLevel(v.GetString("log-level")))
}

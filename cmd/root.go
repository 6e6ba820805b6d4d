package cmd

import (
	"github.com/jsphweid/abcdex/constants"
	"github.com/jsphweid/abcdex/logger"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "abcdex",
	Short: "ABC notation to MIDI converter",
	Long: `abcdex converts ABC notation songs into standard MIDI files and
reads MIDI files back into notes on a quantized timing grid.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := constants.LoadEnv(); err != nil {
			return err
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = constants.GetLogLevel()
		}
		return logger.Init(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

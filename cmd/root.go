// Package cmd wires the taskmaster command line. Every control verb is
// its own subcommand; the daemon itself runs under "taskmaster daemon".
package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"taskmaster/pkg/config"
)

var (
	configFlag  string
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:           "taskmaster",
	Short:         "taskmaster keeps configured programs running",
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			execVersionCmd(cmd, args)
			os.Exit(0)
		}
		_ = cmd.Usage()
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	log.SetFlags(0)

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Print the version and exit")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to the taskmasterd configuration file")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		execRootPersistentPreRun()
	}
}

func execRootPersistentPreRun() {
	if _, err := config.Load(configFlag); err != nil {
		log.Fatalln("ERROR:", err)
	}
}

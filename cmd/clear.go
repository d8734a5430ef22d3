package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
)

var clearCmd = &cobra.Command{
	Use:   "clear <name ...|all>",
	Short: "Truncate the stdout and stderr logs of programs",
	Args:  cobra.MinimumNArgs(1),
	Run:   execClearCmd,
}

func init() {
	setupCommandPreRun(clearCmd, requireDaemonRunning)
	rootCmd.AddCommand(clearCmd)
}

func execClearCmd(cmd *cobra.Command, args []string) {
	resp, err := client.Clear(args...)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	renderResponse(resp)
}

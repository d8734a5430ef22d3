package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
)

var restartCmd = &cobra.Command{
	Use:   "restart <name ...|all>",
	Short: "Stop programs, then start them again",
	Args:  cobra.MinimumNArgs(1),
	Run:   execRestartCmd,
}

func init() {
	setupCommandPreRun(restartCmd, requireDaemonRunning)
	rootCmd.AddCommand(restartCmd)
}

func execRestartCmd(cmd *cobra.Command, args []string) {
	resp, err := client.Restart(args...)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	renderResponse(resp)
}

package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
)

var startCmd = &cobra.Command{
	Use:   "start <name ...|all>",
	Short: "Start programs",
	Args:  cobra.MinimumNArgs(1),
	Run:   execStartCmd,
}

func init() {
	setupCommandPreRun(startCmd, requireDaemonRunning)
	rootCmd.AddCommand(startCmd)
}

func execStartCmd(cmd *cobra.Command, args []string) {
	resp, err := client.Start(args...)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	renderResponse(resp)
}

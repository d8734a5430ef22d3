package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
)

var stopCmd = &cobra.Command{
	Use:   "stop <name ...|all>",
	Short: "Stop programs and wait until they are down",
	Args:  cobra.MinimumNArgs(1),
	Run:   execStopCmd,
}

func init() {
	setupCommandPreRun(stopCmd, requireDaemonRunning)
	rootCmd.AddCommand(stopCmd)
}

func execStopCmd(cmd *cobra.Command, args []string) {
	resp, err := client.Stop(args...)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	renderResponse(resp)
}

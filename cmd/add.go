package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
)

var addCmd = &cobra.Command{
	Use:   "add <name ...>",
	Short: "Activate programs defined on disk but not loaded",
	Args:  cobra.MinimumNArgs(1),
	Run:   execAddCmd,
}

func init() {
	setupCommandPreRun(addCmd, requireDaemonRunning)
	rootCmd.AddCommand(addCmd)
}

func execAddCmd(cmd *cobra.Command, args []string) {
	resp, err := client.Add(args...)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	renderResponse(resp)
}

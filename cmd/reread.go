package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
)

var rereadCmd = &cobra.Command{
	Use:   "reread",
	Short: "Reload the program file and show pending changes",
	Args:  cobra.NoArgs,
	Run:   execRereadCmd,
}

func init() {
	setupCommandPreRun(rereadCmd, requireDaemonRunning)
	rootCmd.AddCommand(rereadCmd)
}

func execRereadCmd(cmd *cobra.Command, args []string) {
	resp, err := client.Reread()
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	renderResponse(resp)
}

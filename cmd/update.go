package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
)

var updateCmd = &cobra.Command{
	Use:   "update <name ...|all>",
	Short: "Apply pending program file changes",
	Args:  cobra.MinimumNArgs(1),
	Run:   execUpdateCmd,
}

func init() {
	setupCommandPreRun(updateCmd, requireDaemonRunning)
	rootCmd.AddCommand(updateCmd)
}

func execUpdateCmd(cmd *cobra.Command, args []string) {
	resp, err := client.Update(args...)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	renderResponse(resp)
}

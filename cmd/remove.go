package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name ...>",
	Short: "Deactivate loaded programs, the program file is untouched",
	Args:  cobra.MinimumNArgs(1),
	Run:   execRemoveCmd,
}

func init() {
	setupCommandPreRun(removeCmd, requireDaemonRunning)
	rootCmd.AddCommand(removeCmd)
}

func execRemoveCmd(cmd *cobra.Command, args []string) {
	resp, err := client.Remove(args...)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	renderResponse(resp)
}

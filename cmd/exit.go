package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
)

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "Stop every program and shut taskmasterd down",
	Args:  cobra.NoArgs,
	Run:   execExitCmd,
}

func init() {
	setupCommandPreRun(exitCmd, requireDaemonRunning)
	rootCmd.AddCommand(exitCmd)
}

func execExitCmd(cmd *cobra.Command, args []string) {
	resp, err := client.Exit()
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	fmt.Println(resp.Message)
}

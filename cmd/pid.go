package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
)

var pidCmd = &cobra.Command{
	Use:   "pid [name ...]",
	Short: "Show the main pid of programs, 0 when down",
	Args:  cobra.ArbitraryArgs,
	Run:   execPidCmd,
}

func init() {
	setupCommandPreRun(pidCmd, requireDaemonRunning)
	rootCmd.AddCommand(pidCmd)
}

func execPidCmd(cmd *cobra.Command, args []string) {
	resp, err := client.Pid(args...)
	if err != nil {
		log.Fatalln("ERROR:", err)
	}
	if !resp.Ok() {
		fmt.Printf("ERROR %d: %s\n", resp.Code, resp.Message)
		return
	}
	for _, row := range resp.Procs {
		if row.Error != "" {
			fmt.Printf("%-24s ERROR    %s\n", row.Name, row.Error)
			continue
		}
		fmt.Printf("%-24s %d\n", row.Name, row.Pid)
	}
}

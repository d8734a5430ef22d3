package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskmaster/pkg/client"
	"taskmaster/pkg/codec"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive control session",
	Args:  cobra.NoArgs,
	Run:   execShellCmd,
}

func init() {
	setupCommandPreRun(shellCmd, requireDaemonRunning)
	rootCmd.AddCommand(shellCmd)
}

func execShellCmd(cmd *cobra.Command, args []string) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("taskmaster> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}

		req, err := codec.ParseLine(scanner.Text())
		if err != nil {
			if errors.Is(err, codec.ErrEmptyCommand) {
				continue
			}
			fmt.Println(err)
			continue
		}

		resp, err := client.Send(req)
		if err != nil {
			fmt.Println(err)
			continue
		}
		renderResponse(resp)

		if req.Type == codec.CmdExit && resp.Ok() {
			return
		}
	}
}

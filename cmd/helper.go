package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/codec"
	"taskmaster/pkg/config"
	"taskmaster/pkg/utils"
)

// setupCommandPreRun chains the root hook with a command-specific one,
// cobra only ever runs the innermost PersistentPreRun.
func setupCommandPreRun(cmd *cobra.Command, pre func()) {
	cmd.PersistentPreRun = func(c *cobra.Command, args []string) {
		rootCmd.PersistentPreRun(c, args)
		pre()
	}
}

func isDaemonRunning() bool {
	pid, err := utils.ReadPid(config.Get().PidFile)
	if err != nil || pid <= 0 {
		return false
	}
	return utils.Alive(pid)
}

func requireDaemonRunning() {
	if !isDaemonRunning() {
		log.Fatalln("ERROR: taskmasterd is not running, start it with: taskmaster daemon")
	}
}

// renderResponse prints a response the way an operator reads it: the
// per-program rows first, then any configuration diff.
func renderResponse(resp *codec.Response) {
	if !resp.Ok() {
		fmt.Printf("ERROR %d: %s\n", resp.Code, resp.Message)
		return
	}
	for _, row := range resp.Procs {
		renderRow(row)
	}
	if !resp.Diff.Empty() {
		renderDiff(resp.Diff)
	} else if len(resp.Procs) == 0 && resp.Message != "" {
		fmt.Println(resp.Message)
	}
}

func renderRow(row codec.ProcInfo) {
	switch {
	case row.Error != "":
		fmt.Printf("%-24s ERROR    %s\n", row.Name, row.Error)
	case row.State != "":
		fmt.Printf("%-24s %-8s %s\n", row.Name, row.State, row.Detail)
	default:
		fmt.Printf("%-24s %s\n", row.Name, row.Detail)
	}
}

func renderDiff(d *codec.ConfigDiff) {
	for _, name := range d.Added {
		fmt.Println("added:  ", name)
	}
	for _, name := range d.Changed {
		fmt.Println("changed:", name)
	}
	for _, name := range d.Removed {
		fmt.Println("removed:", name)
	}
}

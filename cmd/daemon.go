package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"taskmaster/pkg/config"
	"taskmaster/pkg/supervisor"
	"taskmaster/pkg/utils"
)

var daemonOpts supervisor.DaemonOptions

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run taskmasterd",
	Args:  cobra.NoArgs,
	Run:   execDaemonCmd,
}

func init() {
	daemonCmd.Flags().BoolVarP(&daemonOpts.Foreground, "foreground", "f", false, "Stay in the foreground instead of daemonizing")
	daemonCmd.Flags().StringVarP(&daemonOpts.ProgramFile, "programs", "p", "", "Path to the program definitions file")
	daemonCmd.Flags().BoolVar(&daemonOpts.Restore, "restore", true, "Bring back the process state recorded by the last run")

	daemonCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		rootCmd.PersistentPreRun(cmd, args)
		execDaemonPersistentPreRun()
	}
	rootCmd.AddCommand(daemonCmd)
}

func execDaemonPersistentPreRun() {
	if err := utils.EnsureHome(); err != nil {
		log.Fatalln("ERROR:", err)
	}
}

func execDaemonCmd(cmd *cobra.Command, args []string) {
	if isDaemonRunning() {
		fmt.Println("taskmasterd is already running.")
		return
	}

	cfg := config.Get()
	if daemonOpts.ProgramFile == "" {
		daemonOpts.ProgramFile = cfg.Programs
	}
	if !cfg.Daemonize {
		daemonOpts.Foreground = true
	}

	if err := supervisor.Daemon(cfg, daemonOpts); err != nil {
		log.Fatalln("ERROR:", err)
	}
}

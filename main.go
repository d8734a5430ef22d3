package main

import "taskmaster/cmd"

func main() {
	cmd.Execute()
}

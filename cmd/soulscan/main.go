package main

import (
	"os"

	"soul-scanner/cmd/soulscan/commands"
)

// main 是 soulscan 命令行的入口。
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"github.com/ahmednasr/sprint-ai/internal/cli"
)

// main delegates to the cobra root command.
func main() {
	cli.Execute()
}

package main

import (
	"os"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-cycles/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}

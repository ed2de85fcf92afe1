package main

import (
	"os"

	"github.com/mumoshu/prsync/cmd"
)

func main() {
	if err := cmd.Main(); err != nil {
		os.Exit(1)
	}
}

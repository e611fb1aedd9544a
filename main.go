package main

import (
	"os"

	"github.com/Geergon/fedstat-userbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/ajujo/teaching-system/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

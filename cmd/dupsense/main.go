package main

import (
	"os"

	"github.com/vitruves/dupsense/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		cmd.Logger().Error("%v", err)
		os.Exit(1)
	}
}

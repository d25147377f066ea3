package main

import (
	"fmt"
	"os"

	"github.com/vytor/realorai/internal/cli"
	"github.com/vytor/realorai/internal/logger"
)

func main() {
	logger.SetDefault(logger.New(
		logger.WithLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL"))),
		logger.WithOutput(os.Stderr),
	))

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

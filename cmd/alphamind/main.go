package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/rcliao/alphamind/internal/cli"
)

func main() {
	// A missing .env is normal; a malformed one is worth a warning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

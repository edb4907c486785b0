package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/vellum-labs/vellum/internal/adapters/driving/cli"
)

func main() {
	// Provider keys and deployment overrides may live in a local .env.
	// A missing file is the normal case outside development.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/juristec/legisrag/internal/adapters/driving/cli"
)

// version is stamped via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()

	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}

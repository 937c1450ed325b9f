// Package main is the entrypoint for the d1bridge CLI.
// The CLI talks to a running gateway for queries and table operations and
// keeps connection profiles in a local state store.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/canonica-labs/d1bridge/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cli.SetVersionInfo(version, commit, date)
	os.Exit(cli.New().Execute())
}

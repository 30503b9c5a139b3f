/*
main.go - Application entry point

PURPOSE:
  The payroll CLI. Serves the HTTP API, runs one-off refreshes and loads demo
  scenarios against the configured SQLite database.

COMMANDS:
  serve     HTTP server with graceful shutdown (serve.go)
  refresh   Recompute the basis for one org and period (refresh.go)
  seed      Reset the database and load a demo scenario (seed.go)

CONFIGURATION (root.go):
  1. .env / .env.local (joho/godotenv), if present
  2. --config YAML file (default: config.yaml if present)
  3. PAYROLL_* environment variables
  4. Command flags

EXAMPLES:
  # Run the API on the default port
  ./payroll serve

  # Run with an in-memory database and the demo data
  PAYROLL_DB_PATH=":memory:" ./payroll serve --seed standard-month

  # Refresh March for one org
  ./payroll refresh --org acme --start 2025-03-01 --end 2025-03-31

TIMEZONES:
  tzdata is embedded so IANA zones resolve on hosts without /usr/share/zoneinfo.

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration loading
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"os"

	_ "time/tzdata"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// The splitbus command runs shared-bus workloads with optional monitoring,
// performance analysis, and trace recording.
package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// A .env file can provide defaults for the flags. Missing files are
	// fine.
	_ = godotenv.Load()

	Execute()
}

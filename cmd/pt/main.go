package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// Hook environments ship overrides (CLAUDE_AGENT_NAME, AUDIT_LOG_PATH)
	// in a .env next to the project; absence is fine.
	_ = godotenv.Load()

	Execute()
}

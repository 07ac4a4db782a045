// Package testing prepares the environment of PeopleDesk test binaries.
// Import it for side effects, or call PostgresDSN from integration tests.
package testing

import (
	"os"
	stdtesting "testing"
)

// PostgresDSNEnv names the database used by integration tests.
const PostgresDSNEnv = "PEOPLEDESK_TEST_PG_DSN"

func init() {
	_ = os.Setenv("PEOPLEDESK_TEST_MODE", "1")
	if os.Getenv("DEFAULT_LANGUAGE") == "" {
		_ = os.Setenv("DEFAULT_LANGUAGE", "en")
	}
}

// PostgresDSN returns the integration database DSN or skips t when unset.
func PostgresDSN(t stdtesting.TB) string {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	return dsn
}

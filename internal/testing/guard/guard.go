// Package guard switches binaries into test mode when imported by a test,
// so calling main never dials Postgres or Redis.
package guard

import "os"

// Env is the variable read by app.InTestMode.
const Env = "MEDCONNECT_TEST_MODE"

func init() {
	if os.Getenv(Env) == "" {
		_ = os.Setenv(Env, "1")
	}
}

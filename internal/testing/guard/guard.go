// Package guard is blank-imported by tests that touch the binaries' wiring so
// nothing dials Postgres, Redis or Alegra.
package guard

import "os"

func init() {
	if _, set := os.LookupEnv("BACKOFFICE_TEST_MODE"); !set {
		_ = os.Setenv("BACKOFFICE_TEST_MODE", "true")
	}
}

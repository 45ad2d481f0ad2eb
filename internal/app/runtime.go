package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv makes both binaries exit before opening any connection.
const TestModeEnv = "BACKOFFICE_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether TestModeEnv is set to a true value. The first answer is cached.
func InTestMode() bool {
	if on := testMode.Load(); on != nil {
		return *on
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads TestModeEnv after environment changes.
func RefreshTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(&on)
	return on
}

package app

import (
	"os"
	"strconv"
)

// TestModeEnv makes binaries return before dialing MongoDB, Redis or Firebase.
const TestModeEnv = "NEIGHBORA_TEST_MODE"

// InTestMode reports whether TestModeEnv holds a true value.
func InTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	return on
}

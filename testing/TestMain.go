// Package testing pins the environment of package tests that import it for
// side effects: test mode on, record-backed admin source, and no Firebase
// credentials, so nothing reaches a real project.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

var pinned = map[string]string{
	"NEIGHBORA_TEST_MODE":           "1",
	"AUTH_ADMIN_SOURCE":             "record",
	"AUTH_INSECURE_DEV_TOKENS":      "false",
	"FIREBASE_SERVICE_ACCOUNT_KEY":  "",
	"FIREBASE_SERVICE_ACCOUNT_PATH": "",
	"SENDGRID_API_KEY":              "",
}

func pinEnvironment() {
	once.Do(func() {
		for k, v := range pinned {
			_ = os.Setenv(k, v)
		}
		if os.Getenv("MONGODB_DATABASE") == "" {
			_ = os.Setenv("MONGODB_DATABASE", "neighbora_test")
		}
	})
}

func init() {
	pinEnvironment()
}

func TestMain(m *stdtesting.M) {
	pinEnvironment()
	os.Exit(m.Run())
}

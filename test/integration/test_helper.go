package integration

import (
	"os"
	"testing"
	"time"
)

// BaseURL is the address of the API server under test
var BaseURL = "http://localhost:8080"

func TestMain(m *testing.M) {
	if url := os.Getenv("TEST_BASE_URL"); url != "" {
		BaseURL = url
	}

	// Wait for the service to come up
	time.Sleep(5 * time.Second)

	code := m.Run()

	cleanup()

	os.Exit(code)
}

func cleanup() {
	// Test records are created with recognizable names; add deletion here
	// if the test database is shared.
}

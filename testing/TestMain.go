package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("MADRASA_TEST_MODE", "1")
		if os.Getenv("RBAC_SOURCE") == "" {
			_ = os.Setenv("RBAC_SOURCE", "seed")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain forces test mode for packages that delegate to it.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}

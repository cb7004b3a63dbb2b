package sim

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/banshee-data/lift-controller/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	goleak.VerifyTestMain(m)
}

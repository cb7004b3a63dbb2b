package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("floor %d", 3)
	if got != "floor 3" {
		t.Errorf("logged %q, want %q", got, "floor 3")
	}

	// nil installs a no-op
	SetLogger(nil)
	Logf("ignored")
	if got != "floor 3" {
		t.Errorf("no-op logger wrote %q", got)
	}
}

package version

import "testing"

func TestString(t *testing.T) {
	oldVersion, oldSHA, oldTime := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = oldVersion, oldSHA, oldTime }()

	Version = "v0.3.0"
	GitSHA = "0123456789abcdef0123"
	BuildTime = "2026-10-19T12:00:00Z"

	want := "liftctl v0.3.0 (0123456789ab, built 2026-10-19T12:00:00Z)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	GitSHA = "abc"
	if got := String(); got != "liftctl v0.3.0 (abc, built 2026-10-19T12:00:00Z)" {
		t.Errorf("short sha: got %q", got)
	}
}

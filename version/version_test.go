package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version == "" {
		t.Error("version must never be empty")
	}
}

func TestString(t *testing.T) {
	s := String()
	if s == "" {
		t.Fatal("expected non-empty version string")
	}
	if !strings.HasPrefix(s, Version) {
		t.Errorf("expected prefix %q, got %q", Version, s)
	}
}

func TestString_IncludesCommitWhenSet(t *testing.T) {
	origCommit := GitCommit
	defer func() { GitCommit = origCommit }()

	GitCommit = "abc1234"
	if got := String(); got != Version+"-abc1234" {
		t.Errorf("unexpected version string: %q", got)
	}
}

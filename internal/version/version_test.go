package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func override(t *testing.T, version, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	t.Cleanup(func() {
		Version, Commit, BuildDate = origVersion, origCommit, origDate
	})
	Version, Commit, BuildDate = version, commit, date
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{"unknown commit", "1.0.0", "unknown", "1.0.0"},
		{"short commit", "1.0.0", "abc", "1.0.0"},
		{"exactly 7 char commit", "2.0.0", "1234567", "2.0.0"},
		{"full commit hash", "1.0.0", "abc1234567890", "1.0.0 (abc1234)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			override(t, tt.version, tt.commit, "unknown")
			assert.Equal(t, tt.want, Info())
		})
	}
}

func TestFull(t *testing.T) {
	override(t, "1.2.3", "abcdef123456", "2026-01-15")

	got := Full()
	assert.Contains(t, got, "codefacts version 1.2.3")
	assert.Contains(t, got, "Commit: abcdef123456")
	assert.Contains(t, got, "Built: 2026-01-15")
}

func TestDefaultVersionIsSemver(t *testing.T) {
	assert.GreaterOrEqual(t, len(strings.Split(Version, ".")), 2)
}

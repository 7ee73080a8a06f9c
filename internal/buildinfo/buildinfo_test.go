package buildinfo

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

//nolint:paralleltest // mutates package variables
func TestCurrent(t *testing.T) {
	oldVersion, oldDate := Version, BuildDate
	t.Cleanup(func() { Version, BuildDate = oldVersion, oldDate })

	Version, BuildDate = "v1.2.3", "2024-03-01T08:00:00Z"
	info := Current()
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "2024-03-01T08:00:00Z", info.BuildDate)
	assert.Equal(t, runtime.Version(), info.GoVersion)

	Version, BuildDate = "", ""
	info = Current()
	assert.NotEmpty(t, info.Version, "falls back to the module version or unknown")
	assert.NotEmpty(t, info.BuildDate)
}

func TestInfoString(t *testing.T) {
	t.Parallel()

	s := Info{Version: "v1.0.0", BuildDate: "today", Commit: "abc", GoVersion: "go1.26"}.String()
	assert.Equal(t, "contractwatch v1.0.0 (abc) built today with go1.26", s)

	s = Info{Version: "v1.0.0", BuildDate: "today", GoVersion: "go1.26"}.String()
	assert.False(t, strings.Contains(s, "("))
}

func TestShortCommit(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0123456789ab", shortCommit("0123456789abcdef"))
	assert.Equal(t, "abc", shortCommit("abc"))
}

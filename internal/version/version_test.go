package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_Short(t *testing.T) {
	assert.Equal(t, "v1.2.0-3f2c1ab", Info{Version: "v1.2.0", GitCommit: "3f2c1ab9d0e"}.Short())
	assert.Equal(t, "v1.2.0", Info{Version: "v1.2.0", GitCommit: "3f2c"}.Short())
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v1.2.0", BuildDate: "2026-01-02", GoVersion: "go1.25.0", Platform: "linux/amd64"}
	assert.Equal(t, "deployer v1.2.0 built 2026-01-02 (go1.25.0, linux/amd64)", info.String())
}

func TestGet_UsesLinkerVersion(t *testing.T) {
	previous := Version
	t.Cleanup(func() { Version = previous })

	Version = "v9.9.9"
	assert.Equal(t, "v9.9.9", Get().Version)
}

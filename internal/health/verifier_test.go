package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowbaker/deployer/internal/remote"
	"github.com/flowbaker/deployer/internal/remote/remotetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		wantHealthy bool
		wantCode    int
		wantStatus  string
		wantErr     bool
	}{
		{name: "json ok", output: "{\"status\":\"ok\"}\n200", wantHealthy: true, wantCode: 200, wantStatus: "ok"},
		{name: "json not ok", output: "{\"status\":\"error\"}\n200", wantCode: 200, wantStatus: "error"},
		{name: "plain body", output: "OK\n200\n", wantHealthy: true, wantCode: 200},
		{name: "empty body", output: "\n200", wantHealthy: true, wantCode: 200},
		{name: "code only", output: "200", wantHealthy: true, wantCode: 200},
		{name: "server error", output: "{\"status\":\"ok\"}\n503", wantCode: 503, wantStatus: "ok"},
		{name: "garbage", output: "connection refused", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse([]byte(tt.output))

			assert.Equal(t, tt.wantHealthy, result.Healthy)
			assert.Equal(t, tt.wantCode, result.StatusCode)
			assert.Equal(t, tt.wantStatus, result.Status)
			if tt.wantErr {
				assert.Error(t, result.Err)
			} else {
				assert.NoError(t, result.Err)
			}
		})
	}
}

func TestVerifier_Check(t *testing.T) {
	var waited time.Duration

	verifier := NewVerifier("", 10*time.Second)
	verifier.Sleep = func(_ context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	session := remotetest.NewSession().Reply("curl -s", "{\"status\":\"ok\"}\n200", 0)

	result := verifier.Check(context.Background(), session)
	require.NoError(t, result.Err)
	assert.True(t, result.Healthy)
	assert.Equal(t, 10*time.Second, waited)
	assert.Equal(t, 1, session.Count("curl"))
	assert.True(t, session.Ran(DefaultURL))
	assert.Equal(t, "healthy (HTTP 200)", result.String())
}

func TestVerifier_CheckUnreachable(t *testing.T) {
	verifier := NewVerifier("http://127.0.0.1:5678/healthz", 0)

	session := remotetest.NewSession().Reply("curl", "\n000", 7)

	result := verifier.Check(context.Background(), session)
	assert.False(t, result.Healthy)
	_, isCommandErr := remote.IsCommandError(result.Err)
	assert.True(t, isCommandErr)
	assert.Contains(t, result.String(), "unreachable")
}

func TestVerifier_CheckCancelledDuringGrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := remotetest.NewSession()
	result := NewVerifier("", time.Minute).Check(ctx, session)

	assert.True(t, errors.Is(result.Err, context.Canceled))
	assert.Empty(t, session.Commands)
}

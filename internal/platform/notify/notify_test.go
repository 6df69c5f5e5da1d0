package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andreypavlenko/caesub/internal/config"
)

func TestNewReturnsNilWhenUnconfigured(t *testing.T) {
	require.Nil(t, New(config.ResendConfig{}))
	require.Nil(t, New(config.ResendConfig{APIKey: "key-only"}))
}

func TestNilClientJobFinishedIsNoop(t *testing.T) {
	var c *Client
	err := c.JobFinished(context.Background(), "job-1", "plan-1", "succeeded", 1, 0, 0)
	require.NoError(t, err)
}

package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startContainer runs image and returns "<scheme>://host:port" for the exposed port
func startContainer(t *testing.T, req testcontainers.ContainerRequest, scheme string) string {
	t.Helper()
	ctx := context.Background()

	req.Labels = map[string]string{
		"test":      "economy-infrastructure",
		"test-name": t.Name(),
		"cleanup":   "auto",
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Warning: Failed to terminate test container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, scheme)
	require.NoError(t, err)
	return endpoint
}

func startRedis(t *testing.T) string {
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}, "redis")
}

func startNATS(t *testing.T) string {
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		ExposedPorts: []string{"4222/tcp"},
		Cmd:          []string{"-js"},
		WaitingFor:   wait.ForLog("Server is ready"),
	}, "nats")
}

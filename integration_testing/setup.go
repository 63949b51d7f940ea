package integrationtesting

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresUser     = "backtester"
	postgresPassword = "backtester"
	postgresDb       = "backtester"
)

// LogConsumer prints container logs
type LogConsumer struct{}

func (c *LogConsumer) Accept(l testcontainers.Log) {
	fmt.Print(string(l.Content))
}

func skipUnlessIntegration(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("set RUN_INTEGRATION_TESTS=true to run against a postgres container")
	}
}

// setupPostgres starts a throwaway postgres and returns its connection url.
func setupPostgres(t *testing.T, ctx context.Context) string {
	postgresReq := testcontainers.ContainerRequest{
		Image: "postgres:13",
		Tmpfs: map[string]string{
			"/var/lib/postgresql/data": "rw",
		},
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDb,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForExposedPort(),
			wait.ForListeningPort("5432/tcp").WithStartupTimeout(30*time.Second),
		),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: postgresReq,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, postgresContainer)

	postgresStarted := false
	defer func() {
		if postgresContainer == nil || postgresStarted || !t.Failed() {
			return
		}

		// Capture and print the Docker logs before terminating the container
		logs, err := postgresContainer.Logs(ctx)
		if err != nil {
			return
		}

		bytes, err := io.ReadAll(logs)
		if err != nil {
			return
		}

		fmt.Println("Postgres logs:")
		fmt.Println(string(bytes))
	}()

	require.NoError(t, err)

	host, err := postgresContainer.Host(ctx)
	require.NoError(t, err)

	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	postgresStarted = true

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC", host, postgresUser, postgresPassword, postgresDb, port.Port())
}

//go:build integration

package mongo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"fintrack/internal/store"
	"fintrack/internal/store/storetest"
)

var (
	mongoOnce sync.Once
	mongoURI  string
	mongoErr  error
)

// startMongo runs a single-node replica set shared by the test run; transactions
// are not available on a standalone server.
func startMongo(t *testing.T) string {
	t.Helper()

	mongoOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			Cmd:          []string{"mongod", "--replSet", "rs0", "--bind_ip_all"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("27017/tcp"),
				wait.ForLog("Waiting for connections"),
			).WithDeadline(90 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			mongoErr = fmt.Errorf("start MongoDB container: %w", err)
			return
		}

		code, _, err := container.Exec(ctx, []string{"mongosh", "--quiet", "--eval",
			`rs.initiate({_id: "rs0", members: [{_id: 0, host: "localhost:27017"}]})`})
		if err != nil || code != 0 {
			container.Terminate(ctx)
			mongoErr = fmt.Errorf("initiate replica set: exit %d: %v", code, err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			mongoErr = fmt.Errorf("get MongoDB host: %w", err)
			return
		}
		port, err := container.MappedPort(ctx, "27017/tcp")
		if err != nil {
			container.Terminate(ctx)
			mongoErr = fmt.Errorf("get MongoDB port: %w", err)
			return
		}

		mongoURI = fmt.Sprintf("mongodb://%s:%s/?directConnection=true", host, port.Port())
	})

	if mongoErr != nil {
		t.Fatalf("MongoDB container failed: %v", mongoErr)
	}
	return mongoURI
}

func TestStore(t *testing.T) {
	uri := startMongo(t)
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// A fresh database per subtest keeps the checks independent
		var (
			s   *Store
			err error
		)
		deadline := time.Now().Add(20 * time.Second)
		for {
			s, err = Open(ctx, uri, "fintrack_"+uuid.NewString()[:8])
			if err == nil || time.Now().After(deadline) {
				break
			}
			// The primary takes a moment to be elected after rs.initiate
			time.Sleep(500 * time.Millisecond)
		}
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		return s
	})
}

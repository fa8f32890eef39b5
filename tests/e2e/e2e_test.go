// Package e2e provides end-to-end tests for the deckhand agent.
//
// These tests require a running Docker daemon and will create/destroy
// real containers. Run with:
//
//	go test -v -timeout 10m ./tests/e2e/...
package e2e

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deckhand-ci/deckhand/internal/shell/api"
	"github.com/deckhand-ci/deckhand/internal/shell/docker"
	"github.com/deckhand-ci/deckhand/internal/shell/store"
)

// =============================================================================
// Test Globals
// =============================================================================

var (
	testStore  store.Store
	testEngine docker.Engine
	testClient *http.Client
	baseURL    string
	testServer *http.Server
	testTmpDir string
)

// testContainers are every container name the suite may create. Cleanup
// removes them all so a crashed run does not poison the next one.
var testContainers = []string{
	"deckhand-e2e-nginx",
	"deckhand-e2e-exit",
}

// =============================================================================
// TestMain Setup
// =============================================================================

func TestMain(m *testing.M) {
	// Setup
	code := setup()
	if code != 0 {
		os.Exit(code)
	}

	// Run tests
	result := m.Run()

	// Teardown
	teardown()

	os.Exit(result)
}

func setup() int {
	log.Println("E2E Setup: Initializing test environment...")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// 1. Create temp database
	tmpDir, err := os.MkdirTemp("", "deckhand_e2e_")
	if err != nil {
		log.Printf("Failed to create temp dir: %v", err)
		return 1
	}
	testTmpDir = tmpDir
	tmpDB := filepath.Join(tmpDir, "test.db")
	log.Printf("E2E Setup: Using database: %s", tmpDB)

	// 2. Create SQLite store
	s, err := store.NewSQLiteStore(tmpDB)
	if err != nil {
		log.Printf("Failed to create store: %v", err)
		return 1
	}
	testStore = s
	log.Println("E2E Setup: SQLite store initialized")

	// 3. Create container engine
	engine, err := docker.NewEngine(docker.EngineConfig{}, logger)
	if err != nil {
		log.Printf("Failed to create engine: %v", err)
		return 1
	}
	testEngine = engine
	log.Println("E2E Setup: engine created")

	// 4. Verify engine connection
	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := engine.Ping(pingCtx); err != nil {
		log.Printf("Failed to ping engine: %v", err)
		log.Println("Make sure the Docker daemon is running")
		return 1
	}
	log.Println("E2E Setup: Docker daemon is reachable")

	// 5. Cleanup any leftover test containers
	log.Println("E2E Setup: Cleaning up any leftover test containers...")
	cleanupTestContainers(context.Background())

	// 6. Create HTTP handler
	deployer := docker.NewDeployer(engine, docker.DeployerConfig{
		PollInterval: time.Second,
		MaxAttempts:  30,
	}, logger)
	handler := api.NewHandler(deployer, engine, testStore, "", logger)
	log.Println("E2E Setup: HTTP handler created")

	// 7. Find an available port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Printf("Failed to find available port: %v", err)
		return 1
	}
	port := listener.Addr().(*net.TCPAddr).Port
	baseURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	log.Printf("E2E Setup: Server will listen on port %d", port)

	// 8. Create HTTP server
	testServer = &http.Server{
		Handler: handler.Routes(),
	}

	// 9. Start server in goroutine
	go func() {
		if err := testServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()
	log.Println("E2E Setup: HTTP server started")

	// 10. Create HTTP client
	testClient = &http.Client{
		Timeout: 120 * time.Second,
	}

	// 11. Wait for server to be ready
	if err := waitForReady(baseURL+"/healthz", 10*time.Second); err != nil {
		log.Printf("Server failed to become ready: %v", err)
		return 1
	}
	log.Println("E2E Setup: Server is ready")

	log.Println("E2E Setup: Complete!")
	return 0
}

func teardown() {
	log.Println("E2E Teardown: Cleaning up...")

	// 1. Shutdown HTTP server
	if testServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		testServer.Shutdown(ctx)
		log.Println("E2E Teardown: HTTP server stopped")
	}

	// 2. Cleanup test containers
	if testEngine != nil {
		cleanupTestContainers(context.Background())
		testEngine.Close()
		log.Println("E2E Teardown: engine closed")
	}

	// 3. Close database
	if testStore != nil {
		testStore.Close()
		log.Println("E2E Teardown: database closed")
	}

	if testTmpDir != "" {
		os.RemoveAll(testTmpDir)
	}

	log.Println("E2E Teardown: Complete!")
}

// cleanupTestContainers force-removes every container the suite creates.
// Containers that do not exist are fine.
func cleanupTestContainers(ctx context.Context) {
	for _, name := range testContainers {
		if err := testEngine.RemoveContainer(ctx, name); err != nil {
			continue
		}
		log.Printf("E2E Cleanup: removed container %s", name)
	}
}

// waitForReady polls the health endpoint until it responds.
func waitForReady(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

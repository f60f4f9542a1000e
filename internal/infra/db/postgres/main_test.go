//go:build integration

package postgres

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

const testDimension = 3

var (
	testPool *pgxpool.Pool
	testRepo *ChunkRepo
	testJobs *AnalysisJobRepo
)

// TestMain uses DATABASE_URL when set; otherwise it starts a throwaway
// pgvector container.
func TestMain(m *testing.M) {
	ctx := context.Background()
	connStr := os.Getenv("DATABASE_URL")
	containerID := ""

	if connStr == "" {
		dbName, dbUser, dbPassword, dbPort := "test-db", "user", "password", "5432"
		cmd := exec.Command("docker", "run", "-d", "--rm",
			"--network", "host",
			"-e", fmt.Sprintf("POSTGRES_DB=%s", dbName),
			"-e", fmt.Sprintf("POSTGRES_USER=%s", dbUser),
			"-e", fmt.Sprintf("POSTGRES_PASSWORD=%s", dbPassword),
			"pgvector/pgvector:pg16",
		)
		var out bytes.Buffer
		cmd.Stdout = &out
		if err := cmd.Run(); err != nil {
			log.Fatalf("could not start postgres container: %v. Is Docker running?", err)
		}
		containerID = strings.TrimSpace(out.String())[:12]
		connStr = fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", dbUser, dbPassword, dbPort, dbName)
	}

	var err error
	const maxRetries = 15
	for i := 0; i < maxRetries; i++ {
		testPool, err = Connect(ctx, connStr)
		if err == nil {
			break
		}
		log.Printf("Waiting for database to be ready... (attempt %d/%d)", i+1, maxRetries)
		time.Sleep(2 * time.Second)
	}
	stop := func() {
		if containerID != "" {
			_ = exec.Command("docker", "stop", containerID).Run()
		}
	}
	if err != nil {
		stop()
		log.Fatalf("Unable to connect to test database after multiple retries: %v\n", err)
	}

	testRepo = NewChunkRepo(testPool, testDimension)
	testJobs = NewAnalysisJobRepo(testPool)
	for _, ensure := range []func(context.Context) error{testRepo.EnsureSchema, testJobs.EnsureSchema} {
		if err := ensure(ctx); err != nil {
			stop()
			log.Fatalf("could not apply schema: %s", err)
		}
	}

	exitCode := m.Run()

	testPool.Close()
	stop()
	os.Exit(exitCode)
}

func cleanup(t *testing.T) {
	t.Helper()
	if _, err := testPool.Exec(context.Background(), `TRUNCATE contract_chunks, analysis_jobs`); err != nil {
		t.Fatalf("Failed to clean up database: %v", err)
	}
}

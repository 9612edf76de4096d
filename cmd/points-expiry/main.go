// points-expiry runs one loyalty points expiry sweep and exits. Intended
// for cron/scheduler setups that prefer a one-shot job over the resident
// worker in the server process.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... REDIS_ADDRESS=... go run ./cmd/points-expiry
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/storefront_backend/config"
	"bitbucket.org/mmdatafocus/storefront_backend/workflow"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	config.ConnectRedisWithRetry()

	worker := workflow.NewPointsExpiryWorker(config.GetLogger())
	worker.RunOnce(ctx)
	fmt.Println("points expiry sweep finished")
}

// Package instance identifies which worker replica is running, so cron lock
// owners and log lines can be traced back to a pod.
package instance

import "github.com/marcaromas/marcaromas-backend/pkg/env"

const defaultID = "worker-0"

// GetID returns the replica identifier from WORKER_ID, defaulting for local
// single-instance runs.
func GetID() string {
	return env.Get("WORKER_ID", defaultID)
}

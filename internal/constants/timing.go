package constants

import "time"

// RequeueStandard bounds the requeue delay while an instance is in Maintenance.
const RequeueStandard = 1 * time.Minute

// Pebble client timeouts.
const (
	PebbleReplanTimeout = 30 * time.Second
)

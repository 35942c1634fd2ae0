package main

import "time"

// Probe names, also used as check identifiers in reports.
const (
	checkConnectivity = "connectivity"
	checkIntegrity    = "integrity"
	checkSchema       = "schema"
	checkSettings     = "settings"
)

type HealthCheckReport struct {
	Passed    bool
	ChecksRun int
	Failures  []CheckFailure
	Duration  time.Duration
}

type CheckFailure struct {
	CheckName    string
	ErrorMessage string
	Critical     bool
}

// HealthCheckerImpl runs the post-update readiness probes against the
// persistent store. ExpectedSchemaVersion is the migration version this
// binary was built against.
type HealthCheckerImpl struct {
	store                 StoreHandle
	expectedSchemaVersion int
	globalBudget          time.Duration
}

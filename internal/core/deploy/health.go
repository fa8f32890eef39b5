package deploy

// =============================================================================
// Health Poll Decisions
// =============================================================================

// Poll defaults. The deployer lets callers override both for tests and for
// slow-starting workloads.
const (
	DefaultPollIntervalSeconds = 2
	DefaultMaxPollAttempts     = 30
)

// PollDecision is the verdict for one observed container status during the
// startup confirmation loop.
type PollDecision int

const (
	// PollContinue means the status is not terminal yet; poll again until
	// the attempt budget runs out.
	PollContinue PollDecision = iota

	// PollSucceeded means the container is running.
	PollSucceeded

	// PollFailed means the container exited and will not recover on its
	// own within this deploy.
	PollFailed
)

// EvaluateStatus classifies a container status string as reported by the
// engine. Only "running" succeeds and only "exited" fails; every other
// status (created, restarting, paused, dead, unknown, or an empty string
// from a failed inspect) keeps the poll going so a slow or flapping start
// still gets its full attempt budget.
func EvaluateStatus(status string) PollDecision {
	switch status {
	case "running":
		return PollSucceeded
	case "exited":
		return PollFailed
	default:
		return PollContinue
	}
}

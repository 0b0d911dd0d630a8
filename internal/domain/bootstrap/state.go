package bootstrap

import "time"

// Actor identifies who performed a setup run.
type Actor struct {
	// Hostname is the machine name where the run was performed.
	Hostname string `json:"hostname"`
	// Username is the system user who triggered the run.
	Username string `json:"username"`
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// StepStatus describes the outcome of a single setup step.
type StepStatus string

const (
	// StepOK means the step completed successfully.
	StepOK StepStatus = "ok"
	// StepFailed means the step reported an error; later steps never ran.
	StepFailed StepStatus = "failed"
	// StepSkipped means the step was skipped on request.
	StepSkipped StepStatus = "skipped"
)

// StepResult records the outcome of one setup step.
type StepResult struct {
	// Name identifies the step.
	Name string `json:"name"`
	// Status is the step outcome.
	Status StepStatus `json:"status"`
	// Error holds the failure message when Status is StepFailed.
	Error string `json:"error,omitempty"`
	// Duration is how long the step ran.
	Duration time.Duration `json:"duration"`
}

// State records a single setup run.
type State struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`
	// Timestamp is when the run started.
	Timestamp time.Time `json:"timestamp"`
	// Actor is who performed the run.
	Actor *Actor `json:"actor,omitempty"`
	// Release is the model release the run was fetching, when known.
	Release string `json:"release,omitempty"`
	// Steps are the per-step outcomes in execution order.
	Steps []StepResult `json:"steps"`
}

// Clone returns a copy of the state to avoid leaking internal references.
func (s *State) Clone() *State {
	steps := make([]StepResult, len(s.Steps))
	copy(steps, s.Steps)

	return &State{
		RunID:     s.RunID,
		Timestamp: s.Timestamp,
		Actor:     s.Actor.Clone(),
		Release:   s.Release,
		Steps:     steps,
	}
}

// RecordStep appends a step outcome to the run.
func (s *State) RecordStep(result StepResult) {
	s.Steps = append(s.Steps, result)
}

// Succeeded reports whether every recorded step completed without failure.
// Skipped steps do not count as failures. A run with no recorded steps has
// not succeeded.
func (s *State) Succeeded() bool {
	if len(s.Steps) == 0 {
		return false
	}

	for _, step := range s.Steps {
		if step.Status == StepFailed {
			return false
		}
	}

	return true
}

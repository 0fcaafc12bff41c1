package model

import "strings"

// Status strings published to observers.
const (
	// StatusLoading is published until a fetch succeeds, and after any failed fetch.
	StatusLoading = "Loading"
	// StatusInProgress is the normalized form of a run with status "in_progress"
	// and no conclusion yet.
	StatusInProgress = "in progress"

	completedMarker = "completed"
	successMarker   = "success"
)

// RunStatus is the status/conclusion pair of a single workflow run as reported
// by the Actions API. Conclusion is empty while the run is not completed.
type RunStatus struct {
	ID         int64
	Status     string // queued, in_progress, completed, waiting, requested, pending.
	Conclusion string // success, failure, neutral, cancelled, skipped, timed_out, action_required.
}

// String returns the normalized "<status> <conclusion>" form.
func (r RunStatus) String() string {
	return NormalizeStatus(r.Status, r.Conclusion)
}

// NormalizeStatus joins status and conclusion into the single human-readable
// string observers see: lowercased, every "null" removed, underscores turned
// into spaces, surrounding whitespace trimmed.
//
// "in_progress" + "" yields "in progress"; "completed" + "success" yields
// "completed success".
func NormalizeStatus(status, conclusion string) string {
	s := strings.ToLower(status + " " + conclusion)
	s = strings.ReplaceAll(s, "null", "")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.TrimSpace(s)
}

// Transition is the (previous, current) pair observed by one poll cycle. It
// is derived on every cycle and never stored.
type Transition struct {
	Previous string
	Current  string
}

// Completed reports whether the run went from exactly "in progress" to a
// status containing "completed". "Loading" never matches either side.
func (t Transition) Completed() bool {
	return t.Previous == StatusInProgress && strings.Contains(t.Current, completedMarker)
}

// Success reports whether the current status carries a success conclusion.
func (t Transition) Success() bool {
	return strings.Contains(t.Current, successMarker)
}

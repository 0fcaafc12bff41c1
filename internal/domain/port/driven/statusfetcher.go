package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/actionwatch/internal/domain/model"
)

// ErrNoRuns is returned by StatusFetcher when the repository has no workflow runs.
var ErrNoRuns = errors.New("no workflow runs")

// StatusFetcher defines the driven port for reading the most recent workflow
// run of the repository named by settings. Implementations authorize with
// settings.Token only when it is non-empty.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, settings model.Settings) (model.RunStatus, error)
}

package migration

import (
	"fmt"
	"strings"
	"time"

	"github.com/deliverykit/calsync/internal/api/models"
)

type Created struct {
	CustomerID     string
	SubscriptionID string
}

type Failure struct {
	CustomerID string
	Stage      models.MigrationStage
	Err        error
}

func (f Failure) Error() string {
	return fmt.Sprintf("customer %s failed at %s: %s", f.CustomerID, f.Stage, f.Err)
}

// Report lists what happened to every exported calendar in one run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Exported int
	Created  []Created
	Skipped  []string
	Failures []Failure
}

func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: exported %d, created %d, skipped %d, failed %d in %s",
		r.RunID, r.Exported, len(r.Created), len(r.Skipped), len(r.Failures),
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\n  %s", f.Error())
	}
	return b.String()
}

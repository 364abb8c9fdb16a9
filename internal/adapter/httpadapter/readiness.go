package httpadapter

import (
	"context"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// Readiness is ready when every check is. The first failure is returned.
type Readiness []sharedobs.ReadinessChecker

// CheckReadiness runs the checks in order.
func (r Readiness) CheckReadiness(ctx context.Context) error {
	for _, check := range r {
		if err := check.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

package ports

import (
	"context"

	"abtest/domain/experiment"
)

// ObservationSource loads the daily two-arm table. Implementations detect
// data-shape problems (missing columns, unparseable counts) at load time and
// return core.ErrDataShape; the statistics never see malformed input.
type ObservationSource interface {
	Load(ctx context.Context) (experiment.Table, error)
	Describe() string
}

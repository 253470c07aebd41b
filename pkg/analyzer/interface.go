package analyzer

import (
	"context"

	"github.com/ccollicutt/logtriage/pkg/dataset"
)

// Engine runs one analysis over a dataset.
// The traffic analysis and each suspect analysis implement this interface.
type Engine interface {
	// Name returns the engine name for logging and errors.
	Name() string

	// Run analyzes ds and stores its findings in result.
	Run(ctx context.Context, ds *dataset.Dataset, result *AnalysisResult) error
}

package scimodom

import (
	"context"
	"fmt"
)

// Liftover maps a BED file to another assembly with CrossMap. The caller
// owns the returned files.
func (e *Engine) Liftover(ctx context.Context, req LiftoverRequest) (*LiftoverResult, error) {
	res, err := e.crossmap.Liftover(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("liftover: %w", err)
	}
	e.logger.Info().Str("raw", req.RawFile).Str("lifted", res.Lifted).Msg("liftover done")
	return res, nil
}

package http

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var computeGroup singleflight.Group

// singleflightCompute collapses concurrent identical computations so a
// polling dashboard never fans out the same store reads twice at once.
func singleflightCompute(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	resultChan := computeGroup.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		return res.Val, res.Err
	}
}

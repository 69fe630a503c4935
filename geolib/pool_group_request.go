package geolib

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

type resolveRequest struct {
	ctx     context.Context
	request Request
	result  *BatchResult
	wg      *sync.WaitGroup
}

// poolGroupRequest schedules a group of resolve tasks on a shared
// worker pool. If scheduling of any task fails, the whole group is
// cancelled.
type poolGroupRequest struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
	pool   *ants.PoolWithFunc
}

func (p *poolGroupRequest) Do(ctx context.Context, req Request, result *BatchResult) error {
	select {
	case <-ctx.Done():
		return ErrContextIsClosed
	case <-p.ctx.Done():
		return ErrContextIsClosed
	default:
	}

	p.wg.Add(1)

	task := &resolveRequest{
		ctx:     p.ctx,
		request: req,
		result:  result,
		wg:      p.wg,
	}

	if err := p.pool.Invoke(task); err != nil {
		p.wg.Done()
		p.cancel()

		return fmt.Errorf("cannot schedule a task: %w", err)
	}

	return nil
}

func (p *poolGroupRequest) Wait() {
	p.wg.Wait()
	p.cancel()
}

func newPoolGroupRequest(ctx context.Context, pool *ants.PoolWithFunc) *poolGroupRequest {
	ctx, cancel := context.WithCancel(ctx)

	return &poolGroupRequest{
		ctx:    ctx,
		cancel: cancel,
		wg:     &sync.WaitGroup{},
		pool:   pool,
	}
}

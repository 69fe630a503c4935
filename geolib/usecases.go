package geolib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	DefaultWorkerPoolSize = 4096

	workerPoolExpireTime = time.Minute
)

// Request identifies an address either by IP literal or by URL.
// Exactly one of them has to be set.
type Request struct {
	IPAddress string `json:"ip_address,omitempty"`
	URL       string `json:"url,omitempty"`
}

func (r Request) identifier() (string, error) {
	ipAddress := strings.TrimSpace(r.IPAddress)
	url := strings.TrimSpace(r.URL)

	switch {
	case ipAddress != "" && url != "":
		return "", &InvalidInputError{
			Input:  ipAddress + " " + url,
			Reason: "either ip_address or url has to be provided, not both",
		}
	case ipAddress != "":
		return ipAddress, nil
	case url != "":
		return url, nil
	}

	return "", &InvalidInputError{
		Reason: "either ip_address or url has to be provided",
	}
}

// BatchResult is a result of resolving of a single request from a
// batch. Either Record or Err is set.
type BatchResult struct {
	Request Request
	Record  GeolocationRecord
	Err     error
}

func (b BatchResult) OK() bool {
	return b.Err == nil
}

func (b BatchResult) MarshalJSON() ([]byte, error) {
	value := struct {
		Request

		Status      string             `json:"status"`
		Geolocation *GeolocationRecord `json:"geolocation,omitempty"`
		Error       *struct {
			Message string `json:"message"`
			Context string `json:"context"`
		} `json:"error,omitempty"`
	}{
		Request: b.Request,
		Status:  "success",
	}

	if b.Err == nil {
		value.Geolocation = &b.Record
	} else {
		httpErr := errorToHTTP(b.Err)

		value.Status = "error"
		value.Error = &struct {
			Message string `json:"message"`
			Context string `json:"context"`
		}{
			Message: httpErr.Message(),
			Context: httpErr.Err(),
		}
	}

	return json.Marshal(&value)
}

// Service is a set of use cases: resolve, add and delete. It only
// validates requests and delegates everything else to Normalizer and
// Orchestrator.
type Service struct {
	normalizer   *Normalizer
	orchestrator *Orchestrator
	rwmutex      sync.RWMutex
	closeOnce    sync.Once
	workerPool   *ants.PoolWithFunc
	closed       bool
}

func (s *Service) Resolve(ctx context.Context, req Request) (GeolocationRecord, error) {
	s.rwmutex.RLock()
	defer s.rwmutex.RUnlock()

	if s.closed {
		return GeolocationRecord{}, ErrServiceShutdown
	}

	return s.resolve(ctx, req)
}

// Add persists a record for a request. If location is nil, it is
// fetched from provider.
func (s *Service) Add(ctx context.Context, req Request, location *Location) (GeolocationRecord, error) {
	s.rwmutex.RLock()
	defer s.rwmutex.RUnlock()

	if s.closed {
		return GeolocationRecord{}, ErrServiceShutdown
	}

	addr, err := s.normalize(ctx, req)
	if err != nil {
		return GeolocationRecord{}, err
	}

	return s.orchestrator.CreateOrReplace(ctx, addr, location)
}

func (s *Service) Delete(ctx context.Context, req Request) (bool, error) {
	s.rwmutex.RLock()
	defer s.rwmutex.RUnlock()

	if s.closed {
		return false, ErrServiceShutdown
	}

	addr, err := s.normalize(ctx, req)
	if err != nil {
		return false, err
	}

	return s.orchestrator.Delete(ctx, addr)
}

// ResolveAll resolves requests concurrently on a worker pool. Results
// have the same order as requests. An error is returned only if the
// whole batch cannot be processed.
func (s *Service) ResolveAll(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	s.rwmutex.RLock()
	defer s.rwmutex.RUnlock()

	if s.closed {
		return nil, ErrServiceShutdown
	}

	rv := make([]BatchResult, len(reqs))
	groupRequest := newPoolGroupRequest(ctx, s.workerPool)

	for i, v := range reqs {
		rv[i].Request = v

		if err := groupRequest.Do(ctx, v, &rv[i]); err != nil {
			for j := i; j < len(rv); j++ {
				rv[j].Request = reqs[j]
				rv[j].Err = err
			}

			break
		}
	}

	groupRequest.Wait()

	return rv, nil
}

func (s *Service) UsageStats() *UsageStats {
	return s.orchestrator.UsageStats()
}

func (s *Service) Shutdown() {
	s.rwmutex.Lock()
	defer s.rwmutex.Unlock()

	s.closed = true

	s.closeOnce.Do(func() {
		s.workerPool.Release()
	})
}

func (s *Service) resolve(ctx context.Context, req Request) (GeolocationRecord, error) {
	addr, err := s.normalize(ctx, req)
	if err != nil {
		return GeolocationRecord{}, err
	}

	return s.orchestrator.GetOrFetch(ctx, addr)
}

func (s *Service) normalize(ctx context.Context, req Request) (Address, error) {
	identifier, err := req.identifier()
	if err != nil {
		return Address{}, err
	}

	return s.normalizer.Normalize(ctx, identifier)
}

func (s *Service) resolveTask(args interface{}) {
	params := args.(*resolveRequest)
	defer params.wg.Done()

	record, err := s.resolve(params.ctx, params.request)

	params.result.Record = record
	params.result.Err = err
}

func NewService(normalizer *Normalizer, orchestrator *Orchestrator, workerPoolSize int) (*Service, error) {
	if normalizer == nil || orchestrator == nil {
		return nil, errors.New("normalizer and orchestrator are mandatory")
	}

	rv := &Service{
		normalizer:   normalizer,
		orchestrator: orchestrator,
	}

	poolSize := workerPoolSize
	if poolSize <= 0 {
		poolSize = DefaultWorkerPoolSize
	}

	pool, err := ants.NewPoolWithFunc(poolSize, rv.resolveTask,
		ants.WithExpiryDuration(workerPoolExpireTime))
	if err != nil {
		return nil, fmt.Errorf("cannot create a worker pool: %w", err)
	}

	rv.workerPool = pool

	return rv, nil
}

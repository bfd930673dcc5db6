package scan

import (
	"context"
	"fmt"
	"sync"

	"github.com/gatekit/checkin/internal/types"
)

// Group operations fan the single-ticket gateway calls out over the admits
// the operator selected from a group booking. Concurrency is capped at
// Config.GroupBatchSize in flight at a time; results settle-all and are then
// classified, so one failing ticket never aborts the rest. Partial failures
// are reported, not retried.

// ScanGroup checks in the given ticket codes.
func (m *Machine) ScanGroup(ctx context.Context, codes []string) types.GroupResult {
	return m.runGroup(ctx, codes, m.gw.ScanIn)
}

// UnscanGroup reverses check-in for the given ticket codes.
func (m *Machine) UnscanGroup(ctx context.Context, codes []string) types.GroupResult {
	return m.runGroup(ctx, codes, m.gw.ScanOut)
}

func (m *Machine) runGroup(ctx context.Context, codes []string, call func(context.Context, string, string) (types.ValidationResult, error)) types.GroupResult {
	result := types.GroupResult{Results: make([]types.GroupTicketResult, len(codes))}
	if len(codes) == 0 {
		return result
	}
	groupBatchSize.Observe(float64(len(codes)))

	sem := make(chan struct{}, m.cfg.GroupBatchSize)
	var wg sync.WaitGroup
	for i, code := range codes {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, code string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					m.log.Error().Interface("panic", r).Str("code", code).Msg("group scan worker panic")
					result.Results[i] = types.GroupTicketResult{Code: code, Err: fmt.Errorf("internal error: %v", r)}
				}
			}()
			result.Results[i] = types.GroupTicketResult{Code: code, Err: m.groupCall(ctx, code, call)}
		}(i, code)
	}
	wg.Wait()

	for _, r := range result.Results {
		if r.Err != nil {
			result.Failed++
		} else {
			result.Successful++
		}
	}
	if result.Failed > 0 {
		m.log.Warn().Int("failed", result.Failed).Int("successful", result.Successful).Msg("group scan partial failure")
	}
	return result
}

func (m *Machine) groupCall(ctx context.Context, code string, call func(context.Context, string, string) (types.ValidationResult, error)) error {
	res, err := call(ctx, m.eventID, code)
	if err != nil {
		return err
	}
	if res.Error {
		return fmt.Errorf("%s: %s", m.gw.Classify(res), res.Message)
	}
	return nil
}

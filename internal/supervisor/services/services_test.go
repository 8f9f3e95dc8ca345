// TVBrain - On-Device Recommendation Engine for TV Platforms
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tvbrain

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	tvsync "github.com/tomtom215/tvbrain/internal/sync"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type mockSyncer struct {
	calls atomic.Int32
	err   error
}

func (m *mockSyncer) Sync(_ context.Context) (*tvsync.Result, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return &tvsync.Result{Outcome: "success"}, nil
}

type mockMaintainer struct {
	calls atomic.Int32
	err   error
}

func (m *mockMaintainer) Maintain(_ time.Time) (int, error) {
	m.calls.Add(1)
	return 1, m.err
}

type mockCheckpointer struct {
	calls atomic.Int32
	err   error
}

func (m *mockCheckpointer) Checkpoint(_ context.Context) (bool, error) {
	m.calls.Add(1)
	return m.err == nil, m.err
}

type mockGC struct {
	calls atomic.Int32
}

func (m *mockGC) RunGC() error {
	m.calls.Add(1)
	return nil
}

func TestServices_ImplementSutureService(t *testing.T) {
	t.Parallel()
	var _ suture.Service = (*SyncService)(nil)
	var _ suture.Service = (*MaintenanceService)(nil)
	var _ suture.Service = (*CheckpointService)(nil)
}

func TestSyncService_Periodic(t *testing.T) {
	t.Parallel()
	syncer := &mockSyncer{}
	svc := NewSyncService(syncer, SyncServiceConfig{Interval: 10 * time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	waitFor(t, func() bool { return syncer.calls.Load() >= 2 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
}

func TestSyncService_SyncOnStartAndFailures(t *testing.T) {
	t.Parallel()
	syncer := &mockSyncer{err: errors.New("peer unreachable")}
	svc := NewSyncService(syncer, SyncServiceConfig{Interval: time.Hour, SyncOnStart: true}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// A failed sync does not stop the service.
	waitFor(t, func() bool { return syncer.calls.Load() == 1 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
}

func TestSyncService_TriggerRateLimited(t *testing.T) {
	t.Parallel()
	syncer := &mockSyncer{}
	svc := NewSyncService(syncer, SyncServiceConfig{
		Interval:        time.Hour,
		TriggerInterval: time.Hour,
		TriggerBurst:    1,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Serve(ctx) }()

	if !svc.Trigger() {
		t.Fatal("first trigger was rate limited")
	}
	if svc.Trigger() {
		t.Error("second trigger within the interval was allowed")
	}
	waitFor(t, func() bool { return syncer.calls.Load() == 1 })
}

func TestMaintenanceService(t *testing.T) {
	t.Parallel()

	t.Run("sweeps on interval", func(t *testing.T) {
		t.Parallel()
		m := &mockMaintainer{}
		svc := NewMaintenanceService(m, 10*time.Millisecond, testLogger())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- svc.Serve(ctx) }()

		waitFor(t, func() bool { return m.calls.Load() >= 2 })
		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
	})

	t.Run("returns sweep error for restart", func(t *testing.T) {
		t.Parallel()
		sweepErr := errors.New("engine closed")
		svc := NewMaintenanceService(&mockMaintainer{err: sweepErr}, 10*time.Millisecond, testLogger())

		if err := svc.Serve(context.Background()); !errors.Is(err, sweepErr) {
			t.Errorf("Serve = %v, want %v", err, sweepErr)
		}
	})

	if got := NewMaintenanceService(&mockMaintainer{}, 0, testLogger()).interval; got != time.Minute {
		t.Errorf("default interval = %v, want 1m", got)
	}
}

func TestCheckpointService(t *testing.T) {
	t.Parallel()

	cp := &mockCheckpointer{err: errors.New("disk full")}
	gc := &mockGC{}
	svc := NewCheckpointService(cp, gc, CheckpointServiceConfig{
		Interval:   10 * time.Millisecond,
		GCInterval: 10 * time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Failures keep the service running.
	waitFor(t, func() bool { return cp.calls.Load() >= 2 && gc.calls.Load() >= 1 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
}

func TestCheckpointService_NoGC(t *testing.T) {
	t.Parallel()

	cp := &mockCheckpointer{}
	svc := NewCheckpointService(cp, nil, CheckpointServiceConfig{
		Interval:   10 * time.Millisecond,
		GCInterval: time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	waitFor(t, func() bool { return cp.calls.Load() >= 1 })
	cancel()
	<-done
}

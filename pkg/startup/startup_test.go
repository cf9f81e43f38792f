package startup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/startup"
)

type recorder struct {
	events []string
}

func (r *recorder) dependency(name string, after []string, failures int) startup.Func {
	return startup.Func{
		Name:  name,
		After: after,
		StartFunc: func(context.Context) error {
			if failures > 0 {
				failures--
				r.events = append(r.events, "fail "+name)
				return errors.New(name + " unavailable")
			}
			r.events = append(r.events, "start "+name)
			return nil
		},
		StopFunc: func(context.Context) error {
			r.events = append(r.events, "stop "+name)
			return nil
		},
	}
}

func newStartup(attempts int) *startup.Startup {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return startup.NewStartup(logger, attempts, startup.WithBackoffUnit(time.Millisecond))
}

func TestStartOrder(t *testing.T) {
	rec := &recorder{}
	s := newStartup(1)
	s.AddDependency(rec.dependency("events", []string{"database"}, 0))
	s.AddDependency(rec.dependency("lock", nil, 0))
	s.AddDependency(rec.dependency("database", nil, 0))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start database", "start events", "start lock"}, rec.events)
	assert.Equal(t, startup.StatusStarted, s.Status("events"))

	rec.events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop lock", "stop events", "stop database"}, rec.events)
	assert.Equal(t, startup.StatusStopped, s.Status("database"))
}

func TestStartRetries(t *testing.T) {
	rec := &recorder{}
	s := newStartup(3)
	s.AddDependency(rec.dependency("database", nil, 0))
	s.AddDependency(rec.dependency("redis", nil, 2))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start database", "fail redis", "fail redis", "start redis"}, rec.events)
}

func TestStartGivesUp(t *testing.T) {
	rec := &recorder{}
	s := newStartup(2)
	s.AddDependency(rec.dependency("redis", nil, 5))

	err := s.Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed after 2 attempts")
	assert.Contains(t, err.Error(), "redis unavailable")
	assert.Equal(t, startup.StatusFailed, s.Status("redis"))
}

func TestStartRejectsBadGraphs(t *testing.T) {
	tests := []struct {
		name string
		deps []startup.Func
		want string
	}{
		{
			name: "unknown dependency",
			deps: []startup.Func{{Name: "events", After: []string{"kafka"}, StartFunc: func(context.Context) error { return nil }}},
			want: "unknown dependency 'kafka'",
		},
		{
			name: "cycle",
			deps: []startup.Func{
				{Name: "a", After: []string{"b"}, StartFunc: func(context.Context) error { return nil }},
				{Name: "b", After: []string{"a"}, StartFunc: func(context.Context) error { return nil }},
			},
			want: "dependency cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStartup(1)
			for _, dep := range tt.deps {
				s.AddDependency(dep)
			}

			err := s.Start(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStartHonorsCancellation(t *testing.T) {
	rec := &recorder{}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	s := startup.NewStartup(logger, 5, startup.WithBackoffUnit(time.Hour))
	s.AddDependency(rec.dependency("redis", nil, 5))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Start(ctx), context.DeadlineExceeded)
}

func TestStopContinuesAfterFailure(t *testing.T) {
	rec := &recorder{}
	s := newStartup(1)
	s.AddDependency(rec.dependency("database", nil, 0))
	s.AddDependency(startup.Func{
		Name:      "server",
		StartFunc: func(context.Context) error { return nil },
		StopFunc:  func(context.Context) error { return errors.New("busy") },
	})
	require.NoError(t, s.Start(context.Background()))

	err := s.Stop(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop server")
	assert.Contains(t, rec.events, "stop database")
}

package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduler_AddJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("b", "0 */5 * * * *", func() {}))
	require.NoError(t, s.AddJob("a", "@every 1h", func() {}))

	err := s.AddJob("a", "@every 1h", func() {})
	assert.ErrorContains(t, err, "already exists")

	err = s.AddJob("broken", "not a cron", func() {})
	assert.ErrorContains(t, err, "failed to add job broken")

	assert.Equal(t, []string{"a", "b"}, s.JobNames())
}

func TestScheduler_RemoveJob(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	require.NoError(t, s.AddJob("a", "@every 1h", func() {}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.JobNames())
	assert.ErrorContains(t, s.RemoveJob("a"), "not found")
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("tick", "@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))

	s.Start()
	defer func() { <-s.Stop().Done() }()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	ran := make(chan struct{}, 2)
	require.NoError(t, s.AddJob("panics", "@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
		panic("boom")
	}))

	s.Start()
	defer func() { <-s.Stop().Done() }()

	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(3 * time.Second):
			t.Fatalf("run %d did not happen after a panic", i+1)
		}
	}
}

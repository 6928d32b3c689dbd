package telemetry

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		require.NotPanics(t, func() { WrapLogger(nil).Printf("ignored %d", 1) })
	})

	t.Run("formats message", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WrapLogger(slog.New(slog.NewTextHandler(&buf, nil)))
		logger.Printf("planner %s finished", "ada")
		require.Contains(t, buf.String(), `msg="planner ada finished"`)
	})
}

func TestLoggerFuncNil(t *testing.T) {
	var fn LoggerFunc
	require.NotPanics(t, func() { fn.Printf("x") })
}

func TestCountersAddAndStore(t *testing.T) {
	c := NewCounters()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Add(MetricTasksCompleted, 1)
		}()
	}
	wg.Wait()
	c.Store(MetricPlannersActive, 3)
	c.Store(MetricPlannersActive, 2)

	require.Equal(t, uint64(10), c.Get(MetricTasksCompleted))
	require.Equal(t, uint64(2), c.Get(MetricPlannersActive))
	require.Len(t, c.Snapshot(), 2)
}

func TestCountersLogToSortsKeys(t *testing.T) {
	c := NewCounters()
	c.Add("b", 2)
	c.Add("a", 1)

	var lines []string
	c.LogTo(LoggerFunc(func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}))
	require.Equal(t, []string{"a=1", "b=2"}, lines)
}

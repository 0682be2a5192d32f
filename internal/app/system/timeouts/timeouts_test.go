package timeouts_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/homeready/internal/app/system/timeouts"
	"go.uber.org/zap"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(timeouts.Reset)

	timeouts.Configure(timeouts.Config{Short: 7 * time.Second})
	got := timeouts.Current()
	want := timeouts.Config{
		Ping:   timeouts.DefaultPing,
		Short:  7 * time.Second,
		Medium: timeouts.DefaultMedium,
		Long:   timeouts.DefaultLong,
	}
	if got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}

	timeouts.Reset()
	if timeouts.Short() != timeouts.DefaultShort {
		t.Errorf("Short() after Reset = %v", timeouts.Short())
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := timeouts.WithTimeout(context.Background(), time.Millisecond, zap.NewNop(), "test")
	<-ctx.Done()
	cancel()
	if ctx.Err() != context.DeadlineExceeded {
		t.Errorf("ctx.Err() = %v, want DeadlineExceeded", ctx.Err())
	}
}

package lifecycle_test

import (
	"context"
	"testing"

	"github.com/pilab-dev/reelsync/internal/lifecycle"
	"github.com/stretchr/testify/assert"
)

type recorder struct {
	signals []lifecycle.Signal
}

func (r *recorder) handler() lifecycle.HandlerFuncs {
	return lifecycle.HandlerFuncs{
		Foreground: func(context.Context) { r.signals = append(r.signals, lifecycle.Foreground) },
		Background: func(context.Context) { r.signals = append(r.signals, lifecycle.Background) },
	}
}

func TestTracker_FirstStartAndLastStop(t *testing.T) {
	rec := &recorder{}
	tr := lifecycle.NewTracker(rec.handler())
	ctx := context.Background()

	assert.Equal(t, lifecycle.Foreground, tr.ScreenStarted(ctx))
	assert.Equal(t, lifecycle.None, tr.ScreenStarted(ctx), "second screen")
	assert.Equal(t, lifecycle.None, tr.ScreenStopped(ctx, false))
	assert.Equal(t, lifecycle.Background, tr.ScreenStopped(ctx, false))

	assert.Equal(t, []lifecycle.Signal{lifecycle.Foreground, lifecycle.Background}, rec.signals)
}

func TestTracker_ConfigurationChangeIsSilent(t *testing.T) {
	rec := &recorder{}
	tr := lifecycle.NewTracker(rec.handler())
	ctx := context.Background()

	tr.ScreenStarted(ctx)
	assert.Equal(t, lifecycle.None, tr.ScreenStopped(ctx, true))
	assert.Equal(t, lifecycle.None, tr.ScreenStarted(ctx))
	assert.Equal(t, lifecycle.Background, tr.ScreenStopped(ctx, false))

	assert.Equal(t, []lifecycle.Signal{lifecycle.Foreground, lifecycle.Background}, rec.signals)
}

func TestTracker_UnbalancedStop(t *testing.T) {
	tr := lifecycle.NewTracker(lifecycle.HandlerFuncs{})
	ctx := context.Background()

	assert.Equal(t, lifecycle.None, tr.ScreenStopped(ctx, false))
	assert.Equal(t, 0, tr.Visible())
	assert.Equal(t, lifecycle.Foreground, tr.ScreenStarted(ctx))
}

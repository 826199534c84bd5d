package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

type failingNotifier struct {
	err   error
	calls int
}

func (f *failingNotifier) Notify(ctx context.Context, n domain.Notice) error {
	f.calls++
	return f.err
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Notify(context.Background(), domain.Notice{Message: "Nuclear Mode is active", Timeout: 5 * time.Second}))

	entries := logs.FilterMessage("notice").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Nuclear Mode is active", entries[0].ContextMap()["message"])
}

func TestMultiNotifier_TriesAll(t *testing.T) {
	first := &failingNotifier{err: errors.New("host gone")}
	second := &failingNotifier{}
	m := MultiNotifier{first, second}

	err := m.Notify(context.Background(), domain.Notice{Message: "x"})

	assert.ErrorIs(t, err, first.err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestMultiNotifier_Empty(t *testing.T) {
	assert.NoError(t, MultiNotifier(nil).Notify(context.Background(), domain.Notice{}))
}

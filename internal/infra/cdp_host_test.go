package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

func TestDecodePath(t *testing.T) {
	v := gson.NewFrom(`[{"tag":"html","index":0},{"tag":"body","index":1},{"tag":"input","index":3}]`)

	path, err := decodePath(v)
	require.NoError(t, err)
	assert.Equal(t, []domain.PathSegment{
		{Tag: "html", Index: 0},
		{Tag: "body", Index: 1},
		{Tag: "input", Index: 3},
	}, path)
}

func TestDecodePath_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty array", `[]`},
		{"not an array", `null`},
		{"missing tag", `[{"index":0}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodePath(gson.NewFrom(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestCDPHost_ResolveFailure(t *testing.T) {
	resolveErr := errors.New("no host")
	host := NewCDPHost(CDPHostConfig{
		Resolve: func(ctx context.Context) (string, error) { return "", resolveErr },
	}, zap.NewNop())

	_, err := host.FindAllObservedFields(context.Background())
	assert.ErrorIs(t, err, resolveErr)

	err = host.Notify(context.Background(), domain.Notice{Message: "hi"})
	assert.ErrorIs(t, err, resolveErr)

	assert.NoError(t, host.Close())
}

func TestNewCDPHost_DefaultSelector(t *testing.T) {
	host := NewCDPHost(CDPHostConfig{}, zap.NewNop())
	assert.Equal(t, DefaultFieldSelector, host.config.FieldSelector)
}

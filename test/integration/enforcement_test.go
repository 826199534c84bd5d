//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/infra"
	"github.com/eliteGoblin/focusd/web_mon/internal/policy"
	"github.com/eliteGoblin/focusd/web_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/web_mon/test/fixtures"
)

func TestWatcher_ClosesBlockedPanelEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	dataDir := t.TempDir()
	logger := zap.NewNop()
	host := fixtures.NewFakeHost()
	host.AddField("div[0]/div[1]/input[0]", "https://golang.org/doc")
	host.SetRecentPanel(&domain.Panel{ID: "leaf-7", ViewType: policy.DefaultViewType})

	store, err := infra.OpenSettingsStore(dataDir)
	require.NoError(t, err)
	defer store.Close()

	blocklist := infra.NewFileBlocklist(infra.DefaultBlocklistPath(dataDir))
	require.NoError(t, blocklist.Save("youtube\ncats"))

	clock := clockAt("12:00")
	state, err := usecase.Init(context.Background(), usecase.Deps{
		Store:     store,
		Blocklist: blocklist,
		Notifier:  host,
		Clock:     clock,
		Logger:    logger,
	})
	require.NoError(t, err)

	enforcer := usecase.NewEnforcer(state, policy.NewRegistry(host, "", logger), clock, logger)
	observer := daemon.NewObserver(host, enforcer, logger)

	bw, err := infra.NewBlocklistWatcher(blocklist.Path(), logger)
	require.NoError(t, err)
	bw.SetDebounce(20 * time.Millisecond)

	w := daemon.NewWatcher(daemon.WatcherConfig{
		ScanInterval:    10 * time.Millisecond,
		NuclearInterval: time.Hour,
	}, state, observer, bw.Changes(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bw.Start(ctx))
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Allowed page stays open.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, host.Closed())

	// Search for a blocked keyword.
	host.SetText("div[0]/div[1]/input[0]", "https://duckduckgo.com/?q=funny+cats")
	assert.Eventually(t, func() bool {
		return len(host.Closed()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"leaf-7"}, host.Closed())

	// A keyword added to the file applies to the page already open.
	host.SetRecentPanel(&domain.Panel{ID: "leaf-8", ViewType: policy.DefaultViewType})
	host.SetText("div[0]/div[1]/input[0]", "https://go.dev")
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, blocklist.Save("youtube\ncats\ngo.dev"))
	assert.Eventually(t, func() bool {
		return len(host.Closed()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	bw.Stop()
}

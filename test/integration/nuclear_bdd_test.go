//go:build integration

package integration

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/infra"
	"github.com/eliteGoblin/focusd/web_mon/internal/keyword"
	"github.com/eliteGoblin/focusd/web_mon/internal/nuclear"
	"github.com/eliteGoblin/focusd/web_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/web_mon/test/fixtures"
)

var _ = Describe("Nuclear Mode with persisted settings", func() {
	var (
		ctx       context.Context
		dataDir   string
		blocklist *infra.FileBlocklist
		store     *infra.EncryptedSettingsStore
		host      *fixtures.FakeHost
		clock     *manualClock
	)

	open := func() *usecase.State {
		var err error
		store, err = infra.OpenSettingsStore(dataDir)
		Expect(err).NotTo(HaveOccurred())
		state, err := usecase.Init(ctx, usecase.Deps{
			Store:     store,
			Blocklist: blocklist,
			Notifier:  host,
			Clock:     clock,
			Logger:    zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return state
	}

	restart := func(s *usecase.State) *usecase.State {
		Expect(s.Teardown(ctx)).To(Succeed())
		Expect(store.Close()).To(Succeed())
		return open()
	}

	BeforeEach(func() {
		ctx = context.Background()
		dataDir = GinkgoT().TempDir()
		blocklist = infra.NewFileBlocklist(infra.DefaultBlocklistPath(dataDir))
		host = fixtures.NewFakeHost()
		clock = clockAt("12:00")
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	Describe("first run", func() {
		It("seeds the blocklist file and the encrypted store", func() {
			state := open()

			text, err := blocklist.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal(keyword.DefaultText()))
			Expect(state.Enabled()).To(BeTrue())

			rec, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.BlocklistContent).To(Equal(keyword.DefaultText()))
		})
	})

	Describe("during the window", func() {
		var state *usecase.State

		BeforeEach(func() {
			Expect(blocklist.Save("youtube\nreddit")).To(Succeed())
			state = open()
			Expect(state.ConfigureNuclear(ctx, true, "22:00", "05:00")).To(Succeed())

			clock.set("22:00")
			Expect(state.EvaluateNuclear(ctx)).To(Equal(nuclear.Activated))
		})

		It("refuses to disable blocking", func() {
			err := state.SetEnabled(ctx, false)
			Expect(err).To(MatchError(usecase.ErrBlockingLocked))
			Expect(state.Enabled()).To(BeTrue())
		})

		It("puts back keywords removed in an editor", func() {
			Expect(os.WriteFile(blocklist.Path(), []byte("youtube\ntwitch"), 0644)).To(Succeed())

			update, err := state.ApplyBlocklistFile(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(update.Rejected).To(ConsistOf("reddit"))

			text, err := blocklist.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(keyword.Parse(text).Sorted()).To(Equal([]string{"reddit", "twitch", "youtube"}))
			Expect(host.Notices()).NotTo(BeEmpty())
		})

		It("keeps the baseline across a restart", func() {
			Expect(state.Teardown(ctx)).To(Succeed())
			Expect(store.Close()).To(Succeed())

			// Edited while the daemon was down.
			Expect(blocklist.Save("youtube")).To(Succeed())
			clock.set("02:30")
			state = open()

			Expect(state.NuclearActive()).To(BeTrue())
			Expect(state.Keywords().Sorted()).To(Equal([]string{"reddit", "youtube"}))
		})

		It("unlocks after the window ends", func() {
			clock.set("05:00")
			Expect(state.EvaluateNuclear(ctx)).To(Equal(nuclear.Deactivated))

			Expect(state.SetEnabled(ctx, false)).To(Succeed())
			_, err := state.ReplaceBlocklist(ctx, "youtube")
			Expect(err).NotTo(HaveOccurred())

			state = restart(state)
			Expect(state.Enabled()).To(BeFalse())
			Expect(state.Keywords().Sorted()).To(Equal([]string{"youtube"}))
		})
	})

	Describe("changes from another process", func() {
		It("reaches a running state through Reload", func() {
			daemonState := open()

			// A CLI invocation opens its own store on the same database.
			cliStore, err := infra.OpenSettingsStore(dataDir)
			Expect(err).NotTo(HaveOccurred())
			defer cliStore.Close()
			cli, err := usecase.Init(ctx, usecase.Deps{
				Store:     cliStore,
				Blocklist: blocklist,
				Notifier:  host,
				Clock:     clock,
				Logger:    zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(cli.SetEnabled(ctx, false)).To(Succeed())

			_, err = daemonState.Reload(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(daemonState.Enabled()).To(BeFalse())
		})

		It("keeps a schedule set by the CLI when the daemon applies a file edit", func() {
			daemonState := open()

			cliStore, err := infra.OpenSettingsStore(dataDir)
			Expect(err).NotTo(HaveOccurred())
			defer cliStore.Close()
			cli, err := usecase.Init(ctx, usecase.Deps{
				Store:     cliStore,
				Blocklist: blocklist,
				Notifier:  host,
				Clock:     clock,
				Logger:    zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(cli.ConfigureNuclear(ctx, true, "22:00", "05:00")).To(Succeed())
			_, err = cli.AddKeywords(ctx, "chess")
			Expect(err).NotTo(HaveOccurred())

			_, err = daemonState.ApplyBlocklistFile(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = daemonState.Reload(ctx)
			Expect(err).NotTo(HaveOccurred())

			clock.set("23:00")
			daemonState.EvaluateNuclear(ctx)
			Expect(daemonState.NuclearActive()).To(BeTrue())
			Expect(daemonState.Keywords().Contains("chess")).To(BeTrue())
		})
	})
})

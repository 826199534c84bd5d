package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/config"
	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/infra"
	"github.com/eliteGoblin/focusd/web_mon/internal/keyword"
	"github.com/eliteGoblin/focusd/web_mon/internal/match"
	"github.com/eliteGoblin/focusd/web_mon/internal/policy"
	"github.com/eliteGoblin/focusd/web_mon/internal/usecase"
)

var checkCmd = &cobra.Command{
	Use:   "check <address>",
	Short: "Show which keywords an address would match",
	Long:  `Runs the matcher against an address using the current blocklist. Nothing is closed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage blocked keywords",
}

var keywordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blocked keywords",
	RunE:  runKeywordsList,
}

var keywordsAddCmd = &cobra.Command{
	Use:   "add <keyword>...",
	Short: "Add keywords to the blocklist",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKeywordsAdd,
}

var keywordsRemoveCmd = &cobra.Command{
	Use:   "remove <keyword>...",
	Short: "Remove keywords from the blocklist",
	Long:  `Removes keywords. During Nuclear Mode, keywords present at activation cannot be removed.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKeywordsRemove,
}

var keywordsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the blocklist file path",
	RunE:  runKeywordsPath,
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Turn blocking on",
	RunE:  func(cmd *cobra.Command, args []string) error { return runSetEnabled(true) },
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn blocking off (refused during Nuclear Mode)",
	RunE:  func(cmd *cobra.Command, args []string) error { return runSetEnabled(false) },
}

var actionCmd = &cobra.Command{
	Use:   "action [close|log]",
	Short: "Show or set what happens on a match",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAction,
}

var nuclearCmd = &cobra.Command{
	Use:   "nuclear",
	Short: "Manage Nuclear Mode",
}

var nuclearStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Nuclear Mode schedule and state",
	RunE:  runNuclearStatus,
}

var nuclearSetCmd = &cobra.Command{
	Use:   "set <start HH:MM> <end HH:MM>",
	Short: "Enable Nuclear Mode for a daily window",
	Long: `Enables Nuclear Mode between start and end (24-hour HH:MM, local time).
A window with start after end spans midnight. If now is inside the window,
Nuclear Mode activates immediately.`,
	Args: cobra.ExactArgs(2),
	RunE: runNuclearSet,
}

var nuclearOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable Nuclear Mode (refused while active)",
	RunE:  runNuclearOff,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the webmon config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long:  `Writes the default configuration to the config path. An existing file is kept unless --force is given.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var forceInit bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current settings",
	RunE:  runStatus,
}

func init() {
	keywordsCmd.AddCommand(keywordsListCmd, keywordsAddCmd, keywordsRemoveCmd, keywordsPathCmd)
	nuclearCmd.AddCommand(nuclearStatusCmd, nuclearSetCmd, nuclearOffCmd)
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd)

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(actionCmd)
	rootCmd.AddCommand(nuclearCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statusCmd)
}

// session is a short-lived State opened by a CLI command.
type session struct {
	cfg    *config.Config
	store  *infra.EncryptedSettingsStore
	state  *usecase.State
	logger *zap.Logger
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, _ := zap.NewDevelopment()

	store, err := infra.OpenSettingsStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	state, err := usecase.Init(ctx, usecase.Deps{
		Store:     store,
		Blocklist: infra.NewFileBlocklist(cfg.BlocklistFile),
		Notifier:  &printNotifier{},
		Clock:     domain.SystemClock{},
		Logger:    logger,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return &session{cfg: cfg, store: store, state: state, logger: logger}, nil
}

func (s *session) close() {
	_ = s.store.Close()
	_ = s.logger.Sync()
}

// printNotifier shows notices on stderr.
type printNotifier struct{}

func (printNotifier) Notify(ctx context.Context, n domain.Notice) error {
	_, err := fmt.Fprintf(os.Stderr, "! %s\n", n.Message)
	return err
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	text, err := infra.NewFileBlocklist(cfg.BlocklistFile).Load()
	if errors.Is(err, os.ErrNotExist) {
		text = keyword.DefaultText()
	} else if err != nil {
		return err
	}

	events := match.FindMatches(args[0], keyword.Parse(text))
	if len(events) == 0 {
		fmt.Println("allowed: no keyword matched")
		return nil
	}

	fmt.Printf("blocked: %d match(es)\n", len(events))
	for _, e := range events {
		where := string(e.Location.Kind)
		if e.Location.Kind == domain.LocationQueryParam {
			where += " " + e.Location.Param
		}
		fmt.Printf("  %-16s %-20s %q\n", e.Keyword, where, e.Snippet)
	}
	return nil
}

func runKeywordsList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	for _, k := range s.state.Keywords().Sorted() {
		fmt.Println(k)
	}
	return nil
}

func runKeywordsAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	update, err := s.state.AddKeywords(cmd.Context(), args...)
	if err != nil {
		return err
	}
	fmt.Printf("%d keywords blocked\n", update.Keywords.Len())
	return nil
}

func runKeywordsRemove(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	update, err := s.state.RemoveKeywords(cmd.Context(), args...)
	if err != nil {
		return err
	}
	if len(update.Rejected) > 0 {
		fmt.Printf("kept during Nuclear Mode: %s\n", strings.Join(update.Rejected, ", "))
	}
	fmt.Printf("%d keywords blocked\n", update.Keywords.Len())
	return nil
}

func runKeywordsPath(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Println(cfg.BlocklistFile)
	return nil
}

func runSetEnabled(enabled bool) error {
	ctx := context.Background()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.state.SetEnabled(ctx, enabled); err != nil {
		return err
	}
	if enabled {
		fmt.Println("blocking enabled")
	} else {
		fmt.Println("blocking disabled")
	}
	return nil
}

func runAction(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	if len(args) == 0 {
		fmt.Println(s.state.Action())
		return nil
	}
	mode, err := policy.ParseMode(args[0])
	if err != nil {
		return err
	}
	if err := s.state.SetAction(cmd.Context(), mode); err != nil {
		return err
	}
	fmt.Printf("action set to %s\n", mode)
	return nil
}

func runNuclearStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	printNuclear(s.state.View())
	return nil
}

func runNuclearSet(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.state.ConfigureNuclear(cmd.Context(), true, args[0], args[1]); err != nil {
		return err
	}
	printNuclear(s.state.View())
	return nil
}

func runNuclearOff(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	v := s.state.View()
	if err := s.state.ConfigureNuclear(cmd.Context(), false, v.NuclearStart, v.NuclearEnd); err != nil {
		return err
	}
	printNuclear(s.state.View())
	return nil
}

func printNuclear(v domain.SettingsView) {
	switch {
	case !v.NuclearEnabled:
		fmt.Printf("Nuclear Mode: off (window %s-%s)\n", v.NuclearStart, v.NuclearEnd)
	case v.NuclearActive:
		fmt.Printf("Nuclear Mode: ACTIVE until %s\n", v.NuclearEnd)
	default:
		fmt.Printf("Nuclear Mode: scheduled %s-%s\n", v.NuclearStart, v.NuclearEnd)
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.Init(configPath, forceInit)
	if err != nil {
		return err
	}
	fmt.Printf("wrote default config to %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", config.ResolvePath(configPath), data)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.close()

	v := s.state.View()
	mode := infra.DetectExecMode()

	fmt.Println("\n=== webmon Status ===")
	if v.IsEnabled {
		fmt.Print("Blocking: enabled")
	} else {
		fmt.Print("Blocking: disabled")
	}
	if v.IsToggleLocked {
		fmt.Print(" (locked)")
	}
	fmt.Println()
	fmt.Printf("Action: %s\n", v.Action)
	fmt.Printf("Keywords: %d\n", v.KeywordCount)
	printNuclear(v)

	fmt.Printf("\nExecution mode: %s\n", mode.Mode)
	fmt.Printf("Data dir: %s\n", s.cfg.DataDir)
	fmt.Printf("Blocklist: %s\n", s.cfg.BlocklistFile)
	if version, err := s.store.SchemaVersion(); err == nil {
		fmt.Printf("Settings schema: v%s\n", version)
	}
	if updated, err := s.store.UpdatedAt(); err == nil && !updated.IsZero() {
		fmt.Printf("Last change: %s ago\n", time.Since(updated).Round(time.Second))
	}
	fmt.Println("=====================")
	return nil
}

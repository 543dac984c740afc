package tui

import (
	"context"
	"io"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/northchrome/opsledger/internal/config"
	"github.com/northchrome/opsledger/internal/database/seed"
	"github.com/northchrome/opsledger/internal/ledger"
	"github.com/northchrome/opsledger/internal/testutil"
	"github.com/northchrome/opsledger/internal/util"
)

// newTestLedger opens a ledger over an in-memory store seeded with the demo
// shop, with the clock stopped at the fixture time.
func newTestLedger(t *testing.T) (*ledger.Ledger, *util.ManualClock) {
	t.Helper()

	clock := util.NewManualClock(testutil.FixtureTime)
	l, err := ledger.Open(context.Background(), ledger.NewMemoryStore(), ledger.Options{
		Clock:   clock,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		ActorID: "tester",
		Defaults: func() *seed.Dataset {
			return seed.NewGenerator(seed.DefaultConfig("Taller Norte", testutil.FixtureTime)).Generate()
		},
	})
	if err != nil {
		t.Fatalf("opening ledger: %v", err)
	}
	return l, clock
}

// newTestApp creates an App over a seeded in-memory ledger. The window is
// set to 120x40 and marked ready.
func newTestApp(t *testing.T) *App {
	t.Helper()

	l, clock := newTestLedger(t)
	app := New(l, config.Default(), clock)

	// Simulate a window size message to make the app ready
	app.width = 120
	app.height = 40
	app.ready = true
	app.updateViewDimensions()

	return app
}

// keyMsg creates a tea.KeyMsg for a regular character key.
func keyMsg(key string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

// specialKeyMsg creates a tea.KeyMsg for a special key type.
func specialKeyMsg(keyType tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: keyType}
}

// typeText sends each rune of s as a key press.
func typeText(app *App, s string) {
	for _, r := range s {
		app.Update(keyMsg(string(r)))
	}
}

// runCmd executes cmd synchronously and feeds its message back into the app.
func runCmd(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	app.Update(cmd())
}

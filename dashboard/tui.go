package dashboard

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"tidycache/util"
)

// TUI renders live Snapshots in a tview table, grounded on the
// teacher's ncurses build-progress screen (build/ui_ncurses.go):
// one persistent screen updated in place rather than scrolling output.
type TUI struct {
	app   *tview.Application
	table *tview.Table
}

// NewTUI builds the screen but does not run it yet; call Run.
func NewTUI() *TUI {
	table := tview.NewTable().SetBorders(false)
	table.SetTitle(" tidycache --watch ").SetBorder(true)

	labels := []string{"Hits", "Misses", "Hit rate", "Size / budget", "Entries", "Since cleanup", "Last eviction", "Elapsed"}
	for row, label := range labels {
		table.SetCell(row, 0, tview.NewTableCell(label).SetSelectable(false))
		table.SetCell(row, 1, tview.NewTableCell("-").SetSelectable(false))
	}

	app := tview.NewApplication().SetRoot(table, true)

	return &TUI{app: app, table: table}
}

// OnSnapshot implements Consumer, redrawing the table from the latest
// sample. tview requires UI mutations to be scheduled via QueueUpdateDraw
// when called from a goroutine other than the one running Run.
func (t *TUI) OnSnapshot(s Snapshot) {
	t.app.QueueUpdateDraw(func() {
		t.table.GetCell(0, 1).SetText(fmt.Sprintf("%d", s.Hits))
		t.table.GetCell(1, 1).SetText(fmt.Sprintf("%d", s.Misses))
		t.table.GetCell(2, 1).SetText(fmt.Sprintf("%.1f%%", s.HitRatePct))
		t.table.GetCell(3, 1).SetText(fmt.Sprintf("%s / %s", util.FormatBytes(s.CurrentSize), util.FormatBytes(s.MaxSize)))
		t.table.GetCell(4, 1).SetText(fmt.Sprintf("%d", s.EntryCount))
		t.table.GetCell(5, 1).SetText(fmt.Sprintf("%d", s.InvocationsSinceCleanup))
		if s.LastEviction.IsZero() {
			t.table.GetCell(6, 1).SetText("never")
		} else {
			t.table.GetCell(6, 1).SetText(s.LastEviction.Format("15:04:05"))
		}
		t.table.GetCell(7, 1).SetText(s.Elapsed.Truncate(1e9 /* 1s */).String())
	})
}

// Run blocks until the user quits (q or Ctrl-C), driving the tview
// event loop on the calling goroutine as tview requires.
func (t *TUI) Run() error {
	t.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || event.Rune() == 'q' {
			t.app.Stop()
			return nil
		}
		return event
	})
	return t.app.Run()
}

// Stop requests the event loop exit.
func (t *TUI) Stop() {
	t.app.Stop()
}


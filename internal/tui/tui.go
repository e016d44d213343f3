// Package tui implements the interactive terminal view: a scrolling log
// pane fed by the connection manager's event channel, a one-line command
// input and a status bar with a connect/disconnect toggle.
package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"zephterm/internal/console"
	"zephterm/internal/serial"
)

// drawInterval paces the redraw loop; incoming lines are batched between
// ticks instead of forcing a repaint each.
const drawInterval = 50 * time.Millisecond

// UI is one interactive session over a single connection manager.
type UI struct {
	screen tcell.Screen
	mgr    *serial.Manager
	cfg    serial.PortConfig

	mu     sync.Mutex
	logv   *logView
	input  inputLine
	status string

	quitOnce sync.Once
	quit     chan struct{}
}

// New creates a session bound to mgr. cfg is the connection the toggle
// key opens; scrollback bounds the number of retained display lines.
func New(mgr *serial.Manager, cfg serial.PortConfig, scrollback int) *UI {
	return &UI{
		mgr:  mgr,
		cfg:  cfg,
		logv: newLogView(scrollback),
		quit: make(chan struct{}),
	}
}

// Run connects, then drives the screen until the user quits. The
// connection is torn down before the terminal is restored.
func (ui *UI) Run() error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	ui.screen = screen

	defer func() {
		_ = ui.mgr.Disconnect()
		screen.Fini()
	}()

	screen.SetStyle(tcell.StyleDefault)
	screen.Clear()

	if err := ui.mgr.Connect(ui.cfg); err != nil {
		ui.setStatus(err.Error())
	}

	go ui.consumeEntries()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-ui.quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(drawInterval)
	defer ticker.Stop()

	ui.draw()
	for {
		select {
		case <-ui.quit:
			return nil
		case ev := <-events:
			ui.handleEvent(ev)
			ui.draw()
		case <-ticker.C:
			ui.draw()
		}
	}
}

// consumeEntries marshals log entries from the manager onto the view's
// own state; the draw loop picks them up on the next tick.
func (ui *UI) consumeEntries() {
	for {
		select {
		case <-ui.quit:
			return
		case e := <-ui.mgr.Events():
			ui.mu.Lock()
			ui.logv.append(console.Render(e))
			ui.mu.Unlock()
		}
	}
}

func (ui *UI) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		ui.handleKey(ev)
	case *tcell.EventResize:
		ui.screen.Sync()
	}
}

func (ui *UI) handleKey(ev *tcell.EventKey) {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	switch ev.Key() {
	case tcell.KeyCtrlQ, tcell.KeyCtrlC:
		ui.stop()
	case tcell.KeyCtrlT:
		ui.toggleLocked()
	case tcell.KeyEnter:
		text := ui.input.submit()
		if err := ui.mgr.Send(text); err != nil {
			ui.status = err.Error()
		} else {
			ui.status = ""
		}
	case tcell.KeyEscape:
		ui.input.clear()
		ui.status = ""
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		ui.input.backspace()
	case tcell.KeyLeft:
		ui.input.left()
	case tcell.KeyRight:
		ui.input.right()
	case tcell.KeyPgUp:
		ui.logv.scrollUp(ui.logHeight())
	case tcell.KeyPgDn:
		ui.logv.scrollDown(ui.logHeight())
	case tcell.KeyEnd:
		ui.logv.follow()
	case tcell.KeyRune:
		ui.input.insert(ev.Rune())
	}
}

// toggleLocked flips the connection, mirroring the connect/disconnect
// button. Failures land in the status bar, never end the session.
func (ui *UI) toggleLocked() {
	var err error
	if ui.mgr.IsConnected() {
		err = ui.mgr.Disconnect()
	} else {
		err = ui.mgr.Connect(ui.cfg)
	}
	if err != nil {
		ui.status = err.Error()
	} else {
		ui.status = ""
	}
}

func (ui *UI) stop() {
	ui.quitOnce.Do(func() {
		close(ui.quit)
	})
}

func (ui *UI) setStatus(msg string) {
	ui.mu.Lock()
	ui.status = msg
	ui.mu.Unlock()
}

func (ui *UI) logHeight() int {
	_, h := ui.screen.Size()
	if h < 3 {
		return 0
	}
	return h - 2
}

func (ui *UI) draw() {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	w, h := ui.screen.Size()
	if w == 0 || h < 3 {
		return
	}
	ui.screen.Clear()

	barStyle := tcell.StyleDefault.Reverse(true)
	state := ui.mgr.State().String()
	left := fmt.Sprintf(" zephterm  %s @ %d  [%s]", ui.cfg.Port, ui.cfg.BaudRate, state)
	if !ui.logv.following() {
		left += "  (scrolled, End to follow)"
	}
	if ui.status != "" {
		left += "  " + ui.status
	}
	drawText(ui.screen, 0, 0, w, left, barStyle)

	logStyle := tcell.StyleDefault
	for i, line := range ui.logv.visible(h - 2) {
		drawText(ui.screen, 0, 1+i, w, line, logStyle)
	}

	prompt := "> " + ui.input.String()
	drawText(ui.screen, 0, h-1, w, prompt, tcell.StyleDefault.Bold(true))
	cursorX := 2 + ui.input.cursor
	if cursorX >= w {
		cursorX = w - 1
	}
	ui.screen.ShowCursor(cursorX, h-1)

	ui.screen.Show()
}

// drawText writes a single row, padding or truncating to width.
func drawText(s tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= x+width {
			break
		}
		s.SetContent(col, y, r, nil, style)
		col++
	}
	for ; col < x+width; col++ {
		s.SetContent(col, y, ' ', nil, style)
	}
}

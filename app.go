// Package btuin provides the reactive TUI application lifecycle.
package btuin

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/germtb/gox"
)

// App represents a reactive TUI application.
type App struct {
	loop *RenderLoop
	quit func()
}

// Default frame rate limit (60 FPS = ~16.67ms per frame)
const defaultFrameInterval = 16 * time.Millisecond

// Loop returns the underlying render loop.
func (a *App) Loop() *RenderLoop { return a.loop }

// Rerender forces a re-render on the next frame.
func (a *App) Rerender() {
	a.loop.RequestRender()
}

// Quit signals the application to exit.
func (a *App) Quit() {
	if a.quit != nil {
		a.quit()
	}
}

// RunOptions configures Run.
type RunOptions struct {
	Width  int
	Height int
	Output io.Writer

	OnMount   func(*App)
	OnUnmount func()
	OnError   func(phase string, err error)

	// Profile enables the frame profiler; ProfileHUD also draws the
	// overlay. ProfileOut, when set, receives the JSON summary on exit.
	Profile    bool
	ProfileHUD bool
	ProfileOut io.Writer

	// OnTick, when set, runs at TickInterval between frames.
	OnTick       func()
	TickInterval time.Duration
}

// Render creates a reactive app without terminal handling; useful for
// tests and embedding.
func Render(view func() gox.VNode, opts LoopOptions) *App {
	opts.View = view
	loop := NewRenderLoop(opts)
	loop.Start()
	return &App{loop: loop}
}

// Run runs a TUI app with full terminal handling: raw mode, hidden
// cursor, bracketed paste, SIGWINCH resizes and key routing. On any
// uncaught panic the terminal is restored (cursor shown, raw mode off,
// SGR reset) before the panic is rethrown.
func Run(view func() gox.VNode, opts RunOptions) {
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	width, height := opts.Width, opts.Height
	if width == 0 || height == 0 {
		if w, h, err := TerminalSize(); err == nil {
			if width == 0 {
				width = w
			}
			if height == 0 {
				height = h
			}
		}
	}
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	var profiler *Profiler
	if opts.Profile || opts.ProfileHUD {
		profiler = NewProfiler(ProfilerOptions{HUD: opts.ProfileHUD, CountNodes: true})
	}

	// Raw mode for single-key input.
	var oldState *State
	if IsTerminal(os.Stdin) {
		if s, err := MakeRaw(os.Stdin); err == nil {
			oldState = s
		}
	}

	restore := func() {
		io.WriteString(output, ResetStyle())
		io.WriteString(output, ShowCursor())
		io.WriteString(output, DisableBracketedPaste())
		if oldState != nil {
			Restore(os.Stdin, oldState)
			oldState = nil
		}
	}

	// Fatal safety net: leave the terminal usable, then rethrow.
	defer func() {
		if r := recover(); r != nil {
			restore()
			panic(r)
		}
	}()

	Manager().SetErrorHandler(opts.OnError)

	sizeFn := func() (int, int) { return width, height }
	if opts.Width == 0 || opts.Height == 0 {
		// Follow SIGWINCH resizes.
		sizeFn = func() (int, int) {
			if w, h, err := TerminalSize(); err == nil {
				return w, h
			}
			return width, height
		}
	}

	loop := NewRenderLoop(LoopOptions{
		Output:   output,
		View:     view,
		SizeFunc: sizeFn,
		Profiler: profiler,
		OnError:  opts.OnError,
	})

	io.WriteString(output, HideCursor())
	io.WriteString(output, EnableBracketedPaste())
	io.WriteString(output, ClearScreen())

	loop.Start()

	app := &App{loop: loop}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGWINCH)

	done := make(chan struct{})
	var cleanedUp bool
	cleanup := func() {
		if cleanedUp {
			return
		}
		cleanedUp = true
		loop.Dispose()
		if opts.OnUnmount != nil {
			opts.OnUnmount()
		}
		if profiler != nil && opts.ProfileOut != nil {
			profiler.FlushJSON(opts.ProfileOut)
		}
		close(done)
	}
	app.quit = cleanup

	// Signal handling.
	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGWINCH:
				loop.RequestRender()
			case syscall.SIGINT, syscall.SIGTERM:
				cleanup()
				return
			}
		}
	}()

	// Key events may arrive before mount completes; buffer and replay
	// them in order.
	keyCh := make(chan string, 64)
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			key := string(buf[:n])
			if key == CtrlC {
				cleanup()
				return
			}
			select {
			case keyCh <- key:
			case <-done:
				return
			}
		}
	}()

	mounted := make(chan struct{})
	go func() {
		if opts.OnMount != nil {
			opts.OnMount(app)
		}
		close(mounted)
	}()

	var ticker *time.Ticker
	var tickCh <-chan time.Time
	if opts.OnTick != nil {
		interval := opts.TickInterval
		if interval <= 0 {
			interval = defaultFrameInterval
		}
		ticker = time.NewTicker(interval)
		tickCh = ticker.C
	}

	frameTicker := time.NewTicker(defaultFrameInterval)
	defer frameTicker.Stop()
	if ticker != nil {
		defer ticker.Stop()
	}

	var pendingKeys []string
	isMounted := false

	for {
		select {
		case <-done:
			restore()
			io.WriteString(output, ClearScreen())
			return
		case <-mounted:
			isMounted = true
			mounted = nil
			for _, key := range pendingKeys {
				HandleKey(key)
			}
			pendingKeys = nil
		case key := <-keyCh:
			if !isMounted {
				pendingKeys = append(pendingKeys, key)
				continue
			}
			HandleKey(key)
		case <-tickCh:
			opts.OnTick()
		case <-loop.Wake():
			loop.Flush()
		case <-frameTicker.C:
			loop.Flush()
		}
	}
}

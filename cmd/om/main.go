package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/ordermachine/internal/datasource"
	"github.com/vanderheijden86/ordermachine/pkg/config"
	"github.com/vanderheijden86/ordermachine/pkg/debug"
	"github.com/vanderheijden86/ordermachine/pkg/editor"
	"github.com/vanderheijden86/ordermachine/pkg/export"
	"github.com/vanderheijden86/ordermachine/pkg/metrics"
	"github.com/vanderheijden86/ordermachine/pkg/model"
	"github.com/vanderheijden86/ordermachine/pkg/script"
	"github.com/vanderheijden86/ordermachine/pkg/storage"
	"github.com/vanderheijden86/ordermachine/pkg/ui"
	"github.com/vanderheijden86/ordermachine/pkg/version"
	"github.com/vanderheijden86/ordermachine/pkg/watcher"
)

// sessionRetention bounds how long unused session slots are kept.
const sessionRetention = 30 * 24 * time.Hour

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	docPath := flag.String("doc", "", "Page document to edit (HTML page or JSON document)")
	pageURL := flag.String("url", "", "Page URL; a #restore fragment replays the state saved on submit")
	robotDump := flag.Bool("robot-dump", false, "Print regions, ordered rows and sections as JSON and exit")
	exportPath := flag.String("export", "", "Write a layout snapshot (.svg, .png or .md) and exit")
	region := flag.String("region", "", "Region to activate (robot dump and export also filter by it)")
	noWatch := flag.Bool("no-watch", false, "Disable live reload of the document")
	noHooks := flag.Bool("no-hooks", false, "Skip pre-save and post-save hooks from .om/hooks.yaml")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: om -doc <page.html|page.json> [options]")
		fmt.Println("\nA terminal content editor: arrange content rows into regions and sections.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("om %s\n", version.Version)
		os.Exit(0)
	}

	if *docPath == "" && flag.NArg() > 0 {
		*docPath = flag.Arg(0)
	}
	if *docPath == "" {
		fmt.Fprintln(os.Stderr, "Error: no document given (use -doc <path>)")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	doc, src, err := datasource.NewLoader().Load(*docPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", *docPath, err)
		os.Exit(1)
	}
	if *pageURL == "" {
		*pageURL = fileURL(src.Path)
	}

	interactive := !*robotDump && *exportPath == "" && term.IsTerminal(int(os.Stdout.Fd()))

	stores := openStores(cfg)
	defer stores.Close()

	var dispatch ui.Dispatcher
	opts := editor.OptionsFromConfig(cfg)
	opts.Session = stores.session
	opts.Local = stores.local
	if interactive {
		opts.Post = dispatch.Post
	}
	newEditor := func(doc *model.Document) *editor.Editor {
		o := opts
		o.Viewport = editor.NewWindow(24 * float64(cfg.UI.RowHeight))
		return editor.New(doc, datasource.NewFormset(doc), o)
	}

	e := newEditor(doc)
	defer e.Close()

	scriptOut := io.Writer(os.Stderr)
	if interactive {
		scriptOut = io.Discard
	}
	if err := runScripts(e, cfg.Scripts, scriptOut); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	url := e.Start(*pageURL)
	if *region != "" {
		if !e.Regions().IsKnown(*region) {
			fmt.Fprintf(os.Stderr, "Error: unknown region %q\n", *region)
			os.Exit(2)
		}
		e.SwitchRegion(*region)
	}

	switch {
	case *exportPath != "":
		err := export.SaveSnapshot(export.SnapshotOptions{
			Path:    *exportPath,
			Title:   filepath.Base(src.Path),
			Rows:    e.Rows(),
			Regions: e.Regions(),
			Plugins: e.Plugins(),
			Region:  *region,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", *exportPath)

	case *robotDump || !interactive:
		if !*robotDump {
			fmt.Fprintln(os.Stderr, "stdout is not a terminal; printing the robot dump")
		}
		if err := writeRobotDump(os.Stdout, e, src, *region); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing robot dump: %v\n", err)
			os.Exit(1)
		}

	default:
		m := ui.NewModel(e, ui.Options{
			PageURL:  url,
			SavePath: savePath(src),
			HooksDir: hooksDir(src, *noHooks),
			Config:   cfg,
			Watcher:  startWatcher(src.Path, *noWatch),
			Reload: func(doc *model.Document) *editor.Editor {
				next := newEditor(doc)
				next.Start(url)
				return next
			},
		})
		if f := debugLogFile(); f != nil {
			defer f.Close()
		}
		if err := runTUIProgram(m, &dispatch); err != nil {
			fmt.Printf("Error running content editor: %v\n", err)
			os.Exit(1)
		}
	}

	if debug.Enabled() {
		debug.Dump("timings", metrics.AllTimingStats())
		for _, c := range metrics.AllCounters() {
			debug.Dump(c.Name(), c.Stats())
		}
	}
}

type stores struct {
	session storage.Store
	local   storage.Store
	sqlite  *storage.SQLite
}

func (s stores) Close() {
	if s.sqlite != nil {
		s.sqlite.Close()
	}
}

// openStores opens the SQLite session slot and the diskv local store. A
// session database that cannot be opened degrades to memory.
func openStores(cfg config.Config) stores {
	s := stores{local: storage.OpenDiskv(cfg.LocalDirPath())}
	db, err := storage.OpenSQLite(cfg.SessionDBPath(), cfg.Storage.SessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: session store unavailable: %v\n", err)
		s.session = storage.NewMemory()
		return s
	}
	n, err := db.Prune(time.Now().Add(-sessionRetention))
	debug.LogIf(err != nil, "session prune failed: %v", err)
	debug.LogIf(n > 0, "pruned %d stale session slots", n)
	s.session, s.sqlite = db, db
	return s
}

// runScripts runs the configured page scripts before the editor starts, so
// their ready and activate listeners see the initial broadcasts.
func runScripts(e *editor.Editor, paths []string, out io.Writer) error {
	if len(paths) == 0 {
		return nil
	}
	host := script.New(e)
	host.SetOutput(out)
	var errs []error
	for _, p := range paths {
		if err := host.RunFile(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeRobotDump(w io.Writer, e *editor.Editor, src datasource.Source, region string) error {
	d := export.BuildRobotDump(e.Rows(), e.Regions(), e.Plugins())
	d.Version = version.Version
	d.Document = src.Path
	d.AllowChange = e.Context().AllowChange
	d.Active = e.Active()
	if region != "" {
		var kept []export.RobotRegion
		for _, r := range d.Regions {
			if r.Key == region {
				kept = append(kept, r)
			}
		}
		d.Regions = kept
	}
	return export.WriteRobotJSON(w, d)
}

// savePath is where the editor writes the document. HTML pages are never
// overwritten; their edits go to a JSON document next to them.
func savePath(src datasource.Source) string {
	if src.Format == datasource.FormatJSON {
		return src.Path
	}
	return strings.TrimSuffix(src.Path, filepath.Ext(src.Path)) + ".json"
}

// hooksDir is the directory whose .om/hooks.yaml applies to saves of src.
func hooksDir(src datasource.Source, disabled bool) string {
	if disabled {
		return ""
	}
	return filepath.Dir(savePath(src))
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}

func startWatcher(path string, disabled bool) *watcher.Watcher {
	if disabled {
		return nil
	}
	w, err := watcher.NewWatcher(path, watcher.WithOnError(func(err error) {
		debug.Log("watcher: %v", err)
	}))
	if err != nil {
		debug.Log("watcher: %v", err)
		return nil
	}
	if err := w.Start(); err != nil {
		debug.Log("watcher: %v", err)
		return nil
	}
	return w
}

// debugLogFile moves debug output into a file while the terminal UI owns
// the screen. It returns nil when debug logging is off.
func debugLogFile() *os.File {
	if !debug.Enabled() {
		return nil
	}
	path := os.Getenv("OM_DEBUG_LOG")
	if path == "" {
		path = "om-debug.log"
	}
	f, err := tea.LogToFile(path, "om")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: debug log: %v\n", err)
		return nil
	}
	debug.SetOutput(f)
	return f
}

func runTUIProgram(m ui.Model, dispatch *ui.Dispatcher) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)
	dispatch.Attach(p.Send)
	defer dispatch.Detach()

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set OM_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("OM_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

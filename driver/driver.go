// Package driver implements the Driver state machine (spec section 4.6):
// parse args, fingerprint when possible, serve from the Cache Store on
// hit, otherwise run the wrapped tool and write through. Grounded on
// cmd/build.go's runBuild — the same open/defer-close-db, then
// signal.Notify-into-a-goroutine-with-cleanup shape, here driving one
// cacheable tool invocation instead of a whole port build.
package driver

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"tidycache/argparser"
	"tidycache/cacheconfig"
	"tidycache/eviction"
	"tidycache/fingerprint"
	"tidycache/invoclog"
	"tidycache/log"
	"tidycache/store"
)

// Outcome classifies how one Run resolved, mirroring the state machine's
// three terminal states (spec 4.6).
type Outcome int

const (
	Uncacheable Outcome = iota
	Hit
	Miss
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	default:
		return "uncacheable"
	}
}

// Driver owns the long-lived, process-scoped collaborators a single
// invocation's state machine walks through.
type Driver struct {
	Config      *cacheconfig.Config
	Store       *store.Store
	Log         *invoclog.DB // may be nil: invocation logging is best-effort
	VersionMemo *fingerprint.VersionMemo
	BuildMemo   *fingerprint.BuildDirMemo

	Stdout io.Writer
	Stderr io.Writer

	// OnEviction, if set, is called after a post-store eviction sweep that
	// deleted at least one entry (it fits Collector.NoteEviction). main
	// does not set it.
	OnEviction func(time.Time)

	// Logger receives warnings for degradation paths (version probe
	// failure, fingerprint failure, cache write failure). Defaults to
	// log.NoOpLogger; main wires log.StderrLogger when debug tracing is
	// wanted, since stdout must stay reserved for tool output.
	Logger log.LibraryLogger
}

// New returns a Driver wired to cfg and st, with fresh process-local
// memoization tables.
func New(cfg *cacheconfig.Config, st *store.Store, invLog *invoclog.DB) *Driver {
	return &Driver{
		Config:      cfg,
		Store:       st,
		Log:         invLog,
		VersionMemo: fingerprint.NewVersionMemo(),
		BuildMemo:   fingerprint.NewBuildDirMemo(),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Logger:      log.NoOpLogger{},
	}
}

// Run executes one pass of the state machine for `<tool_binary> [args...]`
// and returns the tool's exit code (or 1 on a Driver-side failure that
// leaves no tool exit code to mirror).
func (d *Driver) Run(ctx context.Context, toolArgs []string) int {
	if len(toolArgs) == 0 {
		return 1
	}
	tool := toolArgs[0]
	rest := toolArgs[1:]

	runID := uuid.NewString()
	started := time.Now()

	parsed := argparser.Parse(rest)
	parsed.ApplyProjectDefaults()

	if parsed.SourceFile == "" {
		code := d.runUncacheable(ctx, tool, rest)
		d.recordRun(runID, started, tool, "", "", Uncacheable, code)
		return code
	}

	version, err := d.VersionMemo.Get(tool)
	if err != nil {
		// Version probe failure means fingerprinting is impossible; degrade
		// to an uncacheable passthrough rather than fail the invocation.
		d.Logger.Warn("version probe failed for %s, running uncached: %v", tool, err)
		code := d.runUncacheable(ctx, tool, rest)
		d.recordRun(runID, started, tool, parsed.SourceFile, "", Uncacheable, code)
		return code
	}

	var index *fingerprint.CompileCommandIndex
	if parsed.BuildPath != "" {
		index, _ = d.BuildMemo.Get(parsed.BuildPath) // nil index on any load failure
	}

	in := fingerprint.Input{
		ToolBinary:   tool,
		SourceFile:   parsed.SourceFile,
		BuildPath:    parsed.BuildPath,
		ConfigFile:   parsed.ConfigFile,
		ResidualArgs: parsed.ResidualArgs,
	}

	digest, err := fingerprint.Compute(in, version, index)
	if err != nil {
		d.Logger.Warn("fingerprint computation failed for %s, running uncached: %v", parsed.SourceFile, err)
		code := d.runUncacheable(ctx, tool, rest)
		d.recordRun(runID, started, tool, parsed.SourceFile, "", Uncacheable, code)
		return code
	}

	if rec, ok := d.Store.Lookup(digest); ok {
		d.Config.IncStat(cacheconfig.StatHits, 1)
		d.emit(rec)
		d.recordRun(runID, started, tool, parsed.SourceFile, digest, Hit, rec.ReturnCode)
		return rec.ReturnCode
	}

	d.Config.IncStat(cacheconfig.StatMisses, 1)
	rec, err := d.runCaptured(ctx, tool, rest)
	if err != nil {
		// Process could not even start (e.g. binary missing): nothing to
		// cache, nothing to emit beyond the synthetic failure code.
		d.recordRun(runID, started, tool, parsed.SourceFile, digest, Miss, rec.ReturnCode)
		return rec.ReturnCode
	}

	if store.WorthCaching(rec) {
		if werr := d.Store.Store(digest, rec); werr == nil {
			d.afterStore()
		} else {
			d.Logger.Warn("failed to write cache entry %s: %v", digest, werr)
		}
		// The tool's own result still reaches the caller uncorrupted either way.
	}

	d.emit(rec)
	d.recordRun(runID, started, tool, parsed.SourceFile, digest, Miss, rec.ReturnCode)
	return rec.ReturnCode
}

// afterStore implements the miss-side tail of the state machine: bump
// invocations_since_cleanup and maybe evict (spec 4.4 "Trigger").
func (d *Driver) afterStore() {
	d.Config.IncStat(cacheconfig.StatInvocationsSinceCleanup, 1)

	interval := d.Config.GetInt64(cacheconfig.KeyCleanupInterval)
	if d.Config.GetStat(cacheconfig.StatInvocationsSinceCleanup) < interval {
		return
	}

	maxSize := d.Config.GetInt64(cacheconfig.KeyMaxCacheSize)
	threshold := d.Config.GetFloat64(cacheconfig.KeyCleanupThreshold)
	target := d.Config.GetFloat64(cacheconfig.KeyCleanupTarget)

	result, err := eviction.Sweep(d.Store, maxSize, threshold, target)
	d.Config.SetStat(cacheconfig.StatInvocationsSinceCleanup, 0)
	if err == nil && result.Evicted > 0 && d.OnEviction != nil {
		d.OnEviction(time.Now())
	}
}

func (d *Driver) emit(rec store.Record) {
	io.WriteString(d.Stdout, rec.Stdout)
	io.WriteString(d.Stderr, rec.Stderr)
}

// runUncacheable runs the tool with streams connected directly,
// bypassing capture entirely (spec 4.6, UNCACHEABLE branch).
func (d *Driver) runUncacheable(ctx context.Context, tool string, args []string) int {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = d.Stdout
	cmd.Stderr = d.Stderr
	cmd.Stdin = os.Stdin
	setProcessGroup(cmd)

	stop := forwardSignals(cmd)
	defer stop()

	if err := cmd.Run(); err != nil {
		return exitCodeOf(err)
	}
	return 0
}

// runCaptured runs the tool with stdout/stderr captured into a Record
// instead of forwarded, so a cacheable result can be written through
// (spec 4.6, MISS branch).
func (d *Driver) runCaptured(ctx context.Context, tool string, args []string) (store.Record, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Stdin = os.Stdin
	setProcessGroup(cmd)

	stop := forwardSignals(cmd)
	defer stop()

	err := cmd.Run()
	rec := store.Record{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ReturnCode: exitCodeOf(err),
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return rec, err // the binary itself never ran
		}
	}
	return rec, nil
}

// setProcessGroup puts the child in its own process group so a forwarded
// signal reaches every process it may have spawned, not just the direct
// child (cmd/build.go forwards to a single tracked child; tidycache's
// wrapped tool is as likely to be a shell pipeline as a single binary).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// forwardSignals relays SIGINT/SIGTERM/SIGHUP received by this process to
// the child's process group via unix.Kill (spec section 5,
// "Cancellation"). Returns a stop function that must be deferred to
// release the signal channel.
func forwardSignals(cmd *exec.Cmd) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			if cmd.Process != nil {
				sysSig, _ := sig.(syscall.Signal)
				unix.Kill(-cmd.Process.Pid, sysSig)
			}
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}

// recordRun writes to the Invocation Log on a best-effort basis (spec
// section 7's write-failure policy: invocation logging never fails the
// caller). d.Log may be nil when history logging was disabled or its
// database could not be opened.
func (d *Driver) recordRun(runID string, started time.Time, tool, sourceFile, digest string, outcome Outcome, exitCode int) {
	if d.Log == nil {
		return
	}
	var logOutcome invoclog.Outcome
	switch outcome {
	case Hit:
		logOutcome = invoclog.OutcomeHit
	case Miss:
		logOutcome = invoclog.OutcomeMiss
	default:
		logOutcome = invoclog.OutcomeUncacheable
	}
	_ = d.Log.RecordRun(invoclog.RunRecord{
		RunID:      runID,
		StartedAt:  started,
		ToolBinary: tool,
		SourceFile: sourceFile,
		Digest:     digest,
		Outcome:    logOutcome,
		ExitCode:   exitCode,
	})
}

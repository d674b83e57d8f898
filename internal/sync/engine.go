package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dl-alexandre/phonesync/internal/ftpclient"
	"github.com/dl-alexandre/phonesync/internal/logging"
	"github.com/dl-alexandre/phonesync/internal/profile"
	"github.com/dl-alexandre/phonesync/internal/sync/exclude"
	"github.com/dl-alexandre/phonesync/internal/sync/executor"
	"github.com/dl-alexandre/phonesync/internal/sync/index"
	"github.com/dl-alexandre/phonesync/internal/sync/match"
	"github.com/dl-alexandre/phonesync/internal/sync/scanner"
	"github.com/dl-alexandre/phonesync/internal/sync/watermark"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// State is the lifecycle position of a run
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateListing      State = "listing"
	StateTransferring State = "transferring"
	StateCommitting   State = "committing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Recorder persists run history. *index.DB implements it.
type Recorder interface {
	UpsertRun(ctx context.Context, run index.RunRecord) error
	InsertTransfer(ctx context.Context, t index.TransferRecord) error
}

type Options struct {
	// DryRun lists and decides without downloading or committing
	DryRun bool
	// Exclusions defaults to the built-in set when nil
	Exclusions *exclude.Set
	// Location converts remote modify times; defaults to time.Local
	Location *time.Location
	TraceID  string
}

type Stats struct {
	Seen       int   `json:"seen"`
	Ignored    int   `json:"ignored"`
	Filtered   int   `json:"filtered"`
	Skipped    int   `json:"skipped"`
	Downloaded int   `json:"downloaded"`
	Unsafe     int   `json:"unsafe"`
	Bytes      int64 `json:"bytes"`
}

// Transfer is one file downloaded (or, in a dry run, to be downloaded)
type Transfer struct {
	RemotePath string `json:"remotePath"`
	LocalPath  string `json:"localPath"`
	Size       int64  `json:"size"`
}

type Result struct {
	RunID             string     `json:"runId"`
	Profile           string     `json:"profile"`
	State             State      `json:"state"`
	DryRun            bool       `json:"dryRun"`
	StartedAt         time.Time  `json:"startedAt"`
	FinishedAt        time.Time  `json:"finishedAt"`
	PreviousWatermark time.Time  `json:"previousWatermark"`
	Watermark         time.Time  `json:"watermark"`
	Marker            string     `json:"marker,omitempty"`
	Stats             Stats      `json:"stats"`
	Transfers         []Transfer `json:"transfers"`
	Warnings          []string   `json:"warnings,omitempty"`
	Error             error      `json:"-"`
}

// Engine runs incremental syncs of one profile at a time
type Engine struct {
	dialer     ftpclient.Dialer
	downloader *executor.Downloader
	watermarks *watermark.Store
	recorder   Recorder
	logger     logging.Logger
	state      State
}

func NewEngine(dialer ftpclient.Dialer, downloader *executor.Downloader, watermarks *watermark.Store, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if downloader == nil {
		downloader = executor.NewDownloader(executor.Options{Logger: logger})
	}
	if watermarks == nil {
		watermarks = watermark.NewStore(logger)
	}
	return &Engine{
		dialer:     dialer,
		downloader: downloader,
		watermarks: watermarks,
		logger:     logger,
		state:      StateIdle,
	}
}

// WithRecorder enables run history
func (e *Engine) WithRecorder(r Recorder) *Engine {
	e.recorder = r
	return e
}

// State returns the state of the current or last run
func (e *Engine) State() State {
	return e.state
}

type run struct {
	engine  *Engine
	ctx     context.Context
	logger  logging.Logger
	profile profile.SyncProfile
	opts    Options
	exts    *match.Extensions
	session ftpclient.Session
	result  *Result
}

// Run performs one sync pass. The watermark advances only when every root
// was walked and every candidate transferred. Failures are returned both as
// the error and in Result.Error.
func (e *Engine) Run(ctx context.Context, p profile.SyncProfile, opts Options) (Result, error) {
	logger := e.logger
	if opts.TraceID != "" {
		logger = logger.WithTraceID(opts.TraceID)
	}
	if opts.Exclusions == nil {
		opts.Exclusions = exclude.New(nil)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	result := Result{
		RunID:     uuid.New().String(),
		Profile:   p.Name,
		DryRun:    opts.DryRun,
		StartedAt: time.Now(),
		Transfers: []Transfer{},
	}
	r := &run{engine: e, ctx: ctx, logger: logger, profile: p, opts: opts, result: &result}
	e.setState(logger, StateIdle)

	if err := p.Validate(); err != nil {
		return r.fail(fmt.Errorf("%w: %v", ErrInvalidProfile, err))
	}
	if err := profile.CheckLocalDirectory(p.LocalDirectory); err != nil {
		return r.fail(&LocalDirectoryError{Dir: p.LocalDirectory, Err: err})
	}
	r.exts = match.NewExtensions(p.Extensions)
	r.record(index.RunStateRunning)

	e.setState(logger, StateConnecting)
	endpoint := ftpclient.Endpoint{Host: p.RemoteHost, Port: p.Port, Username: p.Username, Password: p.Password}
	session, err := e.dialer.Dial(ctx, endpoint)
	if err != nil {
		return r.fail(&ConnectionError{
			Addr:         endpoint.Address(),
			AuthRejected: ftpclient.IsAuthRejected(err),
			Err:          err,
		})
	}
	r.session = session
	defer func() {
		if quitErr := session.Quit(); quitErr != nil {
			logger.Debug("Error closing FTP session", logging.F("error", quitErr.Error()))
		}
	}()
	logger.Info("Connected", logging.F("address", endpoint.Address()), logging.F("profile", p.Name))

	e.setState(logger, StateListing)
	snapshot, err := e.watermarks.Read(p.LocalDirectory)
	if err != nil {
		return r.fail(err)
	}
	result.PreviousWatermark = snapshot.Watermark
	logger.Info("Watermark loaded",
		logging.F("watermark", watermark.Format(snapshot.Watermark)),
		logging.F("markers", len(snapshot.Markers)),
	)

	walker := scanner.NewRemoteWalker(session, opts.Exclusions, opts.Location).WithLogger(logger)
	for _, root := range p.RemoteDirectories {
		logger.Info("Walking remote directory", logging.F("root", root))
		if err := walker.Walk(ctx, root, r.visit); err != nil {
			return r.fail(err)
		}
	}

	if opts.DryRun {
		logger.Info("Dry run complete; watermark left unchanged",
			logging.F("candidates", result.Stats.Downloaded),
		)
		return r.finish()
	}

	e.setState(logger, StateCommitting)
	next := e.watermarks.Next(snapshot.Watermark)
	marker, err := e.watermarks.Commit(p.LocalDirectory, next, snapshot.Markers)
	var cleanupErr *CleanupError
	switch {
	case errors.As(err, &cleanupErr):
		r.warn(cleanupErr.Error())
	case err != nil:
		return r.fail(err)
	}
	result.Watermark = next
	result.Marker = marker

	return r.finish()
}

// visit handles one remote file: extension, then watermark, then local state
func (r *run) visit(entry scanner.RemoteEntry) error {
	stats := &r.result.Stats
	stats.Seen++

	if !r.exts.Match(entry.Name) {
		stats.Ignored++
		return nil
	}
	if entry.ModifiedAt != nil && entry.ModifiedAt.Before(r.result.PreviousWatermark) {
		stats.Filtered++
		return nil
	}

	target, err := executor.Target(r.profile.LocalDirectory, entry)
	if err != nil {
		stats.Unsafe++
		r.warn(fmt.Sprintf("skipping %s: %v", entry.Path(), err))
		return nil
	}

	decision, err := executor.Decide(target, entry.Size)
	if err != nil {
		return &TransferError{RemotePath: entry.Path(), LocalPath: target, Err: err}
	}
	switch decision {
	case executor.DecisionSkip:
		stats.Skipped++
		r.logger.Debug("Already synced", logging.F("file", target))
		return nil
	case executor.DecisionConflict:
		stats.Unsafe++
		r.warn(fmt.Sprintf("skipping %s: %s exists and is not a regular file", entry.Path(), target))
		return nil
	}

	if r.opts.DryRun {
		stats.Downloaded++
		stats.Bytes += entry.Size
		r.addTransfer(entry, target, entry.Size, index.ActionWouldDownload)
		r.logger.Info("Would download", logging.F("remote", entry.Path()), logging.F("local", target))
		return nil
	}

	r.engine.setState(r.logger, StateTransferring)
	written, err := r.engine.downloader.Fetch(r.ctx, r.session, entry, target)
	if err != nil {
		return err
	}
	r.engine.setState(r.logger, StateListing)

	stats.Downloaded++
	stats.Bytes += written
	r.addTransfer(entry, target, written, index.ActionDownloaded)
	r.logger.Info("Downloaded",
		logging.F("remote", entry.Path()),
		logging.F("local", target),
		logging.F("size", humanize.Bytes(uint64(written))),
	)
	return nil
}

func (r *run) addTransfer(entry scanner.RemoteEntry, target string, size int64, action string) {
	r.result.Transfers = append(r.result.Transfers, Transfer{
		RemotePath: entry.Path(),
		LocalPath:  target,
		Size:       size,
	})
	if r.engine.recorder == nil {
		return
	}
	err := r.engine.recorder.InsertTransfer(context.WithoutCancel(r.ctx), index.TransferRecord{
		RunID:       r.result.RunID,
		RemotePath:  entry.Path(),
		LocalPath:   target,
		Size:        size,
		Action:      action,
		CompletedAt: time.Now(),
	})
	if err != nil {
		r.logger.Warn("Failed to record transfer", logging.F("error", err.Error()))
	}
}

func (r *run) warn(msg string) {
	r.result.Warnings = append(r.result.Warnings, msg)
	r.logger.Warn(msg)
}

func (r *run) finish() (Result, error) {
	r.result.FinishedAt = time.Now()
	r.engine.setState(r.logger, StateDone)
	r.result.State = StateDone
	r.record(index.RunStateSucceeded)

	s := r.result.Stats
	r.logger.Info("Sync finished",
		logging.F("seen", s.Seen),
		logging.F("filtered", s.Filtered),
		logging.F("skipped", s.Skipped),
		logging.F("downloaded", s.Downloaded),
		logging.F("bytes", humanize.Bytes(uint64(s.Bytes))),
	)
	return *r.result, nil
}

func (r *run) fail(err error) (Result, error) {
	r.result.FinishedAt = time.Now()
	r.result.Error = err
	r.engine.setState(r.logger, StateFailed)
	r.result.State = StateFailed
	r.record(index.RunStateFailed)
	r.logger.Error("Sync failed; watermark not advanced", logging.F("error", err.Error()))
	return *r.result, err
}

func (r *run) record(state string) {
	if r.engine.recorder == nil {
		return
	}
	res := r.result
	rec := index.RunRecord{
		ID:                res.RunID,
		Profile:           res.Profile,
		TraceID:           r.opts.TraceID,
		LocalDirectory:    r.profile.LocalDirectory,
		StartedAt:         res.StartedAt,
		FinishedAt:        res.FinishedAt,
		State:             state,
		DryRun:            res.DryRun,
		FilesSeen:         res.Stats.Seen,
		FilesFiltered:     res.Stats.Filtered,
		FilesSkipped:      res.Stats.Skipped,
		FilesDownloaded:   res.Stats.Downloaded,
		BytesDownloaded:   res.Stats.Bytes,
		PreviousWatermark: formatWatermark(res.PreviousWatermark),
		NewWatermark:      formatWatermark(res.Watermark),
	}
	if res.Error != nil {
		rec.Error = res.Error.Error()
	}
	if err := r.engine.recorder.UpsertRun(context.WithoutCancel(r.ctx), rec); err != nil {
		r.logger.Warn("Failed to record run", logging.F("error", err.Error()))
	}
}

func (e *Engine) setState(logger logging.Logger, s State) {
	if e.state == s {
		return
	}
	logger.Debug("State transition", logging.F("from", string(e.state)), logging.F("to", string(s)))
	e.state = s
}

func formatWatermark(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return watermark.Format(t)
}

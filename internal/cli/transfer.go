package cli

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/dl-alexandre/phonesync/internal/config"
	"github.com/dl-alexandre/phonesync/internal/ftpclient"
	"github.com/dl-alexandre/phonesync/internal/logging"
	"github.com/dl-alexandre/phonesync/internal/profile"
	syncengine "github.com/dl-alexandre/phonesync/internal/sync"
	"github.com/dl-alexandre/phonesync/internal/sync/exclude"
	"github.com/dl-alexandre/phonesync/internal/sync/executor"
	"github.com/dl-alexandre/phonesync/internal/sync/index"
	"github.com/dl-alexandre/phonesync/internal/sync/scanner"
	"github.com/dl-alexandre/phonesync/internal/sync/watermark"
	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/dl-alexandre/phonesync/internal/utils"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var transferCmd = &cobra.Command{
	Use:     "transfer",
	Aliases: []string{"ftp"},
	Short:   "Copy files from a phone",
	Long:    "Commands that talk to the FTP server of the phone selected by --profile",
}

var transferExploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "List one remote directory",
	Long:  "List the raw MLSD entries of one remote directory, without descending.",
	Args:  cobra.NoArgs,
	RunE:  runTransferExplore,
}

var transferExtractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Download new media files",
	Long: `Walk the profile's remote directories and download every file with a
matching extension modified since the last successful run. Files land
flattened in the local directory; files already present with the same size
are skipped.

Profile flags override the stored profile for this run only.

Examples:
  phonesync transfer extract --profile pixel
  phonesync transfer extract --profile pixel --dry-run --json
  phonesync transfer extract --profile pixel --remote-directories /DCIM --limit-rate 2MiB`,
	Args: cobra.NoArgs,
	RunE: runTransferExtract,
}

var transferHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded sync runs",
	Args:  cobra.NoArgs,
	RunE:  runTransferHistory,
}

var (
	exploreDirectory  string
	extractLimitRate  string
	extractFlags      profileFlags
	historyLimit      int
	historyAllProfile bool
)

// newDialer is replaced in tests
var newDialer = func(opts ftpclient.Options) ftpclient.Dialer {
	return ftpclient.NewDialer(opts)
}

func init() {
	transferExploreCmd.Flags().StringVar(&exploreDirectory, "directory", "/", "Remote directory to list")

	extractFlags.register(transferExtractCmd, false)
	transferExtractCmd.Flags().StringVar(&extractLimitRate, "limit-rate", "", "Cap download throughput, e.g. 512KiB or 2MB (overrides rateLimit)")

	transferHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to show (0 for all)")
	transferHistoryCmd.Flags().BoolVar(&historyAllProfile, "all-profiles", false, "Show runs of every profile")

	transferCmd.AddCommand(transferExploreCmd)
	transferCmd.AddCommand(transferExtractCmd)
	transferCmd.AddCommand(transferHistoryCmd)
	rootCmd.AddCommand(transferCmd)
}

func runTransferExplore(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := commandContext(cmd)
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	dir := path.Clean("/" + exploreDirectory)

	cfg, err := loadConfig(flags)
	if err != nil {
		return writeFailure(out, "transfer.explore", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}
	store, err := openProfileStore(cfg, flags)
	if err != nil {
		return writeFailure(out, "transfer.explore", utils.NewCLIError(utils.ErrCodeProfileInvalid, err.Error()).Build())
	}
	rec, err := store.Get(flags.Profile)
	if err != nil {
		return writeFailure(out, "transfer.explore", cliErrorFor(err, utils.ErrCodeProfileNotFound))
	}
	endpoint, err := endpointFor(flags.Profile, rec)
	if err != nil {
		return writeFailure(out, "transfer.explore", cliErrorFor(err, utils.ErrCodeProfileInvalid))
	}

	dialer := newDialer(dialerOptions(cfg))
	session, err := dialer.Dial(ctx, endpoint)
	if err != nil {
		connErr := &syncengine.ConnectionError{Addr: endpoint.Address(), AuthRejected: ftpclient.IsAuthRejected(err), Err: err}
		return writeFailure(out, "transfer.explore", cliErrorFor(connErr, utils.ErrCodeConnectionError))
	}
	defer func() {
		if err := session.Quit(); err != nil {
			logger.Debug("Error closing FTP session", logging.F("error", err.Error()))
		}
	}()

	entries, err := scanner.ListDirectory(session, dir, time.Local)
	if err != nil {
		return writeFailure(out, "transfer.explore", cliErrorFor(err, utils.ErrCodeListingError))
	}

	listing := &types.RemoteListing{Directory: dir, Entries: make([]types.RemoteEntry, 0, len(entries))}
	for _, e := range entries {
		listing.Entries = append(listing.Entries, remoteEntryView(e))
	}
	out.Verbose("Listed %d entries in %s on %s", len(entries), dir, endpoint.Address())
	return out.WriteSuccess("transfer.explore", listing)
}

func runTransferExtract(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := commandContext(cmd)
	traceID := uuid.New().String()
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose).WithTraceID(traceID)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	runLogger := logger.WithContext(ctx)

	overrides, err := extractFlags.update(cmd)
	if err != nil {
		return writeFailure(out, "transfer.extract", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return writeFailure(out, "transfer.extract", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}

	rateBytes, err := cfg.RateLimitBytes()
	if extractLimitRate != "" {
		rateBytes, err = config.ParseRate(extractLimitRate)
	}
	if err != nil {
		return writeFailure(out, "transfer.extract", utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
	}

	store, err := openProfileStore(cfg, flags)
	if err != nil {
		return writeFailure(out, "transfer.extract", utils.NewCLIError(utils.ErrCodeProfileInvalid, err.Error()).Build())
	}
	p, err := profile.Resolve(store, newCredentialBackend(), flags.Profile, overrides)
	if err != nil {
		return writeFailure(out, "transfer.extract", cliErrorFor(err, utils.ErrCodeProfileInvalid))
	}

	downloader := executor.NewDownloader(executor.Options{
		Limiter:         ftpclient.NewLimiter(rateBytes),
		PreserveModTime: cfg.PreserveModTime,
		Logger:          runLogger,
	})
	engine := syncengine.NewEngine(newDialer(dialerOptions(cfg)), downloader, watermark.NewStore(runLogger), runLogger)

	if cfg.HistoryEnabled {
		db, err := openHistory()
		if err != nil {
			out.AddWarning("HISTORY_UNAVAILABLE", "Run history disabled: "+err.Error(), "warning")
		} else {
			defer db.Close()
			engine.WithRecorder(db)
		}
	}

	if rateBytes > 0 {
		out.Verbose("Throttling downloads to %s/s", humanize.IBytes(uint64(rateBytes)))
	}

	result, err := engine.Run(ctx, p, syncengine.Options{
		DryRun:     flags.DryRun,
		Exclusions: exclude.New(cfg.ExtraExclusions),
		TraceID:    traceID,
	})
	for _, w := range result.Warnings {
		out.AddWarning("SYNC_WARNING", w, "warning")
	}
	if err != nil {
		cliErr := cliErrorFor(err, utils.ErrCodeUnknown)
		if cliErr.Context == nil {
			cliErr.Context = map[string]interface{}{}
		}
		cliErr.Context["runId"] = result.RunID
		cliErr.Context["profile"] = p.Name
		return writeFailure(out, "transfer.extract", cliErr)
	}

	summary := summarizeResult(result)
	verb := "Downloaded"
	if result.DryRun {
		verb = "Would download"
	}
	out.Log("%s %d file(s), %s (%d seen, %d already present, %d older than %s)",
		verb,
		summary.Counts.Downloaded,
		humanize.IBytes(uint64(summary.Counts.Bytes)),
		summary.Counts.Seen,
		summary.Counts.Skipped,
		summary.Counts.Filtered,
		watermark.Format(result.PreviousWatermark),
	)
	return out.WriteSuccess("transfer.extract", summary)
}

func runTransferHistory(cmd *cobra.Command, args []string) error {
	flags := GetGlobalFlags()
	ctx := commandContext(cmd)
	out := NewOutputWriter(flags.OutputFormat, flags.Quiet, flags.Verbose)

	db, err := openHistory()
	if err != nil {
		return writeFailure(out, "transfer.history", utils.NewCLIError(utils.ErrCodeInternalError,
			"Failed to open run history: "+err.Error()).Build())
	}
	defer db.Close()

	profileName := flags.Profile
	if historyAllProfile {
		profileName = ""
	}
	runs, err := db.ListRuns(ctx, profileName, historyLimit)
	if err != nil {
		return writeFailure(out, "transfer.history", utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}

	history := &types.RunHistory{Runs: make([]types.RunSummary, 0, len(runs))}
	for _, r := range runs {
		history.Runs = append(history.Runs, runSummaryView(r))
	}
	return out.WriteSuccess("transfer.history", history)
}

func dialerOptions(cfg *config.Config) ftpclient.Options {
	return ftpclient.Options{
		Timeout:        cfg.GetConnectTimeout(),
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.GetRetryBaseDelay(),
		DebugOutput:    protocolTrace,
		Logger:         logger,
	}
}

// endpointFor resolves the connection part of a profile, including a
// keyring password
func endpointFor(name string, rec profile.Record) (ftpclient.Endpoint, error) {
	if rec.RemoteHost == "" {
		return ftpclient.Endpoint{}, fmt.Errorf("%w: profile '%s' has no remote_host", syncengine.ErrInvalidProfile, name)
	}
	password := rec.Password
	if rec.UsesKeyring() {
		var err error
		password, err = newCredentialBackend().Load(name)
		if err != nil {
			return ftpclient.Endpoint{}, fmt.Errorf("%w: %v", profile.ErrCredentialMissing, err)
		}
	}
	return ftpclient.Endpoint{
		Host:     rec.RemoteHost,
		Port:     rec.Port,
		Username: rec.Username,
		Password: password,
	}, nil
}

func openHistory() (*index.DB, error) {
	historyPath, err := config.GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return index.Open(historyPath)
}

func remoteEntryView(e scanner.RemoteEntry) types.RemoteEntry {
	kind := "file"
	switch {
	case e.IsDir:
		kind = "dir"
	case e.IsLink:
		kind = "link"
	}
	return types.RemoteEntry{
		Name:       e.Name,
		Path:       e.Path(),
		Type:       kind,
		Size:       e.Size,
		ModifiedAt: e.ModifiedAt,
	}
}

func summarizeResult(res syncengine.Result) *types.SyncSummary {
	summary := &types.SyncSummary{
		RunID:             res.RunID,
		Profile:           res.Profile,
		State:             string(res.State),
		DryRun:            res.DryRun,
		StartedAt:         res.StartedAt,
		FinishedAt:        res.FinishedAt,
		PreviousWatermark: res.PreviousWatermark,
		Marker:            res.Marker,
		Counts: types.SyncCounts{
			Seen:       res.Stats.Seen,
			Ignored:    res.Stats.Ignored,
			Filtered:   res.Stats.Filtered,
			Skipped:    res.Stats.Skipped,
			Downloaded: res.Stats.Downloaded,
			Unsafe:     res.Stats.Unsafe,
			Bytes:      res.Stats.Bytes,
		},
		Transfers: make([]types.TransferItem, 0, len(res.Transfers)),
	}
	if !res.Watermark.IsZero() {
		wm := res.Watermark
		summary.Watermark = &wm
	}
	for _, t := range res.Transfers {
		summary.Transfers = append(summary.Transfers, types.TransferItem{
			RemotePath: t.RemotePath,
			LocalPath:  t.LocalPath,
			Size:       t.Size,
		})
	}
	return summary
}

func runSummaryView(r index.RunRecord) types.RunSummary {
	view := types.RunSummary{
		ID:         r.ID,
		Profile:    r.Profile,
		State:      r.State,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		Downloaded: r.FilesDownloaded,
		Bytes:      r.BytesDownloaded,
		Watermark:  r.NewWatermark,
		Error:      r.Error,
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		view.FinishedAt = &finished
	}
	return view
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tsukumogami/typoscan/internal/config"
	"github.com/tsukumogami/typoscan/internal/corpus"
	"github.com/tsukumogami/typoscan/internal/deps"
	"github.com/tsukumogami/typoscan/internal/errmsg"
	"github.com/tsukumogami/typoscan/internal/log"
	"github.com/tsukumogami/typoscan/internal/progress"
	"github.com/tsukumogami/typoscan/internal/results"
	"github.com/tsukumogami/typoscan/internal/scan"
	"github.com/tsukumogami/typoscan/internal/similarity"
	"github.com/tsukumogami/typoscan/internal/userconfig"
)

// scanFlags are shared by `scan` and `check`.
type scanFlags struct {
	threshold          float64
	checkpointInterval int
	workers            int
	corpusPath         string
	output             string
	append             bool
	failOnMatch        bool
	summary            bool
	update             bool
}

func (f *scanFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.threshold, "threshold", config.DefaultThreshold, "Report names scoring above this similarity (0 < t <= 1)")
	fs.IntVar(&f.checkpointInterval, "checkpoint-interval", config.DefaultCheckpointInterval, "Candidates scored between result checkpoints")
	fs.IntVar(&f.workers, "workers", 0, "Parallel workers (default: number of CPUs)")
	fs.StringVar(&f.corpusPath, "corpus", "", "Reference corpus file (default $TYPOSCAN_HOME/corpus/pypi.json.zst)")
	fs.StringVarP(&f.output, "output", "o", "", "Results file, .json or .yaml (default $TYPOSCAN_HOME/results/results-<time>.json)")
	fs.BoolVar(&f.append, "append", false, "Keep results already in the output file")
	fs.BoolVar(&f.failOnMatch, "fail-on-match", false, "Exit with status 8 when similar names are found")
	fs.BoolVar(&f.summary, "summary", false, "Print a markdown report when the scan finishes")
	fs.BoolVar(&f.update, "update", false, "Download a fresh corpus before scanning")
}

// scanSources are the dependency inputs of `scan`.
type scanSources struct {
	requirements []string
	github       []string
	treeFiles    []string
}

var (
	scanOpts    scanFlags
	scanSrcOpts scanSources
)

var scanCmd = &cobra.Command{
	Use:   "scan [package]...",
	Short: "Check dependency names against the PyPI corpus",
	Long: `Compare dependency names against every registered PyPI package and report
names that are similar but not identical.

Dependencies can be given as arguments, read from requirements files (-r,
use - for stdin), fetched from a GitHub repository (--github), or taken from
a pipdeptree JSON export (--tree-file). Version constraints, extras and
environment markers are stripped before comparison.

Results are written in checkpoints while the scan runs. Interrupting with
Ctrl-C stops the scan after in-flight names finish and keeps everything
scored so far.

Examples:
  typoscan scan reqeusts numpyy
  typoscan scan -r requirements.txt -r requirements-dev.txt
  typoscan scan --github psf/requests:requirements-dev.txt@main
  pip freeze | typoscan scan -r - --summary --fail-on-match`,
	Run: func(cmd *cobra.Command, args []string) {
		sources, err := buildSources(globalCtx, args, scanSrcOpts)
		if err != nil {
			fail(err, nil)
		}
		raw, err := deps.Collect(globalCtx, sources...)
		if err != nil {
			fail(err, nil)
		}
		exitWithCode(executeScan(globalCtx, cmd.Flags(), raw, scanOpts, nil))
	},
}

// buildSources turns command-line inputs into dependency sources.
func buildSources(ctx context.Context, args []string, src scanSources) ([]deps.Source, error) {
	var sources []deps.Source
	if len(args) > 0 {
		sources = append(sources, deps.StaticSource(args))
	}
	for _, path := range src.requirements {
		sources = append(sources, &deps.FileSource{Path: path})
	}
	for _, ref := range src.github {
		gh, err := deps.ParseGitHubRef(ref)
		if err != nil {
			return nil, err
		}
		gh.Client = deps.NewGitHubClient(ctx, newHTTPClient())
		sources = append(sources, gh)
	}
	for _, path := range src.treeFiles {
		sources = append(sources, &deps.TreeFileSource{Path: path, Logger: log.Default()})
	}
	if len(sources) == 0 {
		return nil, errNoInput
	}
	return sources, nil
}

// scanSettings is everything a run needs after flags, environment and
// config.toml have been resolved.
type scanSettings struct {
	threshold          float64
	checkpointInterval int
	workers            int
	corpusPath         string
	indexURL           string
	output             string
	format             results.Format
	append             bool
	update             bool
}

// resolveScanSettings applies flag > environment > config.toml > default.
func resolveScanSettings(fs *pflag.FlagSet, f scanFlags, start time.Time) (*scanSettings, error) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return nil, err
	}
	userCfg, err := userconfig.Load()
	if err != nil {
		return nil, err
	}

	threshold, err := userCfg.EffectiveThreshold(f.threshold, fs.Changed("threshold"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", similarity.ErrInvalidThreshold, err)
	}
	if err := similarity.ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	s := &scanSettings{
		threshold:          threshold,
		checkpointInterval: userCfg.EffectiveCheckpointInterval(f.checkpointInterval, fs.Changed("checkpoint-interval")),
		workers:            f.workers,
		corpusPath:         f.corpusPath,
		indexURL:           userCfg.EffectiveIndexURL(""),
		output:             f.output,
		append:             f.append,
		update:             f.update,
	}
	if s.checkpointInterval < 1 {
		return nil, fmt.Errorf("invalid --checkpoint-interval %d: must be at least 1", s.checkpointInterval)
	}
	if !fs.Changed("workers") {
		s.workers = config.GetWorkers()
	}
	if s.corpusPath == "" {
		s.corpusPath = cfg.CorpusFile
	}

	configured, err := results.ParseFormat(userCfg.ResultsFormat)
	if err != nil {
		return nil, err
	}
	if s.output == "" {
		s.format = configured
		s.output = cfg.ResultsFile(start, "."+configured.String())
	} else {
		s.format = results.FormatFromPath(s.output)
	}
	return s, nil
}

// flagTracker remembers everything successfully flushed so the command can
// report on the whole run without re-reading the results file.
type flagTracker struct {
	next scan.Checkpointer

	mu      sync.Mutex
	flushed similarity.ResultSet
}

func (t *flagTracker) Flush(rs similarity.ResultSet) error {
	if err := t.next.Flush(rs); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.flushed == nil {
		t.flushed = make(similarity.ResultSet)
	}
	t.flushed.Merge(rs)
	return nil
}

func (t *flagTracker) results() similarity.ResultSet {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushed.Sorted()
}

// scanOutcome is what a finished run reports back to the command.
type scanOutcome struct {
	summary  *scan.Summary
	settings *scanSettings
	corpus   int
	results  similarity.ResultSet
	flagged  []string
}

// runScan resolves settings, loads the corpus and scores the candidates.
func runScan(ctx context.Context, fs *pflag.FlagSet, raw []string, f scanFlags) (*scanOutcome, error) {
	start := time.Now()
	logger := log.Default()

	settings, err := resolveScanSettings(fs, f, start)
	if err != nil {
		return nil, err
	}
	out := &scanOutcome{settings: settings}

	candidates := deps.Candidates(raw)
	if len(candidates) == 0 {
		return out, &scan.Error{Kind: scan.KindConfiguration, Message: "cannot scan", Err: scan.ErrNoCandidates}
	}
	logger.Debug("normalized dependencies", "raw", len(raw), "candidates", len(candidates))

	var names corpus.Corpus
	if settings.update {
		names, err = updateCorpus(ctx, settings.indexURL, settings.corpusPath)
	} else {
		names, err = corpus.Load(settings.corpusPath)
	}
	if err != nil {
		return out, err
	}
	out.corpus = len(names)

	storeOpts := []results.StoreOption{results.WithFormat(settings.format), results.WithLogger(logger)}
	if settings.append {
		storeOpts = append(storeOpts, results.WithAppend())
	}
	tracker := &flagTracker{next: results.NewStore(settings.output, storeOpts...)}

	var counter *progress.Counter
	if !quietFlag && progress.ShouldShowProgress() {
		counter = progress.NewCounter("Scanning", len(candidates), os.Stderr)
	}

	summary, err := scan.Run(ctx, scan.Options{
		Candidates:         candidates,
		Corpus:             names,
		Threshold:          settings.threshold,
		CheckpointInterval: settings.checkpointInterval,
		Workers:            settings.workers,
		Store:              tracker,
		Logger:             logger,
		OnProgress: func(done, total int) {
			if counter != nil {
				counter.Update(done, total)
			}
		},
	})
	if counter != nil {
		counter.Finish()
	}

	out.summary = summary
	out.results = tracker.results()
	out.flagged = results.Flagged(out.results)
	return out, err
}

// executeScan runs a scan and prints its outcome, returning the exit code.
func executeScan(ctx context.Context, fs *pflag.FlagSet, raw []string, f scanFlags, errCtx *errmsg.ErrorContext) int {
	out, err := runScan(ctx, fs, raw, f)
	if errCtx == nil {
		errCtx = &errmsg.ErrorContext{}
	}
	if out != nil && out.settings != nil {
		errCtx.CorpusPath = out.settings.corpusPath
		errCtx.ResultsPath = out.settings.output
	}

	if err != nil {
		if errors.Is(err, context.Canceled) && out != nil && out.summary != nil {
			fmt.Fprintf(os.Stderr, "Interrupted after %d of %d dependencies; results so far are in %s\n",
				out.summary.Completed, out.summary.Candidates, out.settings.output)
			return ExitGeneral
		}
		printError(err, errCtx)
		return exitCodeFor(err)
	}

	s := out.summary
	if s.AllFailed() {
		fmt.Fprintf(os.Stderr, "Error: none of the %d dependencies could be scored; see warnings above\n", s.Candidates)
		return ExitAllFailed
	}

	printInfof("Scanned %s dependencies against %s package names in %s: %d with similar names\n",
		humanize.Comma(int64(s.Completed)),
		humanize.Comma(int64(out.corpus)),
		s.Duration.Round(time.Millisecond),
		len(out.flagged))
	if s.Failed > 0 {
		printInfof("Skipped %d dependencies that could not be scored\n", s.Failed)
	}
	printInfof("Results written to %s\n", out.settings.output)

	if f.summary {
		fmt.Print("\n" + results.Summary(out.results, results.ReportOptions{}))
	}

	if f.failOnMatch && len(out.flagged) > 0 {
		return ExitMatchesFound
	}
	return ExitSuccess
}

func init() {
	scanOpts.register(scanCmd.Flags())
	scanCmd.Flags().StringArrayVarP(&scanSrcOpts.requirements, "requirement", "r", nil, "Read dependencies from a requirements file (- for stdin)")
	scanCmd.Flags().StringArrayVar(&scanSrcOpts.github, "github", nil, "Read requirements from GitHub: owner/repo[:path][@ref]")
	scanCmd.Flags().StringArrayVar(&scanSrcOpts.treeFiles, "tree-file", nil, "Read dependencies from a pipdeptree --json export")
}

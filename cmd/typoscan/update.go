package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tsukumogami/typoscan/internal/config"
	"github.com/tsukumogami/typoscan/internal/corpus"
	"github.com/tsukumogami/typoscan/internal/errmsg"
	"github.com/tsukumogami/typoscan/internal/log"
	"github.com/tsukumogami/typoscan/internal/progress"
	"github.com/tsukumogami/typoscan/internal/userconfig"
)

var (
	updateOutput   string
	updateIndexURL string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the list of registered PyPI package names",
	Long: `Download every project name from the PyPI simple index and store it as
the reference corpus used by 'typoscan scan'.

The corpus is written to $TYPOSCAN_HOME/corpus/pypi.json.zst unless
--output is given. The output format follows the extension: .json, .json.gz
or .json.zst.

Examples:
  typoscan update
  typoscan update --index-url https://mirror.example/simple/
  typoscan update --output ./pypi.json.gz`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.DefaultConfig()
		if err != nil {
			fail(err, nil)
		}
		userCfg, err := userconfig.Load()
		if err != nil {
			fail(err, nil)
		}

		output := updateOutput
		if output == "" {
			output = cfg.CorpusFile
		}
		indexURL := userCfg.EffectiveIndexURL(updateIndexURL)

		c, err := updateCorpus(globalCtx, indexURL, output)
		if err != nil {
			fail(err, &errmsg.ErrorContext{CorpusPath: output})
		}
		printInfof("Saved %s package names to %s\n", humanize.Comma(int64(len(c))), output)
	},
}

// updateCorpus fetches the index and saves it, showing download progress
// on a terminal.
func updateCorpus(ctx context.Context, indexURL, output string) (corpus.Corpus, error) {
	logger := log.Default()
	logger.Info("downloading package index", "url", indexURL)
	start := time.Now()

	var pw *progress.Writer
	opts := []corpus.FetchOption{}
	if !quietFlag && progress.ShouldShowProgress() {
		opts = append(opts, corpus.WithProgress(func(total int64) io.Writer {
			pw = progress.NewWriter(total, os.Stderr)
			return pw
		}))
	}

	c, err := corpus.Fetch(ctx, newHTTPClient(), indexURL, opts...)
	if pw != nil {
		pw.Finish()
	}
	if err != nil {
		return nil, err
	}

	if err := corpus.Save(output, c); err != nil {
		return nil, fmt.Errorf("save corpus: %w", err)
	}
	logger.Info("corpus updated",
		"names", len(c),
		"path", output,
		"took", time.Since(start).Round(time.Millisecond))
	return c, nil
}

func init() {
	updateCmd.Flags().StringVarP(&updateOutput, "output", "o", "", "Corpus file to write (default $TYPOSCAN_HOME/corpus/pypi.json.zst)")
	updateCmd.Flags().StringVar(&updateIndexURL, "index-url", "", "Package index to download (default https://pypi.org/simple/)")
}

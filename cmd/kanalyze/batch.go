package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kanalyze-tools/kanalyze/internal/cache"
	"github.com/kanalyze-tools/kanalyze/internal/codemodel"
	"github.com/kanalyze-tools/kanalyze/internal/config"
	"github.com/kanalyze-tools/kanalyze/internal/metrics"
	"github.com/kanalyze-tools/kanalyze/internal/pipeline"
	"github.com/kanalyze-tools/kanalyze/internal/progress"
)

var batchArchive bool

var batchCmd = &cobra.Command{
	Use:   "batch <config.yaml>",
	Short: "Walk the configured source tree once and extract its code model",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchArchive, "archive", false, "keep the populated cache directory instead of treating it as scratch space")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}

	c, err := cache.Open(cfg.Cache.Dir, logger)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	defer func() {
		if !batchArchive {
			c.Close()
			return
		}
		if err := c.Close(); err != nil {
			logger.Warn("batch: failed to close cache cleanly", "error", err)
		}
	}()

	files, err := discoverSourceFiles(cfg.Source.Root, cfg.Source.Extensions)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}

	extractor := codemodel.NewExtractor(c)
	tracker := progress.Track("batch-extract", int64(len(files)))

	var extracted []codemodel.ExtractionResult
	p, err := pipeline.New(
		extractor.Extract,
		func(r codemodel.ExtractionResult) {
			extracted = append(extracted, r)
			tracker.OneDone()
			metrics.PipelineItemsEmitted.Inc()
		},
		cfg.Source.Workers,
		pipeline.WithLogger(logger),
		pipeline.WithDropHook(func(reason string) {
			metrics.PipelineItemsFailed.WithLabelValues(reason).Inc()
		}),
	)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("batch: skipping unreadable file", "path", path, "error", err)
			continue
		}
		if err := p.Add(codemodel.SourceFile{Path: path, Content: content}); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		metrics.PipelineItemsSubmitted.Inc()
	}

	p.End()
	p.Join()
	tracker.Close()

	logger.Info("batch extraction complete", "files", len(files), "extracted", len(extracted))
	return nil
}

// discoverSourceFiles walks root, returning files whose extension appears in
// extensions (case-insensitive, leading dot included, e.g. ".go"). An empty
// extensions list matches every regular file.
func discoverSourceFiles(root string, extensions []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if len(extensions) > 0 && !matchesExtension(path, extensions) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return files, nil
}

func matchesExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, want := range extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

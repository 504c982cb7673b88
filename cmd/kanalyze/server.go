package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kanalyze-tools/kanalyze/internal/cache"
	"github.com/kanalyze-tools/kanalyze/internal/codemodel"
	"github.com/kanalyze-tools/kanalyze/internal/config"
	"github.com/kanalyze-tools/kanalyze/internal/metrics"
	"github.com/kanalyze-tools/kanalyze/internal/netserver"
	"github.com/kanalyze-tools/kanalyze/internal/pipeline"
	"github.com/kanalyze-tools/kanalyze/internal/progress"
	"github.com/kanalyze-tools/kanalyze/internal/taskutil"
	"github.com/kanalyze-tools/kanalyze/internal/watcher"
)

var serverListen string

var serverCmd = &cobra.Command{
	Use:   "server <config.yaml>",
	Short: "Run the request/response server, watching the source tree for incremental changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVar(&serverListen, "listen", "", "override the config file's server.listen address (host::port)")
}

// diffHandler adapts a long-lived pipeline to the netserver.Handler
// contract: each message is a newline-separated list of file paths that
// changed, queued for extraction without waiting for the pipeline to drain
// them before replying.
type diffHandler struct {
	pipe *pipeline.Pipeline[codemodel.SourceFile, codemodel.ExtractionResult]

	mu      sync.Mutex
	summary string
}

func (h *diffHandler) Execute(message string) {
	lines := strings.Split(strings.TrimSpace(message), "\n")

	queued := 0
	for _, line := range lines {
		path := strings.TrimSpace(line)
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("server: skipping unreadable file", "path", path, "error", err)
			continue
		}
		if err := h.pipe.Add(codemodel.SourceFile{Path: path, Content: content}); err != nil {
			logger.Warn("server: pipeline rejected item", "path", path, "error", err)
			continue
		}
		queued++
		metrics.PipelineItemsSubmitted.Inc()
	}

	h.mu.Lock()
	h.summary = fmt.Sprintf("queued %d of %d changed files for extraction", queued, len(lines))
	h.mu.Unlock()
}

func (h *diffHandler) Summary() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.summary
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	listen := cfg.Server.Listen
	if serverListen != "" {
		listen = serverListen
	}

	c, err := cache.Open(cfg.Cache.Dir, logger)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	signals := taskutil.NewSignalManager()
	const shutdownSignal = "shutdown"

	extractor := codemodel.NewExtractor(c)
	tracker := progress.Track("server-extract", -1)

	p, err := pipeline.New(
		extractor.Extract,
		func(r codemodel.ExtractionResult) {
			tracker.OneDone()
			metrics.PipelineItemsEmitted.Inc()
			logger.Info("server: extracted file", "path", r.FilePath, "symbols", len(r.Symbols))
		},
		cfg.Source.Workers,
		pipeline.WithLogger(logger),
		pipeline.WithDropHook(func(reason string) {
			metrics.PipelineItemsFailed.WithLabelValues(reason).Inc()
		}),
	)
	if err != nil {
		c.Close()
		return fmt.Errorf("server: %w", err)
	}

	handler := &diffHandler{pipe: p}

	srv, err := netserver.Start(signals.Context(shutdownSignal), listen, handler, cfg.Source.Workers, logger)
	if err != nil {
		c.Close()
		return fmt.Errorf("server: %w", err)
	}

	fsWatcher, err := watcher.New(cfg.Source.Root, 0, logger)
	if err != nil {
		logger.Warn("server: change watcher disabled", "error", err)
	} else {
		go fsWatcher.Run(signals.Context(shutdownSignal), func(ev watcher.Event) {
			if ev.Kind == watcher.Removed {
				return
			}
			content, err := os.ReadFile(ev.Path)
			if err != nil {
				return
			}
			if err := p.Add(codemodel.SourceFile{Path: ev.Path, Content: content}); err == nil {
				metrics.PipelineItemsSubmitted.Inc()
			}
		})
	}

	shutdownDone := make(chan struct{})
	if err := signals.On(shutdownSignal, context.Background(),
		func(context.Context) error {
			defer close(shutdownDone)
			srv.Stop()
			p.End()
			p.Join()
			tracker.Close()
			return c.Close()
		},
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := signals.On(syscall.SIGINT, context.Background(), func(ctx context.Context) error {
		return signals.Trigger(shutdownSignal, ctx)
	}); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := signals.On(syscall.SIGTERM, context.Background(), func(ctx context.Context) error {
		return signals.Trigger(shutdownSignal, ctx)
	}); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	go func() {
		<-srv.Done()
		_ = signals.Trigger(shutdownSignal, context.Background())
	}()

	logger.Info("server listening", "address", listen)
	<-shutdownDone
	return nil
}

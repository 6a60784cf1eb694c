package daemon

import (
	"context"
	"fmt"

	"github.com/twilog/twilogd/internal/embedder"
	"github.com/twilog/twilogd/internal/postrepo"
	"github.com/twilog/twilogd/internal/searchengine"
	"github.com/twilog/twilogd/internal/statscache"
	"github.com/twilog/twilogd/internal/summaryrepo"
	"github.com/twilog/twilogd/internal/vectorstore"
)

// RunDaemon is the `_daemon` sub-command's body: it loads every store,
// reports progress over the reverse front channel, writes the PID file,
// signals init_completed, then serves JSON-RPC until
// ctx is cancelled or stop_server is called.
//
// embedFunc supplies the actual embedding model call; the model itself
// is out of scope here (see internal/embedder).
func RunDaemon(ctx context.Context, cfg Config, embedFunc embedder.Func) error {
	reporter, err := dialFront(cfg.FrontSocketPath(), cfg.Timeout)
	if err != nil {
		return fmt.Errorf("connect to front channel: %w", err)
	}
	defer reporter.Close()

	handler, err := loadHandler(cfg, embedFunc, reporter)
	if err != nil {
		_ = reporter.InitError(err)
		return err
	}

	pidFile := NewPIDFile(cfg.PIDPath)
	if err := pidFile.Write(); err != nil {
		_ = reporter.InitError(err)
		return fmt.Errorf("write PID file: %w", err)
	}
	defer pidFile.Remove()

	if err := reporter.InitCompleted(); err != nil {
		return fmt.Errorf("complete init handshake: %w", err)
	}

	server := NewServer(cfg.SocketPath, handler)
	return server.ListenAndServe(ctx)
}

// loadHandler performs every loading stage in sequence, reporting
// progress on reporter as it goes.
func loadHandler(cfg Config, embedFunc embedder.Func, reporter *ProgressReporter) (*Handler, error) {
	_ = reporter.Progress("loading embedding model")
	embed, err := embedder.New(embedFunc, cfg.ModelName, cfg.EmbedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	_ = reporter.Progress("loading content vector store")
	content, err := vectorstore.Load(cfg.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("load content vectors: %w", err)
	}

	var reasoning, summary *vectorstore.Store
	if cfg.ReasoningDir != "" {
		_ = reporter.Progress("loading reasoning vector store")
		reasoning, err = vectorstore.Load(cfg.ReasoningDir)
		if err != nil {
			return nil, fmt.Errorf("load reasoning vectors: %w", err)
		}
	}
	if cfg.SummaryDir != "" {
		_ = reporter.Progress("loading summary vector store")
		summary, err = vectorstore.Load(cfg.SummaryDir)
		if err != nil {
			return nil, fmt.Errorf("load summary vectors: %w", err)
		}
	}

	_ = reporter.Progress("loading post archive")
	posts := postrepo.New()
	if err := posts.Load(cfg.PostCSVPath); err != nil {
		return nil, fmt.Errorf("load post archive: %w", err)
	}

	summaries := summaryrepo.New()
	if cfg.SummaryJSONLPath != "" {
		_ = reporter.Progress("loading summary records")
		if err := summaries.Load(cfg.SummaryJSONLPath); err != nil {
			return nil, fmt.Errorf("load summary records: %w", err)
		}
	}

	_ = reporter.Progress("opening statistics cache")
	stats, err := statscache.Open(cfg.StatsCachePath)
	if err != nil {
		return nil, fmt.Errorf("open statistics cache: %w", err)
	}

	engine := searchengine.New(embed, content, reasoning, summary, posts, summaries)
	return NewHandler(embed, engine, posts, summaries, stats, cfg.PostCSVPath, cfg.ModelName), nil
}

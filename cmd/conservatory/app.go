package main

import (
	"context"
	"fmt"
	"path/filepath"

	"conservatory/internal/config"
	"conservatory/internal/enrichment"
	"conservatory/internal/perception"
	"conservatory/internal/session"
	"conservatory/internal/species"
	"conservatory/internal/store"
)

// app is the wired engine behind every subcommand.
type app struct {
	cfg       *config.Config
	store     *store.SQLiteStore
	library   *species.Library
	dataset   *enrichment.Dataset
	session   *session.Session
	queue     *enrichment.Queue
	watcher   *enrichment.DatasetWatcher   // nil unless library.watch_dataset
	discovery enrichment.NarrativeProvider // nil without an LLM client
}

// newApp opens the store and replays the journal. withLLM controls whether an
// API client is required; read-only commands work without a key.
func newApp(ctx context.Context, cfg *config.Config, withLLM bool) (*app, error) {
	st, err := store.NewSQLiteStore(filepath.Join(cfg.DataDir, "conservatory.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	library := species.NewLibrary(st,
		species.WithTTL(cfg.TTL()),
		species.WithMemoryCapacity(cfg.Library.MemoryCapacity),
	)
	dataset, err := enrichment.LoadDataset(cfg.Library.DatasetPath)
	if err != nil {
		st.Close()
		return nil, err
	}

	var parser session.IntentParser
	var discovery enrichment.NarrativeProvider
	if withLLM {
		client, err := perception.NewClientFromConfig(ctx, cfg.LLM)
		if err != nil {
			st.Close()
			return nil, err
		}
		parser = perception.NewTransducer(client, perception.NewIntentCache(cfg.Cache.IntentCapacity))
		discovery = enrichment.NewDiscoveryGenerator(client, cfg.DiscoveryTimeout())
	}

	sess, err := session.NewSession(ctx, st, parser, nil)
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		store:     st,
		library:   library,
		dataset:   dataset,
		session:   sess,
		discovery: discovery,
	}
	a.queue = enrichment.NewQueue(a.pipeline(discovery), sess.Projection())
	sess.SetScheduler(a.queue)

	if cfg.Library.WatchDataset {
		w, err := enrichment.NewDatasetWatcher(dataset)
		if err != nil {
			a.close()
			return nil, err
		}
		if err := w.Start(ctx); err != nil {
			a.close()
			return nil, err
		}
		a.watcher = w
	}
	return a, nil
}

// pipeline returns a fresh pipeline; handy for one-shot enrichment.
func (a *app) pipeline(discovery enrichment.NarrativeProvider) *enrichment.Pipeline {
	return enrichment.NewPipeline(
		a.dataset,
		enrichment.NewGBIFClient(a.cfg.Providers.GBIFBaseURL, a.cfg.ProviderTimeout()),
		enrichment.NewWikipediaClient(a.cfg.Providers.WikipediaBaseURL, a.cfg.ProviderTimeout()),
		enrichment.NewINaturalistClient(a.cfg.Providers.INaturalistBaseURL, a.cfg.ProviderTimeout()),
		discovery,
		a.library,
	)
}

func (a *app) close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.store != nil {
		a.store.Close()
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"conservatory/internal/ecosystem"
	"conservatory/internal/enrichment"
	"conservatory/internal/types"
	"conservatory/internal/world"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory, default config, and starter dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		configPath := filepath.Join(cfg.DataDir, "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", configPath)
		}

		datasetPath := cfg.Library.DatasetPath
		if _, err := os.Stat(datasetPath); os.IsNotExist(err) {
			if err := os.WriteFile(datasetPath, []byte(starterDatasetYAML), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", datasetPath)
		}

		fmt.Printf("conservatory initialized in %s\n", cfg.DataDir)
		return nil
	},
}

var (
	autoCommit bool
	skipEnrich bool
)

var logCmd = &cobra.Command{
	Use:   "log [transcript]",
	Short: "Parse a dictated observation and commit it to the journal",
	Long: `Parses a transcript into a structured intent, resolves entity references
against the collection, and commits the result as a domain event.

Without --yes the staged action is printed for review and discarded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.close()

		transcript := strings.Join(args, " ")
		action, err := a.session.ProcessTranscript(ctx, transcript)
		if err != nil {
			return err
		}
		printAction(action)

		switch action.Status {
		case types.PendingError:
			return fmt.Errorf("%s", action.Error)
		case types.PendingStrategyRequired:
			fmt.Println("\nambiguous reference; re-run with a more specific name")
			return nil
		}
		if !autoCommit {
			fmt.Println("\nstaged only; re-run with --yes to commit")
			return nil
		}

		event, err := a.session.Commit(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\ncommitted %s event %s\n", event.Type, event.EventID)

		if !skipEnrich && event.Type == types.EventAccessionEntity {
			return drainQueue(ctx, a, len(event.Payload.Entities))
		}
		return nil
	},
}

// drainQueue runs the enrichment queue until the committed entities reach a
// terminal status, then stops it.
func drainQueue(ctx context.Context, a *app, expected int) error {
	a.queue.OnProgress(func(entityID, stage string) {
		logger.Debug("enrichment stage complete", zap.String("entity", entityID), zap.String("stage", stage))
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.queue.Run(runCtx)

	fmt.Printf("enriching %d entities...\n", expected)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cancel()
			<-a.queue.Done()
			return ctx.Err()
		case <-ticker.C:
			if a.queue.Pending() == 0 && allSettled(a) {
				cancel()
				<-a.queue.Done()
				printEnrichmentSummary(a)
				return nil
			}
		}
	}
}

func allSettled(a *app) bool {
	for _, e := range a.session.Projection().All() {
		switch e.EnrichmentStatus {
		case types.EnrichmentQueued, types.EnrichmentPending:
			return false
		}
	}
	return true
}

func printEnrichmentSummary(a *app) {
	for _, e := range a.session.Projection().All() {
		if e.EnrichmentStatus == types.EnrichmentComplete || e.EnrichmentStatus == types.EnrichmentFailed {
			fmt.Printf("  %-24s %s\n", e.Name, e.EnrichmentStatus)
		}
	}
}

var enrichCmd = &cobra.Command{
	Use:   "enrich [species name]",
	Short: "Run the enrichment pipeline for one species",
	Long: `Runs the five enrichment stages for a species and caches the result:
local library, GBIF taxonomy, Wikipedia summary, iNaturalist photo, and an
AI-written discovery narrative. Cached records are reused until they expire.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.close()

		name := strings.Join(args, " ")
		if rec, err := a.library.Get(ctx, name, ""); err == nil && rec != nil {
			fmt.Printf("cache hit (expires %s)\n", time.UnixMilli(rec.ExpiresAt).Format("2006-01-02"))
			printRecord(rec)
			return nil
		}

		rec, err := a.queueEnrich(ctx, name)
		if errors.Is(err, enrichment.ErrNoData) {
			fmt.Printf("no data found for %q; cached a minimal record, try again later\n", name)
			return nil
		}
		if err != nil {
			return err
		}
		printRecord(rec)
		return nil
	},
}

// queueEnrich runs the pipeline directly for a one-shot command; the serial
// queue exists for session hosts with many entities in flight.
func (a *app) queueEnrich(ctx context.Context, name string) (*types.SpeciesRecord, error) {
	pipe := a.pipeline(a.discovery)
	return pipe.Enrich(ctx, name, "", func(stage string) {
		fmt.Printf("  %s done\n", stage)
	})
}

var healthCmd = &cobra.Command{
	Use:   "health [habitat name]",
	Short: "Score a habitat's ecosystem health",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		habitat, err := resolveHabitat(a, strings.Join(args, " "))
		if err != nil {
			return err
		}
		inhabitants := a.session.Projection().Inhabitants(habitat.ID)
		report := ecosystem.CalculateHabitatHealth(habitat, inhabitants, time.Now())

		fmt.Printf("%s: %d/100\n", habitat.Name, report.Score)
		fmt.Printf("  stability    %.0f\n", report.Factors.Stability)
		fmt.Printf("  biodiversity %.0f\n", report.Factors.Biodiversity)
		fmt.Printf("  recency      %.0f\n", report.Factors.Recency)
		for _, d := range report.Details {
			fmt.Printf("  - %s\n", d)
		}
		return nil
	},
}

var compatCmd = &cobra.Command{
	Use:   "compat [entity] [entity]",
	Short: "Check water-parameter compatibility between two entities",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		first, err := resolveEntity(a, args[0])
		if err != nil {
			return err
		}
		second, err := resolveEntity(a, args[1])
		if err != nil {
			return err
		}

		result := ecosystem.CheckCompatibility(first, second)
		if result.Compatible {
			fmt.Printf("compatible: %s\n", result.Reason)
		} else {
			fmt.Printf("NOT compatible: %s\n", result.Reason)
		}
		return nil
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend [entity] [parameter]",
	Short: "Show the recent direction of a logged parameter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		entity, err := resolveEntity(a, args[0])
		if err != nil {
			return err
		}
		label := args[1]
		trend := ecosystem.CalculateParameterTrend(entity.Observations, label)
		fmt.Printf("%s %s: %s\n", entity.Name, label, trend)

		if latest := entity.LatestObservation(label); latest != nil {
			fmt.Printf("latest: %.2f %s at %s\n", latest.Value, latest.Unit,
				time.UnixMilli(latest.Timestamp).Format(time.RFC822))
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the collection and enrichment state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.close()

		projection := a.session.Projection()
		habitats := projection.Habitats()
		fmt.Printf("%d entities, %d habitats, %d species cached in memory\n\n",
			projection.Len(), len(habitats), a.library.MemoryLen())

		for _, h := range habitats {
			fmt.Printf("%s\n", h.Name)
			for _, e := range projection.Inhabitants(h.ID) {
				printEntityLine(e)
			}
		}
		roaming := false
		for _, e := range projection.All() {
			if e.Type == types.EntityHabitat {
				continue
			}
			if e.HabitatID == "" || projection.Get(e.HabitatID) == nil {
				if !roaming {
					fmt.Println("(unassigned)")
					roaming = true
				}
				printEntityLine(e)
			}
		}
		return nil
	},
}

func printEntityLine(e *types.Entity) {
	name := e.Name
	if e.ScientificName != "" {
		name = fmt.Sprintf("%s (%s)", e.Name, e.ScientificName)
	}
	fmt.Printf("  %-40s %-12s enrichment: %s\n", name, e.Type, e.EnrichmentStatus)
}

func resolveHabitat(a *app, name string) (*types.Entity, error) {
	res := world.Resolve(name, a.session.Projection().Habitats())
	switch {
	case res.Match != nil:
		return res.Match, nil
	case res.Ambiguous:
		return nil, fmt.Errorf("several habitats match %q; be more specific", name)
	default:
		return nil, fmt.Errorf("no habitat matches %q", name)
	}
}

func resolveEntity(a *app, name string) (*types.Entity, error) {
	res := world.Resolve(name, a.session.Projection().All())
	switch {
	case res.Match != nil:
		return res.Match, nil
	case res.Ambiguous:
		return nil, fmt.Errorf("several entities match %q; be more specific", name)
	default:
		return nil, fmt.Errorf("no entity matches %q", name)
	}
}

func printAction(action *types.PendingAction) {
	fmt.Printf("intent: %s (%s)\n", action.Intent, action.Status)
	if action.AIReasoning != "" {
		fmt.Printf("reasoning: %s\n", action.AIReasoning)
	}
	if action.TargetHabitatName != "" {
		fmt.Printf("habitat: %s\n", action.TargetHabitatName)
	}
	for _, c := range action.Candidates {
		line := fmt.Sprintf("  + %dx %s", c.Quantity, c.Name)
		if c.ScientificName != "" {
			line += " (" + c.ScientificName + ")"
		}
		fmt.Println(line)
	}
	if o := action.Observation; o != nil {
		fmt.Printf("  ~ %s %s = %g %s\n", o.EntityRef, o.Label, o.Value, o.Unit)
	}
	if action.IntentStrategy != "" {
		fmt.Printf("advice: %s\n", action.IntentStrategy)
	}
}

func printRecord(rec *types.SpeciesRecord) {
	fmt.Printf("%s", rec.CommonName)
	if rec.ScientificName != "" {
		fmt.Printf(" (%s)", rec.ScientificName)
	}
	fmt.Println()
	if d := rec.Enrichment.Details; d != nil {
		fmt.Printf("  pH %.1f-%.1f, %.0f-%.0f°F, diet %s, difficulty %s\n",
			d.PHMin, d.PHMax, d.TempMinF, d.TempMaxF, d.Diet, d.Difficulty)
	}
	if t := rec.Enrichment.Taxonomy; t != nil {
		fmt.Printf("  taxonomy: %s / %s / %s / %s\n", t.Kingdom, t.Phylum, t.Family, t.Genus)
	}
	if rec.Enrichment.Summary != "" {
		fmt.Printf("  %s\n", truncate(rec.Enrichment.Summary, 300))
	}
	if rec.Enrichment.PhotoURL != "" {
		fmt.Printf("  photo: %s\n", rec.Enrichment.PhotoURL)
	}
	if disc := rec.Enrichment.Discovery; disc != nil {
		fmt.Printf("  mechanism: %s\n", disc.Mechanism)
		fmt.Printf("  advantage: %s\n", disc.EvolutionaryAdvantage)
		fmt.Printf("  synergy:   %s\n", disc.SynergyNote)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func init() {
	logCmd.Flags().BoolVarP(&autoCommit, "yes", "y", false, "Commit without review")
	logCmd.Flags().BoolVar(&skipEnrich, "no-enrich", false, "Skip enrichment after commit")
}

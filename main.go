package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"bgg-ranking/config"
	"bgg-ranking/models"
	"bgg-ranking/services"
	"bgg-ranking/storage"
	"bgg-ranking/utils"
)

// pipeline wires the stages together; each stage reports its own failures
// and the run carries on with whatever the earlier stages produced.
type pipeline struct {
	cfg        *config.Config
	logger     *utils.Logger
	loader     *storage.CSVLoader
	cleaner    *services.Cleaner
	combiner   *services.Combiner
	aggregator *services.ReviewAggregator
	scorer     *services.Scorer
	comparator *services.Comparator
	visualizer *services.Visualizer
}

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	logger.Info("=== Board game ranking analysis starting ===")
	logger.Info("Config: games %s | rank column %q | threshold %.0f | top %d",
		cfg.RawGamesPath, cfg.RankColumn, cfg.DiscrepancyThreshold, cfg.TopN)

	p := newPipeline(cfg, logger)
	if err := p.run(context.Background()); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	fmt.Printf("  Done. Processed data → %s | plots → %s\n\n", cfg.ProcessedPath, cfg.PlotDir)
}

func newPipeline(cfg *config.Config, logger *utils.Logger) *pipeline {
	return &pipeline{
		cfg:        cfg,
		logger:     logger,
		loader:     storage.NewCSVLoader(logger),
		cleaner:    services.NewCleaner(logger),
		combiner:   services.NewCombiner(logger),
		aggregator: services.NewReviewAggregator(logger),
		scorer:     services.NewScorer(logger),
		comparator: services.NewComparator(logger),
		visualizer: services.NewVisualizer(logger, cfg.ChromeBin),
	}
}

func (p *pipeline) run(ctx context.Context) error {
	for _, dir := range []string{p.cfg.CleanedDir, p.cfg.ProcessedDir, p.cfg.PlotDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory %q: %w", dir, err)
		}
	}

	scored, opts, err := p.scoreGames()
	if err != nil {
		return err
	}
	if err := p.combineRanks(); err != nil {
		return err
	}
	if err := p.summariseReviews(); err != nil {
		return err
	}
	if scored == nil {
		p.logger.Warn("No scored games, skipping report and plots")
		return nil
	}

	games, err := models.GamesFromDataset(scored, p.rankColumn())
	if err != nil {
		p.logger.Warn("[report] %v, skipping report", err)
	} else {
		games = p.persist(games)
		insights := services.NewInsightService(p.logger)
		insights.Print(insights.Generate(games, opts))
	}

	p.plot(ctx, scored)
	return nil
}

func (p *pipeline) rankColumn() string {
	return p.cleaner.NormalizeName(p.cfg.RankColumn)
}

// scoreGames runs load → clean → score → compare over the games export and
// writes the cleaned, processed and discrepancy tables. A nil dataset
// means the stage was skipped.
func (p *pipeline) scoreGames() (*models.Dataset, services.ReportOptions, error) {
	opts := services.ReportOptions{
		TopN:         p.cfg.TopN,
		Threshold:    p.cfg.DiscrepancyThreshold,
		Correlations: make(map[string]float64),
	}

	raw, err := p.loader.Load(p.cfg.RawGamesPath)
	if err != nil {
		return nil, opts, skipOrFail(p.logger, "games", err)
	}

	cleaned := p.cleaner.Clean(raw, p.cfg.RankColumn)
	if err := p.save(p.cfg.CleanedGames, cleaned); err != nil {
		return nil, opts, err
	}

	scored := cleaned
	if withScore, err := p.scorer.PopularityScore(cleaned); err != nil {
		p.logger.Warn("[scorer] %v, popularity score skipped", err)
	} else {
		scored = withScore
	}

	if priors, err := p.scorer.ComputePriors(scored, models.ColUsersRated, models.ColAverage); err != nil {
		p.logger.Warn("[scorer] %v, Bayesian rating skipped", err)
	} else {
		opts.Priors = priors
		if rated, err := p.scorer.ApplyBayesian(scored, models.ColUsersRated, models.ColAverage, priors); err != nil {
			p.logger.Warn("[scorer] %v, Bayesian rating skipped", err)
		} else {
			scored = rated
		}
	}

	for _, col := range []string{models.ColBayesAverage, models.ColBayesianRating, p.rankColumn()} {
		r, err := p.comparator.Correlation(scored, models.ColPopularity, col)
		if err != nil {
			p.logger.Warn("[comparator] %v", err)
			continue
		}
		opts.Correlations[col] = r
	}

	res, err := p.comparator.Discrepancies(scored, models.ColPopularity, p.rankColumn(), p.cfg.DiscrepancyThreshold)
	if err != nil {
		p.logger.Warn("[comparator] %v, discrepancy analysis skipped", err)
	} else {
		scored = res.Annotated
		popularPath, unpopularPath := p.cfg.DiscrepancyPaths()
		if err := p.save(popularPath, res.PopularPoorlyRanked); err != nil {
			return nil, opts, err
		}
		if err := p.save(unpopularPath, res.UnpopularHighlyRanked); err != nil {
			return nil, opts, err
		}
	}

	if err := p.save(p.cfg.ProcessedPath, scored); err != nil {
		return nil, opts, err
	}
	return scored, opts, nil
}

// combineRanks joins the two yearly rank snapshots and records how each
// game moved between them.
func (p *pipeline) combineRanks() error {
	snapshots := make([]*models.Dataset, 0, 2)
	for _, s := range []struct{ raw, cleaned string }{
		{p.cfg.RawRanks2020Path, p.cfg.CleanedRanks2020},
		{p.cfg.RawRanks2022Path, p.cfg.CleanedRanks2022},
	} {
		raw, err := p.loader.Load(s.raw)
		if err != nil {
			return skipOrFail(p.logger, "rank snapshots", err)
		}
		cleaned := p.cleaner.Clean(raw, p.cfg.SnapshotRankColumn)
		if err := p.save(s.cleaned, cleaned); err != nil {
			return err
		}
		snapshots = append(snapshots, cleaned)
	}

	combined, err := p.combiner.InnerJoin(snapshots[0], snapshots[1], p.cfg.JoinKey, p.cfg.Suffix2020, p.cfg.Suffix2022)
	if err != nil {
		p.logger.Error("%v, rank snapshots not combined", err)
		return nil
	}

	rank := p.cleaner.NormalizeName(p.cfg.SnapshotRankColumn)
	from, to := rank+p.cfg.Suffix2020, rank+p.cfg.Suffix2022
	if moved, err := p.comparator.RankChange(combined, from, to); err != nil {
		p.logger.Warn("[comparator] %v, rank change skipped", err)
	} else {
		combined = moved
		if top, err := p.comparator.TopN(combined, services.ColRankChange, p.cfg.TopN, services.Descending); err == nil {
			p.logger.Info("[comparator] Top %d climbers between snapshots:", top.Len())
			name := p.cleaner.NormalizeName(p.cfg.SnapshotNameColumn)
			cols := lo.FilterMap([]string{p.cfg.JoinKey, name + p.cfg.Suffix2022, from, to, services.ColRankChange},
				func(n string, _ int) (*models.Column, bool) { return top.Column(n) })
			if err := storage.Fprint(os.Stdout, models.NewDataset(top.Source, cols...)); err != nil {
				p.logger.Warn("[comparator] %v", err)
			}
		}
	}
	return p.save(p.cfg.CombinedRanksPath(), combined)
}

func (p *pipeline) summariseReviews() error {
	for _, path := range p.cfg.RawReviewPaths {
		raw, err := p.loader.Load(path)
		if err != nil {
			if err := skipOrFail(p.logger, "reviews", err); err != nil {
				return err
			}
			continue
		}
		reviews := p.cleaner.NormalizeNames(raw)
		summary, err := p.aggregator.Aggregate(reviews, p.cfg.ReviewKey, p.cfg.ReviewScore)
		if err != nil {
			p.logger.Warn("[aggregator] %v, %s skipped", err, path)
			continue
		}
		if err := p.save(p.cfg.ReviewSummaryPath(path), summary); err != nil {
			return err
		}
	}
	return nil
}

// persist stores games in SQLite and, when enabled, PostgreSQL, then reads
// them back from SQLite for the report. On any storage error the in-memory
// games are used instead.
func (p *pipeline) persist(games []*models.Game) []*models.Game {
	if p.cfg.PostgresEnabled {
		pg, err := storage.NewPostgresWriter(p.cfg.DSN(), &utils.RetryConfig{
			MaxAttempts: p.cfg.MaxRetries,
			Logger:      p.logger,
		})
		if err != nil {
			p.logger.Error("Failed to connect to PostgreSQL: %v", err)
		} else {
			if err := pg.Write(games); err != nil {
				p.logger.Error("PostgreSQL write failed: %v", err)
			} else {
				p.logger.Info("Scored games stored in PostgreSQL (table: games)")
			}
			_ = pg.Close()
		}
	}

	sw, err := storage.NewSQLiteWriter(p.cfg.SQLitePath)
	if err != nil {
		p.logger.Error("Failed to open SQLite: %v", err)
		return games
	}
	defer sw.Close()

	if err := sw.Write(games); err != nil {
		p.logger.Error("SQLite write failed: %v", err)
		return games
	}
	stored, err := sw.FetchAll()
	if err != nil {
		p.logger.Error("Failed to fetch games from SQLite for insights: %v", err)
		return games
	}
	p.logger.Info("%d scored games stored in %s", len(stored), p.cfg.SQLitePath)
	return stored
}

func (p *pipeline) plot(ctx context.Context, scored *models.Dataset) {
	for _, h := range []struct{ title, column string }{
		{"Popularity score", models.ColPopularity},
		{"Bayesian rating", models.ColBayesianRating},
		{"Rank difference (official − popularity)", models.ColRankDifference},
	} {
		col, ok := scored.Column(h.column)
		if !ok {
			continue
		}
		if err := p.visualizer.Histogram(os.Stdout, h.title, col.Present(), p.cfg.HistogramBins); err != nil {
			p.logger.Warn("[visualizer] %s histogram: %v", h.column, err)
		}
	}

	scatter, err := services.ScatterFromDataset(scored, p.rankColumn(), models.ColPopularityRank)
	if err != nil {
		p.logger.Warn("[visualizer] Required columns for comparison are missing: %v", err)
		return
	}
	scatter.Title = "BGG Rank vs. Popularity Rank"
	scatter.XLabel = "BGG Rank"
	scatter.YLabel = "Popularity Rank"

	svgPath := filepath.Join(p.cfg.PlotDir, "rank_vs_popularity.svg")
	if err := p.visualizer.WriteScatterSVG(svgPath, scatter); err != nil {
		p.logger.Error("Scatter plot failed: %v", err)
		return
	}
	if p.cfg.RenderPNG {
		pngPath := strings.TrimSuffix(svgPath, ".svg") + ".png"
		if err := p.visualizer.RenderPNG(ctx, svgPath, pngPath); err != nil {
			p.logger.Warn("PNG render failed: %v", err)
		}
	}
}

func (p *pipeline) save(path string, ds *models.Dataset) error {
	if err := storage.SaveCSV(path, ds); err != nil {
		return err
	}
	p.logger.Info("Saved %d rows to %s", ds.Len(), path)
	return nil
}

// skipOrFail logs a missing input and lets the run continue; any other
// load error is returned.
func skipOrFail(logger *utils.Logger, stage string, err error) error {
	if errors.Is(err, models.ErrFileNotFound) {
		logger.Warn("[%s] %v, stage skipped", stage, err)
		return nil
	}
	return err
}

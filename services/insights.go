package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/samber/lo"

	"bgg-ranking/models"
	"bgg-ranking/utils"
)

// ReportOptions carries the dataset-level figures computed upstream.
type ReportOptions struct {
	TopN         int
	Threshold    float64
	Priors       models.Priors
	Correlations map[string]float64
}

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// Generate summarises scored games: totals, leaders by popularity and by
// Bayesian rating, and the games whose official rank disagrees with their
// popularity by more than the threshold.
func (s *InsightService) Generate(games []*models.Game, opts ReportOptions) *models.RankingReport {
	report := &models.RankingReport{
		Priors:       opts.Priors,
		Correlations: opts.Correlations,
		Threshold:    opts.Threshold,
	}
	if report.Correlations == nil {
		report.Correlations = make(map[string]float64)
	}
	if len(games) == 0 {
		return report
	}

	report.TotalGames = len(games)
	report.RankedGames = lo.CountBy(games, func(g *models.Game) bool { return g.Rank.Valid })

	byPopularity := append([]*models.Game(nil), games...)
	sort.SliceStable(byPopularity, func(i, j int) bool {
		return byPopularity[i].PopularityScore > byPopularity[j].PopularityScore
	})
	report.TopPopular = head(byPopularity, opts.TopN)

	rated := lo.Filter(games, func(g *models.Game, _ int) bool { return g.BayesianRating.Valid })
	sort.SliceStable(rated, func(i, j int) bool {
		return rated[i].BayesianRating.Float64 > rated[j].BayesianRating.Float64
	})
	report.TopBayesian = head(rated, opts.TopN)

	report.PopularPoorlyRanked = lo.Filter(games, func(g *models.Game, _ int) bool {
		return g.RankDifference.Valid && g.RankDifference.Float64 > opts.Threshold
	})
	sort.SliceStable(report.PopularPoorlyRanked, func(i, j int) bool {
		return report.PopularPoorlyRanked[i].RankDifference.Float64 > report.PopularPoorlyRanked[j].RankDifference.Float64
	})

	report.UnpopularHighlyRanked = lo.Filter(games, func(g *models.Game, _ int) bool {
		return g.RankDifference.Valid && g.RankDifference.Float64 < -opts.Threshold
	})
	sort.SliceStable(report.UnpopularHighlyRanked, func(i, j int) bool {
		return report.UnpopularHighlyRanked[i].RankDifference.Float64 < report.UnpopularHighlyRanked[j].RankDifference.Float64
	})

	s.logger.Debug("[insights] Report built from %d games (%d ranked)", report.TotalGames, report.RankedGames)
	return report
}

func (s *InsightService) Print(r *models.RankingReport) {
	w := s.out
	sep := strings.Repeat("═", 62)
	thin := strings.Repeat("─", 62)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🎲 BOARD GAME RANKING INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Games analysed          : \033[1m%d\033[0m\n", r.TotalGames)
	fmt.Fprintf(w, "  Games with official rank: \033[1m%d\033[0m\n", r.RankedGames)
	fmt.Fprintf(w, "  Prior weight m (votes)  : \033[1m%.1f\033[0m\n", r.Priors.M)
	fmt.Fprintf(w, "  Global mean rating C    : \033[1m%.3f\033[0m\n", r.Priors.C)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Correlation with popularity score\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Correlations) == 0 {
		fmt.Fprintf(w, "  No correlation data available\n")
	} else {
		names := lo.Keys(r.Correlations)
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-24s: \033[1;32m%+.4f\033[0m\n", name, r.Correlations[name])
		}
	}
	fmt.Fprintln(w)

	s.printGames(w, fmt.Sprintf("Top %d by popularity score", len(r.TopPopular)), thin, r.TopPopular,
		func(g *models.Game) string { return fmt.Sprintf("%.0f", g.PopularityScore) })
	s.printGames(w, fmt.Sprintf("Top %d by Bayesian rating", len(r.TopBayesian)), thin, r.TopBayesian,
		func(g *models.Game) string { return fmt.Sprintf("%.3f", g.BayesianRating.Float64) })
	s.printGames(w, fmt.Sprintf("Popular but poorly ranked (diff > %.0f): %d", r.Threshold, len(r.PopularPoorlyRanked)),
		thin, head(r.PopularPoorlyRanked, 10), rankGap)
	s.printGames(w, fmt.Sprintf("Unpopular but highly ranked (diff < -%.0f): %d", r.Threshold, len(r.UnpopularHighlyRanked)),
		thin, head(r.UnpopularHighlyRanked, 10), rankGap)

	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

func (s *InsightService) printGames(w io.Writer, title, thin string, games []*models.Game, value func(*models.Game) string) {
	fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", title)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(games) == 0 {
		fmt.Fprintf(w, "  None\n\n")
		return
	}
	for i, g := range games {
		fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-40s \033[1;32m%s\033[0m\n", i+1, truncate(displayName(g), 38), value(g))
	}
	fmt.Fprintln(w)
}

func rankGap(g *models.Game) string {
	return fmt.Sprintf("rank %.0f vs popularity %.0f (%+.0f)",
		g.Rank.Float64, g.PopularityRank.Float64, g.RankDifference.Float64)
}

func displayName(g *models.Game) string {
	if g.Name == "" {
		return fmt.Sprintf("#%d", g.ID)
	}
	return g.Name
}

func head(games []*models.Game, n int) []*models.Game {
	if n >= 0 && len(games) > n {
		return games[:n]
	}
	return games
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

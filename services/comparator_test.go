package services

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"bgg-ranking/models"
)

func TestTopNStableDescending(t *testing.T) {
	c := NewComparator(newTestLogger())
	score := models.NewNumericColumn("score", []float64{5, 9, 5, 0, 9, 1})
	score.Null[3] = true
	ds := models.NewDataset("games", textColumn("name", "a", "b", "c", "d", "e", "f"), score)

	out, err := c.TopN(ds, "score", 4, Descending)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for i := 0; i < out.Len(); i++ {
		names = append(names, out.Record(i)["name"])
	}
	if want := []string{"b", "e", "a", "c"}; !reflect.DeepEqual(names, want) {
		t.Errorf("top 4: got %v, want %v", names, want)
	}
}

func TestTopNAscendingAndOversized(t *testing.T) {
	c := NewComparator(newTestLogger())
	ds := models.NewDataset("games", models.NewNumericColumn("rank", []float64{3, 1, 2}))

	out, err := c.TopN(ds, "rank", 10, Ascending)
	if err != nil {
		t.Fatal(err)
	}
	rank, _ := out.Column("rank")
	if !reflect.DeepEqual(rank.Num, []float64{1, 2, 3}) {
		t.Errorf("ascending: got %v", rank.Num)
	}
}

func TestTopNMissingColumn(t *testing.T) {
	c := NewComparator(newTestLogger())
	_, err := c.TopN(models.NewDataset("games"), "rank", 3, Ascending)
	if !models.IsMissingColumn(err) {
		t.Errorf("expected MissingColumnError, got %v", err)
	}
}

func TestDescendingRankAveragesTies(t *testing.T) {
	col := models.NewNumericColumn("p", []float64{10, 30, 20, 30, 0})
	col.Null[4] = true

	got := DescendingRank(col)
	want := []float64{4, 1.5, 3, 1.5}
	for i, w := range want {
		if got.Num[i] != w {
			t.Errorf("rank[%d]: got %v, want %v", i, got.Num[i], w)
		}
	}
	if !got.Null[4] {
		t.Error("missing value must have a missing rank")
	}
}

// discrepancyDataset builds n games whose popularity rank equals their row
// position + 1 and whose official rank matches it, except for overrides.
func discrepancyDataset(n int, overrides map[int]float64) *models.Dataset {
	pop := make([]float64, n)
	rank := make([]float64, n)
	for i := 0; i < n; i++ {
		pop[i] = float64(n - i)
		rank[i] = float64(i + 1)
		if r, ok := overrides[i]; ok {
			rank[i] = r
		}
	}
	return models.NewDataset("games",
		models.NewNumericColumn(models.ColID, lineSpace(n)),
		models.NewNumericColumn(models.ColPopularity, pop),
		models.NewNumericColumn("board_game_rank", rank),
	)
}

func lineSpace(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestDiscrepanciesPartition(t *testing.T) {
	c := NewComparator(newTestLogger())
	ds := discrepancyDataset(2000, map[int]float64{
		0:    1501, // popularity rank 1 → +1500
		1999: 500,  // popularity rank 2000 → -1500
		1000: 1501, // popularity rank 1001 → +500
	})

	res, err := c.Discrepancies(ds, models.ColPopularity, "board_game_rank", 1000)
	if err != nil {
		t.Fatalf("Discrepancies: %v", err)
	}
	if res.PopularPoorlyRanked.Len() != 1 || res.PopularPoorlyRanked.Record(0)[models.ColID] != "1" {
		t.Errorf("popular-but-poorly-ranked: got %d rows", res.PopularPoorlyRanked.Len())
	}
	if res.UnpopularHighlyRanked.Len() != 1 || res.UnpopularHighlyRanked.Record(0)[models.ColID] != "2000" {
		t.Errorf("unpopular-but-highly-ranked: got %d rows", res.UnpopularHighlyRanked.Len())
	}
	if got := res.Compared.Record(1000)[models.ColRankDifference]; got != "500" {
		t.Errorf("row 1000 difference: got %s, want 500", got)
	}
	if got := res.UnpopularHighlyRanked.Record(0)[models.ColRankDifference]; got != "-1500" {
		t.Errorf("difference sign: got %s, want -1500", got)
	}
}

func TestDiscrepanciesDropsUnranked(t *testing.T) {
	c := NewComparator(newTestLogger())
	ds := discrepancyDataset(4, nil)
	rank, _ := ds.Column("board_game_rank")
	rank.Null[0] = true

	res, err := c.Discrepancies(ds, models.ColPopularity, "board_game_rank", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Compared.Len() != 3 {
		t.Fatalf("compared rows: got %d, want 3", res.Compared.Len())
	}
	// Popularity is re-ranked among the ranked rows only.
	popRank, _ := res.Compared.Column(models.ColPopularityRank)
	if !reflect.DeepEqual(popRank.Num, []float64{1, 2, 3}) {
		t.Errorf("popularity ranks: got %v", popRank.Num)
	}
	if res.PopularPoorlyRanked.Len() != 3 {
		t.Errorf("every row is one place worse officially, got %d flagged", res.PopularPoorlyRanked.Len())
	}

	if res.Annotated.Len() != 4 {
		t.Fatalf("annotated rows: got %d, want 4", res.Annotated.Len())
	}
	diff, _ := res.Annotated.Column(models.ColRankDifference)
	if !diff.Null[0] || diff.Num[1] != 1 {
		t.Errorf("annotated differences: got %+v", diff)
	}
}

func TestDiscrepanciesMissingColumn(t *testing.T) {
	c := NewComparator(newTestLogger())
	ds := models.NewDataset("games", models.NewNumericColumn(models.ColPopularity, []float64{1}))
	if _, err := c.Discrepancies(ds, models.ColPopularity, "board_game_rank", 1000); !models.IsMissingColumn(err) {
		t.Errorf("expected MissingColumnError, got %v", err)
	}
}

func TestCorrelation(t *testing.T) {
	c := NewComparator(newTestLogger())
	b := models.NewNumericColumn("b", []float64{2, 4, 6, 100})
	b.Null[3] = true
	ds := models.NewDataset("x", models.NewNumericColumn("a", []float64{1, 2, 3, 4}), b)

	r, err := c.Correlation(ds, "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r-1) > 1e-12 {
		t.Errorf("correlation: got %v, want 1", r)
	}

	short := models.NewDataset("x",
		models.NewNumericColumn("a", []float64{1}),
		models.NewNumericColumn("b", []float64{1}),
	)
	if _, err := c.Correlation(short, "a", "b"); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRankChange(t *testing.T) {
	c := NewComparator(newTestLogger())
	to := models.NewNumericColumn("rank_2022", []float64{5, 0})
	to.Null[1] = true
	ds := models.NewDataset("ranks", models.NewNumericColumn("rank_2020", []float64{20, 3}), to)

	out, err := c.RankChange(ds, "rank_2020", "rank_2022")
	if err != nil {
		t.Fatal(err)
	}
	change, _ := out.Column(ColRankChange)
	if change.Num[0] != 15 || !change.Null[1] {
		t.Errorf("rank change: got %+v", change)
	}
}

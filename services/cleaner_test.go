package services

import (
	"io"
	"reflect"
	"testing"

	"bgg-ranking/models"
	"bgg-ranking/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(io.Discard) }

func textColumn(name string, values ...string) *models.Column {
	col := models.NewTextColumn(name, values)
	for i, v := range values {
		if v == "" {
			col.Null[i] = true
		}
	}
	return col
}

func TestCleanerCoerceNumeric(t *testing.T) {
	c := NewCleaner(newTestLogger())
	ds := models.NewDataset("games",
		textColumn("rank", "5", "Not Ranked", "", " 12 ", "1e3", "N/A"),
		textColumn("name", "a", "b", "c", "d", "e", "f"),
	)

	out, err := c.CoerceNumeric(ds, "rank")
	if err != nil {
		t.Fatalf("CoerceNumeric: %v", err)
	}
	rank, _ := out.Column("rank")
	if rank.Kind != models.Numeric {
		t.Fatalf("rank kind: got %v, want numeric", rank.Kind)
	}

	tests := []struct {
		row     int
		want    float64
		present bool
	}{
		{0, 5, true},
		{1, 0, false},
		{2, 0, false},
		{3, 12, true},
		{4, 1000, true},
		{5, 0, false},
	}
	for _, tt := range tests {
		got, ok := rank.Float(tt.row)
		if ok != tt.present || got != tt.want {
			t.Errorf("row %d: got (%v, %v); want (%v, %v)", tt.row, got, ok, tt.want, tt.present)
		}
	}

	name, _ := out.Column("name")
	if name.Kind != models.Text || name.String(1) != "b" {
		t.Errorf("other columns must be untouched, got %v %q", name.Kind, name.String(1))
	}
	orig, _ := ds.Column("rank")
	if orig.Kind != models.Text {
		t.Error("input dataset was modified")
	}
}

func TestCleanerCoerceNumericIdempotent(t *testing.T) {
	c := NewCleaner(newTestLogger())
	ds := models.NewDataset("games", textColumn("rank", "1", "x", "3"))

	once, err := c.CoerceNumeric(ds, "rank")
	if err != nil {
		t.Fatal(err)
	}
	twice, err := c.CoerceNumeric(once, "rank")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(once.Columns(), twice.Columns()) {
		t.Errorf("second coercion changed the column: %+v vs %+v", once.Columns()[0], twice.Columns()[0])
	}
}

func TestCleanerCoerceNumericMissingColumn(t *testing.T) {
	c := NewCleaner(newTestLogger())
	_, err := c.CoerceNumeric(models.NewDataset("games", textColumn("name", "a")), "rank")
	if !models.IsMissingColumn(err) {
		t.Errorf("expected MissingColumnError, got %v", err)
	}
}

func TestCleanerFillDefaults(t *testing.T) {
	c := NewCleaner(newTestLogger())
	owned := models.NewNumericColumn("owned", []float64{10, 0, 30, 0})
	owned.Null[1] = true
	owned.Null[3] = true
	rank := models.NewNumericColumn("rank", []float64{1, 0, 3, 4})
	rank.Null[1] = true

	ds := models.NewDataset("games",
		owned,
		textColumn("category", "card", "", "dice", "dice"),
		textColumn("tie", "b", "a", "a", "b"),
		textColumn("empty", "", "", "", ""),
		rank,
	)
	out := c.FillDefaults(ds, "rank")

	o, _ := out.Column("owned")
	if o.Null[1] || o.Num[1] != 0 || o.Null[3] {
		t.Errorf("numeric missing should become 0, got %+v", o)
	}
	cat, _ := out.Column("category")
	if got := cat.String(1); got != "dice" {
		t.Errorf("category fill: got %q, want dice", got)
	}
	tie, _ := out.Column("tie")
	if tie.Null[0] || tie.String(0) != "b" {
		t.Errorf("present values must not change, got %q", tie.String(0))
	}
	empty, _ := out.Column("empty")
	for i := 0; i < empty.Len(); i++ {
		if empty.String(i) != UnknownText {
			t.Errorf("empty[%d]: got %q, want %q", i, empty.String(i), UnknownText)
		}
	}
	r, _ := out.Column("rank")
	if !r.Null[1] {
		t.Error("skipped column must keep its missing marker")
	}
	if !owned.Null[1] {
		t.Error("input dataset was modified")
	}
}

func TestModeTieBreaksOnFirstSeen(t *testing.T) {
	tests := []struct {
		values []string
		want   string
	}{
		{[]string{"b", "a", "a", "b"}, "b"},
		{[]string{"", "a", "b", "b", "a"}, "a"},
		{[]string{"x", "y", "y"}, "y"},
		{[]string{"", ""}, UnknownText},
	}
	for _, tt := range tests {
		if got := mode(textColumn("c", tt.values...)); got != tt.want {
			t.Errorf("mode(%q) = %q; want %q", tt.values, got, tt.want)
		}
	}
}

func TestCleanerNormalizeNames(t *testing.T) {
	c := NewCleaner(newTestLogger())
	ds := models.NewDataset("games",
		textColumn("Board Game Rank", "1"),
		textColumn("ID", "1"),
		textColumn("board_game_rank", "2"),
		textColumn("Board Game Rank_2", "3"),
		textColumn(" Users Rated ", "4"),
	)

	once := c.NormalizeNames(ds)
	want := []string{"board_game_rank", "id", "board_game_rank_2", "board_game_rank_2_2", "users_rated"}
	if !reflect.DeepEqual(once.Names(), want) {
		t.Errorf("names: got %v, want %v", once.Names(), want)
	}

	twice := c.NormalizeNames(once)
	if !reflect.DeepEqual(once.Names(), twice.Names()) {
		t.Errorf("not idempotent: %v then %v", once.Names(), twice.Names())
	}
	if ds.Names()[0] != "Board Game Rank" {
		t.Error("input dataset was modified")
	}
}

func TestCleanerClean(t *testing.T) {
	c := NewCleaner(newTestLogger())
	ds := models.NewDataset("games",
		models.NewNumericColumn("id", []float64{1, 2, 3}),
		textColumn("Board Game Rank", "7", "Not Ranked", ""),
		textColumn("Primary", "Catan", "", "Catan"),
	)

	out := c.Clean(ds, "Board Game Rank")
	rank, ok := out.Column("board_game_rank")
	if !ok {
		t.Fatalf("rank column missing after clean: %v", out.Names())
	}
	if v, ok := rank.Float(0); !ok || v != 7 {
		t.Errorf("rank[0]: got (%v, %v)", v, ok)
	}
	if !rank.Null[1] || !rank.Null[2] {
		t.Error("unranked rows must stay missing")
	}
	name, _ := out.Column("primary")
	if name.String(1) != "Catan" {
		t.Errorf("primary fill: got %q", name.String(1))
	}
}

package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all pipeline configuration loaded from environment variables.
type Config struct {
	RawGamesPath     string
	RawRanks2020Path string
	RawRanks2022Path string
	RawReviewPaths   []string

	CleanedDir       string
	CleanedGames     string
	CleanedRanks2020 string
	CleanedRanks2022 string

	ProcessedDir  string
	ProcessedPath string
	PlotDir       string

	RankColumn         string
	SnapshotRankColumn string
	SnapshotNameColumn string
	JoinKey            string
	Suffix2020         string
	Suffix2022         string
	ReviewKey          string
	ReviewScore        string

	DiscrepancyThreshold float64
	TopN                 int
	HistogramBins        int

	RenderPNG bool
	ChromeBin string

	SQLitePath string

	PostgresEnabled  bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	raw := getEnv("RAW_DATA_DIR", "datasets/raw_data")
	cleaned := getEnv("CLEANED_DATA_DIR", "datasets/cleaned_data")
	processed := getEnv("PROCESSED_DATA_DIR", "datasets/processed_data")

	return &Config{
		RawGamesPath:     getEnv("RAW_GAMES_PATH", filepath.Join(raw, "games_detailed_info.csv")),
		RawRanks2020Path: getEnv("RAW_RANKS_2020_PATH", filepath.Join(raw, "2020-08-19.csv")),
		RawRanks2022Path: getEnv("RAW_RANKS_2022_PATH", filepath.Join(raw, "2022-01-08.csv")),
		RawReviewPaths: getEnvList("RAW_REVIEW_PATHS", []string{
			filepath.Join(raw, "bgg-15m-reviews.csv"),
			filepath.Join(raw, "bgg-19m-reviews.csv"),
		}),

		CleanedDir:       cleaned,
		CleanedGames:     getEnv("CLEANED_GAMES_PATH", filepath.Join(cleaned, "games_cleaned.csv")),
		CleanedRanks2020: getEnv("CLEANED_RANKS_2020_PATH", filepath.Join(cleaned, "ranks_2020_cleaned.csv")),
		CleanedRanks2022: getEnv("CLEANED_RANKS_2022_PATH", filepath.Join(cleaned, "ranks_2022_cleaned.csv")),

		ProcessedDir:  processed,
		ProcessedPath: getEnv("PROCESSED_PATH", filepath.Join(processed, "games_with_popularity.csv")),
		PlotDir:       getEnv("PLOT_DIR", "plots"),

		RankColumn:         getEnv("RANK_COLUMN", "Board Game Rank"),
		SnapshotRankColumn: getEnv("SNAPSHOT_RANK_COLUMN", "rank"),
		SnapshotNameColumn: getEnv("SNAPSHOT_NAME_COLUMN", "name"),
		JoinKey:            getEnv("JOIN_KEY", "id"),
		Suffix2020:         getEnv("SUFFIX_2020", "_2020"),
		Suffix2022:         getEnv("SUFFIX_2022", "_2022"),
		ReviewKey:          getEnv("REVIEW_KEY", "id"),
		ReviewScore:        getEnv("REVIEW_SCORE", "rating"),

		DiscrepancyThreshold: getEnvFloat("DISCREPANCY_THRESHOLD", 1000),
		TopN:                 getEnvInt("TOP_N", 10),
		HistogramBins:        getEnvInt("HISTOGRAM_BINS", 15),

		RenderPNG: getEnvBool("RENDER_PNG", false),
		ChromeBin: getEnv("CHROME_BIN", ""),

		SQLitePath: getEnv("SQLITE_PATH", filepath.Join(processed, "games.sqlite")),

		PostgresEnabled:  getEnvBool("POSTGRES_ENABLED", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "bgg"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "bgg"),
		PostgresDB:       getEnv("POSTGRES_DB", "bgg_ranking"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MaxRetries:       getEnvInt("MAX_RETRIES", 5),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// DiscrepancyPaths returns the output paths of the two discrepancy tables.
func (c *Config) DiscrepancyPaths() (popular, unpopular string) {
	return filepath.Join(c.ProcessedDir, "popular_poorly_ranked.csv"),
		filepath.Join(c.ProcessedDir, "unpopular_highly_ranked.csv")
}

// CombinedRanksPath returns where the joined yearly rank snapshots are written.
func (c *Config) CombinedRanksPath() string {
	return filepath.Join(c.ProcessedDir, "ranks_combined.csv")
}

// ReviewSummaryPath derives the summary output for a raw review export.
func (c *Config) ReviewSummaryPath(rawPath string) string {
	base := strings.TrimSuffix(filepath.Base(rawPath), filepath.Ext(rawPath))
	return filepath.Join(c.ProcessedDir, base+"_summary.csv")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package services

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/chromedp/chromedp"

	"bgg-ranking/models"
	"bgg-ranking/utils"
)

const (
	svgWidth   = 900
	svgHeight  = 560
	svgMargin  = 70
	histoWidth = 50
)

// ScatterPlot is a titled set of points.
type ScatterPlot struct {
	Title  string
	XLabel string
	YLabel string
	X      []float64
	Y      []float64
}

// Visualizer renders the comparison views: terminal histograms, an SVG
// scatter artifact and, optionally, a PNG of it rasterised by Chrome.
type Visualizer struct {
	logger    *utils.Logger
	chromeBin string
	timeout   time.Duration
}

// NewVisualizer creates a Visualizer. chromeBin may be empty to let
// chromedp find a browser on PATH.
func NewVisualizer(logger *utils.Logger, chromeBin string) *Visualizer {
	return &Visualizer{logger: logger, chromeBin: chromeBin, timeout: 30 * time.Second}
}

// Histogram prints a horizontal histogram of values to w.
func (v *Visualizer) Histogram(w io.Writer, title string, values []float64, bins int) error {
	if _, err := fmt.Fprintf(w, "\n\033[1;33m  %s\033[0m (%d values)\n", title, len(values)); err != nil {
		return err
	}
	if len(values) == 0 {
		_, err := fmt.Fprintln(w, "  No data")
		return err
	}
	if bins < 1 {
		bins = 1
	}
	h := histogram.Hist(bins, values)
	return histogram.Fprint(w, h, histogram.Linear(histoWidth))
}

// ScatterFromDataset collects (xCol, yCol) pairs where both are present.
func ScatterFromDataset(ds *models.Dataset, xCol, yCol string) (ScatterPlot, error) {
	if err := ds.Require(xCol, yCol); err != nil {
		return ScatterPlot{}, err
	}
	xc, _ := ds.Column(xCol)
	yc, _ := ds.Column(yCol)

	p := ScatterPlot{XLabel: xCol, YLabel: yCol}
	for i := 0; i < ds.Len(); i++ {
		x, ok1 := xc.Float(i)
		y, ok2 := yc.Float(i)
		if ok1 && ok2 {
			p.X = append(p.X, x)
			p.Y = append(p.Y, y)
		}
	}
	return p, nil
}

// WriteScatterSVG saves p as an SVG file, creating the directory.
func (v *Visualizer) WriteScatterSVG(path string, p ScatterPlot) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("visualizer: create plot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("visualizer: create %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := renderScatter(bw, p); err != nil {
		return fmt.Errorf("visualizer: write %q: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	v.logger.Info("[visualizer] Scatter plot of %d points saved to %s", len(p.X), path)
	return nil
}

func renderScatter(w io.Writer, p ScatterPlot) error {
	xmin, xmax := bounds(p.X)
	ymin, ymax := bounds(p.Y)
	plotW := float64(svgWidth - 2*svgMargin)
	plotH := float64(svgHeight - 2*svgMargin)
	sx := func(x float64) float64 { return svgMargin + (x-xmin)/(xmax-xmin)*plotW }
	sy := func(y float64) float64 { return svgHeight - svgMargin - (y-ymin)/(ymax-ymin)*plotH }

	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		svgWidth, svgHeight, svgWidth, svgHeight)
	fmt.Fprintf(w, `<rect width="100%%" height="100%%" fill="white"/>`+"\n")
	fmt.Fprintf(w, `<text x="%d" y="%d" font-family="sans-serif" font-size="20" text-anchor="middle">%s</text>`+"\n",
		svgWidth/2, svgMargin/2, html.EscapeString(p.Title))

	// grid and tick labels
	for k := 0; k <= 5; k++ {
		f := float64(k) / 5
		gx := svgMargin + f*plotW
		gy := svgHeight - svgMargin - f*plotH
		fmt.Fprintf(w, `<line x1="%.1f" y1="%d" x2="%.1f" y2="%d" stroke="#ddd"/>`+"\n", gx, svgMargin, gx, svgHeight-svgMargin)
		fmt.Fprintf(w, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#ddd"/>`+"\n", svgMargin, gy, svgWidth-svgMargin, gy)
		fmt.Fprintf(w, `<text x="%.1f" y="%d" font-family="sans-serif" font-size="11" text-anchor="middle">%.0f</text>`+"\n",
			gx, svgHeight-svgMargin+16, xmin+f*(xmax-xmin))
		fmt.Fprintf(w, `<text x="%d" y="%.1f" font-family="sans-serif" font-size="11" text-anchor="end">%.0f</text>`+"\n",
			svgMargin-6, gy+4, ymin+f*(ymax-ymin))
	}
	fmt.Fprintf(w, `<text x="%d" y="%d" font-family="sans-serif" font-size="14" text-anchor="middle">%s</text>`+"\n",
		svgWidth/2, svgHeight-svgMargin/3, html.EscapeString(p.XLabel))
	fmt.Fprintf(w, `<text x="%d" y="%d" font-family="sans-serif" font-size="14" text-anchor="middle" transform="rotate(-90 %d %d)">%s</text>`+"\n",
		svgMargin/3, svgHeight/2, svgMargin/3, svgHeight/2, html.EscapeString(p.YLabel))

	for i := range p.X {
		fmt.Fprintf(w, `<circle cx="%.2f" cy="%.2f" r="2.5" fill="green" fill-opacity="0.5"/>`+"\n", sx(p.X[i]), sy(p.Y[i]))
	}
	_, err := fmt.Fprintln(w, "</svg>")
	return err
}

// bounds returns min and max, widened so the range is never empty.
func bounds(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 1
	}
	low, high := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}
	if low == high {
		return low - 1, high + 1
	}
	return low, high
}

// RenderPNG opens svgPath in headless Chrome and saves a screenshot.
func (v *Visualizer) RenderPNG(ctx context.Context, svgPath, pngPath string) error {
	abs, err := filepath.Abs(svgPath)
	if err != nil {
		return fmt.Errorf("visualizer: resolve %q: %w", svgPath, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(svgWidth, svgHeight),
	)
	if v.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(v.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, v.timeout)
	defer cancel()

	target := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	var buf []byte
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(target),
		chromedp.FullScreenshot(&buf, 100),
	); err != nil {
		return fmt.Errorf("visualizer: render %s: %w", target, err)
	}

	if err := os.MkdirAll(filepath.Dir(pngPath), 0755); err != nil {
		return fmt.Errorf("visualizer: create plot dir: %w", err)
	}
	if err := os.WriteFile(pngPath, buf, 0644); err != nil {
		return fmt.Errorf("visualizer: write %q: %w", pngPath, err)
	}
	v.logger.Info("[visualizer] PNG rendered to %s", pngPath)
	return nil
}

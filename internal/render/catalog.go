package render

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"

	"transient-finder/internal/score"
)

// Catalog is the machine-readable record of one pipeline run: the accepted
// candidates in rank order plus the run context the header block documents.
type Catalog struct {
	Width, Height int
	Rows          []score.Scored

	// Parameters recorded in the header block, one "# key = value" line
	// each, written in sorted key order.
	Parameters map[string]string

	// Generated stamps the header; the zero value omits the line so tests
	// can compare output byte for byte.
	Generated time.Time
}

// NewCatalog assembles a catalog from accepted candidates.
func NewCatalog(width, height int, accepted []score.Scored) *Catalog {
	return &Catalog{
		Width:      width,
		Height:     height,
		Rows:       accepted,
		Parameters: make(map[string]string),
	}
}

// catalogColumns is the fixed column schema, one token per column.
const catalogColumns = "id x y area peak total snr dist_center reliability elongation compactness label"

// Write serializes the catalog: a comment header block describing the image
// and parameters, then one whitespace-delimited line per candidate.
func (c *Catalog) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# transient candidate catalog\n")
	if !c.Generated.IsZero() {
		fmt.Fprintf(bw, "# generated %s\n", c.Generated.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(bw, "# image %dx%d pixels\n", c.Width, c.Height)
	keys := make([]string, 0, len(c.Parameters))
	for k := range c.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(bw, "# %s = %s\n", k, c.Parameters[k])
	}
	fmt.Fprintf(bw, "# columns: %s\n", catalogColumns)

	for _, r := range c.Rows {
		fmt.Fprintf(bw, "%d %.2f %.2f %d %.3f %.3f %.2f %.2f %.1f %.2f %.2f %s\n",
			r.ID, r.X, r.Y, r.Area, r.Peak, r.Total, r.SNR,
			r.CenterDistance(c.Width, c.Height), r.Reliability,
			r.Elongation, r.Compactness, r.Label)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	return nil
}

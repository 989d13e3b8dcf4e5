// Package report renders trial results as text and charts.
package report

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/inference-sim/macsim/sim/trace"
	"github.com/inference-sim/macsim/sim/trial"
)

// Print writes a human-readable summary of r.
func Print(w io.Writer, r *trial.Result) {
	fmt.Fprintln(w, "=== MAC Trial Results ===")
	fmt.Fprintf(w, "Run ID               : %s\n", r.RunID)
	fmt.Fprintf(w, "Protocol             : %s\n", r.Protocol)
	fmt.Fprintf(w, "Seed                 : %d\n", r.Seed)
	fmt.Fprintf(w, "Nodes                : %d\n", r.Nodes)
	fmt.Fprintf(w, "Horizon              : %g\n", r.Horizon)
	fmt.Fprintf(w, "Offered              : %d\n", r.Offered)
	fmt.Fprintf(w, "Dropped              : %d\n", r.Dropped)
	fmt.Fprintf(w, "Transmitted          : %d\n", r.Transmitted)
	fmt.Fprintf(w, "Delivered            : %d\n", r.Delivered)
	fmt.Fprintf(w, "Collisions           : %d\n", r.Collisions)
	if r.Echoes > 0 {
		fmt.Fprintf(w, "Echoes               : %d\n", r.Echoes)
	}
	fmt.Fprintf(w, "Throughput           : %.4f\n", r.Throughput)
	if r.Delivered > 0 {
		fmt.Fprintf(w, "Mean Delay           : %.4f (stddev %.4f)\n", r.MeanDelay, r.DelayStdDev)
	}
	fmt.Fprintf(w, "Mean Link Cost       : %.4f\n", r.MeanLinkCost)
	fmt.Fprintf(w, "Events               : %d\n", r.Events)
	if r.Truncated {
		fmt.Fprintln(w, "WARNING: event budget reached before the horizon")
	}
	if r.Trace != nil && r.Trace.TotalRecords > 0 {
		printTrace(w, r.Trace)
	}
}

func printTrace(w io.Writer, s *trace.Summary) {
	fmt.Fprintf(w, "Trace Records        : %d over [%g, %g]\n", s.TotalRecords, s.FirstTime, s.LastTime)
	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-18s : %d\n", k, s.ByKind[trace.Kind(k)])
	}
}

// PrintTable writes one row per result, for sweeps.
func PrintTable(w io.Writer, results []*trial.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "protocol\tseed\tnodes\ttransmitted\tdelivered\tcollisions\tdropped\tthroughput\tmean_delay\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%.4f\t%.4f\t\n",
			r.Protocol, r.Seed, r.Nodes, r.Transmitted, r.Delivered, r.Collisions, r.Dropped, r.Throughput, r.MeanDelay)
	}
	return tw.Flush()
}

// NodeChart builds a grouped bar chart of per-node deliveries and collisions.
func NodeChart(r *trial.Result) (*plot.Plot, error) {
	delivered := make(plotter.Values, len(r.PerNode))
	collisions := make(plotter.Values, len(r.PerNode))
	names := make([]string, len(r.PerNode))
	for i, n := range r.PerNode {
		delivered[i] = float64(n.Delivered)
		collisions[i] = float64(n.Collisions)
		names[i] = fmt.Sprint(int(n.ID))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s, seed %d", r.Protocol, r.Seed)
	p.X.Label.Text = "node"
	p.Y.Label.Text = "count"

	width := vg.Points(8)
	dBars, err := plotter.NewBarChart(delivered, width)
	if err != nil {
		return nil, err
	}
	dBars.Color = color.RGBA{64, 160, 64, 255}
	dBars.Offset = -width / 2

	cBars, err := plotter.NewBarChart(collisions, width)
	if err != nil {
		return nil, err
	}
	cBars.Color = color.RGBA{192, 64, 64, 255}
	cBars.Offset = width / 2

	p.Add(dBars, cBars)
	p.Legend.Add("delivered", dBars)
	p.Legend.Add("collisions", cBars)
	p.Legend.Top = true
	p.NominalX(names...)
	return p, nil
}

// SavePlot renders r's node chart to path. The image format follows the
// extension (png, svg, pdf, ...).
func SavePlot(path string, r *trial.Result) (re error) {
	if len(r.PerNode) == 0 {
		return fmt.Errorf("result %s has no per-node data to plot", r.RunID)
	}
	p, err := NodeChart(r)
	if err != nil {
		return err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return fmt.Errorf("plot path %q has no extension", path)
	}
	wt, err := p.WriterTo(vg.Length(max(4, len(r.PerNode)/2))*vg.Inch, 4*vg.Inch, format)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			re = multierror.Append(re, err)
		}
	}()
	_, err = wt.WriteTo(f)
	return err
}

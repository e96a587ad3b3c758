// Package cli provides output helpers for the matomeru commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hyperjump/matomeru/internal/models"
)

// OutputFormat is the format for partition output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one line of space-separated ids per cluster.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts text, compact or json.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
}

// Report is a partition together with what produced it.
type Report struct {
	Source    string                   `json:"source,omitempty"`
	Items     int                      `json:"items"`
	Partition models.PartitionResponse `json:"partition"`
	// Labels maps item ids to a short description shown in text output.
	Labels map[int]string `json:"labels,omitempty"`
	WallMS float64        `json:"wall_ms,omitempty"`
}

// WriteReport writes r to w in the given format. Unknown formats are written as text.
func WriteReport(w io.Writer, r *Report, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case OutputCompact:
		return writeCompact(w, r)
	default:
		writeText(w, r)
		return nil
	}
}

// PrintReport prints r to stdout.
func PrintReport(r *Report, format OutputFormat) error {
	return WriteReport(os.Stdout, r, format)
}

func writeCompact(w io.Writer, r *Report) error {
	for _, c := range r.Partition.Clusters {
		ids := make([]string, len(c))
		for i, id := range c {
			ids[i] = strconv.Itoa(id)
		}
		if _, err := fmt.Fprintln(w, strings.Join(ids, " ")); err != nil {
			return err
		}
	}
	return nil
}

func writeText(w io.Writer, r *Report) {
	p := r.Partition
	if p.Deferred {
		fmt.Fprintln(w, "Removal deferred until the replace completes")
		return
	}
	if r.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", r.Source)
	}
	fmt.Fprintf(w, "Clustered %d items into %d clusters (threshold %.4f)\n", r.Items, len(p.Clusters), p.Threshold)
	if p.Timing != nil {
		fmt.Fprintf(w, "Timing: tokenization %.2fms, inference %.2fms, clustering %.2fms, total %.2fms",
			p.Timing.TokenizationMS, p.Timing.InferenceMS, p.Timing.ClusteringMS, p.Timing.TotalMS)
		if r.WallMS > 0 {
			fmt.Fprintf(w, " (wall %.2fms)", r.WallMS)
		}
		fmt.Fprintln(w)
	}
	notes := make(map[int]bool)
	for _, g := range p.Groups {
		for _, id := range g.Notes {
			notes[id] = true
		}
	}
	for i, c := range p.Clusters {
		noun := "items"
		if len(c) == 1 {
			noun = "item"
		}
		fmt.Fprintf(w, "\nCluster %d (%d %s)\n", i+1, len(c), noun)
		for _, id := range c {
			marker := ""
			if notes[id] {
				marker = " (note)"
			}
			if label := r.Labels[id]; label != "" {
				fmt.Fprintf(w, "  [%d]%s %s\n", id, marker, label)
			} else {
				fmt.Fprintf(w, "  [%d]%s\n", id, marker)
			}
		}
	}
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"gopkg.in/yaml.v3"
)

// WriteTable renders results as a human-readable table
func WriteTable(w io.Writer, results []Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Iteration", "Marker", "Buffers", "Held", "Released", "Outcome", "Runtime")

	for _, r := range results {
		outcome := string(r.Outcome)
		if r.Reason != "" {
			outcome = fmt.Sprintf("%s (%s)", r.Outcome, r.Reason)
		}
		if err := table.Append(
			fmt.Sprintf("%d", r.Iteration),
			fmt.Sprintf("0x%02x", r.Marker),
			fmt.Sprintf("%d", r.Buffers),
			humanize.IBytes(r.Bytes()),
			fmt.Sprintf("%d", r.Released),
			outcome,
			r.Duration.Round(time.Millisecond).String(),
		); err != nil {
			return err
		}
	}

	return table.Render()
}

// WriteJSON encodes results as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteYAML encodes results as YAML
func WriteYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}

// Write renders results in the named format: table, json or yaml.
func Write(w io.Writer, format string, results []Result) error {
	switch format {
	case "json":
		return WriteJSON(w, results)
	case "yaml":
		return WriteYAML(w, results)
	case "table", "text", "":
		return WriteTable(w, results)
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// WriteTextfile dumps every metric family in g to path in the Prometheus
// text exposition format. The file is replaced atomically so a textfile
// collector never reads a partial dump.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create metrics textfile: %w", err)
	}
	defer os.Remove(tmp.Name())

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(tmp, mf); err != nil {
			tmp.Close()
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

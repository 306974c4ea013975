// Package report renders snapshots, plans, execution results and trash
// history for the terminal or for machine consumption.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/VN1SH/reclaim/internal/advisory"
	"github.com/VN1SH/reclaim/internal/aggregate"
	"github.com/VN1SH/reclaim/internal/executor"
	"github.com/VN1SH/reclaim/internal/fsitem"
	"github.com/VN1SH/reclaim/internal/plan"
	"github.com/VN1SH/reclaim/internal/snapshot"
	"github.com/VN1SH/reclaim/internal/store"
	"github.com/VN1SH/reclaim/internal/trash"
)

// Format selects the output encoding.
type Format string

const (
	FormatSummary Format = "summary"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatSummary, FormatJSON, FormatYAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported format: %s (want summary, json or yaml)", s)
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Reporter writes human or machine output for each pipeline stage.
// Styled output is only used when the caller detected a terminal.
type Reporter struct {
	w      io.Writer
	format Format
	styled bool
	redact bool
	ann    *advisory.Set
}

// New creates a Reporter. redact masks file paths in machine formats.
func New(w io.Writer, format Format, styled, redact bool) *Reporter {
	return &Reporter{w: w, format: format, styled: styled, redact: redact}
}

// WithAnnotations attaches advisory annotations. An annotation may raise
// the risk tier shown for an item, never lower it.
func (r *Reporter) WithAnnotations(set *advisory.Set) *Reporter {
	r.ann = set
	return r
}

func (r *Reporter) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// Snapshot renders a completed scan.
func (r *Reporter) Snapshot(snap *snapshot.Snapshot) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(r.snapshotExport(snap))
	case FormatYAML:
		return r.encodeYAML(r.snapshotExport(snap))
	default:
		return r.snapshotSummary(snap)
	}
}

// snapshotExport is the machine form of a scan; items pass through the
// advisory redaction layer.
func (r *Reporter) snapshotExport(snap *snapshot.Snapshot) any {
	return struct {
		ID         string                `json:"id" yaml:"id"`
		Roots      []string              `json:"roots" yaml:"roots"`
		StartedAt  time.Time             `json:"started_at" yaml:"started_at"`
		FinishedAt time.Time             `json:"finished_at" yaml:"finished_at"`
		Partial    bool                  `json:"partial" yaml:"partial"`
		Stats      aggregate.Stats       `json:"stats" yaml:"stats"`
		Items      []advisory.ExportItem `json:"items" yaml:"items"`
		Errors     []fsitem.ScanError    `json:"errors,omitempty" yaml:"errors,omitempty"`
	}{
		ID:         snap.ID,
		Roots:      snap.Roots,
		StartedAt:  snap.StartedAt,
		FinishedAt: snap.FinishedAt,
		Partial:    snap.Partial,
		Stats:      snap.Stats,
		Items:      advisory.Export(snap.Items, r.ann, r.redact),
		Errors:     snap.Errors,
	}
}

func (r *Reporter) snapshotSummary(snap *snapshot.Snapshot) error {
	fmt.Fprintln(r.w, r.style(titleStyle, "Scan "+snap.ID))
	fmt.Fprintf(r.w, "Roots:       %v\n", snap.Roots)
	fmt.Fprintf(r.w, "Duration:    %s\n", snap.FinishedAt.Sub(snap.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(r.w, "Total files: %s\n", humanize.Comma(int64(snap.Stats.TotalFiles)))
	fmt.Fprintf(r.w, "Total size:  %s\n", humanize.Bytes(uint64(snap.Stats.TotalSize)))
	if snap.Partial {
		fmt.Fprintln(r.w, r.style(warnStyle, "Partial scan: some subtrees could not be read."))
	}

	fmt.Fprintf(r.w, "\n%s\n", r.style(headerStyle, "By category"))
	for _, cat := range sortedCategories(snap.Stats.ByCategory) {
		b := snap.Stats.ByCategory[cat]
		fmt.Fprintf(r.w, "  %-22s %8s files  %10s\n",
			cat, humanize.Comma(int64(b.Count)), humanize.Bytes(uint64(b.Size)))
	}

	if len(snap.Stats.TopFiles) > 0 {
		fmt.Fprintf(r.w, "\n%s\n", r.style(headerStyle, "Largest files"))
		for _, it := range snap.Stats.TopFiles {
			fmt.Fprintf(r.w, "  %10s  %-8s  %s\n",
				humanize.Bytes(uint64(it.Size)), r.displayRisk(it), r.displayPath(it.Path))
		}
	}

	if len(snap.Stats.TopDirs) > 0 {
		fmt.Fprintf(r.w, "\n%s\n", r.style(headerStyle, "Largest directories"))
		for _, d := range snap.Stats.TopDirs {
			fmt.Fprintf(r.w, "  %10s  %s\n", humanize.Bytes(uint64(d.Size)), r.displayPath(d.Path))
		}
	}

	for _, v := range snap.Stats.Volumes {
		fmt.Fprintf(r.w, "\nVolume %s: %s used of %s (%.1f%%)\n",
			v.Mountpoint, humanize.Bytes(v.UsedBytes), humanize.Bytes(v.TotalBytes), v.UsedPercent)
	}

	if len(snap.Errors) > 0 {
		fmt.Fprintf(r.w, "\n%s\n", r.style(errStyle, fmt.Sprintf("Errors: %d", len(snap.Errors))))
		for i, e := range snap.Errors {
			if i == 10 {
				fmt.Fprintf(r.w, "  %s\n", r.style(dimStyle, fmt.Sprintf("... and %d more", len(snap.Errors)-10)))
				break
			}
			fmt.Fprintf(r.w, "  %s: %s\n", r.displayPath(e.Path), e.Message)
		}
	}
	return nil
}

// Plan renders a draft plan before execution.
func (r *Reporter) Plan(p *plan.Plan) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(r.planExport(p))
	case FormatYAML:
		return r.encodeYAML(r.planExport(p))
	}

	fmt.Fprintln(r.w, r.style(titleStyle, "Plan "+p.ID))
	fmt.Fprintf(r.w, "Snapshot:  %s\n", p.SnapshotID)
	fmt.Fprintf(r.w, "Action:    %s\n", p.Action)
	fmt.Fprintf(r.w, "Items:     %d\n", len(p.Items))
	fmt.Fprintf(r.w, "Reclaims:  %s\n", humanize.Bytes(uint64(p.TotalSize())))
	fmt.Fprintln(r.w)
	for _, it := range p.Items {
		fmt.Fprintf(r.w, "  %-22s %-6s %10s  %s\n",
			it.Category, it.Risk, humanize.Bytes(uint64(it.Size)), r.displayPath(it.Path))
	}
	return nil
}

func (r *Reporter) planExport(p *plan.Plan) any {
	type item struct {
		Path     string          `json:"path" yaml:"path"`
		Category fsitem.Category `json:"category" yaml:"category"`
		Risk     fsitem.RiskTier `json:"risk" yaml:"risk"`
		Action   plan.Action     `json:"action" yaml:"action"`
		Size     int64           `json:"size" yaml:"size"`
	}
	items := make([]item, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, item{
			Path:     r.displayPath(it.Path),
			Category: it.Category,
			Risk:     it.Risk,
			Action:   it.Action,
			Size:     it.Size,
		})
	}
	return struct {
		ID         string      `json:"id" yaml:"id"`
		SnapshotID string      `json:"snapshot_id" yaml:"snapshot_id"`
		CreatedAt  time.Time   `json:"created_at" yaml:"created_at"`
		Action     plan.Action `json:"action" yaml:"action"`
		TotalSize  int64       `json:"total_size" yaml:"total_size"`
		Items      []item      `json:"items" yaml:"items"`
	}{p.ID, p.SnapshotID, p.CreatedAt, p.Action, p.TotalSize(), items}
}

// Execution renders the per-item outcomes of a run.
func (r *Reporter) Execution(rep *executor.Report) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(r.executionExport(rep))
	case FormatYAML:
		return r.encodeYAML(r.executionExport(rep))
	}

	title := "Execution of plan " + rep.PlanID
	if rep.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintln(r.w, r.style(titleStyle, title))

	counts := map[plan.ResultKind]int{}
	for _, o := range rep.Outcomes {
		counts[o.Result]++
		line := fmt.Sprintf("  %-18s %s", o.Result, r.displayPath(o.Path))
		if o.Reason != plan.ReasonNone {
			line += fmt.Sprintf(" (%s: %s)", o.Reason, o.Message)
		}
		switch o.Result {
		case plan.ResultFailed, plan.ResultSkippedProtected:
			fmt.Fprintln(r.w, r.style(errStyle, line))
		case plan.ResultNotFound:
			fmt.Fprintln(r.w, r.style(dimStyle, line))
		default:
			fmt.Fprintln(r.w, line)
		}
	}

	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "Status:    %s\n", r.statusText(rep.Status))
	fmt.Fprintf(r.w, "Reclaimed: %s\n", humanize.Bytes(uint64(rep.Reclaimed)))
	fmt.Fprintf(r.w, "recycled %d, deleted %d, skipped %d, not found %d, failed %d\n",
		counts[plan.ResultRecycled], counts[plan.ResultDeleted],
		counts[plan.ResultSkippedProtected], counts[plan.ResultNotFound],
		counts[plan.ResultFailed])
	return nil
}

// executionExport is the machine form of a run; outcome paths pass
// through the same redaction as snapshot and plan exports.
func (r *Reporter) executionExport(rep *executor.Report) any {
	outcomes := make([]plan.Outcome, len(rep.Outcomes))
	copy(outcomes, rep.Outcomes)
	for i := range outcomes {
		outcomes[i].Path = r.displayPath(outcomes[i].Path)
	}
	return struct {
		PlanID    string         `json:"plan_id" yaml:"plan_id"`
		Status    plan.Status    `json:"status" yaml:"status"`
		DryRun    bool           `json:"dry_run" yaml:"dry_run"`
		Reclaimed int64          `json:"reclaimed_bytes" yaml:"reclaimed_bytes"`
		Outcomes  []plan.Outcome `json:"outcomes" yaml:"outcomes"`
	}{rep.PlanID, rep.Status, rep.DryRun, rep.Reclaimed, outcomes}
}

func (r *Reporter) statusText(s plan.Status) string {
	switch s {
	case plan.StatusCompleted:
		return r.style(successStyle, string(s))
	case plan.StatusPartiallyFailed:
		return r.style(warnStyle, string(s))
	}
	return string(s)
}

// History renders stored plan summaries.
func (r *Reporter) History(plans []store.PlanSummary) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(plans)
	case FormatYAML:
		return r.encodeYAML(plans)
	}

	if len(plans) == 0 {
		fmt.Fprintln(r.w, "No plans recorded.")
		return nil
	}
	fmt.Fprintln(r.w, r.style(headerStyle,
		fmt.Sprintf("%-18s %-20s %-17s %6s %10s  %s", "Plan", "Created", "Status", "Items", "Size", "Outcomes")))
	for _, p := range plans {
		outcomes := fmt.Sprintf("recycled %d, deleted %d, skipped %d, failed %d",
			p.Recycled, p.Deleted, p.Skipped, p.Failed)
		fmt.Fprintf(r.w, "%-18s %-20s %-17s %6d %10s  %s\n",
			p.ID, p.CreatedAt.Format("2006-01-02 15:04:05"), p.Status,
			p.ItemCount, humanize.Bytes(uint64(p.TotalSize)), outcomes)
	}
	return nil
}

// TrashEntries renders the recoverable-trash ledger.
func (r *Reporter) TrashEntries(entries []trash.Entry) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(r.trashExport(entries))
	case FormatYAML:
		return r.encodeYAML(r.trashExport(entries))
	}

	if len(entries) == 0 {
		fmt.Fprintln(r.w, "Trash is empty.")
		return nil
	}
	for _, e := range entries {
		state := ""
		if e.Restored {
			state = r.style(dimStyle, " (restored)")
		}
		fmt.Fprintf(r.w, "  %s  %-20s %10s  %s%s\n",
			e.ID, e.Timestamp.Format("2006-01-02 15:04:05"),
			humanize.Bytes(uint64(e.Size)), r.displayPath(e.From), state)
	}
	return nil
}

// trashExport redacts the original and holding-area locations of each
// ledger entry for machine output.
func (r *Reporter) trashExport(entries []trash.Entry) []trash.Entry {
	out := make([]trash.Entry, len(entries))
	copy(out, entries)
	for i := range out {
		out[i].From = r.displayPath(out[i].From)
		out[i].To = r.displayPath(out[i].To)
	}
	return out
}

func (r *Reporter) displayPath(p string) string {
	if r.redact {
		return advisory.Redact(p)
	}
	return p
}

func (r *Reporter) displayRisk(it fsitem.ClassifiedItem) fsitem.RiskTier {
	if r.ann != nil {
		return r.ann.DisplayRisk(it)
	}
	return it.Risk
}

func (r *Reporter) encodeJSON(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Reporter) encodeYAML(v any) error {
	enc := yaml.NewEncoder(r.w)
	defer enc.Close()
	return enc.Encode(v)
}

func sortedCategories(m map[fsitem.Category]aggregate.Bucket) []fsitem.Category {
	cats := make([]fsitem.Category, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

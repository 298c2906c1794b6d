package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/patrolgraph/pkg/patrol"
	"github.com/matzehuels/patrolgraph/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleTableHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleTableCell   = lipgloss.NewStyle().Padding(0, 1)

	styleGridWall   = lipgloss.NewStyle().Foreground(colorDim)
	styleGridSeen   = lipgloss.NewStyle().Foreground(colorGreen)
	styleGridOrigin = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	styleGridDiff   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Build Output
// =============================================================================

// printStats prints build statistics on a single line.
func printStats(res *pipeline.Result) {
	fmt.Println("  " + statsLine(res))
}

// statsLine joins the non-zero build counts with a cache marker:
// "4 guards · 5 edges · 2 partitions · fresh".
func statsLine(res *pipeline.Result) string {
	var parts []string
	add := func(n int, unit string) {
		if n > 0 {
			parts = append(parts, StyleDim.Render(fmt.Sprintf("%d %s", n, unit)))
		}
	}
	add(res.Stats.FreeTiles, "free tiles")
	add(res.Stats.Guards, "guards")
	add(res.Stats.Edges, "edges")
	add(res.Stats.Partitions, "partitions")
	if res.Stats.TotalTime > 0 {
		parts = append(parts, StyleDim.Render(res.Stats.TotalTime.Round(time.Millisecond).String()))
	}

	switch {
	case res.CacheInfo.GraphHit:
		parts = append(parts, styleCached.Render(iconCached))
	case res.CacheInfo.VisibilityHit:
		parts = append(parts, styleCached.Render("visibility "+iconCached))
	default:
		parts = append(parts, styleComputed.Render(iconFresh))
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

// partitionTable renders one row per territory with its size, total vertex
// weight and members.
func partitionTable(g *patrol.Graph, parts []patrol.Partition) string {
	rows := make([][]string, 0, len(parts))
	for _, p := range parts {
		weight := 0.0
		members := make([]string, 0, len(p.VertexIDs))
		for _, id := range p.VertexIDs {
			if v, ok := g.Vertex(id); ok {
				weight += v.Weight
			}
			members = append(members, strconv.Itoa(id))
		}
		rows = append(rows, []string{
			strconv.Itoa(p.ID),
			strconv.Itoa(len(p.VertexIDs)),
			strconv.FormatFloat(weight, 'f', -1, 64),
			truncate(strings.Join(members, " "), 40),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Territory", "Vertices", "Weight", "Members").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader.Padding(0, 1)
			}
			return styleTableCell
		})
	return t.Render()
}

// styleGridLine colours one line of a visibility grid.
func styleGridLine(line string) string {
	var sb strings.Builder
	for _, r := range line {
		s := string(r)
		switch r {
		case gridWall:
			sb.WriteString(styleGridWall.Render(s))
		case gridSeen:
			sb.WriteString(styleGridSeen.Render(s))
		case gridOrigin:
			sb.WriteString(styleGridOrigin.Render(s))
		case gridOnlyA, gridOnlyB:
			sb.WriteString(styleGridDiff.Render(s))
		default:
			sb.WriteString(StyleDim.Render(s))
		}
	}
	return sb.String()
}

// truncate shortens s to at most n runes, ending in "…" when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

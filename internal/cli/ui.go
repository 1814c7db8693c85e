package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/licensecrawl/pkg/deps"
	"github.com/matzehuels/licensecrawl/pkg/lockfile"
	"github.com/matzehuels/licensecrawl/pkg/observability"
	"github.com/matzehuels/licensecrawl/pkg/report"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleLink    = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleHeader      = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Scan Output
// =============================================================================

// printSummary prints the totals of a scan and the policy verdict.
func printSummary(w io.Writer, s report.Summary, patterns []string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, StyleTitle.Render("License summary"))
	printKeyValue(w, "Packages", fmt.Sprint(s.Total))
	if s.Unknown > 0 {
		printKeyValue(w, "Unknown", StyleWarning.Render(fmt.Sprint(s.Unknown)))
	}
	if s.Degraded > 0 {
		printKeyValue(w, "Fetch failed", StyleWarning.Render(fmt.Sprint(s.Degraded)))
	}
	if len(patterns) == 0 {
		return
	}
	printKeyValue(w, "Allowed", strings.Join(patterns, ", "))
	if n := len(s.Violations); n > 0 {
		printError(w, "%s with non-compliant licenses", StyleError.Render(fmt.Sprint(n)))
	} else {
		printSuccess(w, "All licenses are compliant")
	}
}

// printFetchStats prints registry traffic and cache effectiveness.
func printFetchStats(w io.Writer, s observability.Snapshot) {
	if s.Fetches == 0 {
		return
	}
	line := fmt.Sprintf("%d fetches, %d requests, %.0f%% cache hits", s.Fetches, s.Requests, 100*s.HitRate())
	if s.Retries > 0 {
		line += fmt.Sprintf(", %d retries", s.Retries)
	}
	if s.Throttled > 0 {
		line += fmt.Sprintf(", %d throttled", s.Throttled)
	}
	printKeyValue(w, "Registry", line)
}

// printLicenseTable prints license usage, most used first.
func printLicenseTable(w io.Writer, s report.Summary) {
	if len(s.Licenses) == 0 {
		return
	}
	rows := make([][]string, 0, len(s.Licenses))
	for _, lc := range s.Licenses {
		verdict := ""
		if !lc.Allowed {
			verdict = "NOT ALLOWED"
		}
		rows = append(rows, []string{lc.License, fmt.Sprint(lc.Count), fmt.Sprintf("%.1f%%", lc.Percent), verdict, lc.URL})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("License", "Packages", "Share", "", "URL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			lc := s.Licenses[row]
			switch {
			case col == 3:
				return StyleError
			case col == 4:
				return StyleDim
			case !lc.Allowed:
				return lipgloss.NewStyle().Foreground(colorRed)
			case lc.License == deps.UnknownLicense:
				return StyleWarning
			}
			return StyleValue
		})

	fmt.Fprintln(w)
	fmt.Fprintln(w, StyleTitle.Render("License usage"))
	fmt.Fprintln(w, t.Render())
}

// printLockfileInfo prints the seeds of lf for --info.
func printLockfileInfo(w io.Writer, lf *lockfile.Lockfile) {
	counts := map[deps.Registry]int{}
	for _, id := range lf.Seeds {
		counts[id.Registry]++
	}
	fmt.Fprintln(w, StyleTitle.Render(lf.Path))
	printKeyValue(w, "Format", lf.Type)
	printKeyValue(w, "Packages", fmt.Sprint(len(lf.Seeds)))
	printKeyValue(w, "npm", fmt.Sprint(counts[deps.RegistryNPM]))
	printKeyValue(w, "GitHub", fmt.Sprint(counts[deps.RegistryGitHub]))
	for _, id := range lf.Seeds {
		fmt.Fprintln(w, "  "+StyleValue.Render(id.String())+" "+StyleLink.Render(id.HomeURL()))
	}
	fmt.Fprintln(w)
}

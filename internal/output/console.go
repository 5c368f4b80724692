// Package output renders load-test progress and results for the terminal
// and encodes run records as JSON or YAML.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Otavio-CB/non-functional-tester/internal/loadtest"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/dispatch"
	"github.com/Otavio-CB/non-functional-tester/internal/loadtest/metrics"
)

const (
	clearLine = "\r\033[2K"

	ruleChar       = "━"
	progressFilled = "█"
	progressEmpty  = "░"
	progressWidth  = 30
)

// Progress is what the live display shows about a run in progress.
type Progress struct {
	Progress  float64 // 0.0 to 1.0
	Elapsed   time.Duration
	Remaining time.Duration

	Batches  int64
	Requests int64
	Failed   int64
	RPS      float64
	P50      time.Duration
	P95      time.Duration
}

// ProgressFrom combines dispatcher stats and tracker stats into a Progress.
func ProgressFrom(stats dispatch.Stats, live metrics.LiveStats) Progress {
	remaining := time.Duration(0)
	if stats.Progress > 0 && stats.Progress < 1 {
		remaining = time.Duration(float64(stats.Elapsed) * (1 - stats.Progress) / stats.Progress)
	}

	return Progress{
		Progress:  stats.Progress,
		Elapsed:   stats.Elapsed,
		Remaining: remaining,
		Batches:   stats.Batches,
		Requests:  live.Requests,
		Failed:    live.Failed,
		RPS:       live.RPS,
		P50:       live.P50,
		P95:       live.P95,
	}
}

// ConsoleConfig contains configuration for Console.
type ConsoleConfig struct {
	Writer      io.Writer
	Quiet       bool
	NoColor     bool
	ForceColors bool
	ForceTTY    bool
}

// Console writes run progress and results for humans.
type Console struct {
	writer io.Writer
	isTTY  bool
	colors *ColorScheme
	quiet  bool

	mu         sync.Mutex
	liveActive bool
}

// NewConsole creates a console writer.
func NewConsole(cfg ConsoleConfig) *Console {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	isTTY := cfg.ForceTTY || isTerminal(cfg.Writer)
	useColors := !cfg.NoColor && (cfg.ForceColors || (isTTY && supportsColors()))

	colors := NoColorScheme()
	if useColors {
		colors = DefaultColorScheme()
	}

	return &Console{
		writer: cfg.Writer,
		isTTY:  isTTY,
		colors: colors,
		quiet:  cfg.Quiet,
	}
}

// IsTTY returns whether the output is a terminal.
func (c *Console) IsTTY() bool {
	return c.isTTY
}

// PrintHeader announces a run about to start.
func (c *Console) PrintHeader(kind loadtest.Kind, cfg loadtest.TestConfig) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rule := c.colors.Dim.Sprint(strings.Repeat(ruleChar, 56))
	c.writeln(rule)
	c.writeln(fmt.Sprintf("%s %s", c.colors.Title.Sprintf("%s test", kindTitle(kind)), c.colors.URL.Sprint(cfg.TargetURL)))
	c.writeln(rule)

	switch kind {
	case loadtest.KindPerformance:
		c.writeln(fmt.Sprintf("Duration:      %s", c.colors.Value.Sprint(formatDuration(cfg.RunDuration()))))
	default:
		c.writeln(fmt.Sprintf("Requests:      %s", c.colors.Value.Sprint(formatNumber(int64(cfg.Requests)))))
	}
	c.writeln(fmt.Sprintf("Concurrency:   %s", c.colors.Value.Sprint(cfg.Concurrency)))
	c.writeln("")
}

// Update redraws the single live progress line. It does nothing unless the
// output is a terminal.
func (c *Console) Update(p Progress) {
	if c.quiet || !c.isTTY {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.write(clearLine + c.renderProgress(p))
	c.liveActive = true
}

// PrintNonInteractiveUpdate prints a status line for logs and CI output.
func (c *Console) PrintNonInteractiveUpdate(p Progress) {
	if c.quiet {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.writeln(fmt.Sprintf("[%s] Progress: %.0f%% | Reqs: %d | RPS: %.1f | Failed: %d | P50: %s | P95: %s",
		formatDuration(p.Elapsed),
		p.Progress*100,
		p.Requests,
		p.RPS,
		p.Failed,
		formatDurationShort(p.P50),
		formatDurationShort(p.P95)))
}

func (c *Console) renderProgress(p Progress) string {
	failed := c.colors.Success
	if p.Failed > 0 {
		failed = c.colors.Error
	}

	return fmt.Sprintf("%s %s | %s | reqs %s | %s rps | failed %s | p50 %s p95 %s",
		c.colors.Success.Sprint(renderProgressBar(p.Progress, progressWidth)),
		c.colors.Title.Sprintf("%3.0f%%", clampUnit(p.Progress)*100),
		c.colors.Dim.Sprint(formatDuration(p.Elapsed)),
		c.colors.Value.Sprint(formatNumber(p.Requests)),
		c.colors.Value.Sprintf("%.1f", p.RPS),
		failed.Sprint(p.Failed),
		c.colors.Latency.Sprint(formatDurationShort(p.P50)),
		c.colors.Latency.Sprint(formatDurationShort(p.P95)))
}

// PrintSummary prints the final record of a run.
func (c *Console) PrintSummary(rec loadtest.RunRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.endLive()

	if c.quiet {
		c.writeln(fmt.Sprintf("%s %d/%d successful", rec.TestID, rec.SuccessfulRequests, rec.TotalRequests))
		return
	}

	successRate := 0.0
	if rec.TotalRequests > 0 {
		successRate = float64(rec.SuccessfulRequests) / float64(rec.TotalRequests)
	}

	status := c.colors.Warn.Sprint(string(rec.Status))
	if rec.IsCompleted() {
		icon := c.colors.Success.Sprint("✓")
		if rec.FailedRequests > 0 {
			icon = c.colors.Error.Sprint("✗")
		}
		status = fmt.Sprintf("%s %s", c.colors.Success.Sprint("Completed"), icon)
	}

	rule := c.colors.Dim.Sprint(strings.Repeat(ruleChar, 56))
	c.writeln("")
	c.writeln(rule)
	c.writeln(fmt.Sprintf("%s %s - %s",
		c.colors.Title.Sprintf("%s test", kindTitle(rec.TestType)),
		c.colors.Highlight.Sprint(rec.TestID),
		status))
	c.writeln(rule)
	c.writeln("")

	c.writeln(fmt.Sprintf("Target:        %s", c.colors.URL.Sprint(rec.Config.TargetURL)))
	c.writeln(fmt.Sprintf("Duration:      %s", c.colors.Value.Sprint(formatDuration(rec.Duration()))))
	c.writeln(fmt.Sprintf("Total Reqs:    %s", c.colors.Value.Sprint(formatNumber(rec.TotalRequests))))
	c.writeln(fmt.Sprintf("Successful:    %s", c.colors.Value.Sprint(formatNumber(rec.SuccessfulRequests))))
	c.writeln(fmt.Sprintf("Failed:        %s", c.colors.Value.Sprint(formatNumber(rec.FailedRequests))))
	c.writeln(fmt.Sprintf("Success Rate:  %s", c.colors.Rate(successRate).Sprintf("%.1f%%", successRate*100)))
	c.writeln(fmt.Sprintf("Throughput:    %s", c.colors.Value.Sprintf("%.2f req/s", rec.RequestsPerSecond)))
	c.writeln("")

	c.writeln(c.colors.Title.Sprint("Response Times:"))
	c.writeln(fmt.Sprintf("  Min:       %s", c.colors.Latency.Sprint(formatSeconds(rec.MinResponseTime))))
	c.writeln(fmt.Sprintf("  Avg:       %s", c.colors.Latency.Sprint(formatSeconds(rec.AverageResponseTime))))
	c.writeln(fmt.Sprintf("  P90:       %s", c.colors.Latency.Sprint(formatSeconds(rec.Percentile90))))
	c.writeln(fmt.Sprintf("  Max:       %s", c.colors.Latency.Sprint(formatSeconds(rec.MaxResponseTime))))
	c.writeln("")

	if len(rec.ResourceStats) > 0 {
		m := rec.ResourceMetrics
		c.writeln(c.colors.Title.Sprint("Resources:"))
		c.writeln(fmt.Sprintf("  CPU:       max %s  avg %s",
			c.colors.Value.Sprintf("%.1f%%", m.MaxCPU), c.colors.Value.Sprintf("%.1f%%", m.AvgCPU)))
		c.writeln(fmt.Sprintf("  Memory:    max %s  avg %s",
			c.colors.Value.Sprintf("%.0f MB", m.MaxMemory), c.colors.Value.Sprintf("%.0f MB", m.AvgMemory)))
		c.writeln(fmt.Sprintf("  Samples:   %d", len(rec.ResourceStats)))
		c.writeln("")
	}

	if len(rec.Errors) > 0 {
		c.writeln(c.colors.Title.Sprint("Errors:"))
		for _, msg := range rec.Errors {
			c.writeln(fmt.Sprintf("  %s %s", c.colors.Error.Sprint("✗"), msg))
		}
		c.writeln("")
	}
}

// PrintResults prints one line per run, in the order given.
func (c *Console) PrintResults(recs []loadtest.RunRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(recs) == 0 {
		c.writeln("No test results.")
		return
	}

	tw := tabwriter.NewWriter(c.writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tSTARTED\tREQUESTS\tFAILED\tAVG\tRPS")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%.2f\n",
			rec.TestID,
			rec.TestType,
			rec.Status,
			rec.StartTime.Local().Format(time.DateTime),
			rec.TotalRequests,
			rec.FailedRequests,
			formatSeconds(rec.AverageResponseTime),
			rec.RequestsPerSecond)
	}
	_ = tw.Flush()
}

// endLive moves past the live progress line. The caller holds c.mu.
func (c *Console) endLive() {
	if c.liveActive {
		c.write(clearLine)
		c.liveActive = false
	}
}

func (c *Console) write(s string) {
	fmt.Fprint(c.writer, s)
}

func (c *Console) writeln(s string) {
	fmt.Fprintln(c.writer, s)
}

func kindTitle(kind loadtest.Kind) string {
	switch kind {
	case loadtest.KindPerformance:
		return "Performance"
	case loadtest.KindStress:
		return "Stress"
	default:
		return string(kind)
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func renderProgressBar(progress float64, width int) string {
	filled := int(clampUnit(progress) * float64(width))
	return "[" + strings.Repeat(progressFilled, filled) + strings.Repeat(progressEmpty, width-filled) + "]"
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %02dm %02ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

// formatDurationShort formats a latency.
func formatDurationShort(d time.Duration) string {
	if d < time.Microsecond {
		return "0ms"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// formatSeconds formats a response time stored in seconds.
func formatSeconds(s float64) string {
	return formatDurationShort(time.Duration(s * float64(time.Second)))
}

// formatNumber formats a number with thousands separators.
func formatNumber(n int64) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}

	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	var b strings.Builder
	offset := len(str) % 3
	if offset > 0 {
		b.WriteString(str[:offset])
	}
	for i := offset; i < len(str); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(str[i : i+3])
	}
	return b.String()
}

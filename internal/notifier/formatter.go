package notifier

import (
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"CryptoBoard/internal/collector"
	"CryptoBoard/internal/model"
	"CryptoBoard/internal/projector"
	"CryptoBoard/internal/view"
)

// ChartWidth is the bar length of the largest absolute value in a chart.
const ChartWidth = 40

var headers = []string{"Name", "Symbol", "Market Cap", "1h %", "24h %", "7d %", "30d %", "90d %", "Price", "Volume 24h"}

// FormatTable renders t as a fixed-width text table with the stable columns.
func FormatTable(t model.InstrumentTable) string {
	cells := make([][]string, 0, len(t.Rows)+1)
	cells = append(cells, headers)
	for _, r := range t.Rows {
		cells = append(cells, []string{
			r.Name,
			r.Symbol,
			fmt.Sprintf("%.0f", r.MarketCap),
			fmt.Sprintf("%+.2f", r.PercentChange1h),
			fmt.Sprintf("%+.2f", r.PercentChange24h),
			fmt.Sprintf("%+.2f", r.PercentChange7d),
			fmt.Sprintf("%+.2f", r.PercentChange30d),
			fmt.Sprintf("%+.2f", r.PercentChange90d),
			formatPrice(r.Price),
			fmt.Sprintf("%.0f", r.Volume24h),
		})
	}

	widths := make([]int, len(headers))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], len(c))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Unit: %s", t.Unit)
	if !t.FetchedAt.IsZero() {
		fmt.Fprintf(&b, " | %s", t.FetchedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, " | %d rows\n", len(t.Rows))
	for n, row := range cells {
		for i, c := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			// Names and symbols left-aligned, numbers right-aligned.
			if i < 2 {
				fmt.Fprintf(&b, "%-*s", widths[i], c)
			} else {
				fmt.Fprintf(&b, "%*s", widths[i], c)
			}
		}
		b.WriteString("\n")
		if n == 0 {
			total := len(widths)*2 - 2
			for _, w := range widths {
				total += w
			}
			b.WriteString(strings.Repeat("-", total))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatPrice(p float64) string {
	if p != 0 && math.Abs(p) < 1 {
		return fmt.Sprintf("%.8f", p)
	}
	return fmt.Sprintf("%.2f", p)
}

// FormatChart renders the bar series for horizon h. Positive values are
// drawn with '+', the rest with '-', scaled to ChartWidth.
func FormatChart(series []view.Bar, h model.Horizon) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Change %s (%%)\n", h)
	if len(series) == 0 {
		b.WriteString("(no data)\n")
		return b.String()
	}

	peak, label := 0.0, 0
	for _, bar := range series {
		peak = math.Max(peak, math.Abs(bar.Value))
		label = max(label, len(bar.Symbol))
	}
	for _, bar := range series {
		n := 0
		if peak > 0 {
			n = int(math.Round(math.Abs(bar.Value) / peak * ChartWidth))
		}
		mark := "-"
		if bar.Positive {
			mark = "+"
		}
		fmt.Fprintf(&b, "%-*s |%-*s %+.2f\n", label, bar.Symbol, ChartWidth, strings.Repeat(mark, n), bar.Value)
	}
	return b.String()
}

// FormatError renders the message shown in place of a table when a
// refresh fails.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var reason string
	switch {
	case errors.Is(err, collector.ErrTimeout):
		reason = "the source did not answer in time"
	case errors.Is(err, collector.ErrNetwork):
		reason = "the source could not be reached"
	case errors.Is(err, collector.ErrMarkerNotFound):
		reason = "the page no longer carries the embedded listing"
	case errors.Is(err, collector.ErrMalformedPayload):
		reason = "the embedded listing could not be decoded"
	case errors.Is(err, projector.ErrSchemaMismatch):
		reason = "the listing layout no longer matches the field map"
	case errors.Is(err, view.ErrTopOutOfRange):
		reason = "the requested row count is out of range"
	default:
		reason = "unexpected failure"
	}
	return fmt.Sprintf("Board unavailable: %s.\n  %v\n", reason, err)
}

// FormatBoard wraps the rendered table and chart for an HTML chat message.
func FormatBoard(t model.InstrumentTable, series []view.Bar, h model.Horizon) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Crypto board</b> | %s\n", t.Unit)
	b.WriteString("<pre>")
	b.WriteString(html.EscapeString(FormatTable(t)))
	b.WriteString("</pre>")
	if series != nil {
		b.WriteString("\n<pre>")
		b.WriteString(html.EscapeString(FormatChart(series, h)))
		b.WriteString("</pre>")
	}
	return b.String()
}

// FormatErrorHTML is FormatError escaped for an HTML chat message.
func FormatErrorHTML(err error) string {
	return "⚠️ <pre>" + html.EscapeString(FormatError(err)) + "</pre>"
}

// ABOUTME: Report rendering, collection windows and delivery targets
// ABOUTME: Renders markdown for the vault and truncated text for channel push
package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/chatdigest/internal/models"
)

// pushLimit keeps pushed text under the platform's ~4096 char message cap
const pushLimit = 4000

// HourlyWindow returns the past full hour ending at now
func HourlyWindow(now time.Time) (start, end time.Time) {
	return now.Add(-time.Hour), now
}

// DailyWindow returns the 24h window ending at today's 08:00 local time.
// Before 08:00 the window ends at yesterday's 08:00 so a late run still
// covers a completed day.
func DailyWindow(now time.Time) (start, end time.Time) {
	end = time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, now.Location())
	if now.Before(end) {
		end = end.AddDate(0, 0, -1)
	}
	return end.AddDate(0, 0, -1), end
}

// Render produces the full markdown document for a report
func Render(r models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# 📊 %s\n\n", title(r.Kind))
	fmt.Fprintf(&b, "> Generated: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "> Period: %s - %s\n\n", r.PeriodStart.Format("2006-01-02 15:04"), r.PeriodEnd.Format("2006-01-02 15:04"))
	b.WriteString(r.Content)
	b.WriteString("\n\n---\n*Generated by chatdigest*\n")
	return b.String()
}

// RenderPush produces the channel message for a report, truncated to the
// platform limit
func RenderPush(r models.Report) string {
	header := fmt.Sprintf("📊 **%s**\n📅 %s ~ %s\n\n", title(r.Kind),
		r.PeriodStart.Format("01-02 15:04"), r.PeriodEnd.Format("01-02 15:04"))
	return Truncate(header+r.Content, pushLimit)
}

// Truncate cuts text at limit runes, appending an ellipsis marker
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// Filename returns the vault file name for a report
func Filename(r models.Report) string {
	switch r.Kind {
	case models.ReportDaily:
		return fmt.Sprintf("DailyReport_%s_to_%s.md",
			r.PeriodStart.Format("20060102"), r.PeriodEnd.Format("20060102"))
	default:
		return fmt.Sprintf("PastHourReport_%s.md", r.CreatedAt.Format("20060102_1504"))
	}
}

// SaveToVault writes the rendered report into the vault directory,
// creating it when missing. Returns the written path.
func SaveToVault(vaultPath string, r models.Report) (string, error) {
	if vaultPath == "" {
		return "", fmt.Errorf("no vault path configured")
	}
	if err := os.MkdirAll(vaultPath, 0755); err != nil {
		return "", fmt.Errorf("create vault directory: %w", err)
	}

	path := filepath.Join(vaultPath, Filename(r))
	if err := os.WriteFile(path, []byte(Render(r)), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	log.Printf("[report] Saved to %s", path)
	return path, nil
}

func title(kind models.ReportKind) string {
	if kind == models.ReportDaily {
		return "24h Deep Digest"
	}
	return "Global Digest (past hour)"
}

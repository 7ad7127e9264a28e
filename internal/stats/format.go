// Package stats renders the join statistics reports and delivers them to the
// admins of every tracked chat.
package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/edgard/joinkeeper/internal/database"
)

const separator = "➖➖➖➖➖➖➖➖➖➖"

// FormatHourly renders the report for the last hour.
func FormatHourly(hourly database.Counters, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Статистика за последний час (%s):\n", now.Format("15:04"))
	fmt.Fprintf(&sb, "📈 Новых заявок: %d\n", hourly.Requests)
	fmt.Fprintf(&sb, "📉 Покинули группу: %d\n", hourly.Left)
	sb.WriteString(separator + "\n")
	fmt.Fprintf(&sb, "🔄 Прирост: %d", hourly.NetGrowth())
	return sb.String()
}

// FormatDaily renders the 8-hour report followed by the all-time totals.
func FormatDaily(daily, total database.Counters, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📈 Статистика за последние 8 часов (%s):\n\n", now.Format("02.01.2006 15:04"))
	writeWindow(&sb, daily)
	sb.WriteString("\n")
	writeTotal(&sb, total)
	return sb.String()
}

// FormatCurrent renders the numbers collected so far in every window, as
// answered to the /stats command.
func FormatCurrent(hourly, daily, total database.Counters, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Текущая статистика (%s):\n\n", now.Format("02.01.2006 15:04"))
	fmt.Fprintf(&sb, "⏱ С %s:\n", hourly.WindowStartedAt.In(now.Location()).Format("15:04"))
	writeWindow(&sb, hourly)
	fmt.Fprintf(&sb, "\n🕗 С %s:\n", daily.WindowStartedAt.In(now.Location()).Format("02.01 15:04"))
	writeWindow(&sb, daily)
	sb.WriteString("\n")
	writeTotal(&sb, total)
	return sb.String()
}

func writeWindow(sb *strings.Builder, c database.Counters) {
	fmt.Fprintf(sb, "📝 Новых заявок: %d\n", c.Requests)
	fmt.Fprintf(sb, "✅ Одобрено: %d\n", c.Approved)
	fmt.Fprintf(sb, "👋 Покинули группу: %d\n", c.Left)
	fmt.Fprintf(sb, "🔄 Чистый прирост: %d\n", c.NetGrowth())
}

func writeTotal(sb *strings.Builder, c database.Counters) {
	sb.WriteString("📊 Общая статистика:\n")
	fmt.Fprintf(sb, "📋 Всего заявок: %d\n", c.Requests)
	fmt.Fprintf(sb, "✅ Всего одобрено: %d\n", c.Approved)
	fmt.Fprintf(sb, "👋 Всего покинуло: %d", c.Left)
}

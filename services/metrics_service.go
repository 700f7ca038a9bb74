package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dispatch-dashboard/models"
)

// StatusFilterAll disables the status predicate.
const StatusFilterAll = "all"

// Everything in this file is pure over (events, filters, now); the
// caller recomputes on every state change.

// FilterEvents applies the vendor, status and search predicates with
// logical AND. An empty vendor filter means no restriction; "all" (or
// empty) disables the status filter; a non-empty query must match at
// least one of vendor, location, type or id, case-insensitively.
func FilterEvents(events []models.Event, vendorFilter, statusFilter, query string) []models.Event {
	query = strings.ToLower(strings.TrimSpace(query))

	filtered := []models.Event{}
	for _, event := range events {
		if vendorFilter != "" && event.Vendor != vendorFilter {
			continue
		}
		if statusFilter != "" && statusFilter != StatusFilterAll && event.Status != statusFilter {
			continue
		}
		if query != "" && !matchesQuery(event, query) {
			continue
		}
		filtered = append(filtered, event)
	}
	return filtered
}

func matchesQuery(event models.Event, query string) bool {
	for _, field := range []string{event.Vendor, event.Location, event.Type, event.ID} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// ComputeKPIs derives the dashboard ticker from the event collection.
// Spend totals and averages run through decimal so currency sums do
// not drift.
func ComputeKPIs(events []models.Event, now time.Time) models.KPISummary {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevMonthStart := monthStart.AddDate(0, -1, 0)

	total := decimal.Zero
	mtd := decimal.Zero
	prevMonth := decimal.Zero
	events24h := 0
	eventsPrev24h := 0
	activeAlerts := 0

	for _, event := range events {
		price := decimal.NewFromFloat(safePrice(event.Price))
		total = total.Add(price)

		if event.Status == models.StatusReview || event.Status == models.StatusPending {
			activeAlerts++
		}

		ts, ok := eventTime(event)
		if !ok {
			continue
		}
		if !ts.Before(monthStart) && !ts.After(now) {
			mtd = mtd.Add(price)
		}
		if !ts.Before(prevMonthStart) && ts.Before(monthStart) {
			prevMonth = prevMonth.Add(price)
		}
		if !ts.Before(now.Add(-24*time.Hour)) && !ts.After(now) {
			events24h++
		} else if !ts.Before(now.Add(-48*time.Hour)) && ts.Before(now.Add(-24*time.Hour)) {
			eventsPrev24h++
		}
	}

	avgCost := decimal.Zero
	if len(events) > 0 {
		avgCost = total.Div(decimal.NewFromInt(int64(len(events))))
	}

	trend := decimal.Zero
	switch {
	case prevMonth.IsZero() && mtd.IsPositive():
		trend = decimal.NewFromInt(100)
	case prevMonth.IsZero():
		// both zero, trend stays 0
	default:
		trend = mtd.Sub(prevMonth).Div(prevMonth).Mul(decimal.NewFromInt(100))
	}

	delta := events24h - eventsPrev24h
	spendTrendPct := trend.InexactFloat64()

	return models.KPISummary{
		TotalSpend:       total.InexactFloat64(),
		AvgCost:          avgCost.InexactFloat64(),
		EventCount:       len(events),
		ActiveAlerts:     activeAlerts,
		MTDSpend:         mtd.InexactFloat64(),
		SpendTrendPct:    spendTrendPct,
		Events24h:        events24h,
		EventsTrendDelta: delta,
		SpendFavorable:   spendTrendPct <= 0,
		EventsFavorable:  delta <= 0,
	}
}

// WeeklyVolume buckets volume and spend per calendar day for the 7
// days ending today inclusive. Buckets are explicit local-midnight
// ranges, not string-prefix matches on the stored date.
func WeeklyVolume(events []models.Event, now time.Time) []models.WeeklyBucket {
	buckets := make([]models.WeeklyBucket, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		end := start.Add(24 * time.Hour)

		bucket := models.WeeklyBucket{DayLabel: day.Weekday().String()[:3]}
		spend := decimal.Zero
		for _, event := range events {
			ts, ok := eventTime(event)
			if !ok {
				continue
			}
			if !ts.Before(start) && ts.Before(end) {
				bucket.Volume++
				spend = spend.Add(decimal.NewFromFloat(safePrice(event.Price)))
			}
		}
		bucket.Spend = spend.InexactFloat64()
		buckets = append(buckets, bucket)
	}
	return buckets
}

// TopIncidentTypes groups events by type, descending by count,
// truncated to limit. Empty input yields a single placeholder entry so
// the distribution panel never renders blank.
func TopIncidentTypes(events []models.Event, limit int) []models.TypeCount {
	if len(events) == 0 {
		return []models.TypeCount{{Type: "No Data", Count: 0}}
	}

	counts := make(map[string]int)
	for _, event := range events {
		name := event.Type
		if name == "" {
			name = "Unknown"
		}
		counts[name]++
	}

	result := make([]models.TypeCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, models.TypeCount{Type: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Type < result[j].Type
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// UrgentItems returns the events needing attention (review or
// pending), preserving the collection's most-recent-first order,
// truncated to limit. Independent of the active filter set.
func UrgentItems(events []models.Event, limit int) []models.Event {
	urgent := []models.Event{}
	for _, event := range events {
		if event.Status == models.StatusReview || event.Status == models.StatusPending {
			urgent = append(urgent, event)
			if len(urgent) == limit {
				break
			}
		}
	}
	return urgent
}

// eventTime resolves the canonical instant for window computations:
// created_at when present, the display timestamp otherwise.
func eventTime(event models.Event) (time.Time, bool) {
	if event.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, event.CreatedAt); err == nil {
			return ts, true
		}
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if ts, err := time.Parse(layout, event.Timestamp); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// safePrice coerces absent or garbage prices to 0 so spend aggregates
// stay meaningful.
func safePrice(price float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}
	return price
}

package services

import (
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"dispatch-dashboard/models"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func eventAt(id string, ts time.Time, status, vendor string, price float64) models.Event {
	return models.Event{
		ID:        id,
		Timestamp: ts.Format("2006-01-02 15:04"),
		CreatedAt: ts.Format(time.RFC3339),
		Status:    status,
		Vendor:    vendor,
		Location:  "Dallas, TX",
		Type:      "Heavy Tow",
		Price:     price,
	}
}

func TestFilterEvents(t *testing.T) {
	events := []models.Event{
		{ID: "EV-1", Vendor: "ABS Towing", Location: "Dallas, TX", Type: "Heavy Tow", Status: models.StatusResolved},
		{ID: "EV-2", Vendor: "Midwest Recovery", Location: "Chicago, IL", Type: "Lockout", Status: models.StatusPending},
		{ID: "EV-3", Vendor: "ABS Towing", Location: "Atlanta, GA", Type: "Tire Service", Status: models.StatusReview},
	}

	tests := []struct {
		name    string
		vendor  string
		status  string
		query   string
		wantIDs []string
	}{
		{
			name:    "no filters",
			wantIDs: []string{"EV-1", "EV-2", "EV-3"},
		},
		{
			name:    "status all is no restriction",
			status:  "all",
			wantIDs: []string{"EV-1", "EV-2", "EV-3"},
		},
		{
			name:    "vendor exact match",
			vendor:  "ABS Towing",
			wantIDs: []string{"EV-1", "EV-3"},
		},
		{
			name:    "vendor and status compose with AND",
			vendor:  "ABS Towing",
			status:  models.StatusReview,
			wantIDs: []string{"EV-3"},
		},
		{
			name:    "query matches location case-insensitively",
			query:   "chicago",
			wantIDs: []string{"EV-2"},
		},
		{
			name:    "query matches id",
			query:   "ev-3",
			wantIDs: []string{"EV-3"},
		},
		{
			name:    "query matches type",
			query:   "tire",
			wantIDs: []string{"EV-3"},
		},
		{
			name:    "all three predicates",
			vendor:  "ABS Towing",
			status:  models.StatusResolved,
			query:   "dallas",
			wantIDs: []string{"EV-1"},
		},
		{
			name:    "query with no match",
			query:   "seattle",
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterEvents(events, tt.vendor, tt.status, tt.query)
			gotIDs := make([]string, 0, len(got))
			for _, e := range got {
				gotIDs = append(gotIDs, e.ID)
			}
			if !reflect.DeepEqual(gotIDs, tt.wantIDs) {
				t.Errorf("FilterEvents() = %v, want %v", gotIDs, tt.wantIDs)
			}

			// Idempotence: filtering a filtered set is a no-op.
			again := FilterEvents(got, tt.vendor, tt.status, tt.query)
			if !reflect.DeepEqual(again, got) {
				t.Errorf("FilterEvents() is not idempotent: %v != %v", again, got)
			}
		})
	}
}

func TestComputeKPIs_SpendAndAverage(t *testing.T) {
	events := []models.Event{
		eventAt("EV-1", testNow.Add(-2*time.Hour), models.StatusResolved, "ABS Towing", 750.25),
		eventAt("EV-2", testNow.Add(-30*time.Hour), models.StatusPending, "Midwest Recovery", 1200.50),
		eventAt("EV-3", testNow.AddDate(0, -1, 0), models.StatusResolved, "QuickFix Mobile", 4500),
		eventAt("EV-4", testNow.AddDate(0, -3, 0), models.StatusReview, "Lone Star Tire", 350),
	}

	kpis := ComputeKPIs(events, testNow)

	if kpis.EventCount != 4 {
		t.Errorf("EventCount = %d, want 4", kpis.EventCount)
	}
	wantTotal := 750.25 + 1200.50 + 4500 + 350
	if math.Abs(kpis.TotalSpend-wantTotal) > 1e-9 {
		t.Errorf("TotalSpend = %v, want %v", kpis.TotalSpend, wantTotal)
	}

	// avgCost * eventCount must reproduce totalSpend.
	if diff := math.Abs(kpis.AvgCost*float64(kpis.EventCount) - kpis.TotalSpend); diff > 1e-6 {
		t.Errorf("AvgCost*EventCount differs from TotalSpend by %v", diff)
	}

	// MTD covers only the two March events; EV-3 lands in February.
	wantMTD := 750.25 + 1200.50
	if math.Abs(kpis.MTDSpend-wantMTD) > 1e-9 {
		t.Errorf("MTDSpend = %v, want %v", kpis.MTDSpend, wantMTD)
	}

	if kpis.ActiveAlerts != 2 {
		t.Errorf("ActiveAlerts = %d, want 2", kpis.ActiveAlerts)
	}

	// EV-1 is within 24h, EV-2 within the previous 24h window.
	if kpis.Events24h != 1 {
		t.Errorf("Events24h = %d, want 1", kpis.Events24h)
	}
	if kpis.EventsTrendDelta != 0 {
		t.Errorf("EventsTrendDelta = %d, want 0", kpis.EventsTrendDelta)
	}
	if !kpis.EventsFavorable {
		t.Error("EventsFavorable should be true for a non-increasing delta")
	}
}

func TestComputeKPIs_SpendTrend(t *testing.T) {
	tests := []struct {
		name      string
		mtd       float64
		prevMonth float64
		wantPct   float64
		favorable bool
	}{
		{
			name:      "no previous spend, some current",
			mtd:       500,
			prevMonth: 0,
			wantPct:   100,
			favorable: false,
		},
		{
			name:      "both zero",
			mtd:       0,
			prevMonth: 0,
			wantPct:   0,
			favorable: true,
		},
		{
			name:      "spend down 20 percent",
			mtd:       800,
			prevMonth: 1000,
			wantPct:   -20,
			favorable: true,
		},
		{
			name:      "spend up 50 percent",
			mtd:       1500,
			prevMonth: 1000,
			wantPct:   50,
			favorable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []models.Event
			if tt.mtd > 0 {
				events = append(events, eventAt("EV-M", testNow.Add(-time.Hour), models.StatusResolved, "ABS Towing", tt.mtd))
			}
			if tt.prevMonth > 0 {
				events = append(events, eventAt("EV-P", testNow.AddDate(0, -1, 0), models.StatusResolved, "ABS Towing", tt.prevMonth))
			}

			kpis := ComputeKPIs(events, testNow)
			if math.Abs(kpis.SpendTrendPct-tt.wantPct) > 1e-9 {
				t.Errorf("SpendTrendPct = %v, want %v", kpis.SpendTrendPct, tt.wantPct)
			}
			if kpis.SpendFavorable != tt.favorable {
				t.Errorf("SpendFavorable = %v, want %v", kpis.SpendFavorable, tt.favorable)
			}
		})
	}
}

func TestComputeKPIs_DemoDatasetAlerts(t *testing.T) {
	// Statuses cycle review (every 5th), pending (every 3rd not already
	// review), else resolved. Over indices 0..14 that is review at
	// {0,5,10} and pending at {3,6,9,12}.
	kpis := ComputeKPIs(models.DemoEvents(), testNow)
	if kpis.ActiveAlerts != 7 {
		t.Errorf("ActiveAlerts = %d, want 7", kpis.ActiveAlerts)
	}
}

func TestComputeKPIs_InvalidPrice(t *testing.T) {
	events := []models.Event{
		eventAt("EV-1", testNow.Add(-time.Hour), models.StatusResolved, "ABS Towing", math.NaN()),
		eventAt("EV-2", testNow.Add(-time.Hour), models.StatusResolved, "ABS Towing", -50),
		eventAt("EV-3", testNow.Add(-time.Hour), models.StatusResolved, "ABS Towing", 100),
	}

	kpis := ComputeKPIs(events, testNow)
	if kpis.TotalSpend != 100 {
		t.Errorf("TotalSpend = %v, want 100 (invalid prices coerce to 0)", kpis.TotalSpend)
	}
}

func TestWeeklyVolume(t *testing.T) {
	events := []models.Event{
		eventAt("EV-1", testNow.Add(-time.Hour), models.StatusResolved, "ABS Towing", 100),
		eventAt("EV-2", testNow.Add(-2*time.Hour), models.StatusResolved, "ABS Towing", 200),
		eventAt("EV-3", testNow.AddDate(0, 0, -3), models.StatusResolved, "ABS Towing", 400),
		eventAt("EV-4", testNow.AddDate(0, 0, -10), models.StatusResolved, "ABS Towing", 800),
	}

	buckets := WeeklyVolume(events, testNow)
	if len(buckets) != 7 {
		t.Fatalf("WeeklyVolume() returned %d buckets, want 7", len(buckets))
	}

	// Last bucket is today.
	today := buckets[6]
	if today.DayLabel != "Fri" {
		t.Errorf("last bucket label = %s, want Fri", today.DayLabel)
	}
	if today.Volume != 2 || today.Spend != 300 {
		t.Errorf("today bucket = %+v, want volume 2 spend 300", today)
	}

	threeDaysAgo := buckets[3]
	if threeDaysAgo.Volume != 1 || threeDaysAgo.Spend != 400 {
		t.Errorf("three-days-ago bucket = %+v, want volume 1 spend 400", threeDaysAgo)
	}

	// EV-4 is outside the window entirely.
	totalVolume := 0
	for _, b := range buckets {
		totalVolume += b.Volume
	}
	if totalVolume != 3 {
		t.Errorf("total bucketed volume = %d, want 3", totalVolume)
	}
}

func TestTopIncidentTypes(t *testing.T) {
	var events []models.Event
	for i := 0; i < 5; i++ {
		events = append(events, models.Event{ID: fmt.Sprintf("T-%d", i), Type: "Heavy Tow"})
	}
	for i := 0; i < 3; i++ {
		events = append(events, models.Event{ID: fmt.Sprintf("L-%d", i), Type: "Lockout"})
	}
	events = append(events,
		models.Event{ID: "U-1"}, // empty type buckets as Unknown
		models.Event{ID: "J-1", Type: "Jump Start"},
		models.Event{ID: "W-1", Type: "Winch-out"},
		models.Event{ID: "F-1", Type: "Fuel Delivery"},
	)

	result := TopIncidentTypes(events, 5)
	if len(result) > 5 {
		t.Fatalf("TopIncidentTypes() returned %d entries, want <= 5", len(result))
	}

	if result[0].Type != "Heavy Tow" || result[0].Count != 5 {
		t.Errorf("top entry = %+v, want Heavy Tow x5", result[0])
	}
	for i := 1; i < len(result); i++ {
		if result[i].Count > result[i-1].Count {
			t.Errorf("counts not non-increasing at %d: %v", i, result)
		}
	}

	found := false
	for _, tc := range result {
		if tc.Type == "Unknown" {
			found = true
		}
	}
	if !found {
		t.Error("events with empty type should bucket as Unknown")
	}
}

func TestTopIncidentTypes_Empty(t *testing.T) {
	result := TopIncidentTypes(nil, 5)
	if len(result) != 1 {
		t.Fatalf("TopIncidentTypes(nil) returned %d entries, want placeholder", len(result))
	}
	if result[0].Count != 0 {
		t.Errorf("placeholder count = %d, want 0", result[0].Count)
	}
}

func TestUrgentItems(t *testing.T) {
	var events []models.Event
	for i := 0; i < 12; i++ {
		status := models.StatusResolved
		if i%2 == 0 {
			status = models.StatusReview
		} else if i%3 == 0 {
			status = models.StatusPending
		}
		events = append(events, models.Event{ID: fmt.Sprintf("EV-%d", i), Status: status})
	}

	urgent := UrgentItems(events, 5)
	if len(urgent) > 5 {
		t.Fatalf("UrgentItems() returned %d events, want <= 5", len(urgent))
	}
	for _, e := range urgent {
		if e.Status != models.StatusReview && e.Status != models.StatusPending {
			t.Errorf("UrgentItems() contains status %s", e.Status)
		}
	}

	// Existing order preserved: first urgent ids are the earliest
	// review/pending entries in collection order.
	if urgent[0].ID != "EV-0" || urgent[1].ID != "EV-2" || urgent[2].ID != "EV-3" {
		t.Errorf("UrgentItems() order = %v %v %v, want EV-0 EV-2 EV-3", urgent[0].ID, urgent[1].ID, urgent[2].ID)
	}
}

package services

import (
	"database/sql"
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jknair0/beforeeach"

	"dispatch-dashboard/models"
)

var (
	db   *sql.DB
	mock sqlmock.Sqlmock
)

func setUp() {
	db, mock, _ = sqlmock.New()
}

func tearDown() {
	db.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func newTestEventService(t *testing.T, status string) (*EventService, *NotificationService) {
	t.Helper()
	cache, err := NewCacheService(t.TempDir())
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	conn := NewConnectionState()
	conn.Set(status)
	notifier := NewNotificationService(db, conn)
	return NewEventService(db, cache, conn, notifier), notifier
}

const selectEvents = "SELECT " + eventColumns + " FROM events ORDER BY created_at DESC"

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "ts", "created_at", "status", "job_status", "vendor", "location", "type",
		"price", "satisfaction", "notes", "review_notes", "rating",
		"total_estimate", "hourly_rate", "callout_fee", "cost_context",
	})
}

func addEventRow(rows *sqlmock.Rows, event models.Event) {
	rows.AddRow(driverArgs(eventArgs(event))...)
}

func TestEventService_FetchAll(t *testing.T) {
	it(func() {
		service, _ := newTestEventService(t, models.ConnConnecting)

		first := models.Event{
			ID:           "EV-2001",
			Timestamp:    "2024-03-02 09:15",
			CreatedAt:    "2024-03-02T09:15:00Z",
			Status:       models.StatusReview,
			JobStatus:    models.JobCompletedIssues,
			Vendor:       "ABS Towing",
			Location:     "Dallas, TX",
			Type:         "Heavy Tow",
			Price:        750.5,
			Satisfaction: "bad",
			ReviewNotes:  "disputed waiting time",
			CostContext:  []string{"After-hours", "Waiting Time"},
		}
		second := models.Event{
			ID:           "EV-2000",
			Timestamp:    "2024-03-01 08:00",
			CreatedAt:    "2024-03-01T08:00:00Z",
			Status:       models.StatusResolved,
			Vendor:       "Lone Star Tire",
			Location:     "Denver, CO",
			Type:         "Tire Service",
			Price:        350,
			Satisfaction: "good",
		}

		rows := eventRows()
		addEventRow(rows, first)
		addEventRow(rows, second)
		mock.ExpectQuery(regexp.QuoteMeta(selectEvents)).WillReturnRows(rows)

		events := service.FetchAll()
		if len(events) != 2 {
			t.Fatalf("FetchAll() returned %d events, want 2", len(events))
		}

		// Field mapping round trip: remote snake_case columns land on
		// the internal shape unchanged.
		if events[0].ReviewNotes != first.ReviewNotes {
			t.Errorf("ReviewNotes = %q, want %q", events[0].ReviewNotes, first.ReviewNotes)
		}
		if len(events[0].CostContext) != 2 || events[0].CostContext[0] != "After-hours" {
			t.Errorf("CostContext = %v, want %v", events[0].CostContext, first.CostContext)
		}
		if events[0].ID != "EV-2001" || events[1].ID != "EV-2000" {
			t.Errorf("descending order not preserved: %s, %s", events[0].ID, events[1].ID)
		}

		if got := service.conn.Get(); got != models.ConnOnline {
			t.Errorf("connection status = %s, want online", got)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestEventService_FetchAllFallsBackToDemoData(t *testing.T) {
	it(func() {
		service, _ := newTestEventService(t, models.ConnConnecting)

		mock.ExpectQuery(regexp.QuoteMeta(selectEvents)).WillReturnError(sql.ErrConnDone)

		events := service.FetchAll()
		if len(events) != 15 {
			t.Fatalf("FetchAll() fallback returned %d events, want 15 demo events", len(events))
		}
		if got := service.conn.Get(); got != models.ConnError {
			t.Errorf("connection status = %s, want error", got)
		}
	})
}

func TestEventService_FetchAllFallsBackToSnapshot(t *testing.T) {
	it(func() {
		service, _ := newTestEventService(t, models.ConnConnecting)
		service.cache.Set(CacheKeyEvents, `[{"id":"EV-CACHED","vendor":"ABS Towing","status":"resolved"}]`)

		mock.ExpectQuery(regexp.QuoteMeta(selectEvents)).WillReturnError(sql.ErrConnDone)

		events := service.FetchAll()
		if len(events) != 1 || events[0].ID != "EV-CACHED" {
			t.Fatalf("FetchAll() = %v, want the cached snapshot", events)
		}
	})
}

func TestEventService_FetchAllSeedsEmptyTable(t *testing.T) {
	it(func() {
		service, _ := newTestEventService(t, models.ConnConnecting)

		mock.ExpectQuery(regexp.QuoteMeta(selectEvents)).WillReturnRows(eventRows())
		for range models.DemoEvents() {
			mock.ExpectExec("INSERT INTO events").
				WillReturnResult(sqlmock.NewResult(1, 1))
		}

		events := service.FetchAll()
		if len(events) != 15 {
			t.Fatalf("FetchAll() seeded %d events, want 15", len(events))
		}
		if !service.cache.Flag(CacheKeyDBSeeded) {
			t.Error("seed flag should be set after seeding")
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}

		// Second empty fetch must not seed again.
		mock.ExpectQuery(regexp.QuoteMeta(selectEvents)).WillReturnRows(eventRows())
		events = service.FetchAll()
		if len(events) != 0 {
			t.Errorf("FetchAll() after seed flag = %d events, want 0", len(events))
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestEventService_SyncInsert(t *testing.T) {
	it(func() {
		service, _ := newTestEventService(t, models.ConnOnline)

		event := models.Event{
			ID:           "EV-3000",
			Timestamp:    "2024-03-10 11:30",
			CreatedAt:    "2024-03-10T11:30:00Z",
			Status:       models.StatusResolved,
			JobStatus:    models.JobCompleted,
			Vendor:       "QuickFix Mobile",
			Location:     "Atlanta, GA",
			Type:         "Lockout",
			Price:        120,
			Satisfaction: "good",
			ReviewNotes:  "quick turnaround",
			CostContext:  []string{"After-hours"},
		}

		mock.ExpectExec("INSERT INTO events").
			WithArgs(driverArgs(eventArgs(event))...).
			WillReturnResult(sqlmock.NewResult(1, 1))

		service.Sync(event, models.SyncInsert)

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestEventService_SyncUpdateAndDelete(t *testing.T) {
	it(func() {
		service, _ := newTestEventService(t, models.ConnOnline)
		event := models.Event{ID: "EV-3001", Status: models.StatusPending}

		mock.ExpectExec("UPDATE events SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		service.Sync(event, models.SyncUpdate)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = ?")).
			WithArgs("EV-3001").
			WillReturnResult(sqlmock.NewResult(0, 1))
		service.Sync(event, models.SyncDelete)

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})
}

func TestEventService_SyncSkippedWhenNotOnline(t *testing.T) {
	it(func() {
		service, _ := newTestEventService(t, models.ConnOffline)

		// No expectations: any statement would fail the test.
		service.Sync(models.Event{ID: "EV-3002"}, models.SyncInsert)

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("offline sync touched the store: %v", err)
		}
	})
}

func TestEventService_SyncFailureEmitsWarning(t *testing.T) {
	it(func() {
		service, notifier := newTestEventService(t, models.ConnOnline)

		mock.ExpectExec("UPDATE events SET").WillReturnError(sql.ErrConnDone)
		service.Sync(models.Event{ID: "EV-3003"}, models.SyncUpdate)
		notifier.persist.Wait()

		notifications := notifier.List()
		if len(notifications) != 1 {
			t.Fatalf("got %d notifications, want 1 warning", len(notifications))
		}
		warning := notifications[0]
		if warning.Type != models.NotifWarning {
			t.Errorf("notification type = %s, want warning", warning.Type)
		}
		if !containsAll(warning.Message, "update", "EV-3003") {
			t.Errorf("warning %q should name the action and the event id", warning.Message)
		}
	})
}

func TestEventService_InsertFetchRoundTrip(t *testing.T) {
	it(func() {
		service, _ := newTestEventService(t, models.ConnOnline)

		event := models.Event{
			ID:            "EV-4000",
			Timestamp:     "2024-03-12 16:45",
			CreatedAt:     "2024-03-12T16:45:00Z",
			Status:        models.StatusReview,
			JobStatus:     models.JobCompletedIssues,
			Vendor:        "Global Heavy Ops",
			Location:      "Phoenix, AZ",
			Type:          "Winch-out",
			Price:         1875.25,
			Satisfaction:  "bad",
			Notes:         "rollover on I-10",
			ReviewNotes:   "pending invoice audit",
			Rating:        2,
			TotalEstimate: 2000,
			HourlyRate:    250,
			CalloutFee:    125,
			CostContext:   []string{"Accident Recovery", "Police/DOT"},
		}

		mock.ExpectExec("INSERT INTO events").
			WithArgs(driverArgs(eventArgs(event))...).
			WillReturnResult(sqlmock.NewResult(1, 1))
		service.Sync(event, models.SyncInsert)

		rows := eventRows()
		addEventRow(rows, event)
		mock.ExpectQuery(regexp.QuoteMeta(selectEvents)).WillReturnRows(rows)

		fetched := service.FetchAll()
		if len(fetched) != 1 {
			t.Fatalf("FetchAll() returned %d events, want 1", len(fetched))
		}

		got := fetched[0]
		if got.ID != event.ID || got.Timestamp != event.Timestamp || got.CreatedAt != event.CreatedAt ||
			got.Status != event.Status || got.JobStatus != event.JobStatus ||
			got.Vendor != event.Vendor || got.Location != event.Location || got.Type != event.Type ||
			got.Price != event.Price || got.Satisfaction != event.Satisfaction ||
			got.Notes != event.Notes || got.ReviewNotes != event.ReviewNotes ||
			got.Rating != event.Rating || got.TotalEstimate != event.TotalEstimate ||
			got.HourlyRate != event.HourlyRate || got.CalloutFee != event.CalloutFee {
			t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, event)
		}
		if len(got.CostContext) != 2 || got.CostContext[0] != "Accident Recovery" {
			t.Errorf("CostContext round trip = %v, want %v", got.CostContext, event.CostContext)
		}
	})
}

// driverArgs converts insert arguments to sqlmock matchers.
func driverArgs(args []interface{}) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

package models

// Event lifecycle states. JobStatus carries the finer-grained outcome
// reported by the field ("On Call", "Completed", ...); Status is the
// coarse state driving the dashboard.
const (
	StatusResolved = "resolved"
	StatusReview   = "review"
	StatusPending  = "pending"
	StatusVoid     = "void"
)

// Job outcomes accepted from the logging form.
const (
	JobOnCall          = "On Call"
	JobCompleted       = "Completed"
	JobCompletedIssues = "Completed with Issues"
	JobNoShow          = "No-show"
	JobCancelled       = "Cancelled"
)

// Notification types.
const (
	NotifInfo    = "info"
	NotifWarning = "warning"
	NotifSuccess = "success"
	NotifSystem  = "system"
)

// Dashboard views.
const (
	ViewDashboard  = "dashboard"
	ViewServiceLog = "service_log"
	ViewVendors    = "vendors"
	ViewAnalytics  = "analytics"
)

// Connection states for the remote store.
const (
	ConnConnecting = "connecting"
	ConnOnline     = "online"
	ConnOffline    = "offline"
	ConnError      = "error"
)

// Sync actions against the remote store.
const (
	SyncInsert = "insert"
	SyncUpdate = "update"
	SyncDelete = "delete"
)

// Event is one logged service-dispatch record.
type Event struct {
	ID           string   `json:"id"`
	Timestamp    string   `json:"timestamp"`
	CreatedAt    string   `json:"created_at,omitempty"`
	Status       string   `json:"status"`
	Vendor       string   `json:"vendor"`
	Location     string   `json:"location"`
	Type         string   `json:"type"`
	Price        float64  `json:"price"`
	Satisfaction string   `json:"satisfaction"`
	JobStatus    string   `json:"job_status,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	ReviewNotes  string   `json:"reviewNotes,omitempty"`
	Rating       float64  `json:"rating,omitempty"`

	// Financial breakdown from the logging form.
	TotalEstimate float64  `json:"total_estimate,omitempty"`
	HourlyRate    float64  `json:"hourly_rate,omitempty"`
	CalloutFee    float64  `json:"callout_fee,omitempty"`
	CostContext   []string `json:"cost_context,omitempty"`
}

// Notification is a transient, user-facing system message.
type Notification struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
	Type      string `json:"type"`
}

// Vendor is a watch-listed service provider.
type Vendor struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Location    string   `json:"location"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Services    []string `json:"services"`
	Rating      float64  `json:"rating"`
	Status      string   `json:"status"` // ok | warn | crit, manually curated
	Reliability int      `json:"reliability"`
	Joined      string   `json:"joined"`
}

// KPISummary is the dashboard ticker payload.
type KPISummary struct {
	TotalSpend       float64 `json:"total_spend"`
	AvgCost          float64 `json:"avg_cost"`
	EventCount       int     `json:"event_count"`
	ActiveAlerts     int     `json:"active_alerts"`
	MTDSpend         float64 `json:"mtd_spend"`
	SpendTrendPct    float64 `json:"spend_trend_pct"`
	Events24h        int     `json:"events_24h"`
	EventsTrendDelta int     `json:"events_trend_delta"`

	// Display direction convention: a spend decrease and an event-count
	// non-increase are favorable.
	SpendFavorable  bool `json:"spend_favorable"`
	EventsFavorable bool `json:"events_favorable"`
}

// WeeklyBucket is one day of the volume/spend chart.
type WeeklyBucket struct {
	DayLabel string  `json:"day"`
	Volume   int     `json:"volume"`
	Spend    float64 `json:"spend"`
}

// TypeCount is one slice of the incident-type distribution.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// VendorHistory is the per-vendor rollup shown on the profile screen.
type VendorHistory struct {
	Vendor     Vendor  `json:"vendor"`
	Events     []Event `json:"events"`
	TotalSpend float64 `json:"total_spend"`
	EventCount int     `json:"event_count"`
}

// StateSnapshot is the full presentation-boundary payload.
type StateSnapshot struct {
	Events           []Event        `json:"events"`
	Notifications    []Notification `json:"notifications"`
	Vendors          []Vendor       `json:"vendors"`
	CurrentView      string         `json:"current_view"`
	VendorFilter     string         `json:"vendor_filter,omitempty"`
	ConnectionStatus string         `json:"connection_status"`
	KPIs             KPISummary     `json:"kpis"`
}

// BroadcastMessage is one state-change push to dashboard clients.
type BroadcastMessage struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload,omitempty"`
}

// Broadcast kinds.
const (
	KindEventLogged      = "event_logged"
	KindEventUpdated     = "event_updated"
	KindEventDeleted     = "event_deleted"
	KindNotification     = "notification"
	KindVendorsChanged   = "vendors_changed"
	KindConnectionStatus = "connection_status"
	KindViewChanged      = "view_changed"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string `json:"status"`
	Message          string `json:"message,omitempty"`
	Service          string `json:"service,omitempty"`
	ConnectedClients int    `json:"connected_clients,omitempty"`
}

// LogEventRequest is the logging-form submission. Price arrives as a
// string so a blank or garbled field coerces to 0 instead of failing
// the bind.
type LogEventRequest struct {
	Category     string   `json:"category"`
	Type         string   `json:"type"`
	Location     string   `json:"location"`
	Vendor       string   `json:"vendor"`
	Price        string   `json:"price"`
	Satisfaction string   `json:"satisfaction"`
	Flags        []string `json:"flags"`
	Outcome      string   `json:"outcome"`
	Notes        string   `json:"notes"`

	TotalEstimate float64 `json:"total_estimate"`
	HourlyRate    float64 `json:"hourly_rate"`
	CalloutFee    float64 `json:"callout_fee"`
}

// MetaResponse carries the form catalogs.
type MetaResponse struct {
	ServiceTypes     []string `json:"service_types"`
	CostContextFlags []string `json:"cost_context_flags"`
	Outcomes         []string `json:"outcomes"`
}

// ServiceTypes offered on the logging form.
var ServiceTypes = []string{
	"Heavy Tow", "Winch-out", "Roadside Service", "Tire Service",
	"Fuel Delivery", "Lockout", "Load Shift", "Other",
}

// CostContextFlags explain unusual pricing on an event.
var CostContextFlags = []string{
	"After-hours", "Accident Recovery", "Police/DOT",
	"Waiting Time", "Parts Run", "Extra Equipment",
}

// Outcomes accepted by the logging form.
var Outcomes = []string{
	JobCompleted, JobCompletedIssues, JobNoShow, JobCancelled,
}

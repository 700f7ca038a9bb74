package models

import "fmt"

var (
	demoVendors    = []string{"ABS Towing", "Midwest Recovery", "QuickFix Mobile", "Lone Star Tire", "Global Heavy Ops"}
	demoLocations  = []string{"Dallas, TX", "Chicago, IL", "Atlanta, GA", "Denver, CO", "Phoenix, AZ"}
	demoTypes      = []string{"Heavy Tow", "Tire Service", "Lockout", "Winch-out", "Jump Start"}
	demoBasePrices = []float64{750, 1200, 4500, 350, 200}
)

// DemoEvents returns the built-in demonstration dataset used when the
// remote store is unreachable and no local snapshot exists. Status
// rule: every 5th record needs review, every 3rd not already in review
// is pending, the rest are resolved.
func DemoEvents() []Event {
	events := make([]Event, 0, 15)
	for i := 0; i < 15; i++ {
		status := StatusResolved
		satisfaction := "good"
		if i%5 == 0 {
			status = StatusReview
			satisfaction = "bad"
		} else if i%3 == 0 {
			status = StatusPending
		}
		events = append(events, Event{
			ID:           fmt.Sprintf("EV-%d", 1000+i),
			Timestamp:    fmt.Sprintf("2024-02-06 14:%02d", 30+i),
			Status:       status,
			Vendor:       demoVendors[i%5],
			Location:     demoLocations[i%5],
			Type:         demoTypes[i%5],
			Price:        demoBasePrices[i%5] + float64((i*37)%100),
			Satisfaction: satisfaction,
		})
	}
	return events
}

// InitialVendors is the watchlist seeded into an empty vendors table.
var InitialVendors = []Vendor{
	{
		ID:          "V-001",
		Name:        "ABS Towing",
		Location:    "Dallas, TX",
		Address:     "124 Industrial Blvd, Dallas, TX 75207",
		Phone:       "+1 (214) 555-0123",
		Services:    []string{"Heavy Tow", "Flatbed", "Winch-out"},
		Rating:      4.8,
		Status:      "ok",
		Reliability: 98,
		Joined:      "2022-03-15",
	},
	{
		ID:          "V-002",
		Name:        "Midwest Recovery",
		Location:    "Chicago, IL",
		Address:     "8899 W North Ave, Melrose Park, IL 60160",
		Phone:       "+1 (312) 555-0987",
		Services:    []string{"Tire Service", "Jump Start", "Lockout"},
		Rating:      4.2,
		Status:      "ok",
		Reliability: 94,
		Joined:      "2023-01-10",
	},
	{
		ID:          "V-003",
		Name:        "QuickFix Mobile",
		Location:    "Atlanta, GA",
		Address:     "4500 Peachtree Rd, Atlanta, GA 30319",
		Phone:       "+1 (404) 555-4567",
		Services:    []string{"Fuel Delivery", "Battery Replacement", "Diagnostics"},
		Rating:      3.5,
		Status:      "warn",
		Reliability: 82,
		Joined:      "2021-11-05",
	},
	{
		ID:          "V-004",
		Name:        "Lone Star Tire",
		Location:    "Denver, CO",
		Address:     "2200 Colorado Blvd, Denver, CO 80205",
		Phone:       "+1 (303) 555-7890",
		Services:    []string{"Tire Service", "Alignment"},
		Rating:      4.9,
		Status:      "ok",
		Reliability: 99,
		Joined:      "2023-08-20",
	},
	{
		ID:          "V-005",
		Name:        "Global Heavy Ops",
		Location:    "Phoenix, AZ",
		Address:     "101 S Central Ave, Phoenix, AZ 85004",
		Phone:       "+1 (602) 555-3210",
		Services:    []string{"Heavy Tow", "Rotator Service", "Hazmat Cleanup"},
		Rating:      3.1,
		Status:      "crit",
		Reliability: 65,
		Joined:      "2024-01-12",
	},
	{
		ID:          "V-006",
		Name:        "Metro Recovery",
		Location:    "New York, NY",
		Address:     "500 W 30th St, New York, NY 10001",
		Phone:       "+1 (212) 555-6543",
		Services:    []string{"Impound", "Parking Enforcement", "Light Duty"},
		Rating:      2.8,
		Status:      "crit",
		Reliability: 45,
		Joined:      "2024-02-01",
	},
}

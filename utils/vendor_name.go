package utils

import "strings"

// NormalizeVendorName normalizes a vendor name for comparison. Events
// reference vendors by free-text name, so the join between an event
// row and a watchlist entry has to survive casing, punctuation and
// spacing differences.
func NormalizeVendorName(name string) string {
	normalized := strings.ToLower(name)

	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")
	normalized = strings.ReplaceAll(normalized, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", "")
	normalized = strings.ReplaceAll(normalized, "&", "")
	normalized = strings.ReplaceAll(normalized, "'", "")

	// Remove extra spaces
	normalized = strings.Join(strings.Fields(normalized), "")

	return normalized
}

// Package models contains data types and constants shared by the detectchat packages.
package models

// Backend paths
const (
	// DetectPath is appended to the configured backend base URL
	DetectPath = "/detect"
)

// User-visible texts produced by the chat widget
const (
	// WarningPrefix is prepended to warnings returned by the backend
	WarningPrefix = "Warning: "

	// FallbackReply replaces the reply whenever a detect call fails
	FallbackReply = "Sorry, something went wrong."
)

// DefaultHeaders returns the headers sent with every detect request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "detectchat",
	}
}

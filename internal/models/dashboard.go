package models

import "time"

// FinOpsSummary is the SLA overview shown on the FinOps dashboard.
type FinOpsSummary struct {
	TotalTasks    int       `json:"total_tasks"`
	OnTrack       int       `json:"on_track"`
	AtRisk        int       `json:"at_risk"`
	Breached      int       `json:"breached"`
	SLACompliance float64   `json:"sla_compliance"`
	LastRefreshed time.Time `json:"last_refreshed"`
	Stale         bool      `json:"stale"`
}

// ActivitySummary is the recent-activity feed summary.
type ActivitySummary struct {
	Items         []ActivityItem `json:"items"`
	OpenTickets   int            `json:"open_tickets"`
	LastRefreshed time.Time      `json:"last_refreshed"`
	Stale         bool           `json:"stale"`
}

type ActivityItem struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

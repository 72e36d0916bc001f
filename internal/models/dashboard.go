package models

import "time"

// HostStats is a point-in-time sample of the machine running the API.
type HostStats struct {
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryPercent float64   `json:"memoryPercent"`
	MemoryUsedMB  uint64    `json:"memoryUsedMb"`
	MemoryTotalMB uint64    `json:"memoryTotalMb"`
	UptimeSeconds uint64    `json:"uptimeSeconds"`
	SampledAt     time.Time `json:"sampledAt"`
}

// Dashboard aggregates counts and host health for the admin panel.
type Dashboard struct {
	Users         int                 `json:"users"`
	Teams         int                 `json:"teams"`
	Players       int                 `json:"players"`
	Matches       int                 `json:"matches"`
	Referees      int                 `json:"referees"`
	MatchStatuses map[MatchStatus]int `json:"matchStatuses"`
	LiveClients   int                 `json:"liveClients"`
	Host          *HostStats          `json:"host,omitempty"`
}

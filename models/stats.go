package models

import "encoding/json"

type TrackRequest struct {
	Type      string   `json:"type"`
	Page      string   `json:"page"`
	SessionID string   `json:"sessionId"`
	Metadata  Metadata `json:"metadata"`
}

type CountBucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type PageViews struct {
	Page  string `json:"page"`
	Views int64  `json:"views"`
}

type ProjectClicks struct {
	// ProjectID is the raw JSON value of metadata.projectId, null when absent.
	ProjectID   RawValue `json:"projectId"`
	ProjectName string   `json:"projectName"`
	Clicks      int64    `json:"clicks"`
}

type Overview struct {
	TotalEvents         int64   `json:"totalEvents"`
	UniqueSessions      int64   `json:"uniqueSessions"`
	AvgEventsPerSession float64 `json:"avgEventsPerSession"`
}

type Breakdown struct {
	ByType    []CountBucket `json:"byType"`
	ByPage    []CountBucket `json:"byPage"`
	ByDevice  []CountBucket `json:"byDevice"`
	ByBrowser []CountBucket `json:"byBrowser"`
	ByDate    []DailyCount  `json:"byDate"`
}

type Summary struct {
	Overview  Overview  `json:"overview"`
	Breakdown Breakdown `json:"breakdown"`
}

type Popular struct {
	Pages     []PageViews     `json:"pages"`
	Projects  []ProjectClicks `json:"projects"`
	Timeframe string          `json:"timeframe"`
}

// RawValue is a JSON value emitted verbatim; empty means null.
type RawValue string

func (v RawValue) MarshalJSON() ([]byte, error) {
	if v == "" {
		return []byte("null"), nil
	}
	if !json.Valid([]byte(v)) {
		return json.Marshal(string(v))
	}
	return []byte(v), nil
}

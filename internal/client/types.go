package client

import (
	"encoding/json"
	"time"
)

// Template is the wire shape of GET /templates/{templateId}.
type Template struct {
	ID          string     `json:"id"`
	TrainerID   string     `json:"trainerId,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	TotalWeeks  int        `json:"totalWeeks"`
	Weeks       []PlanWeek `json:"weeks,omitempty"`
	Ranges      []Range    `json:"ranges"`
}

// PlanWeek is one week of the template's plan tree.
type PlanWeek struct {
	Number int       `json:"number"`
	Days   []PlanDay `json:"days,omitempty"`
}

// PlanDay holds the sessions scheduled on one day of a week (1 = Monday … 7 = Sunday).
type PlanDay struct {
	DayOfWeek int       `json:"dayOfWeek"`
	Sessions  []Session `json:"sessions,omitempty"`
}

type Session struct {
	ExerciseID string `json:"exerciseId,omitempty"`
	Name       string `json:"name"`
	Sets       int    `json:"sets,omitempty"`
	Reps       int    `json:"reps,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Range is a server-side period ("rango") expressed in week/day coordinates.
// Days are passed through untouched.
type Range struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	StartWeek      int               `json:"startWeek"`
	StartDayOfWeek int               `json:"startDayOfWeek"`
	EndWeek        int               `json:"endWeek"`
	EndDayOfWeek   int               `json:"endDayOfWeek"`
	Days           []json.RawMessage `json:"days,omitempty"`
}

// RangeUpdate is the body of PUT /templates/{templateId}/ranges/{rangeId}
// and POST /templates/{templateId}/ranges.
type RangeUpdate struct {
	Name           string            `json:"name"`
	StartWeek      int               `json:"startWeek"`
	StartDayOfWeek int               `json:"startDayOfWeek"`
	EndWeek        int               `json:"endWeek"`
	EndDayOfWeek   int               `json:"endDayOfWeek"`
	Days           []json.RawMessage `json:"days"`
}

// Export points at a rendered template file in object storage.
type Export struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Format      string    `json:"format"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

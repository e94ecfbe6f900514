// internal/domain/template.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Template is a reusable multi-week training plan owned by a trainer.
// Ranges are stored inside the template document.
type Template struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID   primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	Name        string             `bson:"name" json:"name"` // e.g., "Fuerza 12 semanas"
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	TotalWeeks  int                `bson:"totalWeeks" json:"totalWeeks"`
	Weeks       []PlanWeek         `bson:"weeks,omitempty" json:"weeks,omitempty"`
	Ranges      []Range            `bson:"ranges" json:"ranges"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PlanWeek groups the plan days of one template week.
type PlanWeek struct {
	Number int       `bson:"number" json:"number"`
	Days   []PlanDay `bson:"days,omitempty" json:"days,omitempty"`
}

// PlanDay is a training day, 1 (Mon) - 7 (Sun).
type PlanDay struct {
	DayOfWeek int       `bson:"dayOfWeek" json:"dayOfWeek"`
	Sessions  []Session `bson:"sessions,omitempty" json:"sessions,omitempty"`
}

// Session is one exercise prescription inside a plan day.
type Session struct {
	ExerciseID *primitive.ObjectID `bson:"exerciseId,omitempty" json:"exerciseId,omitempty"`
	Name       string              `bson:"name" json:"name"`
	Sets       int                 `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps       int                 `bson:"reps,omitempty" json:"reps,omitempty"`
	Notes      string              `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Range is a named block of the template ("rango"), bounded by week/day pairs.
type Range struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Name           string             `bson:"name" json:"name"`
	StartWeek      int                `bson:"startWeek" json:"startWeek"`
	StartDayOfWeek int                `bson:"startDayOfWeek" json:"startDayOfWeek"`
	EndWeek        int                `bson:"endWeek" json:"endWeek"`
	EndDayOfWeek   int                `bson:"endDayOfWeek" json:"endDayOfWeek"`
	Days           []RangeDay         `bson:"days" json:"days"`
}

// RangeDay carries per-day notes attached to a range. The API treats these
// as opaque and stores whatever the caller sends.
type RangeDay struct {
	Week      int    `bson:"week" json:"week"`
	DayOfWeek int    `bson:"dayOfWeek" json:"dayOfWeek"`
	Notes     string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// RangeByID finds a range of the template.
func (t *Template) RangeByID(id primitive.ObjectID) (*Range, bool) {
	for i := range t.Ranges {
		if t.Ranges[i].ID == id {
			return &t.Ranges[i], true
		}
	}
	return nil, false
}

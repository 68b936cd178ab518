package entity

import (
	"net/http"
	"time"

	"sanoqchi/lib/clock"
	"sanoqchi/lib/validate"
)

// Challenge is a per-chat invite contest window. At most one row exists per
// chat: configuring a new challenge replaces the previous one and wipes its
// counters. The lifecycle flags are written only by the scheduler, each via
// a filtered update so a transition fires at most once.
// Invariant: Ended implies Announced.
type Challenge struct {
	ChatId    int64  `json:"chat_id" bson:"chat_id" validate:"required"`
	StartDate string `json:"start_date" bson:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" bson:"end_date" validate:"required,datetime=2006-01-02"`
	Announced bool   `json:"announced" bson:"announced"`
	Ended     bool   `json:"ended" bson:"ended"`
}

func (c *Challenge) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

func (c *Challenge) Start() (time.Time, error) {
	return clock.ParseDate(c.StartDate)
}

func (c *Challenge) End() (time.Time, error) {
	return clock.ParseDate(c.EndDate)
}

// ActiveOn reports whether day falls inside the challenge window.
// Malformed dates make the challenge inactive rather than an error;
// the window was validated when the challenge was configured.
func (c *Challenge) ActiveOn(day time.Time) bool {
	start, err := c.Start()
	if err != nil {
		return false
	}
	end, err := c.End()
	if err != nil {
		return false
	}
	return !day.Before(start) && !day.After(end)
}

// DueToAnnounce reports whether the start transition should fire on day.
func (c *Challenge) DueToAnnounce(day time.Time) bool {
	if c.Announced {
		return false
	}
	start, err := c.Start()
	if err != nil {
		return false
	}
	return !day.Before(start)
}

// DueToEnd reports whether the end transition should fire on day.
// The Announced guard keeps the start announcement ahead of the end one.
func (c *Challenge) DueToEnd(day time.Time) bool {
	if !c.Announced || c.Ended {
		return false
	}
	end, err := c.End()
	if err != nil {
		return false
	}
	return day.After(end)
}

package appmodels

import (
	"strconv"
	"time"
)

//Duration kinds for a position posting.
const (
	DurationDays        string = "days"
	DurationUntilFilled string = "untilFilled"
)

//Position represents one admin-defined staff position that members can apply for.
type Position struct {
	ID            string    `gorethink:"id,omitempty"`
	GuildID       string    `gorethink:"guild_id"`
	Name          string    `gorethink:"position_name"`
	Description   string    `gorethink:"description,omitempty"`
	OpenSlots     int       `gorethink:"open_slots"`
	Duration      Duration  `gorethink:"duration"`
	GrantRoleID   string    `gorethink:"grant_role_id"`
	ReviewerRoles []string  `gorethink:"reviewer_roles"`
	Channels      Channels  `gorethink:"channels"`
	Active        bool      `gorethink:"active"`
	AllowResubmit bool      `gorethink:"allow_resubmit"`
	CreatedAt     time.Time `gorethink:"created_at"`
	LastUpdated   time.Time `gorethink:"last_updated"`
}

//Duration describes how long a position stays open. Kind is either
//DurationDays (with Days and EndAt set) or DurationUntilFilled.
type Duration struct {
	Kind  string     `gorethink:"kind"`
	Days  int        `gorethink:"days,omitempty"`
	EndAt *time.Time `gorethink:"end_at,omitempty"`
}

//Channels holds the three channel IDs a position is wired to. All are required.
type Channels struct {
	Panel         string `gorethink:"panel"`
	Notifications string `gorethink:"notifications"`
	History       string `gorethink:"history"`
}

//NewDuration builds a Duration from a day count, where 0 means until filled.
func NewDuration(days int, now time.Time) Duration {
	if days <= 0 {
		return Duration{Kind: DurationUntilFilled}
	}
	end := now.Add(time.Duration(days) * 24 * time.Hour)
	return Duration{Kind: DurationDays, Days: days, EndAt: &end}
}

//Describe returns a human-readable rendering of the duration.
func (d Duration) Describe() string {
	if d.Kind == DurationDays {
		if d.Days == 1 {
			return "1 day"
		}
		return strconv.Itoa(d.Days) + " days"
	}
	return "Until positions are filled"
}

//IsOpen reports whether the position is still accepting submissions.
func (p *Position) IsOpen(now time.Time) bool {
	if !p.Active {
		return false
	}
	if p.Duration.Kind == DurationUntilFilled {
		return true
	}
	return p.Duration.EndAt != nil && p.Duration.EndAt.After(now)
}

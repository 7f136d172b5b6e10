package appmodels

import "time"

//Panel tracks the single rendered application panel message per channel.
//The rendered content is always recomputed from the live active-position
//set; PositionID is only a loose reference to the position that first
//caused the panel to exist.
type Panel struct {
	ChannelID   string    `gorethink:"id"`
	MessageID   string    `gorethink:"message_id"`
	GuildID     string    `gorethink:"guild_id"`
	PositionID  string    `gorethink:"position_id,omitempty"`
	LastUpdated time.Time `gorethink:"last_updated"`
}

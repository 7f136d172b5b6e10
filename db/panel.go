package db

import (
	"fmt"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const panelsTable string = "panels"

//PanelForChannel fetches the panel record for a channel, returning nil if
//no panel has been rendered there yet.
func (db *Connection) PanelForChannel(channelID string) (*appmodels.Panel, error) {
	res, err := rethink.Table(panelsTable).Get(channelID).Run(db.session)
	if err != nil {
		logrus.Warnf("Failed to query database for panel in channel %v because: %v.", channelID, err)
		return nil, fmt.Errorf("failed to query database for panel in channel %v because: %v", channelID, err)
	}
	defer res.Close()
	if res.IsNil() {
		return nil, nil
	}
	var panel appmodels.Panel
	err = res.One(&panel)
	if err != nil {
		logrus.Warnf("Failed to read panel for channel %v from database because: %v.", channelID, err)
		return nil, fmt.Errorf("failed to read panel for channel %v from database because: %v", channelID, err)
	}
	return &panel, nil
}

//AnyPanel returns some panel record for a guild, or any panel at all when
//guildID is empty. Used to locate an orphaned panel once every position has
//gone inactive.
func (db *Connection) AnyPanel(guildID string) (*appmodels.Panel, error) {
	query := rethink.Table(panelsTable)
	if guildID != "" {
		query = query.Filter(map[string]interface{}{"guild_id": guildID})
	}
	res, err := query.Limit(1).Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error looking up panel for guild %v: %v.", guildID, err)
		return nil, err
	}
	defer res.Close()
	if res.IsNil() {
		return nil, nil
	}
	var panel appmodels.Panel
	err = res.One(&panel)
	if err != nil {
		if err == rethink.ErrEmptyResult {
			return nil, nil
		}
		logrus.Warnf("Encountered error reading panel for guild %v: %v.", guildID, err)
		return nil, err
	}
	return &panel, nil
}

//UpsertPanel creates or replaces the panel record for its channel.
func (db *Connection) UpsertPanel(panel appmodels.Panel) error {
	panel.LastUpdated = time.Now()
	resp, err := rethink.Table(panelsTable).Insert(panel, rethink.InsertOpts{
		Conflict: "replace",
	}).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Encountered error upserting panel for channel %v: %v.", panel.ChannelID, err)
		return err
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Warnf("Encountered error upserting panel for channel %v: %v.", panel.ChannelID, err)
		return err
	}
	return nil
}

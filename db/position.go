package db

import (
	"fmt"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const positionsTable string = "positions"

//CreatePosition inserts a new position, minting an ID for it, and returns the stored record.
func (db *Connection) CreatePosition(pos appmodels.Position) (*appmodels.Position, error) {
	if pos.ID == "" {
		pos.ID = uuid.NewString()
	}
	now := time.Now()
	pos.CreatedAt = now
	pos.LastUpdated = now
	resp, err := rethink.Table(positionsTable).Insert(pos).RunWrite(db.session)
	if err != nil {
		logrus.Errorf("Failed to insert position %v because: %v.", pos.Name, err)
		return nil, fmt.Errorf("failed to insert position %v because: %v", pos.Name, err)
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Errorf("Failed to insert position %v because: %v.", pos.Name, err)
		return nil, err
	}
	return &pos, nil
}

//GetPosition fetches a single position by ID, returning nil if it does not exist.
func (db *Connection) GetPosition(id string) (*appmodels.Position, error) {
	res, err := rethink.Table(positionsTable).Get(id).Run(db.session)
	if err != nil {
		logrus.Warnf("Failed to query database for position %v because: %v.", id, err)
		return nil, fmt.Errorf("failed to query database for position %v because: %v", id, err)
	}
	defer res.Close()
	if res.IsNil() {
		return nil, nil
	}
	var pos appmodels.Position
	err = res.One(&pos)
	if err != nil {
		logrus.Warnf("Failed to read position %v from database because: %v.", id, err)
		return nil, fmt.Errorf("failed to read position %v from database because: %v", id, err)
	}
	return &pos, nil
}

//ActivePositions returns every active position, scoped to one guild when
//guildID is non-empty, ordered by creation time.
func (db *Connection) ActivePositions(guildID string) ([]appmodels.Position, error) {
	filter := map[string]interface{}{
		"active": true,
	}
	if guildID != "" {
		filter["guild_id"] = guildID
	}
	logrus.Debugf("Looking up active positions with filter %#v", filter)
	res, err := rethink.Table(positionsTable).Filter(filter).OrderBy("created_at").Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error looking up active positions for guild %v: %v.", guildID, err)
		return nil, err
	}
	defer res.Close()
	var positions []appmodels.Position
	if res.IsNil() {
		return nil, nil
	}
	err = res.All(&positions)
	if err != nil {
		logrus.Warnf("Encountered error looking up active positions for guild %v: %v.", guildID, err)
		return nil, err
	}
	return positions, nil
}

//ListPositions returns every position for a guild regardless of active state.
func (db *Connection) ListPositions(guildID string) ([]appmodels.Position, error) {
	filter := map[string]interface{}{
		"guild_id": guildID,
	}
	res, err := rethink.Table(positionsTable).Filter(filter).OrderBy("created_at").Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error listing positions for guild %v: %v.", guildID, err)
		return nil, err
	}
	defer res.Close()
	var positions []appmodels.Position
	if res.IsNil() {
		return nil, nil
	}
	err = res.All(&positions)
	if err != nil {
		logrus.Warnf("Encountered error listing positions for guild %v: %v.", guildID, err)
		return nil, err
	}
	return positions, nil
}

//LatestPosition returns the most recently created position for a guild, or
//nil if the guild has never configured one. Used to offer the previous
//configuration during setup.
func (db *Connection) LatestPosition(guildID string) (*appmodels.Position, error) {
	filter := map[string]interface{}{
		"guild_id": guildID,
	}
	res, err := rethink.Table(positionsTable).Filter(filter).OrderBy(rethink.Desc("created_at")).Limit(1).Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error looking up latest position for guild %v: %v.", guildID, err)
		return nil, err
	}
	defer res.Close()
	if res.IsNil() {
		return nil, nil
	}
	var pos appmodels.Position
	err = res.One(&pos)
	if err != nil {
		if err == rethink.ErrEmptyResult {
			return nil, nil
		}
		logrus.Warnf("Encountered error reading latest position for guild %v: %v.", guildID, err)
		return nil, err
	}
	return &pos, nil
}

//UpdatePosition replaces the stored record for a position.
func (db *Connection) UpdatePosition(pos *appmodels.Position) error {
	pos.LastUpdated = time.Now()
	resp, err := rethink.Table(positionsTable).Get(pos.ID).Replace(pos).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Encountered error updating position %v: %v.", pos.ID, err)
		return err
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Warnf("Encountered error updating position %v: %v.", pos.ID, err)
		return err
	}
	return nil
}

//DeletePosition removes a position record by ID.
func (db *Connection) DeletePosition(id string) error {
	resp, err := rethink.Table(positionsTable).Get(id).Delete().RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Encountered error deleting position %v: %v.", id, err)
		return err
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Warnf("Encountered error deleting position %v: %v.", id, err)
		return err
	}
	return nil
}

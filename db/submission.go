package db

import (
	"fmt"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

const submissionsTable string = "submissions"

//CreateSubmission inserts a new submission, minting an ID for it, and returns the stored record.
func (db *Connection) CreateSubmission(sub appmodels.Submission) (*appmodels.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}
	resp, err := rethink.Table(submissionsTable).Insert(sub).RunWrite(db.session)
	if err != nil {
		logrus.Errorf("Failed to insert submission for applicant %v because: %v.", sub.ApplicantID, err)
		return nil, fmt.Errorf("failed to insert submission for applicant %v because: %v", sub.ApplicantID, err)
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Errorf("Failed to insert submission for applicant %v because: %v.", sub.ApplicantID, err)
		return nil, err
	}
	return &sub, nil
}

//GetSubmission fetches a single submission by ID, returning nil if it does not exist.
func (db *Connection) GetSubmission(id string) (*appmodels.Submission, error) {
	res, err := rethink.Table(submissionsTable).Get(id).Run(db.session)
	if err != nil {
		logrus.Warnf("Failed to query database for submission %v because: %v.", id, err)
		return nil, fmt.Errorf("failed to query database for submission %v because: %v", id, err)
	}
	defer res.Close()
	if res.IsNil() {
		return nil, nil
	}
	var sub appmodels.Submission
	err = res.One(&sub)
	if err != nil {
		logrus.Warnf("Failed to read submission %v from database because: %v.", id, err)
		return nil, fmt.Errorf("failed to read submission %v from database because: %v", id, err)
	}
	return &sub, nil
}

//FindSubmission returns the applicant's submission for a position if one
//exists, regardless of status. At most one record exists per pair.
func (db *Connection) FindSubmission(positionID string, applicantID string) (*appmodels.Submission, error) {
	filter := map[string]interface{}{
		"position_id":  positionID,
		"applicant_id": applicantID,
	}
	logrus.Debugf("Looking up submission with filter %#v", filter)
	res, err := rethink.Table(submissionsTable).Filter(filter).Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error looking up submission for applicant %v on position %v: %v.", applicantID, positionID, err)
		return nil, err
	}
	defer res.Close()
	if res.IsNil() {
		return nil, nil
	}
	var sub appmodels.Submission
	err = res.One(&sub)
	if err != nil {
		if err == rethink.ErrEmptyResult {
			return nil, nil
		}
		logrus.Warnf("Encountered error reading submission for applicant %v on position %v: %v.", applicantID, positionID, err)
		return nil, err
	}
	return &sub, nil
}

//SubmissionsForUser returns all of one user's submissions within a guild.
func (db *Connection) SubmissionsForUser(guildID string, userID string) ([]appmodels.Submission, error) {
	filter := map[string]interface{}{
		"guild_id":     guildID,
		"applicant_id": userID,
	}
	res, err := rethink.Table(submissionsTable).Filter(filter).OrderBy("submitted_at").Run(db.session)
	if err != nil {
		logrus.Warnf("Encountered error looking up submissions for user %v in guild %v: %v.", userID, guildID, err)
		return nil, err
	}
	defer res.Close()
	var subs []appmodels.Submission
	if res.IsNil() {
		return nil, nil
	}
	err = res.All(&subs)
	if err != nil {
		logrus.Warnf("Encountered error looking up submissions for user %v in guild %v: %v.", userID, guildID, err)
		return nil, err
	}
	return subs, nil
}

//UpdateSubmission replaces the stored record for a submission.
func (db *Connection) UpdateSubmission(sub *appmodels.Submission) error {
	resp, err := rethink.Table(submissionsTable).Get(sub.ID).Replace(sub).RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Encountered error updating submission %v: %v.", sub.ID, err)
		return err
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Warnf("Encountered error updating submission %v: %v.", sub.ID, err)
		return err
	}
	return nil
}

//DeleteSubmission removes a submission record by ID.
func (db *Connection) DeleteSubmission(id string) error {
	resp, err := rethink.Table(submissionsTable).Get(id).Delete().RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Encountered error deleting submission %v: %v.", id, err)
		return err
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Warnf("Encountered error deleting submission %v: %v.", id, err)
		return err
	}
	return nil
}

//DeleteSubmissionsForPosition removes every submission belonging to a
//position. Called when the position itself is deleted.
func (db *Connection) DeleteSubmissionsForPosition(positionID string) (int, error) {
	filter := map[string]interface{}{
		"position_id": positionID,
	}
	resp, err := rethink.Table(submissionsTable).Filter(filter).Delete().RunWrite(db.session)
	if err != nil {
		logrus.Warnf("Encountered error deleting submissions for position %v: %v.", positionID, err)
		return 0, err
	} else if resp.Errors > 0 {
		err := fmt.Errorf("%v", resp.FirstError)
		logrus.Warnf("Encountered error deleting submissions for position %v: %v.", positionID, err)
		return 0, err
	}
	return resp.Deleted, nil
}

package bot

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

//handleSetupButton opens the position-creation form for admins.
func (b *StaffBot) handleSetupButton(r *responder, ic *discordgo.InteractionCreate, _ string) error {
	if !b.isAdminInteraction(ic) {
		return r.ephemeral("❌ You need administrator permissions to set up positions.")
	}
	return r.modal(creationModal())
}

//handleNewConfigButton is the "start fresh" branch of the previous-config
//prompt; it just opens the creation form.
func (b *StaffBot) handleNewConfigButton(r *responder, ic *discordgo.InteractionCreate, arg string) error {
	return b.handleSetupButton(r, ic, arg)
}

//parseCreationFields validates the shared creation/update modal fields into
//a position draft. Returns a user-facing complaint when validation fails.
func (b *StaffBot) parseCreationFields(guildID string, values map[string]string, draft *appmodels.Position) string {
	name := values[fieldPositionName]
	if name == "" {
		return "❌ Position name cannot be empty."
	}
	slots, err := strconv.Atoi(values[fieldOpenSlots])
	if err != nil || slots < 1 {
		return "❌ Open slots must be a whole number of at least 1."
	}
	roleID := values[fieldGrantRole]
	if !b.roleExists(guildID, roleID) {
		return fmt.Sprintf("❌ Role `%v` doesn't exist in this server.", roleID)
	}
	draft.Name = name
	draft.Description = values[fieldDescription]
	draft.OpenSlots = slots
	draft.GrantRoleID = roleID
	return ""
}

//handleCreateModal validates the creation form and launches the guided
//collection wizard for the remaining configuration.
func (b *StaffBot) handleCreateModal(r *responder, ic *discordgo.InteractionCreate, _ string) error {
	values := modalValues(ic.ModalSubmitData())

	draft := appmodels.Position{GuildID: ic.GuildID}
	if complaint := b.parseCreationFields(ic.GuildID, values, &draft); complaint != "" {
		return r.ephemeral(complaint)
	}
	days, err := strconv.Atoi(values[fieldDurationDays])
	if err != nil || days < 0 {
		return r.ephemeral("❌ Duration must be a whole number of days, or 0 for until filled.")
	}
	draft.Duration = appmodels.NewDuration(days, time.Now())

	user := interactionUser(ic)
	sess := &SetupSession{
		Key:       newSessionKey(user.ID),
		GuildID:   ic.GuildID,
		ChannelID: ic.ChannelID,
		UserID:    user.ID,
		Step:      StepReviewerRoles,
		Draft:     draft,
		StartedAt: time.Now(),
	}
	b.sessions.Put(sess)

	if err := r.ephemeral("✅ Position details saved! Now let's finish the configuration in this channel."); err != nil {
		b.sessions.Delete(sess.Key)
		return err
	}

	//The wizard blocks on user replies, so it runs off the event goroutine.
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.Errorf("Setup wizard for session %v panicked: %v", sess.Key, rec)
			}
		}()
		b.runSetupWizard(sess)
	}()
	return nil
}

//runSetupWizard walks the admin through reviewer roles and channel wiring,
//then hands off to the resubmission-policy buttons.
func (b *StaffBot) runSetupWizard(sess *SetupSession) {
	roleValid := func(roleID string) bool { return b.roleExists(sess.GuildID, roleID) }
	roles, useDefault, err := b.collectReviewerRoles(sess.ChannelID, sess.UserID, roleValid)
	if err != nil {
		b.abortSetup(sess, err)
		return
	}
	if useDefault {
		latest, err := b.store.LatestPosition(sess.GuildID)
		if err != nil || latest == nil {
			b.abortSetup(sess, errors.New("no previous position to take defaults from"))
			b.notifyChannel(sess.ChannelID, sess.UserID, "❌ There is no previous position to take defaults from. Setup aborted.")
			return
		}
		roles = latest.ReviewerRoles
	}
	sess.Draft.ReviewerRoles = roles
	sess.Step = StepChannels
	b.sessions.Put(sess)

	channelValid := func(channelID string) bool { return b.channelExists(sess.GuildID, channelID) }
	channels, useDefault, err := b.collectChannelSet(sess.ChannelID, sess.UserID, channelValid)
	if err != nil {
		b.abortSetup(sess, err)
		return
	}
	if useDefault {
		latest, err := b.store.LatestPosition(sess.GuildID)
		if err != nil || latest == nil {
			b.abortSetup(sess, errors.New("no previous position to take defaults from"))
			b.notifyChannel(sess.ChannelID, sess.UserID, "❌ There is no previous position to take defaults from. Setup aborted.")
			return
		}
		channels = latest.Channels
	}
	sess.Draft.Channels = channels
	sess.Step = StepResubmitPolicy
	b.sessions.Put(sess)

	_, err = b.gw.ChannelMessageSendComplex(sess.ChannelID, resubmitDecisionMessage(sess.Key))
	if err != nil {
		logrus.Errorf("Failed to send resubmission policy prompt for session %v: %v", sess.Key, err)
		b.sessions.Delete(sess.Key)
	}
}

//abortSetup tears down a wizard session and tells the admin why.
func (b *StaffBot) abortSetup(sess *SetupSession, cause error) {
	b.sessions.Delete(sess.Key)
	switch {
	case errors.Is(cause, ErrCancelled):
		b.notifyChannel(sess.ChannelID, sess.UserID, "❌ Application creation cancelled.")
	case errors.Is(cause, ErrNoResponse):
		b.notifyChannel(sess.ChannelID, sess.UserID,
			fmt.Sprintf("⏱️ No response received. Position setup was aborted during the %v step.", sess.Step))
	default:
		logrus.Warnf("Setup session %v aborted: %v", sess.Key, cause)
	}
}

func (b *StaffBot) notifyChannel(channelID, userID, content string) {
	_, err := b.gw.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: "<@" + userID + "> " + content,
	})
	if err != nil {
		logrus.Warnf("Failed to send notice to channel %v: %v", channelID, err)
	}
}

//finishSetup persists the wizard's draft with the chosen resubmission policy
//and refreshes the panel.
func (b *StaffBot) finishSetup(r *responder, ic *discordgo.InteractionCreate, sessionKey string, allowResubmit bool) error {
	sess := b.sessions.Get(sessionKey)
	if sess == nil {
		return r.ephemeral("❌ Session expired or invalid. Please start again.")
	}
	user := interactionUser(ic)
	if user == nil || user.ID != sess.UserID {
		return r.ephemeral("❌ Only the admin who started this setup can finish it.")
	}

	pos := sess.Draft
	pos.Active = true
	pos.AllowResubmit = allowResubmit
	created, err := b.store.CreatePosition(pos)
	if err != nil {
		return err
	}
	b.sessions.Delete(sess.Key)

	if err := r.ephemeral(fmt.Sprintf("✅ Position **%v** created! The application panel has been updated.", created.Name)); err != nil && !isDeadInteraction(err) {
		logrus.Warnf("Failed to acknowledge setup completion for position %v: %v", created.ID, err)
	}
	return b.panels.SyncAll(sess.GuildID)
}

func (b *StaffBot) handleResubmitYes(r *responder, ic *discordgo.InteractionCreate, sessionKey string) error {
	return b.finishSetup(r, ic, sessionKey, true)
}

func (b *StaffBot) handleResubmitNo(r *responder, ic *discordgo.InteractionCreate, sessionKey string) error {
	return b.finishSetup(r, ic, sessionKey, false)
}

//handleUsePreviousButton shows a summary of the most recent position and
//offers to clone its configuration.
func (b *StaffBot) handleUsePreviousButton(r *responder, ic *discordgo.InteractionCreate, _ string) error {
	if !b.isAdminInteraction(ic) {
		return r.ephemeral("❌ You need administrator permissions to set up positions.")
	}
	latest, err := b.store.LatestPosition(ic.GuildID)
	if err != nil {
		return err
	}
	if latest == nil {
		return r.ephemeral("❌ No previous position found. Use the setup button to create one from scratch.")
	}

	summary := summaryEmbed("Previous Configuration", fmt.Sprintf(
		"**Name:** %v\n**Open slots:** %d\n**Duration:** %v\n**Reviewer roles:** %d configured\n**Allow reapplying:** %v\n\nCreate a new position with this configuration?",
		latest.Name, latest.OpenSlots, latest.Duration.Describe(), len(latest.ReviewerRoles), latest.AllowResubmit))
	return r.ephemeralEmbed(summary, []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Use this configuration", Style: discordgo.SuccessButton, CustomID: idConfirmPrevious},
				discordgo.Button{Label: "Start fresh", Style: discordgo.SecondaryButton, CustomID: idNewConfig},
			},
		},
	})
}

//handleConfirmPreviousButton clones the latest position into a fresh active
//one, recomputing the duration window from now.
func (b *StaffBot) handleConfirmPreviousButton(r *responder, ic *discordgo.InteractionCreate, _ string) error {
	if !b.isAdminInteraction(ic) {
		return r.ephemeral("❌ You need administrator permissions to set up positions.")
	}
	latest, err := b.store.LatestPosition(ic.GuildID)
	if err != nil {
		return err
	}
	if latest == nil {
		return r.ephemeral("❌ No previous position found. Use the setup button to create one from scratch.")
	}

	clone := *latest
	clone.ID = ""
	clone.Active = true
	if clone.Duration.Kind == appmodels.DurationDays {
		clone.Duration = appmodels.NewDuration(clone.Duration.Days, time.Now())
	}
	created, err := b.store.CreatePosition(clone)
	if err != nil {
		return err
	}
	if err := r.ephemeral(fmt.Sprintf("✅ Position **%v** recreated from the previous configuration!", created.Name)); err != nil && !isDeadInteraction(err) {
		logrus.Warnf("Failed to acknowledge clone of position %v: %v", created.ID, err)
	}
	return b.panels.SyncAll(ic.GuildID)
}

//handleUpdateButton opens the prefilled update form from a !sau listing.
func (b *StaffBot) handleUpdateButton(r *responder, ic *discordgo.InteractionCreate, positionID string) error {
	if !b.isAdminInteraction(ic) {
		return r.ephemeral("❌ You need administrator permissions to manage positions.")
	}
	pos, err := b.store.GetPosition(positionID)
	if err != nil {
		return err
	}
	if pos == nil {
		return r.ephemeral("❌ This position no longer exists.")
	}
	return r.modal(prefilledUpdateModal(pos))
}

//handleUpdateModal applies the edited fields to an existing position.
func (b *StaffBot) handleUpdateModal(r *responder, ic *discordgo.InteractionCreate, positionID string) error {
	if !b.isAdminInteraction(ic) {
		return r.ephemeral("❌ You need administrator permissions to manage positions.")
	}
	pos, err := b.store.GetPosition(positionID)
	if err != nil {
		return err
	}
	if pos == nil {
		return r.ephemeral("❌ This position no longer exists.")
	}

	values := modalValues(ic.ModalSubmitData())
	if complaint := b.parseCreationFields(ic.GuildID, values, pos); complaint != "" {
		return r.ephemeral(complaint)
	}
	pos.AllowResubmit = values[fieldAllowResubmit] == "yes"

	if err := b.store.UpdatePosition(pos); err != nil {
		return err
	}
	if err := r.ephemeral(fmt.Sprintf("✅ Position **%v** updated!", pos.Name)); err != nil && !isDeadInteraction(err) {
		logrus.Warnf("Failed to acknowledge update of position %v: %v", pos.ID, err)
	}
	b.listings.clearListings(b.gw)
	return b.panels.SyncAll(ic.GuildID)
}

//handleDeleteButton asks for typed confirmation before a destructive delete.
func (b *StaffBot) handleDeleteButton(r *responder, ic *discordgo.InteractionCreate, positionID string) error {
	if !b.isAdminInteraction(ic) {
		return r.ephemeral("❌ You need administrator permissions to manage positions.")
	}
	pos, err := b.store.GetPosition(positionID)
	if err != nil {
		return err
	}
	if pos == nil {
		return r.ephemeral("❌ This position no longer exists.")
	}
	return r.modal(confirmDeleteModal(pos.ID))
}

//handleConfirmDeleteModal deletes the position and cascades to its
//submissions once the admin has typed the confirmation word.
func (b *StaffBot) handleConfirmDeleteModal(r *responder, ic *discordgo.InteractionCreate, positionID string) error {
	if !b.isAdminInteraction(ic) {
		return r.ephemeral("❌ You need administrator permissions to manage positions.")
	}
	if modalValues(ic.ModalSubmitData())[fieldConfirm] != "confirm" {
		return r.ephemeral("❌ Deletion not confirmed. The position was left untouched.")
	}
	pos, err := b.store.GetPosition(positionID)
	if err != nil {
		return err
	}
	if pos == nil {
		return r.ephemeral("❌ This position no longer exists.")
	}

	if err := b.store.DeletePosition(pos.ID); err != nil {
		return err
	}
	deleted, err := b.store.DeleteSubmissionsForPosition(pos.ID)
	if err != nil {
		logrus.Warnf("Failed to cascade-delete submissions for position %v: %v", pos.ID, err)
	}

	if err := r.ephemeral(fmt.Sprintf("✅ Position **%v** deleted along with %d submission(s).", pos.Name, deleted)); err != nil && !isDeadInteraction(err) {
		logrus.Warnf("Failed to acknowledge deletion of position %v: %v", pos.ID, err)
	}

	auditEmbed := &discordgo.MessageEmbed{
		Title:       "🗑️ Position Deleted",
		Description: fmt.Sprintf("**%v** was deleted by <@%v>. %d submission(s) were removed.", pos.Name, interactionUser(ic).ID, deleted),
		Color:       colourError,
		Footer:      embedFooter(),
	}
	if err := b.postAudit(pos, auditEmbed); err != nil {
		logrus.Warnf("Failed to log deletion of position %v: %v", pos.ID, err)
	}

	b.listings.clearListings(b.gw)
	return b.panels.SyncAll(ic.GuildID)
}

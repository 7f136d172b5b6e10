package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

//sideEffect is one best-effort follow-up to a review decision. The decision
//itself is persisted first; effect failures are logged, never surfaced.
type sideEffect struct {
	name string
	run  func() error
}

func runSideEffects(context string, effects []sideEffect) {
	var failures []string
	for _, effect := range effects {
		if err := effect.run(); err != nil {
			failures = append(failures, fmt.Sprintf("%v: %v", effect.name, err))
		}
	}
	if len(failures) > 0 {
		logrus.Warnf("Side effects failed while %v: %v", context, strings.Join(failures, "; "))
	}
}

//dmApplicant delivers an embed to a user's DMs.
func (b *StaffBot) dmApplicant(userID string, embed *discordgo.MessageEmbed) error {
	channel, err := b.gw.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("failed to open DM channel with user %v: %v", userID, err)
	}
	_, err = b.gw.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	return err
}

//postAudit writes a review decision to the position's history channel.
func (b *StaffBot) postAudit(pos *appmodels.Position, embed *discordgo.MessageEmbed) error {
	if pos.Channels.History == "" {
		return nil
	}
	_, err := b.gw.ChannelMessageSendComplex(pos.Channels.History, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	return err
}

//loadReviewTarget resolves a review button's submission and position,
//answering the reviewer directly for the recoverable states.
func (b *StaffBot) loadReviewTarget(r *responder, submissionID string) (*appmodels.Submission, *appmodels.Position, error) {
	sub, err := b.store.GetSubmission(submissionID)
	if err != nil {
		return nil, nil, err
	}
	if sub == nil {
		return nil, nil, r.ephemeral("❌ This application no longer exists.")
	}
	pos, err := b.store.GetPosition(sub.PositionID)
	if err != nil {
		return nil, nil, err
	}
	if pos == nil {
		return nil, nil, r.ephemeral("❌ The position this application was for no longer exists.")
	}
	return sub, pos, nil
}

//handleAcceptButton accepts a pending submission: persists the decision,
//grants the role, then runs the notification side effects and closes the
//position once its last slot is filled.
func (b *StaffBot) handleAcceptButton(r *responder, ic *discordgo.InteractionCreate, submissionID string) error {
	sub, pos, err := b.loadReviewTarget(r, submissionID)
	if err != nil || sub == nil {
		return err
	}
	if !b.canReview(ic, pos) {
		return r.ephemeral("❌ You don't have permission to review applications for this position.")
	}
	if sub.Status != appmodels.StatusPending {
		return r.ephemeral(fmt.Sprintf("❌ This application has already been %v.", sub.Status))
	}

	reviewer := interactionUser(ic)
	now := time.Now()
	sub.Status = appmodels.StatusAccepted
	sub.ReviewedBy = reviewer.ID
	sub.ReviewedAt = &now
	if err := b.store.UpdateSubmission(sub); err != nil {
		return err
	}

	ack := "✅ Application accepted!"
	if err := b.gw.GuildMemberRoleAdd(sub.GuildID, sub.ApplicantID, pos.GrantRoleID); err != nil {
		logrus.Warnf("Failed to grant role %v to user %v in guild %v: %v", pos.GrantRoleID, sub.ApplicantID, sub.GuildID, err)
		ack = "⚠️ Application accepted, but I could not assign the role. Please grant it manually."
	}
	if err := r.ephemeral(ack); err != nil && !isDeadInteraction(err) {
		logrus.Warnf("Failed to acknowledge acceptance of submission %v: %v", sub.ID, err)
	}

	dmEmbed := &discordgo.MessageEmbed{
		Title:       "🎉 Application Accepted",
		Description: fmt.Sprintf("Congratulations! Your application for **%v** has been accepted.", pos.Name),
		Color:       colourSuccess,
		Footer:      embedFooter(),
	}
	auditEmbed := &discordgo.MessageEmbed{
		Title:       "✅ Application Accepted",
		Description: fmt.Sprintf("<@%v>'s application for **%v** was accepted by <@%v>.", sub.ApplicantID, pos.Name, reviewer.ID),
		Color:       colourSuccess,
		Footer:      embedFooter(),
	}
	runSideEffects("accepting submission "+sub.ID, []sideEffect{
		{name: "dm applicant", run: func() error {
			if err := b.dmApplicant(sub.ApplicantID, dmEmbed); err == nil {
				return nil
			}
			//DMs closed; announce in the panel channel instead.
			_, err := b.gw.ChannelMessageSendComplex(pos.Channels.Panel, &discordgo.MessageSend{
				Content: "<@" + sub.ApplicantID + ">",
				Embeds:  []*discordgo.MessageEmbed{dmEmbed},
			})
			return err
		}},
		{name: "audit log", run: func() error { return b.postAudit(pos, auditEmbed) }},
		{name: "delete notification", run: func() error {
			if ic.Message == nil {
				return nil
			}
			return b.gw.ChannelMessageDelete(ic.ChannelID, ic.Message.ID)
		}},
	})

	if pos.OpenSlots > 0 {
		pos.OpenSlots--
	}
	if pos.OpenSlots == 0 {
		pos.Active = false
	}
	if err := b.store.UpdatePosition(pos); err != nil {
		return err
	}
	if !pos.Active {
		b.listings.clearListings(b.gw)
	}
	return b.panels.SyncAll(sub.GuildID)
}

//handleRejectButton opens the rejection-reason modal after a permission check.
func (b *StaffBot) handleRejectButton(r *responder, ic *discordgo.InteractionCreate, submissionID string) error {
	sub, pos, err := b.loadReviewTarget(r, submissionID)
	if err != nil || sub == nil {
		return err
	}
	if !b.canReview(ic, pos) {
		return r.ephemeral("❌ You don't have permission to review applications for this position.")
	}
	if sub.Status != appmodels.StatusPending {
		return r.ephemeral(fmt.Sprintf("❌ This application has already been %v.", sub.Status))
	}
	return r.modal(rejectModal(sub.ID))
}

//handleRejectModal persists the rejection with its reason. The record is
//retained so a later resubmission can consume it.
func (b *StaffBot) handleRejectModal(r *responder, ic *discordgo.InteractionCreate, submissionID string) error {
	sub, pos, err := b.loadReviewTarget(r, submissionID)
	if err != nil || sub == nil {
		return err
	}
	if !b.canReview(ic, pos) {
		return r.ephemeral("❌ You don't have permission to review applications for this position.")
	}
	if sub.Status != appmodels.StatusPending {
		return r.ephemeral(fmt.Sprintf("❌ This application has already been %v.", sub.Status))
	}

	reason := modalValues(ic.ModalSubmitData())[fieldRejectReason]
	reviewer := interactionUser(ic)
	now := time.Now()
	sub.Status = appmodels.StatusRejected
	sub.ReviewedBy = reviewer.ID
	sub.ReviewedAt = &now
	sub.ReviewNotes = reason
	if err := b.store.UpdateSubmission(sub); err != nil {
		return err
	}

	if err := r.ephemeral("✅ Application rejected."); err != nil && !isDeadInteraction(err) {
		logrus.Warnf("Failed to acknowledge rejection of submission %v: %v", sub.ID, err)
	}

	dmEmbed := &discordgo.MessageEmbed{
		Title:       "Application Update",
		Description: fmt.Sprintf("Unfortunately your application for **%v** was not successful.", pos.Name),
		Color:       colourError,
		Fields:      []*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}},
		Footer:      embedFooter(),
	}
	auditEmbed := &discordgo.MessageEmbed{
		Title:       "❌ Application Rejected",
		Description: fmt.Sprintf("<@%v>'s application for **%v** was rejected by <@%v>.", sub.ApplicantID, pos.Name, reviewer.ID),
		Color:       colourError,
		Fields:      []*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}},
		Footer:      embedFooter(),
	}
	runSideEffects("rejecting submission "+sub.ID, []sideEffect{
		//Rejection DMs stay silent on failure: no public fallback.
		{name: "dm applicant", run: func() error { return b.dmApplicant(sub.ApplicantID, dmEmbed) }},
		{name: "audit log", run: func() error { return b.postAudit(pos, auditEmbed) }},
		{name: "delete notification", run: func() error {
			if ic.Message == nil {
				return nil
			}
			return b.gw.ChannelMessageDelete(ic.ChannelID, ic.Message.ID)
		}},
	})

	return b.panels.SyncAll(sub.GuildID)
}

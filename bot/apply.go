package bot

import (
	"fmt"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

//handleApplySelect services the panel's position picker: checks the
//position is still open and the applicant's prior history, then opens the
//application form.
func (b *StaffBot) handleApplySelect(r *responder, ic *discordgo.InteractionCreate, _ string) error {
	data := ic.MessageComponentData()
	if len(data.Values) == 0 {
		return r.ephemeral("❌ This position is no longer available.")
	}
	pos, err := b.store.GetPosition(data.Values[0])
	if err != nil {
		return err
	}
	if pos == nil {
		return r.ephemeral("❌ This position is no longer available.")
	}
	if !pos.IsOpen(time.Now()) {
		return r.ephemeral("❌ This position is no longer accepting applications.")
	}

	user := interactionUser(ic)
	existing, err := b.store.FindSubmission(pos.ID, user.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Status == appmodels.StatusRejected && pos.AllowResubmit {
			//Reapplying consumes the rejected record.
			if err := b.store.DeleteSubmission(existing.ID); err != nil {
				return err
			}
			return r.modal(submissionModal(pos))
		}
		return r.ephemeral(submissionStatusNotice(existing.Status))
	}
	return r.modal(submissionModal(pos))
}

func submissionStatusNotice(status string) string {
	switch status {
	case appmodels.StatusAccepted:
		return "✅ Your application for this position was accepted."
	case appmodels.StatusRejected:
		return "❌ Your previous application for this position was rejected, and this position does not allow reapplying."
	default:
		return "⏳ You already have an application under review for this position."
	}
}

//handleSubmitModal persists a completed application form and announces it to
//the reviewers.
func (b *StaffBot) handleSubmitModal(r *responder, ic *discordgo.InteractionCreate, positionID string) error {
	pos, err := b.store.GetPosition(positionID)
	if err != nil {
		return err
	}
	if pos == nil || !pos.IsOpen(time.Now()) {
		return r.ephemeral("❌ This position is no longer accepting applications.")
	}

	user := interactionUser(ic)
	//The position may have closed or a duplicate may have landed while the
	//form was open.
	existing, err := b.store.FindSubmission(pos.ID, user.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return r.ephemeral(submissionStatusNotice(existing.Status))
	}

	sub, err := b.store.CreateSubmission(appmodels.Submission{
		PositionID:  pos.ID,
		ApplicantID: user.ID,
		GuildID:     pos.GuildID,
		Answers:     modalValues(ic.ModalSubmitData()),
		Status:      appmodels.StatusPending,
	})
	if err != nil {
		return err
	}

	if err := r.ephemeral("✅ Your application has been submitted successfully!"); err != nil && !isDeadInteraction(err) {
		logrus.Warnf("Failed to acknowledge submission %v: %v", sub.ID, err)
	}

	//Reviewer notification is best effort; the submission already exists.
	if err := b.notifyReviewers(pos, sub, user); err != nil {
		logrus.Warnf("Failed to announce submission %v in notifications channel %v: %v", sub.ID, pos.Channels.Notifications, err)
	}
	return nil
}

//notifyReviewers posts the submission with accept/reject controls into the
//position's notifications channel.
func (b *StaffBot) notifyReviewers(pos *appmodels.Position, sub *appmodels.Submission, applicant *discordgo.User) error {
	fields := make([]*discordgo.MessageEmbedField, 0, 4)
	addAnswer := func(fieldID, label string) {
		if answer := sub.Answers[fieldID]; answer != "" {
			fields = append(fields, &discordgo.MessageEmbedField{Name: label, Value: answer})
		}
	}
	addAnswer(fieldExperience, "Relevant experience")
	addAnswer(fieldPreviousStaff, "Previous staff positions")
	addAnswer(fieldMotivation, "Motivation")
	addAnswer(fieldAdditionalInfo, "Additional info")

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📨 New Application: %v", pos.Name),
		Description: fmt.Sprintf("Submitted by <@%v> (`%v`)", applicant.ID, applicant.Username),
		Color:       colourPending,
		Fields:      fields,
		Footer:      embedFooter(),
	}
	_, err := b.gw.ChannelMessageSendComplex(pos.Channels.Notifications, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Accept",
						Style:    discordgo.SuccessButton,
						CustomID: prefixAccept + sub.ID,
						Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
					},
					discordgo.Button{
						Label:    "Reject",
						Style:    discordgo.DangerButton,
						CustomID: prefixReject + sub.ID,
						Emoji:    &discordgo.ComponentEmoji{Name: "❌"},
					},
				},
			},
		},
	})
	return err
}

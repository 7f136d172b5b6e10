package bot

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const genericFailureNotice = "❌ An error occurred while processing your request."

//responder tracks whether an interaction has been responded to yet, so that
//every reply after the first automatically becomes a follow-up. Discord
//allows exactly one initial response per interaction.
type responder struct {
	gw        Gateway
	ic        *discordgo.InteractionCreate
	responded bool
}

func newResponder(gw Gateway, ic *discordgo.InteractionCreate) *responder {
	return &responder{gw: gw, ic: ic}
}

//respond sends the initial interaction response, or a follow-up message if a
//response has already gone out.
func (r *responder) respond(data *discordgo.InteractionResponseData) error {
	if r.responded {
		_, err := r.gw.FollowupMessageCreate(r.ic.Interaction, true, &discordgo.WebhookParams{
			Content: data.Content,
			Embeds:  data.Embeds,
			Flags:   data.Flags,
		})
		return err
	}
	err := r.gw.InteractionRespond(r.ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err == nil {
		r.responded = true
	}
	return err
}

//ephemeral replies with a short-lived notice only the originator can see.
func (r *responder) ephemeral(content string) error {
	return r.respond(&discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

//ephemeralEmbed replies with an embed only the originator can see.
func (r *responder) ephemeralEmbed(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return r.respond(&discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
		Flags:      discordgo.MessageFlagsEphemeral,
	})
}

//modal opens a modal form. Must be the initial response.
func (r *responder) modal(data *discordgo.InteractionResponseData) error {
	err := r.gw.InteractionRespond(r.ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: data,
	})
	if err == nil {
		r.responded = true
	}
	return err
}

//failureNotice emits the single generic failure notice the dispatcher
//boundary guarantees. Expired interactions are dropped silently.
func (r *responder) failureNotice() {
	err := r.ephemeral(genericFailureNotice)
	if err == nil || isDeadInteraction(err) {
		return
	}
	logrus.Errorf("Failed to deliver failure notice for interaction %v: %v", r.ic.ID, err)
}

//Discord rejects responses to interactions that have expired or were
//acknowledged elsewhere; neither is worth surfacing.
const errCodeUnknownInteraction = 10062
const errCodeAlreadyAcknowledged = 40060

func isDeadInteraction(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	return restErr.Message.Code == errCodeUnknownInteraction || restErr.Message.Code == errCodeAlreadyAcknowledged
}

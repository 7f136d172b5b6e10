package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bwmarrin/discordgo"
)

const embedFooterText = "Made with ♥ by BitCraft Network"

const (
	colourBrand    = 0x2F3136
	colourSuccess  = 0x00FF00
	colourError    = 0xFF0000
	colourPending  = 0xFFA500
	colourPanel    = 0xB6E67F
	colourEmpty    = 0x808080
	colourDecision = 0x5865F2
)

//Modal field IDs, shared between the modal builders and their submit handlers.
const (
	fieldPositionName  = "position_name"
	fieldDescription   = "description"
	fieldOpenSlots     = "open_slots"
	fieldDurationDays  = "duration_days"
	fieldGrantRole     = "grant_role_id"
	fieldAllowResubmit = "allow_resubmit"
	fieldConfirm       = "confirm"
	fieldRejectReason  = "reject_reason"

	fieldExperience     = "experience"
	fieldPreviousStaff  = "previous_staff"
	fieldMotivation     = "motivation"
	fieldAdditionalInfo = "additional_info"
)

func embedFooter() *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: embedFooterText}
}

func summaryEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📝 " + title,
		Description: description,
		Color:       colourBrand,
		Footer:      embedFooter(),
	}
}

var positionEmojiKeywords = []struct {
	keyword string
	emoji   string
}{
	{"mod", "🛡️"},
	{"admin", "⚙️"},
	{"helper", "🤝"},
	{"builder", "🏗️"},
	{"developer", "💻"},
	{"event", "🎉"},
	{"media", "📸"},
}

func positionEmoji(name string) string {
	lower := strings.ToLower(name)
	for _, entry := range positionEmojiKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.emoji
		}
	}
	return "📋"
}

//consolidatedPanel renders the single panel embed listing every active
//position. The bool result reports whether any positions were listed; when
//false the embed is the empty-state rendering.
func consolidatedPanel(positions []appmodels.Position) (*discordgo.MessageEmbed, bool) {
	if len(positions) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "📭 No Open Positions Available",
			Description: "There are currently no staff positions accepting applications. Check back later!",
			Color:       colourEmpty,
			Footer:      embedFooter(),
		}, false
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(positions))
	for _, pos := range positions {
		desc := pos.Description
		if desc == "" {
			desc = "No description provided."
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s %s", positionEmoji(pos.Name), pos.Name),
			Value: fmt.Sprintf("%s\n**Open slots:** %d\n**Duration:** %s",
				desc, pos.OpenSlots, pos.Duration.Describe()),
		})
	}
	return &discordgo.MessageEmbed{
		Title:       "📋 Staff Applications",
		Description: "Select a position from the menu below to apply.",
		Color:       colourPanel,
		Fields:      fields,
		Footer:      embedFooter(),
	}, true
}

//applySelectRow builds the position picker under the panel embed.
func applySelectRow(positions []appmodels.Position) discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(positions))
	for _, pos := range positions {
		options = append(options, discordgo.SelectMenuOption{
			Label:       pos.Name,
			Value:       pos.ID,
			Description: fmt.Sprintf("%d open slot(s)", pos.OpenSlots),
			Emoji:       &discordgo.ComponentEmoji{Name: positionEmoji(pos.Name)},
		})
	}
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    idApplySelect,
				Placeholder: "Choose a position to apply for...",
				Options:     options,
			},
		},
	}
}

//reloadButtonRow builds the reload control. While the cooldown has time
//remaining the button is disabled and labelled with the minutes left.
func reloadButtonRow(remaining time.Duration) discordgo.MessageComponent {
	label := "Reload Panel"
	disabled := false
	if remaining > 0 {
		label = fmt.Sprintf("Reload (%dm)", cooldownMinutes(remaining))
		disabled = true
	}
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    label,
				Style:    discordgo.SecondaryButton,
				CustomID: idReloadPanel,
				Disabled: disabled,
				Emoji:    &discordgo.ComponentEmoji{Name: "🔄"},
			},
		},
	}
}

func textInputRow(customID, label string, style discordgo.TextInputStyle, required bool, placeholder, value string, maxLength int) discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    customID,
				Label:       label,
				Style:       style,
				Placeholder: placeholder,
				Value:       value,
				Required:    required,
				MaxLength:   maxLength,
			},
		},
	}
}

//creationModal is the form an admin fills to define a new position. The
//reviewer roles, channels and resubmission policy follow in the guided flow
//since modals cap out at five inputs.
func creationModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: idCreateModal,
		Title:    "Create Staff Position",
		Components: []discordgo.MessageComponent{
			textInputRow(fieldPositionName, "Position name", discordgo.TextInputShort, true, "e.g. Moderator", "", 100),
			textInputRow(fieldDescription, "Description", discordgo.TextInputParagraph, false, "What does this role involve?", "", 1024),
			textInputRow(fieldOpenSlots, "Open slots", discordgo.TextInputShort, true, "e.g. 3", "", 4),
			textInputRow(fieldDurationDays, "Duration in days (0 = until filled)", discordgo.TextInputShort, true, "e.g. 14", "", 4),
			textInputRow(fieldGrantRole, "Role ID granted on acceptance", discordgo.TextInputShort, true, "Right-click the role to copy its ID", "", 32),
		},
	}
}

//prefilledUpdateModal is the creation form preloaded with an existing
//position's values, plus the resubmission toggle.
func prefilledUpdateModal(pos *appmodels.Position) *discordgo.InteractionResponseData {
	allowResubmit := "no"
	if pos.AllowResubmit {
		allowResubmit = "yes"
	}
	return &discordgo.InteractionResponseData{
		CustomID: prefixUpdate + pos.ID,
		Title:    "Update Staff Position",
		Components: []discordgo.MessageComponent{
			textInputRow(fieldPositionName, "Position name", discordgo.TextInputShort, true, "", pos.Name, 100),
			textInputRow(fieldDescription, "Description", discordgo.TextInputParagraph, false, "", pos.Description, 1024),
			textInputRow(fieldOpenSlots, "Open slots", discordgo.TextInputShort, true, "", strconv.Itoa(pos.OpenSlots), 4),
			textInputRow(fieldGrantRole, "Role ID granted on acceptance", discordgo.TextInputShort, true, "", pos.GrantRoleID, 32),
			textInputRow(fieldAllowResubmit, "Allow reapplying after rejection? (yes/no)", discordgo.TextInputShort, true, "", allowResubmit, 3),
		},
	}
}

//submissionModal is the application form shown to an applicant.
func submissionModal(pos *appmodels.Position) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: prefixSubmit + pos.ID,
		Title:    "Apply: " + truncate(pos.Name, 38),
		Components: []discordgo.MessageComponent{
			textInputRow(fieldExperience, "Relevant experience", discordgo.TextInputParagraph, true, "Tell us about your experience", "", 1024),
			textInputRow(fieldPreviousStaff, "Have you been staff before? Where?", discordgo.TextInputShort, true, "", "", 256),
			textInputRow(fieldMotivation, "Why do you want this position?", discordgo.TextInputParagraph, true, "", "", 1024),
			textInputRow(fieldAdditionalInfo, "Anything else we should know?", discordgo.TextInputParagraph, false, "", "", 1024),
		},
	}
}

func rejectModal(submissionID string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: prefixReject + submissionID,
		Title:    "Reject Application",
		Components: []discordgo.MessageComponent{
			textInputRow(fieldRejectReason, "Reason for rejection", discordgo.TextInputParagraph, true, "Shared with the applicant", "", 1024),
		},
	}
}

func confirmDeleteModal(positionID string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: prefixConfirmDelete + positionID,
		Title:    "Delete Position",
		Components: []discordgo.MessageComponent{
			textInputRow(fieldConfirm, "Type `confirm` to delete this position", discordgo.TextInputShort, true, "confirm", "", 16),
		},
	}
}

//statusEmbed renders one submission's state for the !status command.
func statusEmbed(sub *appmodels.Submission, positionName string) *discordgo.MessageEmbed {
	var colour int
	var label string
	switch sub.Status {
	case appmodels.StatusAccepted:
		colour, label = colourSuccess, "✅ Accepted"
	case appmodels.StatusRejected:
		colour, label = colourError, "❌ Rejected"
	default:
		colour, label = colourPending, "⏳ Pending review"
	}
	embed := &discordgo.MessageEmbed{
		Title: positionEmoji(positionName) + " " + positionName,
		Color: colour,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Status", Value: label, Inline: true},
			{Name: "Submitted", Value: sub.SubmittedAt.Format("2006-01-02 15:04 MST"), Inline: true},
		},
		Footer: embedFooter(),
	}
	if sub.Status == appmodels.StatusRejected && sub.ReviewNotes != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Reason", Value: sub.ReviewNotes,
		})
	}
	return embed
}

//resubmitDecisionMessage builds the final wizard step asking whether
//rejected applicants may reapply.
func resubmitDecisionMessage(sessionKey string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "📝 Resubmission Policy",
			Description: "Should applicants who were rejected be allowed to apply again for this position?",
			Color:       colourDecision,
			Footer:      embedFooter(),
		}},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Yes, allow reapplying",
						Style:    discordgo.SuccessButton,
						CustomID: prefixResubmitYes + sessionKey,
					},
					discordgo.Button{
						Label:    "No, one attempt only",
						Style:    discordgo.DangerButton,
						CustomID: prefixResubmitNo + sessionKey,
					},
				},
			},
		},
	}
}

//modalValues flattens a modal submission into a field-ID to value map.
func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok || len(actionsRow.Components) == 0 {
			continue
		}
		input, ok := actionsRow.Components[0].(*discordgo.TextInput)
		if !ok {
			continue
		}
		values[input.CustomID] = strings.TrimSpace(input.Value)
	}
	return values
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

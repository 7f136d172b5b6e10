package bot

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const commandPrefix = "!"
const listingLifetime = 120 * time.Second
const maxStatusEmbeds = 10

//HandleMessage routes channel messages: wizard replies first, then prefixed
//commands.
func (b *StaffBot) HandleMessage(m *discordgo.MessageCreate) {
	if b.gw == nil || b.panels == nil {
		return
	}
	if m.Author == nil || m.Author.Bot {
		return
	}
	//A registered collector gets first claim on the message.
	if b.waiters.deliver(m) {
		return
	}
	if !strings.HasPrefix(m.Content, commandPrefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, commandPrefix))
	if len(fields) == 0 {
		return
	}
	command, args := strings.ToLower(fields[0]), fields[1:]

	var err error
	switch command {
	case "sa":
		err = b.handleSetupCommand(m)
	case "sap":
		err = b.handlePanelCommand(m, args)
	case "vap":
		err = b.handleListCommand(m)
	case "toggle":
		err = b.handleToggleCommand(m, args)
	case "status":
		err = b.handleStatusCommand(m)
	case "sau":
		err = b.handleManageCommand(m)
	default:
		return
	}
	if err != nil {
		logrus.Errorf("Command `%v%v` failed: %v", commandPrefix, command, err)
		b.replyTo(m, genericFailureNotice)
	}
}

//replyTo sends a message referencing the triggering one.
func (b *StaffBot) replyTo(m *discordgo.MessageCreate, content string) {
	_, err := b.gw.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Content:   content,
		Reference: m.Reference(),
	})
	if err != nil {
		logrus.Warnf("Failed to reply in channel %v: %v", m.ChannelID, err)
	}
}

func (b *StaffBot) replyEmbeds(m *discordgo.MessageCreate, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) (*discordgo.Message, error) {
	return b.gw.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:     embeds,
		Components: components,
		Reference:  m.Reference(),
	})
}

//handleSetupCommand (!sa) posts the setup entry point with its two paths.
func (b *StaffBot) handleSetupCommand(m *discordgo.MessageCreate) error {
	if !b.isAdminMember(m.GuildID, m.Author, m.Member) {
		b.replyTo(m, "❌ You need administrator permissions to use this command.")
		return nil
	}
	embed := summaryEmbed("Staff Position Setup",
		"Create a new staff position, or reuse the configuration from the most recent one.")
	_, err := b.replyEmbeds(m, []*discordgo.MessageEmbed{embed}, []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Set up a position", Style: discordgo.PrimaryButton, CustomID: idSetupPosition, Emoji: &discordgo.ComponentEmoji{Name: "📝"}},
				discordgo.Button{Label: "Use previous config", Style: discordgo.SecondaryButton, CustomID: idUsePrevious, Emoji: &discordgo.ComponentEmoji{Name: "♻️"}},
			},
		},
	})
	return err
}

//handlePanelCommand (!sap #channel) posts the application panel into the
//given channel.
func (b *StaffBot) handlePanelCommand(m *discordgo.MessageCreate, args []string) error {
	if !b.isAdminMember(m.GuildID, m.Author, m.Member) {
		b.replyTo(m, "❌ You need administrator permissions to use this command.")
		return nil
	}
	if len(args) == 0 {
		b.replyTo(m, "❌ Please mention the channel to post the panel in, e.g. `!sap #applications`.")
		return nil
	}
	channelID := args[0]
	if match := channelMentionRegex.FindStringSubmatch(channelID); match != nil {
		channelID = match[1]
	}
	if !b.channelExists(m.GuildID, channelID) {
		b.replyTo(m, "❌ That channel doesn't exist in this server.")
		return nil
	}
	if err := b.panels.PostTo(m.GuildID, channelID); err != nil {
		return err
	}
	b.replyTo(m, fmt.Sprintf("✅ Application panel has been sent to <#%v>!", channelID))
	return nil
}

//handleListCommand (!vap) lists every position with its state.
func (b *StaffBot) handleListCommand(m *discordgo.MessageCreate) error {
	if !b.isAdminMember(m.GuildID, m.Author, m.Member) {
		b.replyTo(m, "❌ You need administrator permissions to use this command.")
		return nil
	}
	positions, err := b.store.ListPositions(m.GuildID)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		b.replyTo(m, "📭 No positions have been created yet. Use `!sa` to create one.")
		return nil
	}

	now := time.Now()
	fields := make([]*discordgo.MessageEmbedField, 0, len(positions))
	for i := range positions {
		pos := &positions[i]
		state := "🔴 Inactive"
		if pos.IsOpen(now) {
			state = "🟢 Open"
		} else if pos.Active {
			state = "🟡 Active (window elapsed)"
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s %s", positionEmoji(pos.Name), pos.Name),
			Value: fmt.Sprintf("%s\n**Slots:** %d | **Duration:** %s | **Reapply:** %v",
				state, pos.OpenSlots, pos.Duration.Describe(), pos.AllowResubmit),
		})
	}
	embed := &discordgo.MessageEmbed{
		Title:  "📋 All Positions",
		Color:  colourBrand,
		Fields: fields,
		Footer: embedFooter(),
	}
	_, err = b.replyEmbeds(m, []*discordgo.MessageEmbed{embed}, nil)
	return err
}

//handleToggleCommand (!toggle <name>) flips a position's active flag.
func (b *StaffBot) handleToggleCommand(m *discordgo.MessageCreate, args []string) error {
	if !b.isAdminMember(m.GuildID, m.Author, m.Member) {
		b.replyTo(m, "❌ You need administrator permissions to use this command.")
		return nil
	}
	if len(args) == 0 {
		b.replyTo(m, "❌ Please name the position to toggle, e.g. `!toggle Moderator`.")
		return nil
	}
	name := strings.Join(args, " ")

	positions, err := b.store.ListPositions(m.GuildID)
	if err != nil {
		return err
	}
	var target *appmodels.Position
	for i := range positions {
		if strings.EqualFold(positions[i].Name, name) {
			target = &positions[i]
			break
		}
	}
	if target == nil {
		b.replyTo(m, fmt.Sprintf("❌ No position named **%v** found.", name))
		return nil
	}

	target.Active = !target.Active
	if err := b.store.UpdatePosition(target); err != nil {
		return err
	}
	state := "deactivated"
	if target.Active {
		state = "activated"
	}
	b.replyTo(m, fmt.Sprintf("✅ Position **%v** has been %v.", target.Name, state))
	return b.panels.SyncAll(m.GuildID)
}

//handleStatusCommand (!status [@user]) shows submission states. Querying
//another user's status needs admin.
func (b *StaffBot) handleStatusCommand(m *discordgo.MessageCreate) error {
	targetID := m.Author.ID
	if len(m.Mentions) > 0 {
		if !b.isAdminMember(m.GuildID, m.Author, m.Member) {
			b.replyTo(m, "❌ Only administrators can view another member's application status.")
			return nil
		}
		targetID = m.Mentions[0].ID
	}

	subs, err := b.store.SubmissionsForUser(m.GuildID, targetID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		b.replyTo(m, "📭 No applications found.")
		return nil
	}

	embeds := make([]*discordgo.MessageEmbed, 0, maxStatusEmbeds)
	for i := range subs {
		if len(embeds) == maxStatusEmbeds {
			break
		}
		positionName := "Deleted position"
		if pos, err := b.store.GetPosition(subs[i].PositionID); err == nil && pos != nil {
			positionName = pos.Name
		}
		embeds = append(embeds, statusEmbed(&subs[i], positionName))
	}
	_, err = b.replyEmbeds(m, embeds, nil)
	return err
}

//handleManageCommand (!sau) posts per-position management listings with
//update and delete controls. Listings self-delete after two minutes.
func (b *StaffBot) handleManageCommand(m *discordgo.MessageCreate) error {
	if !b.isAdminMember(m.GuildID, m.Author, m.Member) {
		b.replyTo(m, "❌ You need administrator permissions to use this command.")
		return nil
	}
	positions, err := b.store.ListPositions(m.GuildID)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		b.replyTo(m, "📭 No positions have been created yet. Use `!sa` to create one.")
		return nil
	}

	for i := range positions {
		pos := &positions[i]
		embed := summaryEmbed(pos.Name, fmt.Sprintf("**Slots:** %d | **Duration:** %s | **Active:** %v",
			pos.OpenSlots, pos.Duration.Describe(), pos.Active))
		msg, err := b.gw.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{embed},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{Label: "Update", Style: discordgo.PrimaryButton, CustomID: prefixUpdate + pos.ID, Emoji: &discordgo.ComponentEmoji{Name: "✏️"}},
						discordgo.Button{Label: "Delete", Style: discordgo.DangerButton, CustomID: prefixDelete + pos.ID, Emoji: &discordgo.ComponentEmoji{Name: "🗑️"}},
					},
				},
			},
		})
		if err != nil {
			return err
		}
		b.listings.trackListing(b.gw, msg.ChannelID, msg.ID)
	}
	return nil
}

//listingCache tracks the ephemeral !sau management messages so they can be
//cleaned up, either by timer or immediately once an action lands.
type listingCache struct {
	mu   sync.Mutex
	msgs map[string]string //messageID -> channelID
}

func newListingCache() *listingCache {
	return &listingCache{msgs: make(map[string]string)}
}

func (c *listingCache) trackListing(gw Gateway, channelID, messageID string) {
	c.mu.Lock()
	c.msgs[messageID] = channelID
	c.mu.Unlock()
	time.AfterFunc(listingLifetime, func() {
		c.deleteListing(gw, messageID)
	})
}

func (c *listingCache) deleteListing(gw Gateway, messageID string) {
	c.mu.Lock()
	channelID, ok := c.msgs[messageID]
	if ok {
		delete(c.msgs, messageID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	if err := gw.ChannelMessageDelete(channelID, messageID); err != nil {
		logrus.Debugf("Failed to delete expired listing %v: %v", messageID, err)
	}
}

//clearListings deletes every outstanding listing immediately.
func (c *listingCache) clearListings(gw Gateway) {
	c.mu.Lock()
	pending := make(map[string]string, len(c.msgs))
	for messageID, channelID := range c.msgs {
		pending[messageID] = channelID
	}
	c.msgs = make(map[string]string)
	c.mu.Unlock()
	for messageID, channelID := range pending {
		if err := gw.ChannelMessageDelete(channelID, messageID); err != nil {
			logrus.Debugf("Failed to delete listing %v: %v", messageID, err)
		}
	}
}

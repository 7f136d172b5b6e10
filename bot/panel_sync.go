package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const reloadCooldown = 5 * time.Minute

//PanelSyncer keeps each guild's application panel message in step with the
//database. Reconciliation is idempotent: re-running a sync edits the
//existing panel message in place, recreating it only when the tracked
//message has gone missing.
type PanelSyncer struct {
	store Store
	gw    Gateway

	mu        sync.Mutex
	cooldowns map[string]time.Time
	locks     map[string]*sync.Mutex
}

func NewPanelSyncer(store Store, gw Gateway) *PanelSyncer {
	return &PanelSyncer{
		store:     store,
		gw:        gw,
		cooldowns: make(map[string]time.Time),
		locks:     make(map[string]*sync.Mutex),
	}
}

//channelLock returns the per-channel mutex serializing reconciliation, so
//concurrent syncs can't race a send against an edit.
func (p *PanelSyncer) channelLock(channelID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[channelID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[channelID] = lock
	}
	return lock
}

//reloadRemaining reports how much of the reload cooldown is left for a channel.
func (p *PanelSyncer) reloadRemaining(channelID string, now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.cooldowns[channelID]
	if !ok {
		return 0
	}
	remaining := reloadCooldown - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

//tryReload atomically checks the reload cooldown and, if it has elapsed,
//records a fresh reload. When the cooldown is still running it returns the
//remaining wait and false.
func (p *PanelSyncer) tryReload(channelID string, now time.Time) (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.cooldowns[channelID]; ok {
		remaining := reloadCooldown - now.Sub(last)
		if remaining > 0 {
			return remaining, false
		}
	}
	p.cooldowns[channelID] = now
	return 0, true
}

//cooldownMinutes rounds a remaining cooldown up to whole minutes for display.
func cooldownMinutes(d time.Duration) int {
	minutes := int(d / time.Minute)
	if d%time.Minute > 0 {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

//SyncAll recomputes the panel for a guild from its active positions and
//reconciles the panel message. When no positions remain active the existing
//panel (if any) is rewritten to the empty state rather than deleted.
func (p *PanelSyncer) SyncAll(guildID string) error {
	positions, err := p.store.ActivePositions(guildID)
	if err != nil {
		return fmt.Errorf("failed to load active positions for guild %v: %v", guildID, err)
	}

	now := time.Now()
	open := positions[:0]
	for i := range positions {
		if positions[i].IsOpen(now) {
			open = append(open, positions[i])
		}
	}

	var channelID, positionID string
	if len(open) > 0 {
		channelID = open[0].Channels.Panel
		positionID = open[0].ID
	} else {
		panel, err := p.store.AnyPanel(guildID)
		if err != nil {
			return err
		}
		if panel == nil {
			//Nothing active and no panel was ever rendered.
			return nil
		}
		channelID = panel.ChannelID
		positionID = panel.PositionID
	}

	embed, _ := consolidatedPanel(open)
	components := []discordgo.MessageComponent{}
	if len(open) > 0 {
		components = append(components, applySelectRow(open))
	}
	components = append(components, reloadButtonRow(p.reloadRemaining(channelID, now)))

	return p.reconcile(guildID, channelID, positionID, embed, components)
}

//PostTo renders the guild's panel into a specific channel, adopting that
//channel as the panel location from now on.
func (p *PanelSyncer) PostTo(guildID, channelID string) error {
	positions, err := p.store.ActivePositions(guildID)
	if err != nil {
		return fmt.Errorf("failed to load active positions for guild %v: %v", guildID, err)
	}
	now := time.Now()
	open := positions[:0]
	for i := range positions {
		if positions[i].IsOpen(now) {
			open = append(open, positions[i])
		}
	}
	embed, _ := consolidatedPanel(open)
	components := []discordgo.MessageComponent{}
	var positionID string
	if len(open) > 0 {
		positionID = open[0].ID
		components = append(components, applySelectRow(open))
	}
	components = append(components, reloadButtonRow(p.reloadRemaining(channelID, now)))
	return p.reconcile(guildID, channelID, positionID, embed, components)
}

//reconcile edits the tracked panel message, healing a stale record by
//sending a fresh message when the edit fails (message deleted, channel
//recreated) and updating the tracking record either way.
func (p *PanelSyncer) reconcile(guildID, channelID, positionID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	lock := p.channelLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	panel, err := p.store.PanelForChannel(channelID)
	if err != nil {
		return err
	}

	embeds := []*discordgo.MessageEmbed{embed}
	if panel != nil && panel.MessageID != "" {
		_, err = p.gw.ChannelMessageEditComplex(&discordgo.MessageEdit{
			Channel:    channelID,
			ID:         panel.MessageID,
			Embeds:     &embeds,
			Components: &components,
		})
		if err == nil {
			return p.store.UpsertPanel(appmodels.Panel{
				ChannelID:  channelID,
				MessageID:  panel.MessageID,
				GuildID:    guildID,
				PositionID: positionID,
			})
		}
		logrus.Warnf("Failed to edit panel message %v in channel %v, recreating: %v", panel.MessageID, channelID, err)
	}

	msg, err := p.gw.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     embeds,
		Components: components,
	})
	if err != nil {
		return fmt.Errorf("failed to send panel message to channel %v: %v", channelID, err)
	}
	return p.store.UpsertPanel(appmodels.Panel{
		ChannelID:  channelID,
		MessageID:  msg.ID,
		GuildID:    guildID,
		PositionID: positionID,
	})
}

//handleReloadButton services the panel's reload control, enforcing the
//per-channel cooldown.
func (b *StaffBot) handleReloadButton(r *responder, ic *discordgo.InteractionCreate, _ string) error {
	remaining, ok := b.panels.tryReload(ic.ChannelID, time.Now())
	if !ok {
		return r.ephemeral(fmt.Sprintf("⏳ Please wait %d minute(s) before reloading again.", cooldownMinutes(remaining)))
	}
	if err := b.panels.SyncAll(ic.GuildID); err != nil {
		return err
	}
	return r.ephemeral("✅ Panel has been reloaded!")
}

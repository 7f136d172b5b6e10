package bot

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bwmarrin/discordgo"
)

//Outcomes of a guided-collection step.
var (
	ErrCancelled  = errors.New("collection cancelled by user")
	ErrNoResponse = errors.New("no response received before timeout")
)

const collectTimeout = 120 * time.Second

const (
	tokenCancel  = "cancel"
	tokenDefault = "default"
)

var roleMentionRegex = regexp.MustCompile(`<@&(\d+)>`)
var channelMentionRegex = regexp.MustCompile(`<#(\d+)>`)

type waiterKey struct {
	channelID string
	userID    string
}

//responseWaiters registers pending prompts so that plain channel messages
//from the prompted user can be routed back to the waiting wizard goroutine
//instead of the command handlers.
type responseWaiters struct {
	mu      sync.Mutex
	waiting map[waiterKey]chan *discordgo.MessageCreate
}

func newResponseWaiters() *responseWaiters {
	return &responseWaiters{waiting: make(map[waiterKey]chan *discordgo.MessageCreate)}
}

//deliver hands a message to a waiting collector if one is registered for its
//channel and author. Returns true when the message was consumed.
func (w *responseWaiters) deliver(m *discordgo.MessageCreate) bool {
	if m.Author == nil {
		return false
	}
	key := waiterKey{channelID: m.ChannelID, userID: m.Author.ID}
	w.mu.Lock()
	ch, ok := w.waiting[key]
	if ok {
		delete(w.waiting, key)
	}
	w.mu.Unlock()
	if !ok {
		return false
	}
	ch <- m
	return true
}

//await blocks until the user posts a message in the channel or the timeout
//elapses. Only one waiter per channel/user pair may be active; a new one
//displaces the old.
func (w *responseWaiters) await(channelID, userID string, timeout time.Duration) (*discordgo.MessageCreate, error) {
	key := waiterKey{channelID: channelID, userID: userID}
	ch := make(chan *discordgo.MessageCreate, 1)
	w.mu.Lock()
	w.waiting[key] = ch
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case m := <-ch:
		return m, nil
	case <-timer.C:
		w.mu.Lock()
		if cur, ok := w.waiting[key]; ok && cur == ch {
			delete(w.waiting, key)
		}
		w.mu.Unlock()
		//The waiter may have been satisfied between the timeout firing and
		//the deregistration above.
		select {
		case m := <-ch:
			return m, nil
		default:
			return nil, ErrNoResponse
		}
	}
}

//promptAndCollect sends a prompt embed and loops awaiting a reply until the
//validator accepts it, the user cancels, the user asks for the default, or
//the timeout fires. Invalid replies re-prompt with the validator's message.
//The bool result reports whether the default was requested.
func (b *StaffBot) promptAndCollect(channelID, userID string, prompt *discordgo.MessageEmbed, parse func(content string) (string, bool)) (string, bool, error) {
	_, err := b.gw.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: "<@" + userID + ">",
		Embeds:  []*discordgo.MessageEmbed{prompt},
	})
	if err != nil {
		return "", false, err
	}

	for {
		msg, err := b.waiters.await(channelID, userID, collectTimeout)
		if err != nil {
			return "", false, err
		}
		content := strings.TrimSpace(msg.Content)
		switch strings.ToLower(content) {
		case tokenCancel:
			return "", false, ErrCancelled
		case tokenDefault:
			return "", true, nil
		}
		if reason, ok := parse(content); !ok {
			_, err = b.gw.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
				Content: "<@" + userID + "> " + reason,
			})
			if err != nil {
				return "", false, err
			}
			continue
		}
		return content, false, nil
	}
}

//collectReviewerRoles runs the reviewer-role prompt. valid reports whether a
//role ID exists in the guild. The bool result reports a default request.
func (b *StaffBot) collectReviewerRoles(channelID, userID string, valid func(roleID string) bool) ([]string, bool, error) {
	prompt := summaryEmbed("Reviewer Roles",
		"Please mention the roles (or paste role IDs, space separated) that should be able to review applications.\n\n"+
			"Type `default` to reuse the roles from your most recent position, or `cancel` to abort.")

	content, useDefault, err := b.promptAndCollect(channelID, userID, prompt, func(content string) (string, bool) {
		roles := parseRoleList(content)
		if len(roles) == 0 {
			return "I couldn't find any roles in that message. Please mention roles or paste role IDs.", false
		}
		for _, id := range roles {
			if !valid(id) {
				return "Role `" + id + "` doesn't exist in this server. Please try again.", false
			}
		}
		return "", true
	})
	if err != nil || useDefault {
		return nil, useDefault, err
	}
	return parseRoleList(content), false, nil
}

//collectChannelSet runs the channel-wiring prompt, expecting exactly three
//channels: panel, notifications, history.
func (b *StaffBot) collectChannelSet(channelID, userID string, valid func(channelID string) bool) (appmodels.Channels, bool, error) {
	prompt := summaryEmbed("Channels",
		"Please provide three channels (mentions or IDs, space separated) in this order:\n"+
			"1. Panel channel (where the application panel is posted)\n"+
			"2. Notifications channel (where new submissions are announced)\n"+
			"3. History channel (where review decisions are logged)\n\n"+
			"Type `default` to reuse the channels from your most recent position, or `cancel` to abort.")

	content, useDefault, err := b.promptAndCollect(channelID, userID, prompt, func(content string) (string, bool) {
		ids := parseChannelList(content)
		if len(ids) != 3 {
			return "I need exactly three channels: panel, notifications and history. Please try again.", false
		}
		for _, id := range ids {
			if !valid(id) {
				return "Channel `" + id + "` doesn't exist in this server. Please try again.", false
			}
		}
		return "", true
	})
	if err != nil || useDefault {
		return appmodels.Channels{}, useDefault, err
	}
	ids := parseChannelList(content)
	return appmodels.Channels{Panel: ids[0], Notifications: ids[1], History: ids[2]}, false, nil
}

//parseRoleList extracts role IDs from a message, preferring mentions and
//falling back to treating each whitespace-separated token as a raw ID.
func parseRoleList(content string) []string {
	if matches := roleMentionRegex.FindAllStringSubmatch(content, -1); len(matches) > 0 {
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m[1])
		}
		return ids
	}
	return parseIDList(content)
}

func parseChannelList(content string) []string {
	if matches := channelMentionRegex.FindAllStringSubmatch(content, -1); len(matches) > 0 {
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m[1])
		}
		return ids
	}
	return parseIDList(content)
}

func parseIDList(content string) []string {
	var ids []string
	for _, tok := range strings.Fields(content) {
		if isSnowflake(tok) {
			ids = append(ids, tok)
		}
	}
	return ids
}

func isSnowflake(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

package bot

import (
	"os"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const devUIDEnvVar = "SAPP_DISCORD_DEV_UID"

func isDev(userID string) bool {
	devUID, exists := os.LookupEnv(devUIDEnvVar)
	return exists && devUID == userID
}

//interactionUser returns the user behind an interaction regardless of
//whether it arrived from a guild or a DM.
func interactionUser(ic *discordgo.InteractionCreate) *discordgo.User {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User
	}
	return ic.User
}

//canReview reports whether the interacting member may review submissions for
//the position: the dev override, guild administrators, or holders of one of
//the position's reviewer roles.
func (b *StaffBot) canReview(ic *discordgo.InteractionCreate, pos *appmodels.Position) bool {
	user := interactionUser(ic)
	if user == nil {
		return false
	}
	if isDev(user.ID) {
		return true
	}
	if ic.Member == nil {
		return false
	}
	if ic.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, held := range ic.Member.Roles {
		for _, reviewer := range pos.ReviewerRoles {
			if held == reviewer {
				return true
			}
		}
	}
	return false
}

//isAdminInteraction reports whether the interacting member may perform admin
//actions. Interactions carry resolved permissions, so the cheap check comes
//first and the guild lookup is only a fallback.
func (b *StaffBot) isAdminInteraction(ic *discordgo.InteractionCreate) bool {
	user := interactionUser(ic)
	if user == nil {
		return false
	}
	if isDev(user.ID) {
		return true
	}
	if ic.Member != nil && ic.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return b.isAdminMember(ic.GuildID, user, ic.Member)
}

//isAdminMember reports whether a message author may run admin commands: the
//dev override, the guild owner, or a member holding a role with the
//administrator permission. Message events don't carry resolved permissions
//the way interactions do, so the role list is checked against the guild.
func (b *StaffBot) isAdminMember(guildID string, user *discordgo.User, member *discordgo.Member) bool {
	if user == nil {
		return false
	}
	if isDev(user.ID) {
		return true
	}
	guild, err := b.gw.Guild(guildID)
	if err != nil {
		logrus.Warnf("Failed to look up guild %v while checking permissions: %v", guildID, err)
		return false
	}
	if guild.OwnerID == user.ID {
		return true
	}
	if member == nil {
		return false
	}
	roles, err := b.gw.GuildRoles(guildID)
	if err != nil {
		logrus.Warnf("Failed to look up roles for guild %v while checking permissions: %v", guildID, err)
		return false
	}
	adminRoles := make(map[string]bool, len(roles))
	for _, role := range roles {
		if role.Permissions&discordgo.PermissionAdministrator != 0 {
			adminRoles[role.ID] = true
		}
	}
	for _, held := range member.Roles {
		if adminRoles[held] {
			return true
		}
	}
	return false
}

//roleExists checks that a role ID belongs to the guild.
func (b *StaffBot) roleExists(guildID, roleID string) bool {
	roles, err := b.gw.GuildRoles(guildID)
	if err != nil {
		logrus.Warnf("Failed to look up roles for guild %v: %v", guildID, err)
		return false
	}
	for _, role := range roles {
		if role.ID == roleID {
			return true
		}
	}
	return false
}

//channelExists checks that a channel ID belongs to the guild.
func (b *StaffBot) channelExists(guildID, channelID string) bool {
	channel, err := b.gw.Channel(channelID)
	if err != nil {
		return false
	}
	return channel.GuildID == guildID
}

package bot

import (
	"net/url"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bitcraft-network/staffapps/db"
	"github.com/bitcraft-network/staffapps/discord"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/common/log"
	"github.com/sirupsen/logrus"
)

//Store is the repository surface the bot needs over the three persisted
//collections. *db.Connection is the production implementation.
type Store interface {
	CreatePosition(pos appmodels.Position) (*appmodels.Position, error)
	GetPosition(id string) (*appmodels.Position, error)
	ActivePositions(guildID string) ([]appmodels.Position, error)
	ListPositions(guildID string) ([]appmodels.Position, error)
	LatestPosition(guildID string) (*appmodels.Position, error)
	UpdatePosition(pos *appmodels.Position) error
	DeletePosition(id string) error

	CreateSubmission(sub appmodels.Submission) (*appmodels.Submission, error)
	GetSubmission(id string) (*appmodels.Submission, error)
	FindSubmission(positionID string, applicantID string) (*appmodels.Submission, error)
	SubmissionsForUser(guildID string, userID string) ([]appmodels.Submission, error)
	UpdateSubmission(sub *appmodels.Submission) error
	DeleteSubmission(id string) error
	DeleteSubmissionsForPosition(positionID string) (int, error)

	PanelForChannel(channelID string) (*appmodels.Panel, error)
	AnyPanel(guildID string) (*appmodels.Panel, error)
	UpsertPanel(panel appmodels.Panel) error
}

//Gateway is the slice of the discordgo session the bot's handlers use.
//*discordgo.Session satisfies it.
type Gateway interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

//StaffBot represents an instance of the staff applications bot, containing handles to the various external connections.
type StaffBot struct {
	DiscordConnection *discord.EventSource
	DBConnection      *db.Connection

	store    Store
	gw       Gateway
	sessions *SetupCache
	waiters  *responseWaiters
	panels   *PanelSyncer
	listings *listingCache
}

//Init creates a new StaffBot instance
func Init() (*StaffBot, error) {
	var res StaffBot
	//Start database connection
	db, err := db.Init()
	if err != nil {
		logrus.Errorf("Cannot start bot due to error initializing database connection: %v", err)
		return nil, err
	}
	res.DBConnection = db
	res.store = db
	res.sessions = NewSetupCache(setupSessionTTL)
	res.waiters = newResponseWaiters()
	res.listings = newListingCache()

	//Start discord connection
	disc, err := discord.StartDiscordListener(&res)
	if err != nil {
		logrus.Errorf("Cannot start bot due to error initializing discord connection: %v", err)
		return nil, err
	}

	res.DiscordConnection = disc
	res.gw = disc.Session()
	res.panels = NewPanelSyncer(res.store, res.gw)

	return &res, nil
}

//BotAddURL generates a URL that can be used to add the bot to a server
func (b *StaffBot) BotAddURL() (*url.URL, error) {
	return b.DiscordConnection.BotAddURL()
}

//DiscordSession returns a handle to the underlying discord session
func (b *StaffBot) DiscordSession() *discordgo.Session {
	return b.DiscordConnection.Session()
}

//Close cleanly terminates the bot instance
func (b *StaffBot) Close() {
	log.Info("Terminating bot...")
	b.sessions.Stop()
	b.DiscordConnection.Close()
	b.DBConnection.Close()
}

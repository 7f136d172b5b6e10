package bot

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bwmarrin/discordgo"
)

//fakeStore is an in-memory Store for tests.
type fakeStore struct {
	mu          sync.Mutex
	positions   map[string]appmodels.Position
	submissions map[string]appmodels.Submission
	panels      map[string]appmodels.Panel
	nextID      int
	clock       time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		positions:   make(map[string]appmodels.Position),
		submissions: make(map[string]appmodels.Submission),
		panels:      make(map[string]appmodels.Panel),
		clock:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) mintID(kind string) string {
	f.nextID++
	return fmt.Sprintf("%v-%d", kind, f.nextID)
}

func (f *fakeStore) CreatePosition(pos appmodels.Position) (*appmodels.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pos.ID == "" {
		pos.ID = f.mintID("pos")
	}
	pos.CreatedAt = f.tick()
	pos.LastUpdated = pos.CreatedAt
	f.positions[pos.ID] = pos
	return &pos, nil
}

func (f *fakeStore) GetPosition(id string) (*appmodels.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.positions[id]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

func (f *fakeStore) ActivePositions(guildID string) ([]appmodels.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []appmodels.Position
	for _, pos := range f.positions {
		if pos.Active && (guildID == "" || pos.GuildID == guildID) {
			res = append(res, pos)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (f *fakeStore) ListPositions(guildID string) ([]appmodels.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []appmodels.Position
	for _, pos := range f.positions {
		if guildID == "" || pos.GuildID == guildID {
			res = append(res, pos)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (f *fakeStore) LatestPosition(guildID string) (*appmodels.Position, error) {
	positions, _ := f.ListPositions(guildID)
	if len(positions) == 0 {
		return nil, nil
	}
	latest := positions[len(positions)-1]
	return &latest, nil
}

func (f *fakeStore) UpdatePosition(pos *appmodels.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.positions[pos.ID]; !ok {
		return errors.New("no such position")
	}
	pos.LastUpdated = f.tick()
	f.positions[pos.ID] = *pos
	return nil
}

func (f *fakeStore) DeletePosition(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.positions, id)
	return nil
}

func (f *fakeStore) CreateSubmission(sub appmodels.Submission) (*appmodels.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub.ID == "" {
		sub.ID = f.mintID("sub")
	}
	sub.SubmittedAt = f.tick()
	f.submissions[sub.ID] = sub
	return &sub, nil
}

func (f *fakeStore) GetSubmission(id string) (*appmodels.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.submissions[id]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (f *fakeStore) FindSubmission(positionID, applicantID string) (*appmodels.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.submissions {
		if sub.PositionID == positionID && sub.ApplicantID == applicantID {
			res := sub
			return &res, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SubmissionsForUser(guildID, userID string) ([]appmodels.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var res []appmodels.Submission
	for _, sub := range f.submissions {
		if sub.GuildID == guildID && sub.ApplicantID == userID {
			res = append(res, sub)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].SubmittedAt.Before(res[j].SubmittedAt) })
	return res, nil
}

func (f *fakeStore) UpdateSubmission(sub *appmodels.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.submissions[sub.ID]; !ok {
		return errors.New("no such submission")
	}
	f.submissions[sub.ID] = *sub
	return nil
}

func (f *fakeStore) DeleteSubmission(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.submissions, id)
	return nil
}

func (f *fakeStore) DeleteSubmissionsForPosition(positionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int
	for id, sub := range f.submissions {
		if sub.PositionID == positionID {
			delete(f.submissions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeStore) PanelForChannel(channelID string) (*appmodels.Panel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	panel, ok := f.panels[channelID]
	if !ok {
		return nil, nil
	}
	return &panel, nil
}

func (f *fakeStore) AnyPanel(guildID string) (*appmodels.Panel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, panel := range f.panels {
		if guildID == "" || panel.GuildID == guildID {
			res := panel
			return &res, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpsertPanel(panel appmodels.Panel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	panel.LastUpdated = f.tick()
	f.panels[panel.ChannelID] = panel
	return nil
}

type sentMessage struct {
	channelID string
	data      *discordgo.MessageSend
}

//fakeGateway records everything sent through it and returns injectable errors.
type fakeGateway struct {
	mu        sync.Mutex
	nextMsgID int

	sent      []sentMessage
	edits     []*discordgo.MessageEdit
	deleted   []string
	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
	roleAdds  []string

	guild    *discordgo.Guild
	roles    []*discordgo.Role
	channels map[string]*discordgo.Channel

	sendErr    error
	editErr    error
	roleAddErr error
	dmErr      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		guild:    &discordgo.Guild{ID: "guild-1", OwnerID: "owner-1"},
		channels: make(map[string]*discordgo.Channel),
	}
}

func (g *fakeGateway) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return g.guild, nil
}

func (g *fakeGateway) GuildRoles(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return g.roles, nil
}

func (g *fakeGateway) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.roleAddErr != nil {
		return g.roleAddErr
	}
	g.roleAdds = append(g.roleAdds, userID+":"+roleID)
	return nil
}

func (g *fakeGateway) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ch, ok := g.channels[channelID]; ok {
		return ch, nil
	}
	return nil, errors.New("unknown channel")
}

func (g *fakeGateway) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.nextMsgID++
	g.sent = append(g.sent, sentMessage{channelID: channelID, data: data})
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", g.nextMsgID), ChannelID: channelID}, nil
}

func (g *fakeGateway) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.editErr != nil {
		return nil, g.editErr
	}
	g.edits = append(g.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (g *fakeGateway) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, channelID+"/"+messageID)
	return nil
}

func (g *fakeGateway) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if g.dmErr != nil {
		return nil, g.dmErr
	}
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (g *fakeGateway) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses = append(g.responses, resp)
	return nil
}

func (g *fakeGateway) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.followups = append(g.followups, data)
	return &discordgo.Message{ID: "followup"}, nil
}

//lastResponseContent returns the content of the most recent interaction response.
func (g *fakeGateway) lastResponseContent() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.responses) == 0 {
		return ""
	}
	data := g.responses[len(g.responses)-1].Data
	if data == nil {
		return ""
	}
	return data.Content
}

//sentTo returns the messages sent to a channel.
func (g *fakeGateway) sentTo(channelID string) []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var res []sentMessage
	for _, m := range g.sent {
		if m.channelID == channelID {
			res = append(res, m)
		}
	}
	return res
}

func newTestBot(store *fakeStore, gw *fakeGateway) *StaffBot {
	b := &StaffBot{
		store:    store,
		gw:       gw,
		sessions: NewSetupCache(setupSessionTTL),
		waiters:  newResponseWaiters(),
		listings: newListingCache(),
	}
	b.panels = NewPanelSyncer(store, gw)
	return b
}

//adminInteraction builds a component interaction from a guild administrator.
func adminInteraction(guildID, channelID, userID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction-1",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   guildID,
		ChannelID: channelID,
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: userID},
			Permissions: discordgo.PermissionAdministrator,
		},
	}}
}

//memberInteraction builds a component interaction from an ordinary member.
func memberInteraction(guildID, channelID, userID string, roles ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction-1",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   guildID,
		ChannelID: channelID,
		Member: &discordgo.Member{
			User:  &discordgo.User{ID: userID},
			Roles: roles,
		},
	}}
}

//modalInteraction wraps field values into a modal-submit interaction.
func modalInteraction(base *discordgo.InteractionCreate, customID string, values map[string]string) *discordgo.InteractionCreate {
	var rows []discordgo.MessageComponent
	for id, value := range values {
		rows = append(rows, &discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				&discordgo.TextInput{CustomID: id, Value: value},
			},
		})
	}
	ic := *base
	interaction := *base.Interaction
	interaction.Type = discordgo.InteractionModalSubmit
	interaction.Data = discordgo.ModalSubmitInteractionData{
		CustomID:   customID,
		Components: rows,
	}
	ic.Interaction = &interaction
	return &ic
}

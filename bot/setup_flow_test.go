package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/bitcraft-network/staffapps/appmodels"
	"github.com/bwmarrin/discordgo"
)

func wizardGateway() *fakeGateway {
	gw := newFakeGateway()
	gw.roles = []*discordgo.Role{
		{ID: "role-mod"},
		{ID: "role-reviewer"},
	}
	for _, id := range []string{"100", "200", "300"} {
		gw.channels[id] = &discordgo.Channel{ID: id, GuildID: "guild-1"}
	}
	return gw
}

func creationValues() map[string]string {
	return map[string]string{
		fieldPositionName: "Moderator",
		fieldDescription:  "Keep the peace",
		fieldOpenSlots:    "3",
		fieldDurationDays: "14",
		fieldGrantRole:    "role-mod",
	}
}

func TestCreateModalRejectsBadInput(t *testing.T) {
	cases := []struct {
		name       string
		mutate     func(map[string]string)
		wantNotice string
	}{
		{"zero slots", func(v map[string]string) { v[fieldOpenSlots] = "0" }, "at least 1"},
		{"non-numeric slots", func(v map[string]string) { v[fieldOpenSlots] = "lots" }, "at least 1"},
		{"negative duration", func(v map[string]string) { v[fieldDurationDays] = "-3" }, "whole number of days"},
		{"unknown role", func(v map[string]string) { v[fieldGrantRole] = "role-nope" }, "doesn't exist"},
		{"empty name", func(v map[string]string) { v[fieldPositionName] = "" }, "cannot be empty"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gw := wizardGateway()
			b := newTestBot(newFakeStore(), gw)
			t.Cleanup(b.sessions.Stop)

			values := creationValues()
			c.mutate(values)
			ic := modalInteraction(adminInteraction("guild-1", "chan-admin", "admin-1"), idCreateModal, values)
			if err := b.handleCreateModal(newResponder(gw, ic), ic, ""); err != nil {
				t.Fatal(err)
			}
			if got := gw.lastResponseContent(); !strings.Contains(got, c.wantNotice) {
				t.Fatalf("expected complaint containing %q, got %q", c.wantNotice, got)
			}
		})
	}
}

//awaitSentWithComponents polls for a message with components in a channel.
func awaitSentWithComponents(t *testing.T, gw *fakeGateway, channelID string) sentMessage {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		for _, m := range gw.sentTo(channelID) {
			if len(m.data.Components) > 0 {
				return m
			}
		}
		select {
		case <-deadline:
			t.Fatalf("no component message arrived in channel %v", channelID)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestWizardCreatesPositionEndToEnd(t *testing.T) {
	gw := wizardGateway()
	store := newFakeStore()
	b := newTestBot(store, gw)
	t.Cleanup(b.sessions.Stop)

	ic := modalInteraction(adminInteraction("guild-1", "chan-admin", "admin-1"), idCreateModal, creationValues())
	if err := b.handleCreateModal(newResponder(gw, ic), ic, ""); err != nil {
		t.Fatal(err)
	}

	feed(t, b.waiters, "chan-admin", "admin-1", []string{
		"<@&role-reviewer>",
		"<#100> <#200> <#300>",
	})

	//The wizard's final step posts the resubmission-policy buttons.
	decision := awaitSentWithComponents(t, gw, "chan-admin")
	row := decision.data.Components[0].(discordgo.ActionsRow)
	yes := row.Components[0].(discordgo.Button)
	if !strings.HasPrefix(yes.CustomID, prefixResubmitYes) {
		t.Fatalf("unexpected decision button %q", yes.CustomID)
	}
	sessionKey := strings.TrimPrefix(yes.CustomID, prefixResubmitYes)

	finish := memberInteraction("guild-1", "chan-admin", "admin-1")
	if err := b.handleResubmitYes(newResponder(gw, finish), finish, sessionKey); err != nil {
		t.Fatal(err)
	}

	positions, _ := store.ListPositions("guild-1")
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	pos := positions[0]
	if !pos.Active || !pos.AllowResubmit {
		t.Fatalf("expected active resubmittable position, got %+v", pos)
	}
	if pos.Name != "Moderator" || pos.OpenSlots != 3 {
		t.Fatalf("draft fields lost: %+v", pos)
	}
	if pos.Channels.Panel != "100" || pos.Channels.Notifications != "200" || pos.Channels.History != "300" {
		t.Fatalf("channels not wired: %+v", pos.Channels)
	}
	if len(pos.ReviewerRoles) != 1 || pos.ReviewerRoles[0] != "role-reviewer" {
		t.Fatalf("reviewer roles not wired: %v", pos.ReviewerRoles)
	}
	if pos.Duration.Kind != appmodels.DurationDays || pos.Duration.Days != 14 {
		t.Fatalf("duration not wired: %+v", pos.Duration)
	}
	//The session is gone once consumed.
	if b.sessions.Get(sessionKey) != nil {
		t.Fatal("session should be deleted after completion")
	}
	//The panel was rendered into the configured panel channel.
	if len(gw.sentTo("100")) == 0 {
		t.Fatal("expected a panel render in the panel channel")
	}
}

func TestWizardCancelAborts(t *testing.T) {
	gw := wizardGateway()
	b := newTestBot(newFakeStore(), gw)
	t.Cleanup(b.sessions.Stop)

	ic := modalInteraction(adminInteraction("guild-1", "chan-admin", "admin-1"), idCreateModal, creationValues())
	if err := b.handleCreateModal(newResponder(gw, ic), ic, ""); err != nil {
		t.Fatal(err)
	}
	feed(t, b.waiters, "chan-admin", "admin-1", []string{"cancel"})

	deadline := time.After(2 * time.Second)
	for {
		var cancelled bool
		for _, m := range gw.sentTo("chan-admin") {
			if strings.Contains(m.data.Content, "cancelled") {
				cancelled = true
			}
		}
		if cancelled {
			break
		}
		select {
		case <-deadline:
			t.Fatal("cancellation notice never arrived")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestFinishSetupExpiredSession(t *testing.T) {
	gw := wizardGateway()
	b := newTestBot(newFakeStore(), gw)
	t.Cleanup(b.sessions.Stop)

	ic := memberInteraction("guild-1", "chan-admin", "admin-1")
	if err := b.handleResubmitYes(newResponder(gw, ic), ic, "admin-1-123456"); err != nil {
		t.Fatal(err)
	}
	if got := gw.lastResponseContent(); !strings.Contains(got, "Session expired or invalid") {
		t.Fatalf("expected expiry notice, got %q", got)
	}
}

func TestFinishSetupRefusesOtherUsers(t *testing.T) {
	gw := wizardGateway()
	store := newFakeStore()
	b := newTestBot(store, gw)
	t.Cleanup(b.sessions.Stop)

	sess := &SetupSession{
		Key:       newSessionKey("admin-1"),
		GuildID:   "guild-1",
		ChannelID: "chan-admin",
		UserID:    "admin-1",
		Step:      StepResubmitPolicy,
		Draft:     appmodels.Position{GuildID: "guild-1", Name: "Helper", OpenSlots: 1},
	}
	b.sessions.Put(sess)

	ic := memberInteraction("guild-1", "chan-admin", "intruder-1")
	if err := b.handleResubmitNo(newResponder(gw, ic), ic, sess.Key); err != nil {
		t.Fatal(err)
	}
	if got := gw.lastResponseContent(); !strings.Contains(got, "Only the admin") {
		t.Fatalf("expected ownership refusal, got %q", got)
	}
	if positions, _ := store.ListPositions("guild-1"); len(positions) != 0 {
		t.Fatal("intruder must not be able to create the position")
	}
}

func TestConfirmPreviousClonesLatestPosition(t *testing.T) {
	gw := wizardGateway()
	store := newFakeStore()
	b := newTestBot(store, gw)
	t.Cleanup(b.sessions.Stop)

	seed := activePosition("guild-1", "chan-panel")
	seed.Active = false
	seed.AllowResubmit = true
	if _, err := store.CreatePosition(seed); err != nil {
		t.Fatal(err)
	}

	ic := adminInteraction("guild-1", "chan-admin", "admin-1")
	if err := b.handleConfirmPreviousButton(newResponder(gw, ic), ic, ""); err != nil {
		t.Fatal(err)
	}

	positions, _ := store.ListPositions("guild-1")
	if len(positions) != 2 {
		t.Fatalf("expected a clone, have %d positions", len(positions))
	}
	clone := positions[1]
	if clone.ID == positions[0].ID {
		t.Fatal("clone must get a fresh ID")
	}
	if !clone.Active || !clone.AllowResubmit || clone.Name != "Moderator" {
		t.Fatalf("clone lost configuration: %+v", clone)
	}
}

func TestConfirmDeleteCascadesSubmissions(t *testing.T) {
	gw := wizardGateway()
	store := newFakeStore()
	b := newTestBot(store, gw)
	t.Cleanup(b.sessions.Stop)

	pos, _ := store.CreatePosition(activePosition("guild-1", "chan-panel"))
	seedPendingSubmission(t, store, pos, "applicant-1")
	seedPendingSubmission(t, store, pos, "applicant-2")

	base := adminInteraction("guild-1", "chan-admin", "admin-1")
	ic := modalInteraction(base, prefixConfirmDelete+pos.ID, map[string]string{fieldConfirm: "confirm"})
	if err := b.handleConfirmDeleteModal(newResponder(gw, ic), ic, pos.ID); err != nil {
		t.Fatal(err)
	}

	if gone, _ := store.GetPosition(pos.ID); gone != nil {
		t.Fatal("position should be deleted")
	}
	if subs, _ := store.SubmissionsForUser("guild-1", "applicant-1"); len(subs) != 0 {
		t.Fatal("submissions should cascade-delete with the position")
	}
	if got := gw.lastResponseContent(); !strings.Contains(got, "2 submission(s)") {
		t.Fatalf("ack should count cascaded submissions, got %q", got)
	}
}

func TestConfirmDeleteWithoutConfirmationKeepsPosition(t *testing.T) {
	gw := wizardGateway()
	store := newFakeStore()
	b := newTestBot(store, gw)
	t.Cleanup(b.sessions.Stop)

	pos, _ := store.CreatePosition(activePosition("guild-1", "chan-panel"))
	base := adminInteraction("guild-1", "chan-admin", "admin-1")
	ic := modalInteraction(base, prefixConfirmDelete+pos.ID, map[string]string{fieldConfirm: "yes please"})
	if err := b.handleConfirmDeleteModal(newResponder(gw, ic), ic, pos.ID); err != nil {
		t.Fatal(err)
	}
	if kept, _ := store.GetPosition(pos.ID); kept == nil {
		t.Fatal("unconfirmed delete must keep the position")
	}
}

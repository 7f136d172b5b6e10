package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestResolveRoute(t *testing.T) {
	handler, arg, ok := resolveRoute(buttonRoutes, idReloadPanel)
	if !ok || handler == nil || arg != "" {
		t.Fatalf("exact match failed: ok=%v arg=%q", ok, arg)
	}

	handler, arg, ok = resolveRoute(buttonRoutes, prefixAccept+"sub-42")
	if !ok || handler == nil {
		t.Fatal("prefix match failed")
	}
	if arg != "sub-42" {
		t.Fatalf("expected arg sub-42, got %q", arg)
	}

	if _, _, ok := resolveRoute(buttonRoutes, "no_such_button"); ok {
		t.Fatal("unknown custom ID should not resolve")
	}
}

func TestResolveRouteExactWinsOverPrefix(t *testing.T) {
	routes := []route{
		{id: "thing:", prefix: true, fn: func(*StaffBot, *responder, *discordgo.InteractionCreate, string) error { return nil }},
		{id: "thing:special", fn: func(*StaffBot, *responder, *discordgo.InteractionCreate, string) error { return nil }},
	}
	_, arg, ok := resolveRoute(routes, "thing:special")
	if !ok {
		t.Fatal("expected a match")
	}
	if arg != "" {
		t.Fatalf("exact match should win over prefix, got arg %q", arg)
	}
}

func componentInteraction(customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction-1",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: "user-1"},
			Permissions: discordgo.PermissionAdministrator,
		},
		Data: discordgo.MessageComponentInteractionData{
			CustomID:      customID,
			ComponentType: discordgo.ButtonComponent,
		},
	}}
}

func TestUnknownCustomIDGetsSingleFailureNotice(t *testing.T) {
	gw := newFakeGateway()
	b := newTestBot(newFakeStore(), gw)
	t.Cleanup(b.sessions.Stop)

	b.HandleInteraction(componentInteraction("bogus_button"))

	if len(gw.responses) != 1 {
		t.Fatalf("expected exactly one response, got %d", len(gw.responses))
	}
	if got := gw.lastResponseContent(); got != genericFailureNotice {
		t.Fatalf("expected generic failure notice, got %q", got)
	}
	if len(gw.followups) != 0 {
		t.Fatalf("expected no followups, got %d", len(gw.followups))
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	gw := newFakeGateway()
	b := newTestBot(newFakeStore(), gw)
	t.Cleanup(b.sessions.Stop)

	original := buttonRoutes
	t.Cleanup(func() { buttonRoutes = original })
	buttonRoutes = append([]route{{
		id: "explode",
		fn: func(*StaffBot, *responder, *discordgo.InteractionCreate, string) error {
			panic("boom")
		},
	}}, original...)

	//Must not propagate the panic.
	b.HandleInteraction(componentInteraction("explode"))

	if got := gw.lastResponseContent(); got != genericFailureNotice {
		t.Fatalf("expected failure notice after panic, got %q", got)
	}
}

func TestHandlerErrorAfterReplyUsesFollowup(t *testing.T) {
	gw := newFakeGateway()
	b := newTestBot(newFakeStore(), gw)
	t.Cleanup(b.sessions.Stop)

	original := buttonRoutes
	t.Cleanup(func() { buttonRoutes = original })
	buttonRoutes = append([]route{{
		id: "half_done",
		fn: func(_ *StaffBot, r *responder, _ *discordgo.InteractionCreate, _ string) error {
			if err := r.ephemeral("partial progress"); err != nil {
				return err
			}
			panic("died after responding")
		},
	}}, original...)

	b.HandleInteraction(componentInteraction("half_done"))

	if len(gw.responses) != 1 {
		t.Fatalf("expected the initial response only, got %d responses", len(gw.responses))
	}
	if len(gw.followups) != 1 {
		t.Fatalf("failure notice should arrive as a followup, got %d followups", len(gw.followups))
	}
	if gw.followups[0].Content != genericFailureNotice {
		t.Fatalf("expected generic failure notice followup, got %q", gw.followups[0].Content)
	}
}

func TestSelectInteractionsUseSelectRoutes(t *testing.T) {
	gw := newFakeGateway()
	b := newTestBot(newFakeStore(), gw)
	t.Cleanup(b.sessions.Stop)

	ic := componentInteraction(idApplySelect)
	ic.Interaction.Data = discordgo.MessageComponentInteractionData{
		CustomID:      idApplySelect,
		ComponentType: discordgo.SelectMenuComponent,
		Values:        []string{"pos-missing"},
	}
	b.HandleInteraction(ic)

	//The apply handler answers "no longer available" for unknown positions,
	//proving the select table was used instead of the button table.
	if got := gw.lastResponseContent(); got != "❌ This position is no longer available." {
		t.Fatalf("unexpected response %q", got)
	}
}

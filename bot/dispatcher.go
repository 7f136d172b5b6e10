package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

//Component and modal custom IDs. Prefixed IDs carry an entity ID after the
//separator which the dispatcher strips off and passes to the handler.
const (
	idSetupPosition   = "setup_position"
	idUsePrevious     = "use_previous_config"
	idConfirmPrevious = "confirm_previous_config"
	idNewConfig       = "new_position_config"
	idReloadPanel     = "reload_panel"
	idApplySelect     = "apply"
	idCreateModal     = "create_position"

	prefixAccept        = "accept:"
	prefixReject        = "reject:"
	prefixUpdate        = "update_pos:"
	prefixDelete        = "delete_pos:"
	prefixConfirmDelete = "confirm_delete:"
	prefixSubmit        = "submit:"
	prefixResubmitYes   = "resubmit_yes:"
	prefixResubmitNo    = "resubmit_no:"
)

type interactionHandler func(b *StaffBot, r *responder, ic *discordgo.InteractionCreate, arg string) error

//route binds a custom ID to a handler. When prefix is set the ID matches any
//custom ID starting with it and the remainder is passed as arg.
type route struct {
	id     string
	prefix bool
	fn     interactionHandler
}

var buttonRoutes = []route{
	{id: idSetupPosition, fn: (*StaffBot).handleSetupButton},
	{id: idUsePrevious, fn: (*StaffBot).handleUsePreviousButton},
	{id: idConfirmPrevious, fn: (*StaffBot).handleConfirmPreviousButton},
	{id: idNewConfig, fn: (*StaffBot).handleNewConfigButton},
	{id: idReloadPanel, fn: (*StaffBot).handleReloadButton},
	{id: prefixAccept, prefix: true, fn: (*StaffBot).handleAcceptButton},
	{id: prefixReject, prefix: true, fn: (*StaffBot).handleRejectButton},
	{id: prefixUpdate, prefix: true, fn: (*StaffBot).handleUpdateButton},
	{id: prefixDelete, prefix: true, fn: (*StaffBot).handleDeleteButton},
	{id: prefixResubmitYes, prefix: true, fn: (*StaffBot).handleResubmitYes},
	{id: prefixResubmitNo, prefix: true, fn: (*StaffBot).handleResubmitNo},
}

var modalRoutes = []route{
	{id: idCreateModal, fn: (*StaffBot).handleCreateModal},
	{id: prefixUpdate, prefix: true, fn: (*StaffBot).handleUpdateModal},
	{id: prefixConfirmDelete, prefix: true, fn: (*StaffBot).handleConfirmDeleteModal},
	{id: prefixSubmit, prefix: true, fn: (*StaffBot).handleSubmitModal},
	{id: prefixReject, prefix: true, fn: (*StaffBot).handleRejectModal},
}

var selectRoutes = []route{
	{id: idApplySelect, fn: (*StaffBot).handleApplySelect},
}

//resolveRoute finds the handler for a custom ID. Exact matches win over
//prefix matches; prefixes are tried in declaration order.
func resolveRoute(routes []route, customID string) (interactionHandler, string, bool) {
	for _, rt := range routes {
		if !rt.prefix && rt.id == customID {
			return rt.fn, "", true
		}
	}
	for _, rt := range routes {
		if rt.prefix && strings.HasPrefix(customID, rt.id) {
			return rt.fn, strings.TrimPrefix(customID, rt.id), true
		}
	}
	return nil, "", false
}

//HandleInteraction routes component and modal interactions to their
//handlers. Every failure path is contained here: handlers return errors (or
//panic) and the user gets at most one generic failure notice.
func (b *StaffBot) HandleInteraction(ic *discordgo.InteractionCreate) {
	if b.gw == nil || b.panels == nil {
		logrus.Warnf("Dropping interaction %v received before startup completed.", ic.ID)
		return
	}

	var routes []route
	var customID string
	switch ic.Type {
	case discordgo.InteractionMessageComponent:
		data := ic.MessageComponentData()
		customID = data.CustomID
		if data.ComponentType == discordgo.SelectMenuComponent {
			routes = selectRoutes
		} else {
			routes = buttonRoutes
		}
	case discordgo.InteractionModalSubmit:
		data := ic.ModalSubmitData()
		customID = data.CustomID
		routes = modalRoutes
	default:
		//Pings and application commands are not used by this bot.
		return
	}

	r := newResponder(b.gw, ic)
	defer func() {
		if rec := recover(); rec != nil {
			logrus.Errorf("Handler for interaction `%v` panicked: %v", customID, rec)
			r.failureNotice()
		}
	}()

	handler, arg, ok := resolveRoute(routes, customID)
	if !ok {
		logrus.Warnf("Received interaction with unknown custom ID `%v`.", customID)
		r.failureNotice()
		return
	}

	if err := handler(b, r, ic, arg); err != nil {
		if isDeadInteraction(err) {
			logrus.Debugf("Interaction `%v` expired before it could be answered.", customID)
			return
		}
		logrus.Errorf("Handler for interaction `%v` failed: %v", customID, err)
		r.failureNotice()
	}
}

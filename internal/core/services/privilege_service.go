package services

import (
	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/ports"
)

// privilegeResolver derives the trust tier for one message. The channel
// role comes from the message itself and is never cached; operator
// membership is read live from the store so op/deop apply to the very next
// message.
type privilegeResolver struct {
	store ports.ModerationStore
}

func NewPrivilegeResolver(store ports.ModerationStore) ports.PrivilegeResolver {
	return &privilegeResolver{store: store}
}

func (r *privilegeResolver) Resolve(handle string, role domain.ChannelRole) domain.Privilege {
	switch role {
	case domain.RoleBroadcaster:
		return domain.PrivilegeBroadcaster
	case domain.RoleModerator:
		return domain.PrivilegeChannelModerator
	}
	if r.store.IsOperator(handle) {
		return domain.PrivilegeOperator
	}
	return domain.PrivilegeStandard
}

package domain

// Privilege is the ordered trust tier gating which commands a sender may
// issue. Each level inherits everything below it.
type Privilege int

const (
	PrivilegeStandard Privilege = iota
	PrivilegeOperator
	PrivilegeChannelModerator
	PrivilegeBroadcaster
)

func (p Privilege) String() string {
	switch p {
	case PrivilegeBroadcaster:
		return "broadcaster"
	case PrivilegeChannelModerator:
		return "channel_moderator"
	case PrivilegeOperator:
		return "operator"
	default:
		return "standard"
	}
}

func (p Privilege) AtLeast(min Privilege) bool {
	return p >= min
}

// ChannelRole is the per-message fact the chat transport supplies. It is
// derived from message tags and never cached across messages.
type ChannelRole int

const (
	RoleNone ChannelRole = iota
	RoleModerator
	RoleBroadcaster
)

func (r ChannelRole) String() string {
	switch r {
	case RoleBroadcaster:
		return "broadcaster"
	case RoleModerator:
		return "moderator"
	default:
		return "none"
	}
}

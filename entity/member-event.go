package entity

// MemberStatus mirrors the platform's chat-member states.
type MemberStatus string

const (
	StatusCreator       MemberStatus = "creator"
	StatusAdministrator MemberStatus = "administrator"
	StatusMember        MemberStatus = "member"
	StatusRestricted    MemberStatus = "restricted"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

// Outside reports whether the status means "not a member of the chat".
func (s MemberStatus) Outside() bool {
	return s == StatusLeft || s == StatusKicked
}

// MemberEvent is one membership state change of one user in one chat.
// Events are consumed once by the attribution engine and never persisted.
type MemberEvent struct {
	ChatId        int64
	ChatTitle     string
	OldStatus     MemberStatus
	NewStatus     MemberStatus
	ViaInviteLink bool
	ActorId       int64 // user who performed the change; 0 when unknown
	ActorName     string
}

// JoinedFromOutside reports whether the subject went from non-member to
// plain member. Re-joins of present members and promotions never qualify.
func (e MemberEvent) JoinedFromOutside() bool {
	return e.OldStatus.Outside() && e.NewStatus == StatusMember
}

func (e MemberEvent) HasActor() bool {
	return e.ActorId != 0
}

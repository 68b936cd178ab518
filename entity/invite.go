package entity

import "time"

// InviteRecord is one per-(chat, inviter) counter. A record exists only for
// inviters credited with at least one attributable event; the whole set for
// a chat is deleted when its challenge is replaced.
//
// InviterName keeps the first captured display name. FirstInviteAt is set
// once on creation and serves as the leaderboard tiebreak ordinal.
type InviteRecord struct {
	ChatId        int64     `json:"chat_id" bson:"chat_id"`
	InviterId     int64     `json:"inviter_id" bson:"inviter_id"`
	InviterName   string    `json:"inviter_name" bson:"inviter_name"`
	Count         int64     `json:"count" bson:"count"`
	FirstInviteAt time.Time `json:"first_invite_at" bson:"first_invite_at"`
}

package entity

// LeaderboardRow is one ranked entry of a chat leaderboard.
type LeaderboardRow struct {
	InviterId   int64  `json:"inviter_id" bson:"inviter_id"`
	InviterName string `json:"inviter_name" bson:"inviter_name"`
	Count       int64  `json:"count" bson:"count"`
}

// UserStats is the cross-chat aggregate for one inviter.
type UserStats struct {
	UserId       int64 `json:"user_id"`
	TotalInvited int64 `json:"total_invited"`
	Participants int64 `json:"participants"` // distinct inviters across all chats
}

// BotStats is the owner-only global summary.
type BotStats struct {
	Users      int64 `json:"users"`
	Groups     int64 `json:"groups"`
	Challenges int64 `json:"challenges"`
	Invites    int64 `json:"invites"`
}

package entity

import "time"

// BotUser records the first time a user talked to the bot in private.
// Write-once: later sightings are ignored.
type BotUser struct {
	UserId    int64     `json:"user_id" bson:"user_id"`
	FirstSeen time.Time `json:"first_seen" bson:"first_seen"`
}

// BotGroup records the first time the bot saw a group chat.
type BotGroup struct {
	ChatId    int64     `json:"chat_id" bson:"chat_id"`
	Title     string    `json:"title" bson:"title"`
	AddedDate time.Time `json:"added_date" bson:"added_date"`
}

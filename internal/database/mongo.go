package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sanoqchi/entity"
	"sanoqchi/internal/config"
)

const (
	collectionChallenges = "challenges"
	collectionInvites    = "invites"
	collectionBotUsers   = "bot_users"
	collectionBotGroups  = "bot_groups"
)

type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
	timeout       time.Duration
}

func NewMongoClient(conf *config.Config) *MongoDB {
	if !conf.Mongo.Enabled {
		return nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	timeout := time.Duration(conf.Mongo.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := &MongoDB{
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
		timeout:       timeout,
	}
	return client
}

// opContext bounds every store operation so a slow server fails a single
// event or tick iteration instead of wedging the caller.
func (m *MongoDB) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.timeout)
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	_ = connection.Disconnect(ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// GetChallenge returns the chat's challenge row, or nil when none is configured.
func (m *MongoDB) GetChallenge(ctx context.Context, chatId int64) (*entity.Challenge, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionChallenges)
	filter := bson.D{{Key: "chat_id", Value: chatId}}
	var challenge entity.Challenge
	err = collection.FindOne(ctx, filter).Decode(&challenge)
	if err != nil {
		return nil, m.findError(err)
	}
	return &challenge, nil
}

func (m *MongoDB) ListChallenges(ctx context.Context) ([]entity.Challenge, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionChallenges)
	cursor, err := collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	var challenges []entity.Challenge
	err = cursor.All(ctx, &challenges)
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// ReplaceChallenge upserts the challenge row with cleared lifecycle flags and
// wipes the chat's invite ledger in one transaction. A half-applied replace
// (new window, old counters) must never be observable.
func (m *MongoDB) ReplaceChallenge(ctx context.Context, challenge *entity.Challenge) error {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	session, err := connection.StartSession()
	if err != nil {
		return fmt.Errorf("mongodb session: %w", err)
	}
	defer session.EndSession(ctx)

	challenges := connection.Database(m.database).Collection(collectionChallenges)
	invites := connection.Database(m.database).Collection(collectionInvites)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		filter := bson.D{{Key: "chat_id", Value: challenge.ChatId}}
		update := bson.D{{Key: "$set", Value: bson.D{
			{Key: "start_date", Value: challenge.StartDate},
			{Key: "end_date", Value: challenge.EndDate},
			{Key: "announced", Value: false},
			{Key: "ended", Value: false},
		}}}
		opts := options.Update().SetUpsert(true)
		if _, err := challenges.UpdateOne(sc, filter, update, opts); err != nil {
			return nil, err
		}
		if _, err := invites.DeleteMany(sc, bson.D{{Key: "chat_id", Value: challenge.ChatId}}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("mongodb replace challenge: %w", err)
	}
	return nil
}

// MarkAnnounced flips the announced flag. The filter carries the flag and
// the exact window the sweep read: the update matches at most once per
// challenge lifetime, and a row replaced mid-sweep with a new window
// matches nothing instead of inheriting the stale transition. The return
// value reports whether this call performed the transition.
func (m *MongoDB) MarkAnnounced(ctx context.Context, challenge entity.Challenge) (bool, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionChallenges)
	filter := bson.D{
		{Key: "chat_id", Value: challenge.ChatId},
		{Key: "start_date", Value: challenge.StartDate},
		{Key: "end_date", Value: challenge.EndDate},
		{Key: "announced", Value: false},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "announced", Value: true}}}}
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongodb mark announced: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

// MarkEnded flips the ended flag; the announced guard in the filter keeps
// the end transition behind the start one, and the window pin keeps it off
// rows replaced mid-sweep.
func (m *MongoDB) MarkEnded(ctx context.Context, challenge entity.Challenge) (bool, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return false, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionChallenges)
	filter := bson.D{
		{Key: "chat_id", Value: challenge.ChatId},
		{Key: "start_date", Value: challenge.StartDate},
		{Key: "end_date", Value: challenge.EndDate},
		{Key: "announced", Value: true},
		{Key: "ended", Value: false},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "ended", Value: true}}}}
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("mongodb mark ended: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

// RecordInvite credits one invite to (chatId, inviterId) in a single
// server-side upsert: $inc on the counter, name and ordinal set only on
// insert. Concurrent events for the same inviter cannot lose updates.
func (m *MongoDB) RecordInvite(ctx context.Context, chatId, inviterId int64, inviterName string, at time.Time) error {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvites)
	filter := bson.D{{Key: "chat_id", Value: chatId}, {Key: "inviter_id", Value: inviterId}}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "count", Value: 1}}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "inviter_name", Value: inviterName},
			{Key: "first_invite_at", Value: at},
		}},
	}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("mongodb record invite: %w", err)
	}
	return nil
}

// TopInviters returns the chat leaderboard ordered by count descending.
// Ties break on the persisted first_invite_at ordinal, then inviter_id.
func (m *MongoDB) TopInviters(ctx context.Context, chatId int64, limit int64) ([]entity.LeaderboardRow, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvites)
	filter := bson.D{{Key: "chat_id", Value: chatId}}
	opts := options.Find().
		SetSort(bson.D{{Key: "count", Value: -1}, {Key: "first_invite_at", Value: 1}, {Key: "inviter_id", Value: 1}}).
		SetLimit(limit)
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []entity.LeaderboardRow
	err = cursor.All(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UserInviteTotal sums the inviter's counters across all chats.
func (m *MongoDB) UserInviteTotal(ctx context.Context, userId int64) (int64, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvites)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "inviter_id", Value: userId}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$count"}}},
		}}},
	}
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("mongodb aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total int64 `bson:"total"`
	}
	err = cursor.All(ctx, &result)
	if err != nil {
		return 0, err
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

// DistinctInviters counts distinct inviters across all chats.
func (m *MongoDB) DistinctInviters(ctx context.Context) (int64, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvites)
	values, err := collection.Distinct(ctx, "inviter_id", bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongodb distinct: %w", err)
	}
	return int64(len(values)), nil
}

// SaveBotUser records a first-seen user; later sightings are ignored.
func (m *MongoDB) SaveBotUser(ctx context.Context, userId int64, at time.Time) error {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionBotUsers)
	filter := bson.D{{Key: "user_id", Value: userId}}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "user_id", Value: userId},
		{Key: "first_seen", Value: at},
	}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// SaveBotGroup records a first-seen group; later sightings are ignored.
func (m *MongoDB) SaveBotGroup(ctx context.Context, chatId int64, title string, at time.Time) error {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionBotGroups)
	filter := bson.D{{Key: "chat_id", Value: chatId}}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "chat_id", Value: chatId},
		{Key: "title", Value: title},
		{Key: "added_date", Value: at},
	}}}
	opts := options.Update().SetUpsert(true)
	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (m *MongoDB) CountBotUsers(ctx context.Context) (int64, error) {
	return m.countAll(ctx, collectionBotUsers)
}

func (m *MongoDB) CountBotGroups(ctx context.Context) (int64, error) {
	return m.countAll(ctx, collectionBotGroups)
}

func (m *MongoDB) CountChallenges(ctx context.Context) (int64, error) {
	return m.countAll(ctx, collectionChallenges)
}

func (m *MongoDB) countAll(ctx context.Context, name string) (int64, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(name)
	count, err := collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongodb count: %w", err)
	}
	return count, nil
}

// TotalInvites sums every counter in the ledger.
func (m *MongoDB) TotalInvites(ctx context.Context) (int64, error) {
	ctx, cancel := m.opContext(ctx)
	defer cancel()
	connection, err := m.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionInvites)
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$count"}}},
		}}},
	}
	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("mongodb aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total int64 `bson:"total"`
	}
	err = cursor.All(ctx, &result)
	if err != nil {
		return 0, err
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

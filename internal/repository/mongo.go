package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/apperr"
	"github.com/fathima-sithara/chat-hub/internal/domain"
)

const writeConflictCode = 112

type MongoOptions struct {
	URI      string
	Database string
	// Timeout bounds each single attempt of a store operation.
	Timeout time.Duration
	Retry   RetryPolicy
}

type MongoStore struct {
	client      *mongo.Client
	db          *mongo.Database
	users       *mongo.Collection
	requests    *mongo.Collection
	friendships *mongo.Collection
	messages    *mongo.Collection
	reactions   *mongo.Collection
	calls       *mongo.Collection
	timeout     time.Duration
	retry       RetryPolicy
	log         *zap.Logger
}

// ConnectMongo dials, pings and prepares the indexes the invariants rely on.
// Accepting friend requests uses multi-document transactions, so the server
// must be a replica set or sharded cluster.
func ConnectMongo(ctx context.Context, opts MongoOptions, log *zap.Logger) (*MongoStore, error) {
	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.Retry.MaxRetries == 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	db := client.Database(opts.Database)
	s := &MongoStore{
		client:      client,
		db:          db,
		users:       db.Collection("users"),
		requests:    db.Collection("friend_requests"),
		friendships: db.Collection("friendships"),
		messages:    db.Collection("messages"),
		reactions:   db.Collection("message_reactions"),
		calls:       db.Collection("calls"),
		timeout:     opts.Timeout,
		retry:       opts.Retry,
		log:         log,
	}
	if err := s.ensureIndexes(cctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("mongo store ready", zap.String("database", opts.Database))
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := func() *options.IndexOptions { return options.Index().SetUnique(true) }
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique()},
		},
		s.requests: {
			{Keys: bson.D{{Key: "pending_pair", Value: 1}}, Options: unique().SetSparse(true)},
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		s.friendships: {
			{Keys: bson.D{{Key: "user_a", Value: 1}, {Key: "user_b", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "user_b", Value: 1}}},
		},
		s.messages: {
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		s.reactions: {
			{Keys: bson.D{{Key: "message_id", Value: 1}, {Key: "user_id", Value: 1}}, Options: unique()},
		},
		s.calls: {
			{Keys: bson.D{{Key: "active_pair", Value: 1}}, Options: unique().SetSparse(true)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "caller_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for col, models := range indexes {
		if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col.Name(), err)
		}
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// classify turns driver errors into the package's sentinels and marks the
// retryable ones as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrStateChanged) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorLabel("TransientTransactionError") || se.HasErrorCode(writeConflictCode)) {
		return apperr.Transient(err)
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return apperr.Transient(err)
	}
	return err
}

// run executes one logical store operation with a per-attempt timeout and
// bounded retries of transient failures.
func (s *MongoStore) run(ctx context.Context, op func(ctx context.Context) error) error {
	return Retry(ctx, s.retry, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return classify(op(ctx))
	})
}

// missingOrChanged tells a missing document apart from a failed status filter.
func missingOrChanged(ctx context.Context, col *mongo.Collection, id string) error {
	n, err := col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStateChanged
}

func after() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

// users

func (s *MongoStore) CreateUser(ctx context.Context, u *domain.User) error {
	u.ID = newID(u.ID)
	return s.run(ctx, func(ctx context.Context) error {
		_, err := s.users.InsertOne(ctx, u)
		return err
	})
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.run(ctx, func(ctx context.Context) error {
		return s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.run(ctx, func(ctx context.Context) error {
		return s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) SetUserOnline(ctx context.Context, id string, online bool) error {
	return s.run(ctx, func(ctx context.Context) error {
		res, err := s.users.UpdateByID(ctx, id, bson.M{"$set": bson.M{"online": online, "updated_at": time.Now().UTC()}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// friend requests

func (s *MongoStore) CreateFriendRequest(ctx context.Context, r *domain.FriendRequest) error {
	r.ID = newID(r.ID)
	r.Status = domain.FriendRequestPending
	r.PendingPair = domain.PairKey(r.SenderID, r.ReceiverID)
	return s.run(ctx, func(ctx context.Context) error {
		_, err := s.requests.InsertOne(ctx, r)
		return err
	})
}

func (s *MongoStore) GetFriendRequest(ctx context.Context, id string) (*domain.FriendRequest, error) {
	var r domain.FriendRequest
	err := s.run(ctx, func(ctx context.Context) error {
		return s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MongoStore) FindPendingRequest(ctx context.Context, a, b string) (*domain.FriendRequest, error) {
	var r domain.FriendRequest
	err := s.run(ctx, func(ctx context.Context) error {
		return s.requests.FindOne(ctx, bson.M{"pending_pair": domain.PairKey(a, b)}).Decode(&r)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MongoStore) ListFriendRequests(ctx context.Context, userID string, status domain.FriendRequestStatus) ([]domain.FriendRequest, error) {
	filter := bson.M{"$or": bson.A{bson.M{"sender_id": userID}, bson.M{"receiver_id": userID}}}
	if status != "" {
		filter["status"] = status
	}
	out := []domain.FriendRequest{}
	err := s.run(ctx, func(ctx context.Context) error {
		cur, err := s.requests.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
		if err != nil {
			return err
		}
		out = out[:0]
		return cur.All(ctx, &out)
	})
	return out, err
}

func requestTransition(to domain.FriendRequestStatus, at time.Time) bson.M {
	update := bson.M{"$set": bson.M{"status": to, "updated_at": at}}
	if to != domain.FriendRequestPending {
		update["$unset"] = bson.M{"pending_pair": ""}
	}
	return update
}

func (s *MongoStore) UpdateFriendRequestStatus(ctx context.Context, id string, from, to domain.FriendRequestStatus, at time.Time) (*domain.FriendRequest, error) {
	var r domain.FriendRequest
	err := s.run(ctx, func(ctx context.Context) error {
		err := s.requests.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, requestTransition(to, at), after()).Decode(&r)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return missingOrChanged(ctx, s.requests, id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MongoStore) AcceptFriendRequest(ctx context.Context, id string, at time.Time) (*domain.FriendRequest, *domain.Friendship, error) {
	var (
		r domain.FriendRequest
		f *domain.Friendship
	)
	err := s.run(ctx, func(ctx context.Context) error {
		sess, err := s.client.StartSession()
		if err != nil {
			return err
		}
		defer sess.EndSession(ctx)

		_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			err := s.requests.FindOneAndUpdate(sc,
				bson.M{"_id": id, "status": domain.FriendRequestPending},
				requestTransition(domain.FriendRequestAccepted, at), after()).Decode(&r)
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, missingOrChanged(sc, s.requests, id)
			}
			if err != nil {
				return nil, err
			}
			f = domain.NewFriendship(uuid.NewString(), r.SenderID, r.ReceiverID, at)
			if _, err := s.friendships.InsertOne(sc, f); err != nil {
				return nil, err
			}
			return nil, nil
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &r, f, nil
}

// friendships

func pairFilter(fieldA, fieldB, a, b string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{fieldA: a, fieldB: b},
		bson.M{fieldA: b, fieldB: a},
	}}
}

func (s *MongoStore) GetFriendship(ctx context.Context, a, b string) (*domain.Friendship, error) {
	var f domain.Friendship
	err := s.run(ctx, func(ctx context.Context) error {
		return s.friendships.FindOne(ctx, pairFilter("user_a", "user_b", a, b)).Decode(&f)
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *MongoStore) DeleteFriendship(ctx context.Context, a, b string) error {
	return s.run(ctx, func(ctx context.Context) error {
		res, err := s.friendships.DeleteOne(ctx, pairFilter("user_a", "user_b", a, b))
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *MongoStore) ListFriendships(ctx context.Context, userID string) ([]domain.Friendship, error) {
	out := []domain.Friendship{}
	err := s.run(ctx, func(ctx context.Context) error {
		filter := bson.M{"$or": bson.A{bson.M{"user_a": userID}, bson.M{"user_b": userID}}}
		cur, err := s.friendships.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
		if err != nil {
			return err
		}
		out = out[:0]
		return cur.All(ctx, &out)
	})
	return out, err
}

// messages

func (s *MongoStore) CreateMessage(ctx context.Context, m *domain.Message) error {
	m.ID = newMessageID(m.ID)
	return s.run(ctx, func(ctx context.Context) error {
		_, err := s.messages.InsertOne(ctx, m)
		return err
	})
}

func (s *MongoStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	err := s.run(ctx, func(ctx context.Context) error {
		return s.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MongoStore) ListThread(ctx context.Context, a, b string) ([]domain.Message, error) {
	out := []domain.Message{}
	err := s.run(ctx, func(ctx context.Context) error {
		cur, err := s.messages.Find(ctx, pairFilter("sender_id", "receiver_id", a, b),
			options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
		if err != nil {
			return err
		}
		out = out[:0]
		return cur.All(ctx, &out)
	})
	return out, err
}

func (s *MongoStore) MarkThreadRead(ctx context.Context, senderID, receiverID string, at time.Time) ([]string, error) {
	var ids []string
	err := s.run(ctx, func(ctx context.Context) error {
		filter := bson.M{"sender_id": senderID, "receiver_id": receiverID, "is_read": false}
		cur, err := s.messages.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return err
		}
		var docs []struct {
			ID string `bson:"_id"`
		}
		if err := cur.All(ctx, &docs); err != nil {
			return err
		}
		ids = make([]string, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.ID)
		}
		if len(ids) == 0 {
			return nil
		}
		_, err = s.messages.UpdateMany(ctx,
			bson.M{"_id": bson.M{"$in": ids}, "is_read": false},
			bson.M{"$set": bson.M{"is_read": true, "read_at": at}})
		return err
	})
	return ids, err
}

// MarkMessagesRead updates one message at a time so the returned ids are
// exactly the ones this call changed.
func (s *MongoStore) MarkMessagesRead(ctx context.Context, ids []string, receiverID string, at time.Time) ([]string, error) {
	changed := make([]string, 0, len(ids))
	for _, id := range ids {
		var modified int64
		err := s.run(ctx, func(ctx context.Context) error {
			res, err := s.messages.UpdateOne(ctx,
				bson.M{"_id": id, "receiver_id": receiverID, "is_read": false},
				bson.M{"$set": bson.M{"is_read": true, "read_at": at}})
			if err != nil {
				return err
			}
			modified += res.ModifiedCount
			return nil
		})
		if err != nil {
			return changed, err
		}
		if modified > 0 {
			changed = append(changed, id)
		}
	}
	return changed, nil
}

func (s *MongoStore) UpdateMessageContent(ctx context.Context, id, content string, at time.Time) (*domain.Message, error) {
	var m domain.Message
	err := s.run(ctx, func(ctx context.Context) error {
		update := bson.M{"$set": bson.M{"content": content, "is_edited": true, "updated_at": at}}
		return s.messages.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, after()).Decode(&m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MongoStore) DeleteMessage(ctx context.Context, id string) error {
	return s.run(ctx, func(ctx context.Context) error {
		res, err := s.messages.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}
		_, err = s.reactions.DeleteMany(ctx, bson.M{"message_id": id})
		return err
	})
}

// reactions

func (s *MongoStore) UpsertReaction(ctx context.Context, r *domain.MessageReaction) (*domain.MessageReaction, error) {
	var out domain.MessageReaction
	err := s.run(ctx, func(ctx context.Context) error {
		update := bson.M{
			"$set":         bson.M{"emoji": r.Emoji, "updated_at": r.UpdatedAt},
			"$setOnInsert": bson.M{"_id": newID(r.ID), "created_at": r.CreatedAt},
		}
		err := s.reactions.FindOneAndUpdate(ctx,
			bson.M{"message_id": r.MessageID, "user_id": r.UserID},
			update, after().SetUpsert(true)).Decode(&out)
		if mongo.IsDuplicateKeyError(err) {
			// two concurrent upserts raced on the unique index; the retry
			// finds the winner's document and updates it
			return apperr.Transient(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MongoStore) DeleteReaction(ctx context.Context, messageID, userID string) (bool, error) {
	var deleted bool
	err := s.run(ctx, func(ctx context.Context) error {
		res, err := s.reactions.DeleteOne(ctx, bson.M{"message_id": messageID, "user_id": userID})
		if err != nil {
			return err
		}
		deleted = res.DeletedCount > 0
		return nil
	})
	return deleted, err
}

func (s *MongoStore) ListReactions(ctx context.Context, messageIDs []string) ([]domain.MessageReaction, error) {
	out := []domain.MessageReaction{}
	if len(messageIDs) == 0 {
		return out, nil
	}
	err := s.run(ctx, func(ctx context.Context) error {
		cur, err := s.reactions.Find(ctx, bson.M{"message_id": bson.M{"$in": messageIDs}},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
		if err != nil {
			return err
		}
		out = out[:0]
		return cur.All(ctx, &out)
	})
	return out, err
}

// calls

func (s *MongoStore) SaveActiveCall(ctx context.Context, c *domain.Call) (*domain.Call, error) {
	pair := domain.PairKey(c.CallerID, c.ReceiverID)
	var out domain.Call
	err := s.run(ctx, func(ctx context.Context) error {
		update := bson.M{"$set": bson.M{
			"caller_id":   c.CallerID,
			"receiver_id": c.ReceiverID,
			"call_type":   c.CallType,
			"status":      domain.CallOutgoing,
			"start_time":  c.StartTime,
			"updated_at":  c.UpdatedAt,
		}}
		err := s.calls.FindOneAndUpdate(ctx, bson.M{"active_pair": pair}, update, after()).Decode(&out)
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return err
		}
		out = *c
		out.ID = newID(out.ID)
		out.Status = domain.CallOutgoing
		out.ActivePair = pair
		if _, err := s.calls.InsertOne(ctx, out); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				// a concurrent call-user inserted first; retrying updates it
				return apperr.Transient(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MongoStore) GetCall(ctx context.Context, id string) (*domain.Call, error) {
	var c domain.Call
	err := s.run(ctx, func(ctx context.Context) error {
		return s.calls.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) FindActiveCall(ctx context.Context, a, b string) (*domain.Call, error) {
	var c domain.Call
	err := s.run(ctx, func(ctx context.Context) error {
		return s.calls.FindOne(ctx, bson.M{"active_pair": domain.PairKey(a, b)}).Decode(&c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MongoStore) LatestCall(ctx context.Context, callerID, receiverID string, status domain.CallStatus) (*domain.Call, error) {
	var c domain.Call
	err := s.run(ctx, func(ctx context.Context) error {
		filter := bson.M{"caller_id": callerID, "receiver_id": receiverID, "status": status}
		opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
		return s.calls.FindOne(ctx, filter, opts).Decode(&c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func callTransition(upd domain.CallUpdate) bson.M {
	set := bson.M{"status": upd.Status, "updated_at": upd.At}
	if upd.StartTime != nil {
		set["start_time"] = upd.StartTime
	}
	if upd.Duration != nil {
		set["duration"] = upd.Duration
	}
	if upd.EndedAt != nil {
		set["ended_at"] = upd.EndedAt
	}
	update := bson.M{"$set": set}
	if upd.Status.Terminal() {
		update["$unset"] = bson.M{"active_pair": ""}
	}
	return update
}

func (s *MongoStore) TransitionCall(ctx context.Context, id string, from []domain.CallStatus, upd domain.CallUpdate) (*domain.Call, error) {
	var c domain.Call
	err := s.run(ctx, func(ctx context.Context) error {
		filter := bson.M{"_id": id, "status": bson.M{"$in": from}}
		err := s.calls.FindOneAndUpdate(ctx, filter, callTransition(upd), after()).Decode(&c)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return missingOrChanged(ctx, s.calls, id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// missMatching moves every active call matching filter to missed, one
// compare-and-set per call so a concurrent end-call wins cleanly.
func (s *MongoStore) missMatching(ctx context.Context, filter bson.M, at time.Time) ([]domain.Call, error) {
	filter["status"] = bson.M{"$in": domain.ActiveCallStatuses}
	var candidates []domain.Call
	err := s.run(ctx, func(ctx context.Context) error {
		cur, err := s.calls.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
		if err != nil {
			return err
		}
		return cur.All(ctx, &candidates)
	})
	if err != nil {
		return nil, err
	}

	endedAt := at
	upd := domain.CallUpdate{Status: domain.CallMissed, EndedAt: &endedAt, At: at}
	out := make([]domain.Call, 0, len(candidates))
	for _, c := range candidates {
		missed, err := s.TransitionCall(ctx, c.ID, domain.ActiveCallStatuses, upd)
		if errors.Is(err, ErrStateChanged) || errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return out, err
		}
		out = append(out, *missed)
	}
	return out, nil
}

func (s *MongoStore) MissStaleCalls(ctx context.Context, createdBefore, at time.Time) ([]domain.Call, error) {
	return s.missMatching(ctx, bson.M{"created_at": bson.M{"$lt": createdBefore}}, at)
}

func (s *MongoStore) MissActiveCallsFor(ctx context.Context, userID string, at time.Time) ([]domain.Call, error) {
	return s.missMatching(ctx, bson.M{"$or": bson.A{bson.M{"caller_id": userID}, bson.M{"receiver_id": userID}}}, at)
}

func (s *MongoStore) ListCalls(ctx context.Context, userID string, limit int) ([]domain.Call, error) {
	out := []domain.Call{}
	err := s.run(ctx, func(ctx context.Context) error {
		filter := bson.M{"$or": bson.A{bson.M{"caller_id": userID}, bson.M{"receiver_id": userID}}}
		opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
		if limit > 0 {
			opts.SetLimit(int64(limit))
		}
		cur, err := s.calls.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		out = out[:0]
		return cur.All(ctx, &out)
	})
	return out, err
}

var _ Store = (*MongoStore)(nil)

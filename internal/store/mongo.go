package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"gwi.com/deepchat/internal/domain"
)

const defaultMongoDatabase = "deepchat"

type mongoUser struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Image     string    `bson:"image"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type mongoMessage struct {
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
}

// mongoChat keeps the messages embedded in the chat document.
type mongoChat struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"userId"`
	Name      string             `bson:"name"`
	Messages  []mongoMessage     `bson:"messages"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (c mongoChat) toDomain() domain.Chat {
	chat := domain.Chat{
		ID:        c.ID.Hex(),
		UserID:    c.UserID,
		Name:      c.Name,
		Messages:  make([]domain.Message, 0, len(c.Messages)),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for _, m := range c.Messages {
		chat.Messages = append(chat.Messages, domain.Message{Role: domain.Role(m.Role), Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return chat
}

type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	chats  *mongo.Collection
}

func newMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{client: client, users: db.Collection("users"), chats: db.Collection("chats")}
}

func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to ping mongodb")
	}

	dbName := defaultMongoDatabase
	if cs, err := connstring.ParseAndValidate(uri); err == nil && cs.Database != "" {
		dbName = cs.Database
	}
	s := newMongoStore(client, client.Database(dbName))

	_, err = s.chats.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "userId", Value: 1}}})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to create chat index")
	}
	return s, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) UpsertUser(ctx context.Context, user domain.User) error {
	now := time.Now()
	_, err := s.users.UpdateByID(ctx, user.ID, bson.M{
		"$set":         bson.M{"name": user.Name, "email": user.Email, "image": user.Image, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}, options.Update().SetUpsert(true))
	return errors.Wrapf(err, "failed to upsert user %s", user.ID)
}

func (s *MongoStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var doc mongoUser
	err := s.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to query user")
	}
	return &domain.User{ID: doc.ID, Name: doc.Name, Email: doc.Email, Image: doc.Image, CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt}, nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, userID string) error {
	_, err := s.users.DeleteOne(ctx, bson.M{"_id": userID})
	return errors.Wrapf(err, "failed to delete user %s", userID)
}

func (s *MongoStore) CreateChat(ctx context.Context, userID, name string) (*domain.Chat, error) {
	now := time.Now()
	doc := mongoChat{ID: primitive.NewObjectID(), UserID: userID, Name: name, Messages: []mongoMessage{}, CreatedAt: now, UpdatedAt: now}
	if _, err := s.chats.InsertOne(ctx, doc); err != nil {
		return nil, errors.Wrap(err, "failed to insert chat")
	}
	chat := doc.toDomain()
	return &chat, nil
}

// ownedFilter matches chatID owned by userID. ok is false when chatID cannot
// be a valid document id, in which case nothing can match.
func ownedFilter(chatID, userID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "userId": userID}, true
}

func (s *MongoStore) GetChat(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	filter, ok := ownedFilter(chatID, userID)
	if !ok {
		return nil, nil
	}
	var doc mongoChat
	if err := s.chats.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get chat")
	}
	chat := doc.toDomain()
	return &chat, nil
}

func (s *MongoStore) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	cur, err := s.chats.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query chats")
	}
	var docs []mongoChat
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "failed to decode chats")
	}
	chats := make([]domain.Chat, 0, len(docs))
	for _, d := range docs {
		chats = append(chats, d.toDomain())
	}
	return chats, nil
}

func (s *MongoStore) RenameChat(ctx context.Context, chatID, userID, name string) error {
	filter, ok := ownedFilter(chatID, userID)
	if !ok {
		return nil
	}
	_, err := s.chats.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"name": name, "updatedAt": time.Now()}})
	return errors.Wrap(err, "failed to rename chat")
}

func (s *MongoStore) DeleteChat(ctx context.Context, chatID, userID string) error {
	filter, ok := ownedFilter(chatID, userID)
	if !ok {
		return nil
	}
	_, err := s.chats.DeleteOne(ctx, filter)
	return errors.Wrap(err, "failed to delete chat")
}

func (s *MongoStore) AppendMessage(ctx context.Context, chatID, userID string, msg domain.Message) error {
	filter, ok := ownedFilter(chatID, userID)
	if !ok {
		return ErrChatNotFound
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	res, err := s.chats.UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"messages": mongoMessage{Role: string(msg.Role), Content: msg.Content, CreatedAt: msg.CreatedAt}},
		"$set":  bson.M{"updatedAt": msg.CreatedAt},
	})
	if err != nil {
		return errors.Wrap(err, "failed to append message")
	}
	if res.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}

package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// MongoStore is the canonical UserStore backed by the users collection.
type MongoStore struct {
	users *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{users: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique indexes the reconciliation engine relies
// on for concurrency control: remoteId (sparse, so local-only records may
// omit it) and email.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "remoteId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("store: creating user indexes: %w", err)
	}
	return nil
}

type mongoUser struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	User `bson:",inline"`
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc mongoUser
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: find user: %w", err)
	}
	u := doc.User
	u.LocalID = doc.ID.Hex()
	return &u, nil
}

func (s *MongoStore) FindByRemoteID(ctx context.Context, remoteID string) (*User, error) {
	return s.findOne(ctx, bson.M{"remoteId": remoteID})
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (s *MongoStore) ListLocalOnly(ctx context.Context) ([]User, error) {
	cur, err := s.users.Find(ctx, bson.M{"remoteId": bson.M{"$exists": false}})
	if err != nil {
		return nil, fmt.Errorf("store: list local-only users: %w", err)
	}
	defer cur.Close(ctx)

	var out []User
	for cur.Next(ctx) {
		var doc mongoUser
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("store: decode user: %w", err)
		}
		u := doc.User
		u.LocalID = doc.ID.Hex()
		out = append(out, u)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("store: cursor: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Insert(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = now
	u.UpdatedAt = now

	res, err := s.users.InsertOne(ctx, mongoUser{User: *u})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("store: insert user: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.LocalID = oid.Hex()
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, u *User) error {
	oid, err := primitive.ObjectIDFromHex(u.LocalID)
	if err != nil {
		return fmt.Errorf("store: bad local id %q: %w", u.LocalID, err)
	}

	u.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"email":     strings.ToLower(u.Email),
		"username":  u.Username,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"name":      u.Name,
		"imageUrl":  u.ImageURL,
		"hasImage":  u.HasImage,
		"inactive":  u.Inactive,
		"updatedAt": u.UpdatedAt,
	}
	// An empty remoteId must stay absent, not empty: the sparse unique
	// index treats "" as a value and two local-only records would collide.
	if u.RemoteID != "" {
		set["remoteId"] = u.RemoteID
	}
	if u.PublicMetadata != nil {
		set["publicMetadata"] = u.PublicMetadata
	}
	if u.PrivateMetadata != nil {
		set["privateMetadata"] = u.PrivateMetadata
	}
	if u.UnsafeMetadata != nil {
		set["unsafeMetadata"] = u.UnsafeMetadata
	}
	if u.ExternalAccounts != nil {
		set["externalAccounts"] = u.ExternalAccounts
	}

	res, err := s.users.UpdateByID(ctx, oid, bson.M{"$set": set})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("store: update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SetInactive(ctx context.Context, remoteID string, inactive bool) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"remoteId": remoteID},
		bson.M{"$set": bson.M{"inactive": inactive, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("store: set inactive: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Claim(ctx context.Context, localID, remoteID string) error {
	oid, err := primitive.ObjectIDFromHex(localID)
	if err != nil {
		return fmt.Errorf("store: bad local id %q: %w", localID, err)
	}

	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": oid, "remoteId": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"remoteId": remoteID, "updatedAt": time.Now().UTC()}},
	)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("store: claim user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/users"
)

type userRepo struct {
	store *Store
	coll  *mongo.Collection
}

func (r *userRepo) Create(ctx context.Context, user *users.User) error {
	user.Normalize()
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return mapUserWriteError(err, "failed to create user")
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*users.User, error) {
	result := make(map[string]*users.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	var found []*users.User
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, u := range found {
		u.Normalize()
		result[u.ID] = u
	}
	return result, nil
}

// UpdateProfile sets the scalar profile fields; the id arrays are left untouched
func (r *userRepo) UpdateProfile(ctx context.Context, user *users.User) error {
	update := bson.M{"$set": bson.M{
		"username":   user.Username,
		"email":      user.Email,
		"password":   user.PasswordHash,
		"fullName":   user.FullName,
		"bio":        user.Bio,
		"link":       user.Link,
		"profileImg": user.ProfileImg,
		"coverImg":   user.CoverImg,
		"updatedAt":  user.UpdatedAt,
	}}

	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		return mapUserWriteError(err, "failed to update user")
	}
	if result.MatchedCount == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

// Sample draws up to size random users other than excludeID
func (r *userRepo) Sample(ctx context.Context, excludeID string, size int) ([]*users.User, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$ne": excludeID}}}},
		{{Key: "$sample", Value: bson.M{"size": size}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to sample users: %w", err)
	}
	result := make([]*users.User, 0, size)
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode sampled users: %w", err)
	}
	for _, u := range result {
		u.Normalize()
	}
	return result, nil
}

// AddFollow adds both ends of the edge with $addToSet and inserts the optional notification
func (r *userRepo) AddFollow(ctx context.Context, followerID, targetID string, n *notifications.Notification) error {
	return r.store.withTransaction(ctx, func(ctx context.Context) error {
		if err := updateUserSet(ctx, r.coll, followerID, "$addToSet", "following", targetID); err != nil {
			return err
		}
		if err := updateUserSet(ctx, r.coll, targetID, "$addToSet", "followers", followerID); err != nil {
			return err
		}
		if n != nil {
			if _, err := r.store.db.Collection(notificationsCollection).InsertOne(ctx, n); err != nil {
				return fmt.Errorf("failed to insert notification: %w", err)
			}
		}
		return nil
	})
}

// RemoveFollow pulls both ends of the edge
func (r *userRepo) RemoveFollow(ctx context.Context, followerID, targetID string) error {
	return r.store.withTransaction(ctx, func(ctx context.Context) error {
		if err := updateUserSet(ctx, r.coll, followerID, "$pull", "following", targetID); err != nil {
			return err
		}
		return updateUserSet(ctx, r.coll, targetID, "$pull", "followers", followerID)
	})
}

// updateUserSet applies a $addToSet or $pull of member to one array field of a user
func updateUserSet(ctx context.Context, coll *mongo.Collection, id, op, field, member string) error {
	update := bson.M{
		op:     bson.M{field: member},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", field, err)
	}
	if result.MatchedCount == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*users.User, error) {
	var u users.User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Normalize()
	return &u, nil
}

func mapUserWriteError(err error, msg string) error {
	if mongo.IsDuplicateKeyError(err) {
		switch {
		case strings.Contains(err.Error(), usernameIndex):
			return users.ErrUsernameTaken
		case strings.Contains(err.Error(), emailIndex):
			return users.ErrEmailTaken
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/posts"
)

type postRepo struct {
	store *Store
	coll  *mongo.Collection
}

func (r *postRepo) Create(ctx context.Context, post *posts.Post) error {
	post.Normalize()
	if _, err := r.coll.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

func (r *postRepo) GetByID(ctx context.Context, id string) (*posts.Post, error) {
	var p posts.Post
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	p.Normalize()
	return &p, nil
}

// AddComment pushes c onto the comment array and returns the updated post
func (r *postRepo) AddComment(ctx context.Context, postID string, c posts.Comment) (*posts.Post, error) {
	update := bson.M{
		"$push": bson.M{"comments": c},
		"$set":  bson.M{"updatedAt": c.CreatedAt},
	}
	return r.findAndUpdate(ctx, postID, update)
}

func (r *postRepo) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if result.DeletedCount == 0 {
		return posts.ErrNotFound
	}
	return nil
}

func (r *postRepo) List(ctx context.Context) ([]*posts.Post, error) {
	return r.find(ctx, bson.M{})
}

func (r *postRepo) ListByAuthors(ctx context.Context, authorIDs []string) ([]*posts.Post, error) {
	if len(authorIDs) == 0 {
		return []*posts.Post{}, nil
	}
	return r.find(ctx, bson.M{"user": bson.M{"$in": authorIDs}})
}

func (r *postRepo) ListByIDs(ctx context.Context, ids []string) ([]*posts.Post, error) {
	if len(ids) == 0 {
		return []*posts.Post{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// AddLike adds the like to both documents with $addToSet and inserts the optional notification
func (r *postRepo) AddLike(ctx context.Context, postID, userID string, n *notifications.Notification) ([]string, error) {
	var likes []string
	err := r.store.withTransaction(ctx, func(ctx context.Context) error {
		var err error
		if likes, err = r.likeEdge(ctx, postID, userID, "$addToSet"); err != nil || n == nil {
			return err
		}
		if _, err := r.store.db.Collection(notificationsCollection).InsertOne(ctx, n); err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return likes, nil
}

// RemoveLike pulls the like from both documents
func (r *postRepo) RemoveLike(ctx context.Context, postID, userID string) ([]string, error) {
	var likes []string
	err := r.store.withTransaction(ctx, func(ctx context.Context) error {
		var err error
		likes, err = r.likeEdge(ctx, postID, userID, "$pull")
		return err
	})
	if err != nil {
		return nil, err
	}
	return likes, nil
}

// likeEdge applies op to the post's likes, then to the user's likedPosts
func (r *postRepo) likeEdge(ctx context.Context, postID, userID, op string) ([]string, error) {
	post, err := r.findAndUpdate(ctx, postID, bson.M{
		op:     bson.M{"likes": userID},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return nil, err
	}

	err = updateUserSet(ctx, r.store.db.Collection(usersCollection), userID, op, "likedPosts", postID)
	if err != nil {
		return nil, err
	}
	return post.Likes.Strings(), nil
}

func (r *postRepo) findAndUpdate(ctx context.Context, postID string, update bson.M) (*posts.Post, error) {
	var p posts.Post
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": postID}, update, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, posts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func (r *postRepo) find(ctx context.Context, filter bson.M) ([]*posts.Post, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	result := make([]*posts.Post, 0)
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	for _, p := range result {
		p.Normalize()
	}
	return result, nil
}

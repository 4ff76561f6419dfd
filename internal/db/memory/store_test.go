package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/posts"
	"Murmur/internal/core/sets"
	"Murmur/internal/core/users"
)

type fakeAssets struct {
	destroyed []string
}

func (f *fakeAssets) Upload(ctx context.Context, dataURI string) (string, error) {
	return "https://cdn.test/upload/v1/img1.png", nil
}

func (f *fakeAssets) Destroy(ctx context.Context, publicID string) error {
	f.destroyed = append(f.destroyed, publicID)
	return nil
}

type services struct {
	store         *Store
	users         users.Service
	posts         posts.Service
	notifications notifications.Service
	assets        *fakeAssets
}

func newServices(t *testing.T) *services {
	t.Helper()
	store := NewStore()
	profiles, err := users.NewProfileCache(store.Users(), 100, time.Minute)
	require.NoError(t, err)
	host := &fakeAssets{}

	return &services{
		store:         store,
		users:         users.NewService(store.Users(), host, profiles, bcrypt.MinCost, nil),
		posts:         posts.NewService(store.Posts(), store.Users(), profiles, host, nil),
		notifications: notifications.NewService(store.Notifications(), profiles, nil),
		assets:        host,
	}
}

func (s *services) signup(t *testing.T, username string) *users.User {
	t.Helper()
	u, err := s.users.Signup(context.Background(), users.SignupRequest{
		FullName: username,
		Username: username,
		Email:    username + "@example.com",
		Password: "password",
	})
	require.NoError(t, err)
	return u
}

func TestStore_FollowTwiceRestoresGraph(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")

	action, err := s.users.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, users.Followed, action)

	a, _ := s.store.Users().GetByID(ctx, alice.ID)
	b, _ := s.store.Users().GetByID(ctx, bob.ID)
	assert.True(t, a.Following.Has(bob.ID))
	assert.True(t, b.Followers.Has(alice.ID))

	action, err = s.users.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, users.Unfollowed, action)

	a, _ = s.store.Users().GetByID(ctx, alice.ID)
	b, _ = s.store.Users().GetByID(ctx, bob.ID)
	assert.False(t, a.Following.Has(bob.ID))
	assert.False(t, b.Followers.Has(alice.ID))

	list, err := s.store.Notifications().ListByRecipient(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1, "only the follow creates a notification")
	assert.Equal(t, notifications.TypeFollow, list[0].Type)
}

func TestStore_LikeCyclesProduceOneNotificationEach(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")

	post, err := s.posts.CreatePost(ctx, bob.ID, posts.CreatePostRequest{Text: "hello"})
	require.NoError(t, err)

	const n = 4
	for i := 0; i < n; i++ {
		_, err := s.posts.ToggleLike(ctx, alice.ID, post.ID)
		require.NoError(t, err)
		_, err = s.posts.ToggleLike(ctx, alice.ID, post.ID)
		require.NoError(t, err)
	}

	views, err := s.notifications.List(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, views, n)
	for _, v := range views {
		assert.Equal(t, notifications.TypeLike, v.Type)
		require.NotNil(t, v.From)
		assert.Equal(t, "alice", v.From.Username)
		assert.False(t, v.Read)
	}

	// Listing marked them read
	again, err := s.notifications.List(ctx, bob.ID)
	require.NoError(t, err)
	for _, v := range again {
		assert.True(t, v.Read)
	}
}

func TestStore_LikedFeedAndPopulatedComments(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")

	post, err := s.posts.CreatePost(ctx, bob.ID, posts.CreatePostRequest{Text: "hello"})
	require.NoError(t, err)

	likes, err := s.posts.ToggleLike(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, likes)

	_, err = s.posts.Comment(ctx, alice.ID, post.ID, "nice")
	require.NoError(t, err)

	liked, err := s.posts.LikedFeed(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.Equal(t, post.ID, liked[0].ID)
	require.Len(t, liked[0].Comments, 1)
	require.NotNil(t, liked[0].Comments[0].User)
	assert.Equal(t, "alice", liked[0].Comments[0].User.Username)
	assert.Equal(t, "bob", liked[0].User.Username)

	// The liker's cached profile reflects the new likedPosts entry
	all, err := s.posts.AllPosts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Contains(t, all[0].Comments[0].User.LikedPosts, post.ID)
}

func TestStore_FeedsNewestFirst(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.store.Posts().Create(ctx, &posts.Post{
			ID:        fmt.Sprintf("p%d", i),
			UserID:    bob.ID,
			Text:      fmt.Sprintf("post %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	_, err := s.users.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	feed, err := s.posts.FollowingFeed(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, feed, 3)
	assert.Equal(t, "p2", feed[0].ID)
	assert.Equal(t, "p0", feed[2].ID)

	userFeed, err := s.posts.UserFeed(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, userFeed, 3)

	empty, err := s.posts.FollowingFeed(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_SuggestedUsersEmptyWhenFollowingEveryone(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	me := s.signup(t, "me")
	for _, name := range []string{"u1", "u2", "u3"} {
		other := s.signup(t, name)
		_, err := s.users.ToggleFollow(ctx, me.ID, other.ID)
		require.NoError(t, err)
	}

	suggested, err := s.users.SuggestedUsers(ctx, me.ID)
	require.NoError(t, err)
	assert.Empty(t, suggested)
}

func TestStore_DeletePostDestroysImage(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	bob := s.signup(t, "bob")

	post, err := s.posts.CreatePost(ctx, bob.ID, posts.CreatePostRequest{Img: "data:image/png;base64,AAAA"})
	require.NoError(t, err)

	require.NoError(t, s.posts.DeletePost(ctx, bob.ID, post.ID))
	assert.Equal(t, []string{"img1"}, s.assets.destroyed)

	_, err = s.store.Posts().GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, posts.ErrNotFound)
}

func TestStore_ConcurrentTogglesByDistinctUsers(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	const n = 20
	target := s.signup(t, "target")
	post, err := s.posts.CreatePost(ctx, target.ID, posts.CreatePostRequest{Text: "hello"})
	require.NoError(t, err)

	others := make([]*users.User, n)
	for i := range others {
		others[i] = s.signup(t, fmt.Sprintf("user%d", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 3*n+2)
	for _, u := range others {
		wg.Add(3)
		go func(id string) {
			defer wg.Done()
			_, err := s.posts.ToggleLike(ctx, id, post.ID)
			errs <- err
		}(u.ID)
		go func(id string) {
			defer wg.Done()
			_, err := s.users.ToggleFollow(ctx, id, target.ID)
			errs <- err
		}(u.ID)
		go func(id string) {
			defer wg.Done()
			_, err := s.posts.Comment(ctx, id, post.ID, "hi from "+id)
			errs <- err
		}(u.ID)
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.posts.ToggleLike(ctx, target.ID, post.ID)
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := s.users.UpdateProfile(ctx, target.ID, users.UpdateProfileRequest{Bio: "busy"})
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	gotPost, err := s.store.Posts().GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, gotPost.Likes, n+1)
	assert.Len(t, gotPost.Comments, n)

	gotTarget, err := s.store.Users().GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, "busy", gotTarget.Bio)
	assert.Len(t, gotTarget.Followers, n)
	assert.Equal(t, sets.IDSet{post.ID}, gotTarget.LikedPosts)

	for _, u := range others {
		got, err := s.store.Users().GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.LikedPosts.Has(post.ID), "likedPosts agrees with likes for %s", u.Username)
		assert.True(t, gotPost.Likes.Has(u.ID))
		assert.True(t, got.Following.Has(target.ID), "following agrees with followers for %s", u.Username)
		assert.True(t, gotTarget.Followers.Has(u.ID))
	}

	list, err := s.store.Notifications().ListByRecipient(ctx, target.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2*n+1)
}

func TestPostRepo_AddLikeIsIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Users().Create(ctx, &users.User{ID: "u1", Username: "alice", Email: "a@x.io"}))
	require.NoError(t, store.Posts().Create(ctx, &posts.Post{ID: "p1", UserID: "u1", Text: "hi"}))

	for i := 0; i < 2; i++ {
		likes, err := store.Posts().AddLike(ctx, "p1", "u1", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, likes)
	}

	likes, err := store.Posts().RemoveLike(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.NotNil(t, likes)
	assert.Empty(t, likes)

	_, err = store.Posts().AddLike(ctx, "missing", "u1", nil)
	assert.ErrorIs(t, err, posts.ErrNotFound)
	_, err = store.Posts().AddLike(ctx, "p1", "missing", nil)
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestUserRepo_UniqueIndexes(t *testing.T) {
	store := NewStore()
	repo := store.Users()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &users.User{ID: "1", Username: "alice", Email: "a@x.io"}))
	assert.ErrorIs(t, repo.Create(ctx, &users.User{ID: "2", Username: "alice", Email: "b@x.io"}), users.ErrUsernameTaken)
	assert.ErrorIs(t, repo.Create(ctx, &users.User{ID: "3", Username: "bob", Email: "a@x.io"}), users.ErrEmailTaken)
}

func TestUserRepo_ReturnsCopies(t *testing.T) {
	store := NewStore()
	repo := store.Users()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &users.User{ID: "1", Username: "alice", Email: "a@x.io", Following: sets.IDSet{}}))

	u, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	u.Following.Add("2")

	again, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.False(t, again.Following.Has("2"), "unsaved mutations must not leak into the store")
}

func TestUserRepo_SampleExcludesCaller(t *testing.T) {
	store := NewStore()
	repo := store.Users()
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("u%d", i)
		require.NoError(t, repo.Create(ctx, &users.User{ID: id, Username: id, Email: id + "@x.io"}))
	}

	sample, err := repo.Sample(ctx, "u0", 10)
	require.NoError(t, err)
	assert.Len(t, sample, 10)
	for _, u := range sample {
		assert.NotEqual(t, "u0", u.ID)
	}
}

func TestNotificationRepo_DeleteByRecipient(t *testing.T) {
	store := NewStore()
	repo := store.Notifications()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, notifications.New("a", "b", notifications.TypeFollow)))
	require.NoError(t, repo.Create(ctx, notifications.New("c", "b", notifications.TypeLike)))
	require.NoError(t, repo.Create(ctx, notifications.New("b", "a", notifications.TypeFollow)))

	deleted, err := repo.DeleteByRecipient(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	left, err := repo.ListByRecipient(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

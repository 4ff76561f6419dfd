package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"Murmur/internal/core/assets"
	"Murmur/internal/core/notifications"
	"Murmur/internal/core/sets"
)

// MockUserRepository is a mock implementation of Repository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Sample(ctx context.Context, excludeID string, size int) ([]*User, error) {
	args := m.Called(ctx, excludeID, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*User), args.Error(1)
}

func (m *MockUserRepository) AddFollow(ctx context.Context, followerID, targetID string, n *notifications.Notification) error {
	args := m.Called(ctx, followerID, targetID, n)
	return args.Error(0)
}

func (m *MockUserRepository) RemoveFollow(ctx context.Context, followerID, targetID string) error {
	args := m.Called(ctx, followerID, targetID)
	return args.Error(0)
}

// MockAssetHost is a mock implementation of assets.Host
type MockAssetHost struct {
	mock.Mock
}

func (m *MockAssetHost) Upload(ctx context.Context, dataURI string) (string, error) {
	args := m.Called(ctx, dataURI)
	return args.String(0), args.Error(1)
}

func (m *MockAssetHost) Destroy(ctx context.Context, publicID string) error {
	args := m.Called(ctx, publicID)
	return args.Error(0)
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(ids ...string) {
	r.ids = append(r.ids, ids...)
}

func newTestService(repo Repository, host assets.Host) (Service, *recordingInvalidator) {
	inv := &recordingInvalidator{}
	return NewService(repo, host, inv, bcrypt.MinCost, nil), inv
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	valErr, ok := AsValidationError(err)
	require.True(t, ok, "expected ValidationError, got %v", err)
	return valErr.Message
}

func TestUserService_Signup_Success(t *testing.T) {
	repo := new(MockUserRepository)
	service, _ := newTestService(repo, new(MockAssetHost))
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "alice").Return(nil, ErrUserNotFound)
	repo.On("GetByEmail", ctx, "a@b.co").Return(nil, ErrUserNotFound)
	repo.On("Create", ctx, mock.AnythingOfType("*users.User")).Return(nil)

	user, err := service.Signup(ctx, SignupRequest{
		FullName: "Alice A",
		Username: "alice",
		Email:    "a@b.co",
		Password: "abcde",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "abcde", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("abcde")))
	assert.NotNil(t, user.Followers)
	assert.NotNil(t, user.Following)
	assert.NotNil(t, user.LikedPosts)
	repo.AssertExpectations(t)
}

func TestUserService_Signup_ValidationOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("bad email is checked first", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))

		_, err := service.Signup(ctx, SignupRequest{Username: "taken", Email: "bad@", Password: "x"})
		assert.Equal(t, "Invalid email format", validationMessage(t, err))
		repo.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	})

	t.Run("username before email", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByUsername", ctx, "taken").Return(&User{ID: "u1"}, nil)

		_, err := service.Signup(ctx, SignupRequest{Username: "taken", Email: "a@b.co", Password: "x"})
		assert.Equal(t, "Username already exists", validationMessage(t, err))
		repo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("email before password", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByUsername", ctx, "new").Return(nil, ErrUserNotFound)
		repo.On("GetByEmail", ctx, "a@b.co").Return(&User{ID: "u1"}, nil)

		_, err := service.Signup(ctx, SignupRequest{Username: "new", Email: "a@b.co", Password: "x"})
		assert.Equal(t, "Email already exists", validationMessage(t, err))
	})

	t.Run("short password", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByUsername", ctx, "new").Return(nil, ErrUserNotFound)
		repo.On("GetByEmail", ctx, "a@b.co").Return(nil, ErrUserNotFound)

		_, err := service.Signup(ctx, SignupRequest{Username: "new", Email: "a@b.co", Password: "abcd"})
		assert.Equal(t, "Password must be at least 5 characters long", validationMessage(t, err))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestUserService_Signup_UniqueRace(t *testing.T) {
	repo := new(MockUserRepository)
	service, _ := newTestService(repo, new(MockAssetHost))
	ctx := context.Background()

	repo.On("GetByUsername", ctx, "alice").Return(nil, ErrUserNotFound)
	repo.On("GetByEmail", ctx, "a@b.co").Return(nil, ErrUserNotFound)
	repo.On("Create", ctx, mock.Anything).Return(ErrEmailTaken)

	_, err := service.Signup(ctx, SignupRequest{Username: "alice", Email: "a@b.co", Password: "abcde"})
	assert.Equal(t, "Email already exists", validationMessage(t, err))
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	stored := &User{ID: "u1", Username: "alice", PasswordHash: hashed(t, "correct-horse")}

	t.Run("success", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByUsername", ctx, "alice").Return(stored, nil)

		user, err := service.Login(ctx, LoginRequest{Username: "alice", Password: "correct-horse"})
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByUsername", ctx, "alice").Return(stored, nil)

		_, err := service.Login(ctx, LoginRequest{Username: "alice", Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByUsername", ctx, "ghost").Return(nil, ErrUserNotFound)

		_, err := service.Login(ctx, LoginRequest{Username: "ghost", Password: "whatever"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("database error is not a credential error", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByUsername", ctx, "alice").Return(nil, errors.New("db down"))

		_, err := service.Login(ctx, LoginRequest{Username: "alice", Password: "whatever"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserService_ToggleFollow(t *testing.T) {
	ctx := context.Background()

	t.Run("cannot follow self", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))

		_, err := service.ToggleFollow(ctx, "u1", "u1")
		assert.Equal(t, "You can't follow/unfollow yourself", validationMessage(t, err))
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("missing target", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByID", ctx, "ghost").Return(nil, ErrUserNotFound)

		_, err := service.ToggleFollow(ctx, "u1", "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("follow adds the edge with a notification", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, inv := newTestService(repo, new(MockAssetHost))

		repo.On("GetByID", ctx, "alice").Return(&User{ID: "alice", Following: sets.IDSet{}}, nil)
		repo.On("GetByID", ctx, "bob").Return(&User{ID: "bob", Followers: sets.IDSet{}}, nil)

		var saved *notifications.Notification
		repo.On("AddFollow", ctx, "alice", "bob", mock.AnythingOfType("*notifications.Notification")).
			Run(func(args mock.Arguments) {
				saved = args.Get(3).(*notifications.Notification)
			}).
			Return(nil)

		action, err := service.ToggleFollow(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, Followed, action)
		require.NotNil(t, saved)
		assert.Equal(t, notifications.TypeFollow, saved.Type)
		assert.Equal(t, "alice", saved.From)
		assert.Equal(t, "bob", saved.To)
		assert.ElementsMatch(t, []string{"alice", "bob"}, inv.ids)
		repo.AssertNotCalled(t, "RemoveFollow", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unfollow removes the edge without a notification", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, inv := newTestService(repo, new(MockAssetHost))

		repo.On("GetByID", ctx, "alice").Return(&User{ID: "alice", Following: sets.IDSet{"bob"}}, nil)
		repo.On("GetByID", ctx, "bob").Return(&User{ID: "bob", Followers: sets.IDSet{"alice"}}, nil)
		repo.On("RemoveFollow", ctx, "alice", "bob").Return(nil)

		action, err := service.ToggleFollow(ctx, "alice", "bob")
		require.NoError(t, err)
		assert.Equal(t, Unfollowed, action)
		assert.ElementsMatch(t, []string{"alice", "bob"}, inv.ids)
		repo.AssertNotCalled(t, "AddFollow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, inv := newTestService(repo, new(MockAssetHost))

		repo.On("GetByID", ctx, "alice").Return(&User{ID: "alice"}, nil)
		repo.On("GetByID", ctx, "bob").Return(&User{ID: "bob"}, nil)
		repo.On("AddFollow", ctx, "alice", "bob", mock.Anything).Return(errors.New("db down"))

		_, err := service.ToggleFollow(ctx, "alice", "bob")
		assert.Error(t, err)
		assert.Empty(t, inv.ids)
	})
}

func TestUserService_SuggestedUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("drops followed users and caps at four", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))

		me := &User{ID: "me", Following: sets.IDSet{"u1", "u3"}}
		sample := []*User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}, {ID: "u4"}, {ID: "u5"}, {ID: "u6"}, {ID: "u7"}}
		repo.On("GetByID", ctx, "me").Return(me, nil)
		repo.On("Sample", ctx, "me", 10).Return(sample, nil)

		got, err := service.SuggestedUsers(ctx, "me")
		require.NoError(t, err)
		ids := make([]string, 0, len(got))
		for _, u := range got {
			ids = append(ids, u.ID)
		}
		assert.Equal(t, []string{"u2", "u4", "u5", "u6"}, ids)
	})

	t.Run("following everyone yields empty", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))

		me := &User{ID: "me", Following: sets.IDSet{"u1", "u2"}}
		repo.On("GetByID", ctx, "me").Return(me, nil)
		repo.On("Sample", ctx, "me", 10).Return([]*User{{ID: "u1"}, {ID: "u2"}}, nil)

		got, err := service.SuggestedUsers(ctx, "me")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestUserService_UpdateProfile_Passwords(t *testing.T) {
	ctx := context.Background()

	newUser := func() *User {
		return &User{ID: "u1", Username: "alice", Email: "a@b.co", PasswordHash: hashed(t, "oldpass")}
	}

	t.Run("only one password given", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByID", ctx, "u1").Return(newUser(), nil)

		_, err := service.UpdateProfile(ctx, "u1", UpdateProfileRequest{NewPassword: "newpass"})
		assert.Equal(t, "Please provide both current password and new password", validationMessage(t, err))
	})

	t.Run("wrong current password", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByID", ctx, "u1").Return(newUser(), nil)

		_, err := service.UpdateProfile(ctx, "u1", UpdateProfileRequest{CurrentPassword: "nope", NewPassword: "newpass"})
		assert.Equal(t, "Current password incorrect", validationMessage(t, err))
	})

	t.Run("new password too short", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByID", ctx, "u1").Return(newUser(), nil)

		_, err := service.UpdateProfile(ctx, "u1", UpdateProfileRequest{CurrentPassword: "oldpass", NewPassword: "abcd"})
		assert.Equal(t, "Password must be at least 5 characters long", validationMessage(t, err))
	})

	t.Run("password changed", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByID", ctx, "u1").Return(newUser(), nil)
		repo.On("UpdateProfile", ctx, mock.Anything).Return(nil)

		user, err := service.UpdateProfile(ctx, "u1", UpdateProfileRequest{CurrentPassword: "oldpass", NewPassword: "abcde"})
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("abcde")))
	})
}

func TestUserService_UpdateProfile_Fields(t *testing.T) {
	ctx := context.Background()

	t.Run("empty fields are left unchanged", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, inv := newTestService(repo, new(MockAssetHost))
		repo.On("GetByID", ctx, "u1").Return(&User{ID: "u1", FullName: "Alice", Bio: "old bio", Username: "alice"}, nil)
		repo.On("UpdateProfile", ctx, mock.Anything).Return(nil)

		user, err := service.UpdateProfile(ctx, "u1", UpdateProfileRequest{Link: "https://alice.dev"})
		require.NoError(t, err)
		assert.Equal(t, "Alice", user.FullName)
		assert.Equal(t, "old bio", user.Bio)
		assert.Equal(t, "https://alice.dev", user.Link)
		assert.Equal(t, []string{"u1"}, inv.ids)
	})

	t.Run("taken username", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByID", ctx, "u1").Return(&User{ID: "u1", Username: "alice"}, nil)
		repo.On("GetByUsername", ctx, "bob").Return(&User{ID: "u2", Username: "bob"}, nil)

		_, err := service.UpdateProfile(ctx, "u1", UpdateProfileRequest{Username: "bob"})
		assert.Equal(t, "Username already exists", validationMessage(t, err))
	})

	t.Run("malformed email", func(t *testing.T) {
		repo := new(MockUserRepository)
		service, _ := newTestService(repo, new(MockAssetHost))
		repo.On("GetByID", ctx, "u1").Return(&User{ID: "u1", Email: "a@b.co"}, nil)

		_, err := service.UpdateProfile(ctx, "u1", UpdateProfileRequest{Email: "bad@"})
		assert.Equal(t, "Invalid email format", validationMessage(t, err))
	})
}

func TestUserService_UpdateProfile_ReplacesImageAfterDestroy(t *testing.T) {
	repo := new(MockUserRepository)
	host := new(MockAssetHost)
	service, _ := newTestService(repo, host)
	ctx := context.Background()

	repo.On("GetByID", ctx, "u1").Return(&User{
		ID:         "u1",
		ProfileImg: "https://res.cloudinary.com/demo/image/upload/v1/oldkey.jpg",
	}, nil)
	repo.On("UpdateProfile", ctx, mock.Anything).Return(nil)

	var calls []string
	host.On("Destroy", ctx, "oldkey").Run(func(mock.Arguments) { calls = append(calls, "destroy") }).Return(nil)
	host.On("Upload", ctx, "data:image/png;base64,AAAA").
		Run(func(mock.Arguments) { calls = append(calls, "upload") }).
		Return("https://res.cloudinary.com/demo/image/upload/v2/newkey.png", nil)

	user, err := service.UpdateProfile(ctx, "u1", UpdateProfileRequest{ProfileImg: "data:image/png;base64,AAAA"})
	require.NoError(t, err)

	assert.Equal(t, []string{"destroy", "upload"}, calls)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v2/newkey.png", user.ProfileImg)
}

func TestUserService_UpdateProfile_InvalidImage(t *testing.T) {
	repo := new(MockUserRepository)
	host := new(MockAssetHost)
	service, _ := newTestService(repo, host)
	ctx := context.Background()

	repo.On("GetByID", ctx, "u1").Return(&User{ID: "u1"}, nil)
	host.On("Upload", ctx, "not-an-image").Return("", assets.ErrInvalidImage)

	_, err := service.UpdateProfile(ctx, "u1", UpdateProfileRequest{CoverImg: "not-an-image"})
	assert.True(t, IsValidationError(err))
	host.AssertNotCalled(t, "Destroy", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything)
}

func TestUser_PublicOmitsPasswordHash(t *testing.T) {
	u := &User{ID: "u1", Username: "alice", PasswordHash: "secret-hash"}
	p := u.Public()

	assert.Equal(t, "u1", p.ID)
	assert.NotNil(t, p.Followers)
	assert.NotNil(t, p.Following)
	assert.NotNil(t, p.LikedPosts)
}

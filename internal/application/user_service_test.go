package application

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/memory"
	"github.com/oksasatya/go-task-manager/pkg/cache"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

type userFixture struct {
	users    *memory.UserRepository
	tasks    *memory.TaskRepository
	sessions *mapSessions
	notifier *fakeNotifier
	cache    *cache.Memory
	svc      *UserService
}

func newUserFixture() *userFixture {
	log := helpers.NewNopLogger()
	f := &userFixture{
		tasks:    memory.NewTaskRepository(),
		sessions: newMapSessions(),
		notifier: &fakeNotifier{},
		cache:    cache.NewMemory(time.Minute),
	}
	f.users = memory.NewUserRepository(f.tasks)
	otp := NewOTPService(f.users, f.notifier, f.sessions, log)
	taskSvc := NewTaskService(f.tasks, f.cache, time.Minute, nil, log)
	f.svc = NewUserService(f.users, testJWT(), f.sessions, time.Hour, otp, taskSvc, nil, "", log)
	return f
}

func (f *userFixture) register(t *testing.T, email string) *entity.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{Name: "Ann", Email: email, Password: "password1"})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	f := newUserFixture()
	u := f.register(t, " Ann@Example.COM ")

	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, entity.RoleUser, u.Role)
	assert.NotEqual(t, "password1", u.Password)
	require.Len(t, f.notifier.otps, 1)
	assert.Equal(t, "verify", f.notifier.otps[0].Purpose)

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "B", Email: "ANN@example.com", Password: "password2"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestRegister_PasswordOverByteLimitIsInvalidInput(t *testing.T) {
	f := newUserFixture()
	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "C", Email: "c@example.com", Password: strings.Repeat("é", 40)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegister_NotifierFailureStillCreates(t *testing.T) {
	f := newUserFixture()
	f.notifier.err = errBoom

	u := f.register(t, "c@example.com")
	assert.NotEmpty(t, u.ID)
}

func TestLogin(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	f.register(t, "ann@example.com")

	u, pair, err := f.svc.Login(ctx, "ANN@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := f.svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)

	_, pair2, err := f.svc.Login(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Empty(t, pair2.AccessToken)

	_, _, err = f.svc.Login(ctx, "ghost@example.com", "password1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthenticate_RequiresLiveSession(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	u := f.register(t, "ann@example.com")

	_, pair, err := f.svc.Login(ctx, "ann@example.com", "password1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, u.ID))
	_, err = f.svc.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRefresh_RotatesSession(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	f.register(t, "ann@example.com")

	_, first, err := f.svc.Login(ctx, "ann@example.com", "password1")
	require.NoError(t, err)

	_, second, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)

	_, err = f.svc.Authenticate(ctx, second.AccessToken)
	assert.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, _, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, _, err = f.svc.Refresh(ctx, second.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUpdateProfile(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	u := f.register(t, "ann@example.com")

	got, err := f.svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Name: "  Annie "})
	require.NoError(t, err)
	assert.Equal(t, "Annie", got.Name)

	_, err = f.svc.UpdateProfile(ctx, "missing", UpdateProfileInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUploadAvatar(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	u := f.register(t, "ann@example.com")

	_, err := f.svc.UploadAvatar(ctx, u.ID, strings.NewReader("img"), "me.png", "image/png")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	var gotPath string
	f.svc.upload = func(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
		gotPath = objectPath
		_, _ = io.ReadAll(r)
		return "https://storage.googleapis.com/bucket/" + objectPath, nil
	}
	url, err := f.svc.UploadAvatar(ctx, u.ID, strings.NewReader("img"), "Me.PNG", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotPath, "avatars/"+u.ID+"/"))
	assert.True(t, strings.HasSuffix(gotPath, ".png"))

	p, err := f.svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, url, p.AvatarURL)
}

func TestDeleteAccount_CascadesAndInvalidates(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	u := f.register(t, "ann@example.com")
	_, pair, err := f.svc.Login(ctx, "ann@example.com", "password1")
	require.NoError(t, err)

	task, err := f.svc.Tasks.Create(ctx, u.ID, CreateTaskInput{Title: "one"})
	require.NoError(t, err)
	_, err = f.svc.Tasks.List(ctx, u.ID, ListTasksQuery{})
	require.NoError(t, err)
	_, err = f.svc.Tasks.Get(ctx, u.ID, task.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAccount(ctx, u.ID))

	var cached []entity.Task
	ok, _ := f.cache.Get(ctx, allTasksKey(u.ID), &cached)
	assert.False(t, ok)
	var one entity.Task
	ok, _ = f.cache.Get(ctx, taskKey(task.ID, u.ID), &one)
	assert.False(t, ok)

	left, err := f.tasks.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	_, err = f.svc.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, f.svc.DeleteAccount(ctx, u.ID), ErrNotFound)
}

func TestSetRole(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	u := f.register(t, "ann@example.com")
	_, pair, err := f.svc.Login(ctx, "ann@example.com", "password1")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SetRole(ctx, u.ID, entity.RoleUnknown), ErrInvalidInput)
	require.NoError(t, f.svc.SetRole(ctx, u.ID, entity.RoleAdmin))

	_, err = f.svc.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, pair, err = f.svc.Login(ctx, "ann@example.com", "password1")
	require.NoError(t, err)
	claims, err := f.svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)

	assert.ErrorIs(t, f.svc.SetRole(ctx, "missing", entity.RoleUser), ErrNotFound)
}

func TestListUsers(t *testing.T) {
	f := newUserFixture()
	for _, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		f.register(t, e)
	}
	users, total, err := f.svc.ListUsers(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, users, 1)
}

package application

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/infrastructure/memory"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

type otpFixture struct {
	repo     *memory.UserRepository
	notifier *fakeNotifier
	sessions *mapSessions
	clock    *fixedClock
	svc      *OTPService
	user     *entity.User
}

func newOTPFixture(t *testing.T) *otpFixture {
	t.Helper()
	f := &otpFixture{
		repo:     memory.NewUserRepository(nil),
		notifier: &fakeNotifier{},
		sessions: newMapSessions(),
		clock:    &fixedClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.svc = NewOTPService(f.repo, f.notifier, f.sessions, helpers.NewNopLogger())
	f.svc.now = f.clock.now

	hash, err := helpers.HashPassword("old-password")
	require.NoError(t, err)
	f.user = &entity.User{Email: "ann@example.com", Name: "Ann", Password: hash, Role: entity.RoleUser}
	require.NoError(t, f.repo.Create(context.Background(), f.user))
	return f
}

func (f *otpFixture) reload(t *testing.T) *entity.User {
	t.Helper()
	u, err := f.repo.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	return u
}

func TestIssue_CodeAndExpiry(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	code, err := f.svc.Issue(ctx, f.user, entity.PurposeVerify)
	require.NoError(t, err)
	n, err := strconv.Atoi(code)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 100000)
	assert.LessOrEqual(t, n, 999999)

	stored := f.reload(t)
	assert.Equal(t, code, stored.VerifyCode)
	assert.Equal(t, f.clock.t.Add(24*time.Hour), stored.VerifyExpiry)
	assert.Equal(t, code, f.notifier.last().Code)
	assert.Equal(t, "verify", f.notifier.last().Purpose)

	code, err = f.svc.Issue(ctx, f.user, entity.PurposeReset)
	require.NoError(t, err)
	stored = f.reload(t)
	assert.Equal(t, code, stored.ResetCode)
	assert.Equal(t, f.clock.t.Add(15*time.Minute), stored.ResetExpiry)
}

func TestIssue_NotifyFailureKeepsCode(t *testing.T) {
	f := newOTPFixture(t)
	f.notifier.err = errBoom

	code, err := f.svc.Issue(context.Background(), f.user, entity.PurposeReset)
	assert.ErrorIs(t, err, ErrNotifyFailed)
	assert.Equal(t, code, f.reload(t).ResetCode)
}

func TestIssue_AlreadyVerified(t *testing.T) {
	f := newOTPFixture(t)
	f.user.IsVerified = true

	_, err := f.svc.Issue(context.Background(), f.user, entity.PurposeVerify)
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestVerifyEmail_Success(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	code, err := f.svc.Issue(ctx, f.user, entity.PurposeVerify)
	require.NoError(t, err)

	_, err = f.svc.VerifyEmail(ctx, f.user.ID, code)
	require.NoError(t, err)

	stored := f.reload(t)
	assert.True(t, stored.IsVerified)
	assert.Empty(t, stored.VerifyCode)
	assert.True(t, stored.VerifyExpiry.IsZero())
	assert.Equal(t, []string{"ann@example.com"}, f.notifier.welcomes)

	_, err = f.svc.VerifyEmail(ctx, f.user.ID, code)
	assert.ErrorIs(t, err, entity.ErrInvalidCode)
	assert.Len(t, f.notifier.welcomes, 1)
}

func TestValidate_ConsumedCodeIsInvalid(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	code, err := f.svc.Issue(ctx, f.user, entity.PurposeReset)
	require.NoError(t, err)
	require.NoError(t, f.svc.ResetPassword(ctx, "ANN@example.com", code, "new-password"))

	err = f.svc.ResetPassword(ctx, "ann@example.com", code, "other-password")
	assert.ErrorIs(t, err, entity.ErrInvalidCode)

	stored := f.reload(t)
	assert.True(t, helpers.CompareHashAndPassword(stored.Password, "new-password"))
	assert.Empty(t, stored.ResetCode)
}

func TestValidate_ExactExpiryIsExpired(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	code, err := f.svc.Issue(ctx, f.user, entity.PurposeReset)
	require.NoError(t, err)

	f.clock.t = f.clock.t.Add(entity.ResetCodeTTL)
	err = f.svc.ResetPassword(ctx, "ann@example.com", code, "new-password")
	assert.ErrorIs(t, err, entity.ErrExpired)

	stored := f.reload(t)
	assert.True(t, helpers.CompareHashAndPassword(stored.Password, "old-password"))
	assert.Equal(t, code, stored.ResetCode)
}

func TestValidate_WrongCode(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	_, err := f.svc.Issue(ctx, f.user, entity.PurposeVerify)
	require.NoError(t, err)

	_, err = f.svc.VerifyEmail(ctx, f.user.ID, "000000")
	assert.ErrorIs(t, err, entity.ErrInvalidCode)
	assert.False(t, f.reload(t).IsVerified)
}

func TestResetPassword_RevokesSession(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()
	require.NoError(t, f.sessions.Save(ctx, Session{UserID: f.user.ID, SID: "s1"}, time.Hour))

	code, err := f.svc.IssueByEmail(ctx, "Ann@Example.com", entity.PurposeReset)
	require.NoError(t, err)
	require.NoError(t, f.svc.ResetPassword(ctx, "ann@example.com", code, "new-password"))

	sess, err := f.sessions.Get(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestIssueByEmail_Unknown(t *testing.T) {
	f := newOTPFixture(t)
	_, err := f.svc.IssueByEmail(context.Background(), "nobody@example.com", entity.PurposeReset)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidate_ConcurrentConsumersOneWins(t *testing.T) {
	f := newOTPFixture(t)
	ctx := context.Background()

	code, err := f.svc.Issue(ctx, f.user, entity.PurposeReset)
	require.NoError(t, err)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := f.repo.GetByID(ctx, f.user.ID)
			if err != nil {
				return
			}
			if err := f.svc.Validate(ctx, u, entity.PurposeReset, code, "pw-"+strconv.Itoa(n)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

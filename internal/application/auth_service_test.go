package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-auth-portal/internal/domain/repository"
)

const goodCode = "123456"

type fakeUsers struct {
	mu      sync.Mutex
	byID    map[int64]*entity.User
	nextID  int64
	inserts int
	updates []repo.UserPatch

	// hideFromLookup makes FindByEmail miss, simulating a concurrent registration
	// racing past the pre-check.
	hideFromLookup bool
	updateErr      error
	findErr        error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*entity.User{}}
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.hideFromLookup {
		return nil, repo.ErrNotFound
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Insert(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return repo.ErrDuplicate
		}
	}
	f.nextID++
	f.inserts++
	u.ID = f.nextID
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) Update(_ context.Context, id int64, p repo.UserPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	f.updates = append(f.updates, p)
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.TOTPSecret != nil {
		if *p.TOTPSecret == "" {
			u.TOTPSecret = nil
		} else {
			s := *p.TOTPSecret
			u.TOTPSecret = &s
		}
	}
	if p.TOTPEnabled != nil {
		u.TOTPEnabled = *p.TOTPEnabled
	}
	if p.TermsAccepted != nil {
		u.TermsAccepted = *p.TermsAccepted
	}
	if p.LastSeen != nil {
		t := *p.LastSeen
		u.LastSeen = &t
	}
	return nil
}

func (f *fakeUsers) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts + len(f.updates)
}

func (f *fakeUsers) stored(t *testing.T, id int64) *entity.User {
	t.Helper()
	u, err := f.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (fakeHasher) Compare(hash, plain string) bool  { return hash == "hashed:"+plain }

// fakeOTP issues SECRET1, SECRET2, ... and accepts goodCode for any secret.
type fakeOTP struct {
	generated int
}

func (f *fakeOTP) Generate(account string) (OTPKey, error) {
	f.generated++
	return f.Key(fmt.Sprintf("SECRET%d", f.generated), account)
}

func (f *fakeOTP) Key(secret, account string) (OTPKey, error) {
	return OTPKey{Secret: secret, URI: "otpauth://totp/Test:" + account + "?secret=" + secret, QRCode: "data:image/png;base64,"}, nil
}

func (f *fakeOTP) Validate(code, secret string) bool { return secret != "" && code == goodCode }

type recordedEvents struct {
	mu    sync.Mutex
	types []string
	err   error
}

func (r *recordedEvents) Publish(_ context.Context, ev entity.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, ev.Type)
	return r.err
}

type fixture struct {
	svc    *Service
	users  *fakeUsers
	otp    *fakeOTP
	events *recordedEvents
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	users := newFakeUsers()
	otp := &fakeOTP{}
	events := &recordedEvents{}
	svc := NewService(users, fakeHasher{}, otp, events, logger, true)

	var n int
	svc.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return fixed }
	return &fixture{svc: svc, users: users, otp: otp, events: events}
}

func allTerms() Agreement {
	return Agreement{TermOne: "on", TermTwo: "on", TermThree: "on", TermFour: "on"}
}

func validRegistration(email string) RegisterInput {
	return RegisterInput{
		Email:     email,
		Password:  "correct-horse",
		Confirm:   "correct-horse",
		Name:      "Ada",
		Agreement: allTerms(),
	}
}

func anonymous() *entity.Session {
	return entity.NewSession("anon", time.Now())
}

// seed registers an account that has accepted the terms.
func (f *fixture) seed(t *testing.T, email string) *entity.User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), anonymous(), validRegistration(email))
	require.NoError(t, err)
	accepted := true
	require.NoError(t, f.users.Update(context.Background(), u.ID, repo.UserPatch{TermsAccepted: &accepted}))
	return f.users.stored(t, u.ID)
}

// enroll leaves u with 2FA enabled.
func (f *fixture) enroll(t *testing.T, u *entity.User) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.BeginEnrollment(ctx, u)
	require.NoError(t, err)
	_, err = f.svc.ConfirmEnrollment(ctx, u, goodCode)
	require.NoError(t, err)
}

func TestRegisterCreatesUserAndSignsIn(t *testing.T) {
	f := newFixture(t)
	sess := anonymous()

	u, err := f.svc.Register(context.Background(), sess, validRegistration("  Ada@Example.COM "))
	require.NoError(t, err)

	stored := f.users.stored(t, u.ID)
	assert.Equal(t, "ada@example.com", stored.Email)
	assert.Equal(t, "hashed:correct-horse", stored.PasswordHash)
	assert.Equal(t, entity.RoleUser, stored.Role)
	assert.Equal(t, entity.DefaultTimezone, stored.Timezone)
	assert.NotEmpty(t, stored.Recovery)
	assert.False(t, stored.TermsAccepted)
	assert.False(t, stored.TOTPEnabled)
	assert.Nil(t, stored.TOTPSecret)

	assert.True(t, sess.Authenticated())
	assert.Equal(t, u.ID, sess.UserID)
	assert.True(t, sess.TwoFactorVerified)
	assert.NotEqual(t, "anon", sess.ID)
	assert.Equal(t, "anon", sess.ReplacedID())
	assert.Equal(t, []string{entity.EventRegistered}, f.events.types)
}

func TestRegisterValidationRejectsWithoutWrites(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*RegisterInput)
		field string
	}{
		{"mismatched confirmation", func(in *RegisterInput) { in.Confirm = "correct-horsE" }, "confirm"},
		{"invalid email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password, in.Confirm = "short", "short" }, "password"},
		{"long password", func(in *RegisterInput) {
			in.Password = strings.Repeat("x", 33)
			in.Confirm = in.Password
		}, "password"},
		{"blank name", func(in *RegisterInput) { in.Name = "   " }, "name"},
		{"partial terms", func(in *RegisterInput) { in.TermThree = "" }, "termThree"},
		{"unticked terms", func(in *RegisterInput) { in.TermFour = "false" }, "termFour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			sess := anonymous()
			in := validRegistration("ada@example.com")
			tt.edit(&in)

			_, err := f.svc.Register(context.Background(), sess, in)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.NotEmpty(t, ve.Message())
			assert.Zero(t, f.users.writes())
			assert.False(t, sess.Authenticated())
		})
	}
}

func TestRegisterPasswordBoundsInclusive(t *testing.T) {
	for _, n := range []int{8, 32} {
		f := newFixture(t)
		in := validRegistration("ada@example.com")
		in.Password = strings.Repeat("p", n)
		in.Confirm = in.Password
		_, err := f.svc.Register(context.Background(), anonymous(), in)
		assert.NoError(t, err, "length %d", n)
	}
}

func TestRegisterTwiceSameEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, anonymous(), validRegistration("ada@example.com"))
	require.NoError(t, err)

	second := anonymous()
	_, err = f.svc.Register(ctx, second, validRegistration("ADA@example.com"))
	require.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, 1, f.users.inserts)
	assert.Len(t, f.users.byID, 1)
	assert.False(t, second.Authenticated())
}

func TestRegisterDuplicateCaughtByStoreConstraint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, anonymous(), validRegistration("ada@example.com"))
	require.NoError(t, err)

	f.users.hideFromLookup = true
	_, err = f.svc.Register(ctx, anonymous(), validRegistration("ada@example.com"))
	require.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Len(t, f.users.byID, 1)
}

func TestRegisterClosed(t *testing.T) {
	f := newFixture(t)
	f.svc.RegistrationEnabled = false

	_, err := f.svc.Register(context.Background(), anonymous(), validRegistration("ada@example.com"))
	require.ErrorIs(t, err, ErrRegistrationClosed)
	assert.Zero(t, f.users.writes())
}

func TestRegisterStoreFailureIsUnexpected(t *testing.T) {
	f := newFixture(t)
	f.users.findErr = errors.New("connection refused")

	_, err := f.svc.Register(context.Background(), anonymous(), validRegistration("ada@example.com"))
	require.Error(t, err)
	assert.False(t, IsRecoverable(err))
	assert.Zero(t, f.users.writes())
}

func TestLoginNoAccountOracle(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "ada@example.com")

	_, errWrong := f.svc.Login(context.Background(), anonymous(), "ada@example.com", "wrong-password")
	_, errUnknown := f.svc.Login(context.Background(), anonymous(), "nobody@example.com", "correct-horse")

	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestLoginWithoutTwoFactorIsVerified(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada@example.com")
	sess := anonymous()

	got, err := f.svc.Login(context.Background(), sess, "ADA@example.com", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, u.ID, sess.UserID)
	assert.True(t, sess.TwoFactorVerified)
	assert.NotEqual(t, "anon", sess.ID)
	require.NotNil(t, got.LastSeen)
	assert.NotNil(t, f.users.stored(t, u.ID).LastSeen)
}

func TestLoginWithTwoFactorIsPending(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada@example.com")
	f.enroll(t, u)

	sess := anonymous()
	_, err := f.svc.Login(context.Background(), sess, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	assert.True(t, sess.Authenticated())
	assert.False(t, sess.TwoFactorVerified)
}

func TestLoginSurvivesLastSeenFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "ada@example.com")
	f.users.updateErr = errors.New("disk full")
	f.events.err = errors.New("broker down")

	sess := anonymous()
	u, err := f.svc.Login(context.Background(), sess, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Nil(t, u.LastSeen)
	assert.True(t, sess.Authenticated())
}

func TestVerifyChallenge(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada@example.com")
	f.enroll(t, u)
	ctx := context.Background()

	sess := anonymous()
	_, err := f.svc.Login(ctx, sess, "ada@example.com", "correct-horse")
	require.NoError(t, err)

	for _, bad := range []string{"000000", "12345", "abcdef", ""} {
		require.ErrorIs(t, f.svc.VerifyChallenge(ctx, sess, u, bad), ErrInvalidOneTimeCode)
		assert.False(t, sess.TwoFactorVerified)
	}

	require.NoError(t, f.svc.VerifyChallenge(ctx, sess, u, " "+goodCode+" "))
	assert.True(t, sess.TwoFactorVerified)
}

func TestVerifyChallengeWithoutEnrollment(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada@example.com")
	sess := anonymous()
	sess.SignIn("s1", u.ID, false)

	require.NoError(t, f.svc.VerifyChallenge(context.Background(), sess, u, ""))
	assert.True(t, sess.TwoFactorVerified)
}

func TestEnrollmentFlow(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada@example.com")
	ctx := context.Background()

	first, err := f.svc.BeginEnrollment(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "SECRET1", first.Secret)
	assert.True(t, u.EnrollmentInProgress())
	assert.Equal(t, "SECRET1", f.users.stored(t, u.ID).Secret())

	// restarting replaces the unconfirmed secret
	second, err := f.svc.BeginEnrollment(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, "SECRET2", second.Secret)
	assert.Equal(t, "SECRET2", f.users.stored(t, u.ID).Secret())

	// a wrong code keeps the same secret
	again, err := f.svc.ConfirmEnrollment(ctx, u, "000000")
	require.ErrorIs(t, err, ErrInvalidOneTimeCode)
	require.NotNil(t, again)
	assert.Equal(t, "SECRET2", again.Secret)
	assert.Equal(t, 2, f.otp.generated)
	assert.False(t, f.users.stored(t, u.ID).TOTPEnabled)

	_, err = f.svc.ConfirmEnrollment(ctx, u, goodCode)
	require.NoError(t, err)
	assert.True(t, u.TOTPEnabled)
	stored := f.users.stored(t, u.ID)
	assert.True(t, stored.TOTPEnabled)
	assert.Equal(t, "SECRET2", stored.Secret())

	_, err = f.svc.BeginEnrollment(ctx, u)
	require.ErrorIs(t, err, ErrAlreadyEnrolled)
	_, err = f.svc.ConfirmEnrollment(ctx, u, goodCode)
	require.ErrorIs(t, err, ErrAlreadyEnrolled)

	enables := 0
	for _, p := range f.users.updates {
		if p.TOTPEnabled != nil && *p.TOTPEnabled {
			enables++
		}
	}
	assert.Equal(t, 1, enables)
	assert.Contains(t, f.events.types, entity.EventTwoFactorEnabled)
}

func TestConfirmEnrollmentNotStarted(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada@example.com")

	_, err := f.svc.ConfirmEnrollment(context.Background(), u, goodCode)
	require.ErrorIs(t, err, ErrEnrollmentNotStarted)
	_, err = f.svc.PendingEnrollment(context.Background(), u)
	require.ErrorIs(t, err, ErrEnrollmentNotStarted)
}

func TestStepUp(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada@example.com")
	ctx := context.Background()

	require.NoError(t, f.svc.StepUp(ctx, u, ""), "no 2fa means no step-up")

	f.enroll(t, u)
	require.ErrorIs(t, f.svc.StepUp(ctx, u, ""), ErrStepUpRequired)
	require.ErrorIs(t, f.svc.StepUp(ctx, u, "000000"), ErrStepUpRequired)
	require.NoError(t, f.svc.StepUp(ctx, u, goodCode))
}

func TestRevokeTwoFactor(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada@example.com")
	f.enroll(t, u)

	require.NoError(t, f.svc.RevokeTwoFactor(context.Background(), u))
	assert.False(t, u.TOTPEnabled)
	assert.Nil(t, u.TOTPSecret)
	stored := f.users.stored(t, u.ID)
	assert.False(t, stored.TOTPEnabled)
	assert.Nil(t, stored.TOTPSecret)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		u := f.seed(t, "ada@example.com")
		err := f.svc.ChangePassword(ctx, u, ChangePasswordInput{Current: "correct-horse", New: "battery-staple", Verify: "battery-staple"})
		require.NoError(t, err)
		assert.Equal(t, "hashed:battery-staple", f.users.stored(t, u.ID).PasswordHash)

		_, err = f.svc.Login(ctx, anonymous(), "ada@example.com", "battery-staple")
		require.NoError(t, err)
	})

	failures := []struct {
		name string
		in   ChangePasswordInput
		want error
	}{
		{"confirmation mismatch", ChangePasswordInput{Current: "correct-horse", New: "battery-staple", Verify: "battery-stapler"}, ErrPasswordMismatch},
		{"wrong current", ChangePasswordInput{Current: "not-my-password", New: "battery-staple", Verify: "battery-staple"}, ErrInvalidCredentials},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.seed(t, "ada@example.com")
			before := len(f.users.updates)
			require.ErrorIs(t, f.svc.ChangePassword(ctx, u, tt.in), tt.want)
			assert.Equal(t, "hashed:correct-horse", f.users.stored(t, u.ID).PasswordHash)
			assert.Equal(t, before, len(f.users.updates))
		})
	}

	t.Run("too short", func(t *testing.T) {
		f := newFixture(t)
		u := f.seed(t, "ada@example.com")
		err := f.svc.ChangePassword(ctx, u, ChangePasswordInput{Current: "correct-horse", New: "short", Verify: "short"})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "new", ve.Field)
	})
}

func TestStaleStepUpLeavesPasswordUnchanged(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada@example.com")
	f.enroll(t, u)
	ctx := context.Background()

	change := func(code string) error {
		if err := f.svc.StepUp(ctx, u, code); err != nil {
			return err
		}
		return f.svc.ChangePassword(ctx, u, ChangePasswordInput{Current: "correct-horse", New: "battery-staple", Verify: "battery-staple"})
	}

	require.ErrorIs(t, change("654321"), ErrStepUpRequired)
	assert.Equal(t, "hashed:correct-horse", f.users.stored(t, u.ID).PasswordHash)

	require.NoError(t, change(goodCode))
	assert.Equal(t, "hashed:battery-staple", f.users.stored(t, u.ID).PasswordHash)
}

func TestAcceptTerms(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Register(context.Background(), anonymous(), validRegistration("ada@example.com"))
	require.NoError(t, err)
	writes := f.users.writes()

	partial := allTerms()
	partial.TermTwo = ""
	var ve *ValidationError
	require.ErrorAs(t, f.svc.AcceptTerms(context.Background(), u, partial), &ve)
	assert.Equal(t, writes, f.users.writes())
	assert.False(t, f.users.stored(t, u.ID).TermsAccepted)

	require.NoError(t, f.svc.AcceptTerms(context.Background(), u, allTerms()))
	assert.True(t, u.TermsAccepted)
	assert.True(t, f.users.stored(t, u.ID).TermsAccepted)
}

func TestCurrentUserMissingAccountSignsOut(t *testing.T) {
	f := newFixture(t)
	sess := anonymous()
	sess.SignIn("s1", 99, true)

	u, err := f.svc.CurrentUser(context.Background(), sess)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.False(t, sess.Authenticated())
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newFixture(t)
	u := f.seed(t, "ada@example.com")
	sess := anonymous()
	sess.SignIn("s1", u.ID, true)

	f.svc.Logout(context.Background(), sess, u)
	assert.True(t, sess.Destroyed())
	assert.False(t, sess.Authenticated())
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, IsRecoverable(ErrStepUpRequired))
	assert.True(t, IsRecoverable(fmt.Errorf("wrapped: %w", ErrDuplicateEmail)))
	assert.True(t, IsRecoverable(&ValidationError{Field: "email", Reason: "is required"}))
	assert.False(t, IsRecoverable(errors.New("boom")))
}

package application

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-portal/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-auth-portal/internal/domain/repository"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-portal/pkg/validation"
)

var (
	metricLogins          = expvar.NewInt("auth_logins")
	metricLoginFailures   = expvar.NewInt("auth_login_failures")
	metricRegistrations   = expvar.NewInt("auth_registrations")
	metricTwoFactorPassed = expvar.NewInt("auth_two_factor_passed")
	metricTwoFactorFailed = expvar.NewInt("auth_two_factor_failed")
)

// Service implements every transition of the auth state machine. It mutates
// the Session passed in; persisting the session is the caller's job.
type Service struct {
	Users               repo.UserRepository
	Hasher              PasswordHasher
	OTP                 OTPProvider
	Events              EventPublisher
	Logger              *logrus.Logger
	RegistrationEnabled bool

	Now   func() time.Time
	NewID func() string

	validate *validator.Validate
}

func NewService(users repo.UserRepository, hasher PasswordHasher, otp OTPProvider, events EventPublisher, logger *logrus.Logger, registrationEnabled bool) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	return &Service{
		Users:               users,
		Hasher:              hasher,
		OTP:                 otp,
		Events:              events,
		Logger:              logger,
		RegistrationEnabled: registrationEnabled,
		Now:                 time.Now,
		NewID:               uuid.NewString,
		validate:            validation.New(),
	}
}

// Agreement is the set of terms checkboxes; all four must be ticked.
type Agreement struct {
	TermOne   string `form:"termOne" json:"termOne" validate:"checked"`
	TermTwo   string `form:"termTwo" json:"termTwo" validate:"checked"`
	TermThree string `form:"termThree" json:"termThree" validate:"checked"`
	TermFour  string `form:"termFour" json:"termFour" validate:"checked"`
}

type RegisterInput struct {
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required,pwd"`
	Confirm  string `form:"confirm" json:"confirm" validate:"required,eqfield=Password"`
	Name     string `form:"name" json:"name" validate:"required"`
	Agreement
}

type ChangePasswordInput struct {
	Current string `form:"current" json:"current" validate:"required"`
	New     string `form:"new" json:"new" validate:"required,pwd"`
	Verify  string `form:"verify" json:"verify" validate:"required,pwd"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	if fe, ok := validation.First(err); ok {
		return &ValidationError{Field: fe.Field(), Reason: validation.Message(fe)}
	}
	return fmt.Errorf("validate input: %w", err)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) log(ctx context.Context, userID int64) *logrus.Entry {
	entry := helpers.LogEntry(ctx, s.Logger)
	if userID != 0 {
		entry = entry.WithField("user_id", userID)
	}
	return entry
}

// unexpected logs a collaborator failure and wraps it for the caller.
func (s *Service) unexpected(ctx context.Context, userID int64, op string, err error) error {
	s.log(ctx, userID).WithError(err).Error(op + " failed")
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) emit(ctx context.Context, kind string, u *entity.User, email string) {
	ev := entity.AuthEvent{Type: kind, Email: email, IP: helpers.ClientIP(ctx), At: s.now().UTC()}
	if u != nil {
		ev.UserID = u.ID
		ev.Email = u.Email
		ev.Name = u.Name
		ev.Timezone = u.Timezone
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.log(ctx, ev.UserID).WithError(err).WithField("event", kind).Warn("publish auth event failed")
	}
}

func (s *Service) validCode(code, secret string) bool {
	code = strings.TrimSpace(code)
	if secret == "" || len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s.OTP.Validate(code, secret)
}

// CurrentUser resolves the session's user. A session pointing at a missing
// account is signed out and treated as anonymous.
func (s *Service) CurrentUser(ctx context.Context, sess *entity.Session) (*entity.User, error) {
	if !sess.Authenticated() {
		return nil, nil
	}
	u, err := s.Users.FindByID(ctx, sess.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		s.log(ctx, sess.UserID).Warn("session references missing user")
		sess.SignOut()
		return nil, nil
	}
	if err != nil {
		return nil, s.unexpected(ctx, sess.UserID, "load session user", err)
	}
	return u, nil
}

// Register validates the input, creates the account and signs the caller in.
// The store's unique constraint is authoritative; the lookup only gives an
// early answer.
func (s *Service) Register(ctx context.Context, sess *entity.Session, in RegisterInput) (*entity.User, error) {
	if !s.RegistrationEnabled {
		return nil, ErrRegistrationClosed
	}
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.check(in); err != nil {
		return nil, err
	}

	existing, err := s.Users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrDuplicateEmail
	case err != nil && !errors.Is(err, repo.ErrNotFound):
		return nil, s.unexpected(ctx, 0, "lookup email", err)
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, s.unexpected(ctx, 0, "hash password", err)
	}
	u := &entity.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Recovery:     s.NewID(),
		Role:         entity.RoleUser,
		Timezone:     entity.DefaultTimezone,
		CreatedAt:    s.now(),
	}
	if err := s.Users.Insert(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, s.unexpected(ctx, 0, "insert user", err)
	}

	sess.SignIn(s.NewID(), u.ID, true)
	metricRegistrations.Add(1)
	s.log(ctx, u.ID).Info("user registered")
	s.emit(ctx, entity.EventRegistered, u, "")
	return u, nil
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, sess *entity.Session, email, password string) (*entity.User, error) {
	email = normalizeEmail(email)
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, s.unexpected(ctx, 0, "lookup email", err)
	}
	if u == nil || !s.Hasher.Compare(u.PasswordHash, password) {
		metricLoginFailures.Add(1)
		s.emit(ctx, entity.EventLoginFailed, nil, email)
		return nil, ErrInvalidCredentials
	}

	sess.SignIn(s.NewID(), u.ID, !u.TOTPEnabled)

	seen := s.now()
	if err := s.Users.Update(ctx, u.ID, repo.UserPatch{LastSeen: &seen}); err != nil {
		s.log(ctx, u.ID).WithError(err).Warn("update last seen failed")
	} else {
		u.LastSeen = &seen
	}

	metricLogins.Add(1)
	s.emit(ctx, entity.EventLoginSucceeded, u, "")
	return u, nil
}

// VerifyChallenge completes the session-level 2FA check.
func (s *Service) VerifyChallenge(ctx context.Context, sess *entity.Session, u *entity.User, code string) error {
	if !u.TOTPEnabled {
		sess.MarkTwoFactorVerified()
		return nil
	}
	if !s.validCode(code, u.Secret()) {
		metricTwoFactorFailed.Add(1)
		s.emit(ctx, entity.EventTwoFactorFailed, u, "")
		return ErrInvalidOneTimeCode
	}
	sess.MarkTwoFactorVerified()
	metricTwoFactorPassed.Add(1)
	s.emit(ctx, entity.EventTwoFactorVerified, u, "")
	return nil
}

// StepUp demands a fresh code for a sensitive action. Accounts without 2FA
// pass unconditionally.
func (s *Service) StepUp(ctx context.Context, u *entity.User, code string) error {
	if !u.TOTPEnabled {
		return nil
	}
	if !s.validCode(code, u.Secret()) {
		metricTwoFactorFailed.Add(1)
		s.emit(ctx, entity.EventTwoFactorFailed, u, "")
		return ErrStepUpRequired
	}
	return nil
}

// BeginEnrollment stores a fresh unconfirmed secret, replacing any previous
// unconfirmed one.
func (s *Service) BeginEnrollment(ctx context.Context, u *entity.User) (*OTPKey, error) {
	if u.TOTPEnabled {
		return nil, ErrAlreadyEnrolled
	}
	key, err := s.OTP.Generate(u.Email)
	if err != nil {
		return nil, s.unexpected(ctx, u.ID, "generate totp secret", err)
	}
	secret := key.Secret
	if err := s.Users.Update(ctx, u.ID, repo.UserPatch{TOTPSecret: &secret}); err != nil {
		return nil, s.unexpected(ctx, u.ID, "store totp secret", err)
	}
	u.TOTPSecret = &secret
	return &key, nil
}

// PendingEnrollment rebuilds the provisioning data of the unconfirmed secret.
func (s *Service) PendingEnrollment(ctx context.Context, u *entity.User) (*OTPKey, error) {
	if u.TOTPEnabled {
		return nil, ErrAlreadyEnrolled
	}
	if u.TOTPSecret == nil {
		return nil, ErrEnrollmentNotStarted
	}
	key, err := s.OTP.Key(u.Secret(), u.Email)
	if err != nil {
		return nil, s.unexpected(ctx, u.ID, "build totp key", err)
	}
	return &key, nil
}

// ConfirmEnrollment enables 2FA when code matches the unconfirmed secret. On
// a wrong code the existing key is returned with ErrInvalidOneTimeCode so the
// same secret can be shown again.
func (s *Service) ConfirmEnrollment(ctx context.Context, u *entity.User, code string) (*OTPKey, error) {
	if u.TOTPEnabled {
		return nil, ErrAlreadyEnrolled
	}
	if u.TOTPSecret == nil {
		return nil, ErrEnrollmentNotStarted
	}
	if !s.validCode(code, u.Secret()) {
		key, err := s.PendingEnrollment(ctx, u)
		if err != nil {
			return nil, err
		}
		return key, ErrInvalidOneTimeCode
	}
	enabled := true
	if err := s.Users.Update(ctx, u.ID, repo.UserPatch{TOTPEnabled: &enabled}); err != nil {
		return nil, s.unexpected(ctx, u.ID, "enable totp", err)
	}
	u.TOTPEnabled = true
	s.log(ctx, u.ID).Info("two-factor authentication enabled")
	s.emit(ctx, entity.EventTwoFactorEnabled, u, "")
	return nil, nil
}

// RevokeTwoFactor clears the secret and the enabled flag. Callers must have
// passed StepUp on the same request.
func (s *Service) RevokeTwoFactor(ctx context.Context, u *entity.User) error {
	empty, disabled := "", false
	if err := s.Users.Update(ctx, u.ID, repo.UserPatch{TOTPSecret: &empty, TOTPEnabled: &disabled}); err != nil {
		return s.unexpected(ctx, u.ID, "revoke totp", err)
	}
	u.TOTPSecret = nil
	u.TOTPEnabled = false
	s.log(ctx, u.ID).Info("two-factor authentication disabled")
	s.emit(ctx, entity.EventTwoFactorDisabled, u, "")
	return nil
}

// ChangePassword replaces the hash after checking the current password
// against the stored one. Callers must have passed StepUp on the same request.
func (s *Service) ChangePassword(ctx context.Context, u *entity.User, in ChangePasswordInput) error {
	if err := s.check(in); err != nil {
		return err
	}
	if in.New != in.Verify {
		return ErrPasswordMismatch
	}

	stored, err := s.Users.FindByID(ctx, u.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return s.unexpected(ctx, u.ID, "load user", err)
	}
	if !s.Hasher.Compare(stored.PasswordHash, in.Current) {
		return ErrInvalidCredentials
	}

	hash, err := s.Hasher.Hash(in.New)
	if err != nil {
		return s.unexpected(ctx, u.ID, "hash password", err)
	}
	if err := s.Users.Update(ctx, u.ID, repo.UserPatch{PasswordHash: &hash}); err != nil {
		return s.unexpected(ctx, u.ID, "update password", err)
	}
	u.PasswordHash = hash
	s.log(ctx, u.ID).Info("password changed")
	s.emit(ctx, entity.EventPasswordChanged, u, "")
	return nil
}

// AcceptTerms records acceptance of all terms. Partial acceptance is rejected
// without writing anything.
func (s *Service) AcceptTerms(ctx context.Context, u *entity.User, in Agreement) error {
	if err := s.check(in); err != nil {
		return err
	}
	if u.TermsAccepted {
		return nil
	}
	accepted := true
	if err := s.Users.Update(ctx, u.ID, repo.UserPatch{TermsAccepted: &accepted}); err != nil {
		return s.unexpected(ctx, u.ID, "accept terms", err)
	}
	u.TermsAccepted = true
	s.emit(ctx, entity.EventTermsAccepted, u, "")
	return nil
}

// Logout destroys the session. u may be nil for anonymous sessions.
func (s *Service) Logout(ctx context.Context, sess *entity.Session, u *entity.User) {
	sess.Destroy()
	if u != nil {
		s.emit(ctx, entity.EventLoggedOut, u, "")
	}
}

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"campusvote/internal/candidate"
	"campusvote/internal/election"
	"campusvote/internal/notify"
	"campusvote/internal/otp"
	"campusvote/internal/platform/metrics"
	"campusvote/internal/token"
	"campusvote/internal/user"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/sentinel"
)

const (
	minPasswordLength = 8
	resetTokenTTL     = 15 * time.Minute
)

// ElectionLookup resolves the election a candidate signs up for.
type ElectionLookup interface {
	FindByID(ctx context.Context, id string) (*election.Election, error)
}

// Service handles signup, login, OTP verification, and password resets.
type Service struct {
	users        user.Store
	registration RegistrationStore
	elections    ElectionLookup
	otps         *otp.Service
	notifier     notify.Notifier
	tokens       *token.Service
	lockout      *Lockout
	logger       *slog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(users user.Store, registration RegistrationStore, elections ElectionLookup, otps *otp.Service, notifier notify.Notifier, tokens *token.Service, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		users:        users,
		registration: registration,
		elections:    elections,
		otps:         otps,
		notifier:     notifier,
		tokens:       tokens,
		lockout:      NewLockout(defaultLoginMaxFailures, defaultLoginLockoutWindow, defaultLoginLockoutWindow),
		logger:       logger,
		metrics:      m,
		now:          time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.lockout.now = now
	return s
}

// WithLockout overrides the default login lockout policy.
func (s *Service) WithLockout(l *Lockout) *Service {
	l.now = s.now
	s.lockout = l
	return s
}

// VoterInput is the self-service voter signup payload.
type VoterInput struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile"`
	Password       string `json:"password"`
	EnrollmentID   string `json:"enrollmentId"`
	ScholarNumber  string `json:"scholarOrRollNumber"`
	Department     string `json:"department"`
	SemesterOrYear string `json:"semesterOrYear"`
}

// CandidateInput extends voter signup with the election and position the
// candidate contests, plus their campaign assets.
type CandidateInput struct {
	VoterInput
	ElectionID string `json:"electionId"`
	PositionID string `json:"positionId"`
	PhotoURL   string `json:"photoUrl"`
	SymbolURL  string `json:"electionSymbolUrl"`
	Manifesto  string `json:"manifesto"`
}

// AdminInput is the super-admin payload for creating admin accounts.
type AdminInput struct {
	FullName  string         `json:"fullName"`
	Email     string         `json:"email"`
	Mobile    string         `json:"mobile"`
	Password  string         `json:"password"`
	AdminID   string         `json:"adminId"`
	AdminType user.AdminType `json:"adminType"`
}

// LoginResult carries the issued token and the authenticated account.
type LoginResult struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// RegisterVoter creates a PENDING voter account and kicks off OTP
// verification on both channels.
func (s *Service) RegisterVoter(ctx context.Context, in VoterInput) (*user.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validateSignup(in); err != nil {
		return nil, err
	}
	if in.EnrollmentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "enrollmentId is required")
	}
	if err := s.checkUnique(ctx, in.Email, in.Mobile); err != nil {
		return nil, err
	}

	u, err := s.newAccount(in, user.RoleVoter)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, translateCreateErr(err)
	}

	s.issueSignupOTPs(ctx, u)
	if s.metrics != nil {
		s.metrics.UsersRegistered.WithLabelValues(string(user.RoleVoter)).Inc()
	}
	s.logger.InfoContext(ctx, "voter registered", "user_id", u.ID)
	return u, nil
}

// RegisterCandidate creates a PENDING candidate account together with
// their profile for the chosen election and position. The two writes are
// one unit of work; neither survives without the other.
func (s *Service) RegisterCandidate(ctx context.Context, in CandidateInput) (*user.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validateSignup(in.VoterInput); err != nil {
		return nil, err
	}
	if in.ElectionID == "" || in.PositionID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "electionId and positionId are required")
	}
	if len(in.Manifesto) > candidate.ManifestoMaxLength {
		return nil, dErrors.New(dErrors.CodeValidation, "manifesto is too long")
	}
	if err := s.checkUnique(ctx, in.Email, in.Mobile); err != nil {
		return nil, err
	}

	e, err := s.elections.FindByID(ctx, in.ElectionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "election not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
	}
	if !e.ConfigMutable() {
		return nil, dErrors.New(dErrors.CodePreconditionFailed, "candidate registration is closed for this election")
	}
	if e.Position(in.PositionID) == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "position does not exist in this election")
	}

	u, err := s.newAccount(in.VoterInput, user.RoleCandidate)
	if err != nil {
		return nil, err
	}
	profile := &candidate.Profile{
		ID:         uuid.NewString(),
		UserID:     u.ID,
		ElectionID: in.ElectionID,
		PositionID: in.PositionID,
		PhotoURL:   in.PhotoURL,
		SymbolURL:  in.SymbolURL,
		Manifesto:  in.Manifesto,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.CreatedAt,
	}
	if err := s.registration.CreateCandidate(ctx, u, profile); err != nil {
		return nil, translateCreateErr(err)
	}

	s.issueSignupOTPs(ctx, u)
	if s.metrics != nil {
		s.metrics.UsersRegistered.WithLabelValues(string(user.RoleCandidate)).Inc()
	}
	s.logger.InfoContext(ctx, "candidate registered",
		"user_id", u.ID, "election_id", in.ElectionID, "position_id", in.PositionID)
	return u, nil
}

// CreateAdmin creates an active, pre-verified admin account. Only SUPER
// admins may call it; the transport layer enforces that and the check here
// is the backstop.
func (s *Service) CreateAdmin(ctx context.Context, actorAdminType user.AdminType, in AdminInput) (*user.User, error) {
	if actorAdminType != user.AdminSuper {
		return nil, dErrors.New(dErrors.CodeForbidden, "only super admins may create admin accounts")
	}
	in.Email = normalizeEmail(in.Email)
	if in.FullName == "" || in.AdminID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "fullName and adminId are required")
	}
	switch in.AdminType {
	case user.AdminSuper, user.AdminElection, user.AdminVerification:
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "invalid adminType")
	}
	if err := s.validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	now := s.now()
	u := &user.User{
		ID:               uuid.NewString(),
		FullName:         in.FullName,
		Email:            in.Email,
		Mobile:           in.Mobile,
		PasswordHash:     string(hash),
		Role:             user.RoleAdmin,
		AdminID:          in.AdminID,
		AdminType:        in.AdminType,
		ApprovalStatus:   user.ApprovalApproved,
		IsEmailVerified:  true,
		IsMobileVerified: true,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, translateCreateErr(err)
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.WithLabelValues(string(user.RoleAdmin)).Inc()
	}
	s.logger.InfoContext(ctx, "admin created", "user_id", u.ID, "admin_type", in.AdminType)
	return u, nil
}

// BootstrapAdmin seeds the first SUPER admin so a fresh installation has a
// way into the admin surface. It is a no-op once any admin account exists
// and returns nil in that case.
func (s *Service) BootstrapAdmin(ctx context.Context, in AdminInput) (*user.User, error) {
	admins, err := s.users.List(ctx, user.ListFilter{Role: user.RoleAdmin})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for existing admins")
	}
	if len(admins) > 0 {
		return nil, nil
	}
	in.AdminType = user.AdminSuper
	u, err := s.CreateAdmin(ctx, user.AdminSuper, in)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "bootstrap super admin seeded", "user_id", u.ID, "admin_id", u.AdminID)
	return u, nil
}

// Login authenticates by email, enrollment id, or admin id. Failed
// password attempts count toward a per-identifier lockout.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	key := strings.ToLower(identifier)
	if locked, until := s.lockout.Locked(key); locked {
		s.logger.WarnContext(ctx, "login attempt while locked out", "locked_until", until)
		return nil, dErrors.New(dErrors.CodeTooManyRequests,
			"too many failed login attempts, try again later")
	}

	u, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.lockout.RecordFailure(key)
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.lockout.RecordFailure(key)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	s.lockout.Clear(key)
	if !u.IsActive {
		return nil, dErrors.New(dErrors.CodeForbidden, "account is deactivated")
	}
	// Candidates are gated here; voters clear the same gates at voting
	// time instead, so a pending voter can still log in and check status.
	if u.Role == user.RoleCandidate {
		if !u.Verified() {
			return nil, dErrors.New(dErrors.CodeForbidden, "verify your email and mobile before logging in")
		}
		if u.ApprovalStatus != user.ApprovalApproved {
			return nil, dErrors.New(dErrors.CodeForbidden, "your candidacy has not been approved")
		}
	}

	signed, err := s.tokens.Issue(u)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	now := s.now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
	if err := s.users.Update(ctx, u); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login", "user_id", u.ID, "error", err)
	}

	s.logger.InfoContext(ctx, "login", "user_id", u.ID, "role", u.Role)
	return &LoginResult{Token: signed, User: u}, nil
}

// SendOTP (re)issues a verification code on one channel.
func (s *Service) SendOTP(ctx context.Context, userID string, channel otp.Channel) error {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	if channelVerified(u, channel) {
		return dErrors.New(dErrors.CodeConflict, "this channel is already verified")
	}

	code, err := s.otps.Issue(ctx, userID, channel)
	if err != nil {
		return err
	}
	s.deliver(ctx, u, channel, code)
	return nil
}

// VerifyOTP checks a submitted code and, on success, marks the channel
// verified on the account.
func (s *Service) VerifyOTP(ctx context.Context, userID string, channel otp.Channel, code string) (*user.User, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.otps.Verify(ctx, userID, channel, code); err != nil {
		return nil, err
	}

	switch channel {
	case otp.ChannelEmail:
		u.IsEmailVerified = true
	case otp.ChannelMobile:
		u.IsMobileVerified = true
	}
	u.UpdatedAt = s.now()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update verification status")
	}

	s.logger.InfoContext(ctx, "channel verified", "user_id", u.ID, "channel", channel)
	return u, nil
}

// ForgotPassword issues a password reset token by email. A miss is not
// reported to the caller, so the endpoint can't be used to probe for
// registered addresses.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.logger.InfoContext(ctx, "password reset for unknown email")
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate reset token")
	}
	plaintext := hex.EncodeToString(raw)
	hash := sha256.Sum256([]byte(plaintext))

	now := s.now()
	expires := now.Add(resetTokenTTL)
	u.ResetTokenHash = hash[:]
	u.ResetExpiresAt = &expires
	u.UpdatedAt = now
	if err := s.users.Update(ctx, u); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store reset token")
	}

	if err := s.notifier.SendEmail(ctx, u.Email, "Password reset",
		"Use this token to reset your password: "+plaintext); err != nil {
		s.logger.ErrorContext(ctx, "failed to send reset email", "user_id", u.ID, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, tokenPlaintext, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	hash := sha256.Sum256([]byte(tokenPlaintext))
	u, err := s.users.FindByResetTokenHash(ctx, hash[:])
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeBadRequest, "invalid or expired reset token")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up reset token")
	}
	if u.ResetExpiresAt == nil || !u.ResetExpiresAt.After(s.now()) {
		return dErrors.New(dErrors.CodeBadRequest, "invalid or expired reset token")
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	u.PasswordHash = string(pwHash)
	u.ResetTokenHash = nil
	u.ResetExpiresAt = nil
	u.UpdatedAt = s.now()
	if err := s.users.Update(ctx, u); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update password")
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", u.ID)
	return nil
}

func (s *Service) newAccount(in VoterInput, role user.Role) (*user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	now := s.now()
	return &user.User{
		ID:             uuid.NewString(),
		FullName:       in.FullName,
		Email:          in.Email,
		Mobile:         in.Mobile,
		PasswordHash:   string(hash),
		Role:           role,
		ApprovalStatus: user.ApprovalPending,
		EnrollmentID:   in.EnrollmentID,
		ScholarNumber:  in.ScholarNumber,
		Department:     in.Department,
		SemesterOrYear: in.SemesterOrYear,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (s *Service) validateSignup(in VoterInput) error {
	if in.FullName == "" {
		return dErrors.New(dErrors.CodeValidation, "fullName is required")
	}
	if in.Mobile == "" {
		return dErrors.New(dErrors.CodeValidation, "mobile is required")
	}
	return s.validateCredentials(in.Email, in.Password)
}

// normalizeEmail folds an address to the canonical lowercase form every
// store lookup expects. Writes must go through this or case-variant
// duplicates slip past the email uniqueness constraint.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid email address")
	}
	if len(password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	return nil
}

// checkUnique is a friendly pre-check; the storage constraints remain the
// real guarantee against a racing duplicate.
func (s *Service) checkUnique(ctx context.Context, email, mobile string) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return dErrors.New(dErrors.CodeConflict, "an account with this email already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	}
	if _, err := s.users.FindByMobile(ctx, mobile); err == nil {
		return dErrors.New(dErrors.CodeConflict, "an account with this mobile number already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check mobile")
	}
	return nil
}

// issueSignupOTPs sends the initial verification codes. Delivery failures
// are logged, not returned: the account exists and codes can be re-sent.
func (s *Service) issueSignupOTPs(ctx context.Context, u *user.User) {
	for _, channel := range []otp.Channel{otp.ChannelEmail, otp.ChannelMobile} {
		code, err := s.otps.Issue(ctx, u.ID, channel)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to issue signup otp",
				"user_id", u.ID, "channel", channel, "error", err)
			continue
		}
		s.deliver(ctx, u, channel, code)
	}
}

func (s *Service) deliver(ctx context.Context, u *user.User, channel otp.Channel, code string) {
	var err error
	switch channel {
	case otp.ChannelEmail:
		err = s.notifier.SendEmail(ctx, u.Email, "Your verification code",
			"Your verification code is "+code)
	case otp.ChannelMobile:
		err = s.notifier.SendSMS(ctx, u.Mobile, "Your verification code is "+code)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to deliver otp",
			"user_id", u.ID, "channel", channel, "error", err)
	}
}

func (s *Service) getUser(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return u, nil
}

func channelVerified(u *user.User, channel otp.Channel) bool {
	switch channel {
	case otp.ChannelEmail:
		return u.IsEmailVerified
	case otp.ChannelMobile:
		return u.IsMobileVerified
	}
	return false
}

func translateCreateErr(err error) error {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "an account with these details already exists")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
}

package memberController

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"fitadmin/internal/logger"
	. "fitadmin/internal/models"
	"fitadmin/internal/repositories"
	"fitadmin/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMemberInactive     = errors.New("member account is not active")
	ErrUnauthorized       = errors.New("unauthorized")
)

type MemberController struct {
	memberRepo repositories.MemberRepository
	sessionTTL time.Duration
	now        func() time.Time
	log        logger.Logger
}

func New(memberRepo repositories.MemberRepository, sessionTTL time.Duration) *MemberController {
	return &MemberController{
		memberRepo: memberRepo,
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
		log:        logger.New("MemberController"),
	}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Member    *Member   `json:"member"`
}

// Login answers ErrInvalidCredentials for unknown emails and wrong passwords
// alike.
func (mc *MemberController) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	log := mc.log.Function("Login")

	if err := validation.ValidateStruct(&req); err != nil {
		return LoginResult{}, err
	}

	member, err := mc.memberRepo.GetByEmail(ctx, req.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, log.Err("failed to get member", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		log.Info("Rejected login", "memberID", member.ID)
		return LoginResult{}, ErrInvalidCredentials
	}

	if member.Status != MemberStatusActive {
		return LoginResult{}, ErrMemberInactive
	}

	token, err := newToken()
	if err != nil {
		return LoginResult{}, log.Err("failed to generate session token", err)
	}

	session := &MemberSession{
		Token:     token,
		MemberID:  member.ID,
		ExpiresAt: mc.now().Add(mc.sessionTTL),
	}
	if err := mc.memberRepo.CreateSession(ctx, session); err != nil {
		return LoginResult{}, log.Err("failed to create session", err, "memberID", member.ID)
	}

	log.Info("Member logged in", "memberID", member.ID)
	return LoginResult{Token: token, ExpiresAt: session.ExpiresAt, Member: member}, nil
}

func (mc *MemberController) Logout(ctx context.Context, token string) error {
	return mc.memberRepo.DeleteSession(ctx, token)
}

// Authenticate resolves a session token to an active member.
func (mc *MemberController) Authenticate(ctx context.Context, token string) (*Member, error) {
	log := mc.log.Function("Authenticate")

	if token == "" {
		return nil, ErrUnauthorized
	}

	session, err := mc.memberRepo.GetSession(ctx, token, mc.now())
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, log.Err("failed to get session", err)
	}

	member, err := mc.memberRepo.GetByID(ctx, session.MemberID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, log.Err("failed to get session member", err, "memberID", session.MemberID)
	}
	if member.Status != MemberStatusActive {
		return nil, ErrUnauthorized
	}

	return member, nil
}

func (mc *MemberController) List(ctx context.Context, filter MemberFilter, page Page) (Paginated[*Member], error) {
	log := mc.log.Function("List")

	members, total, err := mc.memberRepo.List(ctx, filter, page)
	if err != nil {
		return Paginated[*Member]{}, log.Err("failed to list members", err)
	}

	return NewPaginated(members, total, page), nil
}

// EnsureAdmin creates an active admin with the given credentials unless the
// email is already registered. It reports whether a member was created.
func (mc *MemberController) EnsureAdmin(ctx context.Context, email, name, password string) (bool, error) {
	log := mc.log.Function("EnsureAdmin")

	if email == "" || password == "" {
		return false, log.Error("admin email and password are required")
	}

	_, err := mc.memberRepo.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return false, log.Err("failed to look up admin", err, "email", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, log.Err("failed to hash password", err)
	}

	if name == "" {
		name = "Administrator"
	}
	member := &Member{
		Email:        email,
		Name:         name,
		Role:         MemberRoleAdmin,
		Status:       MemberStatusActive,
		PasswordHash: string(hash),
	}
	if err := mc.memberRepo.Create(ctx, member); err != nil {
		return false, log.Err("failed to create admin", err, "email", email)
	}

	log.Info("Seeded admin member", "email", member.Email)
	return true, nil
}

func (mc *MemberController) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return mc.memberRepo.DeleteExpiredSessions(ctx, mc.now())
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"fitadmin/internal/database"
	"fitadmin/internal/logger"
	. "fitadmin/internal/models"
	"fitadmin/internal/services"

	"gorm.io/gorm"
)

const sessionCacheKeyPrefix = "session:"

type MemberRepository interface {
	Create(ctx context.Context, member *Member) error
	GetByID(ctx context.Context, id string) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	List(ctx context.Context, filter MemberFilter, page Page) ([]*Member, int64, error)
	Count(ctx context.Context) (int64, error)

	CreateSession(ctx context.Context, session *MemberSession) error
	GetSession(ctx context.Context, token string, now time.Time) (*MemberSession, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type memberRepository struct {
	db  database.DB
	log logger.Logger
}

func NewMember(db database.DB) MemberRepository {
	return &memberRepository{
		db:  db,
		log: logger.New("memberRepository"),
	}
}

func (r *memberRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *memberRepository) Create(ctx context.Context, member *Member) error {
	log := r.log.Function("Create")

	member.Email = strings.ToLower(strings.TrimSpace(member.Email))
	if err := r.getDB(ctx).Create(member).Error; err != nil {
		return log.Err("failed to create member", err, "email", member.Email)
	}

	return nil
}

func (r *memberRepository) GetByID(ctx context.Context, id string) (*Member, error) {
	return r.first(ctx, "GetByID", "id = ?", id)
}

func (r *memberRepository) GetByEmail(ctx context.Context, email string) (*Member, error) {
	return r.first(ctx, "GetByEmail", "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *memberRepository) first(ctx context.Context, function, query string, arg any) (*Member, error) {
	log := r.log.Function(function)

	var member Member
	err := r.getDB(ctx).Where(query, arg).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, log.Err("failed to get member", err, "arg", arg)
	}

	return &member, nil
}

func (r *memberRepository) List(ctx context.Context, filter MemberFilter, page Page) ([]*Member, int64, error) {
	log := r.log.Function("List")

	query := r.getDB(ctx).Model(&Member{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, log.Err("failed to count members", err)
	}

	var members []*Member
	err := query.Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&members).Error
	if err != nil {
		return nil, 0, log.Err("failed to list members", err)
	}

	return members, total, nil
}

func (r *memberRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.getDB(ctx).Model(&Member{}).Count(&total).Error; err != nil {
		return 0, r.log.Function("Count").Err("failed to count members", err)
	}
	return total, nil
}

func (r *memberRepository) CreateSession(ctx context.Context, session *MemberSession) error {
	log := r.log.Function("CreateSession")

	if err := r.getDB(ctx).Create(session).Error; err != nil {
		return log.Err("failed to create session", err, "memberID", session.MemberID)
	}

	ttl := time.Until(session.ExpiresAt)
	err := database.NewCacheBuilder(r.db.Cache.Session, sessionCacheKeyPrefix+session.Token).
		WithContext(ctx).
		WithStruct(session).
		WithTTL(ttl).
		Set()
	if err != nil {
		log.Warn("failed to cache session", "memberID", session.MemberID, "error", err)
	}

	return nil
}

// GetSession returns ErrNotFound for unknown and expired tokens alike.
func (r *memberRepository) GetSession(ctx context.Context, token string, now time.Time) (*MemberSession, error) {
	log := r.log.Function("GetSession")

	var session MemberSession
	found, err := database.NewCacheBuilder(r.db.Cache.Session, sessionCacheKeyPrefix+token).
		WithContext(ctx).
		Get(&session)
	if err != nil {
		log.Warn("failed to read session cache", "error", err)
	}

	if !found {
		err := r.getDB(ctx).Where("token = ?", token).First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, log.Err("failed to get session", err)
		}
	}

	if !session.ExpiresAt.After(now) {
		return nil, ErrNotFound
	}

	return &session, nil
}

func (r *memberRepository) DeleteSession(ctx context.Context, token string) error {
	log := r.log.Function("DeleteSession")

	if err := r.getDB(ctx).Where("token = ?", token).Delete(&MemberSession{}).Error; err != nil {
		return log.Err("failed to delete session", err)
	}

	if err := database.NewCacheBuilder(r.db.Cache.Session, sessionCacheKeyPrefix+token).WithContext(ctx).Delete(); err != nil {
		log.Warn("failed to remove session from cache", "error", err)
	}

	return nil
}

func (r *memberRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	log := r.log.Function("DeleteExpiredSessions")

	result := r.getDB(ctx).Where("expires_at <= ?", now.UTC()).Delete(&MemberSession{})
	if result.Error != nil {
		return 0, log.Err("failed to delete expired sessions", result.Error)
	}

	return result.RowsAffected, nil
}

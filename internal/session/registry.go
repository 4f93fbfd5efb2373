// Package session tracks login sessions in the key/expiry store. The
// registry's entry count per user equals the number of currently valid
// concurrent logins.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/overleaf/overleaf-sub002/internal/errs"
	"github.com/overleaf/overleaf-sub002/internal/models"
)

// Registry is the session store contract used by services and middleware.
type Registry interface {
	Register(ctx context.Context, sess models.Session) error
	Get(ctx context.Context, sid string) (models.Session, error)
	Validate(ctx context.Context, sid, presentedToken string) (models.Session, error)
	List(ctx context.Context, userID string) ([]models.Session, error)
	Destroy(ctx context.Context, sid string) error
	InvalidateOthers(ctx context.Context, userID, exceptSID string) (int, error)
	SetAdminMode(ctx context.Context, sid string, enabled bool) error
	MarkSudo(ctx context.Context, sid string) error
	IsSudo(ctx context.Context, sid string) (bool, error)
}

type RedisRegistry struct {
	client     redis.UniversalClient
	sessionTTL time.Duration
	sudoTTL    time.Duration
}

var _ Registry = (*RedisRegistry)(nil)

func NewRedisRegistry(client redis.UniversalClient, sessionTTL, sudoTTL time.Duration) *RedisRegistry {
	return &RedisRegistry{
		client:     client,
		sessionTTL: sessionTTL,
		sudoTTL:    sudoTTL,
	}
}

func sessionKey(sid string) string { return "sess:" + sid }
func userSetKey(uid string) string { return "usersess:" + uid }
func sudoKey(sid string) string    { return "sudo:" + sid }

// Register stores a new session. The validation token is written with
// HSETNX: a second write with a different token for the same sid is
// rejected, so a buggy write path cannot silently replace the secret that
// invalidation depends on.
func (r *RedisRegistry) Register(ctx context.Context, sess models.Session) error {
	if sess.SID == "" || sess.UserID == "" || sess.ValidationToken == "" {
		return errs.ErrInvalid
	}

	key := sessionKey(sess.SID)
	set, err := r.client.HSetNX(ctx, key, "validation_token", sess.ValidationToken).Result()
	if err != nil {
		return err
	}
	if !set {
		stored, err := r.client.HGet(ctx, key, "validation_token").Result()
		if err != nil {
			return err
		}
		if stored != sess.ValidationToken {
			return errs.ErrConflict
		}
	}

	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if err := r.client.HSet(ctx, key,
		"user_id", sess.UserID,
		"ip", sess.IPAddress,
		"user_agent", sess.UserAgent,
		"admin_mode", boolField(sess.AdminMode),
		"created_at", createdAt.UTC().Format(time.RFC3339),
	).Err(); err != nil {
		return err
	}
	if err := r.client.Expire(ctx, key, r.sessionTTL).Err(); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, userSetKey(sess.UserID), sess.SID).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, userSetKey(sess.UserID), r.sessionTTL).Err()
}

func (r *RedisRegistry) Get(ctx context.Context, sid string) (models.Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(sid)).Result()
	if err != nil {
		return models.Session{}, err
	}
	if len(fields) == 0 {
		return models.Session{}, errs.ErrNotFound
	}

	sess := models.Session{
		SID:             sid,
		UserID:          fields["user_id"],
		ValidationToken: fields["validation_token"],
		IPAddress:       fields["ip"],
		UserAgent:       fields["user_agent"],
		AdminMode:       fields["admin_mode"] == "1",
	}
	if raw := fields["created_at"]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			sess.CreatedAt = t
		}
	}
	return sess, nil
}

// Validate checks the presented validation token against the stored one. A
// missing, empty or mismatched token tears the session down and reports the
// request as unauthenticated.
func (r *RedisRegistry) Validate(ctx context.Context, sid, presentedToken string) (models.Session, error) {
	sess, err := r.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return models.Session{}, errs.ErrUnauthenticated
		}
		return models.Session{}, err
	}

	if presentedToken == "" || sess.ValidationToken == "" || sess.ValidationToken != presentedToken {
		_ = r.Destroy(ctx, sid)
		return models.Session{}, errs.ErrUnauthenticated
	}
	return sess, nil
}

func (r *RedisRegistry) List(ctx context.Context, userID string) ([]models.Session, error) {
	sids, err := r.client.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]models.Session, 0, len(sids))
	for _, sid := range sids {
		sess, err := r.Get(ctx, sid)
		if errors.Is(err, errs.ErrNotFound) {
			// Expired entry still referenced from the set.
			_ = r.client.SRem(ctx, userSetKey(userID), sid)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (r *RedisRegistry) Destroy(ctx context.Context, sid string) error {
	userID, err := r.client.HGet(ctx, sessionKey(sid), "user_id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if err := r.client.Del(ctx, sessionKey(sid), sudoKey(sid)).Err(); err != nil {
		return err
	}
	if userID != "" {
		return r.client.SRem(ctx, userSetKey(userID), sid).Err()
	}
	return nil
}

// InvalidateOthers removes every session of the user except exceptSID and
// returns the number removed. Pass an empty exceptSID to remove all.
func (r *RedisRegistry) InvalidateOthers(ctx context.Context, userID, exceptSID string) (int, error) {
	sids, err := r.client.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, sid := range sids {
		if sid == exceptSID {
			continue
		}
		if err := r.Destroy(ctx, sid); err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}

func (r *RedisRegistry) SetAdminMode(ctx context.Context, sid string, enabled bool) error {
	exists, err := r.client.Exists(ctx, sessionKey(sid)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return errs.ErrNotFound
	}
	return r.client.HSet(ctx, sessionKey(sid), "admin_mode", boolField(enabled)).Err()
}

// MarkSudo records a freshly re-verified identity for a short window.
func (r *RedisRegistry) MarkSudo(ctx context.Context, sid string) error {
	return r.client.Set(ctx, sudoKey(sid), "1", r.sudoTTL).Err()
}

func (r *RedisRegistry) IsSudo(ctx context.Context, sid string) (bool, error) {
	n, err := r.client.Exists(ctx, sudoKey(sid)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

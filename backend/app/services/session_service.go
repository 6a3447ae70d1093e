package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fota-manager/backend/app/apperr"
	"fota-manager/backend/app/repo"
	"fota-manager/backend/global"

	"github.com/google/uuid"
)

// Session is the per-login context: identity, a bounded activity log and
// cached firmware version lists.
type Session struct {
	ID        string
	UserID    string
	IsAdmin   bool
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	maxLogs  int
	logs     []string
	versions map[string][]string
}

func newSession(meta repo.SessionMeta, maxLogs int, now time.Time) *Session {
	return &Session{
		ID:        meta.ID,
		UserID:    meta.UserID,
		IsAdmin:   meta.IsAdmin,
		CreatedAt: meta.CreatedAt,
		lastSeen:  now,
		maxLogs:   maxLogs,
		versions:  make(map[string][]string),
	}
}

func (s *Session) meta() repo.SessionMeta {
	return repo.SessionMeta{ID: s.ID, UserID: s.UserID, IsAdmin: s.IsAdmin, CreatedAt: s.CreatedAt}
}

// AppendLog records msg, dropping the oldest entry once the log is full.
func (s *Session) AppendLog(format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, msg)
	if over := len(s.logs) - s.maxLogs; s.maxLogs > 0 && over > 0 {
		s.logs = append([]string(nil), s.logs[over:]...)
	}
}

func (s *Session) Logs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logs...)
}

func (s *Session) CachedVersions(target string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[target]
	if !ok {
		return nil, false
	}
	return append([]string(nil), v...), true
}

func (s *Session) CacheVersions(target string, versions []string) {
	s.mu.Lock()
	s.versions[target] = append([]string(nil), versions...)
	s.mu.Unlock()
}

// InvalidateVersions drops the cached list for target, or every list when
// target is empty.
func (s *Session) InvalidateVersions(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target == "" {
		s.versions = make(map[string][]string)
		return
	}
	delete(s.versions, target)
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// SessionMirror persists session identity outside the process.
type SessionMirror interface {
	Save(ctx context.Context, meta repo.SessionMeta, ttl time.Duration) error
	Load(ctx context.Context, id string) (*repo.SessionMeta, error)
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	maxLogs  int
	mirror   SessionMirror
	now      func() time.Time
}

func NewSessionService(ttl time.Duration, maxLogs int, mirror SessionMirror) *SessionService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxLogs <= 0 {
		maxLogs = 200
	}
	return &SessionService{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		maxLogs:  maxLogs,
		mirror:   mirror,
		now:      time.Now,
	}
}

func (s *SessionService) SetClock(now func() time.Time) { s.now = now }

func (s *SessionService) TTL() time.Duration { return s.ttl }

func (s *SessionService) Create(ctx context.Context, userID string, isAdmin bool) *Session {
	now := s.now()
	sess := newSession(repo.SessionMeta{ID: uuid.NewString(), UserID: userID, IsAdmin: isAdmin, CreatedAt: now}, s.maxLogs, now)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	if s.mirror != nil {
		if err := s.mirror.Save(ctx, sess.meta(), s.ttl); err != nil {
			global.Logger.Warn().Err(err).Str("session", sess.ID).Msg("mirror session")
		}
	}
	sess.AppendLog("logged in as %s", userID)
	return sess
}

// Get returns a live session and refreshes its idle timer. Expired or
// unknown sessions yield an Auth error.
func (s *SessionService) Get(ctx context.Context, id string) (*Session, error) {
	now := s.now()
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		restored, err := s.restore(ctx, id, now)
		if err != nil {
			return nil, err
		}
		sess = restored
	}
	if now.Sub(sess.LastSeen()) > s.ttl {
		s.Destroy(ctx, id)
		return nil, apperr.Auth("session", "session expired")
	}
	sess.touch(now)
	if s.mirror != nil {
		if err := s.mirror.Touch(ctx, id, s.ttl); err != nil {
			global.Logger.Debug().Err(err).Str("session", id).Msg("touch mirrored session")
		}
	}
	return sess, nil
}

func (s *SessionService) restore(ctx context.Context, id string, now time.Time) (*Session, error) {
	if s.mirror == nil || id == "" {
		return nil, apperr.Auth("session", "unknown session")
	}
	meta, err := s.mirror.Load(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Auth("session", "unknown session")
	}
	if err != nil {
		global.Logger.Warn().Err(err).Str("session", id).Msg("load mirrored session")
		return nil, apperr.Auth("session", "unknown session")
	}
	sess := newSession(*meta, s.maxLogs, now)
	s.mu.Lock()
	if cur, ok := s.sessions[id]; ok {
		sess = cur
	} else {
		s.sessions[id] = sess
	}
	s.mu.Unlock()
	global.Logger.Info().Str("session", id).Str("user", sess.UserID).Msg("session restored")
	return sess, nil
}

func (s *SessionService) Destroy(ctx context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	if s.mirror != nil {
		if err := s.mirror.Delete(ctx, id); err != nil {
			global.Logger.Warn().Err(err).Str("session", id).Msg("delete mirrored session")
		}
	}
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (s *SessionService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastSeen()) > s.ttl {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// InvalidateVersions clears the cached versions of target in every session.
func (s *SessionService) InvalidateVersions(target string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		sess.InvalidateVersions(target)
	}
}

func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(s.now()); n > 0 {
				global.Logger.Debug().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}

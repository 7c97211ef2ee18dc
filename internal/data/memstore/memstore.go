// Package memstore is an in-memory implementation of every store the content
// engine uses. It backs STORE_DRIVER=memory and the module tests.
// All collections share one lock, so each operation is atomic.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	contentrepo "github.com/yungbote/hackfeed-backend/internal/data/repos/content"
	jobsrepo "github.com/yungbote/hackfeed-backend/internal/data/repos/jobs"
	userrepo "github.com/yungbote/hackfeed-backend/internal/data/repos/user"
	"github.com/yungbote/hackfeed-backend/internal/domain/content"
	"github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	"github.com/yungbote/hackfeed-backend/internal/domain/user"
	"github.com/yungbote/hackfeed-backend/internal/pkg/clock"
	apperr "github.com/yungbote/hackfeed-backend/internal/pkg/errors"
)

type Store struct {
	mu sync.RWMutex

	clock clock.Clock

	content    map[uuid.UUID]*content.Content
	archive    map[uuid.UUID]*content.DeletedContent
	categories map[uuid.UUID]*content.Category
	users      map[uuid.UUID]*user.User
	jobRuns    map[uuid.UUID]*jobs.JobRun

	faults map[string]error
}

func New(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.System()
	}
	return &Store{
		clock:      clk,
		content:    map[uuid.UUID]*content.Content{},
		archive:    map[uuid.UUID]*content.DeletedContent{},
		categories: map[uuid.UUID]*content.Category{},
		users:      map[uuid.UUID]*user.User{},
		jobRuns:    map[uuid.UUID]*jobs.JobRun{},
		faults:     map[string]error{},
	}
}

// Set exposes the store through the repo interfaces.
func (s *Store) Set() repos.Set {
	return repos.Set{
		Content:     &contentStore{s},
		Archive:     &archiveStore{s},
		Categories:  &categoryStore{s},
		Transitions: &transitionStore{s},
		Users:       &userStore{s},
		JobRuns:     &jobRunStore{s},
	}
}

// FailNext makes the next call of op (for example "content.DeleteByID") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault must be called with the write lock held.
func (s *Store) fault(op string) error {
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		return err
	}
	return nil
}

// PutArchive stores a raw archive record, bypassing the transition.
// Used to simulate a copy whose source delete never happened.
func (s *Store) PutArchive(d *content.DeletedContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.archive[cp.ID] = &cp
}

func (s *Store) now() time.Time { return s.clock.Now().UTC() }

// ---- content ----

type contentStore struct{ s *Store }

func (c *contentStore) Find(_ context.Context, f contentrepo.ContentFilter) ([]*content.Content, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []*content.Content
	for _, item := range c.s.content {
		if f.Matches(item) {
			out = append(out, item.Clone())
		}
	}
	contentrepo.SortContents(out, f.Sort)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (c *contentStore) FindByID(_ context.Context, id uuid.UUID) (*content.Content, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return c.s.content[id].Clone(), nil
}

func (c *contentStore) Insert(_ context.Context, item *content.Content) (*content.Content, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.fault("content.Insert"); err != nil {
		return nil, err
	}
	if err := contentrepo.PrepareInsert(item, c.s.now()); err != nil {
		return nil, err
	}
	if _, exists := c.s.content[item.ID]; exists {
		return nil, apperr.Newf(apperr.CodeConflict, "content.Insert", "content %s already exists", item.ID)
	}
	c.s.content[item.ID] = item.Clone()
	return item, nil
}

func (c *contentStore) UpdateByID(_ context.Context, id uuid.UUID, patch contentrepo.ContentPatch) (*content.Content, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.fault("content.UpdateByID"); err != nil {
		return nil, err
	}
	item, ok := c.s.content[id]
	if !ok {
		return nil, nil
	}
	now := c.s.now()
	patch.Normalize(item, now).Apply(item, now)
	return item.Clone(), nil
}

func (c *contentStore) DeleteByID(_ context.Context, id uuid.UUID) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := c.s.fault("content.DeleteByID"); err != nil {
		return false, err
	}
	_, ok := c.s.content[id]
	delete(c.s.content, id)
	return ok, nil
}

func (c *contentStore) Count(_ context.Context, f contentrepo.ContentFilter) (int64, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var n int64
	for _, item := range c.s.content {
		if f.Matches(item) {
			n++
		}
	}
	return n, nil
}

func (c *contentStore) IncrementStats(_ context.Context, id uuid.UUID, delta contentrepo.StatsDelta) (*content.Content, error) {
	if err := delta.Validate(); err != nil {
		return nil, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	item, ok := c.s.content[id]
	if !ok {
		return nil, nil
	}
	if !delta.IsZero() {
		delta.Apply(item, c.s.now())
	}
	return item.Clone(), nil
}

func (c *contentStore) UpdatePool(_ context.Context, id uuid.UUID, p content.Pool, likes, dislikes int64) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	item, ok := c.s.content[id]
	if !ok || item.Pool == content.PoolPremium {
		return false, nil
	}
	if item.Likes != likes || item.Dislikes != dislikes {
		return false, nil
	}
	item.Pool = p
	item.UpdatedAt = c.s.now()
	return true, nil
}

func (c *contentStore) RecordUse(_ context.Context, id uuid.UUID, at time.Time) (*content.Content, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	item, ok := c.s.content[id]
	if !ok {
		return nil, nil
	}
	at = at.UTC()
	item.UsageCount++
	item.LastUsedDate = &at
	item.UpdatedAt = at
	return item.Clone(), nil
}

// ---- archive ----

type archiveStore struct{ s *Store }

func (a *archiveStore) Find(_ context.Context, f contentrepo.ArchiveFilter) ([]*content.DeletedContent, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var out []*content.DeletedContent
	for _, d := range a.s.archive {
		if f.Matches(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeletedAt.Equal(out[j].DeletedAt) {
			return out[i].DeletedAt.After(out[j].DeletedAt)
		}
		return strings.Compare(out[i].ID.String(), out[j].ID.String()) < 0
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (a *archiveStore) FindByID(_ context.Context, id uuid.UUID) (*content.DeletedContent, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	d, ok := a.s.archive[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (a *archiveStore) FindByOriginalID(_ context.Context, originalID uuid.UUID) (*content.DeletedContent, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	d := a.s.archiveByOriginal(originalID)
	if d == nil {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (a *archiveStore) Insert(_ context.Context, d *content.DeletedContent) (*content.DeletedContent, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if err := a.s.insertArchive(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (a *archiveStore) DeleteByID(_ context.Context, id uuid.UUID) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	_, ok := a.s.archive[id]
	delete(a.s.archive, id)
	return ok, nil
}

func (a *archiveStore) Count(_ context.Context, f contentrepo.ArchiveFilter) (int64, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var n int64
	for _, d := range a.s.archive {
		if f.Matches(d) {
			n++
		}
	}
	return n, nil
}

func (s *Store) archiveByOriginal(originalID uuid.UUID) *content.DeletedContent {
	for _, d := range s.archive {
		if d.OriginalContentID == originalID {
			return d
		}
	}
	return nil
}

func (s *Store) insertArchive(d *content.DeletedContent) error {
	if err := s.fault("archive.Insert"); err != nil {
		return err
	}
	if err := contentrepo.PrepareArchiveInsert(d, s.now()); err != nil {
		return err
	}
	if s.archiveByOriginal(d.OriginalContentID) != nil {
		return apperr.Newf(apperr.CodeConflict, "archive.Insert", "content %s already archived", d.OriginalContentID)
	}
	cp := *d
	s.archive[cp.ID] = &cp
	return nil
}

// ---- transitions ----

type transitionStore struct{ s *Store }

func (t *transitionStore) ArchiveAndRemove(_ context.Context, id uuid.UUID, reason content.DeleteReason, opts content.ArchiveOptions) (*content.DeletedContent, error) {
	if !reason.Valid() {
		return nil, apperr.InvalidArgument("content.ArchiveAndRemove", "unknown delete reason %q", reason)
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	src, ok := t.s.content[id]
	if !ok {
		return nil, nil
	}
	rec := content.NewDeletedContent(src, reason, t.s.now(), opts)
	left := t.s.archiveByOriginal(id)
	if left != nil {
		// rebuild the copy an interrupted transition left behind
		rec.ID = left.ID
		delete(t.s.archive, left.ID)
	}
	if err := t.s.insertArchive(rec); err != nil {
		if left != nil {
			t.s.archive[left.ID] = left
		}
		return nil, transitionErr(id, reason, err)
	}
	if err := t.s.fault("content.DeleteByID"); err != nil {
		// the copy stays behind for Reconcile, like a partially applied two-phase move
		return nil, transitionErr(id, reason, err)
	}
	delete(t.s.content, id)
	cp := *rec
	return &cp, nil
}

func (t *transitionStore) Restore(_ context.Context, archiveID uuid.UUID) (*content.Content, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	rec, ok := t.s.archive[archiveID]
	if !ok {
		return nil, apperr.NotFound("content.Restore", "archive record %s", archiveID)
	}
	c := rec.Revive(t.s.now())
	if err := contentrepo.PrepareInsert(c, t.s.now()); err != nil {
		return nil, err
	}
	t.s.content[c.ID] = c.Clone()
	delete(t.s.archive, archiveID)
	return c, nil
}

func (t *transitionStore) Purge(_ context.Context, archiveID uuid.UUID) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	_, ok := t.s.archive[archiveID]
	delete(t.s.archive, archiveID)
	return ok, nil
}

func (t *transitionStore) Reconcile(_ context.Context, cutoff time.Time) (int, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	removed := 0
	for id, d := range t.s.archive {
		if !d.DeletedAt.Before(cutoff) {
			continue
		}
		if _, live := t.s.content[d.OriginalContentID]; live {
			delete(t.s.archive, id)
			removed++
		}
	}
	return removed, nil
}

func transitionErr(id uuid.UUID, reason content.DeleteReason, err error) error {
	return apperr.New(apperr.CodeTransition, "content.ArchiveAndRemove",
		"id="+id.String()+" reason="+string(reason), err)
}

// ---- categories ----

type categoryStore struct{ s *Store }

func (c *categoryStore) Create(_ context.Context, cat *content.Category) (*content.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if err := contentrepo.PrepareCategory(cat, c.s.now()); err != nil {
		return nil, err
	}
	cp := *cat
	c.s.categories[cp.ID] = &cp
	return cat, nil
}

func (c *categoryStore) FindByID(_ context.Context, id uuid.UUID) (*content.Category, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	cat, ok := c.s.categories[id]
	if !ok {
		return nil, nil
	}
	cp := *cat
	return &cp, nil
}

func (c *categoryStore) ListActive(_ context.Context) ([]*content.Category, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []*content.Category
	for _, cat := range c.s.categories {
		if cat.IsActive {
			cp := *cat
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (c *categoryStore) SetActive(_ context.Context, id uuid.UUID, active bool) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cat, ok := c.s.categories[id]
	if !ok {
		return false, nil
	}
	cat.IsActive = active
	cat.UpdatedAt = c.s.now()
	return true, nil
}

// ---- users ----

type userStore struct{ s *Store }

func (u *userStore) Create(_ context.Context, usr *user.User) (*user.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := userrepo.PrepareUser(usr, u.s.now()); err != nil {
		return nil, err
	}
	cp := *usr
	u.s.users[cp.ID] = &cp
	return usr, nil
}

func (u *userStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	usr, ok := u.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *usr
	return &cp, nil
}

func (u *userStore) FindSystemIdentity(_ context.Context) (*user.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	for _, role := range []user.Role{user.RoleSystem, user.RoleAdmin} {
		var best *user.User
		for _, usr := range u.s.users {
			if usr.Role != role {
				continue
			}
			if best == nil || usr.CreatedAt.Before(best.CreatedAt) {
				best = usr
			}
		}
		if best != nil {
			cp := *best
			return &cp, nil
		}
	}
	return nil, nil
}

func (u *userStore) ResetInactiveStreaks(_ context.Context, cutoff time.Time) (int64, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var n int64
	for _, usr := range u.s.users {
		if usr.StreakDays > 0 && (usr.LastActiveAt == nil || usr.LastActiveAt.Before(cutoff)) {
			usr.StreakDays = 0
			usr.UpdatedAt = u.s.now()
			n++
		}
	}
	return n, nil
}

func (u *userStore) ExpireSubscriptions(_ context.Context, now time.Time) (int64, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var n int64
	for _, usr := range u.s.users {
		if usr.SubscriptionStatus != user.SubscriptionActive && usr.SubscriptionStatus != user.SubscriptionCancelled {
			continue
		}
		if usr.SubscriptionEndDate == nil || !usr.SubscriptionEndDate.Before(now) {
			continue
		}
		usr.SubscriptionStatus = user.SubscriptionExpired
		usr.SubscriptionTier = user.TierFree
		usr.UpdatedAt = now.UTC()
		n++
	}
	return n, nil
}

// ---- job runs ----

type jobRunStore struct{ s *Store }

func (j *jobRunStore) Create(_ context.Context, job *jobs.JobRun) (*jobs.JobRun, error) {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	if err := jobsrepo.PrepareJobRun(job, j.s.now()); err != nil {
		return nil, err
	}
	cp := *job
	j.s.jobRuns[cp.ID] = &cp
	return job, nil
}

func (j *jobRunStore) GetByID(_ context.Context, id uuid.UUID) (*jobs.JobRun, error) {
	j.s.mu.RLock()
	defer j.s.mu.RUnlock()
	job, ok := j.s.jobRuns[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (j *jobRunStore) GetLatest(_ context.Context, jobType, trigger, status string) (*jobs.JobRun, error) {
	j.s.mu.RLock()
	defer j.s.mu.RUnlock()
	var best *jobs.JobRun
	for _, job := range j.s.jobRuns {
		if job.JobType != jobType || (trigger != "" && job.Trigger != trigger) || (status != "" && job.Status != status) {
			continue
		}
		if best == nil || job.StartedAt.After(best.StartedAt) {
			best = job
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (j *jobRunStore) UpdateFields(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	j.s.mu.Lock()
	defer j.s.mu.Unlock()
	job, ok := j.s.jobRuns[id]
	if !ok {
		return apperr.NotFound("job_run.UpdateFields", "job run %s", id)
	}
	job.UpdatedAt = j.s.now()
	jobsrepo.ApplyFields(job, updates)
	return nil
}

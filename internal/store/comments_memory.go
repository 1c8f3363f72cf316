package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"abroadhub/internal/models"
)

type voteKey struct {
	commentID uint
	voterID   uint
}

// MemoryStore is an in-process implementation used for development and tests.
// It honours the same contract as GormStore, including all-or-nothing vote transactions.
type MemoryStore struct {
	mu            sync.Mutex
	nextID        uint
	lastTime      time.Time
	comments      map[uint]models.Comment
	votes         map[voteKey]int8
	users         map[uint]models.User
	posts         map[uint]models.Post
	reports       map[uint]models.Report
	notifications []models.Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		comments: make(map[uint]models.Comment),
		votes:    make(map[voteKey]int8),
		users:    make(map[uint]models.User),
		posts:    make(map[uint]models.Post),
		reports:  make(map[uint]models.Report),
	}
}

// AddUser registers a user for author joins and actor lookups.
func (s *MemoryStore) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	s.users[u.ID] = u
}

func (s *MemoryStore) AddPost(p models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = p
}

// Notifications returns a copy of everything written through CreateNotifications.
func (s *MemoryStore) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.notifications...)
}

// VoteRows returns every persisted vote row for commentID, keyed by voter.
func (s *MemoryStore) VoteRows(commentID uint) map[uint]int8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint]int8)
	for k, v := range s.votes {
		if k.commentID == commentID {
			out[k.voterID] = v
		}
	}
	return out
}

// now is strictly increasing so created_at orderings are deterministic. Caller holds mu.
func (s *MemoryStore) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = t
	return t
}

func (s *MemoryStore) withAuthor(c models.Comment) models.Comment {
	c.Author = s.users[c.AuthorID]
	return c
}

func (s *MemoryStore) Insert(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.PostID == 0 || c.AuthorID == 0 || strings.TrimSpace(c.Content) == "" {
		return nil, ErrInvalidComment
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ParentID != nil {
		parent, ok := s.comments[*c.ParentID]
		if !ok {
			return nil, ErrNotFound
		}
		if parent.PostID != c.PostID {
			return nil, ErrParentMismatch
		}
	}

	s.nextID++
	now := s.now()
	stored := models.Comment{
		ID:         s.nextID,
		PostID:     c.PostID,
		AuthorID:   c.AuthorID,
		Content:    c.Content,
		IsMarkdown: c.IsMarkdown,
		Status:     models.CommentActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if c.ParentID != nil {
		pid := *c.ParentID
		stored.ParentID = &pid
	}
	s.comments[stored.ID] = stored

	out := s.withAuthor(stored)
	return &out, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := s.withAuthor(c)
	return &out, nil
}

func (s *MemoryStore) ListByPost(ctx context.Context, p ListParams) ([]models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var level []models.Comment
	for _, c := range s.comments {
		if c.PostID != p.PostID {
			continue
		}
		switch {
		case p.ParentID == nil && c.ParentID == nil:
		case p.ParentID != nil && c.ParentID != nil && *p.ParentID == *c.ParentID:
		default:
			continue
		}
		level = append(level, s.withAuthor(c))
	}

	sort.Slice(level, func(i, j int) bool {
		return p.Sort.less(&level[i], &level[j])
	})

	if p.Offset > 0 {
		if p.Offset >= len(level) {
			return []models.Comment{}, nil
		}
		level = level[p.Offset:]
	}
	if p.Limit > 0 && len(level) > p.Limit {
		level = level[:p.Limit]
	}
	if level == nil {
		level = []models.Comment{}
	}
	return level, nil
}

func (s *MemoryStore) CountReplies(ctx context.Context, parentIDs []uint) (map[uint]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[uint]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
	}
	counts := make(map[uint]int, len(parentIDs))
	for _, c := range s.comments {
		if c.ParentID != nil && wanted[*c.ParentID] {
			counts[*c.ParentID]++
		}
	}
	return counts, nil
}

func (s *MemoryStore) UpdateContent(ctx context.Context, id uint, content string, isMarkdown bool) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.IsDeleted() {
		return nil, ErrNotFound
	}
	now := s.now()
	c.Content = content
	c.IsMarkdown = isMarkdown
	c.IsEdited = true
	c.EditedAt = &now
	c.UpdatedAt = now
	s.comments[id] = c

	out := s.withAuthor(c)
	return &out, nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = models.CommentDeleted
	c.Content = models.DeletedPlaceholder
	c.UpdatedAt = s.now()
	s.comments[id] = c
	return nil
}

func (s *MemoryStore) VotesBy(ctx context.Context, voterID uint, commentIDs []uint) (map[uint]int8, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uint]int8, len(commentIDs))
	for _, id := range commentIDs {
		if v, ok := s.votes[voteKey{commentID: id, voterID: voterID}]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// RunVoteTx applies fn to private copies and swaps them in only when fn succeeds.
func (s *MemoryStore) RunVoteTx(ctx context.Context, fn func(tx VoteTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryVoteTx{
		s:        s,
		comments: make(map[uint]models.Comment, len(s.comments)),
		votes:    make(map[voteKey]int8, len(s.votes)),
	}
	for k, v := range s.comments {
		tx.comments[k] = v
	}
	for k, v := range s.votes {
		tx.votes[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.comments = tx.comments
	s.votes = tx.votes
	return nil
}

type memoryVoteTx struct {
	s        *MemoryStore
	comments map[uint]models.Comment
	votes    map[voteKey]int8
}

func (t *memoryVoteTx) LockComment(ctx context.Context, id uint) (*models.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, ok := t.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (t *memoryVoteTx) FindVote(ctx context.Context, commentID, voterID uint) (*models.CommentVote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := t.votes[voteKey{commentID: commentID, voterID: voterID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &models.CommentVote{CommentID: commentID, VoterID: voterID, VoteType: v}, nil
}

func (t *memoryVoteTx) SaveVote(ctx context.Context, v *models.CommentVote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.votes[voteKey{commentID: v.CommentID, voterID: v.VoterID}] = v.VoteType
	return nil
}

func (t *memoryVoteTx) DeleteVote(ctx context.Context, commentID, voterID uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delete(t.votes, voteKey{commentID: commentID, voterID: voterID})
	return nil
}

func (t *memoryVoteTx) AdjustTally(ctx context.Context, commentID uint, upDelta, downDelta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, ok := t.comments[commentID]
	if !ok {
		return ErrNotFound
	}
	c.Upvotes += upDelta
	c.Downvotes += downDelta
	c.UpdatedAt = t.s.now()
	t.comments[commentID] = c
	return nil
}

func (s *MemoryStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) ListAdmins(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var admins []models.User
	for _, u := range s.users {
		if u.IsAdmin() {
			admins = append(admins, u)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].ID < admins[j].ID })
	return admins, nil
}

func (s *MemoryStore) FindPost(ctx context.Context, id uint) (*models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) CreateReport(ctx context.Context, r *models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	r.CreatedAt = s.now()
	s.reports[r.ID] = *r
	return nil
}

func (s *MemoryStore) ListReports(ctx context.Context, limit int) ([]models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reports := make([]models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		r.User = s.users[r.UserID]
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (s *MemoryStore) DeleteReport(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *MemoryStore) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range ns {
		s.nextID++
		n.ID = s.nextID
		n.CreatedAt = s.now()
		s.notifications = append(s.notifications, n)
	}
	return nil
}

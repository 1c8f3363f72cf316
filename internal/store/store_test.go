package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"abroadhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ CommentStore      = (*GormStore)(nil)
	_ UserStore         = (*GormStore)(nil)
	_ PostStore         = (*GormStore)(nil)
	_ ReportStore       = (*GormStore)(nil)
	_ NotificationStore = (*GormStore)(nil)

	_ CommentStore      = (*MemoryStore)(nil)
	_ UserStore         = (*MemoryStore)(nil)
	_ PostStore         = (*MemoryStore)(nil)
	_ ReportStore       = (*MemoryStore)(nil)
	_ NotificationStore = (*MemoryStore)(nil)
)

func newMemory() *MemoryStore {
	s := NewMemoryStore()
	s.AddUser(models.User{ID: 1, Username: "alice", Name: "Alice"})
	s.AddUser(models.User{ID: 2, Username: "bob"})
	return s
}

func TestMemoryStore_InsertValidatesParent(t *testing.T) {
	ctx := context.Background()
	s := newMemory()

	_, err := s.Insert(ctx, &models.Comment{PostID: 1, AuthorID: 1, Content: ""})
	assert.ErrorIs(t, err, ErrInvalidComment)

	root, err := s.Insert(ctx, &models.Comment{PostID: 1, AuthorID: 1, Content: "root"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", root.Author.Name)
	assert.Equal(t, models.CommentActive, root.Status)

	missing := uint(999)
	_, err = s.Insert(ctx, &models.Comment{PostID: 1, AuthorID: 2, ParentID: &missing, Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Insert(ctx, &models.Comment{PostID: 2, AuthorID: 2, ParentID: &root.ID, Content: "x"})
	assert.ErrorIs(t, err, ErrParentMismatch)

	reply, err := s.Insert(ctx, &models.Comment{PostID: 1, AuthorID: 2, ParentID: &root.ID, Content: "reply"})
	require.NoError(t, err)
	assert.Equal(t, root.ID, *reply.ParentID)
}

func TestMemoryStore_AuthorJoinedAtReadTime(t *testing.T) {
	ctx := context.Background()
	s := newMemory()
	c, err := s.Insert(ctx, &models.Comment{PostID: 1, AuthorID: 2, Content: "hi"})
	require.NoError(t, err)

	s.AddUser(models.User{ID: 2, Username: "bob", Name: "Robert"})
	got, err := s.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Robert", got.Author.Name)
}

func TestMemoryStore_ListByPostOneLevel(t *testing.T) {
	ctx := context.Background()
	s := newMemory()
	root, _ := s.Insert(ctx, &models.Comment{PostID: 1, AuthorID: 1, Content: "root"})
	_, _ = s.Insert(ctx, &models.Comment{PostID: 1, AuthorID: 2, ParentID: &root.ID, Content: "child"})
	_, _ = s.Insert(ctx, &models.Comment{PostID: 1, AuthorID: 2, Content: "second root"})
	_, _ = s.Insert(ctx, &models.Comment{PostID: 2, AuthorID: 2, Content: "other post"})

	top, err := s.ListByPost(ctx, ListParams{PostID: 1, Sort: SortOld})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "root", top[0].Content)
	assert.Equal(t, "second root", top[1].Content)

	children, err := s.ListByPost(ctx, ListParams{PostID: 1, ParentID: &root.ID, Sort: SortOld})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "child", children[0].Content)

	paged, err := s.ListByPost(ctx, ListParams{PostID: 1, Sort: SortOld, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "second root", paged[0].Content)

	empty, err := s.ListByPost(ctx, ListParams{PostID: 1, Sort: SortOld, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)

	counts, err := s.CountReplies(ctx, []uint{root.ID, top[1].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[root.ID])
	assert.Equal(t, 0, counts[top[1].ID])
}

func TestMemoryStore_UpdateAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	s := newMemory()
	c, _ := s.Insert(ctx, &models.Comment{PostID: 1, AuthorID: 1, Content: "v1"})

	updated, err := s.UpdateContent(ctx, c.ID, "v2", true)
	require.NoError(t, err)
	assert.True(t, updated.IsEdited)
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt))

	require.NoError(t, s.SoftDelete(ctx, c.ID))
	got, _ := s.GetByID(ctx, c.ID)
	assert.Equal(t, models.DeletedPlaceholder, got.Content)
	assert.True(t, got.IsDeleted())

	_, err = s.UpdateContent(ctx, c.ID, "v3", false)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.SoftDelete(ctx, 12345), ErrNotFound)
}

func TestMemoryStore_VoteTxIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newMemory()
	c, _ := s.Insert(ctx, &models.Comment{PostID: 1, AuthorID: 1, Content: "x"})

	err := s.RunVoteTx(ctx, func(tx VoteTx) error {
		require.NoError(t, tx.SaveVote(ctx, &models.CommentVote{CommentID: c.ID, VoterID: 2, VoteType: 1}))
		require.NoError(t, tx.AdjustTally(ctx, c.ID, 1, 0))
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")
	assert.Empty(t, s.VoteRows(c.ID))
	got, _ := s.GetByID(ctx, c.ID)
	assert.Equal(t, 0, got.Upvotes)

	err = s.RunVoteTx(ctx, func(tx VoteTx) error {
		if err := tx.SaveVote(ctx, &models.CommentVote{CommentID: c.ID, VoterID: 2, VoteType: -1}); err != nil {
			return err
		}
		return tx.AdjustTally(ctx, c.ID, 0, 1)
	})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int8{2: -1}, s.VoteRows(c.ID))

	votes, err := s.VotesBy(ctx, 2, []uint{c.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int8{c.ID: -1}, votes)

	got, _ = s.GetByID(ctx, c.ID)
	assert.Equal(t, 1, got.Downvotes)
}

func TestMemoryStore_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newMemory()
	_, err := s.GetByID(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseSort(t *testing.T) {
	got, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, SortTop, got)

	got, err = ParseSort(" Controversial ")
	require.NoError(t, err)
	assert.Equal(t, SortControversial, got)

	_, err = ParseSort("hot")
	assert.Error(t, err)
}

func TestSortLess_TopTieBreaksByAge(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := &models.Comment{ID: 1, Upvotes: 5, CreatedAt: base}
	newer := &models.Comment{ID: 2, Upvotes: 5, CreatedAt: base.Add(time.Minute)}
	low := &models.Comment{ID: 3, Upvotes: 2, CreatedAt: base.Add(-time.Hour)}

	assert.True(t, SortTop.less(older, newer))
	assert.False(t, SortTop.less(newer, older))
	assert.True(t, SortTop.less(newer, low))

	assert.True(t, SortNew.less(newer, older))
	assert.True(t, SortOld.less(low, older))
}

func TestOrderClausesEndWithID(t *testing.T) {
	for _, s := range []Sort{SortTop, SortNew, SortOld, SortControversial} {
		clauses := s.orderClauses()
		require.NotEmpty(t, clauses)
		assert.Contains(t, clauses[len(clauses)-1], "id ", string(s))
	}
}

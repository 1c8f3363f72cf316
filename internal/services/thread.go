package services

import (
	"context"

	"abroadhub/internal/models"
	"abroadhub/internal/store"
)

// ThreadNode 楼层中的一条评论。Depth/CanReply 与访问者无关，ViewerVote/CanModify 每次请求单独计算。
type ThreadNode struct {
	Comment    models.Comment `json:"comment"`
	Depth      int            `json:"depth"`
	CanReply   bool           `json:"can_reply"`
	ViewerVote int8           `json:"viewer_vote"`
	CanModify  bool           `json:"can_modify"`
}

// ThreadPage 一层评论的一页。回复从不内联，需要时再按 ParentID 展开。
type ThreadPage struct {
	PostID   uint         `json:"post_id"`
	ParentID *uint        `json:"parent_id,omitempty"`
	Sort     store.Sort   `json:"sort"`
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
	HasMore  bool         `json:"has_more"`
	Nodes    []ThreadNode `json:"comments"`

	// ParentDepth 仅回复页有意义，"加载更多"需要带回去
	ParentDepth int `json:"-"`
}

// ThreadAssembler 按层取评论，不会一次性加载整棵树
type ThreadAssembler struct {
	store    store.CommentStore
	maxDepth int
}

func NewThreadAssembler(s store.CommentStore, maxDepth int) *ThreadAssembler {
	return &ThreadAssembler{store: s, maxDepth: maxDepth}
}

// TopLevel 取帖子的一级评论，page 从 1 开始
func (a *ThreadAssembler) TopLevel(ctx context.Context, postID uint, sort store.Sort, page, limit int) (*ThreadPage, error) {
	nodes, hasMore, err := a.level(ctx, store.ListParams{
		PostID: postID,
		Sort:   sort,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, 0)
	if err != nil {
		return nil, err
	}
	return &ThreadPage{
		PostID:  postID,
		Sort:    sort,
		Page:    page,
		Limit:   limit,
		HasMore: hasMore,
		Nodes:   nodes,
	}, nil
}

// RepliesOf 展开 parent 的下一层，page 从 1 开始。parentDepth 由调用方逐层传递，一级评论为 0。
func (a *ThreadAssembler) RepliesOf(ctx context.Context, parent *models.Comment, parentDepth int, sort store.Sort, page, limit int) (*ThreadPage, error) {
	pid := parent.ID
	nodes, hasMore, err := a.level(ctx, store.ListParams{
		PostID:   parent.PostID,
		ParentID: &pid,
		Sort:     sort,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}, parentDepth+1)
	if err != nil {
		return nil, err
	}
	return &ThreadPage{
		PostID:   parent.PostID,
		ParentID:    &pid,
		Sort:        sort,
		Page:        page,
		Limit:       limit,
		HasMore:     hasMore,
		Nodes:       nodes,
		ParentDepth: parentDepth,
	}, nil
}

// CanReply 深度达到上限后不再允许回复
func (a *ThreadAssembler) CanReply(depth int) bool {
	return depth < a.maxDepth
}

// level 多取一条用来判断是否还有下一页
func (a *ThreadAssembler) level(ctx context.Context, p store.ListParams, depth int) ([]ThreadNode, bool, error) {
	want := p.Limit
	p.Limit = want + 1
	comments, err := a.store.ListByPost(ctx, p)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(comments) > want
	if hasMore {
		comments = comments[:want]
	}

	ids := make([]uint, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}
	counts, err := a.store.CountReplies(ctx, ids)
	if err != nil {
		return nil, false, err
	}

	nodes := make([]ThreadNode, len(comments))
	for i := range comments {
		comments[i].ReplyCount = counts[comments[i].ID]
		nodes[i] = ThreadNode{
			Comment:  comments[i],
			Depth:    depth,
			CanReply: a.CanReply(depth) && !comments[i].IsDeleted(),
		}
	}
	return nodes, hasMore, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"abroadhub/internal/cache"
	"abroadhub/internal/config"
	"abroadhub/internal/logger"
	"abroadhub/internal/models"
	"abroadhub/internal/store"

	"github.com/sirupsen/logrus"
)

const (
	MaxContentLength = 10000 // 字符数
	MaxReasonLength  = 200
	DefaultReportsN  = 50
)

type Options struct {
	StatementTimeout time.Duration
	MaxReplyDepth    int
	PageSize         int
	MaxPageSize      int
	BlockSelfVote    bool
	CacheTTL         time.Duration
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		StatementTimeout: cfg.StatementTimeout,
		MaxReplyDepth:    cfg.MaxReplyDepth,
		PageSize:         cfg.PageSize,
		MaxPageSize:      cfg.MaxPageSize,
		BlockSelfVote:    cfg.BlockSelfVote,
		CacheTTL:         cfg.CacheTTL,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxReplyDepth <= 0 {
		o.MaxReplyDepth = 5
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = 100
	}
	if o.PageSize <= 0 || o.PageSize > o.MaxPageSize {
		o.PageSize = min(20, o.MaxPageSize)
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 5 * time.Minute
	}
	return o
}

// CreateInput 新建评论的参数，ParentID 为 nil 表示一级评论
type CreateInput struct {
	PostID     uint
	ParentID   *uint
	Content    string
	IsMarkdown bool
}

// CommentService 评论模块对外的唯一入口
type CommentService struct {
	comments store.CommentStore
	reports  store.ReportStore
	votes    *VoteAggregator
	threads  *ThreadAssembler
	gate     Gate
	notifier Notifier
	cache    cache.Cache
	opts     Options
}

func NewCommentService(comments store.CommentStore, reports store.ReportStore, notifier Notifier, c cache.Cache, opts Options) *CommentService {
	opts = opts.withDefaults()
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &CommentService{
		comments: comments,
		reports:  reports,
		votes:    NewVoteAggregator(comments),
		threads:  NewThreadAssembler(comments, opts.MaxReplyDepth),
		gate:     Gate{BlockSelfVote: opts.BlockSelfVote},
		notifier: notifier,
		cache:    c,
		opts:     opts,
	}
}

func (s *CommentService) Gate() Gate {
	return s.gate
}

// Create 发表评论或回复
func (s *CommentService) Create(ctx context.Context, actor Actor, in CreateInput) (*ThreadNode, error) {
	if actor.Anonymous() {
		return nil, Unauthorized("login required")
	}
	content := strings.TrimSpace(in.Content)
	if err := validContent(content); err != nil {
		return nil, err
	}
	if in.PostID == 0 {
		return nil, BadRequest("invalid post id")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var parent *models.Comment
	depth := 0
	if in.ParentID != nil {
		p, err := s.comments.GetByID(ctx, *in.ParentID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && (p.PostID != in.PostID || p.IsDeleted())) {
			return nil, NotFound("parent comment not found")
		}
		if err != nil {
			return nil, s.fail("create", err)
		}
		parentDepth, err := s.depthOf(ctx, p)
		if err != nil {
			return nil, s.fail("create", err)
		}
		if !s.threads.CanReply(parentDepth) {
			return nil, BadRequest("reply depth limit reached")
		}
		parent = p
		depth = parentDepth + 1
	}

	c, err := s.comments.Insert(ctx, &models.Comment{
		PostID:     in.PostID,
		ParentID:   in.ParentID,
		AuthorID:   actor.ID,
		Content:    content,
		IsMarkdown: in.IsMarkdown,
	})
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrParentMismatch) {
		return nil, NotFound("parent comment not found")
	}
	if err != nil {
		return nil, s.fail("create", err)
	}

	s.invalidate(ctx, c.PostID)
	if err := s.notifier.CommentCreated(ctx, c, parent); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"comment_id": c.ID,
			"post_id":    c.PostID,
		}).Warn("comment notification failed")
	}

	return &ThreadNode{
		Comment:   *c,
		Depth:     depth,
		CanReply:  s.threads.CanReply(depth),
		CanModify: true,
	}, nil
}

// Get 单条评论，带访问者状态
func (s *CommentService) Get(ctx context.Context, actor Actor, id uint) (*ThreadNode, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("get", err)
	}
	depth, err := s.depthOf(ctx, c)
	if err != nil {
		return nil, s.fail("get", err)
	}
	counts, err := s.comments.CountReplies(ctx, []uint{c.ID})
	if err != nil {
		return nil, s.fail("get", err)
	}
	c.ReplyCount = counts[c.ID]

	nodes := []ThreadNode{{
		Comment:  *c,
		Depth:    depth,
		CanReply: s.threads.CanReply(depth) && !c.IsDeleted(),
	}}
	if err := s.decorate(ctx, actor, nodes); err != nil {
		return nil, s.fail("get", err)
	}
	return &nodes[0], nil
}

// Edit 作者或管理员修改内容；已删除的评论视为不存在
func (s *CommentService) Edit(ctx context.Context, actor Actor, id uint, content string, isMarkdown bool) (*models.Comment, error) {
	if actor.Anonymous() {
		return nil, Unauthorized("login required")
	}
	content = strings.TrimSpace(content)
	if err := validContent(content); err != nil {
		return nil, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("edit", err)
	}
	if c.IsDeleted() {
		return nil, NotFound("comment not found")
	}
	if !s.gate.CanModify(c, actor) {
		return nil, Unauthorized("not allowed to edit this comment")
	}

	updated, err := s.comments.UpdateContent(ctx, id, content, isMarkdown)
	if err != nil {
		return nil, s.fail("edit", err)
	}
	s.invalidate(ctx, updated.PostID)
	return updated, nil
}

// Delete 软删除。重复删除直接返回成功。
func (s *CommentService) Delete(ctx context.Context, actor Actor, id uint) error {
	if actor.Anonymous() {
		return Unauthorized("login required")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return s.fail("delete", err)
	}
	if !s.gate.CanDelete(c, actor) {
		return Unauthorized("not allowed to delete this comment")
	}
	if c.IsDeleted() {
		return nil
	}

	if err := s.comments.SoftDelete(ctx, id); err != nil {
		return s.fail("delete", err)
	}
	s.invalidate(ctx, c.PostID)
	return nil
}

// Vote 投票，voteType 取 -1、0、1；重复投同一个值等于取消
func (s *CommentService) Vote(ctx context.Context, actor Actor, id uint, voteType int8) (VoteResult, error) {
	if actor.Anonymous() {
		return VoteResult{}, Unauthorized("login required")
	}
	if !ValidVoteType(voteType) {
		return VoteResult{}, BadRequest(ErrInvalidVote.Error())
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return VoteResult{}, s.fail("vote", err)
	}
	if c.IsDeleted() {
		return VoteResult{}, NotFound("comment not found")
	}
	if !s.gate.CanVote(c, actor) {
		return VoteResult{}, Forbidden("cannot vote on your own comment")
	}

	res, err := s.votes.Cast(ctx, id, actor.ID, voteType)
	if err != nil {
		return VoteResult{}, s.fail("vote", err)
	}
	s.invalidate(ctx, res.PostID)
	return res, nil
}

// FetchThread 一级评论分页，每条带 reply_count，不内联回复
func (s *CommentService) FetchThread(ctx context.Context, actor Actor, postID uint, sortName string, page, limit int) (*ThreadPage, error) {
	if postID == 0 {
		return nil, BadRequest("invalid post id")
	}
	sort, err := store.ParseSort(sortName)
	if err != nil {
		return nil, BadRequest(err.Error())
	}
	if page < 1 {
		page = 1
	}
	limit = s.clampLimit(limit)

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	tp, err := s.cachedPage(ctx, postID,
		func(gen string) string { return cache.ThreadKey(postID, gen, string(sort), page, limit) },
		func() (*ThreadPage, error) { return s.threads.TopLevel(ctx, postID, sort, page, limit) },
	)
	if err != nil {
		return nil, s.fail("fetch_thread", err)
	}
	if err := s.decorate(ctx, actor, tp.Nodes); err != nil {
		return nil, s.fail("fetch_thread", err)
	}
	return tp, nil
}

// FetchReplies 展开一层回复，page 从 1 开始。parentDepth 不在 [0, MaxReplyDepth] 内时由服务端沿 parent 链计算。
func (s *CommentService) FetchReplies(ctx context.Context, actor Actor, commentID uint, sortName string, page, limit, parentDepth int) (*ThreadPage, error) {
	sort, err := store.ParseSort(sortName)
	if err != nil {
		return nil, BadRequest(err.Error())
	}
	if page < 1 {
		page = 1
	}
	limit = s.clampLimit(limit)

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	parent, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, s.fail("fetch_replies", err)
	}
	if parentDepth < 0 || parentDepth > s.opts.MaxReplyDepth {
		if parentDepth, err = s.depthOf(ctx, parent); err != nil {
			return nil, s.fail("fetch_replies", err)
		}
	}

	tp, err := s.cachedPage(ctx, parent.PostID,
		func(gen string) string { return cache.RepliesKey(parent.PostID, gen, parent.ID, string(sort), page, limit) },
		func() (*ThreadPage, error) { return s.threads.RepliesOf(ctx, parent, parentDepth, sort, page, limit) },
	)
	if err != nil {
		return nil, s.fail("fetch_replies", err)
	}

	// 缓存里的深度可能来自别的调用方
	tp.ParentDepth = parentDepth
	depth := parentDepth + 1
	for i := range tp.Nodes {
		tp.Nodes[i].Depth = depth
		tp.Nodes[i].CanReply = s.threads.CanReply(depth) && !tp.Nodes[i].Comment.IsDeleted()
	}
	if err := s.decorate(ctx, actor, tp.Nodes); err != nil {
		return nil, s.fail("fetch_replies", err)
	}
	return tp, nil
}

// Report 举报评论并通知管理员
func (s *CommentService) Report(ctx context.Context, actor Actor, id uint, reason string) (*models.Report, error) {
	if actor.Anonymous() {
		return nil, Unauthorized("login required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, BadRequest("reason is required")
	}
	if utf8.RuneCountInString(reason) > MaxReasonLength {
		return nil, BadRequest("reason is too long")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail("report", err)
	}
	if !s.gate.CanReport(c, actor) {
		return nil, Forbidden("cannot report your own comment")
	}

	r := &models.Report{
		UserID:    actor.ID,
		CommentID: c.ID,
		PostID:    c.PostID,
		Reason:    reason,
	}
	if err := s.reports.CreateReport(ctx, r); err != nil {
		return nil, s.fail("report", err)
	}
	if err := s.notifier.ReportFiled(ctx, r); err != nil {
		logger.Log.WithError(err).WithField("report_id", r.ID).Warn("report notification failed")
	}
	return r, nil
}

// ListReports 管理员查看举报
func (s *CommentService) ListReports(ctx context.Context, actor Actor, limit int) ([]models.Report, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.opts.MaxPageSize {
		limit = min(DefaultReportsN, s.opts.MaxPageSize)
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	reports, err := s.reports.ListReports(ctx, limit)
	if err != nil {
		return nil, s.fail("list_reports", err)
	}
	return reports, nil
}

// DismissReport 管理员处理完举报后删除
func (s *CommentService) DismissReport(ctx context.Context, actor Actor, id uint) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	err := s.reports.DeleteReport(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return NotFound("report not found")
	}
	if err != nil {
		return s.fail("dismiss_report", err)
	}
	return nil
}

func requireAdmin(actor Actor) error {
	if actor.Anonymous() {
		return Unauthorized("login required")
	}
	if !actor.IsAdmin() {
		return Forbidden("admin only")
	}
	return nil
}

func validContent(content string) error {
	if content == "" {
		return BadRequest("content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return BadRequest("content is too long")
	}
	return nil
}

func (s *CommentService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.StatementTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.StatementTimeout)
}

func (s *CommentService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.PageSize
	}
	return min(limit, s.opts.MaxPageSize)
}

// depthOf 沿 parent 链向上数祖先个数，超过上限就不再往上查
func (s *CommentService) depthOf(ctx context.Context, c *models.Comment) (int, error) {
	depth := 0
	cur := c
	for cur.ParentID != nil && depth < s.opts.MaxReplyDepth {
		parent, err := s.comments.GetByID(ctx, *cur.ParentID)
		if err != nil {
			return 0, err
		}
		cur = parent
		depth++
	}
	return depth, nil
}

// decorate 填充访问者相关字段，这部分永远不进缓存
func (s *CommentService) decorate(ctx context.Context, actor Actor, nodes []ThreadNode) error {
	ids := make([]uint, len(nodes))
	for i := range nodes {
		c := &nodes[i].Comment
		ids[i] = c.ID
		nodes[i].CanModify = !c.IsDeleted() && s.gate.CanModify(c, actor)
		nodes[i].ViewerVote = 0
	}
	if actor.Anonymous() || len(nodes) == 0 {
		return nil
	}

	votes, err := s.comments.VotesBy(ctx, actor.ID, ids)
	if err != nil {
		return err
	}
	for i := range nodes {
		nodes[i].ViewerVote = votes[nodes[i].Comment.ID]
	}
	return nil
}

func (s *CommentService) cachedPage(ctx context.Context, postID uint, key func(gen string) string, load func() (*ThreadPage, error)) (*ThreadPage, error) {
	gen, err := cache.Generation(ctx, s.cache, postID)
	if err != nil {
		logger.Log.WithError(err).WithField("post_id", postID).Warn("comment cache unavailable")
		return load()
	}
	k := key(gen)

	b, err := s.cache.Get(ctx, k)
	switch {
	case err == nil:
		var tp ThreadPage
		if err := json.Unmarshal(b, &tp); err == nil {
			return &tp, nil
		}
		logger.Log.WithField("key", k).Warn("discarding undecodable cache entry")
	case !errors.Is(err, cache.ErrMiss):
		logger.Log.WithError(err).WithField("key", k).Warn("comment cache read failed")
	}

	tp, err := load()
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(tp); err == nil {
		if err := s.cache.Set(ctx, k, b, s.opts.CacheTTL); err != nil {
			logger.Log.WithError(err).WithField("key", k).Warn("comment cache write failed")
		}
	}
	return tp, nil
}

func (s *CommentService) invalidate(ctx context.Context, postID uint) {
	if _, err := cache.Bump(ctx, s.cache, postID); err != nil {
		logger.Log.WithError(err).WithField("post_id", postID).Warn("comment cache invalidation failed")
	}
}

func (s *CommentService) fail(op string, err error) error {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, store.ErrNotFound):
		return NotFound("comment not found")
	case errors.Is(err, store.ErrParentMismatch):
		return NotFound("parent comment not found")
	case errors.Is(err, store.ErrInvalidComment), errors.Is(err, ErrInvalidVote):
		return BadRequest(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logger.Log.WithField("op", op).Warn("comment operation timed out")
		return Timeout(err)
	}
	logger.Log.WithError(err).WithField("op", op).Error("comment operation failed")
	return Internal(err)
}

type noopNotifier struct{}

func (noopNotifier) CommentCreated(context.Context, *models.Comment, *models.Comment) error { return nil }
func (noopNotifier) ReportFiled(context.Context, *models.Report) error                      { return nil }

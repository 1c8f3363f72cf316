package services

import (
	"context"
	"errors"

	"abroadhub/internal/models"
	"abroadhub/internal/store"
	"abroadhub/internal/utils"
)

// ErrInvalidVote vote_type 只能是 -1、0、1
var ErrInvalidVote = errors.New("vote type must be -1, 0 or 1")

// VoteResult 投票后的最新计数和投票者的实际投票状态
type VoteResult struct {
	CommentID uint `json:"comment_id"`
	PostID    uint `json:"-"`
	Score     int  `json:"score"`
	VoteType  int8 `json:"vote_type"`
	Upvotes   int  `json:"upvotes"`
	Downvotes int  `json:"downvotes"`
}

// VoteAggregator 唯一可以写 comment_votes 和赞踩计数的地方
type VoteAggregator struct {
	store store.CommentStore
}

func NewVoteAggregator(s store.CommentStore) *VoteAggregator {
	return &VoteAggregator{store: s}
}

func ValidVoteType(v int8) bool {
	return v >= -1 && v <= 1
}

// Cast 在一个事务里完成：锁评论 -> 查旧票 -> 写/删票 -> 增量调整计数。
// 重复投同一个值视为取消；0 表示删除投票。
// 已删除的评论返回 store.ErrNotFound。
func (a *VoteAggregator) Cast(ctx context.Context, commentID, voterID uint, voteType int8) (VoteResult, error) {
	if !ValidVoteType(voteType) {
		return VoteResult{}, ErrInvalidVote
	}

	var res VoteResult
	err := a.store.RunVoteTx(ctx, func(tx store.VoteTx) error {
		c, err := tx.LockComment(ctx, commentID)
		if err != nil {
			return err
		}
		if c.IsDeleted() {
			return store.ErrNotFound
		}

		var prev int8
		existing, err := tx.FindVote(ctx, commentID, voterID)
		switch {
		case err == nil:
			prev = existing.VoteType
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		next := voteType
		if next != 0 && next == prev {
			next = 0 // toggle-off
		}

		switch {
		case next == prev:
		case next == 0:
			if err := tx.DeleteVote(ctx, commentID, voterID); err != nil {
				return err
			}
		default:
			if err := tx.SaveVote(ctx, &models.CommentVote{
				CommentID: commentID,
				VoterID:   voterID,
				VoteType:  next,
			}); err != nil {
				return err
			}
		}

		up, down := utils.TallyDelta(prev, next)
		if up != 0 || down != 0 {
			if err := tx.AdjustTally(ctx, commentID, up, down); err != nil {
				return err
			}
		}

		res = VoteResult{
			CommentID: commentID,
			PostID:    c.PostID,
			VoteType:  next,
			Upvotes:   c.Upvotes + up,
			Downvotes: c.Downvotes + down,
		}
		res.Score = res.Upvotes - res.Downvotes
		return nil
	})
	if err != nil {
		return VoteResult{}, err
	}
	return res, nil
}

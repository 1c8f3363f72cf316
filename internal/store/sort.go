package store

import (
	"fmt"
	"strings"

	"abroadhub/internal/models"
	"abroadhub/internal/utils"
)

// Sort is the closed set of thread orderings.
type Sort string

const (
	SortTop           Sort = "top"
	SortNew           Sort = "new"
	SortOld           Sort = "old"
	SortControversial Sort = "controversial"
)

const DefaultSort = SortTop

// ParseSort maps a query value onto a Sort; empty means DefaultSort.
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultSort, nil
	case SortTop:
		return SortTop, nil
	case SortNew:
		return SortNew, nil
	case SortOld:
		return SortOld, nil
	case SortControversial:
		return SortControversial, nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

// orderClauses are evaluated by Postgres at query time; each list ends with a unique key
// so pagination is stable.
func (s Sort) orderClauses() []string {
	switch s {
	case SortNew:
		return []string{"created_at DESC", "id DESC"}
	case SortOld:
		return []string{"created_at ASC", "id ASC"}
	case SortControversial:
		return []string{
			"CAST(LEAST(upvotes, downvotes) AS DOUBLE PRECISION) / GREATEST(upvotes, downvotes, 1) DESC",
			"(upvotes + downvotes) DESC",
			"created_at ASC",
			"id ASC",
		}
	default:
		return []string{"(upvotes - downvotes) DESC", "created_at ASC", "id ASC"}
	}
}

// less mirrors orderClauses for the in-memory store.
func (s Sort) less(a, b *models.Comment) bool {
	switch s {
	case SortNew:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	case SortOld:
		return olderFirst(a, b)
	case SortControversial:
		ca, cb := utils.Controversy(a.Upvotes, a.Downvotes), utils.Controversy(b.Upvotes, b.Downvotes)
		if ca != cb {
			return ca > cb
		}
		if va, vb := a.Upvotes+a.Downvotes, b.Upvotes+b.Downvotes; va != vb {
			return va > vb
		}
		return olderFirst(a, b)
	default:
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		return olderFirst(a, b)
	}
}

func olderFirst(a, b *models.Comment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

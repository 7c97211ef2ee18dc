// Package pool derives a content item's quality bucket from its votes.
package pool

import (
	types "github.com/yungbote/hackfeed-backend/internal/domain/content"
)

const (
	// MinVotes is the number of likes+dislikes needed before a pool is assigned.
	MinVotes = 10

	highlyLikedAt = 0.9
	acceptedAt    = 0.8
	dislikedAt    = 0.4

	starScale = 5
)

// Classify maps votes to a pool. ok is false when there are fewer than
// MinVotes votes, in which case the caller keeps whatever pool it has.
func Classify(likes, dislikes int64) (p types.Pool, ok bool) {
	total := likes + dislikes
	if total < MinVotes {
		return "", false
	}
	rating := float64(likes) / float64(total)
	switch {
	case rating >= highlyLikedAt:
		return types.PoolHighlyLiked, true
	case rating >= acceptedAt:
		return types.PoolAccepted, true
	case rating <= dislikedAt:
		return types.PoolDisliked, true
	default:
		return types.PoolRegular, true
	}
}

// Reclassify returns the pool an item should hold after a vote change.
// Premium is assigned by subscription gating and is never overwritten here.
func Reclassify(current types.Pool, likes, dislikes int64) types.Pool {
	if current == types.PoolPremium {
		return current
	}
	next, ok := Classify(likes, dislikes)
	if !ok {
		if current == "" {
			return types.PoolRegular
		}
		return current
	}
	return next
}

// Apply reclassifies c in place and reports whether the pool changed.
func Apply(c *types.Content) bool {
	if c == nil {
		return false
	}
	next := Reclassify(c.Pool, c.Likes, c.Dislikes)
	if next == c.Pool {
		return false
	}
	c.Pool = next
	return true
}

// StarRating is the like ratio on a five point scale, 0 without votes.
func StarRating(likes, dislikes int64) float64 {
	total := likes + dislikes
	if total <= 0 {
		return 0
	}
	return float64(likes) / float64(total) * starScale
}

package domain

import "time"

// DefaultForumUser names anonymous posters and likers.
const DefaultForumUser = "Visitor"

// ForumMessage is an authoritative forum post.
type ForumMessage struct {
	ID        string
	User      string
	Text      string
	CreatedAt time.Time
}

// ForumLike records that UserName liked MessageID. The pair is unique.
type ForumLike struct {
	MessageID string
	UserName  string
	CreatedAt time.Time
}

// LikeAction is the requested like toggle direction.
type LikeAction string

const (
	LikeActionLike   LikeAction = "like"
	LikeActionUnlike LikeAction = "unlike"
)

// Valid reports whether the action is known.
func (a LikeAction) Valid() bool {
	return a == LikeActionLike || a == LikeActionUnlike
}

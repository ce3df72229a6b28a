package models

import "time"

// Tweet is one entry of the tweet log. Likes holds the ids of users that liked it.
type Tweet struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"tweet_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"tweet"`
	Likes     IDSet     `gorm:"-" json:"likes"`
	CreatedAt time.Time `json:"-"`
}

// Clone returns a deep copy safe to hand out of a store.
func (t *Tweet) Clone() *Tweet {
	cp := *t
	cp.Likes = t.Likes.Clone()
	if cp.Likes == nil {
		cp.Likes = IDSet{}
	}
	return &cp
}

// TweetDetail is the point-lookup view of a tweet.
type TweetDetail struct {
	TweetID   uint   `json:"tweet_id"`
	UserID    uint   `json:"user_id"`
	Body      string `json:"tweet"`
	LikeCount int    `json:"like_count"`
}

func (t *Tweet) Detail() TweetDetail {
	return TweetDetail{TweetID: t.ID, UserID: t.UserID, Body: t.Body, LikeCount: t.Likes.Len()}
}

// Like records that a user liked a tweet. The pair is unique.
type Like struct {
	TweetID   uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "likes"
}

// Timeline is the response body of a timeline request.
type Timeline struct {
	UserID   uint     `json:"user_id"`
	Timeline []*Tweet `json:"timeline"`
}

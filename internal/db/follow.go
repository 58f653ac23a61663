package db

import "time"

// Follow 记录用户之间的关注关系，(FollowerID, FollowingID) 唯一。
type Follow struct {
	ID          uint `gorm:"primarykey"`
	FollowerID  uint `gorm:"not null;uniqueIndex:idx_follows_pair"`
	FollowingID uint `gorm:"not null;uniqueIndex:idx_follows_pair;index"`
	CreatedAt   time.Time
}

// TableName 指定自定义表名。
func (Follow) TableName() string {
	return "follows"
}

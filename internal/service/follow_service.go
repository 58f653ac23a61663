package service

import (
	"errors"
	"fmt"

	"github.com/folio/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrSelfFollow 在用户尝试关注自己时返回
	ErrSelfFollow = errors.New("cannot follow yourself")
)

// FollowService 维护用户之间的关注关系以及双方的计数。
// 关注与取消关注都是幂等的，计数与关系在同一事务内更新。
type FollowService struct {
	db *gorm.DB
}

// NewFollowService 构造 FollowService
func NewFollowService(gdb *gorm.DB) *FollowService {
	return &FollowService{db: gdb}
}

// Follow 建立关注关系，返回本次是否新建了关系。
func (s *FollowService) Follow(followerID, followingID uint) (bool, error) {
	if followerID == followingID {
		return false, ErrSelfFollow
	}

	created := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureUsersExist(tx, followerID, followingID); err != nil {
			return err
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&db.Follow{FollowerID: followerID, FollowingID: followingID})
		if result.Error != nil {
			return fmt.Errorf("create follow: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		created = true

		if err := tx.Model(&db.User{}).Where("id = ?", followingID).
			Update("followers_count", gorm.Expr("followers_count + 1")).Error; err != nil {
			return fmt.Errorf("increment followers: %w", err)
		}
		if err := tx.Model(&db.User{}).Where("id = ?", followerID).
			Update("following_count", gorm.Expr("following_count + 1")).Error; err != nil {
			return fmt.Errorf("increment following: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Unfollow 解除关注关系，返回本次是否真的删除了关系。
func (s *FollowService) Unfollow(followerID, followingID uint) (bool, error) {
	if followerID == followingID {
		return false, ErrSelfFollow
	}

	removed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).Delete(&db.Follow{})
		if result.Error != nil {
			return fmt.Errorf("delete follow: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true

		if err := tx.Model(&db.User{}).Where("id = ? AND followers_count > 0", followingID).
			Update("followers_count", gorm.Expr("followers_count - 1")).Error; err != nil {
			return fmt.Errorf("decrement followers: %w", err)
		}
		if err := tx.Model(&db.User{}).Where("id = ? AND following_count > 0", followerID).
			Update("following_count", gorm.Expr("following_count - 1")).Error; err != nil {
			return fmt.Errorf("decrement following: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// IsFollowing 判断 followerID 是否关注了 followingID。
func (s *FollowService) IsFollowing(followerID, followingID uint) (bool, error) {
	var count int64
	if err := s.db.Model(&db.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return count > 0, nil
}

// Followers 返回关注了 userID 的用户，最新关注在前。
func (s *FollowService) Followers(userID uint, page, perPage int) (*UserListResult, error) {
	return s.listEdges(userID, "following_id", "follower_id", page, perPage)
}

// Following 返回 userID 关注的用户，最新关注在前。
func (s *FollowService) Following(userID uint, page, perPage int) (*UserListResult, error) {
	return s.listEdges(userID, "follower_id", "following_id", page, perPage)
}

func (s *FollowService) listEdges(userID uint, matchColumn, joinColumn string, page, perPage int) (*UserListResult, error) {
	if err := ensureUsersExist(s.db, userID); err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	var total int64
	if err := s.db.Model(&db.Follow{}).Where(matchColumn+" = ?", userID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count follows: %w", err)
	}

	var users []db.User
	if err := s.db.Model(&db.User{}).
		Joins("JOIN follows ON follows."+joinColumn+" = users.id").
		Where("follows."+matchColumn+" = ?", userID).
		Order("follows.created_at desc, follows.id desc").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	return &UserListResult{
		Users:      users,
		Total:      total,
		TotalPages: totalPages(total, perPage),
		Page:       page,
		PerPage:    perPage,
	}, nil
}

func ensureUsersExist(tx *gorm.DB, ids ...uint) error {
	for _, id := range ids {
		var count int64
		if err := tx.Model(&db.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if count == 0 {
			return ErrUserNotFound
		}
	}
	return nil
}

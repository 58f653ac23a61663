package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/folio/internal/db"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserInvalidInput = errors.New("invalid user input")
	ErrUserHasPosts     = errors.New("user still authors blog posts")
)

// UserFilter describes filters for listing users in the admin panel.
type UserFilter struct {
	Search  string
	Page    int
	PerPage int
}

// UserListResult aggregates paginated user data.
type UserListResult struct {
	Users      []db.User
	Total      int64
	TotalPages int
	Page       int
	PerPage    int
}

// ProfileInput 描述用户自助修改资料时可设置的字段，nil 表示不修改。
type ProfileInput struct {
	Name      *string
	Bio       *string
	AvatarURL *string
}

// AdminUserInput 描述管理员修改账号时可设置的字段，nil 表示不修改。
type AdminUserInput struct {
	Name     *string
	IsAdmin  *bool
	Verified *bool
}

// UserService wraps user related database operations.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService instance.
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Get fetches a user by id.
func (s *UserService) Get(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// List provides paginated users ordered by creation time descending.
func (s *UserService) List(filter UserFilter) (*UserListResult, error) {
	result := &UserListResult{Page: filter.Page, PerPage: filter.PerPage}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = 20
	}

	if err := applyUserFilter(s.db.Model(&db.User{}), filter).Count(&result.Total).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	offset := (result.Page - 1) * result.PerPage
	if err := applyUserFilter(s.db.Model(&db.User{}), filter).Order("created_at desc, id desc").
		Limit(result.PerPage).
		Offset(offset).
		Find(&result.Users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	result.TotalPages = totalPages(result.Total, result.PerPage)
	return result, nil
}

// UpdateProfile 更新用户自己的公开资料。
func (s *UserService) UpdateProfile(id uint, input ProfileInput) (*db.User, error) {
	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrUserInvalidInput)
		}
		updates["name"] = name
	}
	if input.Bio != nil {
		updates["bio"] = strings.TrimSpace(*input.Bio)
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*input.AvatarURL)
	}

	return s.applyUpdates(id, updates)
}

// AdminUpdate 允许管理员修改姓名、管理员标记与验证状态。
func (s *UserService) AdminUpdate(id uint, input AdminUserInput) (*db.User, error) {
	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrUserInvalidInput)
		}
		updates["name"] = name
	}
	if input.IsAdmin != nil {
		updates["is_admin"] = *input.IsAdmin
	}
	if input.Verified != nil {
		updates["verified"] = *input.Verified
		if *input.Verified {
			updates["verification_token"] = ""
		}
	}

	return s.applyUpdates(id, updates)
}

// Delete 删除账号，并在同一事务内移除关注关系、修正对方的计数。
func (s *UserService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user db.User
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("find user: %w", err)
		}

		// 仍有文章的作者不能删除，否则 author_id 会悬空
		var posts int64
		if err := tx.Model(&db.BlogPost{}).Where("author_id = ?", id).Count(&posts).Error; err != nil {
			return fmt.Errorf("count posts: %w", err)
		}
		if posts > 0 {
			return ErrUserHasPosts
		}

		var followingIDs []uint
		if err := tx.Model(&db.Follow{}).Where("follower_id = ?", id).Pluck("following_id", &followingIDs).Error; err != nil {
			return fmt.Errorf("list following: %w", err)
		}
		var followerIDs []uint
		if err := tx.Model(&db.Follow{}).Where("following_id = ?", id).Pluck("follower_id", &followerIDs).Error; err != nil {
			return fmt.Errorf("list followers: %w", err)
		}

		if len(followingIDs) > 0 {
			if err := tx.Model(&db.User{}).
				Where("id IN ? AND followers_count > 0", followingIDs).
				Update("followers_count", gorm.Expr("followers_count - 1")).Error; err != nil {
				return fmt.Errorf("decrement followers: %w", err)
			}
		}
		if len(followerIDs) > 0 {
			if err := tx.Model(&db.User{}).
				Where("id IN ? AND following_count > 0", followerIDs).
				Update("following_count", gorm.Expr("following_count - 1")).Error; err != nil {
				return fmt.Errorf("decrement following: %w", err)
			}
		}

		if err := tx.Where("follower_id = ? OR following_id = ?", id, id).Delete(&db.Follow{}).Error; err != nil {
			return fmt.Errorf("delete follows: %w", err)
		}

		if err := tx.Unscoped().Delete(&user).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// Count 返回账号总数。
func (s *UserService) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&db.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *UserService) applyUpdates(id uint, updates map[string]interface{}) (*db.User, error) {
	user, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.Get(id)
}

func applyUserFilter(query *gorm.DB, filter UserFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("email LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	return query
}

func totalPages(total int64, perPage int) int {
	if total == 0 || perPage <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

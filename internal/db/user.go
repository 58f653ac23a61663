package db

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型，邮箱唯一且统一保存为小写。
type User struct {
	gorm.Model
	Email             string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash      string `gorm:"not null"`
	Name              string `gorm:"size:120"`
	Bio               string `gorm:"type:text"`
	AvatarURL         string `gorm:"size:512"`
	IsAdmin           bool   `gorm:"default:false"`
	Verified          bool   `gorm:"default:false"`
	VerificationToken string `gorm:"size:64;index"`
	ResetToken        string `gorm:"size:64;index"`
	ResetExpiresAt    *time.Time
	FollowersCount    int `gorm:"default:0"`
	FollowingCount    int `gorm:"default:0"`
}

// NormalizeEmail 去除空白并转为小写。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureAdmin 存在性检查：若提供的邮箱与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的管理员；
// 账号已存在时仅确保其拥有管理员标记，不覆盖密码。
func EnsureAdmin(gdb *gorm.DB, email, password string) error {
	trimmedEmail := NormalizeEmail(email)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedEmail == "" || trimmedPassword == "" {
		return nil
	}

	if gdb == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := gdb.Where("email = ?", trimmedEmail).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return gdb.Create(&User{
			Email:        trimmedEmail,
			PasswordHash: string(hashed),
			Name:         "Admin",
			IsAdmin:      true,
			Verified:     true,
		}).Error
	}

	if existing.IsAdmin {
		return nil
	}
	return gdb.Model(&existing).Update("is_admin", true).Error
}

package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/folio/internal/db"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password is too short")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAdmin           = errors.New("account is not an administrator")
	ErrMasterKeyUnset     = errors.New("admin master key is not configured")
	ErrMasterKeyInvalid   = errors.New("invalid master key")
	ErrInvalidToken       = errors.New("invalid or unknown token")
	ErrTokenExpired       = errors.New("token has expired")
)

// MinPasswordLength 是注册与重置密码时允许的最短密码长度。
const MinPasswordLength = 8

// ResetTokenTTL 是重置密码令牌的有效期。
const ResetTokenTTL = time.Hour

// dummyHash 用于未知邮箱登录时消耗与正常校验相同的时间。
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("folio-timing-guard"), bcrypt.DefaultCost)

// RegisterInput 描述注册时提交的字段。
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// AuthService 负责注册、登录、验证与密码重置。
type AuthService struct {
	db           *gorm.DB
	contents     *ContentService
	envMasterKey string
	mailer       Mailer
	logger       zerolog.Logger
	now          func() time.Time
}

// NewAuthService 构造 AuthService。masterKey 来自环境变量，为空时回退到内容文档中的配置。
func NewAuthService(gdb *gorm.DB, contents *ContentService, masterKey string, mailer Mailer, logger zerolog.Logger) *AuthService {
	if mailer == nil {
		mailer = NewLogMailer(logger)
	}
	return &AuthService{
		db:           gdb,
		contents:     contents,
		envMasterKey: strings.TrimSpace(masterKey),
		mailer:       mailer,
		logger:       logger,
		now:          time.Now,
	}
}

// Register 创建新账号并发送验证邮件，邮箱重复时返回 ErrEmailTaken。
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*db.User, error) {
	email := db.NormalizeEmail(input.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	var count int64
	if err := s.db.Model(&db.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user := db.User{
		Email:             email,
		PasswordHash:      string(hashed),
		Name:              name,
		VerificationToken: uuid.NewString(),
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.mailer.SendVerification(ctx, user, user.VerificationToken); err != nil {
		s.logger.Warn().Err(err).Str("email", user.Email).Msg("send verification mail failed")
	}

	return &user, nil
}

// Authenticate 校验邮箱与密码。未知邮箱与错误密码返回同一个错误。
func (s *AuthService) Authenticate(email, password string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("email = ?", db.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// AuthenticateAdmin 在密码校验之外还要求管理员标记以及正确的主密钥。
func (s *AuthService) AuthenticateAdmin(email, password, masterKey string) (*db.User, error) {
	user, err := s.Authenticate(email, password)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, ErrNotAdmin
	}

	expected, err := s.MasterKey()
	if err != nil {
		return nil, err
	}
	if expected == "" {
		return nil, ErrMasterKeyUnset
	}
	if !secretsEqual(expected, strings.TrimSpace(masterKey)) {
		return nil, ErrMasterKeyInvalid
	}

	return user, nil
}

// MasterKey 返回当前生效的主密钥：优先环境变量，其次内容文档。
func (s *AuthService) MasterKey() (string, error) {
	if s.envMasterKey != "" {
		return s.envMasterKey, nil
	}
	if s.contents == nil {
		return "", nil
	}
	return s.contents.MasterKey()
}

// Verify 使用验证令牌激活账号。
func (s *AuthService) Verify(token string) (*db.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, ErrInvalidToken
	}

	var user db.User
	if err := s.db.Where("verification_token = ?", trimmed).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find user by token: %w", err)
	}

	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"verified":           true,
		"verification_token": "",
	}).Error; err != nil {
		return nil, fmt.Errorf("verify user: %w", err)
	}

	user.Verified = true
	user.VerificationToken = ""
	return &user, nil
}

// RequestPasswordReset 为存在的账号生成重置令牌；账号不存在时静默返回空串。
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	var user db.User
	if err := s.db.Where("email = ?", db.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	token := uuid.NewString()
	expires := s.now().Add(ResetTokenTTL)
	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"reset_token":      token,
		"reset_expires_at": expires,
	}).Error; err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user, token); err != nil {
		s.logger.Warn().Err(err).Str("email", user.Email).Msg("send reset mail failed")
	}

	return token, nil
}

// ResetPassword 使用未过期的重置令牌设置新密码，成功后令牌失效。
func (s *AuthService) ResetPassword(token, newPassword string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidToken
	}
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	var user db.User
	if err := s.db.Where("reset_token = ?", trimmed).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("find user by token: %w", err)
	}

	if user.ResetExpiresAt == nil || s.now().After(*user.ResetExpiresAt) {
		return ErrTokenExpired
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.db.Model(&user).Updates(map[string]interface{}{
		"password_hash":    string(hashed),
		"reset_token":      "",
		"reset_expires_at": nil,
	}).Error
}

// ChangePassword 在校验当前密码后更新密码。
func (s *AuthService) ChangePassword(userID uint, current, next string) error {
	if len(next) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	var user db.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.db.Model(&user).Update("password_hash", string(hashed)).Error
}

// secretsEqual 对两个秘密的摘要做常量时间比较。
func secretsEqual(expected, actual string) bool {
	a := sha256.Sum256([]byte(expected))
	b := sha256.Sum256([]byte(actual))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/utils/auth"
	"gorm.io/gorm"
)

// IdentityService registers profiles, issues tokens and resolves the caller
// of each request
type IdentityService struct {
	db            *gorm.DB
	jwt           *auth.JWTManager
	blacklist     *auth.BlacklistService
	audit         *AuditService
	notifications *NotificationService
}

// NewIdentityService creates a new identity service
func NewIdentityService(db *gorm.DB, jwtManager *auth.JWTManager, blacklist *auth.BlacklistService, audit *AuditService, notifications *NotificationService) *IdentityService {
	return &IdentityService{
		db:            db,
		jwt:           jwtManager,
		blacklist:     blacklist,
		audit:         audit,
		notifications: notifications,
	}
}

// RegisterInput is the input for Register
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// UpdateProfileInput carries the profile fields to change
type UpdateProfileInput struct {
	FullName  *string
	AvatarURL *string
}

// ProfileQuery filters ListProfiles
type ProfileQuery struct {
	Role   model.Role
	Search string
	Page   int
	Limit  int
}

// Session is a signed-in profile with its tokens
type Session struct {
	Profile *model.Profile  `json:"profile"`
	Tokens  *auth.TokenPair `json:"tokens"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *IdentityService) issue(profile *model.Profile) (*Session, error) {
	tokens, err := s.jwt.IssuePair(profile.ID, profile.Email, string(profile.Role), profile.TokenVersion)
	if err != nil {
		return nil, persistenceError("failed to issue tokens", err)
	}
	return &Session{Profile: profile, Tokens: tokens}, nil
}

// Register creates a student profile and signs it in
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationError("a valid email address is required")
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, validationError("full name is required")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, validationError("%s", err.Error())
		}
		return nil, persistenceError("failed to hash password", err)
	}

	profile := model.Profile{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         model.RoleStudent,
	}

	db := s.db.WithContext(ctx)

	var existing int64
	if err := db.Model(&model.Profile{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, persistenceError("failed to check email", err)
	}
	if existing > 0 {
		return nil, validationError("an account with this email already exists")
	}

	if err := db.Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, validationError("an account with this email already exists")
		}
		return nil, persistenceError("failed to create profile", err)
	}

	log.Printf("[IDENTITY] Profile %d registered (%s)", profile.ID, profile.Email)
	return s.issue(&profile)
}

// Authenticate checks an email and password and signs the profile in
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	var profile model.Profile
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authError("invalid email or password")
		}
		return nil, persistenceError("failed to load profile", err)
	}

	if err := auth.VerifyPassword(profile.PasswordHash, password); err != nil {
		return nil, authError("invalid email or password")
	}

	return s.issue(&profile)
}

// loadTokenProfile validates a token of the given type and returns the
// profile it was issued to. Revoked tokens and tokens from an older token
// version are rejected.
func (s *IdentityService) loadTokenProfile(ctx context.Context, token, tokenType string) (*model.Profile, *auth.Claims, error) {
	claims, err := s.jwt.ValidateTokenOfType(token, tokenType)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, nil, authError("token has expired")
		}
		return nil, nil, authError("invalid token")
	}

	revoked, err := s.blacklist.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, persistenceError("failed to check token", err)
	}
	if revoked {
		return nil, nil, authError("token has been revoked")
	}

	var profile model.Profile
	if err := s.db.WithContext(ctx).First(&profile, claims.ProfileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, authError("profile not found")
		}
		return nil, nil, persistenceError("failed to load profile", err)
	}

	if profile.TokenVersion != claims.TokenVersion {
		return nil, nil, authError("token is no longer valid, please sign in again")
	}
	return &profile, claims, nil
}

// ResolveCaller turns an access token into the Caller of a request. The role
// comes from the stored profile, never from the token.
func (s *IdentityService) ResolveCaller(ctx context.Context, accessToken string) (*Caller, *auth.Claims, error) {
	profile, claims, err := s.loadTokenProfile(ctx, accessToken, auth.TokenTypeAccess)
	if err != nil {
		return nil, nil, err
	}
	return NewCaller(profile), claims, nil
}

// Refresh exchanges a refresh token for a new token pair. The old refresh
// token is revoked.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	profile, claims, err := s.loadTokenProfile(ctx, refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	if err := s.blacklist.RevokeToken(ctx, claims.ID, profile.ID, claims.ExpiresAt.Time, "refresh"); err != nil {
		return nil, persistenceError("failed to rotate refresh token", err)
	}
	return s.issue(profile)
}

// Logout revokes the access token and, when given, the refresh token
func (s *IdentityService) Logout(ctx context.Context, caller *Caller, access *auth.Claims, refreshToken string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	if access != nil && access.ExpiresAt != nil {
		if err := s.blacklist.RevokeToken(ctx, access.ID, caller.ProfileID, access.ExpiresAt.Time, "logout"); err != nil {
			return persistenceError("failed to revoke token", err)
		}
	}

	if refreshToken != "" {
		claims, err := s.jwt.ValidateTokenOfType(refreshToken, auth.TokenTypeRefresh)
		if err == nil && claims.ProfileID == caller.ProfileID {
			if err := s.blacklist.RevokeToken(ctx, claims.ID, caller.ProfileID, claims.ExpiresAt.Time, "logout"); err != nil {
				return persistenceError("failed to revoke token", err)
			}
		}
	}

	log.Printf("[IDENTITY] Profile %d signed out", caller.ProfileID)
	return nil
}

// GetProfile returns the caller's own profile
func (s *IdentityService) GetProfile(ctx context.Context, caller *Caller) (*model.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var profile model.Profile
	if err := s.db.WithContext(ctx).First(&profile, caller.ProfileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("profile not found")
		}
		return nil, persistenceError("failed to load profile", err)
	}
	return &profile, nil
}

// UpdateProfile changes the caller's display fields. Role and email are not
// editable here.
func (s *IdentityService) UpdateProfile(ctx context.Context, caller *Caller, in UpdateProfileInput) (*model.Profile, error) {
	profile, err := s.GetProfile(ctx, caller)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, validationError("full name is required")
		}
		updates["full_name"] = name
	}
	if in.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*in.AvatarURL)
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
			return nil, persistenceError("failed to update profile", err)
		}
		return s.GetProfile(ctx, caller)
	}
	return profile, nil
}

// ListProfiles returns a page of profiles for admins
func (s *IdentityService) ListProfiles(ctx context.Context, caller *Caller, q ProfileQuery) ([]model.Profile, int64, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&model.Profile{})
	if q.Role != "" {
		if !q.Role.Valid() {
			return nil, 0, validationError("unknown role %q", q.Role)
		}
		query = query.Where("role = ?", q.Role)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError("failed to count profiles", err)
	}

	var profiles []model.Profile
	err := query.Order("created_at DESC").Order("id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, persistenceError("failed to list profiles", err)
	}
	return profiles, total, nil
}

// UpdateRole assigns a role to a profile. Only admins may do this. Existing
// tokens of the profile stop working so the new role applies immediately.
func (s *IdentityService) UpdateRole(ctx context.Context, caller *Caller, profileID uint, role model.Role) (*model.Profile, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, validationError("unknown role %q", role)
	}
	if profileID == caller.ProfileID {
		return nil, validationError("you cannot change your own role")
	}

	var (
		profile  model.Profile
		previous model.Role
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&profile, profileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("profile not found")
			}
			return err
		}

		previous = profile.Role
		if previous == role {
			return nil
		}

		if err := tx.Model(&profile).Update("role", role).Error; err != nil {
			return err
		}
		return s.blacklist.RevokeAllProfileTokens(ctx, tx, profile.ID)
	})
	if err != nil {
		return nil, persistenceError("failed to update role", err)
	}
	if previous == role {
		return &profile, nil
	}
	profile.Role = role

	log.Printf("[IDENTITY] Profile %d role %s -> %s by admin %d", profile.ID, previous, role, caller.ProfileID)

	if s.audit != nil {
		s.audit.Record(ctx, AuditEntry{
			ActorID:    caller.ProfileID,
			Action:     "role_update",
			Resource:   "profiles",
			ResourceID: profile.ID,
			OldValue:   map[string]interface{}{"role": previous},
			NewValue:   map[string]interface{}{"role": role},
		})
	}
	if s.notifications != nil {
		_, err := s.notifications.CreateNotification(ctx, CreateNotificationRequest{
			ProfileID: profile.ID,
			Type:      model.NotificationTypeInfo,
			Category:  model.NotificationCategoryAccount,
			Title:     "Your role changed",
			Message:   fmt.Sprintf("You are now signed up as %s. Please sign in again.", role),
			Metadata:  &model.NotificationMetadata{Role: role},
		})
		if err != nil {
			log.Printf("[IDENTITY] Failed to notify profile %d: %v", profile.ID, err)
		}
	}

	return &profile, nil
}

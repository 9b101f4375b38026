package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/petermazzocco/go-dashboard/internal/auth"
	"github.com/petermazzocco/go-dashboard/internal/logger"
	"github.com/petermazzocco/go-dashboard/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxNameLength     = 50
	minPasswordLength = 8
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

type UserService struct {
	db         *gorm.DB
	log        *logger.Logger
	bcryptCost int
}

func NewUserService(db *gorm.DB, log *logger.Logger, bcryptCost int) *UserService {
	return &UserService{db: db, log: log.With("service", "UserService"), bcryptCost: bcryptCost}
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
	Username string
}

// GoogleProfile is the subset of an OAuth identity used to find or create a
// user.
type GoogleProfile struct {
	GoogleID   string
	Email      string
	Name       string
	PictureURL string
}

func validateName(name string) string {
	switch {
	case name == "":
		return "Name cannot be empty."
	case utf8.RuneCountInString(name) > maxNameLength:
		return fmt.Sprintf("Name cannot exceed %d characters.", maxNameLength)
	}
	return ""
}

func validateUsername(username string) string {
	switch {
	case username == "":
		return "Username cannot be empty."
	case !usernamePattern.MatchString(username):
		return "Username must be 3-20 characters (letters, numbers, or underscores)."
	}
	return ""
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)

	fe := FieldErrors{}
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		fe["email"] = "Please enter a valid email address."
	}
	if len(in.Password) < minPasswordLength {
		fe["password"] = fmt.Sprintf("Password must be at least %d characters.", minPasswordLength)
	}
	if msg := validateName(in.Name); msg != "" {
		fe["name"] = msg
	}
	if msg := validateUsername(in.Username); msg != "" {
		fe["username"] = msg
	}
	if len(fe) > 0 {
		return nil, fe
	}

	var existing []models.User
	if err := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", in.Email, in.Username).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("lookup existing users: %w", err)
	}
	for _, u := range existing {
		if u.Email == in.Email {
			fe["email"] = "An account with this email already exists."
		}
		if u.Username == in.Username {
			fe["username"] = "This username is already taken."
		}
	}
	if len(fe) > 0 {
		return nil, fe
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:    in.Email,
		Username: in.Username,
		Name:     in.Name,
		Password: hash,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fieldError("email", "An account with this email or username already exists.")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user signed up", "user_id", user.ID)
	return user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get loads a user with their image.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Image").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

// FindOrCreateGoogleUser resolves an OAuth identity to a user: by Google id
// first, then by email (linking the account), else a new user with a
// username derived from the email.
func (s *UserService) FindOrCreateGoogleUser(ctx context.Context, p GoogleProfile) (*models.User, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" {
		return nil, fieldError("email", "Google account has no email address.")
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Image").Where("google_id = ?", p.GoogleID).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Preload("Image").Where("email = ?", p.Email).First(&user).Error
		switch {
		case err == nil:
			updates := map[string]any{"google_id": p.GoogleID}
			if user.Name == "" && p.Name != "" {
				updates["name"] = p.Name
			}
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
			googleID := p.GoogleID
			user.GoogleID = &googleID
		case errors.Is(err, gorm.ErrRecordNotFound):
			username, err := uniqueUsername(tx, p.Email)
			if err != nil {
				return err
			}
			googleID := p.GoogleID
			name := p.Name
			if name == "" {
				name = emailLocalPart(p.Email)
			}
			user = models.User{Email: p.Email, Username: username, Name: name, GoogleID: &googleID}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if p.PictureURL != "" && (user.Image == nil || user.Image.URL != p.PictureURL) {
			img := models.UserImage{
				UserID:  user.ID,
				URL:     p.PictureURL,
				AltText: altText(user.Name, user.Username),
				Blob:    []byte{},
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"url", "alt_text", "updated_at"}),
			}).Create(&img).Error; err != nil {
				return err
			}
			user.Image = &img
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find or create google user: %w", err)
	}
	return &user, nil
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// usernameBase reduces an email's local part to username characters,
// leaving room for a numeric suffix.
func usernameBase(email string) string {
	var b strings.Builder
	for _, r := range emailLocalPart(email) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	base := b.String()
	if len(base) > 16 {
		base = base[:16]
	}
	for len(base) < 3 {
		base += "_"
	}
	return base
}

func uniqueUsername(tx *gorm.DB, email string) (string, error) {
	base := usernameBase(email)
	username := base
	for counter := 1; ; counter++ {
		var n int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return username, nil
		}
		username = fmt.Sprintf("%s%d", base, counter)
	}
}

func altText(name, username string) string {
	who := name
	if who == "" {
		who = username
	}
	if who == "" {
		who = "User"
	}
	return who + "'s profile picture"
}

func (s *UserService) UpdateName(ctx context.Context, userID uint, name string) error {
	name = strings.TrimSpace(name)
	if msg := validateName(name); msg != "" {
		return fieldError("name", msg)
	}
	return s.update(ctx, userID, map[string]any{"name": name})
}

func (s *UserService) UpdateUsername(ctx context.Context, userID uint, username string) error {
	username = strings.TrimSpace(username)
	if msg := validateUsername(username); msg != "" {
		return fieldError("username", msg)
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", username, userID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if n > 0 {
		return fieldError("username", "This username is already taken.")
	}
	err := s.update(ctx, userID, map[string]any{"username": username})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fieldError("username", "This username is already taken.")
	}
	return err
}

func (s *UserService) update(ctx context.Context, userID uint, updates map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.User{ID: userID}).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type ProfileImageInput struct {
	Blob        []byte
	ContentType string
	StorageKey  string
}

// SetProfileImage stores a new avatar for the user and returns it. The
// image is served from /images/user/{id}.
func (s *UserService) SetProfileImage(ctx context.Context, user *models.User, in ProfileImageInput) (*models.UserImage, error) {
	img := models.UserImage{
		UserID:      user.ID,
		Blob:        in.Blob,
		ContentType: in.ContentType,
		StorageKey:  in.StorageKey,
		AltText:     altText(user.Name, user.Username),
		URL:         fmt.Sprintf("/images/user/%d", user.ID),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"blob", "content_type", "storage_key", "alt_text", "url", "updated_at"}),
	}).Create(&img).Error
	if err != nil {
		return nil, fmt.Errorf("save profile image: %w", err)
	}
	// The upsert does not report the stored row on every driver.
	var stored models.UserImage
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload profile image: %w", err)
	}
	return &stored, nil
}

// ProfileImage returns the user's avatar, ErrNotFound when the user has
// none.
func (s *UserService) ProfileImage(ctx context.Context, userID uint) (*models.UserImage, error) {
	var img models.UserImage
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile image: %w", err)
	}
	return &img, nil
}

// Exists reports whether a user with the id exists.
func (s *UserService) Exists(ctx context.Context, userID uint) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count user: %w", err)
	}
	return n > 0, nil
}

// DeleteAccount removes the user and everything they own.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chatIDs := tx.Model(&models.Chat{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("chat_id IN (?)", chatIDs).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		for _, m := range []any{&models.Chat{}, &models.Note{}, &models.EducationResource{}} {
			if err := tx.Where("user_id = ?", userID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Project{}).Where("user_id = ?", userID).Update("parent_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Project{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserImage{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("delete account %d: %w", userID, err)
	}
	s.log.Info("account deleted", "user_id", userID)
	return nil
}

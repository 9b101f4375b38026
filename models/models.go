package models

import (
	"time"
)

type User struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Email     string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username  string     `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Name      string     `gorm:"size:255" json:"name"`
	Password  string     `gorm:"size:255" json:"-"`
	GoogleID  *string    `gorm:"size:255;uniqueIndex" json:"-"`
	Image     *UserImage `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"image,omitempty"`
}

// UserImage holds a user's avatar. Blob may be empty when only a remote
// picture URL is known (Google sign-in).
type UserImage struct {
	ID          uint      `gorm:"primarykey" json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"updatedAt"`
	UserID      uint      `gorm:"not null;uniqueIndex" json:"-"`
	Blob        []byte    `json:"-"`
	ContentType string    `gorm:"size:100" json:"contentType,omitempty"`
	AltText     string    `gorm:"size:255" json:"altText,omitempty"`
	URL         string    `gorm:"size:1024" json:"url"`
	StorageKey  string    `gorm:"size:1024" json:"-"`
}

type Project struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ParentID  *uint     `gorm:"index" json:"parentId"`
	Parent    *Project  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	Starred   bool      `gorm:"not null;default:false" json:"starred"`
}

const (
	ChatTypeSolo  = "solo"
	ChatTypeGroup = "group"

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Chat struct {
	ID           uint          `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	UserID       uint          `gorm:"not null;index" json:"userId"`
	User         *User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name         string        `gorm:"size:255;not null" json:"name"`
	Type         string        `gorm:"size:16;not null;default:solo" json:"type"`
	CurrentModel string        `gorm:"size:100" json:"currentModel"`
	Messages     []ChatMessage `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"messages,omitempty"`
}

type ChatMessage struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ChatID    uint      `gorm:"not null;index" json:"chatId"`
	SenderID  *uint     `gorm:"index" json:"senderId"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Model     string    `gorm:"size:100" json:"model,omitempty"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
}

type Note struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Type      string    `gorm:"size:32;not null;default:note" json:"type"`
}

// EducationResource is a saved link shown in the education panel, grouped
// by Topic.
type EducationResource struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Topic     string    `gorm:"size:100;not null;index" json:"topic"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	URL       string    `gorm:"size:1024" json:"url,omitempty"`
	Kind      string    `gorm:"size:32" json:"kind,omitempty"`
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&UserImage{},
		&Project{},
		&Chat{},
		&ChatMessage{},
		&Note{},
		&EducationResource{},
	}
}

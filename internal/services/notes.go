package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/petermazzocco/go-dashboard/internal/logger"
	"github.com/petermazzocco/go-dashboard/models"
	"gorm.io/gorm"
)

const defaultNoteType = "note"

type NoteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNoteService(db *gorm.DB, log *logger.Logger) *NoteService {
	return &NoteService{db: db, log: log.With("service", "NoteService")}
}

type NoteInput struct {
	Title   string
	Content string
	Type    string
}

func (in *NoteInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Type = strings.TrimSpace(in.Type)
	if in.Type == "" {
		in.Type = defaultNoteType
	}
	if in.Title == "" {
		return fieldError("title", "Note title is required")
	}
	return nil
}

// List returns the user's notes, most recently updated first.
func (s *NoteService) List(ctx context.Context, userID uint) ([]models.Note, error) {
	notes := []models.Note{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

func (s *NoteService) Create(ctx context.Context, userID uint, in NoteInput) (*models.Note, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	note := &models.Note{UserID: userID, Title: in.Title, Content: in.Content, Type: in.Type}
	if err := s.db.WithContext(ctx).Create(note).Error; err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

func (s *NoteService) Update(ctx context.Context, userID, noteID uint, in NoteInput) (*models.Note, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var note models.Note
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", noteID, userID).First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note %d: %w", noteID, err)
	}
	note.Title, note.Content, note.Type = in.Title, in.Content, in.Type
	if err := s.db.WithContext(ctx).Save(&note).Error; err != nil {
		return nil, fmt.Errorf("update note %d: %w", noteID, err)
	}
	return &note, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, noteID uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", noteID, userID).Delete(&models.Note{})
	if res.Error != nil {
		return fmt.Errorf("delete note %d: %w", noteID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

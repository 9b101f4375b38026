package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/petermazzocco/go-dashboard/internal/logger"
	"github.com/petermazzocco/go-dashboard/models"
	"gorm.io/gorm"
)

type EducationService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEducationService(db *gorm.DB, log *logger.Logger) *EducationService {
	return &EducationService{db: db, log: log.With("service", "EducationService")}
}

// Topic groups the resources saved under one topic.
type Topic struct {
	Topic     string                     `json:"topic"`
	Resources []models.EducationResource `json:"resources"`
}

type ResourceInput struct {
	Topic string
	Title string
	URL   string
	Kind  string
}

// List returns the user's resources grouped by topic. Topics and the
// resources within them are ordered by name.
func (s *EducationService) List(ctx context.Context, userID uint) ([]Topic, error) {
	var resources []models.EducationResource
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("topic ASC, title ASC, id ASC").
		Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("list education resources: %w", err)
	}

	topics := []Topic{}
	for _, r := range resources {
		if n := len(topics); n == 0 || topics[n-1].Topic != r.Topic {
			topics = append(topics, Topic{Topic: r.Topic})
		}
		last := &topics[len(topics)-1]
		last.Resources = append(last.Resources, r)
	}
	return topics, nil
}

func (s *EducationService) Create(ctx context.Context, userID uint, in ResourceInput) (*models.EducationResource, error) {
	in.Topic = strings.TrimSpace(in.Topic)
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	in.Kind = strings.TrimSpace(in.Kind)

	fe := FieldErrors{}
	if in.Topic == "" {
		fe["topic"] = "Topic is required"
	}
	if in.Title == "" {
		fe["title"] = "Title is required"
	}
	if in.URL != "" && !isWebURL(in.URL) {
		fe["url"] = "URL must start with http:// or https://"
	}
	if len(fe) > 0 {
		return nil, fe
	}

	res := &models.EducationResource{
		UserID: userID,
		Topic:  in.Topic,
		Title:  in.Title,
		URL:    in.URL,
		Kind:   in.Kind,
	}
	if err := s.db.WithContext(ctx).Create(res).Error; err != nil {
		return nil, fmt.Errorf("create education resource: %w", err)
	}
	return res, nil
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *EducationService) Delete(ctx context.Context, userID, resourceID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", resourceID, userID).
		Delete(&models.EducationResource{})
	if res.Error != nil {
		return fmt.Errorf("delete education resource %d: %w", resourceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

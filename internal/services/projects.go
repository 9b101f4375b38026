package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petermazzocco/go-dashboard/internal/logger"
	"github.com/petermazzocco/go-dashboard/internal/projecttree"
	"github.com/petermazzocco/go-dashboard/models"
	"gorm.io/gorm"
)

type ProjectService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectService(db *gorm.DB, log *logger.Logger) *ProjectService {
	return &ProjectService{db: db, log: log.With("service", "ProjectService")}
}

// HomeProject is a project summary for the dashboard home panel.
type HomeProject struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Badge      string `json:"badge"`
	LastActive string `json:"lastActive"`
	Starred    bool   `json:"starred"`
}

// ProjectDetail is a project with its direct children.
type ProjectDetail struct {
	models.Project
	Children []models.Project `json:"children"`
}

// List returns the user's projects, oldest first.
func (s *ProjectService) List(ctx context.Context, userID uint) ([]models.Project, error) {
	projects := []models.Project{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectService) Tree(ctx context.Context, userID uint) ([]*projecttree.Node, error) {
	projects, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return projecttree.BuildProjectTree(projects), nil
}

// Home returns every project as a home-panel item, most recently updated
// first.
func (s *ProjectService) Home(ctx context.Context, userID uint) ([]HomeProject, error) {
	var projects []models.Project
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list home projects: %w", err)
	}
	items := make([]HomeProject, 0, len(projects))
	for _, p := range projects {
		items = append(items, HomeProject{
			ID:         p.ID,
			Name:       p.Name,
			Badge:      "Active",
			LastActive: p.UpdatedAt.UTC().Format(time.RFC3339),
			Starred:    p.Starred,
		})
	}
	return items, nil
}

func (s *ProjectService) Get(ctx context.Context, userID, projectID uint) (*ProjectDetail, error) {
	project, err := s.owned(s.db.WithContext(ctx), userID, projectID)
	if err != nil {
		return nil, err
	}
	children := []models.Project{}
	if err := s.db.WithContext(ctx).
		Where("parent_id = ? AND user_id = ?", projectID, userID).
		Order("created_at ASC, id ASC").
		Find(&children).Error; err != nil {
		return nil, fmt.Errorf("list children of %d: %w", projectID, err)
	}
	return &ProjectDetail{Project: *project, Children: children}, nil
}

func (s *ProjectService) owned(tx *gorm.DB, userID, projectID uint) (*models.Project, error) {
	var project models.Project
	err := tx.Where("id = ? AND user_id = ?", projectID, userID).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", projectID, err)
	}
	return &project, nil
}

// depth counts the ancestors of projectID. A cycle in the stored rows is
// reported as an error rather than looping.
func depth(tx *gorm.DB, userID, projectID uint) (int, error) {
	seen := map[uint]bool{}
	d := 0
	id := projectID
	for {
		if seen[id] {
			return 0, fmt.Errorf("project %d: parent cycle", projectID)
		}
		seen[id] = true

		var p models.Project
		if err := tx.Select("id", "parent_id").
			Where("id = ? AND user_id = ?", id, userID).
			First(&p).Error; err != nil {
			return 0, err
		}
		if p.ParentID == nil {
			return d, nil
		}
		d++
		id = *p.ParentID
	}
}

// Create adds a project, optionally under parentID. The new project may sit
// at most MaxProjectNestingDepth levels below a root.
func (s *ProjectService) Create(ctx context.Context, userID uint, name string, parentID *uint) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fieldError("name", "Project name is required")
	}

	project := &models.Project{Name: name, UserID: userID, ParentID: parentID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if parentID != nil {
			d, err := depth(tx, userID, *parentID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fieldError("parentId", "Parent project not found")
			}
			if err != nil {
				return err
			}
			if d+1 > projecttree.MaxProjectNestingDepth {
				return fieldError("parentId", fmt.Sprintf(
					"Cannot create sub-project: Maximum nesting depth of %d levels reached.",
					projecttree.MaxProjectNestingDepth+1))
			}
		}
		return tx.Create(project).Error
	})
	if _, ok := AsFieldErrors(err); ok {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.log.Info("project created", "project_id", project.ID, "user_id", userID)
	return project, nil
}

func (s *ProjectService) Rename(ctx context.Context, userID, projectID uint, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fieldError("newName", "Project name is required")
	}
	project, err := s.owned(s.db.WithContext(ctx), userID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(project).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("rename project %d: %w", projectID, err)
	}
	project.Name = name
	return project, nil
}

func (s *ProjectService) ToggleStar(ctx context.Context, userID, projectID uint) (*models.Project, error) {
	project, err := s.owned(s.db.WithContext(ctx), userID, projectID)
	if err != nil {
		return nil, err
	}
	starred := !project.Starred
	if err := s.db.WithContext(ctx).Model(project).Update("starred", starred).Error; err != nil {
		return nil, fmt.Errorf("toggle star on project %d: %w", projectID, err)
	}
	project.Starred = starred
	return project, nil
}

// Delete removes a project. Its children become roots.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.owned(tx, userID, projectID); err != nil {
			return err
		}
		if err := tx.Model(&models.Project{}).
			Where("parent_id = ?", projectID).
			Update("parent_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, projectID).Error
	})
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("delete project %d: %w", projectID, err)
	}
	s.log.Info("project deleted", "project_id", projectID, "user_id", userID)
	return nil
}

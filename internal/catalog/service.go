package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/apperr"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=catalog
type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	ListProjects(ctx context.Context, includeDeleted bool) ([]*Project, error)
	UpdateProject(ctx context.Context, p *Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) (bool, error)
	RestoreProject(ctx context.Context, id uuid.UUID) (bool, error)
	ProjectStats(ctx context.Context, id uuid.UUID) (*ProjectStats, error)

	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ProjectParams struct {
	Name        string
	Description string
}

func (p ProjectParams) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation(apperr.FieldError{Field: "name", Message: "is required"})
	}

	return nil
}

func (s *Service) CreateProject(ctx context.Context, params ProjectParams) (*Project, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	p := &Project{
		Name:        strings.TrimSpace(params.Name),
		Description: params.Description,
	}

	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	return s.repo.GetProject(ctx, id)
}

func (s *Service) ListProjects(ctx context.Context, includeDeleted bool) ([]*Project, error) {
	return s.repo.ListProjects(ctx, includeDeleted)
}

func (s *Service) UpdateProject(ctx context.Context, id uuid.UUID, params ProjectParams) (*Project, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(params.Name)
	p.Description = params.Description

	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) DeleteProject(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.DeleteProject(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return ErrProjectNotFound
	}

	return nil
}

func (s *Service) RestoreProject(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.RestoreProject(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return ErrProjectNotFound
	}

	return nil
}

// ProjectStats returns item counts and amounts for a live project.
func (s *Service) ProjectStats(ctx context.Context, id uuid.UUID) (*ProjectStats, error) {
	if _, err := s.repo.GetProject(ctx, id); err != nil {
		return nil, err
	}

	return s.repo.ProjectStats(ctx, id)
}

type CategoryParams struct {
	Name     string
	ParentID *uuid.UUID
}

func (s *Service) CreateCategory(ctx context.Context, params CategoryParams) (*Category, error) {
	c := &Category{Name: strings.TrimSpace(params.Name), ParentID: params.ParentID}

	if err := s.checkCategory(ctx, c); err != nil {
		return nil, err
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, params CategoryParams) (*Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(params.Name)
	c.ParentID = params.ParentID

	if err := s.checkCategory(ctx, c); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		return err
	}

	if !ok {
		return ErrCategoryNotFound
	}

	return nil
}

func (s *Service) checkCategory(ctx context.Context, c *Category) error {
	if c.Name == "" {
		return apperr.Validation(apperr.FieldError{Field: "name", Message: "is required"})
	}

	if c.ParentID == nil {
		return nil
	}

	if *c.ParentID == c.ID {
		return ErrInvalidParent
	}

	if _, err := s.repo.GetCategory(ctx, *c.ParentID); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return ErrInvalidParent
		}

		return err
	}

	return nil
}

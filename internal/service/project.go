package service

import (
	"context"

	"github.com/bblanco3/erp-backend/internal/domain/ledger"
	"github.com/bblanco3/erp-backend/internal/domain/project"
	"github.com/bblanco3/erp-backend/internal/readmodel"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

const modelProject = "project"

func (s *Service) createProject(ctx context.Context, c CreateProject) (*project.Project, error) {
	return mutate(ctx, s, CmdProjectCreate,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*project.Project, *ledger.Entry, error) {
			n, err := s.projects.Count(ctx, tx)
			if err != nil {
				return nil, nil, err
			}

			p := &project.Project{
				Number:      project.NumberFor(n + 1),
				Name:        c.Name,
				ClientName:  c.ClientName,
				Description: c.Description,
				Status:      c.Status,
				StartDate:   c.StartDate,
				EndDate:     c.EndDate,
			}
			if p.Status == "" {
				p.Status = project.StatusPlanned
			}
			if err := s.projects.Insert(ctx, tx, p); err != nil {
				return nil, nil, err
			}

			entry, err := ledger.Created(tenantID, modelProject, p.ID, c.ActorID, p)
			return p, entry, err
		})
}

func (s *Service) updateProject(ctx context.Context, c UpdateProject) (*project.Project, error) {
	return mutate(ctx, s, CmdProjectUpdate,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*project.Project, *ledger.Entry, error) {
			p, err := s.projects.Get(ctx, tx, c.ProjectID)
			if err != nil {
				return nil, nil, err
			}
			old := *p

			if c.Name != "" {
				p.Name = c.Name
			}
			if c.ClientName != "" {
				p.ClientName = c.ClientName
			}
			if c.Description != "" {
				p.Description = c.Description
			}
			if c.Status != "" {
				p.Status = c.Status
			}
			if !c.StartDate.IsZero() {
				p.StartDate = c.StartDate
			}
			if !c.EndDate.IsZero() {
				p.EndDate = c.EndDate
			}
			if err := s.projects.Update(ctx, tx, p); err != nil {
				return nil, nil, err
			}

			entry, err := ledger.Updated(tenantID, modelProject, p.ID, c.ActorID, &old, p)
			return p, entry, err
		})
}

func (s *Service) deleteProject(ctx context.Context, c DeleteProject) (*project.Project, error) {
	return mutate(ctx, s, CmdProjectDelete,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*project.Project, *ledger.Entry, error) {
			p, err := s.projects.Get(ctx, tx, c.ProjectID)
			if err != nil {
				return nil, nil, err
			}
			if err := s.projects.SoftDelete(ctx, tx, p.ID); err != nil {
				return nil, nil, err
			}
			p.Deleted = true

			entry, err := ledger.Deleted(tenantID, modelProject, p.ID, c.ActorID, p)
			return p, entry, err
		})
}

func (s *Service) listProjects(ctx context.Context, q ListProjects) ([]project.Project, error) {
	return readmodel.Fetch(ctx, s.views, QryProjectList, q,
		func(ctx context.Context) ([]project.Project, error) {
			conn, err := tenantdb.SessionFromContext(ctx)
			if err != nil {
				return nil, err
			}
			return s.projects.List(ctx, conn, q.Status)
		})
}

func (s *Service) getProject(ctx context.Context, q GetProject) (*project.Project, error) {
	return readmodel.Fetch(ctx, s.views, QryProjectGet, q,
		func(ctx context.Context) (*project.Project, error) {
			conn, err := tenantdb.SessionFromContext(ctx)
			if err != nil {
				return nil, err
			}
			return s.projects.Get(ctx, conn, q.ProjectID)
		})
}

func (s *Service) projectStats(ctx context.Context, q ProjectStats) (*project.Stats, error) {
	return readmodel.Fetch(ctx, s.views, QryProjectStats, q,
		func(ctx context.Context) (*project.Stats, error) {
			conn, err := tenantdb.SessionFromContext(ctx)
			if err != nil {
				return nil, err
			}
			if _, err := s.projects.Get(ctx, conn, q.ProjectID); err != nil {
				return nil, err
			}
			return s.projects.Stats(ctx, conn, q.ProjectID)
		})
}

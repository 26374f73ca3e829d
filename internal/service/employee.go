package service

import (
	"context"

	"github.com/bblanco3/erp-backend/internal/domain/employee"
	"github.com/bblanco3/erp-backend/internal/domain/ledger"
	"github.com/bblanco3/erp-backend/internal/readmodel"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

const modelEmployee = "employee"

func (s *Service) createEmployee(ctx context.Context, c CreateEmployee) (*employee.Employee, error) {
	return mutate(ctx, s, CmdEmployeeCreate,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*employee.Employee, *ledger.Entry, error) {
			e := &employee.Employee{
				FirstName:  c.FirstName,
				LastName:   c.LastName,
				Email:      c.Email,
				Role:       c.Role,
				HourlyRate: c.HourlyRate,
			}
			if err := s.employees.Insert(ctx, tx, e); err != nil {
				return nil, nil, err
			}

			entry, err := ledger.Created(tenantID, modelEmployee, e.ID, c.ActorID, e)
			return e, entry, err
		})
}

func (s *Service) updateEmployee(ctx context.Context, c UpdateEmployee) (*employee.Employee, error) {
	return mutate(ctx, s, CmdEmployeeUpdate,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*employee.Employee, *ledger.Entry, error) {
			e, err := s.employees.Get(ctx, tx, c.EmployeeID)
			if err != nil {
				return nil, nil, err
			}
			old := *e

			if c.FirstName != "" {
				e.FirstName = c.FirstName
			}
			if c.LastName != "" {
				e.LastName = c.LastName
			}
			if c.Email != "" {
				e.Email = c.Email
			}
			if c.Role != "" {
				e.Role = c.Role
			}
			if c.HourlyRate != 0 {
				e.HourlyRate = c.HourlyRate
			}
			if err := s.employees.Update(ctx, tx, e); err != nil {
				return nil, nil, err
			}

			entry, err := ledger.Updated(tenantID, modelEmployee, e.ID, c.ActorID, &old, e)
			return e, entry, err
		})
}

func (s *Service) deleteEmployee(ctx context.Context, c DeleteEmployee) (*employee.Employee, error) {
	return mutate(ctx, s, CmdEmployeeDelete,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*employee.Employee, *ledger.Entry, error) {
			e, err := s.employees.Get(ctx, tx, c.EmployeeID)
			if err != nil {
				return nil, nil, err
			}
			if err := s.employees.SoftDelete(ctx, tx, e.ID); err != nil {
				return nil, nil, err
			}
			e.Deleted = true

			entry, err := ledger.Deleted(tenantID, modelEmployee, e.ID, c.ActorID, e)
			return e, entry, err
		})
}

func (s *Service) listEmployees(ctx context.Context, q ListEmployees) ([]employee.Employee, error) {
	return readmodel.Fetch(ctx, s.views, QryEmployeeList, q,
		func(ctx context.Context) ([]employee.Employee, error) {
			conn, err := tenantdb.SessionFromContext(ctx)
			if err != nil {
				return nil, err
			}
			return s.employees.List(ctx, conn)
		})
}

func (s *Service) getEmployee(ctx context.Context, q GetEmployee) (*employee.Employee, error) {
	return readmodel.Fetch(ctx, s.views, QryEmployeeGet, q,
		func(ctx context.Context) (*employee.Employee, error) {
			conn, err := tenantdb.SessionFromContext(ctx)
			if err != nil {
				return nil, err
			}
			return s.employees.Get(ctx, conn, q.EmployeeID)
		})
}

package postgres

import (
	"context"

	"github.com/bblanco3/erp-backend/internal/domain/employee"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

// EmployeeStore persists employees in the bound tenant schema.
type EmployeeStore struct{}

// NewEmployeeStore creates an EmployeeStore.
func NewEmployeeStore() *EmployeeStore { return &EmployeeStore{} }

const employeeColumns = `id, first_name, last_name, email, role, hourly_rate, is_deleted, created_at, updated_at`

func scanEmployee(s scannable, e *employee.Employee) error {
	return s.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.Role,
		&e.HourlyRate, &e.Deleted, &e.CreatedAt, &e.UpdatedAt)
}

// Insert creates an employee row and fills in generated fields.
func (EmployeeStore) Insert(ctx context.Context, q tenantdb.Querier, e *employee.Employee) error {
	err := scanEmployee(q.QueryRow(ctx,
		`INSERT INTO employees (first_name, last_name, email, role, hourly_rate)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+employeeColumns,
		e.FirstName, e.LastName, e.Email, e.Role, e.HourlyRate), e)
	if err != nil {
		return persistWrap(err, "insert employee %s", e.Email)
	}
	return nil
}

// Get returns a live employee by ID.
func (EmployeeStore) Get(ctx context.Context, q tenantdb.Querier, id string) (*employee.Employee, error) {
	var e employee.Employee
	err := scanEmployee(q.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1 AND NOT is_deleted`, id), &e)
	if err != nil {
		return nil, notFoundWrap(err, "employee %s", id)
	}
	return &e, nil
}

// List returns all live employees ordered by name.
func (EmployeeStore) List(ctx context.Context, q tenantdb.Querier) ([]employee.Employee, error) {
	rows, err := q.Query(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE NOT is_deleted ORDER BY last_name, first_name`)
	if err != nil {
		return nil, persistWrap(err, "list employees")
	}
	defer rows.Close()

	out := []employee.Employee{}
	for rows.Next() {
		var e employee.Employee
		if err := scanEmployee(rows, &e); err != nil {
			return nil, persistWrap(err, "scan employee")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update persists mutable employee fields.
func (EmployeeStore) Update(ctx context.Context, q tenantdb.Querier, e *employee.Employee) error {
	tag, err := q.Exec(ctx,
		`UPDATE employees SET first_name = $2, last_name = $3, email = $4, role = $5,
		 hourly_rate = $6, updated_at = now()
		 WHERE id = $1 AND NOT is_deleted`,
		e.ID, e.FirstName, e.LastName, e.Email, e.Role, e.HourlyRate)
	return execExpectOne(tag, err, "update employee %s", e.ID)
}

// SoftDelete flags an employee as deleted.
func (EmployeeStore) SoftDelete(ctx context.Context, q tenantdb.Querier, id string) error {
	tag, err := q.Exec(ctx,
		`UPDATE employees SET is_deleted = TRUE, updated_at = now() WHERE id = $1 AND NOT is_deleted`, id)
	return execExpectOne(tag, err, "delete employee %s", id)
}

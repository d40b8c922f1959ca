package employee

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/fixtures"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/workday"
)

const DefaultLowBalanceThreshold = 3

type Config struct {
	// AnnualGrant seeds the current-year bucket of new employees.
	AnnualGrant         int
	LowBalanceThreshold int
}

type EmployeeServiceImpl struct {
	employeeRepo employee.EmployeeRepository
	resolver     leave.OnLeaveResolver
	ranker       fixtures.PositionRanker
	cfg          Config
	now          func() time.Time
}

func NewEmployeeService(
	employeeRepo employee.EmployeeRepository,
	resolver leave.OnLeaveResolver,
	ranker fixtures.PositionRanker,
	cfg Config,
) employee.EmployeeService {
	if cfg.LowBalanceThreshold <= 0 {
		cfg.LowBalanceThreshold = DefaultLowBalanceThreshold
	}
	return &EmployeeServiceImpl{
		employeeRepo: employeeRepo,
		resolver:     resolver,
		ranker:       ranker,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *EmployeeServiceImpl) asOf(t time.Time) time.Time {
	if t.IsZero() {
		return workday.Date(s.now())
	}
	return workday.Date(t)
}

func (s *EmployeeServiceImpl) mapEmployeeToResponse(e employee.Employee, onLeave bool) employee.EmployeeResponse {
	total := e.Balance().Total()
	return employee.EmployeeResponse{
		ID:                 e.ID,
		EmployeeNumber:     e.EmployeeNumber,
		Name:               e.Name,
		Position:           e.Position,
		Department:         e.Department,
		PriorYearBalance:   e.PriorYearBalance,
		CurrentYearBalance: e.CurrentYearBalance,
		TotalBalance:       total,
		LowBalance:         total <= s.cfg.LowBalanceThreshold,
		OnLeave:            onLeave,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

// Create implements employee.EmployeeService.
func (s *EmployeeServiceImpl) Create(ctx context.Context, req employee.CreateEmployeeRequest) (employee.EmployeeResponse, error) {
	if err := req.Validate(); err != nil {
		return employee.EmployeeResponse{}, err
	}

	newEmployee := employee.Employee{
		EmployeeNumber:     req.EmployeeNumber,
		Name:               req.Name,
		Position:           req.Position,
		Department:         req.Department,
		CurrentYearBalance: s.cfg.AnnualGrant,
	}
	if req.PriorYearBalance != nil {
		newEmployee.PriorYearBalance = *req.PriorYearBalance
	}
	if req.CurrentYearBalance != nil {
		newEmployee.CurrentYearBalance = *req.CurrentYearBalance
	}

	created, err := s.employeeRepo.Create(ctx, newEmployee)
	if err != nil {
		return employee.EmployeeResponse{}, storageError("failed to create employee", err)
	}

	slog.Info("employee created", "employee_id", created.ID, "employee_number", created.EmployeeNumber)
	return s.mapEmployeeToResponse(created, false), nil
}

// GetByID implements employee.EmployeeService.
func (s *EmployeeServiceImpl) GetByID(ctx context.Context, id string) (employee.EmployeeResponse, error) {
	e, err := s.employeeRepo.GetByID(ctx, id)
	if err != nil {
		return employee.EmployeeResponse{}, storageError("failed to get employee", err)
	}

	onLeave, err := s.resolver.IsOnLeave(ctx, e.ID, s.asOf(time.Time{}))
	if err != nil {
		return employee.EmployeeResponse{}, err
	}
	return s.mapEmployeeToResponse(e, onLeave), nil
}

// Update implements employee.EmployeeService.
func (s *EmployeeServiceImpl) Update(ctx context.Context, req employee.UpdateEmployeeRequest) (employee.EmployeeResponse, error) {
	if err := req.Validate(); err != nil {
		return employee.EmployeeResponse{}, err
	}

	existing, err := s.employeeRepo.GetByID(ctx, req.ID)
	if err != nil {
		return employee.EmployeeResponse{}, storageError("failed to get employee", err)
	}

	if req.EmployeeNumber != nil {
		existing.EmployeeNumber = *req.EmployeeNumber
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Position != nil {
		existing.Position = *req.Position
	}
	if req.Department != nil {
		existing.Department = *req.Department
	}

	updated, err := s.employeeRepo.Update(ctx, existing)
	if err != nil {
		return employee.EmployeeResponse{}, storageError("failed to update employee", err)
	}

	onLeave, err := s.resolver.IsOnLeave(ctx, updated.ID, s.asOf(time.Time{}))
	if err != nil {
		return employee.EmployeeResponse{}, err
	}
	return s.mapEmployeeToResponse(updated, onLeave), nil
}

// Delete implements employee.EmployeeService. History rows go with the
// employee.
func (s *EmployeeServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.employeeRepo.Delete(context.WithoutCancel(ctx), id); err != nil {
		return storageError("failed to delete employee", err)
	}

	slog.Info("employee deleted", "employee_id", id)
	s.resolver.HistoryChanged(ctx, id)
	return nil
}

// List implements employee.EmployeeService.
func (s *EmployeeServiceImpl) List(ctx context.Context, filter employee.EmployeeFilter) (employee.ListEmployeeResponse, error) {
	if err := filter.Validate(); err != nil {
		return employee.ListEmployeeResponse{}, err
	}

	employees, err := s.employeeRepo.List(ctx, filter.Search)
	if err != nil {
		return employee.ListEmployeeResponse{}, storageError("failed to list employees", err)
	}
	onLeave, err := s.resolver.OnLeaveSet(ctx, s.asOf(filter.AsOf))
	if err != nil {
		return employee.ListEmployeeResponse{}, err
	}

	if filter.Status != nil {
		wantOnLeave := *filter.Status == employee.StatusOnLeave
		employees = slices.DeleteFunc(employees, func(e employee.Employee) bool {
			_, ok := onLeave[e.ID]
			return ok != wantOnLeave
		})
	}
	s.sortByPosition(employees)

	total := len(employees)
	start := min((filter.Page-1)*filter.Limit, total)
	end := min(start+filter.Limit, total)

	responses := make([]employee.EmployeeResponse, 0, end-start)
	for _, e := range employees[start:end] {
		_, ok := onLeave[e.ID]
		responses = append(responses, s.mapEmployeeToResponse(e, ok))
	}

	return employee.ListEmployeeResponse{
		Employees:  responses,
		TotalCount: int64(total),
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

// sortByPosition orders by rank in the position hierarchy, then by name.
func (s *EmployeeServiceImpl) sortByPosition(employees []employee.Employee) {
	slices.SortStableFunc(employees, func(a, b employee.Employee) int {
		return cmp.Or(
			cmp.Compare(s.ranker.Rank(a.Position), s.ranker.Rank(b.Position)),
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			strings.Compare(a.ID, b.ID),
		)
	})
}

// Stats implements employee.EmployeeService.
func (s *EmployeeServiceImpl) Stats(ctx context.Context, filter employee.EmployeeFilter) (employee.StatsResponse, error) {
	day := s.asOf(filter.AsOf)

	employees, err := s.employeeRepo.List(ctx, "")
	if err != nil {
		return employee.StatsResponse{}, storageError("failed to list employees", err)
	}
	onLeave, err := s.resolver.OnLeaveSet(ctx, day)
	if err != nil {
		return employee.StatsResponse{}, err
	}

	stats := employee.StatsResponse{
		Date:           workday.Format(day),
		TotalEmployees: len(employees),
	}
	for _, e := range employees {
		if _, ok := onLeave[e.ID]; ok {
			stats.OnLeave++
		}
		if e.Balance().Total() <= s.cfg.LowBalanceThreshold {
			stats.LowBalance++
		}
	}
	return stats, nil
}

func storageError(op string, err error) error {
	if errors.Is(err, employee.ErrEmployeeNotFound) || errors.Is(err, employee.ErrEmployeeNumberExists) {
		return err
	}
	return leave.StorageError(op, err)
}

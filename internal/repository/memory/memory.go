// Package memory provides in-process implementations of the repository
// interfaces. The server falls back to it when no Postgres DSN is configured,
// and tests use it as a fake.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
)

// Store holds every table in memory.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	data *dataset
	now  func() time.Time
}

type dataset struct {
	seq           map[string]int64
	users         map[int64]domain.User
	employees     map[int64]domain.Employee
	complaints    map[int64]domain.Complaint
	history       []domain.ComplaintHistory
	roleRequests  map[int64]domain.RoleRequest
	notifications map[int64]domain.Notification
}

// undoLog collects the inverse of every write a transaction makes.
// Sequences are not rewound, matching Postgres.
type undoLog struct {
	steps []func()
}

func (l *undoLog) revert() {
	for i := len(l.steps) - 1; i >= 0; i-- {
		l.steps[i]()
	}
}

// remember records how to restore m[key] to its current state. Callers hold s.mu.
func remember[K comparable, V any](l *undoLog, m map[K]V, key K) {
	if l == nil {
		return
	}
	prev, existed := m[key]
	l.steps = append(l.steps, func() {
		if existed {
			m[key] = prev
			return
		}
		delete(m, key)
	})
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		data: &dataset{
			seq:           map[string]int64{},
			users:         map[int64]domain.User{},
			employees:     map[int64]domain.Employee{},
			complaints:    map[int64]domain.Complaint{},
			roleRequests:  map[int64]domain.RoleRequest{},
			notifications: map[int64]domain.Notification{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used for created/updated stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Repositories returns repositories backed by the store.
func (s *Store) Repositories() repository.Repositories {
	return s.repositories(nil)
}

func (s *Store) repositories(log *undoLog) repository.Repositories {
	return repository.Repositories{
		Users:         &userRepo{s, log},
		Employees:     &employeeRepo{s, log},
		Complaints:    &complaintRepo{s, log},
		History:       &historyRepo{s, log},
		RoleRequests:  &roleRequestRepo{s, log},
		Notifications: &notificationRepo{s, log},
	}
}

// WithinTx serializes transactions. When fn fails only the writes made
// through the transaction's repositories are reverted.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	log := &undoLog{}
	if err := fn(s.repositories(log)); err != nil {
		s.mu.Lock()
		log.revert()
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) nextID(table string) int64 {
	s.data.seq[table]++
	return s.data.seq[table]
}

type userRepo struct {
	s   *Store
	log *undoLog
}

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	user.ID = r.s.nextID("users")
	user.CreatedAt = now
	user.UpdatedAt = now
	remember(r.log, r.s.data.users, user.ID)
	r.s.data.users[user.ID] = *user
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.data.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.data.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *userRepo) UpdateRole(_ context.Context, id int64, role domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.data.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	remember(r.log, r.s.data.users, id)
	user.Role = role
	user.UpdatedAt = r.s.now()
	r.s.data.users[id] = user
	return nil
}

type employeeRepo struct {
	s   *Store
	log *undoLog
}

func (r *employeeRepo) CreateIfAbsent(_ context.Context, employee *domain.Employee) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.data.employees[employee.UserID]; exists {
		return false, nil
	}
	now := r.s.now()
	employee.ID = r.s.nextID("employees")
	employee.CreatedAt = now
	employee.UpdatedAt = now
	remember(r.log, r.s.data.employees, employee.UserID)
	r.s.data.employees[employee.UserID] = *employee
	return true, nil
}

func (r *employeeRepo) GetByUserID(_ context.Context, userID int64) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	employee, ok := r.s.data.employees[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	r.s.decorateEmployee(&employee)
	return &employee, nil
}

func (r *employeeRepo) List(_ context.Context) ([]domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.Employee, 0, len(r.s.data.employees))
	for _, employee := range r.s.data.employees {
		r.s.decorateEmployee(&employee)
		result = append(result, employee)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Level != result[j].Level {
			return result[i].Level < result[j].Level
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *employeeRepo) LeastLoadedByLevel(_ context.Context, level domain.EmployeeLevel) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *domain.Employee
	for _, employee := range r.s.data.employees {
		if employee.Level != level {
			continue
		}
		e := employee
		if best == nil || e.CurrentComplaints < best.CurrentComplaints ||
			(e.CurrentComplaints == best.CurrentComplaints && e.ID < best.ID) {
			best = &e
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	r.s.decorateEmployee(best)
	return best, nil
}

func (r *employeeRepo) AdjustLoad(_ context.Context, userID int64, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	employee, ok := r.s.data.employees[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	employee.CurrentComplaints += delta
	if employee.CurrentComplaints < 0 {
		employee.CurrentComplaints = 0
	}
	employee.UpdatedAt = r.s.now()
	remember(r.log, r.s.data.employees, userID)
	r.s.data.employees[userID] = employee
	return nil
}

func (s *Store) decorateEmployee(employee *domain.Employee) {
	if user, ok := s.data.users[employee.UserID]; ok {
		employee.Name = user.Name
		employee.Email = user.Email
	}
}

type complaintRepo struct {
	s   *Store
	log *undoLog
}

func (r *complaintRepo) Create(_ context.Context, complaint *domain.Complaint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	complaint.ID = r.s.nextID("complaints")
	complaint.CreatedAt = now
	complaint.UpdatedAt = now
	remember(r.log, r.s.data.complaints, complaint.ID)
	r.s.data.complaints[complaint.ID] = *complaint
	return nil
}

func (r *complaintRepo) Update(_ context.Context, complaint *domain.Complaint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.complaints[complaint.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.AssignedTo = complaint.AssignedTo
	stored.AssignedBy = complaint.AssignedBy
	stored.Status = complaint.Status
	stored.Note = complaint.Note
	stored.Escalated = complaint.Escalated
	stored.AssignedAt = complaint.AssignedAt
	stored.ResolvedAt = complaint.ResolvedAt
	stored.UpdatedAt = r.s.now()
	complaint.UpdatedAt = stored.UpdatedAt
	remember(r.log, r.s.data.complaints, complaint.ID)
	r.s.data.complaints[complaint.ID] = stored
	return nil
}

func (r *complaintRepo) GetByID(_ context.Context, id int64) (*domain.Complaint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	complaint, ok := r.s.data.complaints[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	r.s.decorateComplaint(&complaint)
	return &complaint, nil
}

func (r *complaintRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Complaint, error) {
	return r.GetByID(ctx, id)
}

func (r *complaintRepo) ListWithFilter(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	statuses := map[domain.ComplaintStatus]bool{}
	for _, status := range filter.Statuses {
		statuses[status] = true
	}

	result := []domain.Complaint{}
	for _, complaint := range r.s.data.complaints {
		if filter.UserID != nil && complaint.UserID != *filter.UserID {
			continue
		}
		if filter.AssignedTo != nil && (complaint.AssignedTo == nil || *complaint.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(statuses) > 0 && !statuses[complaint.Status] {
			continue
		}
		if filter.AssignedBefore != nil && (complaint.AssignedAt == nil || !complaint.AssignedAt.Before(*filter.AssignedBefore)) {
			continue
		}
		r.s.decorateComplaint(&complaint)
		result = append(result, complaint)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if filter.EscalatedFirst && a.Escalated != b.Escalated {
			return a.Escalated
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return paginate(result, filter.Limit, filter.Offset, 0), nil
}

func (s *Store) decorateComplaint(complaint *domain.Complaint) {
	if user, ok := s.data.users[complaint.UserID]; ok {
		complaint.SubmitterName = user.Name
	}
	complaint.AssigneeName = ""
	if complaint.AssignedTo != nil {
		if user, ok := s.data.users[*complaint.AssignedTo]; ok {
			complaint.AssigneeName = user.Name
		}
	}
}

type historyRepo struct {
	s   *Store
	log *undoLog
}

func (r *historyRepo) Create(_ context.Context, history *domain.ComplaintHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	history.ID = r.s.nextID("complaint_history")
	history.CreatedAt = r.s.now()
	r.s.data.history = append(r.s.data.history, *history)
	if r.log != nil {
		id, data := history.ID, r.s.data
		r.log.steps = append(r.log.steps, func() {
			kept := data.history[:0]
			for _, entry := range data.history {
				if entry.ID != id {
					kept = append(kept, entry)
				}
			}
			data.history = kept
		})
	}
	return nil
}

func (r *historyRepo) ListByComplaint(_ context.Context, complaintID int64) ([]domain.ComplaintHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.ComplaintHistory{}
	for _, entry := range r.s.data.history {
		if entry.ComplaintID == complaintID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type roleRequestRepo struct {
	s   *Store
	log *undoLog
}

func (r *roleRequestRepo) Create(_ context.Context, request *domain.RoleRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if request.Status == domain.RoleRequestPending {
		for _, existing := range r.s.data.roleRequests {
			if existing.UserID == request.UserID && existing.Status == domain.RoleRequestPending {
				return repository.ErrDuplicate
			}
		}
	}
	now := r.s.now()
	request.ID = r.s.nextID("role_requests")
	request.CreatedAt = now
	request.UpdatedAt = now
	remember(r.log, r.s.data.roleRequests, request.ID)
	r.s.data.roleRequests[request.ID] = *request
	return nil
}

func (r *roleRequestRepo) GetByID(_ context.Context, id int64) (*domain.RoleRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	request, ok := r.s.data.roleRequests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &request, nil
}

func (r *roleRequestRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RoleRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *roleRequestRepo) GetPendingByUser(_ context.Context, userID int64) (*domain.RoleRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, request := range r.s.data.roleRequests {
		if request.UserID == userID && request.Status == domain.RoleRequestPending {
			req := request
			return &req, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *roleRequestRepo) LatestByUser(ctx context.Context, userID int64) (*domain.RoleRequest, error) {
	all, err := r.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, request := range all {
		if request.UserID == userID {
			req := request
			return &req, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *roleRequestRepo) List(_ context.Context, status *domain.RoleRequestStatus) ([]domain.RoleRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.RoleRequest{}
	for _, request := range r.s.data.roleRequests {
		if status != nil && request.Status != *status {
			continue
		}
		result = append(result, request)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *roleRequestRepo) UpdateDecision(_ context.Context, request *domain.RoleRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.roleRequests[request.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = request.Status
	stored.ApprovedBy = request.ApprovedBy
	stored.UpdatedAt = r.s.now()
	request.UpdatedAt = stored.UpdatedAt
	remember(r.log, r.s.data.roleRequests, request.ID)
	r.s.data.roleRequests[request.ID] = stored
	return nil
}

type notificationRepo struct {
	s   *Store
	log *undoLog
}

func (r *notificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	notification.ID = r.s.nextID("notifications")
	notification.CreatedAt = r.s.now()
	remember(r.log, r.s.data.notifications, notification.ID)
	r.s.data.notifications[notification.ID] = *notification
	return nil
}

func (r *notificationRepo) ListByUser(_ context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.Notification{}
	for _, n := range r.s.data.notifications {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return paginate(result, limit, offset, 50), nil
}

func (r *notificationRepo) MarkRead(_ context.Context, id, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.data.notifications[id]
	if !ok || n.UserID != userID {
		return pgx.ErrNoRows
	}
	remember(r.log, r.s.data.notifications, id)
	n.IsRead = true
	r.s.data.notifications[id] = n
	return nil
}

// paginate applies limit and offset; a zero fallback leaves an unset limit unbounded.
func paginate[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

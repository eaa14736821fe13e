package apptest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/sales-report-bot/internal/application/port"
	"github.com/garyjia/sales-report-bot/internal/domain/entity"
)

// Repos bundles in-memory implementations of every repository port
type Repos struct {
	Users    *Users
	Groups   *Groups
	Ledgers  *Ledgers
	Reports  *Reports
	Settings *Settings
}

// NewRepos creates empty repositories
func NewRepos() *Repos {
	return &Repos{
		Users:    &Users{byID: map[int64]*entity.User{}},
		Groups:   &Groups{byChat: map[int64]*entity.Group{}},
		Ledgers:  &Ledgers{byID: map[int64]*entity.LedgerRegistration{}},
		Reports:  &Reports{byID: map[int64]*entity.Report{}},
		Settings: &Settings{values: map[string]string{}},
	}
}

// Users is an in-memory port.UserRepository
type Users struct {
	mu   sync.Mutex
	byID map[int64]*entity.User
	seq  int64

	FailGet error
}

func (r *Users) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[user.TelegramID]; ok {
		return errors.New("user exists")
	}
	r.seq++
	user.ID = r.seq
	cp := *user
	r.byID[user.TelegramID] = &cp
	return nil
}

func (r *Users) GetByTelegramID(_ context.Context, telegramID int64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailGet != nil {
		return nil, r.FailGet
	}
	u, ok := r.byID[telegramID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *Users) SetBlocked(_ context.Context, telegramID int64, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[telegramID]
	if !ok {
		return errors.New("user not found")
	}
	u.IsBlocked = blocked
	return nil
}

func (r *Users) AssignGroup(_ context.Context, telegramID, groupChatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[telegramID]
	if !ok {
		return errors.New("user not found")
	}
	u.GroupChatID = &groupChatID
	return nil
}

func (r *Users) List(_ context.Context, limit, offset int) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

// Groups is an in-memory port.GroupRepository
type Groups struct {
	mu     sync.Mutex
	byChat map[int64]*entity.Group
	seq    int64

	FailGet error
}

func (r *Groups) Create(_ context.Context, group *entity.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byChat[group.ChatID]; ok {
		return errors.New("group exists")
	}
	r.seq++
	group.ID = r.seq
	cp := *group
	r.byChat[group.ChatID] = &cp
	return nil
}

func (r *Groups) GetByChatID(_ context.Context, chatID int64) (*entity.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailGet != nil {
		return nil, r.FailGet
	}
	g, ok := r.byChat[chatID]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (r *Groups) SetLedger(_ context.Context, chatID, ledgerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.byChat[chatID]
	if !ok {
		return errors.New("group not found")
	}
	g.LedgerID = &ledgerID
	return nil
}

func (r *Groups) List(_ context.Context) ([]*entity.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entity.Group, 0, len(r.byChat))
	for _, g := range r.byChat {
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Ledgers is an in-memory port.LedgerRepository
type Ledgers struct {
	mu   sync.Mutex
	byID map[int64]*entity.LedgerRegistration
	seq  int64

	FailCreate error
}

func (r *Ledgers) Create(_ context.Context, ledger *entity.LedgerRegistration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailCreate != nil {
		return r.FailCreate
	}
	r.seq++
	ledger.ID = r.seq
	ledger.IsActive = true
	cp := *ledger
	r.byID[ledger.ID] = &cp
	return nil
}

func (r *Ledgers) GetByID(_ context.Context, id int64) (*entity.LedgerRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (r *Ledgers) List(_ context.Context, activeOnly bool) ([]*entity.LedgerRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.LedgerRegistration
	for _, l := range r.byID {
		if activeOnly && !l.IsActive {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Ledgers) Deactivate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byID[id]
	if !ok {
		return errors.New("ledger not found")
	}
	l.IsActive = false
	return nil
}

// Reports is an in-memory port.ReportRepository
type Reports struct {
	mu   sync.Mutex
	byID map[int64]*entity.Report
	seq  int64

	FailCreate  error
	FailResolve error
}

func (r *Reports) Create(_ context.Context, report *entity.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailCreate != nil {
		return r.FailCreate
	}
	r.seq++
	report.ID = r.seq
	cp := *report
	r.byID[report.ID] = &cp
	return nil
}

func (r *Reports) GetByID(_ context.Context, id int64) (*entity.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *rep
	return &cp, nil
}

func (r *Reports) GetByReviewMessage(_ context.Context, chatID int64, messageID int) (*entity.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rep := range r.byID {
		if rep.ReviewChatID == chatID && rep.ReviewMessageID == messageID {
			cp := *rep
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Reports) Resolve(_ context.Context, id int64, status string, reviewerID int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailResolve != nil {
		return false, r.FailResolve
	}
	rep, ok := r.byID[id]
	if !ok || rep.Status != entity.StatusPending {
		return false, nil
	}
	rep.Status = status
	rep.ReviewerID = &reviewerID
	rep.ReviewedAt = &at
	return true, nil
}

func (r *Reports) matching(filter port.ReportFilter) []*entity.Report {
	var out []*entity.Report
	for _, rep := range r.byID {
		if filter.Status != "" && rep.Status != filter.Status {
			continue
		}
		if filter.UserTelegramID != 0 && rep.UserTelegramID != filter.UserTelegramID {
			continue
		}
		day := rep.SubmissionDate.Format(time.DateOnly)
		if !filter.From.IsZero() && day < filter.From.Format(time.DateOnly) {
			continue
		}
		if !filter.To.IsZero() && day >= filter.To.Format(time.DateOnly) {
			continue
		}
		cp := *rep
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *Reports) List(_ context.Context, filter port.ReportFilter) ([]*entity.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return page(r.matching(filter), filter.Limit, filter.Offset), nil
}

func (r *Reports) Count(_ context.Context, filter port.ReportFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matching(filter)), nil
}

// All returns every stored report ordered by id
func (r *Reports) All() []*entity.Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.matching(port.ReportFilter{})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Settings is an in-memory port.SettingsRepository
type Settings struct {
	mu     sync.Mutex
	values map[string]string

	FailGet error
}

func (r *Settings) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailGet != nil {
		return "", false, r.FailGet
	}
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *Settings) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}

func (r *Settings) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	return nil
}

// TxManager runs the function directly and counts calls
type TxManager struct {
	Calls int
}

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

package services

import (
	"context"
	"slices"

	"despeses/internal/amqp"
	"despeses/internal/core"
)

// In-memory ports for exercising the services without SQLite or a broker.

type fakeUserStore struct {
	users  map[string]core.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]core.User)}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, username, name, passwordHash string) (core.User, error) {
	if _, ok := f.users[username]; ok {
		return core.User{}, core.ErrUsernameTaken
	}
	f.nextID++
	u := core.User{ID: f.nextID, Username: username, Name: name, PasswordHash: passwordHash}
	f.users[username] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	u, ok := f.users[username]
	if !ok {
		return core.User{}, core.ErrUnknownUser
	}
	return u, nil
}

func (f *fakeUserStore) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	u, ok := f.users[username]
	if !ok {
		return core.ErrUnknownUser
	}
	u.PasswordHash = passwordHash
	f.users[username] = u
	return nil
}

func (f *fakeUserStore) DeleteUser(ctx context.Context, username string) error {
	if _, ok := f.users[username]; !ok {
		return core.ErrUnknownUser
	}
	delete(f.users, username)
	return nil
}

type fakeExpenseStore struct {
	expenses map[string]map[core.Period][]core.Expense
	nextID   int64
	err      error
}

func newFakeExpenseStore() *fakeExpenseStore {
	return &fakeExpenseStore{expenses: make(map[string]map[core.Period][]core.Expense)}
}

func (f *fakeExpenseStore) seed(username string, p core.Period, expenses ...core.Expense) {
	for _, e := range expenses {
		f.nextID++
		e.ID = f.nextID
		if f.expenses[username] == nil {
			f.expenses[username] = make(map[core.Period][]core.Expense)
		}
		f.expenses[username][p] = append(f.expenses[username][p], e)
	}
}

func (f *fakeExpenseStore) rowCount(username string) int {
	n := 0
	for _, rows := range f.expenses[username] {
		n += len(rows)
	}
	return n
}

func (f *fakeExpenseStore) AddExpense(ctx context.Context, username string, e core.Expense) (core.Expense, error) {
	if f.err != nil {
		return core.Expense{}, f.err
	}
	f.nextID++
	e.ID = f.nextID
	p := core.PeriodOf(e.Date.Time)
	if f.expenses[username] == nil {
		f.expenses[username] = make(map[core.Period][]core.Expense)
	}
	f.expenses[username][p] = append(f.expenses[username][p], e)
	return e, nil
}

func (f *fakeExpenseStore) ExpensesForPeriod(ctx context.Context, username string, p core.Period) ([]core.Expense, error) {
	if f.err != nil {
		return nil, f.err
	}
	return slices.Clone(f.expenses[username][p]), nil
}

func (f *fakeExpenseStore) DeleteByConcept(ctx context.Context, username string, p core.Period, concept string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	rows := f.expenses[username][p]
	kept := rows[:0]
	var removed int64
	for _, e := range rows {
		if e.Concept == concept {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	if f.expenses[username] != nil {
		f.expenses[username][p] = kept
	}
	return removed, nil
}

func (f *fakeExpenseStore) CountForPeriod(ctx context.Context, username string, p core.Period) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.expenses[username][p])), nil
}

type fakePreviousFinder struct {
	prev core.Period
	ok   bool
	err  error
}

func (f fakePreviousFinder) PreviousPeriod(ctx context.Context, username string, before core.Period) (core.Period, bool, error) {
	return f.prev, f.ok, f.err
}

type fakeSheetStore struct {
	sheets  map[string]map[core.Period][]core.Debt
	saves   int
	loadErr error
	saveErr error
	findErr error
}

func newFakeSheetStore() *fakeSheetStore {
	return &fakeSheetStore{sheets: make(map[string]map[core.Period][]core.Debt)}
}

func (f *fakeSheetStore) seed(username string, p core.Period, debts []core.Debt) {
	if f.sheets[username] == nil {
		f.sheets[username] = make(map[core.Period][]core.Debt)
	}
	f.sheets[username][p] = slices.Clone(debts)
}

func (f *fakeSheetStore) Load(ctx context.Context, username string, p core.Period) ([]core.Debt, bool, error) {
	if f.loadErr != nil {
		return nil, false, f.loadErr
	}
	debts, ok := f.sheets[username][p]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(debts), true, nil
}

func (f *fakeSheetStore) Save(ctx context.Context, username string, p core.Period, debts []core.Debt) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.seed(username, p, debts)
	return nil
}

func (f *fakeSheetStore) FindPreviousSheet(ctx context.Context, username string, before core.Period) ([]core.Debt, core.Period, bool, error) {
	if f.findErr != nil {
		return nil, core.Period{}, false, f.findErr
	}
	candidate := before.Prev()
	for i := 0; i < 12*11; i++ {
		if debts, ok := f.sheets[username][candidate]; ok {
			return slices.Clone(debts), candidate, true, nil
		}
		candidate = candidate.Prev()
	}
	return nil, core.Period{}, false, nil
}

type fakePublisher struct {
	messages []*amqp.DatasetSyncMessage
	err      error
}

func (f *fakePublisher) PublishDatasetSync(ctx context.Context, msg *amqp.DatasetSyncMessage) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

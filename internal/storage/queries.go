package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type User struct {
	ID           int64
	Username     string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

type Expense struct {
	ID          int64
	UserID      int64
	Concept     string
	AmountCents int64
	Category    string
	Description string
	Year        int64
	Month       int64
	Day         int64
	CreatedAt   time.Time
}

const createUser = `
INSERT INTO users (username, name, password_hash)
VALUES (?1, ?2, ?3)
RETURNING id, username, name, password_hash, created_at
`

type CreateUserParams struct {
	Username     string
	Name         string
	PasswordHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Username, arg.Name, arg.PasswordHash)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Name, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getUserByUsername = `
SELECT id, username, name, password_hash, created_at
FROM users
WHERE username = ?1
`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	var i User
	err := row.Scan(&i.ID, &i.Username, &i.Name, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const updateUserPassword = `
UPDATE users
SET password_hash = ?2
WHERE username = ?1
`

type UpdateUserPasswordParams struct {
	Username     string
	PasswordHash string
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateUserPassword, arg.Username, arg.PasswordHash)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteUser = `
DELETE FROM users
WHERE username = ?1
`

func (q *Queries) DeleteUser(ctx context.Context, username string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteUser, username)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createExpense = `
INSERT INTO expenses (user_id, concept, amount_cents, category, description, year, month, day)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8)
RETURNING id, user_id, concept, amount_cents, category, description, year, month, day, created_at
`

type CreateExpenseParams struct {
	UserID      int64
	Concept     string
	AmountCents int64
	Category    string
	Description string
	Year        int64
	Month       int64
	Day         int64
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense,
		arg.UserID,
		arg.Concept,
		arg.AmountCents,
		arg.Category,
		arg.Description,
		arg.Year,
		arg.Month,
		arg.Day,
	)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Concept,
		&i.AmountCents,
		&i.Category,
		&i.Description,
		&i.Year,
		&i.Month,
		&i.Day,
		&i.CreatedAt,
	)
	return i, err
}

const listExpensesForPeriod = `
SELECT id, user_id, concept, amount_cents, category, description, year, month, day, created_at
FROM expenses
WHERE user_id = ?1 AND year = ?2 AND month = ?3
ORDER BY day, id
`

type ListExpensesForPeriodParams struct {
	UserID int64
	Year   int64
	Month  int64
}

func (q *Queries) ListExpensesForPeriod(ctx context.Context, arg ListExpensesForPeriodParams) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesForPeriod, arg.UserID, arg.Year, arg.Month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Concept,
			&i.AmountCents,
			&i.Category,
			&i.Description,
			&i.Year,
			&i.Month,
			&i.Day,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteExpensesByConcept = `
DELETE FROM expenses
WHERE user_id = ?1 AND year = ?2 AND month = ?3 AND concept = ?4
`

type DeleteExpensesByConceptParams struct {
	UserID  int64
	Year    int64
	Month   int64
	Concept string
}

// DeleteExpensesByConcept removes every matching row, not just the first.
func (q *Queries) DeleteExpensesByConcept(ctx context.Context, arg DeleteExpensesByConceptParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpensesByConcept, arg.UserID, arg.Year, arg.Month, arg.Concept)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countExpensesForPeriod = `
SELECT COUNT(*)
FROM expenses
WHERE user_id = ?1 AND year = ?2 AND month = ?3
`

type CountExpensesForPeriodParams struct {
	UserID int64
	Year   int64
	Month  int64
}

func (q *Queries) CountExpensesForPeriod(ctx context.Context, arg CountExpensesForPeriodParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countExpensesForPeriod, arg.UserID, arg.Year, arg.Month)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getPreviousExpensePeriod = `
SELECT year, month
FROM expenses
WHERE user_id = ?1
  AND (year < ?2 OR (year = ?2 AND month < ?3))
  AND year >= ?2 - ?4
ORDER BY year DESC, month DESC
LIMIT 1
`

type GetPreviousExpensePeriodParams struct {
	UserID        int64
	Year          int64
	Month         int64
	LookbackYears int64
}

type GetPreviousExpensePeriodRow struct {
	Year  int64
	Month int64
}

func (q *Queries) GetPreviousExpensePeriod(ctx context.Context, arg GetPreviousExpensePeriodParams) (GetPreviousExpensePeriodRow, error) {
	row := q.db.QueryRowContext(ctx, getPreviousExpensePeriod, arg.UserID, arg.Year, arg.Month, arg.LookbackYears)
	var i GetPreviousExpensePeriodRow
	err := row.Scan(&i.Year, &i.Month)
	return i, err
}

const listExpenseUsernames = `
SELECT DISTINCT u.username
FROM users u
JOIN expenses e ON e.user_id = u.id
ORDER BY u.username
`

// ListExpenseUsernames returns every username that has at least one
// recorded expense. Used by the worker's re-mirror sweep.
func (q *Queries) ListExpenseUsernames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listExpenseUsernames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, err
		}
		items = append(items, username)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

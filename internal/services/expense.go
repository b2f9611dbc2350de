package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"crusade/internal/datastore"
	"crusade/internal/models"

	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceExpense struct {
	postgresDB         bun.IDB
	readonlyPostgresDB bun.IDB
}

func NewServiceExpense(container *do.Injector) (*ServiceExpense, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	return &ServiceExpense{postgresDB, readonlyPostgresDB}, nil
}

func (service *ServiceExpense) List(ctx context.Context, userID string, archived bool) ([]models.Expense, error) {
	return datastore.ListExpenses(ctx, service.postgresDB, userID, archived)
}

func (service *ServiceExpense) Create(ctx context.Context, userID string, input *models.ExpenseInput) (*models.Expense, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	expense := &models.Expense{
		ID:            id,
		UserID:        &userID,
		Date:          *input.Date,
		Category:      input.Category,
		Item:          input.Item,
		Amount:        input.Amount,
		PaymentMethod: input.PaymentMethod,
	}
	if err := datastore.InsertExpense(ctx, service.postgresDB, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (service *ServiceExpense) Update(ctx context.Context, userID, expenseID string, patch *models.ExpensePatch) (*models.Expense, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	expense, err := datastore.FindExpense(ctx, service.postgresDB, userID, expenseID)
	if err != nil {
		return nil, err
	}

	columns := patch.Apply(expense)
	if len(columns) == 0 {
		return expense, nil
	}
	if err := datastore.UpdateExpenseColumns(ctx, service.postgresDB, expense, columns); err != nil {
		return nil, err
	}
	return expense, nil
}

func (service *ServiceExpense) Delete(ctx context.Context, userID, expenseID string) error {
	return datastore.DeleteExpense(ctx, service.postgresDB, userID, expenseID)
}

// Summary totals the active (non-archived) expenses.
func (service *ServiceExpense) Summary(ctx context.Context, userID string) (*models.ExpenseSummary, error) {
	categories, err := datastore.SumExpensesByCategory(ctx, service.readonlyPostgresDB, userID)
	if err != nil {
		return nil, err
	}

	summary := &models.ExpenseSummary{Categories: categories}
	for _, c := range categories {
		summary.Total += c.Total
		summary.Count += c.Count
	}
	return summary, nil
}

func (service *ServiceExpense) ArchiveAll(ctx context.Context, userID string) (int64, error) {
	return datastore.ArchiveExpenses(ctx, service.postgresDB, userID)
}

var expenseCSVHeader = []string{"date", "category", "item", "amount", "payment_method", "archived"}

// ExportCSV writes every expense of the user, archived ones included.
func (service *ServiceExpense) ExportCSV(ctx context.Context, userID string, w io.Writer) error {
	active, err := datastore.ListExpenses(ctx, service.readonlyPostgresDB, userID, false)
	if err != nil {
		return err
	}
	archived, err := datastore.ListExpenses(ctx, service.readonlyPostgresDB, userID, true)
	if err != nil {
		return err
	}

	return writeExpensesCSV(w, append(active, archived...))
}

func writeExpensesCSV(w io.Writer, expenses []models.Expense) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(expenseCSVHeader); err != nil {
		return err
	}

	for _, e := range expenses {
		record := []string{
			e.Date.String(),
			e.Category,
			e.Item,
			strconv.FormatFloat(e.Amount, 'f', 2, 64),
			e.PaymentMethod,
			strconv.FormatBool(e.Archived),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/personal-finance-assistant/backend/internal/model/ledger"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
	ErrStorage          = errors.New("ledger storage failure")
)

const (
	expenseAdded = "Expense added to the database."
	incomeAdded  = "Income added to the database."
)

// Store is the ledger surface the tools need. *store.LedgerStore satisfies it.
type Store interface {
	Insert(ctx context.Context, kind ledger.Kind, rec ledger.Record) error
	Sum(ctx context.Context, kind ledger.Kind, r ledger.Range) (float64, error)
}

// TotalExpenseArgs 对应 getTotalExpense 的参数。
type TotalExpenseArgs struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EntryArgs 对应 addExpense / addIncome 的参数。
type EntryArgs struct {
	Name   string         `json:"name"`
	Amount *ledger.Amount `json:"amount"`
}

// Executor runs ledger tools against an injected store.
type Executor struct {
	store  Store
	logger *slog.Logger
}

// NewExecutor creates an executor; a nil logger falls back to slog.Default().
func NewExecutor(store Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, logger: logger}
}

// Invoke decodes a model tool call and dispatches it to the matching operation.
func (e *Executor) Invoke(ctx context.Context, call schema.ToolCall) (string, error) {
	name, err := ParseName(call.Function.Name)
	if err != nil {
		e.logger.WarnContext(ctx, "model requested unknown tool", "tool", call.Function.Name, "call_id", call.ID)
		return "", err
	}

	switch name {
	case GetTotalExpense:
		var args TotalExpenseArgs
		if err := e.decode(ctx, call, &args); err != nil {
			return "", err
		}
		return e.GetTotalExpense(ctx, args)
	case AddExpense:
		var args EntryArgs
		if err := e.decode(ctx, call, &args); err != nil {
			return "", err
		}
		return e.AddExpense(ctx, args)
	case AddIncome:
		var args EntryArgs
		if err := e.decode(ctx, call, &args); err != nil {
			return "", err
		}
		return e.AddIncome(ctx, args)
	case GetMoneyBalance:
		return e.GetMoneyBalance(ctx)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
}

// GetTotalExpense sums expenses dated between From and To, inclusive.
func (e *Executor) GetTotalExpense(ctx context.Context, args TotalExpenseArgs) (string, error) {
	from, to := strings.TrimSpace(args.From), strings.TrimSpace(args.To)
	if from == "" || to == "" {
		return "", fmt.Errorf("%w: from and to are required", ErrInvalidArguments)
	}

	total, err := e.store.Sum(ctx, ledger.Expense, ledger.Range{From: from, To: to})
	if err != nil {
		return "", e.storageError(ctx, GetTotalExpense, "fetching total expense", err)
	}
	return ledger.FormatINR(total), nil
}

// AddExpense records a new expense.
func (e *Executor) AddExpense(ctx context.Context, args EntryArgs) (string, error) {
	if err := e.insert(ctx, AddExpense, ledger.Expense, args); err != nil {
		return "", err
	}
	return expenseAdded, nil
}

// AddIncome records a new income.
func (e *Executor) AddIncome(ctx context.Context, args EntryArgs) (string, error) {
	if err := e.insert(ctx, AddIncome, ledger.Income, args); err != nil {
		return "", err
	}
	return incomeAdded, nil
}

// GetMoneyBalance returns total income minus total expense.
func (e *Executor) GetMoneyBalance(ctx context.Context) (string, error) {
	income, err := e.store.Sum(ctx, ledger.Income, ledger.Range{})
	if err != nil {
		return "", e.storageError(ctx, GetMoneyBalance, "calculating balance", err)
	}

	expense, err := e.store.Sum(ctx, ledger.Expense, ledger.Range{})
	if err != nil {
		return "", e.storageError(ctx, GetMoneyBalance, "calculating balance", err)
	}

	return ledger.FormatINR(income - expense), nil
}

func (e *Executor) insert(ctx context.Context, tool Name, kind ledger.Kind, args EntryArgs) error {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidArguments)
	}
	if args.Amount == nil {
		return fmt.Errorf("%w: amount is required", ErrInvalidArguments)
	}

	rec := ledger.Record{Name: name, Amount: args.Amount.Float64()}
	if err := e.store.Insert(ctx, kind, rec); err != nil {
		return e.storageError(ctx, tool, "adding "+string(kind), err)
	}
	return nil
}

func (e *Executor) decode(ctx context.Context, call schema.ToolCall, dst any) error {
	raw := strings.TrimSpace(call.Function.Arguments)
	if raw == "" {
		raw = "{}"
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		e.logger.WarnContext(ctx, "malformed tool arguments",
			"tool", call.Function.Name,
			"call_id", call.ID,
			"arguments", call.Function.Arguments,
			"error", err,
		)
		return fmt.Errorf("%w: %s: %w", ErrInvalidArguments, call.Function.Name, err)
	}
	return nil
}

func (e *Executor) storageError(ctx context.Context, tool Name, action string, err error) error {
	e.logger.ErrorContext(ctx, "ledger storage failed", "tool", string(tool), "action", action, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrStorage, action, err)
}

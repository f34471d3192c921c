package tools

import (
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// Name identifies one of the callable ledger tools.
type Name string

const (
	GetTotalExpense Name = "getTotalExpense"
	AddExpense      Name = "addExpense"
	AddIncome       Name = "addIncome"
	GetMoneyBalance Name = "getMoneyBalance"
)

// Names lists every tool in catalog order.
func Names() []Name {
	return []Name{GetTotalExpense, AddExpense, AddIncome, GetMoneyBalance}
}

// ParseName maps a model-provided function name onto the enum.
func ParseName(raw string) (Name, error) {
	switch Name(raw) {
	case GetTotalExpense, AddExpense, AddIncome, GetMoneyBalance:
		return Name(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, raw)
	}
}

// Spec is the human-readable description of a tool, as listed in the system prompt.
type Spec struct {
	Name      Name   `json:"name"`
	Signature string `json:"signature"`
	Summary   string `json:"summary"`
}

// Specs returns the tool list shared by every entry point.
func Specs() []Spec {
	return []Spec{
		{Name: GetTotalExpense, Signature: "getTotalExpense({from, to}): string", Summary: "Get total expense for a time period."},
		{Name: AddExpense, Signature: "addExpense({name, amount}): string", Summary: "Add new expense to the expense database."},
		{Name: AddIncome, Signature: "addIncome({name, amount}): string", Summary: "Add new income to income database."},
		{Name: GetMoneyBalance, Signature: "getMoneyBalance(): string", Summary: "Get remaining money balance from database."},
	}
}

// Catalog returns the static tool schema sent with every completion request.
func Catalog() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: string(GetTotalExpense),
			Desc: "Get total expense from date to date.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"from": {Type: schema.String, Desc: "From date to get the expense.", Required: true},
				"to":   {Type: schema.String, Desc: "To date to get the expense.", Required: true},
			}),
		},
		{
			Name: string(AddExpense),
			Desc: "Add new expense entry to the expense database.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name":   {Type: schema.String, Desc: "Name of the expense. e.g., Bought an iphone", Required: true},
				"amount": {Type: schema.String, Desc: "Amount of the expense.", Required: true},
			}),
		},
		{
			Name: string(AddIncome),
			Desc: "Add new income entry to income database",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name":   {Type: schema.String, Desc: "Name of the income. e.g., Got salary", Required: true},
				"amount": {Type: schema.String, Desc: "Amount of the income.", Required: true},
			}),
		},
		{
			Name: string(GetMoneyBalance),
			Desc: "Get remaining money balance from database.",
		},
	}
}

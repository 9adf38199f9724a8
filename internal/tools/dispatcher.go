// Package tools exposes the ledger as MCP tools over a line-oriented stdio
// transport. Results are indented JSON text; failures are "Error: ..." text
// results flagged as errors.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/utils"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// LedgerCommander defines the write-side operations used by the tools.
type LedgerCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.Account, error)
	Deposit(context.Context, cqrs.DepositCommand) (*models.Account, error)
	Withdraw(context.Context, cqrs.WithdrawCommand) (*models.Account, error)
}

// LedgerQuerier defines the read-side operations used by the tools.
type LedgerQuerier interface {
	GetBalance(context.Context, cqrs.GetBalanceQuery) (*models.BalanceView, error)
	TransactionHistory(context.Context, cqrs.ListTransactionsQuery) (*models.TransactionPage, error)
	ListAllAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.Account, error)
}

// toolError is a failure whose text is shown to the caller verbatim.
type toolError string

func (e toolError) Error() string { return string(e) }

const (
	errOwnerEmpty       = toolError("Owner name cannot be empty")
	errOwnerTooLong     = toolError("Owner name must be at most 255 characters")
	errNegativeBalance  = toolError("Initial balance cannot be negative")
	errAmountInvalid    = toolError("Amount must be a positive number")
	errAmountPrecision  = toolError("Amount may have at most two decimal places")
	errAccountIDInvalid = toolError("account_id must be an integer")
	errLimitInvalid     = toolError("limit must be an integer between 1 and 100")
)

const maxOwnerNameLength = 255

type Dispatcher struct {
	commands LedgerCommander
	queries  LedgerQuerier
	logger   *zap.Logger
}

func NewDispatcher(commands LedgerCommander, queries LedgerQuerier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{commands: commands, queries: queries, logger: logger}
}

// Handle adapts Call to the mcp-go tool handler signature.
func (d *Dispatcher) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return d.Call(ctx, req.Params.Name, req.GetArguments()), nil
}

// Call runs one tool. It never returns a Go error; every failure becomes an
// error-flagged text result.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	if args == nil {
		args = map[string]any{}
	}

	var (
		result any
		err    error
	)
	switch name {
	case ToolCreateAccount:
		result, err = d.createAccount(ctx, args)
	case ToolDeposit:
		result, err = d.changeBalance(ctx, args, models.TransactionDeposit)
	case ToolWithdraw:
		result, err = d.changeBalance(ctx, args, models.TransactionWithdrawal)
	case ToolGetBalance:
		result, err = d.getBalance(ctx, args)
	case ToolGetTransactions:
		result, err = d.getTransactions(ctx, args)
	case ToolListAccounts:
		result, err = d.listAccounts(ctx)
	default:
		return UnknownToolResult(name)
	}
	if err != nil {
		return d.errorResult(name, err)
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return d.errorResult(name, err)
	}
	return mcp.NewToolResultText(string(text))
}

// UnknownToolResult is the reply to a call naming a tool that does not exist.
func UnknownToolResult(name string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Error: Unknown tool '%s'", name))
}

func (d *Dispatcher) errorResult(tool string, err error) *mcp.CallToolResult {
	var te toolError
	switch {
	case errors.As(err, &te):
		return mcp.NewToolResultError("Error: " + te.Error())
	case errors.Is(err, models.ErrAccountNotFound):
		return mcp.NewToolResultError("Error: Account not found")
	case errors.Is(err, models.ErrDuplicateOwner):
		return mcp.NewToolResultError("Error: Account with this owner name already exists")
	case errors.Is(err, models.ErrInsufficientFunds):
		return mcp.NewToolResultError("Error: Insufficient funds")
	case errors.Is(err, models.ErrInvalidAmount):
		return mcp.NewToolResultError("Error: " + errAmountInvalid.Error())
	case errors.Is(err, models.ErrBalanceLimit):
		return mcp.NewToolResultError("Error: Balance would exceed the maximum allowed")
	}
	d.logger.Error("tool call failed", zap.String("tool", tool), zap.Error(err))
	return mcp.NewToolResultError("Error: Internal error")
}

// ---- results ----

type accountResult struct {
	ID        int64        `json:"id"`
	OwnerName string       `json:"owner_name"`
	Balance   money.Amount `json:"balance"`
	CreatedAt string       `json:"created_at"`
}

type createAccountResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Account accountResult `json:"account"`
}

type balanceChangeResult struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	AccountID  int64        `json:"account_id"`
	NewBalance money.Amount `json:"new_balance"`
}

type balanceResult struct {
	Success   bool         `json:"success"`
	AccountID int64        `json:"account_id"`
	OwnerName string       `json:"owner_name"`
	Balance   money.Amount `json:"balance"`
}

type transactionResult struct {
	ID        int64                  `json:"id"`
	Type      models.TransactionType `json:"type"`
	Amount    money.Amount           `json:"amount"`
	Timestamp string                 `json:"timestamp"`
}

type transactionsResult struct {
	Success           bool                `json:"success"`
	AccountID         int64               `json:"account_id"`
	TotalTransactions int64               `json:"total_transactions"`
	Transactions      []transactionResult `json:"transactions"`
}

type listAccountsResult struct {
	Success       bool            `json:"success"`
	TotalAccounts int             `json:"total_accounts"`
	Accounts      []accountResult `json:"accounts"`
}

func toAccountResult(a *models.Account) accountResult {
	return accountResult{
		ID:        a.ID,
		OwnerName: a.OwnerName,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt.Format(time.RFC3339Nano),
	}
}

// ---- tools ----

func (d *Dispatcher) createAccount(ctx context.Context, args map[string]any) (any, error) {
	owner, _ := args["owner_name"].(string)
	owner = utils.NormalizeOwnerName(owner)
	if owner == "" {
		return nil, errOwnerEmpty
	}
	if len([]rune(owner)) > maxOwnerNameLength {
		return nil, errOwnerTooLong
	}

	var initial money.Amount
	if raw, ok := args["initial_balance"]; ok && raw != nil {
		amount, err := amountArg(raw)
		if err != nil {
			return nil, err
		}
		if amount < 0 {
			return nil, errNegativeBalance
		}
		initial = amount
	}

	d.logger.Info("tool create_account", zap.String("owner_name", utils.SanitizeInput(owner)))
	account, err := d.commands.CreateAccount(ctx, cqrs.CreateAccountCommand{OwnerName: owner, InitialBalance: initial})
	if err != nil {
		return nil, err
	}
	return createAccountResult{
		Success: true,
		Message: "Account created successfully",
		Account: toAccountResult(account),
	}, nil
}

func (d *Dispatcher) changeBalance(ctx context.Context, args map[string]any, txType models.TransactionType) (any, error) {
	accountID, err := accountIDArg(args)
	if err != nil {
		return nil, err
	}
	amount, err := amountArg(args["amount"])
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, errAmountInvalid
	}

	var (
		account *models.Account
		message string
	)
	if txType == models.TransactionDeposit {
		account, err = d.commands.Deposit(ctx, cqrs.DepositCommand{AccountID: accountID, Amount: amount})
		message = "Deposit successful"
	} else {
		account, err = d.commands.Withdraw(ctx, cqrs.WithdrawCommand{AccountID: accountID, Amount: amount})
		message = "Withdrawal successful"
	}
	if err != nil {
		return nil, err
	}
	return balanceChangeResult{
		Success:    true,
		Message:    message,
		AccountID:  account.ID,
		NewBalance: account.Balance,
	}, nil
}

func (d *Dispatcher) getBalance(ctx context.Context, args map[string]any) (any, error) {
	accountID, err := accountIDArg(args)
	if err != nil {
		return nil, err
	}
	view, err := d.queries.GetBalance(ctx, cqrs.GetBalanceQuery{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	return balanceResult{
		Success:   true,
		AccountID: view.AccountID,
		OwnerName: view.OwnerName,
		Balance:   view.Balance,
	}, nil
}

func (d *Dispatcher) getTransactions(ctx context.Context, args map[string]any) (any, error) {
	accountID, err := accountIDArg(args)
	if err != nil {
		return nil, err
	}
	limit := cqrs.DefaultTransactionLimit
	if raw, ok := args["limit"]; ok && raw != nil {
		n, err := intArg(raw)
		if err != nil || n < 1 || n > cqrs.MaxTransactionLimit {
			return nil, errLimitInvalid
		}
		limit = int(n)
	}

	page, err := d.queries.TransactionHistory(ctx, cqrs.ListTransactionsQuery{AccountID: accountID, Limit: limit})
	if err != nil {
		return nil, err
	}
	transactions := make([]transactionResult, 0, len(page.Transactions))
	for _, t := range page.Transactions {
		transactions = append(transactions, transactionResult{
			ID:        t.ID,
			Type:      t.Type,
			Amount:    t.Amount,
			Timestamp: t.Timestamp.Format(time.RFC3339Nano),
		})
	}
	return transactionsResult{
		Success:           true,
		AccountID:         accountID,
		TotalTransactions: page.TotalCount,
		Transactions:      transactions,
	}, nil
}

func (d *Dispatcher) listAccounts(ctx context.Context) (any, error) {
	accounts, err := d.queries.ListAllAccounts(ctx, cqrs.ListAccountsQuery{})
	if err != nil {
		return nil, err
	}
	out := make([]accountResult, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountResult(&accounts[i]))
	}
	return listAccountsResult{Success: true, TotalAccounts: len(out), Accounts: out}, nil
}

// ---- argument coercion ----

func accountIDArg(args map[string]any) (int64, error) {
	raw, ok := args["account_id"]
	if !ok || raw == nil {
		return 0, errAccountIDInvalid
	}
	id, err := intArg(raw)
	if err != nil {
		return 0, errAccountIDInvalid
	}
	return id, nil
}

func intArg(raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.Abs(v) >= math.MaxInt64 {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		return v.Int64()
	case string:
		return utils.ParseAccountID(v)
	}
	return 0, fmt.Errorf("not an integer: %T", raw)
}

func amountArg(raw any) (money.Amount, error) {
	var (
		amount money.Amount
		err    error
	)
	switch v := raw.(type) {
	case float64:
		amount, err = money.FromFloat(v)
	case int:
		amount, err = money.Parse(strconv.Itoa(v))
	case int64:
		amount, err = money.Parse(strconv.FormatInt(v, 10))
	case json.Number:
		amount, err = money.Parse(v.String())
	case string:
		amount, err = money.Parse(strings.TrimSpace(v))
	default:
		return 0, errAmountInvalid
	}
	if errors.Is(err, money.ErrPrecision) {
		return 0, errAmountPrecision
	}
	if err != nil {
		return 0, errAmountInvalid
	}
	return amount, nil
}

package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/eaglebank/ledger/internal/command"
	"github.com/eaglebank/ledger/internal/query"
	"github.com/eaglebank/ledger/internal/repository/memory"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDispatcher() *Dispatcher {
	store := memory.NewStore()
	logger := zap.NewNop()
	commands := command.NewLedgerCommandService(store, store, nil, logger, command.LockNone)
	return NewDispatcher(commands, query.NewLedgerQueryService(store), logger)
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, r.Content, 1)
	switch c := r.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", r.Content[0])
	return ""
}

func callJSON(t *testing.T, d *Dispatcher, name string, args map[string]any) map[string]any {
	t.Helper()
	r := d.Call(context.Background(), name, args)
	text := resultText(t, r)
	require.False(t, r.IsError, text)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, true, out["success"])
	return out
}

func TestAliceScenarioThroughTools(t *testing.T) {
	d := newTestDispatcher()

	created := callJSON(t, d, ToolCreateAccount, map[string]any{"owner_name": " Alice ", "initial_balance": 100.0})
	assert.Equal(t, "Account created successfully", created["message"])
	account := created["account"].(map[string]any)
	assert.Equal(t, "Alice", account["owner_name"])
	assert.Equal(t, float64(100), account["balance"])

	deposit := callJSON(t, d, ToolDeposit, map[string]any{"account_id": 1.0, "amount": 50.0})
	assert.Equal(t, "Deposit successful", deposit["message"])
	assert.Equal(t, float64(150), deposit["new_balance"])

	withdraw := callJSON(t, d, ToolWithdraw, map[string]any{"account_id": 1.0, "amount": 30.0})
	assert.Equal(t, "Withdrawal successful", withdraw["message"])
	assert.Equal(t, float64(120), withdraw["new_balance"])

	balance := callJSON(t, d, ToolGetBalance, map[string]any{"account_id": 1.0})
	assert.Equal(t, float64(120), balance["balance"])
	assert.Equal(t, "Alice", balance["owner_name"])

	history := callJSON(t, d, ToolGetTransactions, map[string]any{"account_id": 1.0, "limit": 2.0})
	assert.Equal(t, float64(3), history["total_transactions"])
	transactions := history["transactions"].([]any)
	require.Len(t, transactions, 2)
	assert.Equal(t, "withdrawal", transactions[0].(map[string]any)["type"])

	list := callJSON(t, d, ToolListAccounts, nil)
	assert.Equal(t, float64(1), list["total_accounts"])
}

func TestToolErrors(t *testing.T) {
	d := newTestDispatcher()
	callJSON(t, d, ToolCreateAccount, map[string]any{"owner_name": "Alice", "initial_balance": 10.0})
	callJSON(t, d, ToolCreateAccount, map[string]any{"owner_name": "Max", "initial_balance": "92233720368547758.07"})

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		expected string
	}{
		{"blank owner", ToolCreateAccount, map[string]any{"owner_name": "   "}, "Error: Owner name cannot be empty"},
		{"missing owner", ToolCreateAccount, map[string]any{}, "Error: Owner name cannot be empty"},
		{"negative initial balance", ToolCreateAccount, map[string]any{"owner_name": "Bob", "initial_balance": -1.0}, "Error: Initial balance cannot be negative"},
		{"duplicate owner", ToolCreateAccount, map[string]any{"owner_name": "Alice"}, "Error: Account with this owner name already exists"},
		{"zero deposit", ToolDeposit, map[string]any{"account_id": 1.0, "amount": 0.0}, "Error: Amount must be a positive number"},
		{"missing amount", ToolWithdraw, map[string]any{"account_id": 1.0}, "Error: Amount must be a positive number"},
		{"sub-cent amount", ToolDeposit, map[string]any{"account_id": 1.0, "amount": 0.001}, "Error: Amount may have at most two decimal places"},
		{"unknown account", ToolDeposit, map[string]any{"account_id": 99.0, "amount": 5.0}, "Error: Account not found"},
		{"insufficient funds", ToolWithdraw, map[string]any{"account_id": 1.0, "amount": 10.01}, "Error: Insufficient funds"},
		{"fractional account id", ToolGetBalance, map[string]any{"account_id": 1.5}, "Error: account_id must be an integer"},
		{"missing account id", ToolGetTransactions, map[string]any{}, "Error: account_id must be an integer"},
		{"history of unknown account", ToolGetTransactions, map[string]any{"account_id": 7.0}, "Error: Account not found"},
		{"zero limit", ToolGetTransactions, map[string]any{"account_id": 1.0, "limit": 0.0}, "Error: limit must be an integer between 1 and 100"},
		{"limit above maximum", ToolGetTransactions, map[string]any{"account_id": 1.0, "limit": 101.0}, "Error: limit must be an integer between 1 and 100"},
		{"deposit past maximum balance", ToolDeposit, map[string]any{"account_id": 2.0, "amount": 0.01}, "Error: Balance would exceed the maximum allowed"},
		{"unknown tool", "transfer", nil, "Error: Unknown tool 'transfer'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := d.Call(context.Background(), tt.tool, tt.args)
			assert.True(t, r.IsError)
			assert.Equal(t, tt.expected, resultText(t, r))
		})
	}

	balance := callJSON(t, d, ToolGetBalance, map[string]any{"account_id": "1"})
	assert.Equal(t, float64(10), balance["balance"])

	history := callJSON(t, d, ToolGetTransactions, map[string]any{"account_id": 1.0, "limit": 100.0})
	assert.Equal(t, float64(1), history["total_transactions"])
}

func TestArgumentCoercion(t *testing.T) {
	id, err := intArg(json.Number("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = intArg(true)
	assert.Error(t, err)

	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	_, err = intArg(float64(math.MaxInt64))
	assert.Error(t, err)
	_, err = intArg(-float64(math.MaxInt64))
	assert.Error(t, err)

	big, err := intArg(float64(1 << 53))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<53), big)

	amount, err := amountArg("19.99")
	require.NoError(t, err)
	assert.Equal(t, "19.99", amount.String())

	amount, err = amountArg(int64(3))
	require.NoError(t, err)
	assert.Equal(t, "3.00", amount.String())

	_, err = amountArg("ten")
	assert.ErrorIs(t, err, errAmountInvalid)
}

type rpcResponse struct {
	ID     int `json:"id"`
	Result struct {
		Tools   []struct{ Name string } `json:"tools"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
}

func TestServeOverStdio(t *testing.T) {
	srv := NewServer(newTestDispatcher(), "test", zap.NewNop())
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"create_account","arguments":{"owner_name":"Alice","initial_balance":100}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"transfer","arguments":{}}}`,
	}, "\n") + "\n"

	var out strings.Builder
	require.NoError(t, srv.Serve(context.Background(), strings.NewReader(input), &out))

	var responses []rpcResponse
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var r rpcResponse
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r), scanner.Text())
		responses = append(responses, r)
	}
	require.Len(t, responses, 4)

	assert.Equal(t, 2, responses[1].ID)
	names := make([]string, 0, len(responses[1].Result.Tools))
	for _, tool := range responses[1].Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolCreateAccount, ToolDeposit, ToolWithdraw, ToolGetBalance, ToolGetTransactions, ToolListAccounts,
	}, names)

	created := responses[2].Result
	assert.Equal(t, 3, responses[2].ID)
	require.Len(t, created.Content, 1)
	assert.False(t, created.IsError)
	assert.Contains(t, created.Content[0].Text, `"success": true`)

	unknown := responses[3].Result
	assert.Equal(t, 4, responses[3].ID)
	assert.True(t, unknown.IsError)
	require.Len(t, unknown.Content, 1)
	assert.Equal(t, "Error: Unknown tool 'transfer'", unknown.Content[0].Text)
}

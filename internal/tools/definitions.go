package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool names.
const (
	ToolCreateAccount   = "create_account"
	ToolDeposit         = "deposit"
	ToolWithdraw        = "withdraw"
	ToolGetBalance      = "get_balance"
	ToolGetTransactions = "get_transactions"
	ToolListAccounts    = "list_accounts"
)

// Definitions lists every tool with its input schema.
func Definitions() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewToolWithRawSchema(ToolCreateAccount,
			"Create a new bank account with an owner name and optional initial balance",
			json.RawMessage(`{
				"type": "object",
				"properties": {
					"owner_name": {"type": "string", "description": "The name of the account owner"},
					"initial_balance": {"type": "number", "description": "Initial balance for the account (default: 0)", "default": 0}
				},
				"required": ["owner_name"]
			}`)),
		mcp.NewToolWithRawSchema(ToolDeposit,
			"Deposit funds into an existing bank account",
			json.RawMessage(`{
				"type": "object",
				"properties": {
					"account_id": {"type": "integer", "description": "The ID of the account to deposit into"},
					"amount": {"type": "number", "description": "The amount to deposit (must be positive)"}
				},
				"required": ["account_id", "amount"]
			}`)),
		mcp.NewToolWithRawSchema(ToolWithdraw,
			"Withdraw funds from an existing bank account",
			json.RawMessage(`{
				"type": "object",
				"properties": {
					"account_id": {"type": "integer", "description": "The ID of the account to withdraw from"},
					"amount": {"type": "number", "description": "The amount to withdraw (must be positive)"}
				},
				"required": ["account_id", "amount"]
			}`)),
		mcp.NewToolWithRawSchema(ToolGetBalance,
			"Get the current balance of a bank account",
			json.RawMessage(`{
				"type": "object",
				"properties": {
					"account_id": {"type": "integer", "description": "The ID of the account to check"}
				},
				"required": ["account_id"]
			}`)),
		mcp.NewToolWithRawSchema(ToolGetTransactions,
			"Get the transaction history for a bank account",
			json.RawMessage(`{
				"type": "object",
				"properties": {
					"account_id": {"type": "integer", "description": "The ID of the account"},
					"limit": {"type": "integer", "description": "Maximum number of transactions to return (default: 50)", "default": 50, "minimum": 1, "maximum": 100}
				},
				"required": ["account_id"]
			}`)),
		mcp.NewToolWithRawSchema(ToolListAccounts,
			"List all bank accounts in the system",
			json.RawMessage(`{"type": "object", "properties": {}, "required": []}`)),
	}
}

package cqrs

// DefaultTransactionLimit is the page size used when a history query does
// not ask for one.
const DefaultTransactionLimit = 50

// MaxTransactionLimit is the largest page size the front-ends accept.
const MaxTransactionLimit = 100

// ---------- Account queries ----------

// GetAccountQuery fetches a single account by ID.
type GetAccountQuery struct {
	AccountID int64
}

// GetAccountByOwnerQuery fetches an account by exact owner name.
type GetAccountByOwnerQuery struct {
	OwnerName string
}

// GetBalanceQuery fetches the owner name and balance of an account.
type GetBalanceQuery struct {
	AccountID int64
}

// ListAccountsQuery fetches every account.
type ListAccountsQuery struct{}

// ---------- Transaction queries ----------

// ListTransactionsQuery fetches one page of an account's history,
// most recent first. A zero Limit means DefaultTransactionLimit.
type ListTransactionsQuery struct {
	AccountID int64
	Limit     int
	Offset    int
}

// CountTransactionsQuery counts every transaction of an account.
type CountTransactionsQuery struct {
	AccountID int64
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/eaglebank/ledger/shared/cqrs"
	"github.com/eaglebank/ledger/shared/middleware"
	"github.com/eaglebank/ledger/shared/models"
	"github.com/eaglebank/ledger/shared/money"
	"github.com/eaglebank/ledger/shared/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LedgerCommander defines the write-side operations used by LedgerHandler.
type LedgerCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (*models.Account, error)
	Deposit(context.Context, cqrs.DepositCommand) (*models.Account, error)
	Withdraw(context.Context, cqrs.WithdrawCommand) (*models.Account, error)
}

// LedgerQuerier defines the read-side operations used by LedgerHandler.
type LedgerQuerier interface {
	GetBalance(context.Context, cqrs.GetBalanceQuery) (*models.BalanceView, error)
	TransactionHistory(context.Context, cqrs.ListTransactionsQuery) (*models.TransactionPage, error)
}

type LedgerHandler struct {
	commands LedgerCommander
	queries  LedgerQuerier
	logger   *zap.Logger
}

type CreateAccountRequest struct {
	OwnerName      string       `json:"owner_name" validate:"required,max=255"`
	InitialBalance money.Amount `json:"initial_balance" validate:"gte=0"`
}

type AmountRequest struct {
	Amount money.Amount `json:"amount" validate:"gt=0"`
}

type TransactionsQuery struct {
	Limit  int `form:"limit,default=50" validate:"min=1,max=100"`
	Offset int `form:"offset,default=0" validate:"min=0"`
}

type BalanceChangeResponse struct {
	Message    string       `json:"message"`
	AccountID  int64        `json:"account_id"`
	NewBalance money.Amount `json:"new_balance"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerHandler(commands LedgerCommander, queries LedgerQuerier, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{commands: commands, queries: queries, logger: logger}
}

func (h *LedgerHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "OK", Timestamp: time.Now().UTC()})
}

func (h *LedgerHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	req.OwnerName = utils.NormalizeOwnerName(req.OwnerName)
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	safeOwner := utils.SanitizeInput(req.OwnerName)
	h.logger.Info("creating account", zap.String("owner_name", safeOwner))

	account, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		OwnerName:      req.OwnerName,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		if errors.Is(err, models.ErrDuplicateOwner) {
			h.logger.Warn("account already exists", zap.String("owner_name", safeOwner))
		}
		h.respondWithError(c, err, "Failed to create account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *LedgerHandler) Deposit(c *gin.Context) {
	accountID, req, ok := h.bindAmount(c)
	if !ok {
		return
	}

	account, err := h.commands.Deposit(c.Request.Context(), cqrs.DepositCommand{
		AccountID: accountID,
		Amount:    req.Amount,
	})
	if err != nil {
		h.respondWithError(c, err, "Failed to deposit")
		return
	}

	c.JSON(http.StatusOK, BalanceChangeResponse{
		Message:    "Deposit successful",
		AccountID:  account.ID,
		NewBalance: account.Balance,
	})
}

func (h *LedgerHandler) Withdraw(c *gin.Context) {
	accountID, req, ok := h.bindAmount(c)
	if !ok {
		return
	}

	account, err := h.commands.Withdraw(c.Request.Context(), cqrs.WithdrawCommand{
		AccountID: accountID,
		Amount:    req.Amount,
	})
	if err != nil {
		h.respondWithError(c, err, "Failed to withdraw")
		return
	}

	c.JSON(http.StatusOK, BalanceChangeResponse{
		Message:    "Withdrawal successful",
		AccountID:  account.ID,
		NewBalance: account.Balance,
	})
}

func (h *LedgerHandler) GetBalance(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	view, err := h.queries.GetBalance(c.Request.Context(), cqrs.GetBalanceQuery{AccountID: accountID})
	if err != nil {
		h.respondWithError(c, err, "Failed to get balance")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *LedgerHandler) GetTransactions(c *gin.Context) {
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	var q TransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(q); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	page, err := h.queries.TransactionHistory(c.Request.Context(), cqrs.ListTransactionsQuery{
		AccountID: accountID,
		Limit:     q.Limit,
		Offset:    q.Offset,
	})
	if err != nil {
		h.respondWithError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *LedgerHandler) bindAmount(c *gin.Context) (int64, AmountRequest, bool) {
	var req AmountRequest
	accountID, ok := accountIDParam(c)
	if !ok {
		return 0, req, false
	}
	if !bindJSON(c, &req) {
		return 0, req, false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return 0, req, false
	}
	return accountID, req, true
}

func accountIDParam(c *gin.Context) (int64, bool) {
	id, err := utils.ParseAccountID(c.Param("id"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account id")
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		switch {
		case errors.Is(err, money.ErrPrecision):
			middleware.RespondWithError(c, http.StatusBadRequest, "Amounts may have at most two decimal places")
		case errors.Is(err, money.ErrNotANumber), errors.Is(err, money.ErrOutOfRange):
			middleware.RespondWithError(c, http.StatusBadRequest, "Amount must be a positive number")
		default:
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		}
		return false
	}
	return true
}

// respondWithError maps core sentinels to status codes. Anything unexpected
// is logged and reported as a 500 with fallback as the message.
func (h *LedgerHandler) respondWithError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrAccountNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "Account not found")
	case errors.Is(err, models.ErrDuplicateOwner):
		middleware.RespondWithError(c, http.StatusConflict, "Account with this owner name already exists")
	case errors.Is(err, models.ErrInsufficientFunds):
		middleware.RespondWithError(c, http.StatusBadRequest, "Insufficient funds")
	case errors.Is(err, models.ErrInvalidAmount):
		middleware.RespondWithError(c, http.StatusBadRequest, "Amount must be a positive number")
	case errors.Is(err, models.ErrBalanceLimit):
		middleware.RespondWithError(c, http.StatusBadRequest, "Balance would exceed the maximum allowed")
	default:
		h.logger.Error(fallback,
			zap.String("path", c.FullPath()),
			zap.String("trace_id", middleware.GetTraceID(c)),
			zap.Error(err),
		)
		middleware.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}

// Package api exposes the ledger as API Gateway Lambda proxy handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jacentio/ledger/ledger"
)

// Query and path parameter names.
const (
	ParamAccountType = "accountType"
	ParamOwnerID     = "ownerId"
	QueryLimit       = "limit"
	QueryCursor      = "cursor"
)

type createAccountRequest struct {
	AccountType string `json:"accountType" validate:"required"`
	Balance     int64  `json:"balance" validate:"gte=0"`
}

type transferRequest struct {
	TransferToOwnerID     string `json:"transferToOwnerId" validate:"required"`
	TransferToAccountType string `json:"transferToAccountType" validate:"required"`
	TransferAmount        int64  `json:"transferAmount" validate:"required"`
}

type updatePartnerRequest struct {
	Admin *bool `json:"admin" validate:"required"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

// Handler serves the ledger HTTP resources.
type Handler struct {
	svc      *ledger.Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHandler creates a Handler.
func NewHandler(svc *ledger.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:      svc,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// GetAccountBalance handles GET /accounts/{accountType}.
func (h *Handler) GetAccountBalance(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ownerID := identity(req)
	accountType := req.PathParameters[ParamAccountType]
	if ownerID == "" || accountType == "" {
		return text(req, http.StatusBadRequest, msgMissingIdentity), nil
	}

	account, err := h.svc.GetAccount(ctx, ownerID, accountType)
	if err != nil {
		return h.fail(req, err, msgAccountNotFound), nil
	}
	return jsonBody(req, http.StatusOK, balanceResponse{Balance: account.Balance}), nil
}

// GetAccounts handles GET /accounts. Callers without an identity get an empty list.
func (h *Handler) GetAccounts(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ownerID := identity(req)
	if ownerID == "" {
		return jsonBody(req, http.StatusOK, []ledger.Account{}), nil
	}

	limit, err := parseLimit(req.QueryStringParameters[QueryLimit])
	if err != nil {
		return text(req, http.StatusBadRequest, err.Error()), nil
	}

	list, err := h.svc.GetAccounts(ctx, ownerID, limit, req.QueryStringParameters[QueryCursor])
	if err != nil {
		return h.fail(req, err, msgAccountNotFound), nil
	}
	return jsonBody(req, http.StatusOK, list), nil
}

// CreateAccount handles POST /accounts.
//
// The caller becomes an admin partner when its identity is the account owning the API.
// This only takes effect for the caller's first account.
func (h *Handler) CreateAccount(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ownerID := identity(req)
	if req.Body == "" || ownerID == "" {
		return text(req, http.StatusBadRequest, msgMissingAccount), nil
	}

	var body createAccountRequest
	if err := h.decode(req.Body, &body); err != nil {
		return text(req, http.StatusBadRequest, err.Error()), nil
	}

	isAdmin := req.RequestContext.AccountID == ownerID
	account, err := h.svc.CreateAccount(ctx, ledger.NewAccount(ownerID, body.AccountType, ledger.WithBalance(body.Balance)), isAdmin)
	if err != nil {
		return h.fail(req, err, msgAccountNotFound), nil
	}
	return jsonBody(req, http.StatusCreated, account), nil
}

// TransferAccountBalance handles POST /accounts/{accountType}/transfer.
func (h *Handler) TransferAccountBalance(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ownerID := identity(req)
	accountType := req.PathParameters[ParamAccountType]
	if req.Body == "" || ownerID == "" || accountType == "" {
		return text(req, http.StatusBadRequest, msgMissingTransfer), nil
	}

	var body transferRequest
	if err := h.decode(req.Body, &body); err != nil {
		return text(req, http.StatusBadRequest, err.Error()), nil
	}

	account, err := h.svc.TransferAccountBalance(ctx,
		ledger.NewAccount(ownerID, accountType),
		ledger.NewAccount(body.TransferToOwnerID, body.TransferToAccountType),
		body.TransferAmount,
	)
	if err != nil {
		return h.fail(req, err, msgAccountNotFound), nil
	}
	return jsonBody(req, http.StatusOK, account), nil
}

// DeleteAccount handles DELETE /accounts/{accountType}.
func (h *Handler) DeleteAccount(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ownerID := identity(req)
	accountType := req.PathParameters[ParamAccountType]
	if ownerID == "" || accountType == "" {
		return text(req, http.StatusBadRequest, msgMissingAccountType), nil
	}

	if _, err := h.svc.DeleteAccount(ctx, ledger.NewAccount(ownerID, accountType)); err != nil {
		return h.fail(req, err, msgDeleteNotFound), nil
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusNoContent,
		Headers:    map[string]string{HeaderCorrelationID: correlationID(req)},
	}, nil
}

// UpdatePartner handles PUT /partners/{ownerId}. Only admin partners may call it.
func (h *Handler) UpdatePartner(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	callerID := identity(req)
	ownerID := req.PathParameters[ParamOwnerID]
	if callerID == "" {
		return text(req, http.StatusForbidden, msgForbidden), nil
	}
	if ownerID == "" {
		return text(req, http.StatusBadRequest, msgMissingPartnerAdmin), nil
	}

	var body updatePartnerRequest
	if err := h.decode(req.Body, &body); err != nil {
		return text(req, http.StatusBadRequest, msgMissingPartnerAdmin), nil
	}

	partner, err := h.svc.UpdatePartner(ctx, callerID, ownerID, *body.Admin)
	if err != nil {
		return h.fail(req, err, msgPartnerNotFound), nil
	}
	return jsonBody(req, http.StatusOK, partner), nil
}

// decode parses a JSON body and validates it.
func (h *Handler) decode(body string, v any) error {
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("malformed body: %w", err)
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid field '%s': failed '%s' check", verrs[0].Field(), verrs[0].Tag())
		}
		return err
	}
	return nil
}

// fail turns a ledger error into a response. Server errors are logged.
func (h *Handler) fail(req events.APIGatewayProxyRequest, err error, notFound string) events.APIGatewayProxyResponse {
	status, body := statusFor(err, notFound)
	fields := []zap.Field{
		zap.String("method", req.HTTPMethod),
		zap.String("resource", req.Resource),
		zap.String("correlationId", correlationID(req)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Info("request rejected", fields...)
	}
	return text(req, status, body)
}

// identity is the caller's account id as resolved by API Gateway IAM auth.
func identity(req events.APIGatewayProxyRequest) string {
	return req.RequestContext.Identity.AccountID
}

func parseLimit(raw string) (int32, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return int32(n), nil
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/jacentio/ledger/ledger"
	"github.com/jacentio/ledger/store"
)

// HeaderCorrelationID carries the request id on every response.
const HeaderCorrelationID = "X-Correlation-Id"

// Response bodies for rejected requests.
const (
	msgAccountNotFound     = "Account not found"
	msgDeleteNotFound      = "Account by accountType not found."
	msgPartnerNotFound     = "Partner not found."
	msgExistsOrLimit       = "Account type already exists or limit reached."
	msgTransferRejected    = "Source or destination account missing, or insufficient balance."
	msgForbidden           = "You shall not pass."
	msgOperationFailed     = "Operation failed, please retry."
	msgMissingIdentity     = "AWS Account Id or Account Type not specified."
	msgMissingAccount      = "Account not provided."
	msgMissingTransfer     = "Account and/or accountType not provided."
	msgMissingAccountType  = "Attribute accountType not provided."
	msgMissingPartnerAdmin = "Missing/improper body containing admin boolean flag"
)

// correlationID returns the API Gateway request id, or a fresh one when absent.
func correlationID(req events.APIGatewayProxyRequest) string {
	if req.RequestContext.RequestID != "" {
		return req.RequestContext.RequestID
	}
	if id := req.Headers[HeaderCorrelationID]; id != "" {
		return id
	}
	return uuid.NewString()
}

func headers(req events.APIGatewayProxyRequest, contentType string) map[string]string {
	return map[string]string{
		"Content-Type":      contentType,
		HeaderCorrelationID: correlationID(req),
	}
}

func text(req events.APIGatewayProxyRequest, status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers(req, "text/plain; charset=utf-8"),
		Body:       body,
	}
}

func jsonBody(req events.APIGatewayProxyRequest, status int, v any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(v)
	if err != nil {
		return text(req, http.StatusInternalServerError, msgOperationFailed)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers(req, "application/json"),
		Body:       string(raw),
	}
}

// statusFor maps a ledger error to a status code and response body.
// notFound is the body used for ErrNotFound, which differs per resource.
func statusFor(err error, notFound string) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, store.ErrInvalidCursor):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, notFound
	case errors.Is(err, ledger.ErrDeleteRejected):
		return http.StatusNotFound, msgDeleteNotFound
	case errors.Is(err, ledger.ErrForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, ledger.ErrAccountExistsOrLimit):
		return http.StatusConflict, msgExistsOrLimit
	case errors.Is(err, ledger.ErrTransferRejected):
		return http.StatusConflict, msgTransferRejected
	default:
		return http.StatusInternalServerError, msgOperationFailed
	}
}

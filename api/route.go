package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Resource templates served by the Handler, as configured on API Gateway.
const (
	ResourceAccounts = "/accounts"
	ResourceAccount  = "/accounts/{accountType}"
	ResourceTransfer = "/accounts/{accountType}/transfer"
	ResourcePartner  = "/partners/{ownerId}"
)

type handlerFunc func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

type route struct {
	method   string
	resource string
	handle   handlerFunc
}

func (h *Handler) routes() []route {
	return []route{
		{http.MethodGet, ResourceAccounts, h.GetAccounts},
		{http.MethodPost, ResourceAccounts, h.CreateAccount},
		{http.MethodGet, ResourceAccount, h.GetAccountBalance},
		{http.MethodDelete, ResourceAccount, h.DeleteAccount},
		{http.MethodPost, ResourceTransfer, h.TransferAccountBalance},
		{http.MethodPut, ResourcePartner, h.UpdatePartner},
	}
}

// Route dispatches an API Gateway proxy request to the matching handler.
//
// Requests carrying a Resource template are matched on it directly. Requests with only
// a Path are matched segment by segment and their path parameters filled in.
func (h *Handler) Route(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req.RequestContext.RequestID = correlationID(req)

	for _, rt := range h.routes() {
		if !strings.EqualFold(rt.method, req.HTTPMethod) {
			continue
		}
		if req.Resource != "" {
			if req.Resource == rt.resource {
				return rt.handle(ctx, req)
			}
			continue
		}
		if params, ok := matchPath(rt.resource, req.Path); ok {
			req.Resource = rt.resource
			req.PathParameters = mergeParams(req.PathParameters, params)
			return rt.handle(ctx, req)
		}
	}

	h.logger.Sugar().Infow("no route", "method", req.HTTPMethod, "path", req.Path, "resource", req.Resource)
	return text(req, http.StatusNotFound, "Route not found."), nil
}

// matchPath matches path against a resource template, returning the {param} values.
func matchPath(template, path string) (map[string]string, bool) {
	want := strings.Split(strings.Trim(template, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return nil, false
	}

	params := make(map[string]string)
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			value, err := url.PathUnescape(got[i])
			if err != nil || value == "" {
				return nil, false
			}
			params[seg[1:len(seg)-1]] = value
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}

func mergeParams(existing, matched map[string]string) map[string]string {
	if len(existing) == 0 {
		return matched
	}
	merged := make(map[string]string, len(existing)+len(matched))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range matched {
		merged[k] = v
	}
	return merged
}

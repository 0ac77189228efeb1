package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/netmonitor/internal/monitor"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

func registerRequestHandlers(api huma.API, svc Service) {
	type listRequestsOutput struct {
		Body struct {
			Requests []types.RequestRecord `json:"requests"`
			Count    int                   `json:"count"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "list-requests", Method: http.MethodGet, Path: "/api/v1/requests", Summary: "List recorded requests in initiation order", Tags: []string{"Requests"}},
		func(ctx context.Context, input *struct {
			Status string `query:"status" enum:"pending,completed,error" doc:"Optional status filter"`
			Type   string `query:"type" enum:"fetch,xhr" doc:"Optional call type filter"`
		}) (*listRequestsOutput, error) {
			recs, err := svc.Requests(monitor.Filter{Status: types.Status(input.Status), Type: types.CallType(input.Type)})
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listRequestsOutput{}
			out.Body.Requests = recs
			out.Body.Count = len(recs)
			return out, nil
		})

	type requestOutput struct {
		Body types.RequestRecord
	}

	huma.Register(api, huma.Operation{OperationID: "get-request", Method: http.MethodGet, Path: "/api/v1/requests/{id}", Summary: "Get one recorded request", Tags: []string{"Requests"}},
		func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*requestOutput, error) {
			rec, err := svc.Request(input.ID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &requestOutput{Body: rec}, nil
		})

	type clearOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "clear-requests", Method: http.MethodDelete, Path: "/api/v1/requests", Summary: "Clear the request log", Tags: []string{"Requests"}},
		func(ctx context.Context, input *struct{}) (*clearOutput, error) {
			svc.Clear()
			out := &clearOutput{}
			out.Body.Status = "cleared"
			return out, nil
		})
}

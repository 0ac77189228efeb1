package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/netmonitor/internal/monitor"
	"github.com/dgnsrekt/netmonitor/internal/relay"
)

type monitorStatus struct {
	monitor.Status
	StreamClients  int    `json:"stream_clients"`
	StreamDropped  int64  `json:"stream_dropped"`
	BrowserTabs    *int   `json:"browser_tabs,omitempty"`
	BrowserPending *int   `json:"browser_pending,omitempty"`
	NotifyDropped  *int64 `json:"notify_dropped,omitempty"`
}

func registerMonitorHandlers(api huma.API, svc Service, broker *relay.Broker, g gauges) {
	type statusOutput struct {
		Body monitorStatus
	}

	status := func() *statusOutput {
		out := &statusOutput{}
		out.Body.Status = svc.Status()
		if broker != nil {
			out.Body.StreamClients = broker.ClientCount()
			out.Body.StreamDropped = broker.Dropped()
		}
		if g.tabs != nil {
			n := g.tabs.GetTabCount()
			out.Body.BrowserTabs = &n
		}
		if g.inflight != nil {
			n := g.inflight.PendingCount()
			out.Body.BrowserPending = &n
		}
		if g.notify != nil {
			n := g.notify.Dropped()
			out.Body.NotifyDropped = &n
		}
		return out
	}

	huma.Register(api, huma.Operation{OperationID: "get-monitor-status", Method: http.MethodGet, Path: "/api/v1/monitor", Summary: "Get monitor state and log counts", Tags: []string{"Monitor"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			return status(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "activate-monitor", Method: http.MethodPost, Path: "/api/v1/monitor/activate", Summary: "Install the request wrappers", Tags: []string{"Monitor"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			if err := svc.Activate(); err != nil {
				return nil, mapErr(err)
			}
			return status(), nil
		})

	huma.Register(api, huma.Operation{OperationID: "deactivate-monitor", Method: http.MethodPost, Path: "/api/v1/monitor/deactivate", Summary: "Restore the original request primitives", Tags: []string{"Monitor"}},
		func(ctx context.Context, input *struct{}) (*statusOutput, error) {
			if err := svc.Deactivate(); err != nil {
				return nil, mapErr(err)
			}
			return status(), nil
		})

	type domainsOutput struct {
		Body struct {
			Domains []string `json:"domains"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "get-domains", Method: http.MethodGet, Path: "/api/v1/monitor/domains", Summary: "List the domains in capture scope", Tags: []string{"Monitor"}},
		func(ctx context.Context, input *struct{}) (*domainsOutput, error) {
			out := &domainsOutput{}
			out.Body.Domains = svc.Domains()
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "set-domains", Method: http.MethodPut, Path: "/api/v1/monitor/domains", Summary: "Replace the domains in capture scope", Tags: []string{"Monitor"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Domains []string `json:"domains" required:"true" doc:"Host fragments matched as substrings of request URLs"`
			}
		}) (*domainsOutput, error) {
			domains, err := svc.SetDomains(input.Body.Domains)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &domainsOutput{}
			out.Body.Domains = domains
			return out, nil
		})
}

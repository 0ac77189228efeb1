package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/netmonitor/internal/snapshot"
	"github.com/dgnsrekt/netmonitor/internal/types"
)

func registerSnapshotHandlers(api huma.API, svc Service) {
	type snapshotOutput struct {
		Body snapshot.SnapshotMeta
	}

	huma.Register(api, huma.Operation{OperationID: "create-snapshot", Method: http.MethodPost, Path: "/api/v1/snapshots", Summary: "Save the current request log to disk", Tags: []string{"Snapshots"}},
		func(ctx context.Context, input *struct {
			Body struct {
				Notes string `json:"notes,omitempty" doc:"Free-form note stored with the snapshot"`
			}
		}) (*snapshotOutput, error) {
			meta, err := svc.SaveSnapshot(input.Body.Notes)
			if err != nil {
				return nil, mapErr(err)
			}
			return &snapshotOutput{Body: meta}, nil
		})

	type listSnapshotsOutput struct {
		Body struct {
			Snapshots []snapshot.SnapshotMeta `json:"snapshots"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "list-snapshots", Method: http.MethodGet, Path: "/api/v1/snapshots", Summary: "List saved snapshots, newest first", Tags: []string{"Snapshots"}},
		func(ctx context.Context, input *struct{}) (*listSnapshotsOutput, error) {
			metas, err := svc.ListSnapshots()
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listSnapshotsOutput{}
			out.Body.Snapshots = metas
			return out, nil
		})

	type snapshotIDInput struct {
		SnapshotID string `path:"snapshot_id"`
	}

	type snapshotDetailOutput struct {
		Body struct {
			snapshot.SnapshotMeta
			Requests []types.RequestRecord `json:"requests"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "get-snapshot", Method: http.MethodGet, Path: "/api/v1/snapshots/{snapshot_id}", Summary: "Get a snapshot with its records", Tags: []string{"Snapshots"}},
		func(ctx context.Context, input *snapshotIDInput) (*snapshotDetailOutput, error) {
			meta, records, err := svc.GetSnapshot(input.SnapshotID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &snapshotDetailOutput{}
			out.Body.SnapshotMeta = meta
			out.Body.Requests = records
			return out, nil
		})

	type deleteOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}

	huma.Register(api, huma.Operation{OperationID: "delete-snapshot", Method: http.MethodDelete, Path: "/api/v1/snapshots/{snapshot_id}", Summary: "Delete a snapshot", Tags: []string{"Snapshots"}},
		func(ctx context.Context, input *snapshotIDInput) (*deleteOutput, error) {
			if err := svc.DeleteSnapshot(input.SnapshotID); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteOutput{}
			out.Body.Status = "deleted"
			return out, nil
		})
}

// Package snapshot captures one complete set of PBX configuration
// collections, either live from the XAPI or from the on-disk cache, and
// persists the raw response shapes as one JSON document per collection.
package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowpbx/promptaudit/internal/xapi"
)

// Meta describes where and when a snapshot was captured.
type Meta struct {
	ID         string    `json:"id"`
	CapturedAt time.Time `json:"captured_at"`
	Source     string    `json:"source"`
}

// Snapshot bundles every collection the audit consumes. Collections may be
// nil when a cached document is missing; consumers treat nil as empty.
type Snapshot struct {
	Meta          Meta
	Prompts       []xapi.Prompt
	Playlists     []xapi.Playlist
	Receptionists []xapi.Receptionist
	Queues        []xapi.Queue
	Groups        []xapi.Group
	MusicOnHold   xapi.MusicOnHoldSettings
	Conference    *xapi.ConferenceSettings
	CallParking   *xapi.CallParkingSettings
	Emergency     *xapi.EmergencyNotificationsSettings
	CallFlowApps  []xapi.CallFlowApp
}

// Collector is the subset of the XAPI client Collect needs. Narrowing the
// dependency keeps Collect testable with a mock.
type Collector interface {
	CustomPrompts(ctx context.Context) ([]xapi.Prompt, error)
	Playlists(ctx context.Context) ([]xapi.Playlist, error)
	Receptionists(ctx context.Context) ([]xapi.Receptionist, error)
	Queues(ctx context.Context) ([]xapi.Queue, error)
	Groups(ctx context.Context) ([]xapi.Group, error)
	ConferenceSettings(ctx context.Context) (*xapi.ConferenceSettings, error)
	MusicOnHoldSettings(ctx context.Context) (xapi.MusicOnHoldSettings, error)
	CallParkingSettings(ctx context.Context) (*xapi.CallParkingSettings, error)
	EmergencyNotificationsSettings(ctx context.Context) (*xapi.EmergencyNotificationsSettings, error)
	CallFlowApps(ctx context.Context) ([]xapi.CallFlowApp, error)
}

// Collect fetches every collection sequentially. The first transport error
// aborts the whole snapshot: a partial snapshot would produce a misleading
// report.
func Collect(ctx context.Context, client Collector, source string) (*Snapshot, error) {
	snap := &Snapshot{
		Meta: Meta{
			ID:         uuid.NewString(),
			CapturedAt: time.Now().UTC(),
			Source:     source,
		},
	}

	var err error
	if snap.Prompts, err = client.CustomPrompts(ctx); err != nil {
		return nil, err
	}
	if snap.Receptionists, err = client.Receptionists(ctx); err != nil {
		return nil, err
	}
	if snap.Queues, err = client.Queues(ctx); err != nil {
		return nil, err
	}
	if snap.Groups, err = client.Groups(ctx); err != nil {
		return nil, err
	}
	if snap.Playlists, err = client.Playlists(ctx); err != nil {
		return nil, err
	}
	if snap.Conference, err = client.ConferenceSettings(ctx); err != nil {
		return nil, err
	}
	if snap.MusicOnHold, err = client.MusicOnHoldSettings(ctx); err != nil {
		return nil, err
	}
	if snap.CallParking, err = client.CallParkingSettings(ctx); err != nil {
		return nil, err
	}
	if snap.Emergency, err = client.EmergencyNotificationsSettings(ctx); err != nil {
		return nil, err
	}
	if snap.CallFlowApps, err = client.CallFlowApps(ctx); err != nil {
		return nil, err
	}

	slog.Info("snapshot collected",
		"snapshot_id", snap.Meta.ID,
		"source", source,
		"prompts", len(snap.Prompts),
		"receptionists", len(snap.Receptionists),
		"queues", len(snap.Queues),
		"groups", len(snap.Groups),
		"call_flow_apps", len(snap.CallFlowApps),
	)
	return snap, nil
}

// PromptFilenames returns the set of known prompt filenames. Prompts with an
// empty display name are skipped.
func (s *Snapshot) PromptFilenames() map[string]struct{} {
	known := make(map[string]struct{}, len(s.Prompts))
	for _, p := range s.Prompts {
		if p.DisplayName != "" {
			known[p.DisplayName] = struct{}{}
		}
	}
	return known
}

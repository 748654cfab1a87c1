package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowpbx/promptaudit/internal/xapi"
)

// Cache document filenames, one per collection. The prompts document is the
// primary one: its presence is what flips a run into cache mode.
const (
	promptsFile       = "custom_prompts.json"
	playlistsFile     = "playlists.json"
	receptionistsFile = "receptionists.json"
	queuesFile        = "queues.json"
	groupsFile        = "groups.json"
	conferenceFile    = "conference_settings.json"
	musicOnHoldFile   = "music_on_hold_settings.json"
	callParkingFile   = "call_parking_settings.json"
	emergencyFile     = "emergency_notifications_settings.json"
	callFlowAppsFile  = "call_flow_apps.json"
	metaFile          = "meta.json"
)

// envelope mirrors the OData collection wrapper so cached documents keep the
// raw API response shape.
type envelope[T any] struct {
	Value []T `json:"value"`
}

// Store reads and writes snapshot documents under a single cache directory.
type Store struct {
	dir string
}

// NewStore returns a Store for the given directory. The directory is only
// created when Save is called.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Present reports whether a usable cached snapshot exists: the directory and
// its primary document. A run finding a present store skips the network
// entirely.
func (s *Store) Present() bool {
	info, err := os.Stat(s.dir)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(filepath.Join(s.dir, promptsFile))
	return err == nil
}

// Clear removes the cache directory and everything in it.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clearing cache directory: %w", err)
	}
	return nil
}

// Save writes every collection as an indented JSON document.
func (s *Store) Save(snap *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	docs := map[string]any{
		promptsFile:       envelope[xapi.Prompt]{Value: snap.Prompts},
		playlistsFile:     envelope[xapi.Playlist]{Value: snap.Playlists},
		receptionistsFile: envelope[xapi.Receptionist]{Value: snap.Receptionists},
		queuesFile:        envelope[xapi.Queue]{Value: snap.Queues},
		groupsFile:        envelope[xapi.Group]{Value: snap.Groups},
		callFlowAppsFile:  envelope[xapi.CallFlowApp]{Value: snap.CallFlowApps},
		conferenceFile:    snap.Conference,
		musicOnHoldFile:   snap.MusicOnHold,
		callParkingFile:   snap.CallParking,
		emergencyFile:     snap.Emergency,
		metaFile:          snap.Meta,
	}

	for name, doc := range docs {
		if err := s.writeDoc(name, doc); err != nil {
			return err
		}
	}
	return nil
}

// Load reads whatever documents exist in the cache directory. Missing
// documents yield empty collections so the report can run on partial cached
// data; malformed JSON is an error.
func (s *Store) Load() (*Snapshot, error) {
	snap := &Snapshot{}

	var prompts envelope[xapi.Prompt]
	if err := s.readDoc(promptsFile, &prompts); err != nil {
		return nil, err
	}
	snap.Prompts = prompts.Value

	var playlists envelope[xapi.Playlist]
	if err := s.readDoc(playlistsFile, &playlists); err != nil {
		return nil, err
	}
	snap.Playlists = playlists.Value

	var receptionists envelope[xapi.Receptionist]
	if err := s.readDoc(receptionistsFile, &receptionists); err != nil {
		return nil, err
	}
	snap.Receptionists = receptionists.Value

	var queues envelope[xapi.Queue]
	if err := s.readDoc(queuesFile, &queues); err != nil {
		return nil, err
	}
	snap.Queues = queues.Value

	var groups envelope[xapi.Group]
	if err := s.readDoc(groupsFile, &groups); err != nil {
		return nil, err
	}
	snap.Groups = groups.Value

	var apps envelope[xapi.CallFlowApp]
	if err := s.readDoc(callFlowAppsFile, &apps); err != nil {
		return nil, err
	}
	snap.CallFlowApps = apps.Value

	var conference xapi.ConferenceSettings
	found, err := s.readDocOptional(conferenceFile, &conference)
	if err != nil {
		return nil, err
	}
	if found {
		snap.Conference = &conference
	}

	if err := s.readDoc(musicOnHoldFile, &snap.MusicOnHold); err != nil {
		return nil, err
	}

	var parking xapi.CallParkingSettings
	found, err = s.readDocOptional(callParkingFile, &parking)
	if err != nil {
		return nil, err
	}
	if found {
		snap.CallParking = &parking
	}

	var emergency xapi.EmergencyNotificationsSettings
	found, err = s.readDocOptional(emergencyFile, &emergency)
	if err != nil {
		return nil, err
	}
	if found {
		snap.Emergency = &emergency
	}

	if err := s.readDoc(metaFile, &snap.Meta); err != nil {
		return nil, err
	}

	return snap, nil
}

// writeDoc marshals doc with indentation and writes it under name.
func (s *Store) writeDoc(name string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// readDoc unmarshals the named document into out; a missing document leaves
// out untouched.
func (s *Store) readDoc(name string, out any) error {
	_, err := s.readDocOptional(name, out)
	return err
}

// readDocOptional is readDoc plus a flag saying whether the document existed.
func (s *Store) readDocOptional(name string, out any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decoding %s: %w", name, err)
	}
	return true, nil
}

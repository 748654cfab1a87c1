// Package usage cross-references known prompt filenames against the PBX
// configuration entities that can play them.
package usage

import (
	"fmt"
	"sort"

	"github.com/flowpbx/promptaudit/internal/xapi"
)

// Sources holds the entity collections scanned for prompt references.
// Every field may be nil or empty; an absent collection simply contributes
// no usages.
type Sources struct {
	Receptionists []xapi.Receptionist
	Queues        []xapi.Queue
	Groups        []xapi.Group
	MusicOnHold   xapi.MusicOnHoldSettings
	Conference    *xapi.ConferenceSettings
	CallParking   *xapi.CallParkingSettings
}

// Map associates a prompt filename with the places it is referenced, in scan
// order. Filenames with no references are never present.
type Map map[string][]string

// queueFileFields and the route name lists fix the field scan order within
// each entity.
var (
	queueFileFields = []string{"IntroFile", "OnHoldFile", "GreetingFile"}
	queueRouteNames = []string{"OutOfOfficeRoute", "BreakRoute", "HolidaysRoute"}
	groupRouteNames = []string{"OfficeRoute", "OutOfOfficeRoute", "BreakRoute", "HolidaysRoute"}
)

// Resolve scans the source collections and returns, for every known prompt
// filename that is referenced at least once, the list of human-readable
// usage descriptions. Collections are scanned in a fixed order
// (receptionists, queues, groups, music-on-hold, conference, call parking)
// so repeated runs over the same snapshot produce identical output.
//
// References to filenames outside known are ignored: the report covers
// prompts that actually exist, dangling references are out of scope.
func Resolve(known map[string]struct{}, src Sources) Map {
	b := newBuilder(known)

	for _, r := range src.Receptionists {
		b.add(r.PromptFilename, fmt.Sprintf("Receptionist: %s %s", r.Number, r.Name))
		for _, fwd := range r.Forwards {
			b.add(fwd.CustomData, fmt.Sprintf("Receptionist (forward key): %s %s", r.Number, r.Name))
		}
	}

	for _, q := range src.Queues {
		files := [...]string{q.IntroFile, q.OnHoldFile, q.GreetingFile}
		for i, field := range queueFileFields {
			b.add(files[i], fmt.Sprintf("Queue %s: %s %s", field, q.Number, q.Name))
		}
		routes := [...]*xapi.Route{q.OutOfOfficeRoute, q.BreakRoute, q.HolidaysRoute}
		for i, name := range queueRouteNames {
			b.add(routes[i].PromptOrEmpty(), fmt.Sprintf("Queue route %s: %s %s", name, q.Number, q.Name))
		}
	}

	for _, g := range src.Groups {
		routes := [...]*xapi.Route{g.OfficeRoute, g.OutOfOfficeRoute, g.BreakRoute, g.HolidaysRoute}
		for i, name := range groupRouteNames {
			b.add(routes[i].PromptOrEmpty(), fmt.Sprintf("Group route %s: %s %s", name, g.Number, g.Name))
		}
	}

	// Map iteration order is random; sort the slot keys so the report is
	// stable across runs.
	mohKeys := make([]string, 0, len(src.MusicOnHold))
	for key := range src.MusicOnHold {
		mohKeys = append(mohKeys, key)
	}
	sort.Strings(mohKeys)
	for _, key := range mohKeys {
		b.add(src.MusicOnHold[key], fmt.Sprintf("MusicOnHold setting (%s)", key))
	}

	if src.Conference != nil {
		b.add(src.Conference.MusicOnHold, "Conference: MusicOnHold")
	}
	if src.CallParking != nil {
		b.add(src.CallParking.MusicOnHold, "CallParking: MusicOnHold")
	}

	return b.result()
}

// builder accumulates usages for one Resolve call. Scoping the accumulation
// to a single value keeps Resolve itself free of shared state.
type builder struct {
	known  map[string]struct{}
	usages Map
}

func newBuilder(known map[string]struct{}) *builder {
	return &builder{known: known, usages: make(Map)}
}

// add records one usage of filename unless it is empty or unknown.
func (b *builder) add(filename, description string) {
	if filename == "" {
		return
	}
	if _, ok := b.known[filename]; !ok {
		return
	}
	b.usages[filename] = append(b.usages[filename], description)
}

func (b *builder) result() Map {
	return b.usages
}

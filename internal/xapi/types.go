package xapi

import "encoding/json"

// Prompt is a custom audio prompt as listed by the CustomPrompts endpoint.
// DisplayName is the filename the rest of the configuration refers to.
type Prompt struct {
	DisplayName string `json:"DisplayName"`
}

// Forward is a call-forwarding rule on a receptionist. CustomData may carry
// a prompt filename depending on the forward type.
type Forward struct {
	Input      string `json:"Input"`
	CustomData string `json:"CustomData"`
}

// Receptionist is a digital receptionist (IVR) entry.
type Receptionist struct {
	Number         string    `json:"Number"`
	Name           string    `json:"Name"`
	PromptFilename string    `json:"PromptFilename"`
	Forwards       []Forward `json:"Forwards"`
}

// Route is a destination for a queue or group condition (office hours,
// out of office, break, holidays). Prompt is optional.
type Route struct {
	Prompt string `json:"Prompt"`
}

// PromptOrEmpty returns the route's prompt filename, tolerating a nil route.
func (r *Route) PromptOrEmpty() string {
	if r == nil {
		return ""
	}
	return r.Prompt
}

// Queue is a call queue with its direct audio fields and condition routes.
// Routes are pointers: the API omits them when not configured.
type Queue struct {
	Number           string `json:"Number"`
	Name             string `json:"Name"`
	IntroFile        string `json:"IntroFile"`
	OnHoldFile       string `json:"OnHoldFile"`
	GreetingFile     string `json:"GreetingFile"`
	OutOfOfficeRoute *Route `json:"OutOfOfficeRoute"`
	BreakRoute       *Route `json:"BreakRoute"`
	HolidaysRoute    *Route `json:"HolidaysRoute"`
}

// Group is an extension group; only its condition routes can reference prompts.
type Group struct {
	Number           string `json:"Number"`
	Name             string `json:"Name"`
	OfficeRoute      *Route `json:"OfficeRoute"`
	OutOfOfficeRoute *Route `json:"OutOfOfficeRoute"`
	BreakRoute       *Route `json:"BreakRoute"`
	HolidaysRoute    *Route `json:"HolidaysRoute"`
}

// Playlist is a music-on-hold playlist and its member files.
type Playlist struct {
	Name  string   `json:"Name"`
	Files []string `json:"Files"`
}

// CallFlowApp is a call flow designer application. Files is not part of the
// list response; it is filled in by a per-app Pbx.GetFiles() call.
type CallFlowApp struct {
	ID     *int64   `json:"Id"`
	Number string   `json:"Number"`
	Name   string   `json:"Name"`
	Files  []string `json:"Files"`
}

// ConferenceSettings carries the conference bridge music-on-hold selection.
type ConferenceSettings struct {
	Extension   string `json:"Extension"`
	MusicOnHold string `json:"MusicOnHold"`
}

// CallParkingSettings carries the call parking music-on-hold selection.
type CallParkingSettings struct {
	MusicOnHold string `json:"MusicOnHold"`
}

// EmergencyNotificationsSettings carries the emergency notification prompt
// selection. Fetched and cached with the snapshot; not cross-referenced.
type EmergencyNotificationsSettings struct {
	EmergencyPlayPrompt string `json:"EmergencyPlayPrompt"`
}

// MusicOnHoldSettings maps the system MusicOnHoldN slots to filenames.
// Null slots and OData annotations are dropped during unmarshalling, so the
// map only ever holds real filename values.
type MusicOnHoldSettings map[string]string

func (m *MusicOnHoldSettings) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(MusicOnHoldSettings, len(raw))
	for key, val := range raw {
		if len(key) > 0 && key[0] == '@' {
			continue
		}
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			// Null or non-string slot: treat as unset.
			continue
		}
		if s != "" {
			out[key] = s
		}
	}
	*m = out
	return nil
}

// list is the OData collection envelope every XAPI list endpoint returns.
type list[T any] struct {
	Value []T `json:"value"`
}

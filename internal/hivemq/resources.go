package hivemq

import (
	"sort"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Resource describes one collection of the HiveMQ REST API.
type Resource struct {
	Name  string // command-line name, e.g. "data-policies"
	Title string // tab title
	Path  string // collection path below the endpoint
	// IDField is the document field holding the item key.
	IDField string
	// FilterPath is the document path the browser filter is applied to.
	FilterPath string
	// Envelope wraps single-item responses, e.g. {"backup": {...}}. Empty
	// when the item is returned bare.
	Envelope string
	// UpdateMethod is the HTTP method used for updates (PUT unless set).
	UpdateMethod string
	// Template seeds the editor for a new item.
	Template string

	Get, Create, Update, Delete bool
}

// GroupResource names the resource in API status errors.
func (r Resource) GroupResource() schema.GroupResource {
	return schema.GroupResource{Resource: r.Name}
}

var catalogue = []Resource{
	{
		Name:       "clients",
		Title:      "Clients",
		Path:       "/api/v1/mqtt/clients",
		IDField:    "id",
		FilterPath: "$.id",
		Envelope:   "client",
		Get:        true,
	},
	{
		Name:       "data-policies",
		Title:      "Data Policies",
		Path:       "/api/v1/data-hub/data-validation/policies",
		IDField:    "id",
		FilterPath: "$.matching.topicFilter",
		Template: `{
  "id": "",
  "matching": {
    "topicFilter": ""
  },
  "validation": {
    "validators": []
  },
  "onSuccess": {
    "pipeline": []
  },
  "onFailure": {
    "pipeline": []
  }
}`,
		Get:    true,
		Create: true,
		Update: true,
		Delete: true,
	},
	{
		Name:       "behavior-policies",
		Title:      "Behavior Policies",
		Path:       "/api/v1/data-hub/behavior-validation/policies",
		IDField:    "id",
		FilterPath: "$.matching.clientIdRegex",
		Template: `{
  "id": "",
  "matching": {
    "clientIdRegex": ".*"
  },
  "behavior": {
    "id": "Mqtt.events"
  },
  "onTransitions": []
}`,
		Get:    true,
		Create: true,
		Update: true,
		Delete: true,
	},
	{
		Name:       "schemas",
		Title:      "Schemas",
		Path:       "/api/v1/data-hub/schemas",
		IDField:    "id",
		FilterPath: "$.id",
		Template: `{
  "id": "",
  "type": "JSON",
  "schemaDefinition": ""
}`,
		Get:    true,
		Create: true,
		Delete: true,
	},
	{
		Name:       "scripts",
		Title:      "Scripts",
		Path:       "/api/v1/data-hub/scripts",
		IDField:    "id",
		FilterPath: "$.id",
		Template: `{
  "id": "",
  "functionType": "TRANSFORMATION",
  "description": "",
  "source": ""
}`,
		Get:    true,
		Create: true,
		Delete: true,
	},
	{
		Name:       "backups",
		Title:      "Backups",
		Path:       "/api/v1/management/backups",
		IDField:    "id",
		FilterPath: "$.state",
		Envelope:   "backup",
		Template:   `{}`,
		Get:        true,
		Create:     true,
	},
	{
		Name:         "trace-recordings",
		Title:        "Trace Recordings",
		Path:         "/api/v1/management/trace-recordings",
		IDField:      "name",
		FilterPath:   "$.name",
		Envelope:     "traceRecording",
		UpdateMethod: "PATCH",
		Template: `{
  "name": "",
  "startAt": "",
  "endAt": "",
  "events": [],
  "clientIdFilters": [],
  "topicFilters": []
}`,
		Create: true,
		Update: true,
		Delete: true,
	},
}

// Resources returns the catalogue in display order.
func Resources() []Resource {
	out := make([]Resource, len(catalogue))
	copy(out, catalogue)
	return out
}

// Lookup finds a resource by name.
func Lookup(name string) (Resource, bool) {
	for _, r := range catalogue {
		if r.Name == name {
			return r, true
		}
	}
	return Resource{}, false
}

// Names returns the sorted resource names.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for _, r := range catalogue {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

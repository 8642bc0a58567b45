// internal/models/host.go

package models

import (
	"encoding/json"
	"fmt"
)

// HostRecord describes one SSH connection preset. On disk it is stored as
// the tuple [alias, username, address, port] to stay compatible with
// existing host.json files.
type HostRecord struct {
	Alias    string
	Username string
	Address  string
	Port     int
}

const DefaultPort = 22

func (h HostRecord) Equal(other HostRecord) bool {
	return h == other
}

func (h HostRecord) IsZero() bool {
	return h == HostRecord{}
}

// Addr returns the dial address in host:port form.
func (h HostRecord) Addr() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

func (h HostRecord) String() string {
	return fmt.Sprintf("%s (%s@%s:%d)", h.Alias, h.Username, h.Address, h.Port)
}

func (h HostRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{h.Alias, h.Username, h.Address, h.Port})
}

func (h *HostRecord) UnmarshalJSON(data []byte) error {
	var tuple []interface{}
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 4 {
		return fmt.Errorf("host record must have 4 fields, got %d", len(tuple))
	}
	fields := make([]string, 3)
	for i := 0; i < 3; i++ {
		s, ok := tuple[i].(string)
		if !ok {
			return fmt.Errorf("host record field %d must be a string", i)
		}
		fields[i] = s
	}
	port, ok := tuple[3].(float64)
	if !ok {
		return fmt.Errorf("host record port must be a number")
	}
	h.Alias, h.Username, h.Address = fields[0], fields[1], fields[2]
	h.Port = int(port)
	return nil
}

// Registry is the durable host roster: at most one active record and the
// ordered list of available records. The zero value is a valid empty
// registry.
type Registry struct {
	Active    HostRecord
	Available []HostRecord
}

type registryDoc struct {
	Active    json.RawMessage `json:"active"`
	Available json.RawMessage `json:"available"`
}

func (r Registry) MarshalJSON() ([]byte, error) {
	doc := struct {
		Active    interface{} `json:"active"`
		Available interface{} `json:"available"`
	}{
		Active:    []interface{}{},
		Available: []HostRecord{},
	}
	if !r.Active.IsZero() {
		doc.Active = r.Active
	}
	if r.Available != nil {
		doc.Available = r.Available
	}
	return json.Marshal(doc)
}

func (r *Registry) UnmarshalJSON(data []byte) error {
	var doc registryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Active == nil || doc.Available == nil {
		return fmt.Errorf("registry must contain 'active' and 'available' keys")
	}

	// "active" is either the empty list or a single record tuple.
	var probe []json.RawMessage
	if err := json.Unmarshal(doc.Active, &probe); err != nil {
		return fmt.Errorf("invalid 'active' entry: %v", err)
	}
	r.Active = HostRecord{}
	if len(probe) > 0 {
		if err := json.Unmarshal(doc.Active, &r.Active); err != nil {
			return fmt.Errorf("invalid 'active' entry: %v", err)
		}
	}

	if err := json.Unmarshal(doc.Available, &r.Available); err != nil {
		return fmt.Errorf("invalid 'available' entry: %v", err)
	}
	return nil
}

// Dedup removes duplicate records from Available, keeping first
// occurrences in order. It reports whether anything was removed.
func (r *Registry) Dedup() bool {
	seen := make(map[HostRecord]struct{}, len(r.Available))
	unique := r.Available[:0]
	changed := false
	for _, h := range r.Available {
		if _, dup := seen[h]; dup {
			changed = true
			continue
		}
		seen[h] = struct{}{}
		unique = append(unique, h)
	}
	r.Available = unique
	return changed
}

// Find resolves a record by alias, or by (username, address, port) when
// alias is empty. It returns the index into Available, or -1.
func (r *Registry) Find(alias, username, address string, port int) int {
	for i, h := range r.Available {
		if alias != "" {
			if h.Alias == alias {
				return i
			}
			continue
		}
		if h.Username == username && h.Address == address && h.Port == port {
			return i
		}
	}
	return -1
}

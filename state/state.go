// Package state persists deployment progress so an interrupted deployment can be resumed.
//
// The state is a mapping from a stable logical key (a contract name, a beneficiary address, a
// timelock call label) to a Record. Records only ever gain information: Merge never replaces a
// known field with an empty one.
package state

import (
	"encoding/json"
	"errors"
	"maps"
	"slices"
)

// ErrCorruptState is returned when persisted state exists but cannot be parsed.
var ErrCorruptState = errors.New("deployment state is corrupt")

// Record is what is known about one logical key.
type Record struct {
	Address  string            `json:"address,omitempty" yaml:"address,omitempty"`
	TxHash   string            `json:"txHash,omitempty" yaml:"txHash,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IsZero reports whether the record carries no information.
func (r Record) IsZero() bool {
	return r.Address == "" && r.TxHash == "" && len(r.Metadata) == 0
}

// Meta returns the metadata value for key and whether it is set.
func (r Record) Meta(key string) (string, bool) {
	v, ok := r.Metadata[key]
	return v, ok
}

// UnmarshalJSON accepts the canonical layout and also flat legacy records such as
// {"amount": 1000, "txHash": "0x.."} by moving unknown scalar fields into Metadata.
func (r *Record) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}

	var out Record
	for k, raw := range fields {
		switch k {
		case "address":
			if err := json.Unmarshal(raw, &out.Address); err != nil {
				return err
			}
		case "txHash":
			if err := json.Unmarshal(raw, &out.TxHash); err != nil {
				return err
			}
		case "metadata":
			if err := json.Unmarshal(raw, &out.Metadata); err != nil {
				return err
			}
		default:
			v, err := scalarString(raw)
			if err != nil {
				return err
			}
			if out.Metadata == nil {
				out.Metadata = map[string]string{}
			}
			if _, exists := out.Metadata[k]; !exists {
				out.Metadata[k] = v
			}
		}
	}
	*r = out

	return nil
}

func scalarString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "true", nil
		}

		return "false", nil
	}

	return "", errors.New("record fields must be strings, numbers or booleans")
}

// DeploymentState maps logical keys to records.
type DeploymentState map[string]Record

// New returns an empty state.
func New() DeploymentState {
	return DeploymentState{}
}

// Get returns the record for key.
func (s DeploymentState) Get(key string) (Record, bool) {
	r, ok := s[key]
	return r, ok
}

// Merge folds rec into the record stored under key and reports whether anything changed.
// Non-empty fields of rec overwrite, empty fields never erase, and metadata is merged key by key.
func (s DeploymentState) Merge(key string, rec Record) bool {
	cur, exists := s[key]
	next := cur

	if rec.Address != "" {
		next.Address = rec.Address
	}
	if rec.TxHash != "" {
		next.TxHash = rec.TxHash
	}
	next.Metadata = mergeMeta(cur.Metadata, rec.Metadata)

	if !exists && next.IsZero() {
		return false
	}

	changed := !exists || next.Address != cur.Address || next.TxHash != cur.TxHash ||
		!maps.Equal(next.Metadata, cur.Metadata)
	if !changed {
		return false
	}
	s[key] = next

	return true
}

func mergeMeta(cur, add map[string]string) map[string]string {
	if len(add) == 0 {
		return cur
	}

	out := maps.Clone(cur)
	if out == nil {
		out = make(map[string]string, len(add))
	}
	for k, v := range add {
		if v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return cur
	}

	return out
}

// Keys returns the keys of the state in sorted order.
func (s DeploymentState) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a deep copy of the state.
func (s DeploymentState) Clone() DeploymentState {
	out := make(DeploymentState, len(s))
	for k, r := range s {
		r.Metadata = maps.Clone(r.Metadata)
		out[k] = r
	}

	return out
}

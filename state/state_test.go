package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeploymentState_Merge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		initial     DeploymentState
		rec         Record
		wantChanged bool
		want        Record
		wantExists  bool
	}{
		{
			name:        "new key",
			initial:     New(),
			rec:         Record{Address: "0x01"},
			wantChanged: true,
			want:        Record{Address: "0x01"},
			wantExists:  true,
		},
		{
			name:        "empty record for new key is ignored",
			initial:     New(),
			rec:         Record{},
			wantChanged: false,
			wantExists:  false,
		},
		{
			name:        "empty fields never erase",
			initial:     DeploymentState{"adminContract": {Address: "0x01", TxHash: "0xaa"}},
			rec:         Record{TxHash: ""},
			wantChanged: false,
			want:        Record{Address: "0x01", TxHash: "0xaa"},
			wantExists:  true,
		},
		{
			name:        "non-empty fields overwrite",
			initial:     DeploymentState{"adminContract": {Address: "0x01", TxHash: "0xaa"}},
			rec:         Record{TxHash: "0xbb"},
			wantChanged: true,
			want:        Record{Address: "0x01", TxHash: "0xbb"},
			wantExists:  true,
		},
		{
			name: "metadata merged key by key",
			initial: DeploymentState{"timelock/short/wETH": {
				Metadata: map[string]string{"id": "0x11", "executed": "false"},
			}},
			rec:         Record{Metadata: map[string]string{"executed": "true", "eta": ""}},
			wantChanged: true,
			want:        Record{Metadata: map[string]string{"id": "0x11", "executed": "true"}},
			wantExists:  true,
		},
		{
			name:        "identical record is not a change",
			initial:     DeploymentState{"k": {Address: "0x01", Metadata: map[string]string{"a": "1"}}},
			rec:         Record{Address: "0x01", Metadata: map[string]string{"a": "1"}},
			wantChanged: false,
			want:        Record{Address: "0x01", Metadata: map[string]string{"a": "1"}},
			wantExists:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := tt.initial.Clone()
			key := "k"
			for k := range tt.initial {
				key = k
			}

			changed := s.Merge(key, tt.rec)
			assert.Equal(t, tt.wantChanged, changed)

			got, ok := s.Get(key)
			require.Equal(t, tt.wantExists, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDeploymentState_Merge_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	s := DeploymentState{"k": {Metadata: map[string]string{"a": "1"}}}
	before := s["k"].Metadata

	s.Merge("k", Record{Metadata: map[string]string{"b": "2"}})

	assert.Equal(t, map[string]string{"a": "1"}, before)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, s["k"].Metadata)
}

func TestDeploymentState_KeysAndClone(t *testing.T) {
	t.Parallel()

	s := DeploymentState{
		"priceFeed":     {Address: "0x03"},
		"adminContract": {Address: "0x01", Metadata: map[string]string{"a": "1"}},
		"debtToken":     {Address: "0x02"},
	}

	assert.Equal(t, []string{"adminContract", "debtToken", "priceFeed"}, s.Keys())

	c := s.Clone()
	c["adminContract"].Metadata["a"] = "changed"
	c["new"] = Record{Address: "0x04"}

	assert.Equal(t, "1", s["adminContract"].Metadata["a"])
	assert.NotContains(t, s, "new")
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		want    Record
		wantErr string
	}{
		{
			name: "canonical layout",
			give: `{"address":"0x01","txHash":"0xaa","metadata":{"amount":"100"}}`,
			want: Record{Address: "0x01", TxHash: "0xaa", Metadata: map[string]string{"amount": "100"}},
		},
		{
			name: "legacy beneficiary record",
			give: `{"amount":1000000,"txHash":"0xaa"}`,
			want: Record{TxHash: "0xaa", Metadata: map[string]string{"amount": "1000000"}},
		},
		{
			name: "legacy scalar kinds",
			give: `{"verified":true,"label":"core"}`,
			want: Record{Metadata: map[string]string{"verified": "true", "label": "core"}},
		},
		{
			name: "explicit metadata wins over flat field",
			give: `{"amount":1,"metadata":{"amount":"2"}}`,
			want: Record{Metadata: map[string]string{"amount": "2"}},
		},
		{
			name:    "nested legacy values are rejected",
			give:    `{"nested":{"a":1}}`,
			wantErr: "record fields must be strings, numbers or booleans",
		},
		{
			name:    "not an object",
			give:    `[1,2]`,
			wantErr: "cannot unmarshal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got Record
			err := json.Unmarshal([]byte(tt.give), &got)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecord_Meta(t *testing.T) {
	t.Parallel()

	r := Record{Metadata: map[string]string{"eta": "1700000000"}}

	v, ok := r.Meta("eta")
	assert.True(t, ok)
	assert.Equal(t, "1700000000", v)

	_, ok = r.Meta("executed")
	assert.False(t, ok)
	assert.False(t, r.IsZero())
	assert.True(t, Record{}.IsZero())
}

package ledger_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hull/internal/ledger"
)

func TestTime_UnmarshalAcceptsStoredLayouts(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339nano", `"2024-03-01T12:00:00.25Z"`, at.Add(250 * time.Millisecond)},
		{"offset", `"2024-03-01T14:00:00+02:00"`, at},
		{"datetime now", `"2024-03-01 12:00:00"`, at},
		{"null", `null`, time.Time{}},
		{"empty", `""`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ledger.Time
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.True(t, tt.want.Equal(got.Time), "got %v", got.Time)
		})
	}
}

func TestTime_UnmarshalRejectsGarbage(t *testing.T) {
	var got ledger.Time
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &got))
	assert.Error(t, json.Unmarshal([]byte(`42`), &got))
}

func TestTime_MarshalsUTC(t *testing.T) {
	local := time.FixedZone("X", 2*60*60)
	data, err := json.Marshal(ledger.TimeOf(at.In(local)))
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T12:00:00Z"`, string(data))
}

func TestDecode_LegacyPayloadTimestamps(t *testing.T) {
	type row struct {
		ID        int64       `json:"id"`
		CreatedAt ledger.Time `json:"created_at"`
	}
	ev := ledger.Event{ID: 1, Tag: "WIP_GROUP_CREATED", Payload: []byte(`{"id":1,"created_at":"2024-03-01 12:00:00"}`)}
	got, err := ledger.Decode[row](ev)
	require.NoError(t, err)
	assert.True(t, at.Equal(got.CreatedAt.Time))
}

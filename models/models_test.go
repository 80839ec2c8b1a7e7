package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventType_Sets(t *testing.T) {
	for _, typ := range ClientEventTypes {
		assert.True(t, typ.IsClientType(), typ)
		assert.True(t, typ.IsKnown(), typ)
	}
	assert.False(t, EventAPIRequest.IsClientType())
	assert.True(t, EventAPIRequest.IsKnown())
	assert.False(t, EventType("signup").IsKnown())
}

func TestMetadata_UnmarshalRejectsNonObjects(t *testing.T) {
	var req TrackRequest
	err := json.Unmarshal([]byte(`{"type":"page_view","metadata":[1,2]}`), &req)
	assert.Error(t, err)

	err = json.Unmarshal([]byte(`{"type":"page_view","metadata":null}`), &req)
	require.NoError(t, err)
	assert.Nil(t, req.Metadata)

	err = json.Unmarshal([]byte(`{"metadata":{"projectId":7,"tags":["a"],"nested":{"x":true}}}`), &req)
	require.NoError(t, err)
	assert.JSONEq(t, `7`, string(req.Metadata["projectId"]))
	assert.JSONEq(t, `{"x":true}`, string(req.Metadata["nested"]))
}

func TestMetadata_Validate(t *testing.T) {
	ok := Metadata{"a": json.RawMessage(`"b"`)}
	assert.NoError(t, ok.Validate())

	tooMany := Metadata{}
	for i := 0; i <= MaxMetadataKeys; i++ {
		tooMany[strings.Repeat("k", i+1)] = json.RawMessage(`1`)
	}
	assert.Error(t, tooMany.Validate())

	big := Metadata{"blob": json.RawMessage(`"` + strings.Repeat("x", MaxMetadataBytes) + `"`)}
	assert.ErrorIs(t, big.Validate(), ErrMetadataTooLarge)

	bad := Metadata{"x": json.RawMessage(`{nope`)}
	assert.Error(t, bad.Validate())
}

func TestMetadata_EncodeDecode(t *testing.T) {
	md, err := NewMetadata(map[string]any{"projectId": "p1", "count": 3})
	require.NoError(t, err)

	back := DecodeMetadata(md.Encode())
	name, ok := back.String("projectId")
	assert.True(t, ok)
	assert.Equal(t, "p1", name)
	_, ok = back.String("count")
	assert.False(t, ok)

	assert.Equal(t, "{}", Metadata(nil).Encode())
	assert.Empty(t, DecodeMetadata("not json"))
}

func TestPublicEvent_OmitsClientIdentifiers(t *testing.T) {
	e := AnalyticsEvent{ID: "1", Type: EventPageView, UserAgent: "ua", IPAddress: "1.2.3.4"}
	b, err := json.Marshal(e.Public())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.NotContains(t, out, "userAgent")
	assert.NotContains(t, out, "ipAddress")
	assert.Equal(t, map[string]any{}, out["metadata"])
}

func TestRawValue_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(ProjectClicks{ProjectID: "", Clicks: 1})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"projectId":null`)

	b, err = json.Marshal(ProjectClicks{ProjectID: `"p-1"`})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"projectId":"p-1"`)
}

func TestRequestContext_Normalized(t *testing.T) {
	rc := RequestContext{}.Normalized()
	assert.Equal(t, Unknown, rc.IPAddress)
	assert.Equal(t, Unknown, rc.UserAgent)
	assert.Equal(t, "", rc.Referrer)
}

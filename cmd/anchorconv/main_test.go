package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const points = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "tower", "geometry": {"type": "Point", "coordinates": [-74.0135, 40.70497091]},
     "properties": {"kind": "landmark", "alt": 15}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [103.850216, 1.278676]},
     "properties": {"name": "bay", "model": "bay.glb", "mode": "anchor", "animate": true}},
    {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]}, "properties": {}}
  ]
}`

func TestFromGeoJSON(t *testing.T) {
	out, n, err := fromGeoJSON([]byte(points), "default.glb", "yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var list anchorList
	require.NoError(t, yaml.Unmarshal(out, &list))
	require.Len(t, list.Anchors, 2)
	assert.Equal(t, "tower", list.Anchors[0].Name)
	assert.Equal(t, "default.glb", list.Anchors[0].Model)
	assert.Equal(t, 15.0, list.Anchors[0].Alt)
	assert.Equal(t, "bay.glb", list.Anchors[1].Model)
	assert.True(t, list.Anchors[1].Animate)

	out, _, err = fromGeoJSON([]byte(points), "", "json")
	require.NoError(t, err)
	assert.True(t, json.Valid(out))
}

func TestToGeoJSONRoundTrip(t *testing.T) {
	yml, _, err := fromGeoJSON([]byte(points), "default.glb", "yaml")
	require.NoError(t, err)

	gj, n, err := toGeoJSON(yml)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	back, _, err := fromGeoJSON(gj, "", "yaml")
	require.NoError(t, err)
	assert.Equal(t, string(yml), string(back))
}

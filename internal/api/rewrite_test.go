package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	internalHost = "http://minio:9000"
	publicHost   = "http://localhost:9000"
)

func TestRewriteJSONTopLevelFields(t *testing.T) {
	r := NewURLRewriter(internalHost, publicHost)

	out, err := r.RewriteJSON([]byte(`{
		"url": "http://minio:9000/bucket/a?sig=x",
		"uploadUrl": "http://minio:9000/bucket/b",
		"downloadUrl": "http://minio:9000/bucket/c",
		"name": "http://minio:9000/not-a-url-field"
	}`))
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "http://localhost:9000/bucket/a?sig=x", got["url"])
	assert.Equal(t, "http://localhost:9000/bucket/b", got["uploadUrl"])
	assert.Equal(t, "http://localhost:9000/bucket/c", got["downloadUrl"])
	assert.Equal(t, "http://minio:9000/not-a-url-field", got["name"])
}

func TestRewriteJSONRecursesThroughArraysAndObjects(t *testing.T) {
	r := NewURLRewriter(internalHost, publicHost)

	out, err := r.RewriteJSON([]byte(`{
		"files": [
			{"id": "1", "url": "http://minio:9000/f/1"},
			{"id": "2", "nested": {"downloadUrl": "http://minio:9000/f/2"}}
		]
	}`))
	require.NoError(t, err)

	var got struct {
		Files []struct {
			URL    string `json:"url"`
			Nested struct {
				DownloadURL string `json:"downloadUrl"`
			} `json:"nested"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "http://localhost:9000/f/1", got.Files[0].URL)
	assert.Equal(t, "http://localhost:9000/f/2", got.Files[1].Nested.DownloadURL)
}

func TestRewriteJSONIsIdempotent(t *testing.T) {
	r := NewURLRewriter(internalHost, publicHost)

	once, err := r.RewriteJSON([]byte(`{"url": "http://minio:9000/f/1"}`))
	require.NoError(t, err)

	twice, err := r.RewriteJSON(once)
	require.NoError(t, err)

	assert.JSONEq(t, string(once), string(twice))
}

func TestRewriteJSONLeavesNonJSONUntouched(t *testing.T) {
	r := NewURLRewriter(internalHost, publicHost)

	raw := []byte("not json at all")
	out, err := r.RewriteJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestRewriteJSONDisabledWithEmptyHosts(t *testing.T) {
	r := NewURLRewriter("", "")

	raw := []byte(`{"url": "http://minio:9000/f/1"}`)
	out, err := r.RewriteJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestRewriteURLNonMatchingHostUntouched(t *testing.T) {
	r := NewURLRewriter(internalHost, publicHost)

	out, err := r.RewriteJSON([]byte(`{"url": "https://cdn.example.com/f/1"}`))
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "https://cdn.example.com/f/1", got["url"])
}

func TestRewriteNonStringURLFieldUntouched(t *testing.T) {
	r := NewURLRewriter(internalHost, publicHost)

	out, err := r.RewriteJSON([]byte(`{"url": 42}`))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, float64(42), got["url"])
}

package api

import (
	"encoding/json"
	"strings"
)

// urlFields are the response keys whose string values may point at object
// storage and are subject to host rewriting.
var urlFields = map[string]bool{
	"url":         true,
	"uploadUrl":   true,
	"downloadUrl": true,
}

// URLRewriter replaces the backend's internal object-storage host with the
// externally reachable one in pre-signed URLs. The backend mints URLs
// against the host it sees inside its own network (e.g. http://minio:9000),
// which a client outside that network cannot resolve.
type URLRewriter struct {
	internalHost string
	publicHost   string
}

// NewURLRewriter creates a rewriter mapping internalHost to publicHost.
// Empty hosts disable rewriting.
func NewURLRewriter(internalHost, publicHost string) *URLRewriter {
	return &URLRewriter{
		internalHost: internalHost,
		publicHost:   publicHost,
	}
}

// RewriteJSON decodes raw JSON, applies the rewrite pass recursively, and
// re-encodes the result. Rewriting is idempotent: once the internal host
// is gone, another pass finds nothing to replace.
func (r *URLRewriter) RewriteJSON(raw []byte) ([]byte, error) {
	if r.internalHost == "" || r.publicHost == "" {
		return raw, nil
	}

	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		// Not a JSON document the client can walk; leave it untouched.
		return raw, nil
	}

	rewritten := r.rewriteValue(tree)

	out, err := json.Marshal(rewritten)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Rewrite applies the rewrite pass to an already-decoded JSON tree.
func (r *URLRewriter) Rewrite(tree any) any {
	if r.internalHost == "" || r.publicHost == "" {
		return tree
	}
	return r.rewriteValue(tree)
}

// rewriteValue walks arrays and objects; only string values under the URL
// keys are candidates, everything else passes through unchanged.
func (r *URLRewriter) rewriteValue(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for key, val := range node {
			if s, ok := val.(string); ok && urlFields[key] {
				node[key] = r.rewriteURL(s)
				continue
			}
			node[key] = r.rewriteValue(val)
		}
		return node
	case []any:
		for i, item := range node {
			node[i] = r.rewriteValue(item)
		}
		return node
	default:
		return v
	}
}

// rewriteURL swaps the internal host for the public one when present.
func (r *URLRewriter) rewriteURL(u string) string {
	if !strings.Contains(u, r.internalHost) {
		return u
	}
	return strings.Replace(u, r.internalHost, r.publicHost, 1)
}

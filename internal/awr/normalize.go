package awr

import (
	"sort"
	"strconv"
	"strings"
)

// ListShape classifies how a parsed list-projects body matched the expected
// response layout.
type ListShape int

const (
	// ShapeCanonical means the body carried the documented "projects" key.
	ShapeCanonical ListShape = iota
	// ShapeAliased means the list was found under a non-canonical key whose
	// name starts with "project" (case-insensitive). Older API revisions
	// used keys like "Projects" and "projectList".
	ShapeAliased
	// ShapeUnrecognized means no project sequence was found anywhere.
	ShapeUnrecognized
)

func (s ListShape) String() string {
	switch s {
	case ShapeCanonical:
		return "canonical"
	case ShapeAliased:
		return "aliased"
	default:
		return "unrecognized"
	}
}

// normalizeProjectList extracts the project sequence from a parsed response
// body. The canonical "projects" key wins; failing that, top-level keys are
// scanned case-insensitively for one starting with "project", in sorted key
// order so repeated calls on the same body yield the same result.
func normalizeProjectList(body map[string]any) ([]Project, ListShape) {
	if seq, ok := asProjects(body["projects"]); ok {
		return seq, ShapeCanonical
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !strings.HasPrefix(strings.ToLower(k), "project") {
			continue
		}
		if seq, ok := asProjects(body[k]); ok {
			return seq, ShapeAliased
		}
	}
	return nil, ShapeUnrecognized
}

// asProjects converts a JSON value to a project sequence. A value qualifies
// only if it is an array whose every element is an object.
func asProjects(v any) ([]Project, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Project, 0, len(arr))
	for _, item := range arr {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, Project(rec))
	}
	return out, true
}

// providerCode extracts the embedded numeric status from a response body.
// Returns found=false when no response_code field is present, which the
// provider treats the same as code zero.
func providerCode(body map[string]any) (code int, message string, found bool) {
	raw, ok := body["response_code"]
	if !ok {
		return 0, "", false
	}

	switch x := raw.(type) {
	case float64:
		code = int(x)
	case int:
		code = x
	case string:
		// Some error payloads quote the code.
		n, err := strconv.Atoi(x)
		if err != nil {
			return 0, "", false
		}
		code = n
	default:
		return 0, "", false
	}

	if msg, ok := body["message"].(string); ok {
		message = msg
	} else if msg, ok := body["error"].(string); ok {
		message = msg
	}
	return code, message, true
}

// findProject scans a normalized project list for the record whose ID,
// compared as a string, equals the requested ID. Malformed (non-numeric)
// requests simply never match.
func findProject(projects []Project, projectID string) (Project, bool) {
	for _, p := range projects {
		if p.ID() == projectID {
			return p, true
		}
	}
	return nil, false
}

// mergeDetails builds the details result: normalized id and name first, then
// the remaining summary fields, then the raw details body nested under
// "details". Summary fields never overwrite id or name.
func mergeDetails(summary Project, details map[string]any) map[string]any {
	out := map[string]any{
		"id":   summary.ID(),
		"name": summary.Name(),
	}
	for k, v := range summary {
		if k == "id" || k == "name" {
			continue
		}
		out[k] = v
	}
	out["details"] = details
	return out
}

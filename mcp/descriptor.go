// Package mcp computes the tool-server (MCP) set visible to a session.
//
// Tool-server descriptors carry templated config fields (endpoints, env
// values, auth tokens) written as ${key} placeholders. Resolution happens
// fresh on every prompt call against a caller-supplied template context,
// since the context (per-user secrets) may change between calls.
package mcp

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lambdaflows/devteam/backend"
)

// Scope determines which sessions see a tool server.
type Scope string

const (
	// ScopeGlobal servers are visible to every session.
	ScopeGlobal Scope = "global"
	// ScopeSession servers are visible only where explicitly assigned.
	ScopeSession Scope = "session"
)

// ToolServerDescriptor describes one tool server before resolution.
type ToolServerDescriptor struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Scope     Scope             `yaml:"scope"`
	Transport string            `yaml:"transport"`
	Enabled   bool              `yaml:"enabled"`
	Endpoint  string            `yaml:"endpoint,omitempty"`
	Command   string            `yaml:"command,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`

	// Required lists field names whose template resolution must succeed:
	// "endpoint", "command", "env.KEY", "headers.KEY". A server with an
	// unresolved required field is dropped from the session's set.
	Required []string `yaml:"required,omitempty"`
}

// ResolvedServer is a descriptor with all templates expanded.
type ResolvedServer struct {
	ID        string
	Name      string
	Transport string
	Endpoint  string
	Command   string
	Env       map[string]string
	Headers   map[string]string

	// Warnings records optional fields left unresolved.
	Warnings []string
}

// Config converts the resolved server into the form handed to a vendor call.
func (s *ResolvedServer) Config() backend.ToolServerConfig {
	return backend.ToolServerConfig{
		Name:      s.Name,
		Transport: s.Transport,
		Endpoint:  s.Endpoint,
		Command:   s.Command,
		Env:       s.Env,
		Headers:   s.Headers,
	}
}

// TemplateContext supplies values for ${key} placeholders.
type TemplateContext map[string]string

// TemplateResolutionError reports a required field whose placeholders could
// not be resolved. The affected server is dropped; the session proceeds.
type TemplateResolutionError struct {
	ServerID string
	Field    string
	Missing  []string
}

func (e *TemplateResolutionError) Error() string {
	return fmt.Sprintf("tool server %s: required field %q has unresolved placeholders: %s",
		e.ServerID, e.Field, strings.Join(e.Missing, ", "))
}

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z0-9_.-]+)\}`)

// expand replaces ${key} placeholders from the context and returns the
// expanded string plus any keys that had no value.
func expand(s string, tctx TemplateContext) (string, []string) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		key := m[2 : len(m)-1]
		if v, ok := tctx[key]; ok {
			return v
		}
		missing = append(missing, key)
		return m
	})
	return out, missing
}

// resolve expands every templated field of a descriptor. The returned error
// is non-nil only when a required field failed to resolve.
func resolve(d ToolServerDescriptor, tctx TemplateContext) (*ResolvedServer, error) {
	required := make(map[string]bool, len(d.Required))
	for _, f := range d.Required {
		required[f] = true
	}

	rs := &ResolvedServer{
		ID:        d.ID,
		Name:      d.Name,
		Transport: d.Transport,
	}

	fail := func(field string, missing []string) error {
		return &TemplateResolutionError{ServerID: d.ID, Field: field, Missing: missing}
	}
	warn := func(field string, missing []string) {
		rs.Warnings = append(rs.Warnings,
			fmt.Sprintf("field %q left unresolved: %s", field, strings.Join(missing, ", ")))
	}

	var missing []string
	rs.Endpoint, missing = expand(d.Endpoint, tctx)
	if len(missing) > 0 {
		if required["endpoint"] {
			return nil, fail("endpoint", missing)
		}
		warn("endpoint", missing)
	}

	rs.Command, missing = expand(d.Command, tctx)
	if len(missing) > 0 {
		if required["command"] {
			return nil, fail("command", missing)
		}
		warn("command", missing)
	}

	if len(d.Env) > 0 {
		rs.Env = make(map[string]string, len(d.Env))
		for k, v := range d.Env {
			rs.Env[k], missing = expand(v, tctx)
			if len(missing) > 0 {
				field := "env." + k
				if required[field] {
					return nil, fail(field, missing)
				}
				warn(field, missing)
			}
		}
	}

	if len(d.Headers) > 0 {
		rs.Headers = make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			rs.Headers[k], missing = expand(v, tctx)
			if len(missing) > 0 {
				field := "headers." + k
				if required[field] {
					return nil, fail(field, missing)
				}
				warn(field, missing)
			}
		}
	}

	return rs, nil
}

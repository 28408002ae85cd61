package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrManifestNotFound is returned when a manifest id is unknown.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrManifestExists is returned when creating a manifest under a taken id.
	ErrManifestExists = errors.New("manifest already exists")
	// ErrVersionNotFound is returned when a manifest version is unknown.
	ErrVersionNotFound = errors.New("version not found")
	// ErrTemplateNotFound is returned when a template id is unknown.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrInvalidTransition is returned for a status change outside the lifecycle table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotCompiled is returned when running a manifest that has no compiled graph.
	ErrNotCompiled = errors.New("manifest not compiled")
	// ErrPromptNotFound is returned by prompt stores for an unknown prompt id.
	ErrPromptNotFound = errors.New("prompt not found")
)

// StructuralError is a validation failure of the manifest shape.
type StructuralError struct {
	Msg string
}

func (e *StructuralError) Error() string {
	return e.Msg
}

// CycleError reports nodes the topological sort could not order.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("manifest contains cycles: nodes not reachable by topological sort: %s", strings.Join(e.Remaining, ", "))
}

// NodeBuildError reports a node whose executable step could not be built.
type NodeBuildError struct {
	NodeID string
	Err    error
}

func (e *NodeBuildError) Error() string {
	return fmt.Sprintf("node %q: %v", e.NodeID, e.Err)
}

func (e *NodeBuildError) Unwrap() error {
	return e.Err
}

// AssemblyError reports that the execution engine rejected the wired graph.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("graph assembly failed: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// RegistryError is a declined registry operation.
type RegistryError struct {
	Op  string
	ID  string
	Err error
}

func (e *RegistryError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// Messages renders errors as the human-readable strings carried by results.
func Messages(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

package rbac

import (
	"maps"
	"slices"
	"strings"
)

// FindingKind classifies an integrity problem.
type FindingKind string

const (
	FindingDanglingParent     FindingKind = "dangling_parent"
	FindingDanglingGrant      FindingKind = "dangling_grant"
	FindingDanglingDepartment FindingKind = "dangling_department"
	FindingDanglingAllowed    FindingKind = "dangling_allowed_role"
	FindingCycle              FindingKind = "cycle"
	FindingMultipleRoots      FindingKind = "multiple_roots"
)

// FindingKinds lists every kind CheckIntegrity can report.
func FindingKinds() []FindingKind {
	return []FindingKind{
		FindingDanglingParent,
		FindingDanglingGrant,
		FindingDanglingDepartment,
		FindingDanglingAllowed,
		FindingCycle,
		FindingMultipleRoots,
	}
}

// Finding is a single integrity problem.
type Finding struct {
	Kind   FindingKind `json:"kind"`
	RoleID string      `json:"role_id,omitempty"`
	Ref    string      `json:"ref,omitempty"`
	Path   []string    `json:"path,omitempty"`
}

func (f Finding) String() string {
	switch f.Kind {
	case FindingCycle:
		return string(f.Kind) + ": " + strings.Join(f.Path, " -> ")
	case FindingMultipleRoots:
		return string(f.Kind) + ": " + strings.Join(f.Path, ", ")
	default:
		return string(f.Kind) + ": " + f.RoleID + " -> " + f.Ref
	}
}

// CheckIntegrity reports references to missing entities, inheritance
// cycles and duplicate root roles. Findings are deterministic.
func CheckIntegrity(s *Snapshot) []Finding {
	if s == nil {
		return nil
	}
	var findings []Finding
	ids := slices.Sorted(maps.Keys(s.graph.roles))
	for _, id := range ids {
		r := s.graph.roles[id]
		for _, parent := range r.InheritsFrom {
			if _, ok := s.graph.roles[parent]; !ok {
				findings = append(findings, Finding{Kind: FindingDanglingParent, RoleID: id, Ref: parent})
			}
		}
		for _, p := range r.Permissions {
			if !s.catalog.Has(p) {
				findings = append(findings, Finding{Kind: FindingDanglingGrant, RoleID: id, Ref: p})
			}
		}
		for _, d := range r.Departments {
			if _, ok := s.departments[d]; !ok {
				findings = append(findings, Finding{Kind: FindingDanglingDepartment, RoleID: id, Ref: d})
			}
		}
	}
	for _, d := range s.Departments() {
		for _, roleID := range d.RolesAllowed {
			if _, ok := s.graph.roles[roleID]; !ok {
				findings = append(findings, Finding{Kind: FindingDanglingAllowed, RoleID: roleID, Ref: d.ID})
			}
		}
	}
	for _, cycle := range findCycles(s.graph, ids) {
		findings = append(findings, Finding{Kind: FindingCycle, RoleID: cycle[0], Path: cycle})
	}
	if roots := s.graph.rootIDs(); len(roots) > 1 {
		findings = append(findings, Finding{Kind: FindingMultipleRoots, Path: roots})
	}
	return findings
}

// findCycles reports one path per back edge found by a depth-first walk.
func findCycles(g *Graph, order []string) [][]string {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(order))
	var stack []string
	var cycles [][]string

	var visit func(id string)
	visit = func(id string) {
		state[id] = active
		stack = append(stack, id)
		for _, parent := range g.roles[id].InheritsFrom {
			if _, ok := g.roles[parent]; !ok {
				continue
			}
			switch state[parent] {
			case active:
				start := slices.Index(stack, parent)
				cycle := append(slices.Clone(stack[start:]), parent)
				cycles = append(cycles, cycle)
			case unvisited:
				visit(parent)
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
	}
	for _, id := range order {
		if state[id] == unvisited {
			visit(id)
		}
	}
	return cycles
}

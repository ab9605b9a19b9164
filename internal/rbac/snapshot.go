package rbac

import (
	"maps"
	"slices"
)

// Snapshot is an immutable view of the permission catalog, the role graph
// and the departments. Readers never observe a partially applied write.
type Snapshot struct {
	version     uint64
	catalog     *Catalog
	graph       *Graph
	departments map[string]Department
}

// NewSnapshot assembles a snapshot. Only id uniqueness is enforced;
// dangling references and cycles are tolerated and reported by CheckIntegrity.
func NewSnapshot(perms []Permission, roles []Role, departments []Department) (*Snapshot, error) {
	catalog, err := NewCatalog(perms...)
	if err != nil {
		return nil, err
	}
	graph, err := NewGraph(roles...)
	if err != nil {
		return nil, err
	}
	depts := make(map[string]Department, len(departments))
	for _, d := range departments {
		d = d.normalized()
		if d.ID == "" {
			return nil, invalid("load departments", ErrNameRequired, "department id")
		}
		if _, dup := depts[d.ID]; dup {
			return nil, invalid("load departments", ErrDuplicateID, d.ID)
		}
		depts[d.ID] = d
	}
	return &Snapshot{catalog: catalog, graph: graph, departments: depts}, nil
}

// Version increases by one with every committed write.
func (s *Snapshot) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

// Catalog returns the permission catalog.
func (s *Snapshot) Catalog() *Catalog {
	if s == nil {
		return nil
	}
	return s.catalog
}

// Graph returns the role graph.
func (s *Snapshot) Graph() *Graph {
	if s == nil {
		return nil
	}
	return s.graph
}

// Department returns a copy of the department with the given id.
func (s *Snapshot) Department(id string) (Department, bool) {
	if s == nil {
		return Department{}, false
	}
	d, ok := s.departments[id]
	if !ok {
		return Department{}, false
	}
	return d.clone(), true
}

// Departments returns every department ordered by id.
func (s *Snapshot) Departments() []Department {
	if s == nil {
		return []Department{}
	}
	out := make([]Department, 0, len(s.departments))
	for _, id := range slices.Sorted(maps.Keys(s.departments)) {
		out = append(out, s.departments[id].clone())
	}
	return out
}

func (s *Snapshot) clone() *Snapshot {
	return &Snapshot{
		version:     s.version,
		catalog:     s.catalog.clone(),
		graph:       s.graph.clone(),
		departments: maps.Clone(s.departments),
	}
}

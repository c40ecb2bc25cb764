// Package reactor models the set of projects taking part in one build and
// the parent links between them.
package reactor

// Reactor is a read-only snapshot of the projects visible to a build session
type Reactor struct {
	projects []*Project
}

// New creates a reactor from its root-level projects, in declaration order
func New(projects ...*Project) *Reactor {
	roots := make([]*Project, 0, len(projects))
	for _, p := range projects {
		if p != nil {
			roots = append(roots, p)
		}
	}
	return &Reactor{projects: roots}
}

// Projects returns a copy of the root-level projects
func (r *Reactor) Projects() []*Project {
	out := make([]*Project, len(r.projects))
	copy(out, r.projects)
	return out
}

// Len returns the number of root-level projects
func (r *Reactor) Len() int {
	return len(r.projects)
}

// Visit tells Walk how to proceed after a project has been visited
type Visit int

const (
	// Continue pushes the project's parent and carries on
	Continue Visit = iota
	// SkipParent carries on without exploring the project's ancestors
	SkipParent
	// Stop ends the walk
	Stop
)

// Walk visits every project and its ancestor chain using a LIFO worklist.
// All roots are pushed up front, so the last root is visited first. A
// project's parent is pushed after it is visited and is therefore next.
// Projects shared by several children are visited once per path.
func (r *Reactor) Walk(fn func(p *Project) Visit) {
	stack := make([]*Project, len(r.projects))
	copy(stack, r.projects)

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch fn(p) {
		case Stop:
			return
		case SkipParent:
			continue
		}

		if p.parent != nil {
			stack = append(stack, p.parent)
		}
	}
}

// Find returns the first project matching ref in walk order
func (r *Reactor) Find(ref Ref) (*Project, bool) {
	var found *Project
	r.Walk(func(p *Project) Visit {
		if ref.Matches(p) {
			found = p
			return Stop
		}
		return Continue
	})
	return found, found != nil
}

package reactor

import (
	"fmt"
	"strings"
)

// Ref identifies a project by its Maven group and artifact IDs
type Ref struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
}

// ParseRef parses a "group:artifact" coordinate string
func ParseRef(s string) (Ref, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Ref{}, &ValidationError{Ref: Ref{GroupID: s}, Reason: "expected groupId:artifactId"}
	}
	ref := Ref{GroupID: parts[0], ArtifactID: parts[1]}
	if err := ref.Validate(); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// Validate fails unless both groupId and artifactId are non-blank
func (r Ref) Validate() error {
	if strings.TrimSpace(r.GroupID) == "" || strings.TrimSpace(r.ArtifactID) == "" {
		return &ValidationError{Ref: r, Reason: "project references must contain groupId AND artifactId"}
	}
	return nil
}

// Matches reports whether the project carries exactly this group and artifact ID
func (r Ref) Matches(p *Project) bool {
	return p != nil && p.ref == r
}

// String returns the Maven coordinate string
func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.GroupID, r.ArtifactID)
}

// Project is one node of the reactor tree. Nodes are immutable once created;
// the parent link is a back-reference only.
type Project struct {
	ref     Ref
	baseDir string
	parent  *Project
}

// NewProject creates a project node. An empty baseDir marks a project that was
// resolved from a repository rather than from the filesystem.
func NewProject(ref Ref, baseDir string, parent *Project) (*Project, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return &Project{
		ref:     ref,
		baseDir: baseDir,
		parent:  parent,
	}, nil
}

// Ref returns the project's coordinates
func (p *Project) Ref() Ref {
	return p.ref
}

// GroupID returns the project's group ID
func (p *Project) GroupID() string {
	return p.ref.GroupID
}

// ArtifactID returns the project's artifact ID
func (p *Project) ArtifactID() string {
	return p.ref.ArtifactID
}

// BaseDir returns the directory holding the project's pom.xml, or "" if unknown
func (p *Project) BaseDir() string {
	return p.baseDir
}

// HasBaseDir reports whether the project was found on the filesystem
func (p *Project) HasBaseDir() bool {
	return p.baseDir != ""
}

// Parent returns the parent project or nil
func (p *Project) Parent() *Project {
	return p.parent
}

func (p *Project) String() string {
	return p.ref.String()
}

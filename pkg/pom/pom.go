// Package pom reads Maven project descriptors and assembles the reactor of a
// multi-module build from them.
package pom

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"execroot/pkg/reactor"
)

// FileName is the name of a Maven project descriptor
const FileName = "pom.xml"

// DefaultRelativePath is where Maven looks for a parent POM when none is declared
const DefaultRelativePath = "../" + FileName

// POM represents the parts of a Maven POM that shape the reactor
type POM struct {
	XMLName    xml.Name  `xml:"project"`
	GroupID    string    `xml:"groupId"`
	ArtifactID string    `xml:"artifactId"`
	Version    string    `xml:"version"`
	Packaging  string    `xml:"packaging"`
	Parent     *Parent   `xml:"parent"`
	Modules    []string  `xml:"modules>module"`
	Profiles   []Profile `xml:"profiles>profile"`
}

// Parent represents the parent section of a POM
type Parent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	// RelativePath is nil when the element is absent and points to "" when it
	// is present but empty, which disables the filesystem lookup
	RelativePath *string `xml:"relativePath"`
}

// Profile represents a build profile; only its modules matter here
type Profile struct {
	ID         string     `xml:"id"`
	Activation Activation `xml:"activation"`
	Modules    []string   `xml:"modules>module"`
}

// Activation represents the activation section of a profile
type Activation struct {
	ActiveByDefault bool `xml:"activeByDefault"`
}

// Parse decodes a POM and checks that it identifies a project
func Parse(r io.Reader) (*POM, error) {
	var pom POM
	if err := xml.NewDecoder(r).Decode(&pom); err != nil {
		return nil, fmt.Errorf("failed to parse POM XML: %w", err)
	}

	pom.GroupID = strings.TrimSpace(pom.GroupID)
	pom.ArtifactID = strings.TrimSpace(pom.ArtifactID)
	if pom.Parent != nil {
		pom.Parent.GroupID = strings.TrimSpace(pom.Parent.GroupID)
		pom.Parent.ArtifactID = strings.TrimSpace(pom.Parent.ArtifactID)
	}

	if pom.ArtifactID == "" {
		return nil, errors.New("POM has no artifactId")
	}
	return &pom, nil
}

// ParseFile reads and parses the POM at path
func ParseFile(path string) (*POM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open POM: %w", err)
	}
	defer f.Close()

	pom, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pom, nil
}

// Ref returns the project's coordinates, inheriting the group ID from the
// parent when the project doesn't declare one
func (p *POM) Ref() reactor.Ref {
	groupID := p.GroupID
	if groupID == "" && p.Parent != nil {
		groupID = p.Parent.GroupID
	}
	return reactor.Ref{GroupID: groupID, ArtifactID: p.ArtifactID}
}

// AllModules returns the declared modules followed by those of profiles that
// are active by default, without duplicates
func (p *POM) AllModules() []string {
	seen := make(map[string]bool)
	var modules []string

	add := func(list []string) {
		for _, m := range list {
			m = strings.TrimSpace(m)
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			modules = append(modules, m)
		}
	}

	add(p.Modules)
	for _, profile := range p.Profiles {
		if profile.Activation.ActiveByDefault {
			add(profile.Modules)
		}
	}
	return modules
}

// Ref returns the parent's coordinates
func (p *Parent) Ref() reactor.Ref {
	return reactor.Ref{GroupID: p.GroupID, ArtifactID: p.ArtifactID}
}

// File returns the POM file the parent is expected in, relative to the
// directory of the child POM. It reports false when lookup is disabled or
// nothing exists at that location.
func (p *Parent) File(childDir string) (string, bool) {
	rel := DefaultRelativePath
	if p.RelativePath != nil {
		rel = strings.TrimSpace(*p.RelativePath)
		if rel == "" {
			return "", false
		}
	}

	path := filepath.FromSlash(rel)
	if !filepath.IsAbs(path) {
		path = filepath.Join(childDir, path)
	}
	return existingFile(path)
}

// ModuleFile returns the POM file of a module declared in the POM located in dir
func ModuleFile(dir, module string) string {
	path := filepath.FromSlash(module)
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, FileName)
	}
	if strings.HasSuffix(path, ".xml") {
		return path
	}
	return filepath.Join(path, FileName)
}

// existingFile resolves a directory to the POM inside it and reports whether the file exists
func existingFile(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		path = filepath.Join(path, FileName)
		if info, err = os.Stat(path); err != nil || info.IsDir() {
			return "", false
		}
	}
	return path, true
}

// FindProjectDir traverses upwards from startDir to the nearest directory
// holding a pom.xml
func FindProjectDir(startDir string) (string, error) {
	currentDir := startDir

	for {
		if _, ok := existingFile(filepath.Join(currentDir, FileName)); ok {
			return currentDir, nil
		}

		// Move up one directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached the filesystem root
			break
		}
		currentDir = parentDir
	}

	return "", fmt.Errorf("no %s found in %s or any parent directory: %w", FileName, startDir, os.ErrNotExist)
}

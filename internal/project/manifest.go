package project

import (
	"encoding/json"
	"encoding/xml"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"codefacts/internal/errors"
)

// manifest is the subset of package metadata every format can supply
type manifest struct {
	Name        string
	Version     string
	Description string
	License     string
	Authors     []string
}

type packageJSON struct {
	Name           string            `json:"name"`
	Version        string            `json:"version"`
	Description    string            `json:"description"`
	Main           string            `json:"main"`
	Module         string            `json:"module"`
	PackageManager string            `json:"packageManager"`
	Bin            json.RawMessage   `json:"bin"`
	License        json.RawMessage   `json:"license"`
	Author         json.RawMessage   `json:"author"`
	Contributors   []json.RawMessage `json:"contributors"`
	Workspaces     json.RawMessage   `json:"workspaces"`
}

// readPackageJSON returns nil without error when the project has no package.json
func (s *Scanner) readPackageJSON(root string) (*packageJSON, error) {
	path := filepath.Join(root, "package.json")
	if !s.access.Exists(path) {
		return nil, nil
	}
	data, err := s.access.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, errors.New(errors.ParseFailed, "invalid package.json", err).WithPath(path)
	}
	return &pkg, nil
}

func (p *packageJSON) entryPoints() []string {
	var out []string
	if p.Main != "" {
		out = append(out, p.Main)
	}
	if p.Module != "" {
		out = append(out, p.Module)
	}
	var bin string
	if json.Unmarshal(p.Bin, &bin) == nil && bin != "" {
		out = append(out, bin)
	}
	var bins map[string]string
	if json.Unmarshal(p.Bin, &bins) == nil {
		names := make([]string, 0, len(bins))
		for name := range bins {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, bins[name])
		}
	}
	return out
}

// workspaces accepts both the array form and the {"packages": [...]} form
func (p *packageJSON) workspaces() []string {
	var list []string
	if json.Unmarshal(p.Workspaces, &list) == nil {
		return list
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if json.Unmarshal(p.Workspaces, &obj) == nil {
		return obj.Packages
	}
	return nil
}

func (p *packageJSON) manifest() *manifest {
	m := &manifest{Name: p.Name, Version: p.Version, Description: p.Description}
	m.License = stringOrField(p.License, "type")
	if a := stringOrField(p.Author, "name"); a != "" {
		m.Authors = append(m.Authors, a)
	}
	for _, c := range p.Contributors {
		if a := stringOrField(c, "name"); a != "" {
			m.Authors = append(m.Authors, a)
		}
	}
	return m
}

// stringOrField decodes a JSON string, or the named field of a JSON object
func stringOrField(raw json.RawMessage, field string) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj map[string]any
	if json.Unmarshal(raw, &obj) == nil {
		if v, ok := obj[field].(string); ok {
			return v
		}
	}
	return ""
}

type pyproject struct {
	Project struct {
		Name        string `toml:"name"`
		Version     string `toml:"version"`
		Description string `toml:"description"`
		License     any    `toml:"license"`
		Authors     []struct {
			Name  string `toml:"name"`
			Email string `toml:"email"`
		} `toml:"authors"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name        string   `toml:"name"`
			Version     string   `toml:"version"`
			Description string   `toml:"description"`
			License     string   `toml:"license"`
			Authors     []string `toml:"authors"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func parsePyproject(data []byte) (*manifest, error) {
	var py pyproject
	if err := toml.Unmarshal(data, &py); err != nil {
		return nil, err
	}

	if p := py.Project; p.Name != "" {
		m := &manifest{Name: p.Name, Version: p.Version, Description: p.Description}
		switch lic := p.License.(type) {
		case string:
			m.License = lic
		case map[string]any:
			if text, ok := lic["text"].(string); ok {
				m.License = text
			} else if file, ok := lic["file"].(string); ok {
				m.License = file
			}
		}
		for _, a := range p.Authors {
			switch {
			case a.Name != "":
				m.Authors = append(m.Authors, a.Name)
			case a.Email != "":
				m.Authors = append(m.Authors, a.Email)
			}
		}
		return m, nil
	}

	poetry := py.Tool.Poetry
	m := &manifest{
		Name:        poetry.Name,
		Version:     poetry.Version,
		Description: poetry.Description,
		License:     poetry.License,
	}
	for _, a := range poetry.Authors {
		// "Jane Doe <jane@example.com>"
		name, _, _ := strings.Cut(a, "<")
		if name = strings.TrimSpace(name); name != "" {
			m.Authors = append(m.Authors, name)
		}
	}
	return m, nil
}

type pomXML struct {
	GroupID     string `xml:"groupId"`
	ArtifactID  string `xml:"artifactId"`
	Name        string `xml:"name"`
	Version     string `xml:"version"`
	Description string `xml:"description"`
	Parent      struct {
		Version string `xml:"version"`
	} `xml:"parent"`
	Licenses []struct {
		Name string `xml:"name"`
	} `xml:"licenses>license"`
	Developers []struct {
		Name string `xml:"name"`
		ID   string `xml:"id"`
	} `xml:"developers>developer"`
}

func parsePom(data []byte) (*manifest, error) {
	var pom pomXML
	if err := xml.Unmarshal(data, &pom); err != nil {
		return nil, err
	}

	m := &manifest{
		Name:        pom.Name,
		Version:     pom.Version,
		Description: strings.TrimSpace(pom.Description),
	}
	if m.Name == "" {
		m.Name = pom.ArtifactID
	}
	if m.Version == "" {
		m.Version = pom.Parent.Version
	}
	if len(pom.Licenses) > 0 {
		m.License = pom.Licenses[0].Name
	}
	for _, d := range pom.Developers {
		switch {
		case d.Name != "":
			m.Authors = append(m.Authors, d.Name)
		case d.ID != "":
			m.Authors = append(m.Authors, d.ID)
		}
	}
	return m, nil
}

// readManifest returns the first manifest found, or nil
func (s *Scanner) readManifest(root string) *manifest {
	pkg, err := s.readPackageJSON(root)
	if err != nil {
		s.logger.Warn("ignoring unreadable manifest", "file", "package.json", "error", err)
	}
	if pkg != nil {
		return pkg.manifest()
	}

	parsers := []struct {
		file  string
		parse func([]byte) (*manifest, error)
	}{
		{"pyproject.toml", parsePyproject},
		{"pom.xml", parsePom},
	}
	for _, p := range parsers {
		path := filepath.Join(root, p.file)
		if !s.access.Exists(path) {
			continue
		}
		data, err := s.access.ReadFile(path)
		if err != nil {
			s.logger.Warn("ignoring unreadable manifest", "file", p.file, "error", err)
			continue
		}
		m, err := p.parse(data)
		if err != nil {
			s.logger.Warn("ignoring malformed manifest", "file", p.file, "error", err)
			continue
		}
		return m
	}
	return nil
}

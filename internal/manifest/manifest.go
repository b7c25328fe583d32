// Package manifest loads the calibration manifest: the YAML file mapping
// each telescope to its calibration files on disk.
//
// The manifest is validated against an embedded CUE schema before anything
// reads it, so a typoed key or a non-string path fails at load time with a
// position-bearing message rather than as a missing-file error deep in a
// composition. The loaded Context is an explicit value passed to whoever
// needs paths; nothing in this module reads manifest state globally.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/tamarlowe/respkit/internal/resperr"
)

// schema constrains the manifest shape. Positions 0 through 6 are the seven
// focal-plane seats of the payload.
const schema = `
version!: 1
base_dir!: string
telescopes!: [string]: {
	position!: int & >=0 & <=6
	files!: [string]: string
}
`

// Manifest is the decoded YAML document.
type Manifest struct {
	Version    int                  `yaml:"version"`
	BaseDir    string               `yaml:"base_dir"`
	Telescopes map[string]Telescope `yaml:"telescopes"`
}

// Telescope is one telescope's entry: its focal-plane position and the
// calibration files keyed by element family.
type Telescope struct {
	Position int               `yaml:"position"`
	Files    map[string]string `yaml:"files"`
}

// Context resolves calibration file paths for loaders. Base-relative paths
// in the manifest are resolved against the manifest's base_dir.
type Context struct {
	m Manifest
}

// Load reads, validates and decodes the manifest at path.
func Load(path string) (*Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, resperr.NewDataSourceUnavailable(path, err)
	}
	return Parse(data, path)
}

// Parse validates manifest bytes against the schema and decodes them.
// The name is used in diagnostics only.
func Parse(data []byte, name string) (*Context, error) {
	ctx := cuecontext.New()
	sv := ctx.CompileString(schema)
	if err := sv.Err(); err != nil {
		return nil, fmt.Errorf("manifest schema: %w", err)
	}

	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", name, err)
	}
	dv := ctx.BuildFile(file)
	if err := dv.Err(); err != nil {
		return nil, fmt.Errorf("building manifest %s: %w", name, err)
	}
	if err := sv.Unify(dv).Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", name, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest %s: %w", name, err)
	}
	return &Context{m: m}, nil
}

// Path resolves the calibration file for one telescope and element family.
// An unmapped telescope or family means the calibration source cannot be
// located, which is fatal for whatever needed it.
func (c *Context) Path(telescope, family string) (string, error) {
	tel, ok := c.m.Telescopes[telescope]
	if !ok {
		return "", resperr.NewDataSourceUnavailable(telescope,
			fmt.Errorf("telescope not in manifest"))
	}
	file, ok := tel.Files[family]
	if !ok {
		return "", resperr.NewDataSourceUnavailable(telescope,
			fmt.Errorf("no %s file mapped", family))
	}
	if filepath.IsAbs(file) {
		return file, nil
	}
	return filepath.Join(c.m.BaseDir, file), nil
}

// Position returns the focal-plane position of a telescope.
func (c *Context) Position(telescope string) (int, error) {
	tel, ok := c.m.Telescopes[telescope]
	if !ok {
		return 0, resperr.NewDataSourceUnavailable(telescope,
			fmt.Errorf("telescope not in manifest"))
	}
	return tel.Position, nil
}

// Telescopes lists the manifest's telescope identifiers, sorted.
func (c *Context) Telescopes() []string {
	out := make([]string, 0, len(c.m.Telescopes))
	for name := range c.m.Telescopes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

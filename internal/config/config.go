// Package config loads fuzz job files.
//
// A job is written in CUE and checked against the embedded #Job schema
// before it is decoded. Relative paths in a job resolve against the
// directory of the job file.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/pipfuzz/internal/pipfuzz"
	"github.com/roach88/pipfuzz/internal/wires"
)

//go:embed schema.cue
var schemaSource string

// Error codes reported by LoadError.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeNotFound   = "E005" // Job file not found
	ErrCodeParse      = "E004" // CUE syntax error
	ErrCodeSchema     = "E006" // Job does not satisfy #Job
	ErrCodeNoJob      = "E010" // No top-level job struct
	ErrCodeBadPattern = "E201" // Malformed regex in a node pattern or filter
	ErrCodeNoChip     = "E202" // normalize set without chip dimensions
)

// LoadError represents an error that occurred while loading a job.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NameFilter is the declarative form of a pipfuzz.NamePredicate.
type NameFilter struct {
	InUniverse bool     `json:"in_universe"`
	Include    []string `json:"include"`
	Exclude    []string `json:"exclude"`
}

// ArcFilter is the declarative form of a pipfuzz.ArcPredicate.
type ArcFilter struct {
	IncludeSources []string `json:"include_sources"`
	ExcludeSources []string `json:"exclude_sources"`
	IncludeSinks   []string `json:"include_sinks"`
	ExcludeSinks   []string `json:"exclude_sinks"`
}

// Build configures the external toolchain.
type Build struct {
	Command []string `json:"command"`
	WorkDir string   `json:"workdir"`
}

// Chip holds device dimensions used by wire normalisation.
type Chip struct {
	MaxRow int `json:"max_row"`
	MaxCol int `json:"max_col"`
}

// Job is a decoded fuzz job.
type Job struct {
	Device          string      `json:"device"`
	Template        string      `json:"template"`
	Catalog         string      `json:"catalog"`
	Tiles           []string    `json:"tiles"`
	Nodes           []string    `json:"nodes"`
	Regex           bool        `json:"regex"`
	IncludeDownhill bool        `json:"include_downhill"`
	CombineWithAnd  bool        `json:"combine_with_and"`
	FullMuxStyle    bool        `json:"full_mux_style"`
	IgnoreTiles     []string    `json:"ignore_tiles"`
	Parallelism     int         `json:"parallelism"`
	Normalize       bool        `json:"normalize"`
	NameFilter      *NameFilter `json:"name_filter,omitempty"`
	ArcFilter       *ArcFilter  `json:"arc_filter,omitempty"`
	Build           Build       `json:"build"`
	Chip            *Chip       `json:"chip,omitempty"`

	// Dir is the directory of the job file.
	Dir string `json:"-"`
}

// Load reads and validates the job file at path.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("job file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading job file: %v", err)}
	}
	return Parse(data, path)
}

// Parse validates a job source. filename is used for positions and to
// resolve relative paths.
func Parse(data []byte, filename string) (*Job, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile job schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeParse, err)
	}

	jobVal := v.LookupPath(cue.ParsePath("job"))
	if !jobVal.Exists() {
		return nil, &LoadError{Code: ErrCodeNoJob, Message: "no top-level job struct", Pos: v.Pos()}
	}

	unified := schema.LookupPath(cue.ParsePath("#Job")).Unify(jobVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}

	var job Job
	if err := unified.Decode(&job); err != nil {
		return nil, cueError(ErrCodeSchema, err)
	}

	if job.Normalize && job.Chip == nil {
		return nil, &LoadError{Code: ErrCodeNoChip, Message: "normalize requires chip.max_row and chip.max_col", Pos: jobVal.Pos()}
	}

	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("resolving job directory: %v", err)}
	}
	job.Dir = dir
	job.Template = job.resolve(job.Template)
	job.Catalog = job.resolve(job.Catalog)
	job.Build.WorkDir = job.resolve(job.Build.WorkDir)

	// Surface malformed regexes now rather than at run time.
	if _, err := job.Options(); err != nil {
		return nil, err
	}
	return &job, nil
}

func (j *Job) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(j.Dir, p)
}

// DefaultDatabase returns <dir>/<device>.db.
func (j *Job) DefaultDatabase() string {
	return filepath.Join(j.Dir, j.Device+".db")
}

// WireChip returns the chip dimensions for normalisation. Zero when chip is
// absent.
func (j *Job) WireChip() wires.Chip {
	if j.Chip == nil {
		return wires.Chip{}
	}
	return wires.Chip{MaxRow: j.Chip.MaxRow, MaxCol: j.Chip.MaxCol}
}

// Options converts the job into run options. The baseline is left zero so
// the fuzzer builds it.
func (j *Job) Options() (pipfuzz.Options, error) {
	opts := pipfuzz.Options{
		Patterns:        append([]string(nil), j.Nodes...),
		Regex:           j.Regex,
		IncludeDownhill: j.IncludeDownhill,
		CombineWithAnd:  j.CombineWithAnd,
		Tiles:           append([]string(nil), j.Tiles...),
		IgnoredTiles:    append([]string(nil), j.IgnoreTiles...),
		FullMuxStyle:    j.FullMuxStyle,
		Template:        j.Template,
		Parallelism:     j.Parallelism,
	}
	if j.Regex {
		for _, p := range j.Nodes {
			if _, err := regexp.Compile(p); err != nil {
				return pipfuzz.Options{}, badPattern("nodes", p, err)
			}
		}
	}

	if f := j.NameFilter; f != nil {
		var preds []pipfuzz.NamePredicate
		if f.InUniverse {
			preds = append(preds, pipfuzz.InUniverse)
		}
		include, err := compileAll("name_filter.include", f.Include)
		if err != nil {
			return pipfuzz.Options{}, err
		}
		exclude, err := compileAll("name_filter.exclude", f.Exclude)
		if err != nil {
			return pipfuzz.Options{}, err
		}
		if len(include) > 0 || len(exclude) > 0 {
			preds = append(preds, pipfuzz.MatchNames(include, exclude))
		}
		opts.NameFilter = pipfuzz.AllNames(preds...)
	}

	if f := j.ArcFilter; f != nil {
		var p pipfuzz.ArcPatterns
		var err error
		if p.IncludeSources, err = compileAll("arc_filter.include_sources", f.IncludeSources); err != nil {
			return pipfuzz.Options{}, err
		}
		if p.ExcludeSources, err = compileAll("arc_filter.exclude_sources", f.ExcludeSources); err != nil {
			return pipfuzz.Options{}, err
		}
		if p.IncludeSinks, err = compileAll("arc_filter.include_sinks", f.IncludeSinks); err != nil {
			return pipfuzz.Options{}, err
		}
		if p.ExcludeSinks, err = compileAll("arc_filter.exclude_sinks", f.ExcludeSinks); err != nil {
			return pipfuzz.Options{}, err
		}
		opts.ArcFilter = p.Predicate()
	}
	return opts, nil
}

func compileAll(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, badPattern(field, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func badPattern(field, pattern string, err error) *LoadError {
	return &LoadError{Code: ErrCodeBadPattern, Message: fmt.Sprintf("%s: malformed pattern %q: %v", field, pattern, err)}
}

// cueError converts the first CUE error to a LoadError with its position.
func cueError(code string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Code: code, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

// Package build runs the external synthesis toolchain to turn a design
// template plus substitutions into a configuration image.
package build

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/roach88/pipfuzz/internal/ir"
)

// Placeholders expanded in each command argument.
const (
	DesignPlaceholder = "{design}"
	OutputPlaceholder = "{output}"
	PrefixPlaceholder = "{prefix}"
)

// defaultMaxOutput bounds the command output kept for error reports.
const defaultMaxOutput = 4096

// BuildError reports a failed toolchain invocation.
type BuildError struct {
	Prefix  string
	Command []string
	Output  string // Tail of combined stdout/stderr
	Err     error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build %sdesign: %v", e.Prefix, e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// TemplateBuilder implements oracle.Builder with a template file and an
// external command.
//
// For each build it writes <WorkDir>/<prefix>design.v and expects the command
// to produce <WorkDir>/<prefix>design.bits. Builds with distinct prefixes may
// run concurrently in the same WorkDir.
type TemplateBuilder struct {
	WorkDir string
	Command []string
	Logger  *slog.Logger

	// MaxOutput bounds the command output kept in a BuildError. Default 4096.
	MaxOutput int
}

// NewTemplateBuilder creates a builder. The work directory is created if it
// does not exist.
func NewTemplateBuilder(workDir string, command []string, logger *slog.Logger) (*TemplateBuilder, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("build command is empty")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default().With("component", "build")
	}
	return &TemplateBuilder{
		WorkDir: workDir,
		Command: append([]string(nil), command...),
		Logger:  logger,
	}, nil
}

// Build implements oracle.Builder.
func (b *TemplateBuilder) Build(ctx context.Context, template string, subst map[string]string, prefix string) (ir.Image, error) {
	if strings.ContainsAny(prefix, `/\`) {
		return ir.Image{}, fmt.Errorf("artifact prefix %q contains a path separator", prefix)
	}

	src, err := os.ReadFile(template)
	if err != nil {
		return ir.Image{}, fmt.Errorf("read template: %w", err)
	}

	design := filepath.Join(b.WorkDir, prefix+"design.v")
	output := filepath.Join(b.WorkDir, prefix+"design.bits")
	if err := os.WriteFile(design, []byte(Substitute(string(src), subst)), 0o644); err != nil {
		return ir.Image{}, fmt.Errorf("write design: %w", err)
	}
	// A stale image from an earlier build under this prefix must not be
	// mistaken for this build's output.
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return ir.Image{}, fmt.Errorf("remove stale image: %w", err)
	}

	argv := expand(b.Command, design, output, prefix)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = b.WorkDir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger := b.logger()
	logger.Debug("running build", "prefix", prefix, "command", argv)
	start := time.Now()
	if err := cmd.Run(); err != nil {
		return ir.Image{}, &BuildError{Prefix: prefix, Command: argv, Output: b.tail(out.Bytes()), Err: err}
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return ir.Image{}, &BuildError{
			Prefix:  prefix,
			Command: argv,
			Output:  b.tail(out.Bytes()),
			Err:     fmt.Errorf("command produced no image: %w", err),
		}
	}
	logger.Debug("build finished", "prefix", prefix, "duration", time.Since(start), "bytes", len(data))

	return ir.Image{
		ID:   ir.ImageID(data),
		Name: filepath.Base(output),
		Path: output,
	}, nil
}

func (b *TemplateBuilder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *TemplateBuilder) tail(out []byte) string {
	limit := b.MaxOutput
	if limit <= 0 {
		limit = defaultMaxOutput
	}
	s := strings.TrimSpace(string(out))
	if len(s) > limit {
		s = "..." + s[len(s)-limit:]
	}
	return s
}

// Substitute replaces ${key} with its value for every key in subst.
// Unknown placeholders are left in place.
func Substitute(text string, subst map[string]string) string {
	if len(subst) == 0 {
		return text
	}
	keys := make([]string, 0, len(subst))
	for k := range subst {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "${"+k+"}", subst[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func expand(command []string, design, output, prefix string) []string {
	r := strings.NewReplacer(
		DesignPlaceholder, design,
		OutputPlaceholder, output,
		PrefixPlaceholder, prefix,
	)
	argv := make([]string, len(command))
	for i, a := range command {
		argv[i] = r.Replace(a)
	}
	return argv
}

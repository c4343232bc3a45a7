// Package compiler wraps the typeset and rasterize steps of the equation
// pipeline around the secure executor.
package compiler

import (
	"context"
	"log"
	"strings"
	"time"

	"eqrender/internal/execx"
)

// Runner is the execution contract the pipeline needs. *execx.Executor
// satisfies it; tests substitute a recorder.
type Runner interface {
	Exec(ctx context.Context, command string, args []string, opts execx.Options) (*execx.Result, error)
}

const (
	compileTimeout = 15 * time.Second
	convertTimeout = 30 * time.Second
)

// pdflatex safety flags. Shell-escape stays disabled at the engine level even
// though the executor never uses a shell.
var pdflatexFlags = []string{
	"-no-shell-escape",
	"-halt-on-error",
	"-interaction=nonstopmode",
	"-file-line-error",
}

var convertFlags = []string{
	"-resize", "4000x4000>",
	"-quality", "95",
	"-colorspace", "sRGB",
	"-depth", "8",
	"-define", "png:compression-level=6",
	"-define", "png:color-type=2",
}

// ImageMagick resource ceilings for the rasterize step.
func magickEnv() map[string]string {
	return map[string]string{
		"MAGICK_MEMORY_LIMIT": "2GB",
		"MAGICK_MAP_LIMIT":    "4GB",
		"MAGICK_DISK_LIMIT":   "8GB",
		"MAGICK_TIME_LIMIT":   "120",
	}
}

// Pipeline composes executor invocations for one work directory at a time.
type Pipeline struct {
	runner Runner
}

func New(r Runner) *Pipeline {
	return &Pipeline{runner: r}
}

// CompilePDFLaTeX typesets texFilename (reduced to its basename) inside
// workDir, then attempts a best-effort PDF to PNG conversion. Conversion
// failure is logged and swallowed: the typeset result is the deliverable.
func (p *Pipeline) CompilePDFLaTeX(ctx context.Context, texFilename, workDir string) (*execx.Result, error) {
	base := execx.SanitizeArg(texFilename)

	args := make([]string, 0, len(pdflatexFlags)+2)
	args = append(args, pdflatexFlags...)
	args = append(args, "-output-directory=.", base)

	res, err := p.runner.Exec(ctx, "pdflatex", args, execx.Options{
		Dir: workDir,
		Env: map[string]string{
			"TEXMFOUTPUT": workDir,
			"openout_any": "r",
			"openin_any":  "a",
		},
		Timeout: compileTimeout,
	})
	if err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(base, ".tex")
	if _, convErr := p.ConvertImage(ctx, stem+".pdf", stem+".png", workDir); convErr != nil {
		log.Printf("compiler: png conversion for %s failed: %v", stem+".pdf", convErr)
	}
	return res, nil
}

// ConvertImage rasterizes inputPath to outputPath (both reduced to
// basenames) inside workDir. Unlike the step embedded in CompilePDFLaTeX,
// failures here propagate to the caller.
func (p *Pipeline) ConvertImage(ctx context.Context, inputPath, outputPath, workDir string) (*execx.Result, error) {
	in := execx.SanitizeArg(inputPath)
	out := execx.SanitizeArg(outputPath)

	args := make([]string, 0, len(convertFlags)+2)
	args = append(args, in)
	args = append(args, convertFlags...)
	args = append(args, out)

	return p.runner.Exec(ctx, "convert", args, execx.Options{
		Dir:     workDir,
		Env:     magickEnv(),
		Timeout: convertTimeout,
	})
}

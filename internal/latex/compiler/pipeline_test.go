package compiler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"eqrender/internal/execx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	command string
	args    []string
	opts    execx.Options
}

// fakeRunner records every Exec invocation and answers from errs.
type fakeRunner struct {
	calls []recordedCall
	errs  map[string]error
}

func (f *fakeRunner) Exec(_ context.Context, command string, args []string, opts execx.Options) (*execx.Result, error) {
	f.calls = append(f.calls, recordedCall{command: command, args: args, opts: opts})
	if err := f.errs[command]; err != nil {
		return nil, err
	}
	return &execx.Result{ExitCode: 0}, nil
}

func TestCompilePDFLaTeXSpawnContract(t *testing.T) {
	runner := &fakeRunner{}
	p := New(runner)

	res, err := p.CompilePDFLaTeX(context.Background(), "test.tex", "/tmp/workdir")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	require.Len(t, runner.calls, 2)

	typeset := runner.calls[0]
	assert.Equal(t, "pdflatex", typeset.command)
	assert.Equal(t, []string{
		"-no-shell-escape",
		"-halt-on-error",
		"-interaction=nonstopmode",
		"-file-line-error",
		"-output-directory=.",
		"test.tex",
	}, typeset.args)
	assert.Equal(t, "/tmp/workdir", typeset.opts.Dir)
	assert.Equal(t, 15*time.Second, typeset.opts.Timeout)
	assert.Equal(t, "/tmp/workdir", typeset.opts.Env["TEXMFOUTPUT"])
	assert.Equal(t, "r", typeset.opts.Env["openout_any"])
	assert.Equal(t, "a", typeset.opts.Env["openin_any"])

	raster := runner.calls[1]
	assert.Equal(t, "convert", raster.command)
	assert.Equal(t, "test.pdf", raster.args[0])
	assert.Equal(t, "test.png", raster.args[len(raster.args)-1])
	assert.Equal(t, 30*time.Second, raster.opts.Timeout)
	assert.Equal(t, "2GB", raster.opts.Env["MAGICK_MEMORY_LIMIT"])
	assert.Equal(t, "4GB", raster.opts.Env["MAGICK_MAP_LIMIT"])
	assert.Equal(t, "8GB", raster.opts.Env["MAGICK_DISK_LIMIT"])
	assert.Equal(t, "120", raster.opts.Env["MAGICK_TIME_LIMIT"])
}

func TestCompilePDFLaTeXStripsTraversal(t *testing.T) {
	runner := &fakeRunner{}
	p := New(runner)

	_, err := p.CompilePDFLaTeX(context.Background(), "../../evil/test.tex", "/tmp/workdir")
	require.NoError(t, err)

	for _, call := range runner.calls {
		for _, arg := range call.args {
			assert.NotContains(t, arg, "..", "traversal leaked into %s args", call.command)
		}
	}
	typeset := runner.calls[0]
	assert.Equal(t, "test.tex", typeset.args[len(typeset.args)-1])
}

func TestCompilePDFLaTeXConversionFailureIsSwallowed(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{
		"convert": &execx.TimeoutError{Timeout: 30 * time.Second},
	}}
	p := New(runner)

	res, err := p.CompilePDFLaTeX(context.Background(), "test.tex", "/tmp/workdir")
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Len(t, runner.calls, 2)
}

func TestCompilePDFLaTeXTypesetFailurePropagates(t *testing.T) {
	wantErr := &execx.ExitError{Code: 1, Stderr: "! Undefined control sequence."}
	runner := &fakeRunner{errs: map[string]error{"pdflatex": wantErr}}
	p := New(runner)

	res, err := p.CompilePDFLaTeX(context.Background(), "test.tex", "/tmp/workdir")
	assert.Nil(t, res)
	var exitErr *execx.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, err.Error(), "Undefined control sequence")

	// The rasterize step never ran.
	assert.Len(t, runner.calls, 1)
}

func TestConvertImageSpawnContract(t *testing.T) {
	runner := &fakeRunner{}
	p := New(runner)

	_, err := p.ConvertImage(context.Background(), "equation.pdf", "equation.png", "/tmp/workdir")
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)

	call := runner.calls[0]
	assert.Equal(t, "convert", call.command)
	assert.Equal(t, "equation.pdf", call.args[0])
	assert.Equal(t, "equation.png", call.args[len(call.args)-1])
	assert.Contains(t, strings.Join(call.args, " "), "-quality 95")
	assert.Contains(t, strings.Join(call.args, " "), "-colorspace sRGB")
	assert.Equal(t, "/tmp/workdir", call.opts.Dir)
}

func TestConvertImageStripsPaths(t *testing.T) {
	runner := &fakeRunner{}
	p := New(runner)

	_, err := p.ConvertImage(context.Background(), "/abs/path/in.pdf", "../out.png", "/tmp/workdir")
	require.NoError(t, err)

	call := runner.calls[0]
	assert.Equal(t, "in.pdf", call.args[0])
	assert.Equal(t, "out.png", call.args[len(call.args)-1])
}

func TestConvertImageFailurePropagates(t *testing.T) {
	wantErr := errors.New("convert blew up")
	runner := &fakeRunner{errs: map[string]error{"convert": wantErr}}
	p := New(runner)

	_, err := p.ConvertImage(context.Background(), "a.pdf", "a.png", "/tmp/workdir")
	assert.ErrorIs(t, err, wantErr)
}

// Package render drives one equation job end to end: work directory, source
// file, typeset pipeline, result bookkeeping.
package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"eqrender/internal/execx"
	"eqrender/internal/latex/compiler"
	"eqrender/internal/latex/filestore"
	"eqrender/internal/latex/job"
	"eqrender/internal/objstore"
	"eqrender/internal/store"
)

const (
	sourceName = "equation.tex"
	pdfName    = "equation.pdf"
	pngName    = "equation.png"
)

// Typesetter is the pipeline contract the renderer needs.
type Typesetter interface {
	CompilePDFLaTeX(ctx context.Context, texFilename, workDir string) (*execx.Result, error)
}

// Renderer renders equations via the secure pipeline. Objects is optional;
// when set, finished PNGs are uploaded there.
type Renderer struct {
	Pipeline     Typesetter
	Objects      *objstore.Store
	CleanupAfter time.Duration
}

// documentTemplate wraps the validated equation in a minimal standalone
// document sized to its content.
const documentTemplate = `\documentclass[preview,border=4pt]{standalone}
\usepackage{amsmath}
\usepackage{amssymb}
\begin{document}
\[
%s
\]
\end{document}
`

// Render runs the job to completion and closes its channels. Workers call
// this once per job.
func (r *Renderer) Render(j *job.RenderJob) {
	defer close(j.Done)
	defer close(j.LogLines)

	workDir, err := filestore.CreateJobDir(j.ID)
	if err != nil {
		r.fail(j, "failed to create work directory: "+err.Error())
		return
	}
	j.WorkDir = workDir
	defer filestore.ScheduleCleanup(j.ID, r.cleanupAfter())

	texPath := filepath.Join(workDir, sourceName)
	doc := fmt.Sprintf(documentTemplate, j.Latex)
	if err := os.WriteFile(texPath, []byte(doc), 0600); err != nil {
		r.fail(j, "failed to write source: "+err.Error())
		return
	}

	res, err := r.Pipeline.CompilePDFLaTeX(context.Background(), sourceName, workDir)
	pdfPath := filepath.Join(workDir, pdfName)
	pngPath := filepath.Join(workDir, pngName)

	if err != nil {
		var exitErr *execx.ExitError
		if errors.As(err, &exitErr) {
			if _, statErr := os.Stat(pdfPath); statErr == nil {
				// PDF was produced despite errors; nonstopmode continues
				// past many of them.
				r.finish(j, pdfPath, pngPath, parseRenderError(workDir))
				return
			}
			r.fail(j, parseRenderError(workDir))
			return
		}
		r.fail(j, err.Error())
		return
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		select {
		case j.LogLines <- line:
		default:
		}
	}

	if _, err := os.Stat(pdfPath); err != nil {
		r.fail(j, "PDF was not produced: "+err.Error())
		return
	}
	r.finish(j, pdfPath, pngPath, "")
}

func (r *Renderer) finish(j *job.RenderJob, pdfPath, pngPath, warning string) {
	if _, err := os.Stat(pngPath); err != nil {
		// Rasterization is best-effort; the PDF alone is a success.
		pngPath = ""
	}
	if warning != "" {
		j.SetDoneWithWarning(pdfPath, pngPath, warning)
	} else {
		j.SetDone(pdfPath, pngPath)
	}
	if pngPath != "" && r.Objects != nil {
		r.upload(j.ID, pngPath)
	}
	r.record(j)
}

func (r *Renderer) fail(j *job.RenderJob, msg string) {
	j.SetError(msg)
	r.record(j)
}

func (r *Renderer) upload(jobID, pngPath string) {
	f, err := os.Open(pngPath)
	if err != nil {
		log.Printf("render: open %s: %v", pngPath, err)
		return
	}
	defer f.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.Objects.PutPNG(ctx, jobID, f); err != nil {
		log.Printf("render: upload png for job %s: %v", jobID, err)
	}
}

func (r *Renderer) record(j *job.RenderJob) {
	if err := store.UpdateStatus(j.ID, string(j.GetStatus()), j.GetError()); err != nil {
		log.Printf("render: record job %s: %v", j.ID, err)
	}
}

func (r *Renderer) cleanupAfter() time.Duration {
	if r.CleanupAfter > 0 {
		return r.CleanupAfter
	}
	return time.Hour
}

// parseRenderError extracts the first friendly diagnostic from the pdflatex
// log left in the work directory.
func parseRenderError(workDir string) string {
	logPath := filepath.Join(workDir, strings.TrimSuffix(sourceName, ".tex")+".log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		return "Rendering failed, could not read log"
	}
	parsed := compiler.ParseLog(strings.Split(string(data), "\n"))
	if len(parsed.Errors) > 0 {
		return parsed.Errors[0].Message
	}
	return "Rendering failed, check LaTeX syntax"
}

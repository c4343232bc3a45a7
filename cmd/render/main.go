// One-shot renderer: reads a LaTeX equation from stdin, validates it, and
// renders PDF/PNG into EQRENDER_OUTPUT_DIR. Useful for cron jobs and
// debugging without the HTTP server.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"eqrender/internal/execx"
	"eqrender/internal/latex/compiler"
	"eqrender/internal/latex/validator"
	"eqrender/internal/store"
)

const document = `\documentclass[preview,border=4pt]{standalone}
\usepackage{amsmath}
\usepackage{amssymb}
\begin{document}
\[
%s
\]
\end{document}
`

func main() {
	if err := godotenv.Load("config/.env"); err != nil {
		log.Println("No .env file found, relying on system env vars")
	}

	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("read stdin: %v", err)
	}

	res := validator.Check(string(source))
	if !res.Valid {
		for _, msg := range res.Errors {
			fmt.Fprintln(os.Stderr, "rejected:", msg)
		}
		os.Exit(1)
	}

	workDir, err := os.MkdirTemp("", "eqrender-*")
	if err != nil {
		log.Fatalf("create work dir: %v", err)
	}
	defer os.RemoveAll(workDir)

	texPath := filepath.Join(workDir, "equation.tex")
	doc := fmt.Sprintf(document, source)
	if err := os.WriteFile(texPath, []byte(doc), 0600); err != nil {
		log.Fatalf("write source: %v", err)
	}

	id := uuid.New().String()
	if err := store.Init(); err != nil {
		log.Fatalf("init render history: %v", err)
	}
	if err := store.RecordRender(id, store.SourceSHA(string(source))); err != nil {
		log.Printf("record render: %v", err)
	}

	pipeline := compiler.New(execx.New())
	if _, err := pipeline.CompilePDFLaTeX(context.Background(), "equation.tex", workDir); err != nil {
		_ = store.UpdateStatus(id, "error", err.Error())
		log.Fatalf("render failed: %v", err)
	}

	outDir := os.Getenv("EQRENDER_OUTPUT_DIR")
	if outDir == "" {
		outDir = "."
	}
	for _, name := range []string{"equation.pdf", "equation.png"} {
		src := filepath.Join(workDir, name)
		data, err := os.ReadFile(src)
		if err != nil {
			continue // png is best-effort
		}
		dst := filepath.Join(outDir, name)
		if err := os.WriteFile(dst, data, 0644); err != nil {
			log.Fatalf("write %s: %v", dst, err)
		}
		fmt.Println(dst)
	}
	_ = store.UpdateStatus(id, "done", "")
}

package latex

import (
	"eqrender/internal/latex/job"
	"eqrender/internal/latex/render"
)

// JobQueue is the buffered channel for render jobs.
var JobQueue chan *job.RenderJob

// StartWorkerPool launches N worker goroutines.
func StartWorkerPool(n int, r *render.Renderer) {
	JobQueue = make(chan *job.RenderJob, 100)
	for i := 0; i < n; i++ {
		go worker(JobQueue, r)
	}
}

func worker(jobs <-chan *job.RenderJob, r *render.Renderer) {
	for j := range jobs {
		j.SetStatus(job.StatusRendering)
		r.Render(j)
	}
}

package job

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a render job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRendering Status = "rendering"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// RenderJob holds all state for one equation render.
type RenderJob struct {
	ID        string
	Status    Status
	Latex     string
	WorkDir   string
	PDFPath   string
	PNGPath   string
	LogLines  chan string   // streaming log lines
	Done      chan struct{} // closed when job finishes
	Error     string
	CreatedAt time.Time

	mu sync.RWMutex
}

// NewRenderJob creates a pending job for the given equation source.
func NewRenderJob(latex string) *RenderJob {
	return &RenderJob{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		Latex:     latex,
		LogLines:  make(chan string, 256),
		Done:      make(chan struct{}),
		CreatedAt: time.Now(),
	}
}

// SetStatus updates job status (thread-safe).
func (j *RenderJob) SetStatus(s Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = s
}

// GetStatus returns current job status (thread-safe).
func (j *RenderJob) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetError sets error message and status to error.
func (j *RenderJob) SetError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Error = err
	j.Status = StatusError
}

// SetDone records output paths and status done.
func (j *RenderJob) SetDone(pdfPath, pngPath string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.PDFPath = pdfPath
	j.PNGPath = pngPath
	j.Status = StatusDone
}

// SetDoneWithWarning marks the job done but keeps the first diagnostic from
// the log. A PDF was produced despite pdflatex exiting non-zero; nonstopmode
// continues past many error types.
func (j *RenderJob) SetDoneWithWarning(pdfPath, pngPath, warning string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.PDFPath = pdfPath
	j.PNGPath = pngPath
	j.Status = StatusDone
	j.Error = warning
}

// GetError returns the recorded error or warning (thread-safe).
func (j *RenderJob) GetError() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Error
}

// Registry for concurrent access.
var registry sync.Map

// RegisterJob stores a job in the registry.
func RegisterJob(j *RenderJob) {
	registry.Store(j.ID, j)
}

// GetJob retrieves a job by ID.
func GetJob(jobID string) (*RenderJob, bool) {
	v, ok := registry.Load(jobID)
	if !ok {
		return nil, false
	}
	return v.(*RenderJob), true
}

// DeleteJob removes a job from the registry.
func DeleteJob(jobID string) {
	registry.Delete(jobID)
}

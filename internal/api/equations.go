package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"

	"eqrender/internal/latex/job"
	"eqrender/internal/latex/validator"
	"eqrender/internal/objstore"
	"eqrender/internal/store"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// Handler carries the wiring the equation endpoints need.
type Handler struct {
	Queue chan<- *job.RenderJob
	// TokenHash is a bcrypt hash of the shared render token. Empty means
	// only presence of a token is required.
	TokenHash string
	// Objects is the optional PNG object store, used as a fallback once the
	// local work directory is cleaned up.
	Objects *objstore.Store
}

func apiError(w http.ResponseWriter, errMsg, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}{Error: errMsg, Code: code})
}

// RenderRequest is the JSON body for POST /api/equations.
type RenderRequest struct {
	Token string `json:"token"`
	Latex string `json:"latex"`
}

// RenderResponse is the immediate response with jobId.
type RenderResponse struct {
	JobID string `json:"jobId"`
}

// StatusResponse is the job status response.
type StatusResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Warning string `json:"warning,omitempty"` // set when done with diagnostics (e.g. overfull box)
}

// validationError is the per-field failure response.
type validationError struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields"`
}

// maxRequestBody bounds POST bodies well above any valid equation (2000
// chars) plus token and JSON framing.
const maxRequestBody = 64 << 10

// PostEquation handles POST /api/equations. The safety validator runs here,
// before any job exists: malicious input never reaches process creation.
func (h *Handler) PostEquation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apiError(w, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return
		}
		apiError(w, "failed to read body", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req RenderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		apiError(w, "invalid JSON", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	fields := map[string][]string{}
	if req.Token == "" {
		fields["token"] = []string{"token is required"}
	} else if h.TokenHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(h.TokenHash), []byte(req.Token)); err != nil {
			apiError(w, "invalid token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
	}
	if req.Latex == "" {
		fields["latex"] = []string{"latex is required"}
	} else if res := validator.Check(req.Latex); !res.Valid {
		fields["latex"] = res.Errors
	}
	if len(fields) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationError{
			Error:  "validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: fields,
		})
		return
	}

	j := job.NewRenderJob(req.Latex)
	job.RegisterJob(j)
	if err := store.RecordRender(j.ID, store.SourceSHA(req.Latex)); err != nil {
		log.Printf("api: record render %s: %v", j.ID, err)
	}
	h.Queue <- j

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RenderResponse{JobID: j.ID})
}

// GetEquationStatus handles GET /api/equations/{jobId}/status.
func (h *Handler) GetEquationStatus(w http.ResponseWriter, r *http.Request) {
	j, ok := lookupJob(w, r)
	if !ok {
		return
	}
	resp := StatusResponse{JobID: j.ID, Status: string(j.GetStatus())}
	if j.GetStatus() == job.StatusDone {
		resp.Warning = j.GetError()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// GetEquationPDF handles GET /api/equations/{jobId}/pdf.
func (h *Handler) GetEquationPDF(w http.ResponseWriter, r *http.Request) {
	j, ok := lookupJob(w, r)
	if !ok {
		return
	}
	if j.GetStatus() != job.StatusDone || j.PDFPath == "" {
		apiError(w, "PDF not ready", "PDF_NOT_READY", http.StatusNotFound)
		return
	}
	f, err := os.Open(j.PDFPath)
	if err != nil {
		apiError(w, "failed to read PDF", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="equation.pdf"`)
	http.ServeContent(w, r, "equation.pdf", j.CreatedAt, f)
}

// GetEquationPNG handles GET /api/equations/{jobId}/png. Falls back to the
// object store when the local work directory is gone.
func (h *Handler) GetEquationPNG(w http.ResponseWriter, r *http.Request) {
	j, ok := lookupJob(w, r)
	if !ok {
		return
	}
	if j.GetStatus() != job.StatusDone || j.PNGPath == "" {
		apiError(w, "PNG not ready", "PNG_NOT_READY", http.StatusNotFound)
		return
	}
	if f, err := os.Open(j.PNGPath); err == nil {
		defer f.Close()
		w.Header().Set("Content-Type", "image/png")
		http.ServeContent(w, r, "equation.png", j.CreatedAt, f)
		return
	}
	if h.Objects != nil {
		body, err := h.Objects.GetPNG(r.Context(), j.ID)
		if err == nil {
			defer body.Close()
			w.Header().Set("Content-Type", "image/png")
			_, _ = io.Copy(w, body)
			return
		}
		log.Printf("api: png fallback for job %s: %v", j.ID, err)
	}
	apiError(w, "PNG not found", "PNG_NOT_READY", http.StatusNotFound)
}

// GetEquationLogs handles GET /api/equations/{jobId}/logs (SSE).
func (h *Handler) GetEquationLogs(w http.ResponseWriter, r *http.Request) {
	j, ok := lookupJob(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		return
	}
	sendEvent := func(evt map[string]string) bool {
		b, _ := json.Marshal(evt)
		if _, err := w.Write([]byte("data: " + string(b) + "\n\n")); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-r.Context().Done():
			log.Printf("client disconnected from render logs: %s", r.RemoteAddr)
			return
		case line, open := <-j.LogLines:
			if !open {
				switch j.GetStatus() {
				case job.StatusDone:
					evt := map[string]string{"status": "done", "pngUrl": "/api/equations/" + j.ID + "/png"}
					if warning := j.GetError(); warning != "" {
						evt["warning"] = warning
					}
					sendEvent(evt)
				case job.StatusError:
					sendEvent(map[string]string{"status": "error", "message": j.GetError()})
				default:
					sendEvent(map[string]string{"status": string(j.GetStatus())})
				}
				return
			}
			if !sendEvent(map[string]string{"line": line}) {
				return
			}
		}
	}
}

// Healthz is the liveness probe.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func lookupJob(w http.ResponseWriter, r *http.Request) (*job.RenderJob, bool) {
	jobID := mux.Vars(r)["jobId"]
	if jobID == "" {
		apiError(w, "job not found", "JOB_NOT_FOUND", http.StatusNotFound)
		return nil, false
	}
	j, ok := job.GetJob(jobID)
	if !ok {
		apiError(w, "job not found", "JOB_NOT_FOUND", http.StatusNotFound)
		return nil, false
	}
	return j, true
}

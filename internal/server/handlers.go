package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/peerwaya/watermark-kit/internal/geometry"
	"github.com/peerwaya/watermark-kit/internal/job"
	"github.com/peerwaya/watermark-kit/internal/media"
	"github.com/peerwaya/watermark-kit/internal/overlay"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   *job.Service
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateJob handles POST /jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	composeReq, err := toComposeRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	created, err := h.service.Start(r.Context(), composeReq)
	if err != nil {
		if errors.Is(err, job.ErrSourceRequired) {
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
			return
		}
		h.logger.Error("failed to start job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to start job", "JOB_START_FAILED")
		return
	}

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:         created.ID,
		Status:     string(created.Status),
		OutputPath: created.OutputPath,
	})
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(found))
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_LIST_FAILED")
		return
	}

	resp := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, toJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelJob handles DELETE /jobs/{id} requests. Cancellation is cooperative:
// the response reports the status at request time, and the job moves to
// CANCELLED once the worker reaches the next frame boundary.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	if err := h.service.Cancel(r.Context(), jobID); err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to cancel job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to cancel job", "JOB_CANCEL_FAILED")
		return
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}
	writeJSON(w, http.StatusAccepted, toJobResponse(found))
}

// toComposeRequest maps the DTO onto the domain request, enforcing the
// cross-field rules the struct tags cannot express.
func toComposeRequest(req CreateJobRequest) (job.ComposeRequest, error) {
	var zero job.ComposeRequest

	if req.OverlayImageBase64 != "" && req.OverlayText != "" {
		return zero, errors.New("overlay_image_base64 and overlay_text are mutually exclusive")
	}
	if (req.OutputWidth == 0) != (req.OutputHeight == 0) {
		return zero, errors.New("output_width and output_height must be set together")
	}

	out := job.ComposeRequest{
		SourcePath:   req.SourcePath,
		OutputPath:   req.OutputPath,
		Anchor:       geometry.Anchor(req.Anchor),
		Margin:       req.Margin,
		MarginUnit:   geometry.Unit(req.MarginUnit),
		OffsetX:      req.OffsetX,
		OffsetY:      req.OffsetY,
		OffsetUnit:   geometry.Unit(req.OffsetUnit),
		WidthPercent: req.WidthPercent,
		Opacity:      req.Opacity,
		Codec:        media.Codec(req.Codec),
		Bitrate:      req.Bitrate,
		FrameRateCap: req.FrameRateCap,
		PublishToS3:  req.PublishToS3,
	}

	if req.OverlayImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.OverlayImageBase64)
		if err != nil {
			return zero, errors.New("overlay_image_base64 is not valid base64")
		}
		out.Overlay = overlay.FromImage(data)
	} else if req.OverlayText != "" {
		out.Overlay = overlay.FromText(req.OverlayText, overlay.Style{
			FontSize: req.FontSize,
			Color:    req.TextColor,
		})
	}

	if req.OutputWidth > 0 {
		out.OutputSize = &geometry.Size{Width: req.OutputWidth, Height: req.OutputHeight}
	}
	// An absent background stays zero so the domain default (opaque black)
	// applies; ParseColor's white fallback is only for explicit values.
	if req.Background != "" {
		out.Background = overlay.ParseColor(req.Background)
	}

	return out, nil
}

func toJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:         j.ID,
		Status:     string(j.Status),
		Progress:   j.Progress,
		ETASeconds: j.ETASeconds,
		Error:      j.Error,
		ErrorKind:  string(j.ErrorKind),
		OutputPath: j.OutputPath,
	}
	if j.Result != nil {
		resp.OutputPath = j.Result.OutputPath
		resp.Width = j.Result.Width
		resp.Height = j.Result.Height
		resp.DurationMs = j.Result.DurationMs
		resp.URL = j.Result.URL
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// Package api exposes HTTP handlers for reports, sync jobs and cached workouts.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/fitsync/internal/auth"
	"example.com/fitsync/internal/domain"
	"example.com/fitsync/internal/engine"
	"example.com/fitsync/internal/persistence"
	"example.com/fitsync/internal/state"
)

// Engine is the subset of *engine.Engine the handlers drive.
type Engine interface {
	RequestReport(tf domain.TimeFrame)
	RunReport(tf domain.TimeFrame)
	RefreshReport(force bool) bool
	SelectItem(ctx context.Context, activity domain.ActivityType, cursor *domain.Cursor, limit int) (engine.Selection, error)
	StartBackfill() error
	ResetBackfill(ctx context.Context) error
	Status() []engine.JobStatus
	TimeFrame() domain.TimeFrame
}

// Snapshots loads the last published report per time frame.
type Snapshots interface {
	LoadReport(ctx context.Context, tf domain.TimeFrame) (state.Snapshot, bool, error)
}

// Workouts lists cached workout records.
type Workouts interface {
	ListRecent(ctx context.Context, filter domain.WorkoutFilter, cursor *domain.Cursor, limit int) ([]domain.WorkoutRecord, *domain.Cursor, error)
}

// Handler coordinates HTTP requests with the sync engine.
type Handler struct {
	engine    Engine
	snapshots Snapshots
	workouts  Workouts
	logger    *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(e Engine, snapshots Snapshots, workouts Workouts, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: e, snapshots: snapshots, workouts: workouts, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/report", h.report)
	mux.HandleFunc("/v1/report/refresh", h.refreshReport)
	mux.HandleFunc("/v1/report/select", h.selectItem)
	mux.HandleFunc("/v1/sync/backfill", h.startBackfill)
	mux.HandleFunc("/v1/sync/state", h.syncState)
	mux.HandleFunc("/v1/sync/status", h.syncStatus)
	mux.HandleFunc("/v1/workouts", h.listWorkouts)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) || !requireScope(w, r, auth.ScopeReportsRead, auth.ScopeSyncWrite) {
		return
	}

	tf, ok := h.timeFrameParam(w, r)
	if !ok {
		return
	}

	snap, found, err := h.snapshots.LoadReport(r.Context(), tf)
	if err != nil {
		h.serverError(w, "load report", err)
		return
	}
	if !found {
		h.engine.RunReport(tf)
		writeJSON(w, http.StatusAccepted, JobAccepted{Job: string(engine.JobReport), TimeFrame: tf.String()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) refreshReport(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) || !requireScope(w, r, auth.ScopeReportsRead, auth.ScopeSyncWrite) {
		return
	}

	if r.URL.Query().Get("timeframe") != "" {
		tf, ok := h.timeFrameParam(w, r)
		if !ok {
			return
		}
		h.engine.RequestReport(tf)
	} else {
		h.engine.RefreshReport(true)
	}
	writeJSON(w, http.StatusAccepted, JobAccepted{Job: string(engine.JobReport), TimeFrame: h.engine.TimeFrame().String()})
}

func (h *Handler) selectItem(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) || !requireScope(w, r, auth.ScopeReportsRead, auth.ScopeSyncWrite) {
		return
	}

	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.ActivityType == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "activity_type is required")
		return
	}
	cursor, err := persistence.DecodeCursor(req.Cursor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	sel, err := h.engine.SelectItem(r.Context(), domain.ActivityType(*req.ActivityType), cursor, req.Limit)
	if err != nil {
		h.serverError(w, "select item", err)
		return
	}

	resp := SelectResponse{
		Advanced:   sel.Advanced,
		TimeFrame:  sel.TimeFrame.String(),
		Label:      sel.TimeFrame.Label(),
		NextCursor: persistence.EncodeCursor(sel.Next),
	}
	if !sel.Advanced {
		resp.Workouts = toWorkoutViews(sel.Workouts)
	}
	status := http.StatusOK
	if sel.Advanced {
		status = http.StatusAccepted
	}
	writeJSON(w, status, resp)
}

func (h *Handler) startBackfill(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) || !requireScope(w, r, auth.ScopeSyncWrite) {
		return
	}
	h.acceptJob(w, h.engine.StartBackfill())
}

func (h *Handler) syncState(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) || !requireScope(w, r, auth.ScopeSyncWrite) {
		return
	}
	h.acceptJob(w, h.engine.ResetBackfill(r.Context()))
}

func (h *Handler) acceptJob(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrJobInFlight):
		writeError(w, http.StatusConflict, "job_in_flight", "a backfill is already running")
	case err != nil:
		h.serverError(w, "start backfill", err)
	default:
		writeJSON(w, http.StatusAccepted, JobAccepted{Job: string(engine.JobBackfill)})
	}
}

func (h *Handler) syncStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) || !requireScope(w, r, auth.ScopeReportsRead, auth.ScopeSyncWrite) {
		return
	}

	statuses := h.engine.Status()
	resp := StatusResponse{
		TimeFrame: h.engine.TimeFrame().String(),
		Jobs:      make([]JobView, 0, len(statuses)),
	}
	for _, st := range statuses {
		resp.Jobs = append(resp.Jobs, toJobView(st))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) || !requireScope(w, r, auth.ScopeReportsRead, auth.ScopeSyncWrite) {
		return
	}

	q := r.URL.Query()
	var filter domain.WorkoutFilter
	if raw := strings.TrimSpace(q.Get("activity_type")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "activity_type must be an integer")
			return
		}
		activity := domain.ActivityType(parsed)
		filter.Type = &activity
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(q.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.workouts.ListRecent(r.Context(), filter, cursor, limit)
	if err != nil {
		h.serverError(w, "list workouts", err)
		return
	}
	writeJSON(w, http.StatusOK, ListWorkoutsResponse{
		Items:      toWorkoutViews(records),
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) timeFrameParam(w http.ResponseWriter, r *http.Request) (domain.TimeFrame, bool) {
	raw := r.URL.Query().Get("timeframe")
	if raw == "" {
		return h.engine.TimeFrame(), true
	}
	tf, err := domain.ParseTimeFrame(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return 0, false
	}
	return tf, true
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "server_error", err.Error())
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return false
	}
	return true
}

func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) bool {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	if !claims.HasAny(scopes...) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
		return false
	}
	return true
}

// SelectRequest is the payload for POST /v1/report/select.
type SelectRequest struct {
	ActivityType *int   `json:"activity_type"`
	Cursor       string `json:"cursor,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// SelectResponse reports either the advanced time frame or the workouts of the selected type.
type SelectResponse struct {
	Advanced   bool          `json:"advanced"`
	TimeFrame  string        `json:"timeframe"`
	Label      string        `json:"label"`
	Workouts   []WorkoutView `json:"workouts,omitempty"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// JobAccepted acknowledges a queued job.
type JobAccepted struct {
	Job       string `json:"job"`
	TimeFrame string `json:"timeframe,omitempty"`
}

// WorkoutView is the wire form of a cached workout.
type WorkoutView struct {
	ID           int64     `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   int64     `json:"duration_ms"`
	StepCount    int       `json:"step_count"`
	ActivityType int       `json:"activity_type"`
	ActivityName string    `json:"activity_name"`
}

// ListWorkoutsResponse packages list results.
type ListWorkoutsResponse struct {
	Items      []WorkoutView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// JobView describes the latest run of a job kind.
type JobView struct {
	Kind       string     `json:"kind"`
	State      string     `json:"state"`
	RunID      string     `json:"run_id,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Inserted   int        `json:"inserted,omitempty"`
	TimeFrame  string     `json:"timeframe,omitempty"`
}

// StatusResponse lists job states and the selected time frame.
type StatusResponse struct {
	TimeFrame string    `json:"timeframe"`
	Jobs      []JobView `json:"jobs"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toWorkoutViews(records []domain.WorkoutRecord) []WorkoutView {
	views := make([]WorkoutView, 0, len(records))
	for _, rec := range records {
		views = append(views, WorkoutView{
			ID:           rec.ID,
			StartedAt:    rec.Start,
			DurationMs:   rec.Duration.Milliseconds(),
			StepCount:    rec.StepCount,
			ActivityType: int(rec.Type),
			ActivityName: rec.Type.String(),
		})
	}
	return views
}

func toJobView(st engine.JobStatus) JobView {
	view := JobView{
		Kind:     string(st.Kind),
		State:    string(st.State),
		RunID:    st.RunID,
		Error:    st.Error,
		Inserted: st.Inserted,
	}
	if !st.StartedAt.IsZero() {
		started := st.StartedAt
		view.StartedAt = &started
	}
	if !st.FinishedAt.IsZero() {
		finished := st.FinishedAt
		view.FinishedAt = &finished
	}
	if st.Kind == engine.JobReport && st.State != engine.StateIdle {
		view.TimeFrame = st.TimeFrame.String()
	}
	return view
}

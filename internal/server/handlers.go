package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/NewSmoke38/SED-Manager/internal/device"
	"github.com/NewSmoke38/SED-Manager/internal/errors"
	"github.com/go-chi/chi/v5"
)

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Message:   "Secure Edge Device Manager API",
		Timestamp: s.now().UTC().Format("2006-01-02T15:04:05.000000"),
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.store.List(r.Context())
	if err != nil {
		s.deviceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, devices, "Devices retrieved successfully")
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var in device.NewDevice
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
		return
	}

	d, err := s.store.Create(r.Context(), in)
	if err != nil {
		s.deviceError(w, r, err)
		return
	}
	s.log.Info("registered device %s (%s:%d)", d.ID, d.Host, d.Port)
	respond(w, http.StatusCreated, d, "Device added successfully")
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.deviceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, d, "Device retrieved successfully")
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.deviceError(w, r, err)
		return
	}
	s.log.Info("removed device %s", id)
	respond(w, http.StatusOK, nil, "Device deleted successfully")
}

// handleDeviceMetrics collects a snapshot and records the outcome on the
// device. A failed status update is logged but the snapshot is still
// returned.
func (s *Server) handleDeviceMetrics(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.deviceError(w, r, err)
		return
	}

	snap := s.collector.CollectMetrics(r.Context(), d.Spec().Target())

	status := device.StatusOffline
	seen := snap.Timestamp
	if snap.Status.Online {
		status = device.StatusOnline
		if snap.Status.LastSeen != nil {
			seen = *snap.Status.LastSeen
		}
	}
	s.metrics.collections.WithLabelValues(status).Inc()

	if err := s.store.RecordStatus(r.Context(), d.ID, snap.Status.Online, seen); err != nil {
		s.log.Warn("recording status for device %s: %v", d.ID, err)
	}
	respond(w, http.StatusOK, snap, "Metrics retrieved successfully")
}

func (s *Server) handleDeviceLogs(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.deviceError(w, r, err)
		return
	}

	result := s.fetcher.FetchLogs(r.Context(), d.Spec().Target())
	respond(w, http.StatusOK, result, "Logs retrieved successfully")
}

// deviceError maps registry failures to responses: missing devices are
// 404, invalid input 422 with per-field details, anything else 500.
func (s *Server) deviceError(w http.ResponseWriter, r *http.Request, err error) {
	if stderrors.Is(err, device.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Device not found", nil)
		return
	}

	var verr *device.ValidationError
	if stderrors.As(err, &verr) {
		respondError(w, http.StatusUnprocessableEntity, "Invalid device", verr.Fields)
		return
	}

	s.log.Error("registry request %s %s failed: %s (request %s)",
		r.Method, r.URL.Path, errors.Message(err), RequestID(r.Context()))
	respondError(w, http.StatusInternalServerError, "Internal server error", nil)
}

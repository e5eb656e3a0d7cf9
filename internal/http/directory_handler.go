package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"shuttle-ledger/internal/service"
)

// DirectoryHandler student and school administration
type DirectoryHandler struct {
	directory service.DirectoryService
	logger    *zap.Logger
}

func NewDirectoryHandler(directory service.DirectoryService, logger *zap.Logger) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, logger: logger}
}

func (h *DirectoryHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "ListStudents", err)
		return
	}
	q := r.URL.Query()
	items, err := h.directory.ListStudents(r.Context(), actor, service.StudentQuery{
		SchoolID:   q.Get("school_id"),
		ParentID:   q.Get("parent_id"),
		Unassigned: q.Get("unassigned") == "true",
	})
	if err != nil {
		writeError(w, h.logger, "ListStudents", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(PageOf(items)))
}

func (h *DirectoryHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "GetStudent", err)
		return
	}
	st, err := h.directory.GetStudent(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "GetStudent", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

func (h *DirectoryHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "CreateStudent", err)
		return
	}
	var req service.StudentInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "CreateStudent", err)
		return
	}
	st, err := h.directory.CreateStudent(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, "CreateStudent", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

func (h *DirectoryHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "UpdateStudent", err)
		return
	}
	var req service.StudentInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "UpdateStudent", err)
		return
	}
	st, err := h.directory.UpdateStudent(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, "UpdateStudent", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

func (h *DirectoryHandler) AssignSchool(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "AssignSchool", err)
		return
	}
	var body struct {
		SchoolID string `json:"school_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.logger, "AssignSchool", err)
		return
	}
	st, err := h.directory.AssignSchool(r.Context(), actor, r.PathValue("id"), body.SchoolID)
	if err != nil {
		writeError(w, h.logger, "AssignSchool", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

func (h *DirectoryHandler) UnassignSchool(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "UnassignSchool", err)
		return
	}
	st, err := h.directory.UnassignSchool(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "UnassignSchool", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

// SetSuspension {"suspended_at": null} lifts the suspension
func (h *DirectoryHandler) SetSuspension(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "SetSuspension", err)
		return
	}
	var body struct {
		SuspendedAt *time.Time `json:"suspended_at"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.logger, "SetSuspension", err)
		return
	}
	st, err := h.directory.SetSuspension(r.Context(), actor, r.PathValue("id"), body.SuspendedAt)
	if err != nil {
		writeError(w, h.logger, "SetSuspension", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

func (h *DirectoryHandler) ListSchools(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "ListSchools", err)
		return
	}
	items, err := h.directory.ListSchools(r.Context(), actor)
	if err != nil {
		writeError(w, h.logger, "ListSchools", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(PageOf(items)))
}

func (h *DirectoryHandler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "CreateSchool", err)
		return
	}
	var req service.SchoolInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "CreateSchool", err)
		return
	}
	sc, err := h.directory.CreateSchool(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, "CreateSchool", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sc))
}

func (h *DirectoryHandler) UpdateSchool(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "UpdateSchool", err)
		return
	}
	var req service.SchoolUpdate
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "UpdateSchool", err)
		return
	}
	sc, err := h.directory.UpdateSchool(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, "UpdateSchool", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(sc))
}

func (h *DirectoryHandler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "DeleteSchool", err)
		return
	}
	id := r.PathValue("id")
	if err := h.directory.DeleteSchool(r.Context(), actor, id); err != nil {
		writeError(w, h.logger, "DeleteSchool", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"school_id": id}))
}

// ListRoutes ?school_id= is required
func (h *DirectoryHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "ListRoutes", err)
		return
	}
	items, err := h.directory.ListRoutes(r.Context(), actor, r.URL.Query().Get("school_id"))
	if err != nil {
		writeError(w, h.logger, "ListRoutes", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(PageOf(items)))
}

func (h *DirectoryHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "GetRoute", err)
		return
	}
	rt, err := h.directory.GetRoute(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "GetRoute", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rt))
}

func (h *DirectoryHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "CreateRoute", err)
		return
	}
	var req service.RouteInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "CreateRoute", err)
		return
	}
	rt, err := h.directory.CreateRoute(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, "CreateRoute", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rt))
}

func (h *DirectoryHandler) UpdateRoute(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "UpdateRoute", err)
		return
	}
	var req service.RouteUpdate
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "UpdateRoute", err)
		return
	}
	rt, err := h.directory.UpdateRoute(r.Context(), actor, r.PathValue("id"), req)
	if err != nil {
		writeError(w, h.logger, "UpdateRoute", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rt))
}

func (h *DirectoryHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "DeleteRoute", err)
		return
	}
	id := r.PathValue("id")
	if err := h.directory.DeleteRoute(r.Context(), actor, id); err != nil {
		writeError(w, h.logger, "DeleteRoute", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"route_id": id}))
}

// AssignRoute body {student_ids, route_id, pickup_point}; route_id "" takes students off their route
func (h *DirectoryHandler) AssignRoute(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "AssignRoute", err)
		return
	}
	var req service.RouteAssignment
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "AssignRoute", err)
		return
	}
	items, err := h.directory.AssignRoute(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, "AssignRoute", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(PageOf(items)))
}

package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router http.ServeMux with method-qualified patterns
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) RegisterHealthRoutes() {
	r.Handle("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}

func (r *Router) RegisterPaymentRoutes(h *PaymentsHandler) {
	r.Handle("POST /api/v1/payments", h.RecordPayment)
	r.Handle("GET /api/v1/payments", h.ListPayments)
	r.Handle("GET /api/v1/payments/count", h.CountByStatus)
	r.Handle("GET /api/v1/payments/monthly-summary", h.MonthlySummary)
	r.Handle("GET /api/v1/payments/yearly-summary", h.YearlySummary)
	r.Handle("GET /api/v1/payments/yearly-summary/export", h.ExportYearly)
	r.Handle("GET /api/v1/payments/shortages", h.Shortages)
	r.Handle("GET /api/v1/payments/shortages/export", h.ExportShortages)
	r.Handle("GET /api/v1/payments/status", h.StudentStatus)
	r.Handle("DELETE /api/v1/schools/{id}/payments", h.DeleteSchoolPayments)
}

func (r *Router) RegisterWorkflowRoutes(h *WorkflowHandler) {
	r.Handle("POST /api/v1/payment-checks", h.RequestPaymentCheck)
	r.Handle("POST /api/v1/shortage-notices", h.SendShortageNotices)
	r.Handle("GET /api/v1/alerts", h.ListAlerts)
	r.Handle("DELETE /api/v1/alerts/{id}", h.ResolveAlert)
	r.Handle("PUT /api/v1/students/{id}/pickup", h.ChangePickupPoint)
	r.Handle("POST /api/v1/board/school-match", h.RequestSchoolMatch)
	r.Handle("PUT /api/v1/board/posts/{id}/lock", h.LockBoardPost)
}

func (r *Router) RegisterDirectoryRoutes(h *DirectoryHandler) {
	r.Handle("GET /api/v1/students", h.ListStudents)
	r.Handle("POST /api/v1/students", h.CreateStudent)
	r.Handle("GET /api/v1/students/{id}", h.GetStudent)
	r.Handle("PATCH /api/v1/students/{id}", h.UpdateStudent)
	r.Handle("POST /api/v1/students/{id}/assign", h.AssignSchool)
	r.Handle("POST /api/v1/students/{id}/unassign", h.UnassignSchool)
	r.Handle("POST /api/v1/students/{id}/suspension", h.SetSuspension)
	r.Handle("GET /api/v1/schools", h.ListSchools)
	r.Handle("POST /api/v1/schools", h.CreateSchool)
	r.Handle("PATCH /api/v1/schools/{id}", h.UpdateSchool)
	r.Handle("DELETE /api/v1/schools/{id}", h.DeleteSchool)
	r.Handle("GET /api/v1/routes", h.ListRoutes)
	r.Handle("POST /api/v1/routes", h.CreateRoute)
	r.Handle("GET /api/v1/routes/{id}", h.GetRoute)
	r.Handle("PATCH /api/v1/routes/{id}", h.UpdateRoute)
	r.Handle("DELETE /api/v1/routes/{id}", h.DeleteRoute)
	r.Handle("POST /api/v1/route-assignments", h.AssignRoute)
}

func (r *Router) RegisterBoardRoutes(h *BoardHandler) {
	r.Handle("GET /api/v1/board/posts", h.ListPosts)
	r.Handle("POST /api/v1/board/posts", h.CreatePost)
	r.Handle("GET /api/v1/board/posts/{id}", h.GetPost)
	r.Handle("POST /api/v1/board/posts/{id}/comments", h.AddComment)
}

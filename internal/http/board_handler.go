package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"shuttle-ledger/internal/service"
)

// BoardHandler inquiry board; posting goes through the inquiry workflow
type BoardHandler struct {
	board    service.BoardService
	workflow service.WorkflowService
	logger   *zap.Logger
}

func NewBoardHandler(board service.BoardService, workflow service.WorkflowService, logger *zap.Logger) *BoardHandler {
	return &BoardHandler{board: board, workflow: workflow, logger: logger}
}

func (h *BoardHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "ListPosts", err)
		return
	}
	items, err := h.board.ListPosts(r.Context(), actor, r.URL.Query().Get("school_id"))
	if err != nil {
		writeError(w, h.logger, "ListPosts", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(PageOf(items)))
}

func (h *BoardHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "CreatePost", err)
		return
	}
	var req service.InquiryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "CreatePost", err)
		return
	}
	res, err := h.workflow.RegisterInquiry(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, "CreatePost", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *BoardHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "GetPost", err)
		return
	}
	post, err := h.board.GetPost(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, "GetPost", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(post))
}

func (h *BoardHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, h.logger, "AddComment", err)
		return
	}
	var req service.AddCommentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, "AddComment", err)
		return
	}
	req.PostID = r.PathValue("id")
	c, err := h.board.AddComment(r.Context(), actor, req)
	if err != nil {
		writeError(w, h.logger, "AddComment", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(c))
}

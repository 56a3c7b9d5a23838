package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/caiwu/internal/catalog"
	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
)

type Handler struct {
	svc *catalog.Service
}

func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ProjectRoutes(r chi.Router) {
	r.Get("/", h.listProjects)
	r.Post("/", h.createProject)
	r.Get("/{id}", h.getProject)
	r.Put("/{id}", h.updateProject)
	r.Delete("/{id}", h.deleteProject)
	r.Post("/{id}/restore", h.restoreProject)
	r.Get("/{id}/stats", h.projectStats)
}

func (h *Handler) CategoryRoutes(r chi.Router) {
	r.Get("/", h.listCategories)
	r.Post("/", h.createCategory)
	r.Put("/{id}", h.updateCategory)
	r.Delete("/{id}", h.deleteCategory)
}

type projectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	q := api.NewQuery(r)
	includeAll := q.Bool("includeAll")

	if err := q.Err(); err != nil {
		api.Error(w, r, err)
		return
	}

	projects, err := h.svc.ListProjects(r.Context(), includeAll)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	resp := make([]projectResponse, len(projects))
	for i, p := range projects {
		resp[i] = toProjectResponse(p)
	}

	api.OK(w, resp)
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	p, err := h.svc.CreateProject(r.Context(), catalog.ProjectParams{Name: req.Name, Description: req.Description})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.Created(w, toProjectResponse(p))
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	p, err := h.svc.GetProject(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toProjectResponse(p))
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req projectRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	p, err := h.svc.UpdateProject(r.Context(), id, catalog.ProjectParams{Name: req.Name, Description: req.Description})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toProjectResponse(p))
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.svc.DeleteProject(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}

	api.NoContent(w)
}

func (h *Handler) restoreProject(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.svc.RestoreProject(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}

	p, err := h.svc.GetProject(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toProjectResponse(p))
}

func (h *Handler) projectStats(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	stats, err := h.svc.ProjectStats(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toStatsResponse(stats))
}

type categoryRequest struct {
	Name     string     `json:"name" validate:"required,max=100"`
	ParentID *uuid.UUID `json:"parentId"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = toCategoryResponse(c)
	}

	api.OK(w, resp)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	c, err := h.svc.CreateCategory(r.Context(), catalog.CategoryParams{Name: req.Name, ParentID: req.ParentID})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.Created(w, toCategoryResponse(c))
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	var req categoryRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	c, err := h.svc.UpdateCategory(r.Context(), id, catalog.CategoryParams{Name: req.Name, ParentID: req.ParentID})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toCategoryResponse(c))
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.svc.DeleteCategory(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}

	api.NoContent(w)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/http/response"
	"github.com/gestorbiz/gestor-backend/internal/services"
)

type ServiceHandler struct {
	catalogService services.CatalogService
	teamService    services.TeamService
}

func NewServiceHandler(catalogService services.CatalogService, teamService services.TeamService) *ServiceHandler {
	return &ServiceHandler{catalogService: catalogService, teamService: teamService}
}

// POST /services
// multipart form: team_id, type_id, name, description, price,
// client_name, client_email, client_phone, attachment (file)
func (sh *ServiceHandler) Create(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, err := uuid.Parse(c.PostForm("team_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_team_id", err)
		return
	}
	typeID, err := uuid.Parse(c.PostForm("type_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_type_id", err)
		return
	}
	if err := sh.teamService.RequireMember(c.Request.Context(), teamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	attachment, err := formFile(c, "attachment")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	input := services.CreateServiceInput{
		TeamID:      teamID,
		TypeID:      typeID,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
		Client: services.ServiceClientInput{
			Name:  c.PostForm("client_name"),
			Email: c.PostForm("client_email"),
			Phone: c.PostForm("client_phone"),
		},
		Attachment: attachment,
	}
	svc, err := sh.catalogService.CreateService(c.Request.Context(), rd.UserID, input)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"service": svc})
}

// GET /teams/:id/services
func (sh *ServiceHandler) ListByTeam(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := sh.teamService.RequireMember(c.Request.Context(), teamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	list, err := sh.catalogService.ListServices(c.Request.Context(), teamID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"services": list})
}

// GET /services/:id
func (sh *ServiceHandler) Get(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	svc, err := sh.catalogService.GetService(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if svc == nil {
		response.RespondError(c, http.StatusNotFound, "service_not_found", errNotFound)
		return
	}
	if err := sh.teamService.RequireMember(c.Request.Context(), svc.TeamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"service": svc})
}

// PATCH /services/:id
func (sh *ServiceHandler) Update(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Price       *string `json:"price"`
		Status      *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	svc, err := sh.catalogService.GetService(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if svc == nil {
		response.RespondError(c, http.StatusNotFound, "service_not_found", errNotFound)
		return
	}
	if err := sh.teamService.RequireMember(c.Request.Context(), svc.TeamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	updated, err := sh.catalogService.UpdateService(c.Request.Context(), id, services.UpdateServiceInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Status:      req.Status,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"service": updated})
}

// DELETE /services/:id
func (sh *ServiceHandler) Delete(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	svc, err := sh.catalogService.GetService(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if svc == nil {
		response.RespondError(c, http.StatusNotFound, "service_not_found", errNotFound)
		return
	}
	if err := sh.teamService.RequireMember(c.Request.Context(), svc.TeamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	if err := sh.catalogService.DeleteService(c.Request.Context(), id); err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/http/response"
	"github.com/gestorbiz/gestor-backend/internal/services"
)

type StoreHandler struct {
	storeService services.StoreService
	teamService  services.TeamService
}

func NewStoreHandler(storeService services.StoreService, teamService services.TeamService) *StoreHandler {
	return &StoreHandler{storeService: storeService, teamService: teamService}
}

// POST /stores
// multipart form: team_id, name, description, contacts (JSON array),
// address (JSON object), logo (file)
func (sh *StoreHandler) Create(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, err := uuid.Parse(c.PostForm("team_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_team_id", err)
		return
	}
	if err := sh.teamService.RequireMember(c.Request.Context(), teamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}

	var contacts []services.StoreContactInput
	if raw := c.PostForm("contacts"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &contacts); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_contacts", err)
			return
		}
	}
	var address *services.StoreAddressInput
	if raw := c.PostForm("address"); raw != "" {
		address = &services.StoreAddressInput{}
		if err := json.Unmarshal([]byte(raw), address); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_address", err)
			return
		}
	}
	logo, err := formFile(c, "logo")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	input := services.CreateStoreInput{
		TeamID:      teamID,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Contacts:    contacts,
		Address:     address,
		Logo:        logo,
	}
	store, err := sh.storeService.CreateStore(c.Request.Context(), rd.UserID, input)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"store": store})
}

// GET /teams/:id/stores
func (sh *StoreHandler) ListByTeam(c *gin.Context) {
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
	list, err := sh.storeService.ListStores(c.Request.Context(), teamID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"stores": list})
}

// GET /stores/:id
func (sh *StoreHandler) Get(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	store, err := sh.storeService.GetStore(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if store == nil {
		response.RespondError(c, http.StatusNotFound, "store_not_found", errNotFound)
		return
	}
	if err := sh.teamService.RequireMember(c.Request.Context(), store.TeamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"store": store})
}

// PATCH /stores/:id
func (sh *StoreHandler) Update(c *gin.Context) {
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
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	store, err := sh.storeService.GetStore(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if store == nil {
		response.RespondError(c, http.StatusNotFound, "store_not_found", errNotFound)
		return
	}
	if err := sh.teamService.RequireMember(c.Request.Context(), store.TeamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	updated, err := sh.storeService.UpdateStore(c.Request.Context(), id, services.UpdateStoreInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"store": updated})
}

// DELETE /stores/:id
func (sh *StoreHandler) Delete(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	store, err := sh.storeService.GetStore(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if store == nil {
		response.RespondError(c, http.StatusNotFound, "store_not_found", errNotFound)
		return
	}
	if err := sh.teamService.RequireMember(c.Request.Context(), store.TeamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	if err := sh.storeService.DeleteStore(c.Request.Context(), id); err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

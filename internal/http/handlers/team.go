package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gestorbiz/gestor-backend/internal/http/response"
	"github.com/gestorbiz/gestor-backend/internal/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(teamService services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// POST /teams
// multipart form: name, document, location, service_types (repeated), logo (file)
func (th *TeamHandler) Create(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	logo, err := formFile(c, "logo")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	input := services.CreateTeamInput{
		Name:         c.PostForm("name"),
		Document:     c.PostForm("document"),
		Location:     c.PostForm("location"),
		ServiceTypes: c.PostFormArray("service_types"),
		Logo:         logo,
	}
	team, err := th.teamService.CreateTeam(c.Request.Context(), rd.UserID, input)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"team": team})
}

// GET /teams
func (th *TeamHandler) List(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	teams, err := th.teamService.ListTeams(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"teams": teams})
}

// GET /teams/:id
func (th *TeamHandler) Get(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := th.teamService.RequireMember(c.Request.Context(), id, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	team, err := th.teamService.GetTeam(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if team == nil {
		response.RespondError(c, http.StatusNotFound, "team_not_found", errNotFound)
		return
	}
	response.RespondOK(c, gin.H{"team": team})
}

// PATCH /teams/:id
func (th *TeamHandler) Update(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name     *string `json:"name"`
		Document *string `json:"document"`
		Location *string `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := th.teamService.RequireMember(c.Request.Context(), id, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	team, err := th.teamService.UpdateTeam(c.Request.Context(), id, services.UpdateTeamInput{
		Name:     req.Name,
		Document: req.Document,
		Location: req.Location,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"team": team})
}

// DELETE /teams/:id
func (th *TeamHandler) Delete(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := th.teamService.RequireMember(c.Request.Context(), id, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	if err := th.teamService.DeleteTeam(c.Request.Context(), id); err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

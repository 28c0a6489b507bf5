package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/http/response"
	"github.com/gestorbiz/gestor-backend/internal/services"
	"github.com/gestorbiz/gestor-backend/internal/validation"
)

type ProductHandler struct {
	productService services.ProductService
	teamService    services.TeamService
}

func NewProductHandler(productService services.ProductService, teamService services.TeamService) *ProductHandler {
	return &ProductHandler{productService: productService, teamService: teamService}
}

// POST /products
// multipart form: team_id, store_id, name, description, price, stock,
// attributes (JSON array of {key,value}), identifiers (JSON array of
// {kind,value}), image (file)
func (ph *ProductHandler) Create(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, err := uuid.Parse(c.PostForm("team_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_team_id", err)
		return
	}
	storeID, err := uuid.Parse(c.PostForm("store_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_store_id", err)
		return
	}
	if err := ph.teamService.RequireMember(c.Request.Context(), teamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}

	var attributes []validation.KV
	if raw := c.PostForm("attributes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &attributes); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_attributes", err)
			return
		}
	}
	var identifiers []services.ProductIdentifierInput
	if raw := c.PostForm("identifiers"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &identifiers); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_identifiers", err)
			return
		}
	}
	image, err := formFile(c, "image")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	input := services.CreateProductInput{
		TeamID:      teamID,
		StoreID:     storeID,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
		Stock:       c.PostForm("stock"),
		Attributes:  attributes,
		Identifiers: identifiers,
		Image:       image,
	}
	product, err := ph.productService.CreateProduct(c.Request.Context(), rd.UserID, input)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"product": product})
}

// GET /teams/:id/products
func (ph *ProductHandler) ListByTeam(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	teamID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ph.teamService.RequireMember(c.Request.Context(), teamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	list, err := ph.productService.ListProducts(c.Request.Context(), teamID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"products": list})
}

// GET /products/:id
func (ph *ProductHandler) Get(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := ph.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if product == nil {
		response.RespondError(c, http.StatusNotFound, "product_not_found", errNotFound)
		return
	}
	if err := ph.teamService.RequireMember(c.Request.Context(), product.TeamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"product": product})
}

// PATCH /products/:id
func (ph *ProductHandler) Update(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name        *string         `json:"name"`
		Description *string         `json:"description"`
		Price       *string         `json:"price"`
		Stock       *string         `json:"stock"`
		Attributes  []validation.KV `json:"attributes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	product, err := ph.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if product == nil {
		response.RespondError(c, http.StatusNotFound, "product_not_found", errNotFound)
		return
	}
	if err := ph.teamService.RequireMember(c.Request.Context(), product.TeamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	updated, err := ph.productService.UpdateProduct(c.Request.Context(), id, services.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Attributes:  req.Attributes,
	})
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"product": updated})
}

// DELETE /products/:id
func (ph *ProductHandler) Delete(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := ph.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	if product == nil {
		response.RespondError(c, http.StatusNotFound, "product_not_found", errNotFound)
		return
	}
	if err := ph.teamService.RequireMember(c.Request.Context(), product.TeamID, rd.UserID); err != nil {
		response.RespondFromError(c, err)
		return
	}
	if err := ph.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

package category

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domaincategory "github.com/alanyang/promptkit/internal/domain/category"
	categorysvc "github.com/alanyang/promptkit/internal/service/category"
)

func Register(rg *gin.RouterGroup, svc *categorysvc.Service) {
	rg.POST("/", createCategory(svc))
	rg.GET("/", listCategories(svc))
	rg.GET("/:id", getCategory(svc))
}

type createCategoryReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func createCategory(svc *categorysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCategoryReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		created, err := svc.Create(c.Request.Context(), req.Name, req.Description)
		switch {
		case errors.Is(err, categorysvc.ErrNameRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domaincategory.ErrNameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusCreated, created)
		}
	}
}

func listCategories(svc *categorysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cs, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if cs == nil {
			cs = []domaincategory.Category{}
		}
		c.JSON(http.StatusOK, cs)
	}
}

func getCategory(svc *categorysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		cat, err := svc.GetByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, domaincategory.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

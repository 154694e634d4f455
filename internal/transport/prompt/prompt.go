package prompt

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domaincategory "github.com/alanyang/promptkit/internal/domain/category"
	"github.com/alanyang/promptkit/internal/domain/parser"
	domainprompt "github.com/alanyang/promptkit/internal/domain/prompt"
	"github.com/alanyang/promptkit/internal/domain/quality"
	portsource "github.com/alanyang/promptkit/internal/port/source"
	promptsvc "github.com/alanyang/promptkit/internal/service/prompt"
	"github.com/alanyang/promptkit/internal/transport/toolkit"
)

func Register(rg *gin.RouterGroup, svc *promptsvc.Service) {
	rg.POST("/", importPrompt(svc))
	rg.POST("/import/github", importFromGitHub(svc))
	rg.POST("/similar", findSimilar(svc))
	rg.GET("/", listPrompts(svc))
	rg.GET("/duplicates", duplicateGroups(svc))
	rg.GET("/:id", getPrompt(svc))
	rg.DELETE("/:id", deletePrompt(svc))
	rg.POST("/:id/render", renderPrompt(svc))
	rg.GET("/:id/export", exportPrompt(svc))
}

// writeError maps service errors onto HTTP statuses. Import failures carry
// the partial result so clients can show quality issues or the prompts that
// blocked the import.
func writeError(c *gin.Context, err error, partial *promptsvc.ImportResult) {
	switch {
	case errors.Is(err, parser.ErrSyntax):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, promptsvc.ErrInvalidPrompt):
		body := gin.H{"error": err.Error()}
		var verr *quality.ValidationError
		if errors.As(err, &verr) {
			body["issues"] = verr.Issues
		}
		if partial != nil {
			body["quality"] = partial.Quality
		}
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.Is(err, promptsvc.ErrDuplicate):
		body := gin.H{"error": err.Error()}
		if partial != nil {
			body["duplicates"] = partial.Duplicates
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, domainprompt.ErrNotFound),
		errors.Is(err, domaincategory.ErrNotFound),
		errors.Is(err, portsource.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, promptsvc.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, promptsvc.ErrSourceDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

// queryCategory reads the optional category_id query parameter.
func queryCategory(c *gin.Context) (*uuid.UUID, bool) {
	v := c.Query("category_id")
	if v == "" {
		return nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
		return nil, false
	}
	return &id, true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return n, true
}

func queryFloat(c *gin.Context, name string) (float64, bool) {
	v := c.Query(name)
	if v == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s", name)})
		return 0, false
	}
	return f, true
}

type importReq struct {
	Text       string     `json:"text" binding:"required"`
	Format     string     `json:"format"`
	CategoryID *uuid.UUID `json:"category_id"`
	Force      bool       `json:"force"`
}

func importPrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req importReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f := parser.Format(req.Format)
		if req.Format != "" && !f.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown format %q", req.Format)})
			return
		}

		res, err := svc.Import(c.Request.Context(), promptsvc.ImportInput{
			CategoryID: req.CategoryID,
			Text:       req.Text,
			Format:     f,
			Force:      req.Force,
		})
		if err != nil {
			writeError(c, err, &res)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

type githubImportReq struct {
	Owner      string     `json:"owner" binding:"required"`
	Repo       string     `json:"repo" binding:"required"`
	Path       string     `json:"path" binding:"required"`
	Ref        string     `json:"ref"`
	CategoryID *uuid.UUID `json:"category_id"`
	Force      bool       `json:"force"`
}

func importFromGitHub(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req githubImportReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ref := portsource.Ref{Owner: req.Owner, Repo: req.Repo, Path: req.Path, Ref: req.Ref}
		res, err := svc.ImportFromSource(c.Request.Context(), ref, req.CategoryID, req.Force)
		if err != nil {
			writeError(c, err, &res)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

func listPrompts(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters domainprompt.ListFilters
		var ok bool
		if filters.CategoryID, ok = queryCategory(c); !ok {
			return
		}
		if filters.Limit, ok = queryInt(c, "limit"); !ok {
			return
		}
		if filters.Offset, ok = queryInt(c, "offset"); !ok {
			return
		}

		prompts, err := svc.List(c.Request.Context(), filters)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		if prompts == nil {
			prompts = []domainprompt.Prompt{}
		}
		c.JSON(http.StatusOK, prompts)
	}
}

func getPrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		p, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func deletePrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			writeError(c, err, nil)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type renderReq struct {
	Values map[string]string `json:"values"`
}

func renderPrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req renderReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		doc, err := svc.Render(c.Request.Context(), id, req.Values)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"prompt": doc})
	}
}

func exportPrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		target := parser.Format(c.DefaultQuery("format", string(parser.FormatJSON)))

		out, err := svc.Export(c.Request.Context(), id, target)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		c.Data(http.StatusOK, toolkit.ContentType(target), out)
	}
}

type similarReq struct {
	Text       string     `json:"text" binding:"required"`
	CategoryID *uuid.UUID `json:"category_id"`
	Threshold  float64    `json:"threshold"`
	Limit      int        `json:"limit"`
}

func findSimilar(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req similarReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		matches, err := svc.FindSimilar(c.Request.Context(), req.Text, req.CategoryID, req.Threshold, req.Limit)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		if matches == nil {
			matches = []promptsvc.Match{}
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}

func duplicateGroups(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		categoryID, ok := queryCategory(c)
		if !ok {
			return
		}
		threshold, ok := queryFloat(c, "threshold")
		if !ok {
			return
		}

		groups, err := svc.DuplicateGroups(c.Request.Context(), categoryID, threshold)
		if err != nil {
			writeError(c, err, nil)
			return
		}
		if groups == nil {
			groups = [][]domainprompt.Prompt{}
		}
		c.JSON(http.StatusOK, gin.H{"groups": groups})
	}
}

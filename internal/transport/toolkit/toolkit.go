package toolkit

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/promptkit/internal/domain/parser"
	"github.com/alanyang/promptkit/internal/domain/prompt"
	"github.com/alanyang/promptkit/internal/domain/quality"
	"github.com/alanyang/promptkit/internal/domain/similarity"
	promptsvc "github.com/alanyang/promptkit/internal/service/prompt"
)

// MaxBatchItems bounds the quadratic duplicate endpoints.
const MaxBatchItems = 1000

// Register mounts the stateless toolkit endpoints. Nothing here touches
// storage.
func Register(rg *gin.RouterGroup) {
	rg.POST("/parse", parse)
	rg.POST("/quality", checkQuality)
	rg.POST("/similarity", compare)
	rg.POST("/duplicates", duplicates)
	rg.POST("/deduplicate", deduplicate)
	rg.POST("/interpolate", interpolate)
	rg.POST("/export", export)
}

type documentReq struct {
	Text   string `json:"text"`
	Format string `json:"format"`
}

func (r documentReq) format() (parser.Format, error) {
	f := parser.Format(r.Format)
	if r.Format != "" && !f.Valid() {
		return "", fmt.Errorf("unknown format %q", r.Format)
	}
	return f, nil
}

// decode parses the request document. ok is false after a 400 has been
// written.
func (r documentReq) decode(c *gin.Context) (doc prompt.ParsedPrompt, f parser.Format, ok bool) {
	f, err := r.format()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return doc, f, false
	}
	doc, f, err = parser.Decode(r.Text, f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return doc, f, false
	}
	return doc, f, true
}

// threshold resolves an optional threshold. ok is false after a 400 has
// been written.
func threshold(c *gin.Context, t *float64) (float64, bool) {
	if t == nil {
		return similarity.DefaultThreshold, true
	}
	if *t < 0 || *t > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be between 0 and 1"})
		return 0, false
	}
	return *t, true
}

type parseResp struct {
	Format parser.Format       `json:"format"`
	Prompt prompt.ParsedPrompt `json:"prompt"`
}

func parse(c *gin.Context) {
	var req documentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, f, ok := req.decode(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, parseResp{Format: f, Prompt: doc})
}

type qualityReq struct {
	Text string `json:"text"`
}

type qualityResp struct {
	quality.Result
	Suggestions []string `json:"suggestions"`
}

func checkQuality(c *gin.Context) {
	var req qualityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, qualityResp{
		Result:      quality.Check(req.Text),
		Suggestions: quality.Suggestions(req.Text),
	})
}

type compareReq struct {
	A         string   `json:"a"`
	B         string   `json:"b"`
	Threshold *float64 `json:"threshold"`
}

type compareResp struct {
	Score        float64 `json:"score"`
	Similar      bool    `json:"similar"`
	FingerprintA string  `json:"fingerprint_a"`
	FingerprintB string  `json:"fingerprint_b"`
}

func compare(c *gin.Context) {
	var req compareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, ok := threshold(c, req.Threshold)
	if !ok {
		return
	}
	score := similarity.Similarity(req.A, req.B)
	c.JSON(http.StatusOK, compareResp{
		Score:        score,
		Similar:      score >= t,
		FingerprintA: similarity.Fingerprint(req.A),
		FingerprintB: similarity.Fingerprint(req.B),
	})
}

type item struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

func itemContent(i item) string { return i.Content }

type batchReq struct {
	Items     []item   `json:"items" binding:"required"`
	Threshold *float64 `json:"threshold"`
}

func bindBatch(c *gin.Context) (batchReq, float64, bool) {
	var req batchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, 0, false
	}
	if len(req.Items) > MaxBatchItems {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d items per request", MaxBatchItems)})
		return req, 0, false
	}
	t, ok := threshold(c, req.Threshold)
	return req, t, ok
}

func duplicates(c *gin.Context) {
	req, t, ok := bindBatch(c)
	if !ok {
		return
	}
	groups := similarity.FindDuplicates(req.Items, itemContent, t)
	if groups == nil {
		groups = [][]item{}
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func deduplicate(c *gin.Context) {
	req, t, ok := bindBatch(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": similarity.Deduplicate(req.Items, itemContent, t)})
}

type interpolateReq struct {
	documentReq
	Values map[string]string `json:"values"`
}

func interpolate(c *gin.Context) {
	var req interpolateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, _, ok := req.decode(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": doc.Interpolate(req.Values)})
}

type exportReq struct {
	documentReq
	Target string `json:"target" binding:"required"`
}

func export(c *gin.Context) {
	var req exportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, _, ok := req.decode(c)
	if !ok {
		return
	}

	target := parser.Format(req.Target)
	out, err := promptsvc.Encode(doc, target)
	if err != nil {
		if errors.Is(err, promptsvc.ErrUnsupportedFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, ContentType(target), out)
}

// ContentType is the response media type for an exported document.
func ContentType(f parser.Format) string {
	if f == parser.FormatYAML {
		return "application/yaml; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

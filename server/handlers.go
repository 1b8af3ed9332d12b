package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"metagen/db"
	"metagen/generator"
	"metagen/utils"
)

// ActorHeader names the user on whose behalf a generation runs
const ActorHeader = "X-Actor"

// maxBatchSize caps the number of images in one batch request
const maxBatchSize = 50

type batchRequest struct {
	Items       []generator.AltTagRequest `json:"items" binding:"required"`
	Concurrency int                       `json:"concurrency,omitempty"`
}

type batchResponse struct {
	Results   []generator.AltTagResult `json:"results"`
	Succeeded int                      `json:"succeeded"`
	Fallbacks int                      `json:"fallbacks"`
	Failed    int                      `json:"failed"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) altTag(c *gin.Context) {
	var req generator.AltTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if msg := checkImageURL(req.ImageURL); msg != "" {
		badRequest(c, msg)
		return
	}
	req.Actor = actor(c, req.Actor)

	c.JSON(http.StatusOK, s.gen.GenerateAltTag(c.Request.Context(), req))
}

func (s *Server) altTagBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(req.Items) == 0 {
		badRequest(c, "items must not be empty")
		return
	}
	if len(req.Items) > maxBatchSize {
		badRequest(c, "too many items: max "+strconv.Itoa(maxBatchSize))
		return
	}
	for i := range req.Items {
		if msg := checkImageURL(req.Items[i].ImageURL); msg != "" {
			badRequest(c, "items["+strconv.Itoa(i)+"]: "+msg)
			return
		}
		req.Items[i].Actor = actor(c, req.Items[i].Actor)
	}

	results := s.gen.BatchAltTags(c.Request.Context(), req.Items, req.Concurrency)

	resp := batchResponse{Results: results}
	for _, r := range results {
		switch {
		case r.Success:
			resp.Succeeded++
		case r.Fallback:
			resp.Fallbacks++
		default:
			resp.Failed++
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) seoTitle(c *gin.Context) {
	var req generator.SeoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	req.Actor = actor(c, req.Actor)

	c.JSON(http.StatusOK, s.gen.GenerateSeoTitle(c.Request.Context(), req))
}

func (s *Server) seoDescription(c *gin.Context) {
	var req generator.SeoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	req.Actor = actor(c, req.Actor)

	c.JSON(http.StatusOK, s.gen.GenerateSeoDescription(c.Request.Context(), req))
}

func (s *Server) icon(c *gin.Context) {
	var req generator.IconRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.IconName) == "" {
		badRequest(c, "iconName is required")
		return
	}
	req.Actor = actor(c, req.Actor)

	c.JSON(http.StatusOK, s.gen.GenerateIconMetadata(c.Request.Context(), req))
}

func (s *Server) listAudit(c *gin.Context) {
	if !s.auditAvailable(c) {
		return
	}

	filter := db.AuditFilter{
		Operation: c.Query("operation"),
		Provider:  c.Query("provider"),
		Limit:     queryInt(c, "limit", db.DefaultListLimit),
		Offset:    queryInt(c, "offset", 0),
	}
	if v := c.Query("success"); v != "" {
		success, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "success must be true or false")
			return
		}
		filter.Success = &success
	}
	if days := queryInt(c, "days", 0); days > 0 {
		filter.Since = time.Now().AddDate(0, 0, -days)
	}

	entries, err := s.audit.ListAuditEntries(filter)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if entries == nil {
		entries = []*db.AuditEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) searchAudit(c *gin.Context) {
	if !s.auditAvailable(c) {
		return
	}

	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "q is required")
		return
	}

	results, err := s.audit.SearchAuditEntries(q, queryInt(c, "limit", 20))
	if err != nil {
		s.internalError(c, err)
		return
	}

	type hit struct {
		Entry   *db.AuditEntry `json:"entry"`
		Snippet string         `json:"snippet"`
	}
	hits := make([]hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, hit{Entry: r.Entry, Snippet: r.Snippet})
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

func (s *Server) usage(c *gin.Context) {
	if !s.auditAvailable(c) {
		return
	}

	days := queryInt(c, "days", 30)
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	stats, err := s.audit.GetUsageStats(start, end)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) auditAvailable(c *gin.Context) bool {
	if s.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log is not configured"})
		return false
	}
	return true
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("[%s] %s %s: %v", c.GetString("request_id"), c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// checkImageURL only admits images the server can pass on without touching
// its own filesystem
func checkImageURL(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "imageUrl is required"
	case !utils.IsRemoteImage(ref):
		return "imageUrl must be an http(s) or data URL"
	}
	return ""
}

// actor prefers the value in the body, then the X-Actor header
func actor(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.GetHeader(ActorHeader)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

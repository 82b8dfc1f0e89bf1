package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/mailer"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/matcher"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/models"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/report"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/sitemap"
	"github.com/javiercastrodev/claro-urls-duplicates/internal/storage"
	"github.com/sirupsen/logrus"
)

// SenderFactory resolves the email sender per request so that missing mail
// settings surface as a send failure instead of blocking startup.
type SenderFactory func() (mailer.Sender, error)

type Handler struct {
	reports    *report.Service
	store      storage.Store
	newSender  SenderFactory
	cronSecret string
	log        logrus.FieldLogger
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Sitemap string `json:"sitemap,omitempty"`
}

type PaginationResponse struct {
	Data  interface{} `json:"data"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// NewHandler builds the HTTP handlers. store may be nil when archiving is
// disabled. An empty cronSecret leaves /send-report open.
func NewHandler(reports *report.Service, store storage.Store, newSender SenderFactory, cronSecret string, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		reports:    reports,
		store:      store,
		newSender:  newSender,
		cronSecret: strings.TrimSpace(cronSecret),
		log:        log,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "Use /urls-a-eliminar or /health",
	})
}

func (h *Handler) URLsToDelete(c *gin.Context) {
	sitemapURL := h.reports.ResolveSitemap(c.Query("sitemap"))

	record, err := h.reports.Build(c.Request.Context(), sitemapURL, querySuffixes(c))
	if err != nil {
		var fetchErr *sitemap.FetchError
		if errors.As(err, &fetchErr) {
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: "fetch_failed", Message: err.Error(), Sitemap: sitemapURL})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "processing_failed", Message: err.Error(), Sitemap: sitemapURL})
		return
	}

	body, err := report.JSON(record.Report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "processing_failed", Message: err.Error(), Sitemap: sitemapURL})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *Handler) SendReport(c *gin.Context) {
	if !h.authorized(c) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	sender, err := h.newSender()
	if err != nil {
		h.sendFailed(c, err)
		return
	}

	ctx := c.Request.Context()
	record, err := h.reports.Build(ctx, c.Query("sitemap"), querySuffixes(c))
	if err != nil {
		h.sendFailed(c, err)
		return
	}

	result, err := h.reports.Send(ctx, record.Report, sender, report.EmailOptions{AttachJSON: true})
	if err != nil {
		h.sendFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"report": gin.H{
			"id":    record.ID,
			"count": record.Count,
		},
		"delivery": result,
	})
}

func (h *Handler) ListReports(c *gin.Context) {
	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	records, err := h.store.ListReports(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.WithError(err).Error("Failed to list reports")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch reports"})
		return
	}
	if records == nil {
		records = []*models.ReportRecord{}
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:  records,
		Page:  page,
		Limit: limit,
	})
}

func (h *Handler) GetReport(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid report ID"})
		return
	}

	record, err := h.store.GetReport(c.Request.Context(), id)
	if err != nil {
		h.log.WithError(err).WithField("report_id", id).Error("Failed to fetch report")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch report"})
		return
	}

	if record == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Report not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *Handler) authorized(c *gin.Context) bool {
	if h.cronSecret == "" {
		return true
	}
	provided := strings.TrimSpace(c.Query("secret"))
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.cronSecret)) == 1
}

func (h *Handler) sendFailed(c *gin.Context, err error) {
	h.log.WithError(err).Error("Report delivery failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "send_failed", Message: err.Error()})
}

// querySuffixes parses the suffixes parameter. Only a missing or blank
// parameter selects the configured defaults.
func querySuffixes(c *gin.Context) []string {
	return matcher.OptionalSuffixes(c.Query("suffixes"))
}

func getPaginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	return page, limit
}

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/announcement-sync/internal/dto"
	"github.com/noah-isme/announcement-sync/internal/models"
	appErrors "github.com/noah-isme/announcement-sync/pkg/errors"
	"github.com/noah-isme/announcement-sync/pkg/response"
)

type pageSyncer interface {
	Run(ctx context.Context, creds models.Credentials, afterCursor *string, pageSize int) models.SyncedPage
}

type documentLookup interface {
	FetchDocuments(ctx context.Context, announcementID string, creds models.Credentials) ([]models.Document, error)
}

// AnnouncementHandler exposes the sync pipeline over HTTP.
type AnnouncementHandler struct {
	pipeline  pageSyncer
	documents documentLookup
	validate  *validator.Validate
}

// NewAnnouncementHandler constructs an AnnouncementHandler.
func NewAnnouncementHandler(pipeline pageSyncer, documents documentLookup) *AnnouncementHandler {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &AnnouncementHandler{pipeline: pipeline, documents: documents, validate: v}
}

// Fetch godoc
// @Summary Fetch and sync the first announcements page
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body dto.AnnouncementsRequest true "Portal credentials and page size"
// @Success 200 {object} models.SyncedPage
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Failure 504 {object} response.ErrorBody
// @Router /announcements [post]
func (h *AnnouncementHandler) Fetch(c *gin.Context) {
	var req dto.AnnouncementsRequest
	if !h.bind(c, &req) {
		return
	}
	h.respondPage(c, h.pipeline.Run(c.Request.Context(), req.Credentials(), nil, req.ItemsPerPage))
}

// LoadMore godoc
// @Summary Fetch and sync the page after a cursor
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body dto.MoreAnnouncementsRequest true "Portal credentials, cursor and page size"
// @Success 200 {object} models.SyncedPage
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Failure 504 {object} response.ErrorBody
// @Router /announcements/more [post]
func (h *AnnouncementHandler) LoadMore(c *gin.Context) {
	var req dto.MoreAnnouncementsRequest
	if !h.bind(c, &req) {
		return
	}
	cursor := req.AfterCursor
	h.respondPage(c, h.pipeline.Run(c.Request.Context(), req.Credentials(), &cursor, req.ItemsPerPage))
}

// Documents godoc
// @Summary List the documents of one announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body dto.DocumentsRequest true "Portal credentials and announcement id"
// @Success 200 {object} dto.DocumentsResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Router /announcements/documents [post]
func (h *AnnouncementHandler) Documents(c *gin.Context) {
	var req dto.DocumentsRequest
	if !h.bind(c, &req) {
		return
	}
	docs, err := h.documents.FetchDocuments(c.Request.Context(), req.AnnouncementID, req.Credentials())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DocumentsResponse{AnnouncementID: req.AnnouncementID, Documents: docs})
}

func (h *AnnouncementHandler) respondPage(c *gin.Context, out models.SyncedPage) {
	if out.Failed() {
		response.ErrorWithMessage(c, out.Err, *out.Error)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

func (h *AnnouncementHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request body"))
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		response.ErrorMessage(c, http.StatusBadRequest, appErrors.ErrValidation.Code, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "max":
		return fmt.Sprintf("%s must be between 1 and 100", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

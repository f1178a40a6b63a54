package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	mergerecorddomain "github.com/smallbiznis/mergematrix/internal/mergerecord/domain"
)

func (s *Server) CreateMergeRecord(c *gin.Context) {
	var req mergerecorddomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}

	record, err := s.mergeRecordSvc.Append(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "pdf": record})
}

func (s *Server) ListMergeRecords(c *gin.Context) {
	var query mergerecorddomain.OwnerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, mergerecorddomain.ErrInvalidQuery)
		return
	}

	records, err := s.mergeRecordSvc.ListByOwner(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "pdfs": records})
}

func (s *Server) ExportMergeRecords(c *gin.Context) {
	var query mergerecorddomain.OwnerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, mergerecorddomain.ErrInvalidQuery)
		return
	}

	export, err := s.mergeRecordSvc.ExportHistory(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := io.ReadAll(export.Content)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, "application/pdf", body)
}

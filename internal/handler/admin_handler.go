package handler

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/carecollective/care-api/internal/domain/entity"
	"github.com/carecollective/care-api/internal/domain/repository"
	"github.com/carecollective/care-api/internal/middleware"
	"github.com/carecollective/care-api/internal/service"
)

// AdminHandler serves the moderation panel: the verification queue, decisions,
// the audit log and roster exports.
type AdminHandler struct {
	verificationService *service.VerificationService
	profileRepo         repository.ProfileRepository
}

func NewAdminHandler(verificationService *service.VerificationService, profileRepo repository.ProfileRepository) *AdminHandler {
	return &AdminHandler{
		verificationService: verificationService,
		profileRepo:         profileRepo,
	}
}

// ListMembers returns members in a given verification status (default pending).
func (h *AdminHandler) ListMembers(c *gin.Context) {
	status := c.DefaultQuery("status", entity.StatusPending)
	limit, offset := paginationParams(c, 20, 100)

	members, total, err := h.verificationService.ListMembersByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members, "total": total})
}

// Approve transitions a member to approved.
func (h *AdminHandler) Approve(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	memberID, ok := middleware.GetUintParam(c, "member_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	if err := h.verificationService.ApproveMember(c.Request.Context(), memberID, adminID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "member approved"})
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject transitions a member to rejected and kills their sessions.
func (h *AdminHandler) Reject(c *gin.Context) {
	adminID, ok := currentUserID(c)
	if !ok {
		return
	}
	memberID, ok := middleware.GetUintParam(c, "member_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.verificationService.RejectMember(c.Request.Context(), memberID, adminID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "member rejected"})
}

// AuditLog returns the global verification audit log.
func (h *AdminHandler) AuditLog(c *gin.Context) {
	limit, offset := paginationParams(c, 50, 200)
	changes, total, err := h.verificationService.AuditLog(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes, "total": total})
}

// MemberHistory returns one member's transition history.
func (h *AdminHandler) MemberHistory(c *gin.Context) {
	memberID, ok := middleware.GetUintParam(c, "member_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}

	limit, offset := paginationParams(c, 50, 200)
	history, err := h.verificationService.MemberHistory(c.Request.Context(), memberID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

var rosterHeader = []string{
	"Member ID", "Email", "First Name", "Last Name", "Location",
	"Status", "Email Confirmed", "Applied At", "Approved At", "Rejection Reason",
}

func rosterRow(p *entity.Profile) []string {
	emailConfirmed := "no"
	if p.EmailConfirmed() {
		emailConfirmed = "yes"
	}
	approvedAt := ""
	if p.ApprovedAt != nil {
		approvedAt = p.ApprovedAt.Format(time.RFC3339)
	}
	return []string{
		p.PublicID.String(),
		sanitizeForSpreadsheet(p.Email),
		sanitizeForSpreadsheet(p.FirstName),
		sanitizeForSpreadsheet(p.LastName),
		sanitizeForSpreadsheet(p.Location),
		p.VerificationStatus,
		emailConfirmed,
		p.AppliedAt.Format(time.RFC3339),
		approvedAt,
		sanitizeForSpreadsheet(p.RejectionReason),
	}
}

// ExportRosterCSV streams the full member roster as CSV.
func (h *AdminHandler) ExportRosterCSV(c *gin.Context) {
	profiles, err := h.profileRepo.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("members_%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write(rosterHeader); err != nil {
		log.Printf("[AdminHandler.ExportRosterCSV] Failed to write header: %v", err)
		return
	}
	for i := range profiles {
		if err := writer.Write(rosterRow(&profiles[i])); err != nil {
			log.Printf("[AdminHandler.ExportRosterCSV] Failed to write row: %v", err)
			return
		}
	}
	writer.Flush()
}

// ExportRosterXLSX streams the full member roster as an XLSX workbook.
func (h *AdminHandler) ExportRosterXLSX(c *gin.Context) {
	profiles, err := h.profileRepo.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	file := excelize.NewFile()
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("[AdminHandler.ExportRosterXLSX] Failed to close workbook: %v", err)
		}
	}()

	const sheet = "Members"
	file.SetSheetName("Sheet1", sheet)

	streamWriter, err := file.NewStreamWriter(sheet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create export"})
		return
	}

	headerCells := make([]interface{}, len(rosterHeader))
	for i, title := range rosterHeader {
		headerCells[i] = title
	}
	if err := streamWriter.SetRow("A1", headerCells); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write export header"})
		return
	}

	for i := range profiles {
		row := rosterRow(&profiles[i])
		cells := make([]interface{}, len(row))
		for j, value := range row {
			cells[j] = value
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := streamWriter.SetRow(cell, cells); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write export row"})
			return
		}
	}

	if err := streamWriter.Flush(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to finish export"})
		return
	}

	filename := fmt.Sprintf("members_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := file.Write(c.Writer); err != nil {
		log.Printf("[AdminHandler.ExportRosterXLSX] Failed to stream workbook: %v", err)
	}
}

// sanitizeForSpreadsheet guards against formula injection when the export is
// opened in Excel or Sheets. Control characters are stripped first so a
// leading tab or CR cannot smuggle a formula past the prefix check.
func sanitizeForSpreadsheet(value string) string {
	value = strings.Map(func(r rune) rune {
		switch r {
		case '\x00', '\t', '\r', '\n':
			return -1
		}
		return r
	}, value)
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@':
		return "'" + value
	}
	return value
}

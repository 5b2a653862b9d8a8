package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/remedykit/bill-endorser/internal/apperrors"
	"github.com/remedykit/bill-endorser/internal/doctext"
)

// statusFor maps pipeline errors to HTTP statuses. Malformed documents are
// the client's problem; everything else is the server's.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrParse), errors.Is(err, apperrors.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrInvalidPageIndex):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// readUpload pulls the named multipart file out of the request, validates it
// as a PDF within the size limit, and returns its filename and bytes.
func (s *Server) readUpload(c *gin.Context, field string) (string, []byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("no file part %q", field)
	}
	if fileHeader.Filename == "" {
		return "", nil, errors.New("no selected file")
	}

	data, err := readAll(fileHeader)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}

	if err := doctext.ValidateUpload(fileHeader.Filename, data, s.maxFileSize); err != nil {
		return "", nil, err
	}
	return fileHeader.Filename, data, nil
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// handleEndorseBill runs the full endorsement pipeline on an uploaded bill.
func (s *Server) handleEndorseBill(c *gin.Context) {
	logger := loggerFromContext(c)

	filename, data, err := s.readUpload(c, "bill")
	if err != nil {
		logger.Warn("rejected bill upload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.endorse.EndorseBill(c.Request.Context(), filename, data)
	if err != nil {
		logger.Error("endorsement run failed", slog.String("error", err.Error()))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	logger.Info("endorsement run completed",
		slog.Int("endorsed_files", len(result.EndorsedFiles)))
	c.JSON(http.StatusOK, result)
}

// handleBillData extracts and parses a bill, returning the record as a flat
// key/value map.
func (s *Server) handleBillData(c *gin.Context) {
	logger := loggerFromContext(c)

	_, data, err := s.readUpload(c, "bill")
	if err != nil {
		logger.Warn("rejected bill upload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := s.endorse.BillData(c.Request.Context(), data)
	if err != nil {
		logger.Warn("bill data extraction failed", slog.String("error", err.Error()))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// handleStamp places one endorsement line at an explicit coordinate on the
// first page and returns the stamped PDF as a download.
func (s *Server) handleStamp(c *gin.Context) {
	logger := loggerFromContext(c)

	filename, data, err := s.readUpload(c, "bill")
	if err != nil {
		logger.Warn("rejected bill upload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	x, err := strconv.ParseFloat(c.DefaultPostForm("x", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid x coordinate"})
		return
	}
	y, err := strconv.ParseFloat(c.DefaultPostForm("y", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid y coordinate"})
		return
	}
	endorsementText := c.PostForm("endorsement_text")
	qualifier := c.PostForm("qualifier")

	stamped, err := s.endorse.Stamp(c.Request.Context(), data, x, y, endorsementText, qualifier)
	if err != nil {
		logger.Error("stamping failed", slog.String("error", err.Error()))
		c.JSON(statusFor(err), gin.H{"error": "Failed to stamp PDF"})
		return
	}

	outName := "stamped_" + filename
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", outName))
	c.Data(http.StatusOK, "application/pdf", stamped)
}

// handleScanContract searches an uploaded contract for keyword tags.
func (s *Server) handleScanContract(c *gin.Context) {
	logger := loggerFromContext(c)

	_, data, err := s.readUpload(c, "contract")
	if err != nil {
		logger.Warn("rejected contract upload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tags := strings.Split(c.PostForm("tag"), ",")
	matches, err := s.scanner.Scan(c.Request.Context(), data, tags)
	if err != nil {
		logger.Warn("contract scan failed", slog.String("error", err.Error()))
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches, "match_count": len(matches)})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "server": s.name, "version": s.version})
}

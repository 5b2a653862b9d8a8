package server

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedykit/bill-endorser/internal/config"
	"github.com/remedykit/bill-endorser/internal/contract"
	"github.com/remedykit/bill-endorser/internal/doctext"
	"github.com/remedykit/bill-endorser/internal/endorse"
	"github.com/remedykit/bill-endorser/internal/remedy"
)

const testRulesYAML = `
sovereign_endorsements:
  - trigger: "UCC Notice"
    meaning: "Accepted for value"
    ink_color: "red"
    placement: "Front"
`

func billPDF(t *testing.T, lines ...string) []byte {
	t.Helper()

	doc := gofpdf.New("P", "pt", "Letter", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	y := 80.0
	for _, line := range lines {
		doc.Text(72, y, line+" ")
		y += 20
	}

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func sampleBill(t *testing.T) []byte {
	return billPDF(t,
		"Utility Bill",
		"Account Number: ABC-123",
		"Total Amount: $1,200.00",
		"Customer Name: Jane Rivers",
	)
}

// newTestServer wires a full server over temp directories. withKey controls
// whether the endorse service gets a signer.
func newTestServer(t *testing.T, withKey bool) *Server {
	t.Helper()

	rulesPath := filepath.Join(t.TempDir(), "sovereign_overlay.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(testRulesYAML), 0o644))

	var signer *endorse.Signer
	if withKey {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		signer, err = endorse.NewSignerFromKey(key)
		require.NoError(t, err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	extractor := doctext.NewExtractor(nil)
	svc := endorse.NewService(t.TempDir(), rulesPath, "WEB-UTIL-001",
		extractor, signer, remedy.NewLogger(t.TempDir()), logger)

	cfg := &config.Config{
		Host:        "127.0.0.1",
		Port:        0,
		ServerName:  "bill-endorser",
		Version:     "test",
		LogLevel:    "error",
		MaxFileSize: 25 * 1024 * 1024,
	}
	return New(cfg, svc, contract.NewScanner(extractor), logger)
}

// multipartRequest builds a POST with one file part plus form fields.
func multipartRequest(t *testing.T, url, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (s *Server) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "bill-endorser", body["server"])
}

func TestHandleEndorseBill(t *testing.T) {
	s := newTestServer(t, true)

	req := multipartRequest(t, "/api/bills/endorse", "bill", "bill.pdf", sampleBill(t), nil)
	rec := s.serve(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result endorse.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, endorse.MsgEndorsed, result.Message)
	assert.Equal(t, []string{"endorsed_bill_UCCNotice.pdf"}, result.EndorsedFiles)
}

func TestHandleEndorseBill_NoFilePart(t *testing.T) {
	s := newTestServer(t, true)

	req := multipartRequest(t, "/api/bills/endorse", "bill", "", nil, nil)
	rec := s.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file part")
}

func TestHandleEndorseBill_NotAPDF(t *testing.T) {
	s := newTestServer(t, true)

	req := multipartRequest(t, "/api/bills/endorse", "bill", "bill.txt", []byte("text"), nil)
	rec := s.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestHandleEndorseBill_NoSigner(t *testing.T) {
	s := newTestServer(t, false)

	req := multipartRequest(t, "/api/bills/endorse", "bill", "bill.pdf", sampleBill(t), nil)
	rec := s.serve(req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "private key")
}

func TestHandleEndorseBill_UnparseableBill(t *testing.T) {
	s := newTestServer(t, true)

	data := billPDF(t, "no labels in this document at all")
	req := multipartRequest(t, "/api/bills/endorse", "bill", "bill.pdf", data, nil)
	rec := s.serve(req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleBillData(t *testing.T) {
	s := newTestServer(t, true)

	req := multipartRequest(t, "/api/bills/data", "bill", "bill.pdf", sampleBill(t), nil)
	rec := s.serve(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ABC-123", body["bill_number"])
	assert.Equal(t, "USD", body["currency"])
	assert.Equal(t, "Jane Rivers", body["customer_name"])
	assert.Equal(t, float64(1200), body["total_amount"])
}

func TestHandleStamp(t *testing.T) {
	s := newTestServer(t, true)

	req := multipartRequest(t, "/api/endorsements", "bill", "bill.pdf", sampleBill(t), map[string]string{
		"x":                "100",
		"y":                "50",
		"endorsement_text": "Accepted for value",
		"qualifier":        "without recourse",
	})
	rec := s.serve(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `"stamped_bill.pdf"`)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestHandleStamp_InvalidCoordinate(t *testing.T) {
	s := newTestServer(t, true)

	req := multipartRequest(t, "/api/endorsements", "bill", "bill.pdf", sampleBill(t), map[string]string{
		"x": "not-a-number",
	})
	rec := s.serve(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid x coordinate")
}

func TestHandleScanContract(t *testing.T) {
	s := newTestServer(t, true)

	data := billPDF(t, "This agreement includes an arbitration clause.")
	req := multipartRequest(t, "/api/contracts/scan", "contract", "contract.pdf", data, map[string]string{
		"tag": "arbitration,indemnify",
	})
	rec := s.serve(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Matches    []contract.Match `json:"matches"`
		MatchCount int              `json:"match_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Matches)
	assert.Equal(t, len(body.Matches), body.MatchCount)
	assert.Equal(t, "arbitration", body.Matches[0].Tag)
}

func TestRun_ShutsDownOnContextCancel(t *testing.T) {
	s := newTestServer(t, true)
	s.httpServer.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() returned error on graceful shutdown: %v", err)
	}
}

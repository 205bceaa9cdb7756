package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/metric"

	tome "github.com/nevindra/tome"
	"github.com/nevindra/tome/ingest"
	"github.com/nevindra/tome/observer"
	"github.com/nevindra/tome/query"
)

type handler struct {
	ingest     *ingest.Pipeline
	query      *query.Pipeline
	gateway    *tome.Gateway
	extractors map[ingest.ContentType]ingest.Extractor
	logger     *slog.Logger
	inst       *observer.Instruments
}

type queryRequest struct {
	Query string `json:"query"`
}

type uploadResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details *ingest.Result `json:"details,omitempty"`
}

// Health reports service liveness.
func (h *handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Tome document QA API is running",
		"status":  "healthy",
		"version": "1.0.0",
	})
}

// Query answers a question against the ingested corpus.
func (h *handler) Query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}
	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "query cannot be empty"})
	}

	start := time.Now()
	result := h.query.Query(c.Request().Context(), req.Query)
	h.recordQuery(c, len(result.Sources), time.Since(start))

	h.logger.Info("query processed", "sources", len(result.Sources), "filtered_documents", len(result.FilteredDocuments))
	return c.JSON(http.StatusOK, result)
}

// Upload ingests a document from a multipart form (field "file").
// Supported extensions: .md, .markdown, .html, .htm, .pdf.
func (h *handler) Upload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing file field"})
	}

	contentType, err := ingest.ContentTypeFromFilename(fileHeader.Filename)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read file"})
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read file"})
	}

	text, err := h.extractors[contentType].Extract(raw)
	if err != nil {
		if errors.Is(err, tome.ErrEncoding) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "file encoding error, expected UTF-8"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	start := time.Now()
	result, err := h.ingest.Process(c.Request().Context(), text, fileHeader.Filename)
	h.recordIngest(c, fileHeader.Filename, result, err, time.Since(start))
	if err != nil {
		var exists *tome.ErrSourceExists
		if errors.As(err, &exists) {
			return c.JSON(http.StatusBadRequest, uploadResponse{
				Status:  "error",
				Message: exists.Error(),
			})
		}
		h.logger.Error("upload failed", "file", fileHeader.Filename, "error", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{
			Status:  "error",
			Message: "error processing file: " + err.Error(),
		})
	}

	h.logger.Info("file processed", "file", fileHeader.Filename,
		"pages", result.PagesProcessed, "chunks", result.ChunksCreated)
	return c.JSON(http.StatusOK, uploadResponse{
		Status:  "success",
		Message: "document processed successfully",
		Details: &result,
	})
}

// documentListLimit caps how many summary records are scanned when listing.
const documentListLimit = 100

type documentInfo struct {
	Source          string `json:"source"`
	PublicationYear int    `json:"publication_year"`
	Keywords        string `json:"keywords"`
}

// ListDocuments returns the distinct sources that have been ingested,
// derived from the per-document summary records.
func (h *handler) ListDocuments(c echo.Context) error {
	results, err := h.gateway.Search(c.Request().Context(), "document", documentListLimit,
		tome.FilterEq("type", tome.TypeSummary))
	if err != nil {
		h.logger.Error("list documents failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error listing documents"})
	}

	documents := make([]documentInfo, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if seen[r.Meta.Source] {
			continue
		}
		seen[r.Meta.Source] = true
		documents = append(documents, documentInfo{
			Source:          r.Meta.Source,
			PublicationYear: r.Meta.PublicationYear,
			Keywords:        r.Meta.Keywords,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"documents": documents,
		"count":     len(documents),
	})
}

func (h *handler) recordQuery(c echo.Context, sources int, elapsed time.Duration) {
	if h.inst == nil {
		return
	}
	ctx := c.Request().Context()
	h.inst.QueryRequests.Add(ctx, 1, metric.WithAttributes(
		observer.AttrQuerySources.Int(sources),
	))
	h.inst.QueryDuration.Record(ctx, float64(elapsed.Milliseconds()))
}

func (h *handler) recordIngest(c echo.Context, source string, result ingest.Result, err error, elapsed time.Duration) {
	if h.inst == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	ctx := c.Request().Context()
	h.inst.IngestRuns.Add(ctx, 1, metric.WithAttributes(
		observer.AttrIngestSource.String(source),
		observer.AttrIngestStatus.String(status),
	))
	h.inst.IngestDuration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(
		observer.AttrIngestPages.Int(result.PagesProcessed),
		observer.AttrIngestChunks.Int(result.ChunksCreated),
	))
}

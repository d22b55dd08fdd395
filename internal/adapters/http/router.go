package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/civicaccess/streetlaw/internal/core/domain"
	"github.com/civicaccess/streetlaw/internal/core/ports"
	"github.com/civicaccess/streetlaw/internal/infrastructure/report"
	"github.com/civicaccess/streetlaw/internal/observability/metrics"
)

const serviceName = "api"

// maxUploadBytes bounds statute uploads; gazette PDFs stay well under it.
const maxUploadBytes = 32 << 20

type Router struct {
	ingestor     ports.DocumentIngestor
	asker        ports.LegalQueryService
	interactions ports.InteractionRepository
	extractor    ports.TextExtractor
	metrics      *metrics.APIMetrics
	indexMode    string
	askLimiter   *rate.Limiter
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	asker ports.LegalQueryService,
	interactions ports.InteractionRepository,
	extractor ports.TextExtractor,
	apiMetrics *metrics.APIMetrics,
	indexMode string,
	askRatePerSecond float64,
	askRateBurst int,
) *Router {
	if askRatePerSecond <= 0 {
		askRatePerSecond = 5
	}
	if askRateBurst <= 0 {
		askRateBurst = 10
	}
	return &Router{
		ingestor:     ingestor,
		asker:        asker,
		interactions: interactions,
		extractor:    extractor,
		metrics:      apiMetrics,
		indexMode:    indexMode,
		askLimiter:   rate.NewLimiter(rate.Limit(askRatePerSecond), askRateBurst),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/readyz", rt.readyz)
	mux.Handle("/v1/ask", rateLimitMiddleware(rt.askLimiter, http.HandlerFunc(rt.ask)))
	mux.HandleFunc("/v1/documents", rt.ingestDocument)
	mux.HandleFunc("/v1/interactions/", rt.getInteraction)
	mux.HandleFunc("/v1/admin/judgments/export", rt.exportJudgments)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		return requestIDMiddleware(accessLogMiddleware(rt.metrics.Middleware(serviceName, mux)))
	}
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"index_mode": rt.indexMode,
	})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		RawText string `json:"raw_text"`
		Persona string `json:"persona"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	answer, err := rt.asker.Ask(r.Context(), req.RawText, req.Persona)
	if err != nil {
		rt.recordAsk("error", 0, false, time.Since(start))
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	outcome := "answered"
	if len(answer.CitedSections) == 0 {
		outcome = "no_grounding"
	}
	rt.recordAsk(outcome, len(answer.CitedSections), answer.Degraded, time.Since(start))
	writeJSON(w, http.StatusOK, answer)
}

// ingestDocument accepts either a JSON body with the statute text inline
// or a multipart upload with a txt/pdf file to extract.
func (rt *Router) ingestDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var sourceID, title, fullText string
	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
			return
		}
		file, fileHeader, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
			return
		}
		defer file.Close()

		sourceID = r.FormValue("source_id")
		title = r.FormValue("title")
		fullText, err = rt.extractor.Extract(r.Context(), fileHeader.Filename, file)
		if err != nil {
			writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
			return
		}
	default:
		var req struct {
			SourceID string `json:"source_id"`
			Title    string `json:"title"`
			FullText string `json:"full_text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		sourceID, title, fullText = req.SourceID, req.Title, req.FullText
	}

	result, err := rt.ingestor.Ingest(r.Context(), sourceID, title, fullText)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

func (rt *Router) getInteraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/interactions/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "interaction id is required"})
		return
	}

	interaction, err := rt.interactions.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	response := struct {
		Interaction *domain.Interaction `json:"interaction"`
		Judgment    *domain.Judgment    `json:"judgment,omitempty"`
	}{Interaction: interaction}

	if judgment, err := rt.interactions.GetJudgment(r.Context(), id); err == nil {
		response.Judgment = judgment
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) exportJudgments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	judged, err := rt.interactions.ListJudged(r.Context(), 1000)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("judgments-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := report.WriteJudgmentsXLSX(w, judged); err != nil {
		slogError(r, "export_judgments_failed", err)
	}
}

func (rt *Router) recordAsk(outcome string, cited int, degraded bool, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordAsk(serviceName, outcome, cited, degraded, duration)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

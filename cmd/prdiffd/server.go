package main

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/thehowl/cford32"

	"github.com/thehowl/prdiff/internal/cache"
	"github.com/thehowl/prdiff/internal/diffmodel"
	"github.com/thehowl/prdiff/internal/engine"
	"github.com/thehowl/prdiff/internal/patchgen"
	"github.com/thehowl/prdiff/internal/pool"
	"github.com/thehowl/prdiff/internal/quota"
	"github.com/thehowl/prdiff/pkg/storage"
	"github.com/thehowl/prdiff/web"
)

const (
	maxBodySize  = 1 << 20 // 1M
	maxBytesWeek = (1 << 20) * 8
	maxCallsWeek = 500
)

// Server holds the wired dependencies for the demo service's handlers.
type Server struct {
	PublicURL string
	Storage   storage.Storage
	Quota     *quota.Limiter
	Pool      *pool.Pool
	Cache     *cache.Cache
}

func (s *Server) Router() chi.Router {
	rt := chi.NewRouter()
	rt.Use(
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger: log.New(os.Stdout, "", log.LstdFlags),
		}),
		middleware.Recoverer,
		middleware.Timeout(time.Second*60),
	)
	rt.Get("/", s.index)
	rt.Post("/diffs", s.e(s.createDiff))
	rt.Get("/diffs/{id}", s.e(s.getDiff))
	rt.Post("/highlight", s.e(s.highlight))
	return rt
}

var reBrowser = regexp.MustCompile("(?i)(?:chrome|firefox|safari|gecko)/")

func isBrowser(r *http.Request) bool {
	return reBrowser.MatchString(r.UserAgent())
}

func (s *Server) usageString() []byte {
	return []byte("usage: POST a {patch, filename, previousFilename?, oldContent?, newContent?} JSON body to " +
		s.PublicURL + "/diffs\n")
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if !isBrowser(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write(s.usageString())
		return
	}
	web.Templates.ExecuteTemplate(w, "index.tmpl", struct{ PublicURL string }{s.PublicURL})
}

// e adapts a fallible handler into an http.HandlerFunc, the same shape as
// the teacher's Server.e: quota.ErrLimitsExceeded becomes a 429, any other
// error is logged and surfaced as a 500.
func (s *Server) e(fn func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			if errors.Is(err, quota.ErrLimitsExceeded) {
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte("limit exceeded\n"))
				return
			}
			log.Printf("request error: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			writeJSONError(w, err)
		}
	}
}

func writeJSONError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

type createDiffRequest struct {
	Patch            string `json:"patch"`
	Filename         string `json:"filename"`
	PreviousFilename string `json:"previousFilename,omitempty"`
	OldContent       string `json:"oldContent,omitempty"`
	NewContent       string `json:"newContent,omitempty"`
}

func (s *Server) createDiff(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req createDiffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("error: " + err.Error() + "\n"))
		return nil
	}
	if req.Filename == "" {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("filename is required\n"))
		return nil
	}
	if req.Patch == "" {
		if req.OldContent == "" && req.NewContent == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("either patch or old/new content is required\n"))
			return nil
		}
		req.Patch = patchgen.GeneratePatch(req.OldContent, req.NewContent)
	}

	now := time.Now().UTC()
	weekNum := (now.YearDay() - 1) / 7
	err := s.Quota.AddAmountsAndCompare(
		r.RemoteAddr,
		quota.UsageStat{
			Period:   fmt.Sprintf("%d/%d", now.Year(), weekNum),
			NumBytes: uint64(len(req.Patch) + len(req.OldContent) + len(req.NewContent)),
			NumCalls: 1,
		},
		quota.UploadLimits{MaxBytes: maxBytesWeek, MaxCalls: maxCallsWeek},
	)
	if err != nil {
		return err
	}

	cacheKey := cache.Key(req.Filename, req.PreviousFilename, req.Patch)
	if cached, ok := s.Cache.Get(cacheKey); ok {
		return s.writeDiffResult(w, "", cached, nil)
	}

	in := engine.ParseDiffInput{
		Patch:            req.Patch,
		Filename:         req.Filename,
		PreviousFilename: req.PreviousFilename,
	}
	if req.OldContent != "" {
		in.OldContent = &req.OldContent
	}
	if req.NewContent != "" {
		in.NewContent = &req.NewContent
	}

	result, perr := s.Pool.ParseDiff(r.Context(), in)
	if perr != nil {
		var engErr *engine.Error
		if !(errors.As(perr, &engErr) && engErr.Kind == engine.ErrPatchMalformed && result != nil) {
			return perr
		}
		// Truncated-tail recovery: still usable, just don't cache it.
	}

	id := s.contentID(req)
	if _, err := storage.PutDiffIfAbsent(r.Context(), s.Storage, id, storage.StoredDiff{
		Patch:            req.Patch,
		Filename:         req.Filename,
		PreviousFilename: req.PreviousFilename,
		OldContent:       req.OldContent,
		NewContent:       req.NewContent,
		CreatedAt:        now,
	}); err != nil {
		log.Printf("createDiff: storing %s: %v", id, err)
	}

	if perr == nil && req.OldContent != "" && req.NewContent != "" {
		s.Cache.Store(cacheKey, result)
	}

	return s.writeDiffResult(w, id, result, perr)
}

// contentID derives the same kind of human-readable content-addressed id
// the teacher computes for uploads, so a resubmission of the same patch
// maps to the same /diffs/{id}.
func (s *Server) contentID(req createDiffRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Filename))
	h.Write([]byte{0})
	h.Write([]byte(req.Patch))
	sum := h.Sum(nil)
	return cford32.EncodeToStringLower(sum[:5])
}

func (s *Server) getDiff(w http.ResponseWriter, r *http.Request) error {
	id := chi.URLParam(r, "id")
	stored, err := storage.GetDiff(r.Context(), s.Storage, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("not found\n"))
			return nil
		}
		return err
	}

	in := engine.ParseDiffInput{
		Patch:            stored.Patch,
		Filename:         stored.Filename,
		PreviousFilename: stored.PreviousFilename,
	}
	if stored.OldContent != "" {
		in.OldContent = &stored.OldContent
	}
	if stored.NewContent != "" {
		in.NewContent = &stored.NewContent
	}
	result, perr := s.Pool.ParseDiff(r.Context(), in)
	if perr != nil {
		var engErr *engine.Error
		if !(errors.As(perr, &engErr) && engErr.Kind == engine.ErrPatchMalformed && result != nil) {
			return perr
		}
	}
	return s.writeDiffResult(w, id, result, perr)
}

func (s *Server) writeDiffResult(w http.ResponseWriter, id string, result *diffmodel.ParsedDiff, truncated error) error {
	w.Header().Set("Content-Type", "application/json")
	if id != "" {
		w.Header().Set("Location", s.PublicURL+"/diffs/"+id)
	}
	body := jsonParsedDiff(result)
	if truncated != nil {
		body["truncated"] = truncated.Error()
	}
	return json.NewEncoder(w).Encode(body)
}

type highlightRequest struct {
	Content   string `json:"content"`
	Filename  string `json:"filename"`
	StartLine int    `json:"startLine"`
	Count     int    `json:"count"`
}

func (s *Server) highlight(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var req highlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("error: " + err.Error() + "\n"))
		return nil
	}
	lines, err := s.Pool.HighlightLines(r.Context(), engine.HighlightLinesInput{
		Content:   req.Content,
		Filename:  req.Filename,
		StartLine: req.StartLine,
		Count:     req.Count,
	})
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{"result": jsonLines(lines)})
}

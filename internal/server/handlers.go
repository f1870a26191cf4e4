package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KaramelBytes/surveyloom-cli/internal/analysis"
	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
	"github.com/KaramelBytes/surveyloom-cli/internal/filter"
	"github.com/KaramelBytes/surveyloom-cli/internal/summarize"
	"github.com/KaramelBytes/surveyloom-cli/internal/utils"
)

const unsupportedFile = "File must be a CSV or XLSX"

// httpError carries a status chosen before any pipeline ran.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

// request is the decoded common input of the analytic routes.
type request struct {
	ds      *dataset.Dataset
	filters filter.Set
	group   *filter.GroupFilter
}

func (s *Server) handleCounts(c *gin.Context) {
	req, err := s.decode(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	rows, err := analysis.ComputeCounts(req.ds, req.filters.Rows, req.group)
	if err == nil {
		rows, err = analysis.FilterSummaries(rows, req.filters.Summary)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if rows == nil {
		rows = []analysis.QuestionSummary{}
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) handleCorrelation(c *gin.Context) {
	req, err := s.decode(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	m, err := analysis.ComputeCorrelation(req.ds, req.filters.Rows, req.group)
	if err != nil {
		s.fail(c, err)
		return
	}
	if m.Columns == nil {
		m = &analysis.CorrMatrix{Columns: []string{}, Values: [][]*float64{}}
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) handleSummarize(c *gin.Context) {
	if s.svc == nil {
		summarizationsTotal.WithLabelValues("unavailable").Inc()
		s.fail(c, &httpError{status: http.StatusServiceUnavailable, msg: "summarization is not configured"})
		return
	}
	question := strings.TrimSpace(param(c, "question"))
	if question == "" {
		s.fail(c, &httpError{status: http.StatusBadRequest, msg: "question is required"})
		return
	}
	req, err := s.decode(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.svc.SummarizeResponses(c.Request.Context(), req.ds, req.filters.Rows, req.group, question)
	if err != nil {
		summarizationsTotal.WithLabelValues(outcome(err)).Inc()
		s.fail(c, err)
		return
	}
	summarizationsTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, res)
}

// decode parses the filter parameters first, then loads the uploaded file.
func (s *Server) decode(c *gin.Context) (*request, error) {
	set, err := filter.ParseFilters(param(c, "filters"))
	if err != nil {
		return nil, err
	}
	group, err := filter.ParseGroupFilter(param(c, "group_filter"))
	if err != nil {
		return nil, err
	}
	ds, err := s.loadUpload(c)
	if err != nil {
		return nil, err
	}
	return &request{ds: ds, filters: set, group: group}, nil
}

// loadUpload spools the multipart "file" to a temp file and loads it. The temp
// file is removed before returning.
func (s *Server) loadUpload(c *gin.Context) (*dataset.Dataset, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &httpError{status: http.StatusRequestEntityTooLarge, msg: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)}
		}
		return nil, &httpError{status: http.StatusBadRequest, msg: "file is required"}
	}
	if !dataset.Supported(fh.Filename) {
		return nil, &httpError{status: http.StatusBadRequest, msg: unsupportedFile}
	}
	uploadBytes.Observe(float64(fh.Size))

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	path, cleanup, err := utils.SpoolTemp(src, fh.Filename)
	defer cleanup()
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Load(path, s.opt.Load)
	if err != nil {
		return nil, err
	}
	ds.Name = fh.Filename
	return ds, nil
}

// param reads name from the query string, falling back to the form body.
func param(c *gin.Context, name string) string {
	if v, ok := c.GetQuery(name); ok {
		return v
	}
	return c.PostForm(name)
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("pipeline error", zap.String("request_id", c.GetString(requestIDKey)), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": err.Error()})
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		he      *httpError
		loadErr *dataset.LoadError
		typeErr *filter.FilterTypeError
		bucket  *filter.InvalidBucketError
		syntax  *filter.SyntaxError
		unknown *analysis.UnknownQuestionError
		empty   *analysis.NoResponsesError
		sumErr  *summarize.SummarizationError
	)
	switch {
	case errors.As(err, &he):
		return he.status
	case errors.As(err, &loadErr),
		errors.As(err, &typeErr),
		errors.As(err, &bucket),
		errors.As(err, &syntax),
		errors.As(err, &unknown):
		return http.StatusBadRequest
	case errors.As(err, &empty):
		return http.StatusNotFound
	case errors.As(err, &sumErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func outcome(err error) string {
	var (
		empty  *analysis.NoResponsesError
		sumErr *summarize.SummarizationError
	)
	switch {
	case errors.As(err, &empty):
		return "no_responses"
	case errors.As(err, &sumErr):
		return "backend_error"
	default:
		return "rejected"
	}
}

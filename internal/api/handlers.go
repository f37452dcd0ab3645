package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"taskquest/adapters/excel"
	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/internal/analysis/insight"
	"taskquest/internal/errors"
	"taskquest/models"

	"github.com/gin-gonic/gin"
)

const (
	dateLayout       = "2006-01-02"
	defaultFeedLimit = 20
	maxRangeDays     = 366
)

// rangeFrom reads ?from=YYYY-MM-DD&to=YYYY-MM-DD (to inclusive) or ?days=N,
// falling back to the service's default window
func (s *Server) rangeFrom(c *gin.Context) (core.DateRange, error) {
	def := s.services.Analytics.DefaultRange()
	loc := def.To.Location()

	if days := c.Query("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 1 || n > maxRangeDays {
			return core.DateRange{}, errors.InvalidInput(fmt.Sprintf("days must be between 1 and %d", maxRangeDays))
		}
		return core.DateRange{From: def.To.AddDate(0, 0, -n), To: def.To}, nil
	}

	from, to := c.Query("from"), c.Query("to")
	if from == "" && to == "" {
		return def, nil
	}
	r := def
	if from != "" {
		t, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return core.DateRange{}, errors.InvalidInput("from must be a date like 2026-01-31")
		}
		r.From = t
	}
	if to != "" {
		t, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return core.DateRange{}, errors.InvalidInput("to must be a date like 2026-01-31")
		}
		r.To = t.AddDate(0, 0, 1)
	}
	if err := r.Validate(); err != nil {
		return core.DateRange{}, errors.WithCode(errors.CodeValidationError, err)
	}
	if r.To.Sub(r.From) > maxRangeDays*24*time.Hour {
		return core.DateRange{}, errors.InvalidInput(fmt.Sprintf("range may span at most %d days", maxRangeDays))
	}
	return r, nil
}

func (s *Server) handleDashboard(c *gin.Context) {
	r, err := s.rangeFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	d, err := s.services.Analytics.Dashboard(c.Request.Context(), userFrom(c), r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleInsight(c *gin.Context) {
	section, err := insight.ParseSection(c.Param("section"))
	if err != nil {
		writeError(c, errors.WithCode(errors.CodeValidationError, err))
		return
	}
	r, err := s.rangeFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	in, err := s.services.Analytics.Insight(c.Request.Context(), userFrom(c), section, r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"section": section, "range": r, "insight": in})
}

func (s *Server) handleFeed(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultFeedLimit)))
	if err != nil || limit < 1 {
		writeError(c, errors.InvalidInput("limit must be a positive integer"))
		return
	}
	entries, err := s.services.Analytics.Feed(c.Request.Context(), userFrom(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// dailyTable builds the export table for the request's range and granularity
func (s *Server) dailyTable(c *gin.Context) (*excel.Table, string, bool) {
	r, err := s.rangeFrom(c)
	if err != nil {
		writeError(c, err)
		return nil, "", false
	}
	granularity := metrics.Granularity(c.DefaultQuery("granularity", string(metrics.Daily)))
	if !granularity.Valid() {
		writeError(c, errors.InvalidInput("granularity must be daily, weekly or monthly"))
		return nil, "", false
	}
	windows, err := s.services.Analytics.Windows(c.Request.Context(), userFrom(c), r, granularity)
	if err != nil {
		writeError(c, err)
		return nil, "", false
	}
	name := fmt.Sprintf("taskquest-%s-%s", r.From.Format(dateLayout), r.To.AddDate(0, 0, -1).Format(dateLayout))
	return excel.DailyTable(windows, r.From.Location()), name, true
}

func (s *Server) handleDailyCSV(c *gin.Context) {
	table, name, ok := s.dailyTable(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := excel.WriteCSV(&buf, table); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) handleDailyXLSX(c *gin.Context) {
	table, name, ok := s.dailyTable(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := excel.WriteXLSX(&buf, table, excel.DailySheet); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (s *Server) handleWeeklyReport(c *gin.Context) {
	end := time.Now()
	if v := c.Query("end"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, s.services.Analytics.DefaultRange().To.Location())
		if err != nil {
			writeError(c, errors.InvalidInput("end must be a date like 2026-01-31"))
			return
		}
		end = t
	}
	report, err := s.services.Analytics.WeeklyReport(c.Request.Context(), userFrom(c), end)
	if err != nil {
		writeError(c, err)
		return
	}

	switch c.DefaultQuery("format", "html") {
	case "json":
		c.JSON(http.StatusOK, report)
	case "md", "markdown":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(report.Markdown()))
	case "html":
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML())
	default:
		writeError(c, errors.InvalidInput("format must be html, md or json"))
	}
}

type suggestionRequest struct {
	Limit int `json:"limit"`
}

func (s *Server) handleSuggestions(c *gin.Context) {
	var req suggestionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
			return
		}
	}
	got, err := s.services.Suggestions.Suggest(c.Request.Context(), userFrom(c), req.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, got)
}

func (s *Server) handleGoalPrediction(c *gin.Context) {
	goal, err := core.ParseGoalID(c.Param("id"))
	if err != nil {
		writeError(c, errors.InvalidInput(err.Error()))
		return
	}
	pred, err := s.services.Predictions.PredictGoal(c.Request.Context(), userFrom(c), goal)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pred)
}

func (s *Server) handleProductivity(c *gin.Context) {
	r, err := s.rangeFrom(c)
	if err != nil {
		writeError(c, err)
		return
	}
	score, err := s.services.Predictions.ProductivityScore(c.Request.Context(), userFrom(c), r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

func (s *Server) handlePendingNotifications(c *gin.Context) {
	pending, err := s.services.Notifications.Pending(c.Request.Context(), userFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": pending})
}

func (s *Server) handleDigest(c *gin.Context) {
	res, err := s.services.Notifications.Digest(c.Request.Context(), userFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetPreferences(c *gin.Context) {
	prefs, err := s.services.Notifications.Preferences(c.Request.Context(), userFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *Server) handlePutPreferences(c *gin.Context) {
	var prefs models.NotificationPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}
	saved, err := s.services.Notifications.SavePreferences(c.Request.Context(), userFrom(c), prefs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

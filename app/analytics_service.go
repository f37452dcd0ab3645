package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/internal/analysis/insight"
	"taskquest/internal/errors"
	"taskquest/internal/fetch"
	"taskquest/internal/gamification"
	"taskquest/ports"

	log "github.com/sirupsen/logrus"
)

// sectionSources lists the sources each section reads. A section is only built
// when every one of its sources loaded.
var sectionSources = map[insight.Section][]fetch.Source{
	insight.SectionProductivity: {fetch.SourceTasks},
	insight.SectionGoals:        {fetch.SourceGoals, fetch.SourceGoalProgress},
	insight.SectionContacts:     {fetch.SourceContacts, fetch.SourceInteractions},
	insight.SectionWellness:     {fetch.SourceWellness},
	insight.SectionPredictive:   {fetch.SourceTasks, fetch.SourceGoals, fetch.SourceGoalProgress},
}

const defaultPersistTimeout = 5 * time.Second

// AnalyticsService loads a user's activity, builds insights and hands them to
// the configured sinks
type AnalyticsService struct {
	fetcher        *fetch.Fetcher
	engine         *insight.Engine
	sinks          []ports.InsightSink
	windowDays     int
	persistTimeout time.Duration
	now            func() time.Time
	wg             sync.WaitGroup
}

// SectionResult is one dashboard section; exactly one of Insight and Error is set
type SectionResult struct {
	Insight *metrics.Insight `json:"insight,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Dashboard is every section for one user and range
type Dashboard struct {
	UserID       core.UserID                       `json:"user_id"`
	Range        core.DateRange                    `json:"range"`
	GeneratedAt  time.Time                         `json:"generated_at"`
	Sections     map[insight.Section]SectionResult `json:"sections"`
	SourceErrors map[fetch.Source]string           `json:"source_errors,omitempty"`
	Profile      *gamification.Profile             `json:"profile,omitempty"`
}

// NewAnalyticsService creates an analytics service. windowDays is the default
// analysis window; sinks may be empty.
func NewAnalyticsService(fetcher *fetch.Fetcher, engine *insight.Engine, windowDays int, sinks ...ports.InsightSink) *AnalyticsService {
	if windowDays < 1 {
		windowDays = 30
	}
	return &AnalyticsService{
		fetcher:        fetcher,
		engine:         engine,
		sinks:          sinks,
		windowDays:     windowDays,
		persistTimeout: defaultPersistTimeout,
		now:            time.Now,
	}
}

// DefaultRange returns the analysis window ending with today
func (s *AnalyticsService) DefaultRange() core.DateRange {
	return core.LastNDays(s.now().In(s.engine.Location()), s.windowDays)
}

// Insight builds a single section for r
func (s *AnalyticsService) Insight(ctx context.Context, user core.UserID, section insight.Section, r core.DateRange) (*metrics.Insight, error) {
	if user == "" {
		return nil, errors.Unauthenticated()
	}
	sources, ok := sectionSources[section]
	if !ok {
		return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("%w: %q", core.ErrUnknownSection, section))
	}

	data, failed, err := s.load(ctx, user, r, sources...)
	if err != nil {
		return nil, err
	}
	if source, err := firstFailure(sources, failed); err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", source)
	}

	in, err := s.engine.Build(section, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s insight", section)
	}
	s.persist(user, string(section), in, data.Now)
	return &in, nil
}

// Dashboard builds every section. Sections whose sources failed carry an error
// while the rest still render.
func (s *AnalyticsService) Dashboard(ctx context.Context, user core.UserID, r core.DateRange) (*Dashboard, error) {
	data, failed, err := s.load(ctx, user, r)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		UserID:      user,
		Range:       r,
		GeneratedAt: data.Now,
		Sections:    make(map[insight.Section]SectionResult, len(insight.AllSections)),
	}
	if len(failed) > 0 {
		d.SourceErrors = make(map[fetch.Source]string, len(failed))
		for source, err := range failed {
			d.SourceErrors[source] = err.Error()
		}
	}

	var buildable []insight.Section
	for _, section := range insight.AllSections {
		if source, err := firstFailure(sectionSources[section], failed); err != nil {
			d.Sections[section] = SectionResult{Error: fmt.Sprintf("%s unavailable: %v", source, err)}
			continue
		}
		buildable = append(buildable, section)
	}

	for section, res := range s.engine.BuildAll(buildable, data) {
		if res.Err != nil {
			log.WithError(res.Err).WithField("section", section).Warn("Insight section failed")
			d.Sections[section] = SectionResult{Error: res.Err.Error()}
			continue
		}
		d.Sections[section] = SectionResult{Insight: res.Insight}
		s.persist(user, string(section), *res.Insight, data.Now)
	}

	if _, ok := failed[fetch.SourceTasks]; !ok {
		profile := gamification.BuildProfile(s.engine.Rules(), data.Tasks, data.Now, s.engine.Location())
		d.Profile = &profile
	}
	return d, nil
}

// WeeklyReport summarizes the seven days ending with the day containing end
func (s *AnalyticsService) WeeklyReport(ctx context.Context, user core.UserID, end time.Time) (insight.Report, error) {
	r := core.LastNDays(end.In(s.engine.Location()), 7)
	data, failed, err := s.load(ctx, user, r)
	if err != nil {
		return insight.Report{}, err
	}

	report := s.engine.WeeklyReport(user, data)
	if _, ok := failed[fetch.SourceTasks]; ok {
		report.Daily = nil
	}
	for i, sr := range report.Sections {
		if source, err := firstFailure(sectionSources[sr.Section], failed); err != nil {
			report.Sections[i] = insight.SectionReport{
				Section: sr.Section,
				Error:   fmt.Sprintf("%s unavailable: %v", source, err),
			}
		}
	}
	return report, nil
}

// Windows buckets completed-task XP over r for exports
func (s *AnalyticsService) Windows(ctx context.Context, user core.UserID, r core.DateRange, granularity metrics.Granularity) ([]metrics.AggregateWindow, error) {
	data, failed, err := s.load(ctx, user, r, fetch.SourceTasks)
	if err != nil {
		return nil, err
	}
	if err := failed[fetch.SourceTasks]; err != nil {
		return nil, errors.Wrap(err, "failed to load tasks")
	}
	return s.engine.Windows(s.engine.Rules(), data, granularity), nil
}

// Feed returns the newest insights from the first sink that keeps a feed
func (s *AnalyticsService) Feed(ctx context.Context, user core.UserID, limit int) ([]ports.FeedEntry, error) {
	if user == "" {
		return nil, errors.Unauthenticated()
	}
	for _, sink := range s.sinks {
		if feed, ok := sink.(ports.InsightFeed); ok {
			return feed.Recent(ctx, user, limit)
		}
	}
	return nil, errors.NotFound("insight feed")
}

// Wait blocks until every pending sink write has finished
func (s *AnalyticsService) Wait() {
	s.wg.Wait()
}

// load fetches r together with the period before it, which trend detection
// compares against
func (s *AnalyticsService) load(ctx context.Context, user core.UserID, r core.DateRange, sources ...fetch.Source) (insight.Data, map[fetch.Source]error, error) {
	if user == "" {
		return insight.Data{}, nil, errors.Unauthenticated()
	}
	if err := r.Validate(); err != nil {
		return insight.Data{}, nil, errors.WithCode(errors.CodeValidationError, err)
	}
	span := core.DateRange{From: r.Previous().From, To: r.To}
	results, err := s.fetcher.FetchAll(ctx, user, span, sources...)
	if err != nil {
		return insight.Data{}, nil, err
	}

	data, failed := results.Data()
	data.Range = r
	data.Now = s.now()
	return data, failed, nil
}

// persist writes to every sink in the background. Failures are logged and
// never reach the caller.
func (s *AnalyticsService) persist(user core.UserID, section string, in metrics.Insight, at time.Time) {
	if len(s.sinks) == 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		for _, sink := range s.sinks {
			if err := sink.Save(ctx, user, section, in, at); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"user_id": user,
					"section": section,
				}).Warn("Failed to persist insight")
			}
		}
	}()
}

func firstFailure(sources []fetch.Source, failed map[fetch.Source]error) (fetch.Source, error) {
	for _, source := range sources {
		if err := failed[source]; err != nil {
			return source, err
		}
	}
	return "", nil
}

// loadAll fetches sources for r and fails on the first one that did not load
func loadAll(ctx context.Context, fetcher *fetch.Fetcher, user core.UserID, r core.DateRange, sources ...fetch.Source) (insight.Data, error) {
	if user == "" {
		return insight.Data{}, errors.Unauthenticated()
	}
	results, err := fetcher.FetchAll(ctx, user, r, sources...)
	if err != nil {
		return insight.Data{}, err
	}
	data, failed := results.Data()
	if source, err := firstFailure(sources, failed); err != nil {
		return insight.Data{}, errors.Wrapf(err, "failed to load %s", source)
	}
	data.Range = r
	return data, nil
}

package insight

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"taskquest/domain/core"
	"taskquest/domain/metrics"
	"taskquest/domain/rules"
	"taskquest/internal/analysis/aggregate"
	"taskquest/internal/analysis/classify"
	"taskquest/internal/analysis/heuristics"
	"taskquest/internal/analysis/recommend"
	"taskquest/internal/analysis/trend"
	"taskquest/internal/gamification"
	"taskquest/models"
)

// neverContacted stands in for contacts with no recorded interaction
const neverContacted = 10000.0

func (e *Engine) productivity(set *rules.RuleSet, data Data) (metrics.Insight, error) {
	table, err := set.Table(rules.TableProductivity)
	if err != nil {
		return metrics.Insight{}, err
	}

	prev := data.Range.Previous()
	n := days(data.Range)
	samples := aggregate.FromTasks(data.Tasks, set.XPByComplexity)
	windows := e.aggregator.Aggregate(samples, metrics.Daily, prev.From, data.Range.To)
	current := windows
	if len(windows) > n {
		current = windows[len(windows)-n:]
	}
	direction := trend.DetectWindows(windows, n, trend.MetricCount)

	inputs := heuristics.ProductivityInputsFromTasks(data.Tasks, data.Range.From, data.Range.To, data.Now,
		func(c string) int { return heuristics.XPFor(set, c) })
	if inputs.Total == 0 {
		return insufficient("Productivity", "No tasks in this period. Add or complete a task to start tracking productivity."), nil
	}
	score := classify.Classify(heuristics.ProductivityScore(inputs, heuristics.DefaultTargetXPPerDay), table)
	profile := gamification.BuildProfile(set, data.Tasks, data.Now, e.loc)

	state := recommend.State{
		OverdueTasks:   inputs.Overdue,
		CompletionRate: inputs.CompletionRate(),
		Streak:         profile.Streak.Current,
	}.WithScore(score).WithTrend(direction)
	recs, err := e.generator.Generate(set, rules.DomainProductivity, state)
	if err != nil {
		return metrics.Insight{}, err
	}

	summary := aggregate.Summarize(current)
	desc := fmt.Sprintf("Completed %d of %d tasks (%.0f%%) and earned %.0f XP over %d days.",
		inputs.Completed, inputs.Total, aggregate.PercentOf(float64(inputs.Completed), float64(inputs.Total)), inputs.XP, n)
	if summary.MaxCount > 0 {
		desc += fmt.Sprintf(" Best day was %s with %d tasks.", summary.BestWindowAt, summary.MaxCount)
	}

	return metrics.Insight{
		Title:       "Productivity",
		Description: desc,
		Category:    score.Category,
		Confidence:  sampleConfidence(inputs.Total, 10),
		Score:       &score,
		Trend:       &direction,
		Metrics: map[string]float64{
			"completion_rate": inputs.CompletionRate() * 100,
			"on_time_rate":    inputs.OnTimeRate() * 100,
			"xp_earned":       inputs.XP,
			"xp_per_day":      inputs.XPPerDay(),
			"overdue_tasks":   float64(inputs.Overdue),
			"current_streak":  float64(profile.Streak.Current),
			"longest_streak":  float64(profile.Streak.Longest),
			"level":           float64(profile.Level),
			"median_per_day":  summary.MedianCount,
		},
		Recommendations: recs,
	}, nil
}

func (e *Engine) goals(set *rules.RuleSet, data Data) (metrics.Insight, error) {
	table, err := set.Table(rules.TableGoalAchievement)
	if err != nil {
		return metrics.Insight{}, err
	}

	var progress []float64
	active, overdue, achieved := 0, 0, 0
	for _, g := range data.Goals {
		if g.Status == "cancelled" || g.Status == "archived" {
			continue
		}
		progress = append(progress, g.Progress())
		if g.IsAchieved() {
			achieved++
			continue
		}
		active++
		if g.TargetDate != nil && g.TargetDate.Before(data.Now) {
			overdue++
		}
	}
	if len(progress) == 0 {
		return insufficient("Goals", "No goals yet. Set a goal to start tracking progress."), nil
	}

	avg := 0.0
	for _, p := range progress {
		avg += p
	}
	avg /= float64(len(progress))
	score := classify.Classify(avg, table)

	prev := data.Range.Previous()
	windows := e.aggregator.Aggregate(aggregate.FromGoalProgress(data.GoalProgress), metrics.Daily, prev.From, data.Range.To)
	direction := trend.DetectWindows(windows, days(data.Range), trend.MetricCount)

	state := recommend.State{
		ActiveGoals:  active,
		OverdueGoals: overdue,
		AvgProgress:  avg,
	}.WithScore(score).WithTrend(direction)
	recs, err := e.generator.Generate(set, rules.DomainGoals, state)
	if err != nil {
		return metrics.Insight{}, err
	}

	return metrics.Insight{
		Title: "Goals",
		Description: fmt.Sprintf("%d active goals at %.0f%% average progress; %d achieved, %d past their target date.",
			active, avg, achieved, overdue),
		Category:   score.Category,
		Confidence: sampleConfidence(len(progress), 5),
		Score:      &score,
		Trend:      &direction,
		Metrics: map[string]float64{
			"active_goals":     float64(active),
			"achieved_goals":   float64(achieved),
			"overdue_goals":    float64(overdue),
			"average_progress": avg,
		},
		Recommendations: recs,
	}, nil
}

// ContactStrengths classifies every contact by relationship strength, keyed by
// contact ID. Frequency is interactions per 30 days over the current range.
func (e *Engine) ContactStrengths(set *rules.RuleSet, data Data) (map[string]string, float64, error) {
	n := float64(days(data.Range))
	lastSeen := make(map[string]time.Time)
	counts := make(map[string]int)
	for _, in := range data.Interactions {
		if in.OccurredAt.After(lastSeen[in.ContactID]) {
			lastSeen[in.ContactID] = in.OccurredAt
		}
		if data.Range.Contains(in.OccurredAt) {
			counts[in.ContactID]++
		}
	}

	out := make(map[string]string, len(data.Contacts))
	freqSum := 0.0
	for _, c := range data.Contacts {
		last := lastSeen[c.ID]
		if c.LastContactedAt != nil && c.LastContactedAt.After(last) {
			last = *c.LastContactedAt
		}
		since := neverContacted
		if !last.IsZero() {
			since = math.Max(0, data.Now.Sub(last).Hours()/24)
		}
		freq := float64(counts[c.ID]) * 30 / n
		freqSum += freq

		strength, err := e.decisions.Relationship(set.Relationship, since, freq)
		if err != nil {
			return nil, 0, err
		}
		out[c.ID] = strength.Category
	}
	return out, freqSum, nil
}

// NetworkStats summarizes ContactStrengths into counts per strength category
func (e *Engine) NetworkStats(set *rules.RuleSet, data Data) (heuristics.NetworkStats, map[string]int, error) {
	stats := heuristics.NetworkStats{Total: len(data.Contacts)}
	byContact, freqSum, err := e.ContactStrengths(set, data)
	if err != nil {
		return stats, nil, err
	}

	strengths := make(map[string]int)
	for _, category := range byContact {
		strengths[category]++
		switch category {
		case classify.StrengthStrong:
			stats.Strong++
			stats.Active++
		case classify.StrengthModerate:
			stats.Active++
		case classify.StrengthDormant:
			stats.Dormant++
		}
	}
	if stats.Total > 0 {
		stats.AvgFrequency = freqSum / float64(stats.Total)
	}
	return stats, strengths, nil
}

// DormantContacts returns the contacts classified as dormant, in input order
func (e *Engine) DormantContacts(data Data) ([]models.Contact, error) {
	byContact, _, err := e.ContactStrengths(e.rules.Get(), data)
	if err != nil {
		return nil, err
	}
	var out []models.Contact
	for _, c := range data.Contacts {
		if byContact[c.ID] == classify.StrengthDormant {
			out = append(out, c)
		}
	}
	return out, nil
}

func (e *Engine) contacts(set *rules.RuleSet, data Data) (metrics.Insight, error) {
	table, err := set.Table(rules.TableNetworking)
	if err != nil {
		return metrics.Insight{}, err
	}
	if len(data.Contacts) == 0 {
		return insufficient("Networking", "No contacts yet. Add the people you work with to track your network."), nil
	}

	stats, strengths, err := e.NetworkStats(set, data)
	if err != nil {
		return metrics.Insight{}, err
	}
	score := classify.Classify(heuristics.NetworkingScore(stats, set.Networking), table)

	prev := data.Range.Previous()
	samples := aggregate.FromInteractions(data.Interactions)
	windows := e.aggregator.Aggregate(samples, metrics.Daily, prev.From, data.Range.To)
	direction := trend.DetectWindows(windows, days(data.Range), trend.MetricCount)

	reached := make(map[string]bool)
	for _, w := range e.byContact.Aggregate(samples, metrics.Daily, data.Range.From, data.Range.To) {
		for id := range w.Distribution {
			if id != metrics.OtherCategory {
				reached[id] = true
			}
		}
	}

	state := recommend.State{
		Total:           stats.Total,
		DormantContacts: stats.Dormant,
		ActiveRatio:     stats.ActiveRatio(),
		StrongRatio:     stats.StrongRatio(),
	}.WithScore(score).WithTrend(direction)
	recs, err := e.generator.Generate(set, rules.DomainContacts, state)
	if err != nil {
		return metrics.Insight{}, err
	}

	m := map[string]float64{
		"total_contacts":   float64(stats.Total),
		"active_ratio":     stats.ActiveRatio() * 100,
		"strong_ratio":     stats.StrongRatio() * 100,
		"avg_frequency":    stats.AvgFrequency,
		"contacts_reached": float64(len(reached)),
	}
	for label, count := range strengths {
		m["relationship_"+label] = float64(count)
	}

	return metrics.Insight{
		Title: "Networking",
		Description: fmt.Sprintf("%d of %d contacts are active and %d have gone dormant.",
			stats.Active, stats.Total, stats.Dormant),
		Category:        score.Category,
		Confidence:      sampleConfidence(stats.Total, 10),
		Score:           &score,
		Trend:           &direction,
		Metrics:         m,
		Recommendations: recs,
	}, nil
}

func (e *Engine) wellness(set *rules.RuleSet, data Data) (metrics.Insight, error) {
	burnoutTable, err := set.Table(rules.TableBurnout)
	if err != nil {
		return metrics.Insight{}, err
	}
	wellnessTable, err := set.Table(rules.TableWellness)
	if err != nil {
		return metrics.Insight{}, err
	}

	prev := data.Range.Previous()
	var current, previous []models.WellnessEntry
	for _, w := range data.Wellness {
		switch {
		case data.Range.Contains(w.RecordedAt):
			current = append(current, w)
		case prev.Contains(w.RecordedAt):
			previous = append(previous, w)
		}
	}
	avg, ok := heuristics.AverageEntry(current)
	if !ok {
		return insufficient("Wellness", "No wellness check-ins in this period."), nil
	}

	composite := heuristics.BurnoutScore(avg, set.Burnout)
	burnout := classify.Classify(composite, burnoutTable)
	wellbeing := classify.Classify(composite, wellnessTable)

	direction := metrics.StableTrend
	if prevAvg, ok := heuristics.AverageEntry(previous); ok {
		direction = trend.Detect(composite, heuristics.BurnoutScore(prevAvg, set.Burnout))
	}

	sort.SliceStable(current, func(i, j int) bool { return current[i].RecordedAt.Before(current[j].RecordedAt) })
	latest := trend.DetectSamples(aggregate.FromWellness(current, func(w models.WellnessEntry) float64 {
		return heuristics.BurnoutScore(w, set.Burnout)
	}))

	state := recommend.State{
		Stress:          avg.Stress,
		Energy:          avg.Energy,
		Workload:        avg.Workload,
		Sleep:           avg.Sleep,
		Social:          avg.Social,
		WorkLifeBalance: avg.WorkLifeBalance,
		Satisfaction:    avg.Satisfaction,
	}.WithTrend(direction)
	recs, err := e.generator.Generate(set, rules.DomainBurnout, state.WithScore(burnout))
	if err != nil {
		return metrics.Insight{}, err
	}
	more, err := e.generator.Generate(set, rules.DomainWellness, state.WithScore(wellbeing))
	if err != nil {
		return metrics.Insight{}, err
	}
	recs = append(recs, more...)

	return metrics.Insight{
		Title: "Wellness",
		Description: fmt.Sprintf("Wellbeing composite %.2f/10 (%s) across %d check-ins; burnout risk is %s.",
			composite, wellbeing.Category, len(current), burnout.Category),
		Category:   burnout.Category,
		Confidence: sampleConfidence(len(current), 7),
		Score:      &burnout,
		Trend:      &direction,
		Metrics: map[string]float64{
			"composite":     composite,
			"stress":        avg.Stress,
			"energy":        avg.Energy,
			"sleep":         avg.Sleep,
			"social":        avg.Social,
			"workload":      avg.Workload,
			"satisfaction":  avg.Satisfaction,
			"check_ins":     float64(len(current)),
			"latest_change": latest.Magnitude,
		},
		Recommendations: recs,
	}, nil
}

func (e *Engine) predictive(set *rules.RuleSet, data Data) (metrics.Insight, error) {
	byGoal := make(map[string][]models.GoalProgressEntry)
	for _, p := range data.GoalProgress {
		byGoal[p.GoalID] = append(byGoal[p.GoalID], p)
	}

	var preds []heuristics.GoalPrediction
	for _, g := range data.Goals {
		if g.IsAchieved() || g.Status == "cancelled" {
			continue
		}
		p, err := heuristics.PredictGoal(g, byGoal[g.ID], data.Now)
		if err != nil {
			if errors.Is(err, core.ErrInsufficientData) {
				continue
			}
			return metrics.Insight{}, err
		}
		preds = append(preds, p)
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i].GoalID < preds[j].GoalID })

	samples := aggregate.FromTasks(data.Tasks, set.XPByComplexity)
	windows := e.aggregator.Aggregate(samples, metrics.Daily, data.Range.From, data.Range.To)
	xpProjection, xpErr := trend.Forecast(aggregate.Sums(windows), 7)
	if completed, _ := aggregate.Totals(windows); completed == 0 {
		xpErr = core.ErrInsufficientData
	}

	if len(preds) == 0 && xpErr != nil {
		return insufficient("Forecast", "Not enough history to forecast yet."), nil
	}

	onTrack := 0
	confidence := 0.0
	for _, p := range preds {
		if p.OnTrack {
			onTrack++
		}
		confidence += p.Confidence
	}
	m := map[string]float64{
		"goals_forecast": float64(len(preds)),
		"goals_on_track": float64(onTrack),
	}
	direction := metrics.StableTrend
	if xpErr == nil {
		m["xp_trend_per_day"] = xpProjection.Slope
		m["projected_daily_xp"] = math.Max(0, xpProjection.Projected)
		m["xp_trend_r_squared"] = xpProjection.RSquared
		last := xpProjection.Intercept + xpProjection.Slope*float64(xpProjection.SampleSize-1)
		direction = trend.Detect(xpProjection.Projected, last)
	}

	category := "on_track"
	achievement := 100.0
	if len(preds) > 0 {
		confidence /= float64(len(preds))
		achievement = float64(onTrack) / float64(len(preds)) * 100
		table, err := set.Table(rules.TableGoalAchievement)
		if err != nil {
			return metrics.Insight{}, err
		}
		category = classify.Classify(achievement, table).Category
	} else {
		confidence = xpProjection.RSquared * sampleConfidence(len(windows), 14)
	}

	state := recommend.State{
		Category:     category,
		Score:        achievement,
		ActiveGoals:  len(preds),
		OverdueGoals: len(preds) - onTrack,
	}.WithTrend(direction)
	recs, err := e.generator.Generate(set, rules.DomainGoals, state)
	if err != nil {
		return metrics.Insight{}, err
	}

	desc := fmt.Sprintf("%d of %d forecast goals are on track.", onTrack, len(preds))
	if xpErr == nil {
		desc += fmt.Sprintf(" Daily XP is projected at %.0f in a week.", math.Max(0, xpProjection.Projected))
	}
	return metrics.Insight{
		Title:           "Forecast",
		Description:     desc,
		Category:        category,
		Confidence:      confidence,
		Trend:           &direction,
		Metrics:         m,
		Recommendations: recs,
	}, nil
}

func insufficient(title, description string) metrics.Insight {
	return metrics.Insight{
		Title:           title,
		Description:     description,
		Category:        CategoryInsufficientData,
		Confidence:      0,
		Trend:           ptr(metrics.StableTrend),
		Recommendations: []metrics.Recommendation{},
	}
}

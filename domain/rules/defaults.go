package rules

// Default returns the built-in rule set. Callers receive a fresh copy they may mutate.
func Default() *RuleSet {
	return &RuleSet{
		Thresholds: map[string]ThresholdTable{
			TableWellness: {
				Bands: []Threshold{
					{LowerBound: 8, Label: "excellent", Color: "green"},
					{LowerBound: 6, Label: "good", Color: "blue"},
					{LowerBound: 4, Label: "average", Color: "yellow"},
				},
				Floor: Threshold{Label: "poor", Color: "red"},
			},
			// Lower composite means higher risk
			TableBurnout: {
				Bands: []Threshold{
					{LowerBound: 7, Label: "low", Color: "green"},
					{LowerBound: 5, Label: "moderate", Color: "yellow"},
					{LowerBound: 3, Label: "high", Color: "orange"},
				},
				Floor: Threshold{Label: "critical", Color: "red"},
			},
			TableProductivity: {
				Bands: []Threshold{
					{LowerBound: 80, Label: "excellent", Color: "green"},
					{LowerBound: 60, Label: "good", Color: "blue"},
					{LowerBound: 40, Label: "average", Color: "yellow"},
				},
				Floor: Threshold{Label: "poor", Color: "red"},
			},
			TableGoalAchievement: {
				Bands: []Threshold{
					{LowerBound: 75, Label: "on_track", Color: "green"},
					{LowerBound: 50, Label: "at_risk", Color: "yellow"},
				},
				Floor: Threshold{Label: "off_track", Color: "red"},
			},
			TableNetworking: {
				Bands: []Threshold{
					{LowerBound: 70, Label: "thriving", Color: "green"},
					{LowerBound: 40, Label: "growing", Color: "yellow"},
				},
				Floor: Threshold{Label: "needs_attention", Color: "red"},
			},
		},
		// Bands overlap; order is significant
		Relationship: []DecisionRule{
			{Label: "strong", When: "DaysSinceContact <= 30 && InteractionFrequency >= 2", Color: "green"},
			{Label: "moderate", When: "DaysSinceContact <= 60 && InteractionFrequency >= 1", Color: "blue"},
			{Label: "weak", When: "DaysSinceContact <= 90", Color: "yellow"},
			{Label: "dormant", When: "true", Color: "red"},
		},
		PriorityKeywords: KeywordTable{
			Rules: []KeywordRule{
				{Keywords: []string{"urgent", "asap", "immediately", "emergency", "critical"}, Outcome: "urgent"},
				{Keywords: []string{"important", "deadline", "priority", "today"}, Outcome: "high"},
				{Keywords: []string{"someday", "maybe", "eventually", "optional", "nice to have"}, Outcome: "low"},
			},
			Default: "medium",
		},
		ComplexityKeywords: KeywordTable{
			Rules: []KeywordRule{
				{Keywords: []string{"architecture", "design", "research", "migrate", "integrate", "refactor", "implement"}, Outcome: "complex"},
				{Keywords: []string{"call", "email", "buy", "send", "reply", "check", "book"}, Outcome: "simple"},
			},
			LongTextLength:  200,
			LongTextOutcome: "complex",
			Default:         "medium",
		},
		Recommendations: map[string][]RecommendationRule{
			DomainBurnout: {
				{When: `Category == "critical"`, Text: "Your burnout risk is critical. Consider taking time off and talking to someone you trust.", Priority: "high"},
				{When: `Category == "high"`, Text: "Burnout risk is elevated. Schedule recovery breaks and cut non-essential commitments.", Priority: "high"},
				{When: "Workload >= 8", Text: "Your workload is very high. Delegate or defer lower-priority tasks.", Priority: "high"},
				{When: "Stress >= 7", Text: "Stress levels are high. Try short breathing or mindfulness exercises during the day.", Priority: "medium"},
				{When: "Sleep <= 4", Text: "Sleep quality is low. Aim for a consistent bedtime and 7-8 hours of rest.", Priority: "medium"},
				{When: "Social <= 3", Text: "Social connection is low. Plan time with friends or colleagues this week.", Priority: "low"},
				{When: `Trend == "declining"`, Text: "Your wellbeing dropped compared to the previous period. Review what changed.", Priority: "medium"},
				{When: `Category == "low" && Trend != "declining"`, Text: "Burnout risk is low. Keep up your current routines.", Priority: "low"},
			},
			DomainWellness: {
				{When: `Category == "poor"`, Text: "Overall wellness is poor. Prioritize rest and reach out for support.", Priority: "high"},
				{When: `Category == "average"`, Text: "Wellness is average. Small habits like walks and regular breaks can help.", Priority: "medium"},
				{When: "Energy <= 4", Text: "Energy is low. Use shorter focus blocks and move regularly.", Priority: "medium"},
				{When: `Trend == "improving"`, Text: "Wellness is improving. Keep doing what works.", Priority: "low"},
				{When: `Category == "excellent"`, Text: "Excellent wellness. You're in a good place to take on stretch goals.", Priority: "low"},
			},
			DomainGoals: {
				{When: `Category == "off_track"`, Text: "Most goals are off track. Narrow your focus to the one or two that matter most.", Priority: "high"},
				{When: "OverdueGoals > 0", Text: "Some goals are past their target date. Reschedule them or split them into milestones.", Priority: "high"},
				{When: `Category == "at_risk"`, Text: "Several goals are at risk. Review progress weekly and adjust targets.", Priority: "medium"},
				{When: `Trend == "declining"`, Text: "Goal progress slowed compared to the previous period.", Priority: "medium"},
				{When: `Category == "on_track"`, Text: "Goals are on track. Consider setting a new stretch goal.", Priority: "low"},
			},
			DomainContacts: {
				{When: "DormantContacts > 0", Text: "You have dormant relationships. Reconnect with at least one contact this week.", Priority: "medium"},
				{When: "Total > 0 && ActiveRatio < 0.3", Text: "Less than a third of your network is active. Schedule regular check-ins.", Priority: "medium"},
				{When: "StrongRatio >= 0.5", Text: "Strong relationships make up half your network. Keep nurturing them.", Priority: "low"},
				{When: `Trend == "declining"`, Text: "Networking activity dropped compared to the previous period.", Priority: "medium"},
			},
			DomainProductivity: {
				{When: `Category == "poor"`, Text: "Productivity is low. Start each day with one small, high-impact task.", Priority: "high"},
				{When: "OverdueTasks > 0", Text: "You have overdue tasks. Reschedule or drop what no longer matters.", Priority: "high"},
				{When: `Trend == "declining"`, Text: "Task completions dropped compared to the previous period.", Priority: "medium"},
				{When: "Streak >= 7", Text: "Great streak! Keep your momentum going.", Priority: "low"},
				{When: `Category == "excellent"`, Text: "Excellent productivity. Consider taking on a more challenging goal.", Priority: "low"},
			},
		},
		Burnout: BurnoutWeights{
			Stress:          0.25,
			Energy:          0.20,
			WorkLifeBalance: 0.20,
			Satisfaction:    0.15,
			Sleep:           0.10,
			Social:          0.10,
		},
		Networking: NetworkingWeights{
			ActiveRatio:      40,
			StrongRatio:      35,
			FrequencyFactor:  5,
			FrequencyCeiling: 25,
		},
		XPByComplexity: map[string]int{
			"simple":  25,
			"medium":  50,
			"complex": 100,
		},
	}
}

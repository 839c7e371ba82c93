package service

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/timegrid-hq/timegrid-api/internal/models"
	appErrors "github.com/timegrid-hq/timegrid-api/pkg/errors"
)

type classifierAttendanceRepo interface {
	FindByEmployeeAndDay(ctx context.Context, tenantID, employeeID string, day time.Time) ([]models.AttendanceRecord, error)
	LastOutBefore(ctx context.Context, tenantID, employeeID string, before time.Time) (*models.AttendanceRecord, error)
	CountAnomaliesSince(ctx context.Context, tenantID, employeeID string, kind models.AnomalyKind, since time.Time) (int, error)
	AverageClockMinutes(ctx context.Context, tenantID, employeeID string, punchType models.PunchType, since time.Time) (*int, error)
}

type leaveRepository interface {
	FindCovering(ctx context.Context, tenantID, employeeID string, date time.Time) (*models.Leave, error)
	HasRecoveryDay(ctx context.Context, tenantID, employeeID string, date time.Time) (bool, error)
}

type holidayRepository interface {
	FindByDate(ctx context.Context, tenantID string, date time.Time) (*models.Holiday, error)
}

type policyProvider interface {
	PolicyFor(ctx context.Context, tenantID string) (models.TenantPolicy, error)
}

// AnomalyClassifier runs the ordered anomaly decision pipeline for one punch.
// Exactly one classification is produced per call; rules are evaluated
// top-down and the first match wins.
type AnomalyClassifier struct {
	records  classifierAttendanceRepo
	leaves   leaveRepository
	holidays holidayRepository
	policies policyProvider
	resolver *ScheduleResolver
	sessions *SessionReconstructor
	logger   *zap.Logger
}

// NewAnomalyClassifier builds a classifier.
func NewAnomalyClassifier(
	records classifierAttendanceRepo,
	leaves leaveRepository,
	holidays holidayRepository,
	policies policyProvider,
	resolver *ScheduleResolver,
	sessions *SessionReconstructor,
	logger *zap.Logger,
) *AnomalyClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnomalyClassifier{
		records:  records,
		leaves:   leaves,
		holidays: holidays,
		policies: policies,
		resolver: resolver,
		sessions: sessions,
		logger:   logger,
	}
}

// PunchSnapshot carries the per-request resolved inputs shared by the
// ingestion gate, the classifier and the metrics calculator, so the tenant
// policy is loaded and the schedule resolved once per punch.
type PunchSnapshot struct {
	Policy   models.TenantPolicy
	Resolved *models.ResolvedSchedule
}

// Snapshot loads the tenant policy and resolves the schedule for the punch.
func (c *AnomalyClassifier) Snapshot(ctx context.Context, tenantID, employeeID string, ts time.Time) (*PunchSnapshot, error) {
	policy, err := c.policies.PolicyFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	resolved, err := c.resolver.Resolve(ctx, tenantID, employeeID, ts)
	if err != nil {
		return nil, err
	}
	return &PunchSnapshot{Policy: policy, Resolved: resolved}, nil
}

// classifyContext is the per-punch snapshot every rule reads from.
type classifyContext struct {
	tenantID   string
	employeeID string
	ts         time.Time
	punchType  models.PunchType
	method     models.PunchMethod

	policy    models.TenantPolicy
	resolved  *models.ResolvedSchedule
	today     *models.DaySessions
	leave     *models.Leave
	holiday   *models.Holiday
	excludeID string
}

type classifyRule struct {
	name  string
	apply func(ctx context.Context, cc *classifyContext) (*models.Classification, error)
}

// Classify evaluates the pipeline for the punch. A nil-anomaly outcome is
// returned as {HasAnomaly: false}; classification never fails the punch for
// soft conditions.
func (c *AnomalyClassifier) Classify(ctx context.Context, tenantID, employeeID string, ts time.Time, punchType models.PunchType, method models.PunchMethod) (models.Classification, error) {
	snap, err := c.Snapshot(ctx, tenantID, employeeID, ts)
	if err != nil {
		return models.Classification{}, err
	}
	return c.ClassifyWith(ctx, snap, tenantID, employeeID, ts, punchType, method, "")
}

// ClassifyWith evaluates the pipeline against an already-built snapshot. A
// non-empty excludeID drops that record from every lookup, so a punch being
// corrected never classifies against its own stale row.
func (c *AnomalyClassifier) ClassifyWith(ctx context.Context, snap *PunchSnapshot, tenantID, employeeID string, ts time.Time, punchType models.PunchType, method models.PunchMethod, excludeID string) (models.Classification, error) {
	cc := &classifyContext{
		tenantID:   tenantID,
		employeeID: employeeID,
		ts:         ts,
		punchType:  punchType,
		method:     method,
		policy:     snap.Policy,
		resolved:   snap.Resolved,
		excludeID:  excludeID,
	}

	var err error
	cc.today, err = c.sessions.SessionsForDayExcluding(ctx, tenantID, employeeID, ts, excludeID)
	if err != nil {
		return models.Classification{}, err
	}

	cc.leave, err = c.leaves.FindCovering(ctx, tenantID, employeeID, ts)
	if err != nil {
		return models.Classification{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup leave")
	}

	cc.holiday, err = c.holidayForPunch(ctx, cc)
	if err != nil {
		return models.Classification{}, err
	}

	rules := []classifyRule{
		{"leave-conflict", c.ruleLeaveConflict},
		{"double-in", c.ruleDoubleIn},
		{"missing-in", c.ruleMissingIn},
		{"missing-out", c.ruleMissingOut},
		{"absence-technical", c.ruleAbsenceTechnical},
		{"late-or-partial", c.ruleLateOrPartial},
		{"unplanned-in", c.ruleUnplannedIn},
		{"early-leave", c.ruleEarlyLeave},
		{"unplanned-out", c.ruleUnplannedOut},
		{"insufficient-rest", c.ruleInsufficientRest},
		{"holiday-worked", c.ruleHolidayWorked},
	}

	for _, rule := range rules {
		result, err := rule.apply(ctx, cc)
		if err != nil {
			return models.Classification{}, err
		}
		if result != nil {
			if result.HasAnomaly {
				c.logger.Debug("anomaly classified",
					zap.String("rule", rule.name),
					zap.String("employee_id", employeeID),
					zap.String("kind", string(result.Kind)))
			}
			return *result, nil
		}
	}

	return models.Classification{HasAnomaly: false}, nil
}

// holidayForPunch finds a holiday touching the punch. An OUT closing a night
// shift also checks the previous day so work started on a holiday is caught
// even when the punch lands past midnight.
func (c *AnomalyClassifier) holidayForPunch(ctx context.Context, cc *classifyContext) (*models.Holiday, error) {
	day := models.DateOnly(cc.ts)
	holiday, err := c.holidays.FindByDate(ctx, cc.tenantID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup holiday")
	}
	if holiday != nil {
		return holiday, nil
	}
	if cc.punchType == models.PunchOut && cc.resolved != nil && cc.resolved.Source == models.SourcePreviousNight {
		prev, err := c.holidays.FindByDate(ctx, cc.tenantID, day.AddDate(0, 0, -1))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup previous-day holiday")
		}
		return prev, nil
	}
	return nil, nil
}

func (c *AnomalyClassifier) ruleLeaveConflict(_ context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.leave == nil || !cc.leave.Status.Suppressing() {
		return nil, nil
	}
	if cc.leave.Type != models.LeaveTypeStandard {
		// Remote and mission leave allow punches; they only suppress sweeps.
		return nil, nil
	}
	return &models.Classification{
		HasAnomaly: true,
		Kind:       models.AnomalyLeaveConflict,
		Note:       fmt.Sprintf("punch recorded during approved leave (%s to %s)", cc.leave.StartDate.Format("2006-01-02"), cc.leave.EndDate.Format("2006-01-02")),
	}, nil
}

func (c *AnomalyClassifier) ruleDoubleIn(ctx context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.punchType != models.PunchIn {
		return nil, nil
	}

	var lastIn *models.AttendanceRecord
	var lastOutAfterLastIn bool
	for i := range cc.today.Records {
		rec := &cc.today.Records[i]
		if !rec.Timestamp.Before(cc.ts) {
			continue
		}
		switch rec.Type {
		case models.PunchIn:
			lastIn = rec
			lastOutAfterLastIn = false
		case models.PunchOut:
			if lastIn != nil {
				lastOutAfterLastIn = true
			}
		}
	}

	// Duplicate tap within the tolerance window.
	if lastIn != nil && cc.ts.Sub(lastIn.Timestamp) <= time.Duration(cc.policy.DoublePunchToleranceMin)*time.Minute {
		return &models.Classification{
			HasAnomaly: true,
			Kind:       models.AnomalyDoubleIn,
			Note:       fmt.Sprintf("duplicate IN %.0f seconds after the previous one", cc.ts.Sub(lastIn.Timestamp).Seconds()),
			Suggestions: []models.CorrectionSuggestion{{
				Kind:       models.SuggestIgnoreDuplicate,
				TargetID:   &lastIn.ID,
				Confidence: 95,
			}},
		}, nil
	}

	// Orphan IN left open long enough inside the detection window.
	for _, open := range cc.today.OpenSessions {
		age := cc.ts.Sub(open.In.Timestamp)
		if open.In.ID != "" && lastIn != nil && open.In.ID == lastIn.ID {
			continue
		}
		if age <= time.Duration(cc.policy.DoubleInDetectionWindowHrs)*time.Hour &&
			age >= time.Duration(cc.policy.OrphanInThresholdHrs)*time.Hour {
			suggested := c.suggestedOutFor(cc, open.In.Timestamp)
			return &models.Classification{
				HasAnomaly: true,
				Kind:       models.AnomalyDoubleIn,
				Note:       fmt.Sprintf("new IN while a session opened %.1f hours ago is still unclosed", age.Hours()),
				Suggestions: []models.CorrectionSuggestion{{
					Kind:       models.SuggestAddMissingOut,
					Timestamp:  &suggested,
					TargetID:   &open.In.ID,
					Confidence: 85,
				}},
			}, nil
		}
	}

	// Second IN on the same day without an OUT in between.
	if lastIn != nil && !lastOutAfterLastIn {
		suggestions := c.doubleInSuggestions(cc, lastIn)
		note := "second IN without an intervening OUT"
		count, err := c.records.CountAnomaliesSince(ctx, cc.tenantID, cc.employeeID, models.AnomalyDoubleIn, cc.ts.AddDate(0, 0, -30))
		if err == nil && count+1 >= cc.policy.PatternAlertThreshold {
			note = fmt.Sprintf("%s; %d occurrences in the last 30 days", note, count+1)
		}
		return &models.Classification{
			HasAnomaly:  true,
			Kind:        models.AnomalyDoubleIn,
			Note:        note,
			Suggestions: suggestions,
		}, nil
	}

	return nil, nil
}

// doubleInSuggestions scores which IN to delete by proximity to the expected
// start, and proposes an OUT in between when the gap is long enough for a
// forgotten punch.
func (c *AnomalyClassifier) doubleInSuggestions(cc *classifyContext, firstIn *models.AttendanceRecord) []models.CorrectionSuggestion {
	var suggestions []models.CorrectionSuggestion

	confidence := func(distance time.Duration) int {
		switch {
		case distance <= 30*time.Minute:
			return 90
		case distance <= 60*time.Minute:
			return 70
		default:
			return 50
		}
	}

	if cc.resolved != nil {
		expected := cc.resolved.ExpectedStart(cc.resolved.Date)
		firstDist := absDuration(firstIn.Timestamp.Sub(expected))
		secondDist := absDuration(cc.ts.Sub(expected))
		if firstDist <= secondDist {
			suggestions = append(suggestions, models.CorrectionSuggestion{
				Kind:       models.SuggestDeleteSecondIn,
				Confidence: confidence(firstDist),
				Note:       "first IN is closer to the expected start",
			})
		} else {
			suggestions = append(suggestions, models.CorrectionSuggestion{
				Kind:       models.SuggestDeleteFirstIn,
				TargetID:   &firstIn.ID,
				Confidence: confidence(secondDist),
				Note:       "second IN is closer to the expected start",
			})
		}
	} else {
		suggestions = append(suggestions, models.CorrectionSuggestion{
			Kind:       models.SuggestDeleteSecondIn,
			Confidence: 50,
		})
	}

	if cc.ts.Sub(firstIn.Timestamp) >= 4*time.Hour {
		midpoint := firstIn.Timestamp.Add(cc.ts.Sub(firstIn.Timestamp) / 2)
		suggestions = append(suggestions, models.CorrectionSuggestion{
			Kind:       models.SuggestAddOutBetween,
			Timestamp:  &midpoint,
			Confidence: 60,
			Note:       "long gap suggests a forgotten OUT between the two INs",
		})
	}

	return suggestions
}

func (c *AnomalyClassifier) ruleMissingIn(ctx context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.punchType != models.PunchOut {
		return nil, nil
	}
	for i := range cc.today.Records {
		if cc.today.Records[i].Type == models.PunchIn {
			return nil, nil
		}
	}

	// Mobile punches and covered leave mean work happened off site.
	if cc.method == models.MethodMobileGPS || (cc.leave != nil && cc.leave.Status.Suppressing()) {
		return &models.Classification{
			HasAnomaly: false,
			Kind:       models.AnomalyPresenceExterne,
			Note:       "OUT without IN attributed to off-site presence",
		}, nil
	}

	// Yesterday's trailing IN may pair with this OUT across midnight.
	yesterday := models.DateOnly(cc.ts).AddDate(0, 0, -1)
	prevRecords, err := c.records.FindByEmployeeAndDay(ctx, cc.tenantID, cc.employeeID, yesterday)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "load previous-day records")
	}
	if in := trailingUnmatchedIn(withoutRecord(prevRecords, cc.excludeID)); in != nil {
		span := cc.ts.Sub(in.Timestamp).Hours()
		if span >= 6 && span <= 14 {
			if c.plausibleNightPair(ctx, cc, in, span) {
				return &models.Classification{HasAnomaly: false}, nil
			}
		}
		return &models.Classification{
			HasAnomaly: true,
			Kind:       models.AnomalyMissingOut,
			Note:       fmt.Sprintf("session opened yesterday at %s was never closed", in.Timestamp.UTC().Format("15:04")),
			Suggestions: []models.CorrectionSuggestion{{
				Kind:       models.SuggestCloseYesterdaySession,
				TargetID:   &in.ID,
				Confidence: 90,
			}},
		}, nil
	}

	// Other events today hint that the person was on site before this OUT.
	if first := firstOtherEvent(cc.today.Records); first != nil {
		retro := first.Timestamp.Add(-30 * time.Minute)
		return &models.Classification{
			HasAnomaly: true,
			Kind:       models.AnomalyMissingIn,
			Note:       "OUT without IN; earlier activity suggests a missed IN",
			Suggestions: []models.CorrectionSuggestion{{
				Kind:       models.SuggestAddMissingIn,
				Source:     models.SourceEventBased,
				Timestamp:  &retro,
				Confidence: 70,
			}},
		}, nil
	}

	return &models.Classification{
		HasAnomaly:  true,
		Kind:        models.AnomalyMissingIn,
		Note:        "OUT recorded with no IN for the day",
		Suggestions: c.missingInSuggestions(ctx, cc),
	}, nil
}

// plausibleNightPair checks whether yesterday's open IN and this OUT form a
// legitimate night session, by last night's schedule or by hour heuristics.
func (c *AnomalyClassifier) plausibleNightPair(ctx context.Context, cc *classifyContext, in *models.AttendanceRecord, span float64) bool {
	if cc.resolved != nil && cc.resolved.Source == models.SourcePreviousNight {
		return true
	}
	inHour := in.Timestamp.UTC().Hour()
	outHour := cc.ts.UTC().Hour()
	switch {
	case inHour >= 17 && outHour < 14:
		return true
	case inHour >= 20 && outHour < 12:
		return true
	case span >= 8 && span <= 12 && inHour >= 18 && outHour < 12:
		return true
	}
	return false
}

func (c *AnomalyClassifier) missingInSuggestions(ctx context.Context, cc *classifyContext) []models.CorrectionSuggestion {
	var suggestions []models.CorrectionSuggestion

	if cc.resolved != nil {
		planned := cc.resolved.ExpectedStart(models.DateOnly(cc.ts))
		suggestions = append(suggestions, models.CorrectionSuggestion{
			Kind:       models.SuggestAddMissingIn,
			Source:     models.SourcePlanning,
			Timestamp:  &planned,
			Confidence: 90,
		})
	}

	if avg, err := c.records.AverageClockMinutes(ctx, cc.tenantID, cc.employeeID, models.PunchIn, cc.ts.AddDate(0, 0, -30)); err == nil && avg != nil {
		t := models.DateOnly(cc.ts).Add(time.Duration(*avg) * time.Minute)
		suggestions = append(suggestions, models.CorrectionSuggestion{
			Kind:       models.SuggestAddMissingIn,
			Source:     models.SourceHistoricalAverage,
			Timestamp:  &t,
			Confidence: 75,
		})
	}

	fallback := models.DateOnly(cc.ts).Add(8 * time.Hour)
	suggestions = append(suggestions, models.CorrectionSuggestion{
		Kind:       models.SuggestAddMissingIn,
		Source:     models.SourceDefault,
		Timestamp:  &fallback,
		Confidence: 50,
	})

	return suggestions
}

func (c *AnomalyClassifier) ruleMissingOut(ctx context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.punchType != models.PunchIn {
		return nil, nil
	}

	for _, open := range cc.today.OpenSessions {
		age := cc.ts.Sub(open.In.Timestamp)
		if age < time.Duration(cc.policy.MissingOutWindowHrs)*time.Hour {
			continue
		}

		if cc.resolved != nil {
			end := cc.resolved.ExpectedEnd(cc.resolved.Date)
			if cc.ts.Sub(end) > 2*time.Hour {
				suggested := end
				return &models.Classification{
					HasAnomaly: true,
					Kind:       models.AnomalyMissingOut,
					Note:       "session left open well past the scheduled end",
					Suggestions: []models.CorrectionSuggestion{{
						Kind:       models.SuggestCloseSessionMulti,
						Source:     models.SourcePlanning,
						Timestamp:  &suggested,
						TargetID:   &open.In.ID,
						Confidence: 85,
					}},
				}, nil
			}
			// Night sessions get until next-day noon before being flagged.
			if cc.resolved.Shift.IsNight() {
				deadline := models.DateOnly(open.In.Timestamp).AddDate(0, 0, 1).Add(12 * time.Hour)
				if cc.ts.Before(deadline) {
					continue
				}
			}
		}

		if cc.method == models.MethodMobileGPS || (cc.leave != nil && cc.leave.Status.Suppressing()) {
			return &models.Classification{
				HasAnomaly: false,
				Kind:       models.AnomalyPresenceExterne,
				Note:       "open session attributed to off-site presence",
			}, nil
		}

		return &models.Classification{
			HasAnomaly:  true,
			Kind:        models.AnomalyMissingOut,
			Note:        fmt.Sprintf("session opened at %s has no OUT after %.1f hours", open.In.Timestamp.UTC().Format("15:04"), age.Hours()),
			Suggestions: c.missingOutSuggestions(ctx, cc, open.In),
		}, nil
	}

	return nil, nil
}

func (c *AnomalyClassifier) missingOutSuggestions(ctx context.Context, cc *classifyContext, in *models.AttendanceRecord) []models.CorrectionSuggestion {
	var suggestions []models.CorrectionSuggestion

	if cc.resolved != nil {
		end := cc.resolved.ExpectedEnd(models.DateOnly(in.Timestamp))
		suggestions = append(suggestions, models.CorrectionSuggestion{
			Kind:       models.SuggestAddMissingOut,
			Source:     models.SourcePlanning,
			Timestamp:  &end,
			TargetID:   &in.ID,
			Confidence: 90,
		})
	}

	if avg, err := c.records.AverageClockMinutes(ctx, cc.tenantID, cc.employeeID, models.PunchOut, cc.ts.AddDate(0, 0, -30)); err == nil && avg != nil {
		t := models.DateOnly(in.Timestamp).Add(time.Duration(*avg) * time.Minute)
		suggestions = append(suggestions, models.CorrectionSuggestion{
			Kind:       models.SuggestAddMissingOut,
			Source:     models.SourceHistoricalAverage,
			Timestamp:  &t,
			TargetID:   &in.ID,
			Confidence: 75,
		})
	}

	if lastBreak := lastBreakEnd(cc.today.Records); lastBreak != nil {
		t := lastBreak.Timestamp.Add(4 * time.Hour)
		suggestions = append(suggestions, models.CorrectionSuggestion{
			Kind:       models.SuggestAddMissingOut,
			Source:     models.SourceLastEvent,
			Timestamp:  &t,
			TargetID:   &in.ID,
			Confidence: 60,
		})
	}

	closing := models.DateOnly(in.Timestamp).Add(18 * time.Hour)
	suggestions = append(suggestions, models.CorrectionSuggestion{
		Kind:       models.SuggestAddMissingOut,
		Source:     models.SourceSiteClosing,
		Timestamp:  &closing,
		TargetID:   &in.ID,
		Confidence: 40,
	})

	fallback := models.DateOnly(in.Timestamp).Add(17 * time.Hour)
	suggestions = append(suggestions, models.CorrectionSuggestion{
		Kind:       models.SuggestAddMissingOut,
		Source:     models.SourceDefault,
		Timestamp:  &fallback,
		TargetID:   &in.ID,
		Confidence: 50,
	})

	return suggestions
}

func (c *AnomalyClassifier) ruleAbsenceTechnical(ctx context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.punchType != models.PunchIn || cc.resolved != nil {
		return nil, nil
	}
	sched, err := c.resolver.ResolveUnpublished(ctx, cc.tenantID, cc.employeeID, cc.ts)
	if err != nil {
		return nil, err
	}
	if sched == nil || sched.Status == models.SchedulePublished {
		return nil, nil
	}
	if cc.leave != nil && cc.leave.Status.Suppressing() {
		return nil, nil
	}
	return &models.Classification{
		HasAnomaly: true,
		Kind:       models.AnomalyAbsenceTechnical,
		Note:       fmt.Sprintf("schedule for the day exists but is %s, not PUBLISHED", sched.Status),
	}, nil
}

func (c *AnomalyClassifier) ruleLateOrPartial(_ context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.punchType != models.PunchIn || cc.resolved == nil {
		return nil, nil
	}

	expected := cc.resolved.ExpectedStart(cc.resolved.Date)
	rawMinutes := cc.ts.Sub(expected).Minutes()
	if rawMinutes <= 0 {
		return nil, nil
	}

	// Thresholds compare the unrounded value; notes show the rounded one.
	if rawMinutes/60 >= cc.policy.AbsencePartialThresholdHrs {
		return &models.Classification{
			HasAnomaly: true,
			Kind:       models.AnomalyAbsencePartial,
			Note:       fmt.Sprintf("arrived %.1f hours after the expected start", rawMinutes/60),
		}, nil
	}

	lateMinutes := rawMinutes - float64(cc.policy.LateToleranceEntry)
	if lateMinutes > 0 {
		return &models.Classification{
			HasAnomaly: true,
			Kind:       models.AnomalyLate,
			Note:       fmt.Sprintf("late by %d minutes beyond the %d minute tolerance", int(math.Round(lateMinutes)), cc.policy.LateToleranceEntry),
		}, nil
	}

	return nil, nil
}

func (c *AnomalyClassifier) ruleUnplannedIn(ctx context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.punchType != models.PunchIn || cc.resolved != nil {
		return nil, nil
	}
	return c.unplannedPunch(ctx, cc)
}

func (c *AnomalyClassifier) ruleUnplannedOut(ctx context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.punchType != models.PunchOut {
		return nil, nil
	}
	if cc.resolved != nil {
		// Previous-night carry-over fully legitimises the OUT.
		return nil, nil
	}
	return c.unplannedPunch(ctx, cc)
}

// unplannedPunch handles punches with no temporal expectation at all.
func (c *AnomalyClassifier) unplannedPunch(ctx context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.leave != nil && cc.leave.Status.Suppressing() {
		return &models.Classification{HasAnomaly: false}, nil
	}
	hasRecovery, err := c.leaves.HasRecoveryDay(ctx, cc.tenantID, cc.employeeID, models.DateOnly(cc.ts))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup recovery day")
	}
	if hasRecovery {
		return &models.Classification{HasAnomaly: false}, nil
	}

	if !cc.policy.IsWorkingDay(cc.ts) {
		return &models.Classification{
			HasAnomaly: true,
			Kind:       models.AnomalyWeekendWork,
			Note:       "punch on a non-working day without authorisation",
		}, nil
	}
	return &models.Classification{
		HasAnomaly: true,
		Kind:       models.AnomalyAbsence,
		Note:       "punch on a working day with no schedule, shift, leave or recovery",
	}, nil
}

func (c *AnomalyClassifier) ruleEarlyLeave(_ context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.punchType != models.PunchOut || cc.resolved == nil {
		return nil, nil
	}

	expectedEnd := cc.resolved.ExpectedEnd(cc.resolved.Date)
	diff := expectedEnd.Sub(cc.ts)
	// A night shift resolved on today's date can park the expected end a full
	// day ahead of an OUT that belongs to last night; roll it back.
	if cc.resolved.Shift.IsNight() && diff > 12*time.Hour {
		expectedEnd = expectedEnd.AddDate(0, 0, -1)
		diff = expectedEnd.Sub(cc.ts)
	}

	rawMinutes := diff.Minutes()
	earlyMinutes := rawMinutes - float64(cc.policy.EarlyToleranceExit)
	if earlyMinutes > 0 {
		return &models.Classification{
			HasAnomaly: true,
			Kind:       models.AnomalyEarlyLeave,
			Note:       fmt.Sprintf("left %d minutes before the expected end beyond the %d minute tolerance", int(math.Round(earlyMinutes)), cc.policy.EarlyToleranceExit),
		}, nil
	}
	return nil, nil
}

func (c *AnomalyClassifier) ruleInsufficientRest(ctx context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.punchType != models.PunchIn {
		return nil, nil
	}
	priorOut, err := c.records.LastOutBefore(ctx, cc.tenantID, cc.employeeID, cc.ts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "lookup prior OUT")
	}
	if priorOut == nil {
		return nil, nil
	}

	restHours := cc.ts.Sub(priorOut.Timestamp).Hours()
	minimum := cc.policy.MinimumRestHours
	if cc.resolved != nil && cc.resolved.Shift.IsNight() {
		minimum = cc.policy.MinimumRestHoursNightShift
	}
	if restHours < minimum {
		return &models.Classification{
			HasAnomaly: true,
			Kind:       models.AnomalyInsufficientRest,
			Note:       fmt.Sprintf("only %.1f hours of rest since the last OUT, minimum is %.1f", restHours, minimum),
		}, nil
	}
	return nil, nil
}

func (c *AnomalyClassifier) ruleHolidayWorked(_ context.Context, cc *classifyContext) (*models.Classification, error) {
	if cc.holiday == nil {
		return nil, nil
	}
	if cc.punchType == models.PunchMissionStart || cc.punchType == models.PunchMissionEnd {
		return nil, nil
	}
	return &models.Classification{
		HasAnomaly: true,
		Kind:       models.AnomalyHolidayWorked,
		Note:       fmt.Sprintf("worked on holiday %q", cc.holiday.Name),
	}, nil
}

// suggestedOutFor estimates when an orphan session should have closed.
func (c *AnomalyClassifier) suggestedOutFor(cc *classifyContext, inTS time.Time) time.Time {
	if cc.resolved != nil {
		return cc.resolved.ExpectedEnd(models.DateOnly(inTS))
	}
	return models.DateOnly(inTS).Add(17 * time.Hour)
}

func trailingUnmatchedIn(records []models.AttendanceRecord) *models.AttendanceRecord {
	for i := len(records) - 1; i >= 0; i-- {
		switch records[i].Type {
		case models.PunchOut:
			return nil
		case models.PunchIn:
			return &records[i]
		}
	}
	return nil
}

func firstOtherEvent(records []models.AttendanceRecord) *models.AttendanceRecord {
	for i := range records {
		if records[i].Type != models.PunchIn && records[i].Type != models.PunchOut {
			return &records[i]
		}
	}
	return nil
}

func lastBreakEnd(records []models.AttendanceRecord) *models.AttendanceRecord {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Type == models.PunchBreakEnd {
			return &records[i]
		}
	}
	return nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

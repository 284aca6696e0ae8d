package scan

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"subscription_server/core/domain"
	"subscription_server/core/port/out"
	"subscription_server/core/service/detection"
	"subscription_server/pkg/logger"

	"github.com/google/uuid"
)

const (
	outcomeAccepted     = "accepted"
	outcomeSuperseded   = "superseded"
	outcomeNoMatch      = "no_match"
	outcomeStatusChange = "status_change"
	outcomeSkipped      = "skipped:"

	skipIgnore        = "ignore"
	skipOneTime       = "one_time"
	skipNoDate        = "no_date"
	skipDuplicateName = "duplicate_name"
	skipInsertFailed  = "insert_failed"
)

// analyzed is one fetched message and what the detector made of it.
type analyzed struct {
	email    *domain.RawEmail
	analysis domain.EmailAnalysis
}

// scanState is the per-run bookkeeping of the pipeline.
type scanState struct {
	run        *domain.ScanRun
	known      *domain.KnownServices
	categories map[string]*domain.Category // lowercased name
	today      time.Time
	emails     map[string]*domain.RawEmail // message id
	outcomes   map[string]string           // message id
}

func (s *Service) execute(ctx context.Context, run *domain.ScanRun, source out.MailSource) (*domain.ScanSummary, error) {
	log := logger.WithUser(run.UserID).WithScan(run.ID)

	// 1. 후보 메시지 목록
	refs, err := source.ListCandidates(ctx, detection.BillingQuery(s.cfg.WindowDays), s.cfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	if !sortNewestFirst(refs) {
		log.Warn("[ScanService.execute] mail source returned refs out of order, re-sorted")
	}

	// 2. 기존 구독 / 카테고리 로드
	existing, err := s.subRepo.ListExisting(ctx, run.UserID)
	if err != nil {
		return nil, fmt.Errorf("load existing subscriptions: %w", err)
	}
	cats, err := s.catRepo.ListByUser(ctx, run.UserID)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	now := s.now()
	st := &scanState{
		run:        run,
		known:      domain.NewKnownServices(existing),
		categories: make(map[string]*domain.Category, len(cats)),
		today:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		emails:     make(map[string]*domain.RawEmail),
		outcomes:   make(map[string]string),
	}
	for _, c := range cats {
		st.categories[strings.ToLower(c.Name)] = c
	}

	// 3. 메시지 분석 (pass 1)
	items := s.collect(ctx, st, source, refs)
	analyses := make([]domain.EmailAnalysis, 0, len(items))
	for _, it := range items {
		st.emails[it.analysis.Ref.ID] = it.email
		analyses = append(analyses, it.analysis)
	}

	// 4. 서비스별 최신 상태 결정
	resolved := Resolve(analyses)

	// 5. 구독 생성 (pass 2)
	found := s.emit(ctx, st, resolved)

	s.archiveAll(ctx, st, analyses)

	return &domain.ScanSummary{
		EmailsScanned:      len(refs),
		MessagesAnalyzed:   len(items),
		SubscriptionsFound: found,
	}, nil
}

// sortNewestFirst orders refs by InternalDate descending, keeping the source
// order for ties. It reports whether the input was already ordered.
func sortNewestFirst(refs []domain.MessageRef) bool {
	ordered := sort.SliceIsSorted(refs, func(i, j int) bool {
		return refs[i].InternalDate.After(refs[j].InternalDate)
	})
	if !ordered {
		sort.SliceStable(refs, func(i, j int) bool {
			return refs[i].InternalDate.After(refs[j].InternalDate)
		})
	}
	return ordered
}

// =============================================================================
// Pass 1: fetch and analyse
// =============================================================================

func (s *Service) collect(ctx context.Context, st *scanState, source out.MailSource, refs []domain.MessageRef) []analyzed {
	limit := s.cfg.MessageLimit
	if len(refs) < limit {
		limit = len(refs)
	}

	processed := make(map[string]struct{})
	items := make([]analyzed, 0, limit)

	for _, ref := range refs[:limit] {
		if ctx.Err() != nil {
			break
		}
		if _, ok := processed[ref.ThreadID]; ok {
			continue
		}
		if st.known.HasThread(ref.ThreadID) {
			continue
		}

		email, err := s.fetch(ctx, source, ref.ID)
		if err != nil {
			logger.WithScan(st.run.ID).WithError(err).Debug("[ScanService.collect] skip message %s", ref.ID)
			continue
		}
		processed[ref.ThreadID] = struct{}{}

		if email.ThreadID == "" {
			email.ThreadID = ref.ThreadID
		}
		if email.MessageID == "" {
			email.MessageID = ref.ID
		}
		if email.ReceivedAt.IsZero() {
			email.ReceivedAt = ref.InternalDate
		}

		a, ok := s.analyze(st, email)
		if !ok {
			continue
		}
		a.Ref = ref
		items = append(items, analyzed{email: email, analysis: a})
	}
	return items
}

func (s *Service) fetch(ctx context.Context, source out.MailSource, id string) (*domain.RawEmail, error) {
	mctx, cancel := context.WithTimeout(ctx, s.cfg.MessageTimeout)
	defer cancel()
	email, err := source.GetMessage(mctx, id)
	if err != nil {
		return nil, err
	}
	if email == nil {
		return nil, fmt.Errorf("message %s: empty payload", id)
	}
	return email, nil
}

// analyze runs both detectors on one email; a panic in an extractor drops the message.
func (s *Service) analyze(st *scanState, email *domain.RawEmail) (a domain.EmailAnalysis, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithScan(st.run.ID).Error("[ScanService.analyze] recovered panic on %s: %v", email.MessageID, r)
			ok = false
		}
	}()

	history := s.detector.HistoryLookup(email.Sender, st.known.SeenBefore)
	a.Detection = s.detector.Detect(email, detection.Options{HasPriorHistory: history, Now: s.now()})
	a.StatusChange = s.detector.DetectStatusChange(email)
	return a, true
}

// =============================================================================
// Resolution
// =============================================================================

// Resolved is the per-service outcome of a scan before emission.
type Resolved struct {
	Detection *domain.DetectionResult
	Status    domain.SubscriptionStatus
	MessageID string
}

// Resolve collapses newest-first analyses to one entry per service. The first
// (newest) status change and the first detection win; a detection without a
// status change seeds active. Services are returned in first-seen order and
// only when a detection exists.
func Resolve(analyses []domain.EmailAnalysis) []Resolved {
	statuses := make(map[string]domain.SubscriptionStatus)
	detections := make(map[string]int)
	var order []Resolved

	for _, a := range analyses {
		if a.StatusChange != nil {
			if _, ok := statuses[a.StatusChange.CanonicalName]; !ok {
				statuses[a.StatusChange.CanonicalName] = a.StatusChange.NewStatus
			}
		}
		if a.Detection != nil {
			name := a.Detection.CanonicalName
			if _, ok := detections[name]; !ok {
				detections[name] = len(order)
				order = append(order, Resolved{Detection: a.Detection, MessageID: a.Ref.ID})
			}
			if _, ok := statuses[name]; !ok {
				statuses[name] = domain.StatusActive
			}
		}
	}

	for i := range order {
		order[i].Status = statuses[order[i].Detection.CanonicalName]
	}
	return order
}

// =============================================================================
// Pass 2: emit
// =============================================================================

func (s *Service) emit(ctx context.Context, st *scanState, resolved []Resolved) int {
	log := logger.WithUser(st.run.UserID).WithScan(st.run.ID)
	found := 0

	for _, r := range resolved {
		d := r.Detection

		if reason := s.skipReason(st, d); reason != "" {
			st.outcomes[r.MessageID] = outcomeSkipped + reason
			log.Debug("[ScanService.emit] skip %s: %s", d.CanonicalName, reason)
			continue
		}

		next := *d.NextBillingDate
		status := finalStatus(r.Status, d.Suggestion)

		var categoryID *uuid.UUID
		if d.CategoryName != "" {
			cat, err := s.resolveCategory(ctx, st, d.CategoryName)
			if err != nil {
				log.WithError(err).Warn("[ScanService.emit] category %s unavailable", d.CategoryName)
			} else {
				categoryID = &cat.ID
			}
		}

		conf := detection.Score(d.SignalSet)
		reason := conf.Reason()
		if s.cfg.IncludePenalty {
			reason = conf.ReasonWithPenalty()
		}
		score := d.ConfidenceScore
		threadID := d.SourceThreadID
		sender := d.SourceSender

		sub := &domain.Subscription{
			UserID:          st.run.UserID,
			Name:            d.CanonicalName,
			Amount:          d.Amount,
			Currency:        d.Currency,
			BillingCycle:    d.BillingCycle,
			NextBillingDate: next,
			Status:          status,
			CategoryID:      categoryID,
			AutoDetected:    true,
			Source:          domain.SourceGmail,
			EmailThreadID:   &threadID,
			EmailSender:     &sender,
			LogoURL:         optional(d.LogoURL),
			WebsiteURL:      optional(d.WebsiteURL),
			ConfidenceScore: &score,
			DetectionReason: &reason,
		}
		if err := s.subRepo.Create(ctx, sub); err != nil {
			st.outcomes[r.MessageID] = outcomeSkipped + skipInsertFailed
			log.WithError(err).Warn("[ScanService.emit] failed to insert %s", d.CanonicalName)
			continue
		}

		st.known.Occupy(d.CanonicalName)
		st.outcomes[r.MessageID] = outcomeAccepted
		found++

		s.notify(ctx, st, sub, d)
		s.project(ctx, st, sub, d.CategoryName)
		s.push(ctx, st.run.UserID, domain.EventSubscriptionDetected, sub)
	}
	return found
}

func (s *Service) skipReason(st *scanState, d *domain.DetectionResult) string {
	switch {
	case d.Suggestion == domain.SuggestIgnore:
		return skipIgnore
	case d.IsOneTime && !d.IsRecurring:
		return skipOneTime
	}
	if d.NextBillingDate == nil {
		if s.cfg.DatePolicy != DatePolicyLenient {
			return skipNoDate
		}
		next := d.BillingCycle.Next(st.today)
		d.NextBillingDate = &next
	}
	if st.known.IsOccupied(d.CanonicalName) {
		return skipDuplicateName
	}
	return ""
}

// finalStatus keeps a cancellation or pause seen in the mailbox; otherwise the
// suggestion decides between active and pending review.
func finalStatus(resolved domain.SubscriptionStatus, suggestion domain.Suggestion) domain.SubscriptionStatus {
	if resolved != "" && resolved != domain.StatusActive {
		return resolved
	}
	if suggestion == domain.SuggestAuto {
		return domain.StatusActive
	}
	return domain.StatusPendingReview
}

func (s *Service) resolveCategory(ctx context.Context, st *scanState, name string) (*domain.Category, error) {
	key := strings.ToLower(name)
	if c, ok := st.categories[key]; ok {
		return c, nil
	}
	c := &domain.Category{
		UserID: st.run.UserID,
		Name:   name,
		Color:  domain.CategoryColor(name),
	}
	if err := s.catRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	st.categories[key] = c
	return c, nil
}

func (s *Service) notify(ctx context.Context, st *scanState, sub *domain.Subscription, d *domain.DetectionResult) {
	if s.notifier == nil {
		return
	}
	n := domain.NewDetectionNotification(st.run.UserID, &sub.ID, d, sub.Status)

	if sub.Status == domain.StatusPendingReview && s.cfg.ReviewHintsEnabled && s.reviewer != nil {
		if email := st.emails[d.SourceMessageID]; email != nil {
			hint, err := s.reviewer.ReviewHint(ctx, email, d)
			if err != nil {
				logger.WithScan(st.run.ID).WithError(err).Debug("[ScanService.notify] review hint unavailable")
			} else if hint != "" {
				n.Data["review_hint"] = hint
			}
		}
	}

	if err := s.notifier.Send(ctx, n); err != nil {
		logger.WithScan(st.run.ID).WithError(err).Warn("[ScanService.notify] failed to store notification for %s", sub.Name)
	}
}

func (s *Service) project(ctx context.Context, st *scanState, sub *domain.Subscription, category string) {
	if s.graph == nil {
		return
	}
	if err := s.graph.UpsertSubscription(ctx, st.run.UserID, sub, category); err != nil {
		logger.WithScan(st.run.ID).WithError(err).Debug("[ScanService.project] graph upsert failed")
	}
}

// =============================================================================
// Evidence
// =============================================================================

func (s *Service) archiveAll(ctx context.Context, st *scanState, analyses []domain.EmailAnalysis) {
	if s.archive == nil {
		return
	}
	at := s.now()
	for _, a := range analyses {
		email := st.emails[a.Ref.ID]
		if email == nil {
			continue
		}
		rec := &out.ArchivedAnalysis{
			ScanID:       st.run.ID,
			UserID:       st.run.UserID,
			MessageID:    a.Ref.ID,
			ThreadID:     email.ThreadID,
			Subject:      email.Subject,
			Sender:       email.Sender,
			Excerpt:      email.BodyExcerpt,
			ReceivedAt:   email.ReceivedAt,
			Detection:    a.Detection,
			StatusChange: a.StatusChange,
			Outcome:      outcomeOf(st, a),
			CreatedAt:    at,
		}
		if err := s.archive.Record(ctx, rec); err != nil {
			logger.WithScan(st.run.ID).WithError(err).Debug("[ScanService.archiveAll] record failed")
			return
		}
	}
}

func outcomeOf(st *scanState, a domain.EmailAnalysis) string {
	if o, ok := st.outcomes[a.Ref.ID]; ok {
		return o
	}
	switch {
	case a.Detection != nil:
		return outcomeSuperseded
	case a.StatusChange != nil:
		return outcomeStatusChange
	}
	return outcomeNoMatch
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

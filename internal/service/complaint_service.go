package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lgcms/internal/aggregate"
	"lgcms/internal/apperr"
	"lgcms/internal/config"
	"lgcms/internal/events"
	"lgcms/internal/ids"
	"lgcms/internal/metrics"
	"lgcms/internal/models"
	"lgcms/internal/repository"
)

const invalidateTimeout = 2 * time.Second

type ComplaintService struct {
	complaints ComplaintStore
	users      UserStore
	cache      aggregate.Cache
	events     events.Publisher
	metrics    *metrics.Metrics
	cfg        *config.AppConfig
	log        zerolog.Logger
	locks      *keyedMutex
	now        func() time.Time
}

func NewComplaintService(
	complaints ComplaintStore,
	users UserStore,
	cache aggregate.Cache,
	publisher events.Publisher,
	m *metrics.Metrics,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *ComplaintService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ComplaintService{
		complaints: complaints,
		users:      users,
		cache:      cache,
		events:     publisher,
		metrics:    m,
		cfg:        cfg,
		log:        log,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

func (s *ComplaintService) WithClock(now func() time.Time) *ComplaintService {
	s.now = now
	return s
}

type SubmitInput struct {
	Category    string
	Description string
	Location    string
	Priority    string
	Evidence    []string
}

// Submit files a new complaint. A nil submitter files it anonymously.
func (s *ComplaintService) Submit(ctx context.Context, submitter *models.Identity, input SubmitInput) (models.Complaint, error) {
	category := strings.TrimSpace(input.Category)
	description := strings.TrimSpace(input.Description)
	location := models.ParseLocation(input.Location)

	if category == "" || description == "" || location.Empty() {
		return models.Complaint{}, apperr.Validation("category, description and location are required")
	}
	if s.cfg.Complaints.StrictCategories && !models.IsKnownCategory(category) {
		return models.Complaint{}, apperr.Validation(fmt.Sprintf("unknown category %q", category))
	}

	priority := models.DefaultPriority
	if p := strings.TrimSpace(input.Priority); p != "" {
		parsed, ok := models.ParsePriority(p)
		if !ok {
			return models.Complaint{}, apperr.Validation(fmt.Sprintf("invalid priority %q", p))
		}
		priority = parsed
	}

	evidence := make([]string, 0, len(input.Evidence))
	for _, ref := range input.Evidence {
		if ref = strings.TrimSpace(ref); ref != "" {
			evidence = append(evidence, ref)
		}
	}

	now := s.now()
	complaint := models.Complaint{
		ID:          ids.New(),
		Category:    category,
		Description: description,
		Status:      models.StatusPending,
		Priority:    priority,
		Location:    location,
		Evidence:    evidence,
		Responses:   []models.Response{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if submitter != nil {
		id := submitter.ID
		complaint.SubmitterID = &id
	}

	saved, err := s.complaints.Save(ctx, complaint)
	if err != nil {
		return models.Complaint{}, storeError("submit complaint", err)
	}

	s.afterWrite(ctx, saved.ID, events.ActionSubmitted)
	return saved, nil
}

// Mutate applies changes atomically. Every requested change is validated,
// including the assignee lookup, before anything is written. Concurrent
// mutations of the same complaint are serialised in process and guarded by
// the stored version across processes.
func (s *ComplaintService) Mutate(ctx context.Context, actor models.Identity, id string, changes Changes) (models.Complaint, error) {
	if !actor.Role.CanHandleComplaints() {
		return models.Complaint{}, apperr.Forbidden("only staff and admins can update complaints")
	}

	validated, err := validateChanges(changes)
	if err != nil {
		return models.Complaint{}, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	attempts := s.cfg.Store.MaxMutateRetries
	if attempts < 1 {
		attempts = 1
	}

	responder := ""
	if validated.response != "" {
		if responder, err = s.responderName(ctx, actor); err != nil {
			return models.Complaint{}, err
		}
	}

	assigneeChecked := false
	for attempt := 0; attempt < attempts; attempt++ {
		current, err := s.complaints.Get(ctx, id)
		if err != nil {
			return models.Complaint{}, storeError("load complaint", err)
		}

		if !assigneeChecked && validated.assignee != nil && *validated.assignee != "" {
			if err := s.checkAssignee(ctx, *validated.assignee); err != nil {
				return models.Complaint{}, err
			}
			assigneeChecked = true
		}

		next, changed := applyChanges(current, validated, responder, s.now())
		if !changed {
			return current, nil
		}

		saved, err := s.complaints.Save(ctx, next)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.log.Debug().Str("complaint_id", id).Int("attempt", attempt+1).Msg("complaint version conflict, retrying")
			continue
		}
		if err != nil {
			return models.Complaint{}, storeError("save complaint", err)
		}

		s.afterWrite(ctx, id, events.ActionMutated)
		return saved, nil
	}

	return models.Complaint{}, apperr.New(apperr.KindConflict, "complaint is being updated by someone else, retry the request")
}

// Remove deletes a complaint. Only admins may do this.
func (s *ComplaintService) Remove(ctx context.Context, actor models.Identity, id string) error {
	if actor.Role != models.RoleAdmin {
		return apperr.Forbidden("only admins can delete complaints")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.complaints.Delete(ctx, id); err != nil {
		return storeError("delete complaint", err)
	}

	s.afterWrite(ctx, id, events.ActionRemoved)
	return nil
}

// Get returns a complaint the viewer may see. Citizens only see their own;
// anonymous complaints are visible to staff and admins only.
func (s *ComplaintService) Get(ctx context.Context, viewer models.Identity, id string) (models.Complaint, error) {
	c, err := s.complaints.Get(ctx, id)
	if err != nil {
		return models.Complaint{}, storeError("get complaint", err)
	}
	if !viewer.Role.CanHandleComplaints() && !c.SubmittedBy(viewer.ID) {
		return models.Complaint{}, apperr.Forbidden("not authorized to view this complaint")
	}
	return c, nil
}

type ListInput struct {
	Status       string
	Priority     string
	Category     string
	Search       string
	AssignedOnly bool
	Page         int
	PageSize     int
}

type Page struct {
	Items    []models.Complaint
	Total    int
	Page     int
	PageSize int
}

func (s *ComplaintService) List(ctx context.Context, viewer models.Identity, input ListInput) (Page, error) {
	filter := models.ComplaintFilter{
		Category: strings.TrimSpace(input.Category),
		Search:   strings.TrimSpace(input.Search),
	}
	if input.Status != "" {
		status, ok := models.ParseComplaintStatus(input.Status)
		if !ok {
			return Page{}, apperr.Validation(fmt.Sprintf("invalid status %q", input.Status))
		}
		filter.Status = status
	}
	if input.Priority != "" {
		priority, ok := models.ParsePriority(input.Priority)
		if !ok {
			return Page{}, apperr.Validation(fmt.Sprintf("invalid priority %q", input.Priority))
		}
		filter.Priority = priority
	}

	switch {
	case !viewer.Role.CanHandleComplaints():
		filter.SubmitterID = viewer.ID
	case input.AssignedOnly:
		filter.AssigneeID = viewer.ID
	}

	page, pageSize := s.pageBounds(input.Page, input.PageSize)
	items, total, err := s.complaints.Query(ctx, filter, page, pageSize)
	if err != nil {
		return Page{}, storeError("list complaints", err)
	}
	return Page{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *ComplaintService) pageBounds(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.cfg.Complaints.DefaultPageSize
	}
	if limit := s.cfg.Complaints.MaxPageSize; limit > 0 && pageSize > limit {
		pageSize = limit
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

func (s *ComplaintService) checkAssignee(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperr.InvalidAssignment("assignee does not exist")
	}
	if err != nil {
		return storeError("load assignee", err)
	}
	if !user.Role.CanHandleComplaints() {
		return apperr.InvalidAssignment("complaints can only be assigned to staff or admins")
	}
	return nil
}

// responderName resolves the name recorded on a response from the credential
// store at the time of the write. Callers the store does not know keep the
// name carried by their session.
func (s *ComplaintService) responderName(ctx context.Context, actor models.Identity) (string, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	switch {
	case err == nil:
		return user.DisplayName(), nil
	case errors.Is(err, repository.ErrUserNotFound):
		if actor.Name != "" {
			return actor.Name, nil
		}
		return actor.ID, nil
	default:
		return "", storeError("load responder", err)
	}
}

func validateChanges(ch Changes) (validatedChanges, error) {
	var out validatedChanges

	if v := trimmed(ch.Status); v != nil {
		status, ok := models.ParseComplaintStatus(*v)
		if !ok {
			return out, apperr.Validation(fmt.Sprintf("invalid status %q", *v))
		}
		out.status = &status
	}
	if v := trimmed(ch.Priority); v != nil {
		priority, ok := models.ParsePriority(*v)
		if !ok {
			return out, apperr.Validation(fmt.Sprintf("invalid priority %q", *v))
		}
		out.priority = &priority
	}
	out.assignee = trimmed(ch.Assignee)
	if v := trimmed(ch.ResponseText); v != nil {
		out.response = *v
	}
	return out, nil
}

// afterWrite runs the best-effort follow ups of a committed write. They use a
// context detached from the request so a client disconnect right after the
// commit still clears the cache.
func (s *ComplaintService) afterWrite(ctx context.Context, complaintID string, action events.Action) {
	s.metrics.ComplaintWritten(string(action))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	for _, pattern := range []string{aggregate.DashboardPattern, aggregate.AnalyticsPattern} {
		_, err := s.cache.Invalidate(ctx, pattern)
		s.metrics.CacheInvalidated(err)
		if err != nil {
			s.log.Warn().Err(err).
				Str("pattern", pattern).
				Str("complaint_id", complaintID).
				Msg("aggregate cache invalidation failed")
		}
	}

	task := events.Task{Type: events.TypeComplaintChanged, ComplaintID: complaintID, Action: action}
	if err := s.events.Publish(ctx, task); err != nil {
		s.log.Warn().Err(err).Str("complaint_id", complaintID).Msg("publish complaint event failed")
	}
}

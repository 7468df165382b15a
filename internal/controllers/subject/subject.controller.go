package subjectController

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fitadmin/internal/events"
	"fitadmin/internal/logger"
	. "fitadmin/internal/models"
	"fitadmin/internal/repositories"
	"fitadmin/internal/services"
	"fitadmin/internal/utils"
	"fitadmin/internal/validation"
)

var ErrSubjectNotFound = errors.New("subject not found")

type SubjectController struct {
	subjectRepo        repositories.SubjectRepository
	testResultRepo     repositories.TestResultRepository
	transactionService *services.TransactionService
	cacheInvalidation  *services.CacheInvalidationService
	log                logger.Logger
}

func New(
	subjectRepo repositories.SubjectRepository,
	testResultRepo repositories.TestResultRepository,
	transactionService *services.TransactionService,
	cacheInvalidation *services.CacheInvalidationService,
) *SubjectController {
	return &SubjectController{
		subjectRepo:        subjectRepo,
		testResultRepo:     testResultRepo,
		transactionService: transactionService,
		cacheInvalidation:  cacheInvalidation,
		log:                logger.New("SubjectController"),
	}
}

func (sc *SubjectController) List(ctx context.Context, filter SubjectFilter, page Page) (Paginated[*Subject], error) {
	log := sc.log.Function("List")

	subjects, total, err := sc.subjectRepo.List(ctx, filter, page)
	if err != nil {
		return Paginated[*Subject]{}, log.Err("failed to list subjects", err, "filter", filter)
	}

	return NewPaginated(subjects, total, page), nil
}

func (sc *SubjectController) Get(ctx context.Context, ulid string) (SubjectDetail, error) {
	log := sc.log.Function("Get")

	subject, err := sc.subjectRepo.GetByULID(ctx, ulid)
	if errors.Is(err, repositories.ErrNotFound) {
		return SubjectDetail{}, ErrSubjectNotFound
	}
	if err != nil {
		return SubjectDetail{}, log.Err("failed to get subject", err, "ulid", ulid)
	}

	results, err := sc.testResultRepo.ListBySubject(ctx, subject.ID, subject.ULID)
	if err != nil {
		return SubjectDetail{}, log.Err("failed to get subject results", err, "ulid", ulid)
	}
	if results == nil {
		results = []TestResult{}
	}

	return SubjectDetail{Subject: *subject, Results: results}, nil
}

// Create assigns a fresh ULID so dashboard-created subjects sync to devices
// the same way device-created ones do.
func (sc *SubjectController) Create(ctx context.Context, memberID string, req SubjectRequest) (*Subject, error) {
	log := sc.log.Function("Create")

	subject := &Subject{ULID: utils.NewULID()}
	if err := apply(subject, req); err != nil {
		return nil, err
	}
	if memberID != "" {
		subject.CreatedBy = &memberID
	}

	if err := sc.subjectRepo.Create(ctx, subject); err != nil {
		return nil, log.Err("failed to create subject", err, "ulid", subject.ULID)
	}

	sc.changed(ctx, "created", subject.ULID)
	return subject, nil
}

func (sc *SubjectController) Update(ctx context.Context, ulid string, req SubjectRequest) (*Subject, error) {
	log := sc.log.Function("Update")

	var subject *Subject
	err := sc.transactionService.Execute(ctx, func(txCtx context.Context) error {
		existing, err := sc.subjectRepo.GetByULID(txCtx, ulid)
		if err != nil {
			return err
		}
		if err := apply(existing, req); err != nil {
			return err
		}
		if err := sc.subjectRepo.Update(txCtx, existing); err != nil {
			return err
		}
		subject = existing
		return nil
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSubjectNotFound
	}
	var ve *validation.RequestValidationError
	if errors.As(err, &ve) {
		return nil, err
	}
	if err != nil {
		return nil, log.Err("failed to update subject", err, "ulid", ulid)
	}

	sc.changed(ctx, "updated", ulid)
	return subject, nil
}

func (sc *SubjectController) Delete(ctx context.Context, ulid string) error {
	log := sc.log.Function("Delete")

	err := sc.subjectRepo.SoftDelete(ctx, ulid)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrSubjectNotFound
	}
	if err != nil {
		return log.Err("failed to delete subject", err, "ulid", ulid)
	}

	sc.changed(ctx, "deleted", ulid)
	return nil
}

func (sc *SubjectController) changed(ctx context.Context, action, ulid string) {
	if sc.cacheInvalidation == nil {
		return
	}
	_ = sc.cacheInvalidation.InvalidateRecords(ctx, events.TypeSubjectChanged, map[string]any{
		"action": action,
		"ulid":   ulid,
	})
}

func apply(subject *Subject, req SubjectRequest) error {
	if err := validation.ValidateStruct(&req); err != nil {
		return err
	}

	birthDate, ok := utils.NormalizeBirthDate(req.BirthDate)
	if !ok {
		return &validation.RequestValidationError{Fields: []validation.FieldError{{
			Field:   "birth_date",
			Tag:     "date",
			Message: fmt.Sprintf("birth_date %q is not a date", *req.BirthDate),
		}}}
	}

	subject.Name = strings.TrimSpace(req.Name)
	subject.IDNumber = req.IDNumber
	subject.BirthDate = birthDate
	subject.Age = req.Age
	subject.Height = req.Height
	subject.Weight = req.Weight
	subject.Gender = nil
	if req.Gender != nil {
		gender := Gender(*req.Gender)
		subject.Gender = &gender
	}
	return nil
}

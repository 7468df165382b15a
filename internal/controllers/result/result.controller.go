package resultController

import (
	"context"
	"errors"
	"time"

	"fitadmin/internal/logger"
	. "fitadmin/internal/models"
	"fitadmin/internal/repositories"
	"fitadmin/internal/utils"
)

var (
	ErrResultNotFound = errors.New("test result not found")
	ErrInvalidDate    = errors.New("invalid date filter")
)

// ResultQuery carries the dashboard's raw query parameters. Dates are
// calendar days in the display timezone and dateTo is inclusive.
type ResultQuery struct {
	TestType    string
	SubjectULID string
	DateFrom    string
	DateTo      string
}

type ResultController struct {
	testResultRepo repositories.TestResultRepository
	location       *time.Location
	log            logger.Logger
}

func New(testResultRepo repositories.TestResultRepository, location *time.Location) *ResultController {
	if location == nil {
		location = time.UTC
	}
	return &ResultController{
		testResultRepo: testResultRepo,
		location:       location,
		log:            logger.New("ResultController"),
	}
}

func (rc *ResultController) List(ctx context.Context, query ResultQuery, page Page) (Paginated[*TestResult], error) {
	log := rc.log.Function("List")

	filter := TestResultFilter{TestType: query.TestType, SubjectULID: query.SubjectULID}
	if query.DateFrom != "" {
		from, err := time.ParseInLocation(time.DateOnly, query.DateFrom, rc.location)
		if err != nil {
			return Paginated[*TestResult]{}, ErrInvalidDate
		}
		filter.DateFrom = &from
	}
	if query.DateTo != "" {
		to, err := time.ParseInLocation(time.DateOnly, query.DateTo, rc.location)
		if err != nil {
			return Paginated[*TestResult]{}, ErrInvalidDate
		}
		to = utils.EndOfDay(to)
		filter.DateTo = &to
	}

	results, total, err := rc.testResultRepo.List(ctx, filter, page)
	if err != nil {
		return Paginated[*TestResult]{}, log.Err("failed to list test results", err, "query", query)
	}

	return NewPaginated(results, total, page), nil
}

func (rc *ResultController) Get(ctx context.Context, ulid string) (*TestResult, error) {
	log := rc.log.Function("Get")

	result, err := rc.testResultRepo.GetByULID(ctx, ulid)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, log.Err("failed to get test result", err, "ulid", ulid)
	}

	return result, nil
}

package seed

import (
	"context"
	"time"

	"fitadmin/config"
	"fitadmin/internal/database"
	"fitadmin/internal/logger"
	. "fitadmin/internal/models"
	"fitadmin/internal/repositories"
	"fitadmin/internal/services"
	"fitadmin/internal/utils"
)

func stringPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

type sampleResult struct {
	testType TestType
	value    float64
}

// Seed loads a few subjects with a morning of results each so the dashboard
// has something to draw. Existing subjects (matched by id_number) are left
// alone.
func Seed(ctx context.Context, db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	subjects := repositories.NewSubject(db)
	results := repositories.NewTestResult(db)
	transactions := services.NewTransactionService(db)
	invalidation := services.NewCacheInvalidationService(db, nil)

	samples := []struct {
		subject Subject
		results []sampleResult
	}{
		{
			subject: Subject{Name: "王小明", IDNumber: stringPtr("A123456789"), Gender: genderPtr(GenderMale), BirthDate: stringPtr("1950-06-15"), Age: intPtr(73)},
			results: []sampleResult{{TestTypeSitStand, 12.5}, {TestTypeWalkSpeed, 0.9}, {TestTypeBalanceFoot, 10}},
		},
		{
			subject: Subject{Name: "陳美麗", IDNumber: stringPtr("B223456789"), Gender: genderPtr(GenderFemale), BirthDate: stringPtr("1948-02-01"), Age: intPtr(76)},
			results: []sampleResult{{TestTypeSitStand, 16.2}, {TestTypeOneLegStand, 4.3}, {TestTypeFunctionalReach, 21}},
		},
		{
			subject: Subject{Name: "林大同", IDNumber: stringPtr("C123987654"), Gender: genderPtr(GenderMale), Age: intPtr(81)},
			results: []sampleResult{{TestTypeWalkSpeed, 0.6}, {TestTypeGaitStanding, 7.5}},
		},
	}

	existing, _, err := subjects.List(ctx, SubjectFilter{}, NewPage(1, MaxPageSize))
	if err != nil {
		return log.Err("failed to list existing subjects", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		if s.IDNumber != nil {
			seen[*s.IDNumber] = true
		}
	}

	seeded := 0
	syncedAt := time.Now().UTC()
	testedAt := syncedAt.Truncate(time.Hour).Add(-24 * time.Hour)
	for _, sample := range samples {
		if seen[*sample.subject.IDNumber] {
			log.Info("Subject already exists", "idNumber", *sample.subject.IDNumber)
			continue
		}

		subject := sample.subject
		subject.ULID = utils.NewULID()

		err := transactions.Execute(ctx, func(txCtx context.Context) error {
			if err := subjects.Create(txCtx, &subject); err != nil {
				return err
			}
			for i, r := range sample.results {
				at := testedAt.Add(time.Duration(i) * 10 * time.Minute)
				info, _ := LookupTestType(r.testType)
				result := &TestResult{
					ULID:        utils.NewULIDAt(at),
					SubjectID:   &subject.ID,
					SubjectULID: subject.ULID,
					TestType:    r.testType,
					TestName:    stringPtr(info.Name),
					ResultValue: r.value,
					ResultUnit:  info.Unit,
					TestedAt:    at,
					SyncedAt:    &syncedAt,
				}
				if err := results.Upsert(txCtx, result); err != nil {
					return err
				}
			}
			return subjects.RecountTests(txCtx, subject.ID)
		})
		if err != nil {
			log.Er("failed to seed subject", err, "name", subject.Name)
			continue
		}
		seeded++
		log.Info("Seeded subject", "ulid", subject.ULID, "results", len(sample.results))
	}

	if seeded > 0 {
		if err := invalidation.InvalidateRecords(ctx, "seed.loaded", map[string]any{"subjects": seeded}); err != nil {
			log.Warn("failed to invalidate caches after seeding", "error", err)
		}
	}

	return nil
}

func genderPtr(g Gender) *Gender {
	return &g
}

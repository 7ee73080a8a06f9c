package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/contractwatch/internal/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func fixedTerm(id, worker string, start, end time.Time) Contract {
	return Contract{ID: id, WorkerID: worker, Type: TypeFixedTerm, StartDate: start, EndDate: &end, Status: StatusActive}
}

func indefinite(id, worker string, start time.Time) Contract {
	return Contract{ID: id, WorkerID: worker, Type: TypeIndefinite, StartDate: start, Status: StatusActive}
}

func TestHasOverlap(t *testing.T) {
	t.Parallel()

	jan := fixedTerm("c-jan", "w1", day(2024, 1, 1), day(2024, 1, 31))
	finished := fixedTerm("c-old", "w1", day(2023, 1, 1), day(2025, 12, 31))
	finished.Status = StatusFinished
	unparsed := Contract{ID: "c-bad", WorkerID: "w3", Type: TypeFixedTerm, StartDate: day(2024, 1, 1), Status: StatusActive, RawEndDate: "soon"}
	noStart := Contract{ID: "c-nostart", WorkerID: "w4", Type: TypeFixedTerm, EndDate: dayPtr(2024, 1, 31), Status: StatusActive, RawStartDate: "2024/01/01"}
	noStartInd := Contract{ID: "c-nostart-ind", WorkerID: "7", Type: TypeIndefinite, Status: StatusActive, RawStartDate: "2024/01/15"}

	tests := []struct {
		name     string
		worker   string
		start    time.Time
		end      *time.Time
		existing []Contract
		want     bool
	}{
		{"no contracts", "w1", day(2024, 1, 1), dayPtr(2024, 1, 2), nil, false},
		{"existing indefinite blocks future range", "w1", day(2030, 1, 1), dayPtr(2030, 2, 1),
			[]Contract{indefinite("c-ind", "w1", day(2024, 1, 1))}, true},
		{"existing indefinite blocks range before its start", "w1", day(2020, 1, 1), dayPtr(2020, 2, 1),
			[]Contract{indefinite("c-ind", "w1", day(2024, 1, 1))}, true},
		{"indefinite candidate blocked by past range", "w1", day(2030, 1, 1), nil,
			[]Contract{jan}, true},
		{"shared boundary day overlaps", "w1", day(2024, 1, 31), dayPtr(2024, 2, 28),
			[]Contract{jan}, true},
		{"candidate ends on existing start", "w1", day(2023, 12, 1), dayPtr(2024, 1, 1),
			[]Contract{jan}, true},
		{"day after end is free", "w1", day(2024, 2, 1), dayPtr(2024, 2, 28),
			[]Contract{jan}, false},
		{"day before start is free", "w1", day(2023, 12, 1), dayPtr(2023, 12, 31),
			[]Contract{jan}, false},
		{"candidate inside existing", "w1", day(2024, 1, 10), dayPtr(2024, 1, 12),
			[]Contract{jan}, true},
		{"candidate covers existing", "w1", day(2023, 1, 1), dayPtr(2025, 1, 1),
			[]Contract{jan}, true},
		{"other worker ignored", "w2", day(2024, 1, 10), dayPtr(2024, 1, 12),
			[]Contract{jan}, false},
		{"finished contract ignored", "w1", day(2024, 6, 1), nil,
			[]Contract{finished}, false},
		{"unparseable end fails closed", "w3", day(2030, 1, 1), dayPtr(2030, 1, 2),
			[]Contract{unparsed}, true},
		{"unparseable start fails closed", "w4", day(2030, 1, 1), dayPtr(2030, 1, 2),
			[]Contract{noStart}, true},
		{"indefinite with unparseable start blocks indefinite candidate", "7", day(2025, 1, 1), nil,
			[]Contract{noStartInd}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HasOverlap(tt.worker, tt.start, tt.end, tt.existing))
		})
	}
}

func TestFindOverlapReturnsFirstConflict(t *testing.T) {
	t.Parallel()

	existing := []Contract{
		fixedTerm("c-1", "w1", day(2024, 1, 1), day(2024, 1, 31)),
		fixedTerm("c-2", "w1", day(2024, 1, 15), day(2024, 2, 15)),
	}

	c, found := FindOverlap("w1", day(2024, 1, 20), dayPtr(2024, 1, 25), existing)
	require.True(t, found)
	assert.Equal(t, "c-1", c.ID)
}

func TestValidateCandidate(t *testing.T) {
	t.Parallel()

	existing := []Contract{fixedTerm("c-1", "w1", day(2024, 1, 1), day(2024, 1, 31))}

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()
		err := ValidateCandidate(Candidate{WorkerID: "w1", Start: day(2024, 2, 1), End: dayPtr(2024, 3, 1)}, existing)
		require.NoError(t, err)
	})

	t.Run("end before start", func(t *testing.T) {
		t.Parallel()
		err := ValidateCandidate(Candidate{WorkerID: "w1", Start: day(2024, 3, 1), End: dayPtr(2024, 3, 1)}, existing)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		assert.Equal(t, "End date must be after start date", UserMessage(err))
		assert.Empty(t, ConflictingContractID(err))
	})

	t.Run("overlap", func(t *testing.T) {
		t.Parallel()
		err := ValidateCandidate(Candidate{WorkerID: "w1", Start: day(2024, 1, 31), End: nil}, existing)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
		assert.Equal(t, "c-1", ConflictingContractID(err))
		assert.Equal(t, "The worker already has an active contract (c-1) from 01/01/2024 to 31/01/2024", UserMessage(err))
	})

	t.Run("unreadable existing start", func(t *testing.T) {
		t.Parallel()
		noStart := []Contract{{ID: "c-9", WorkerID: "w1", Type: TypeIndefinite, Status: StatusActive, RawStartDate: "2024/01/15"}}
		err := ValidateCandidate(Candidate{WorkerID: "w1", Start: day(2030, 1, 1), End: dayPtr(2030, 2, 1)}, noStart)
		require.Error(t, err)
		assert.Equal(t, "c-9", ConflictingContractID(err))
		assert.Equal(t, `The worker already has an active contract (c-9) whose start date "2024/01/15" could not be read`, UserMessage(err))
	})

	t.Run("missing worker", func(t *testing.T) {
		t.Parallel()
		err := ValidateCandidate(Candidate{Start: day(2024, 3, 1)}, existing)
		require.Error(t, err)
		assert.Equal(t, "Worker id is required", UserMessage(err))
	})
}

func TestContractValidate(t *testing.T) {
	t.Parallel()

	ok := fixedTerm("c-1", "w1", day(2024, 1, 1), day(2024, 1, 2))
	require.NoError(t, ok.Validate())

	sameDay := fixedTerm("c-1", "w1", day(2024, 1, 1), day(2024, 1, 1))
	require.Error(t, sameDay.Validate())

	ind := indefinite("c-2", "w1", day(2024, 1, 1))
	require.NoError(t, ind.Validate())
	ind.EndDate = dayPtr(2025, 1, 1)
	require.Error(t, ind.Validate())

	unknown := Contract{ID: "c-3", WorkerID: "w1", Type: "seasonal", StartDate: day(2024, 1, 1)}
	require.Error(t, unknown.Validate())
}

func TestUserMessageFallsBackToErrorText(t *testing.T) {
	t.Parallel()

	assert.Empty(t, UserMessage(nil))
	assert.Equal(t, "boom", UserMessage(errors.NewStd("boom")))
}

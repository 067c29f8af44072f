package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Icestreamm/baseer-backend/internal/core/domain"
)

func newStatus(id string, updated time.Time) *domain.AssessmentStatus {
	s := domain.NewAssessmentStatus(&domain.Assessment{ID: id})
	s.UpdatedAt = updated
	return s
}

func TestAssessmentStatusRepo_CreateGetUpdate(t *testing.T) {
	repo := NewAssessmentStatusRepo(time.Hour, 0)
	ctx := context.Background()

	s := newStatus("a", time.Now())
	require.NoError(t, repo.Create(ctx, s))

	// Stored records are copies.
	s.Progress = 50
	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Progress)

	require.NoError(t, repo.Update(ctx, s))
	got, err = repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 50, got.Progress)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrAssessmentNotFound)
}

func TestAssessmentStatusRepo_CreateWhileProcessing(t *testing.T) {
	repo := NewAssessmentStatusRepo(time.Hour, 0)
	ctx := context.Background()

	s := newStatus("a", time.Now())
	require.NoError(t, repo.Create(ctx, s))
	assert.ErrorIs(t, repo.Create(ctx, newStatus("a", time.Now())), domain.ErrAssessmentInProgress)

	s.Fail(errors.New("boom"))
	require.NoError(t, repo.Update(ctx, s))
	assert.NoError(t, repo.Create(ctx, newStatus("a", time.Now())))

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.AssessmentProcessing, got.State)
}

func TestAssessmentStatusRepo_Expiry(t *testing.T) {
	repo := NewAssessmentStatusRepo(time.Minute, 0)
	now := time.Unix(1000, 0)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newStatus("a", now)))
	now = now.Add(30 * time.Second)
	_, err := repo.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = repo.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrAssessmentNotFound)
	assert.Equal(t, 0, repo.Len())

	// An expired processing record no longer blocks a new request.
	require.NoError(t, repo.Create(ctx, newStatus("b", now)))
	now = now.Add(2 * time.Minute)
	assert.NoError(t, repo.Create(ctx, newStatus("b", now)))
}

func TestAssessmentStatusRepo_ExpiredReadKeepsNewerWrite(t *testing.T) {
	repo := NewAssessmentStatusRepo(time.Minute, 0)
	base := time.Unix(1000, 0)
	later := base.Add(2 * time.Minute)
	ctx := context.Background()

	repo.now = func() time.Time { return base }
	require.NoError(t, repo.Create(ctx, newStatus("a", base)))

	// The record is replaced between Get's read and its expiry delete.
	replaced := false
	repo.now = func() time.Time {
		if !replaced {
			replaced = true
			require.NoError(t, repo.Update(ctx, newStatus("a", later)))
		}
		return later
	}
	_, err := repo.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrAssessmentNotFound)

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, later, got.UpdatedAt)
}

func TestAssessmentStatusRepo_Eviction(t *testing.T) {
	repo := NewAssessmentStatusRepo(0, 2)
	ctx := context.Background()
	base := time.Unix(1000, 0)

	done := newStatus("done", base.Add(time.Second))
	done.Complete(&domain.AssessmentResult{})
	done.UpdatedAt = base.Add(time.Second)

	require.NoError(t, repo.Create(ctx, newStatus("old-processing", base)))
	require.NoError(t, repo.Create(ctx, done))
	require.NoError(t, repo.Create(ctx, newStatus("new", base.Add(2*time.Second))))

	assert.Equal(t, 2, repo.Len())
	_, err := repo.Get(ctx, "done")
	assert.ErrorIs(t, err, domain.ErrAssessmentNotFound)
	_, err = repo.Get(ctx, "old-processing")
	assert.NoError(t, err)
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/testutil"
)

func TestTicketTypeRepo_ReserveClassifiesZeroRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		exists bool
		want   error
	}{
		{name: "missing ticket type", exists: false, want: model.ErrTicketTypeNotFound},
		{name: "sold out", exists: true, want: model.ErrInsufficientInventory},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(regexp.QuoteMeta("UPDATE ticket_types SET booked = booked + ?")).
				WithArgs(2, sqlmock.AnyArg(), "evt-1", "VIP", 2).
				WillReturnResult(sqlmock.NewResult(0, 0))
			rows := sqlmock.NewRows([]string{"1"})
			if tt.exists {
				rows.AddRow(1)
			}
			mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM ticket_types")).
				WithArgs("evt-1", "VIP").
				WillReturnRows(rows)

			err = NewTicketTypeRepo(db).Reserve(context.Background(), "evt-1", "VIP", 2, time.Now())
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTicketTypeRepo_ReleaseBelowZeroIsIntegrityViolation(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE ticket_types SET booked = booked - ?")).
		WithArgs(5, sqlmock.AnyArg(), "evt-1", "GA", 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM ticket_types")).
		WithArgs("evt-1", "GA").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	err = NewTicketTypeRepo(db).Release(context.Background(), "evt-1", "GA", 5, time.Now())
	assert.ErrorIs(t, err, model.ErrIntegrityViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketTypeRepo_ReserveDriverErrorIsWrapped(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ticket_types")).WillReturnError(boom)

	err = NewTicketTypeRepo(db).Reserve(context.Background(), "evt-1", "GA", 1, time.Now())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrInsufficientInventory)
}

func TestTicketTypeRepo_CountersOnSQLite(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	testutil.InsertTicketType(t, db, "evt-1", "GA", 3, 1500)
	repo := NewTicketTypeRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Reserve(ctx, "evt-1", "GA", 2, now))
	assert.ErrorIs(t, repo.Reserve(ctx, "evt-1", "GA", 2, now), model.ErrInsufficientInventory)
	require.NoError(t, repo.Reserve(ctx, "evt-1", "GA", 1, now))

	tt, err := repo.Get(ctx, "evt-1", "GA")
	require.NoError(t, err)
	assert.Equal(t, 3, tt.Booked)
	assert.Equal(t, 0, tt.Available())

	assert.ErrorIs(t, repo.Release(ctx, "evt-1", "GA", 4, now), model.ErrIntegrityViolation)
	require.NoError(t, repo.Release(ctx, "evt-1", "GA", 3, now))

	_, booked := testutil.Counters(t, db, "evt-1", "GA")
	assert.Equal(t, 0, booked)

	_, err = repo.Get(ctx, "evt-1", "missing")
	assert.ErrorIs(t, err, model.ErrTicketTypeNotFound)
}

func TestTicketTypeRepo_InsertAndUpdateLimit(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	repo := NewTicketTypeRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	tt := model.TicketType{EventID: "evt-2", Name: "Balcony", Limit: 4, PriceCents: 900, UpdatedAt: now}
	require.NoError(t, repo.Insert(ctx, tt))
	assert.ErrorIs(t, repo.Insert(ctx, tt), model.ErrTicketTypeExists)

	require.NoError(t, repo.Reserve(ctx, "evt-2", "Balcony", 3, now))

	tt.Limit = 2
	assert.ErrorIs(t, repo.UpdateLimit(ctx, tt), model.ErrIntegrityViolation)

	tt.Limit = 10
	require.NoError(t, repo.UpdateLimit(ctx, tt))
	got, err := repo.Get(ctx, "evt-2", "Balcony")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, 7, got.Available())

	list, err := repo.ListByEvent(ctx, "evt-2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

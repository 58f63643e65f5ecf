package leads

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "Ahmed Ali", "a@b.com", "+966501234567", "10+", "", "Riyadh", "sa", "google").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	repo := NewPostgresRepository(mock)
	lead, err := repo.Create(context.Background(), &CreateLeadRequest{
		Name:      "Ahmed Ali",
		Email:     "a@b.com",
		Phone:     "+966501234567",
		Quantity:  "10+",
		City:      "Riyadh",
		Country:   "sa",
		UTMSource: "google",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, createdAt, lead.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryCreateValidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock)
	_, err = repo.Create(context.Background(), &CreateLeadRequest{Name: "Ahmed"})
	assert.ErrorIs(t, err, ErrMissingContact)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "name", "email", "phone", "quantity", "company", "city", "country", "source", "created_at",
	}).AddRow("abc", "Ahmed", "a@b.com", "+966501234567", "1-5", "", "Riyadh", "sa", "google", createdAt)

	mock.ExpectQuery("(?s)SELECT (.+) FROM leads").
		WithArgs("abc").
		WillReturnRows(rows)

	repo := NewPostgresRepository(mock)
	lead, err := repo.GetByID(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Ahmed", lead.Name)
	assert.Equal(t, "1-5", lead.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("(?s)SELECT (.+) FROM leads").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "email", "phone", "quantity", "company", "city", "country", "source", "created_at",
		}))

	repo := NewPostgresRepository(mock)
	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

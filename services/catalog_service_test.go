package services

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/carrental/car-rental-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestCatalogService_DeleteCarLocksTheCar(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	var statements []string
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture", func(tx *gorm.DB) {
		statements = append(statements, tx.Statement.SQL.String())
	}))

	svc := NewCatalogService(db, nil, zap.NewNop())
	require.NoError(t, svc.DeleteCar(context.Background(), 7))

	require.NotEmpty(t, statements)
	assert.Contains(t, statements[0], `"cars"`)
	assert.True(t, strings.HasSuffix(statements[0], "FOR UPDATE"), statements[0])

	var counted bool
	for _, stmt := range statements[1:] {
		if strings.Contains(stmt, "count(*)") && strings.Contains(stmt, `"orders"`) {
			counted = true
		}
	}
	assert.True(t, counted, "outstanding bookings are checked after the lock: %v", statements)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogService_DeleteCar(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db, nil, zap.NewNop())
	ctx := context.Background()
	user := seedUser(t, db)

	busy := seedCar(t, db, 1500)
	seedOrder(t, db, user, busy, "2030-05-10", "2030-05-12")
	assert.ErrorIs(t, svc.DeleteCar(ctx, busy.ID), ErrCarHasBookings)

	idle := seedCar(t, db, 1500)
	seedOrder(t, db, user, idle, "2030-04-10", "2030-04-12", func(o *models.Order) { o.Returned = true })
	require.NoError(t, svc.DeleteCar(ctx, idle.ID))
	_, err := svc.GetCar(ctx, idle.ID)
	assert.ErrorIs(t, err, ErrCarNotFound)

	assert.ErrorIs(t, svc.DeleteCar(ctx, 9999), ErrCarNotFound)
}

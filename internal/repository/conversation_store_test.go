package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"message-processor/internal/models"
)

func TestConversationFindByIDAbsent(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormConversationStore(db)

	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	conversation, err := store.FindByID(context.Background(), "missing-id")
	require.NoError(t, err)
	assert.Nil(t, conversation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationFindActiveByCustomerAndChannelAbsent(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormConversationStore(db)

	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE customer_id = \$1 AND channel = \$2 AND status = \$3`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	conversation, err := store.FindActiveByCustomerAndChannel(context.Background(), "customer-1", "whatsapp")
	require.NoError(t, err)
	assert.Nil(t, conversation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationListReturnsUnpagedTotal(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormConversationStore(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "conversations" WHERE status = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(`SELECT \* FROM "conversations" WHERE status = \$1 ORDER BY updated_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	conversations, total, err := store.List(context.Background(), ConversationFilter{Status: models.StatusActive}, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, conversations)
	assert.Equal(t, int64(42), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationCountByStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormConversationStore(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "conversations" WHERE status = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.CountByStatus(context.Background(), models.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationCountByStatusEmptyCountsAll(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormConversationStore(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "conversations"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	count, err := store.CountByStatus(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(11), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConversationCountByChannel(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewGormConversationStore(db)

	mock.ExpectQuery(`SELECT channel, COUNT\(\*\) AS count FROM "conversations" GROUP BY`).
		WillReturnRows(sqlmock.NewRows([]string{"channel", "count"}).
			AddRow("whatsapp", 8).
			AddRow("telegram", 3))

	byChannel, err := store.CountByChannel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"whatsapp": 8, "telegram": 3}, byChannel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package psqlbuilder

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_DollarPlaceholders(t *testing.T) {
	query, args, err := Select("id", "status").
		From("bookings").
		Where(squirrel.Eq{"staff_id": 7}).
		Where(squirrel.Eq{"status": []string{"pending", "held"}}).
		ToSql()

	require.NoError(t, err)
	assert.Equal(t, "SELECT id, status FROM bookings WHERE staff_id = $1 AND status IN ($2,$3)", query)
	assert.Equal(t, []interface{}{7, "pending", "held"}, args)
}

func TestUpdate_DollarPlaceholders(t *testing.T) {
	query, _, err := Update("bookings").Set("status", "completed").Where(squirrel.Eq{"id": 1}).ToSql()

	require.NoError(t, err)
	assert.Equal(t, "UPDATE bookings SET status = $1 WHERE id = $2", query)
}

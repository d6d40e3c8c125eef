package sql

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-lake/pkg/apperrors"
)

func mixCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i%2 == 0 {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

func TestValidateReadOnly_RejectsWriteKeywords(t *testing.T) {
	for _, kw := range WriteKeywords {
		for _, spelling := range []string{kw, strings.ToLower(kw), mixCase(kw)} {
			t.Run(spelling, func(t *testing.T) {
				err := ValidateReadOnly(spelling + " something")
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				assert.Contains(t, err.Error(), kw)
			})
		}
	}
}

func TestValidateReadOnly_RejectsNestedKeywords(t *testing.T) {
	queries := []string{
		"WITH x AS (DELETE FROM orders RETURNING *) SELECT * FROM x",
		"SELECT * FROM (SELECT 1) t; drop table orders",
		"SELECT replace(name, 'a', 'b') FROM customers",
		"SELECT * FROM orders WHERE id IN (CALL refresh_ids())",
	}
	expected := []string{"DELETE", "DROP", "REPLACE", "CALL"}

	for i, q := range queries {
		err := ValidateReadOnly(q)
		require.Error(t, err, q)
		assert.Contains(t, err.Error(), expected[i])
	}
}

func TestValidateReadOnly_AcceptsSelects(t *testing.T) {
	queries := []string{
		"SELECT 1",
		"SELECT * FROM orders WHERE total > 10",
		"SELECT o.id, c.name FROM orders o JOIN customers c ON c.id = o.customer_id",
		"WITH recent AS (SELECT * FROM orders WHERE created_at > now() - INTERVAL 1 DAY) SELECT count(*) FROM recent",
		"SELECT * FROM (SELECT id FROM orders) sub LIMIT 10 OFFSET 5",
		"SELECT status, count(*) FROM orders GROUP BY status HAVING count(*) > 1 ORDER BY 2 DESC",
		"select is_deleted, updated_by, created_at from events",
	}

	for _, q := range queries {
		assert.NoError(t, ValidateReadOnly(q), q)
	}
}

func TestValidateReadOnly_Empty(t *testing.T) {
	err := ValidateReadOnly("  ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

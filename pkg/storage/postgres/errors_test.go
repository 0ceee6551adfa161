package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestConstraintViolations(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "roles_name_lower_key"})
	foreign := &pq.Error{Code: "23503", Constraint: "users_role_id_fkey"}

	assert.True(t, IsUniqueViolation(unique, ""))
	assert.True(t, IsUniqueViolation(unique, "roles_name_lower_key"))
	assert.False(t, IsUniqueViolation(unique, "users_email_lower_key"))
	assert.False(t, IsUniqueViolation(foreign, ""))

	assert.True(t, IsForeignKeyViolation(foreign, "users_role_id_fkey"))
	assert.False(t, IsForeignKeyViolation(errors.New("plain"), ""))
}

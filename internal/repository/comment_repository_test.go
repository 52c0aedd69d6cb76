package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/projectsync/internal/domain"
	"github.com/ericfisherdev/projectsync/internal/repository"
)

func TestCommentRepository_AddCommentAppendsToTask(t *testing.T) {
	ctx := testContext(t)
	env := newTestEnv(t)
	tasks := env.tasks(t)
	comments, err := repository.NewCommentRepository(env.store, env.db, env.options())
	require.NoError(t, err)

	task := mustData(t, tasks.Create(ctx, domain.NewTask("Discuss", "", "p1", "u1")))

	base := time.Now().UTC().Truncate(time.Millisecond)
	second := domain.NewComment("second", task.ID, "u2", "Bob")
	second.CreatedAt = base.Add(time.Second)
	first := domain.NewComment("first", task.ID, "u1", "Alice")
	first.CreatedAt = base

	mustData(t, comments.AddComment(ctx, second))
	added := mustData(t, comments.AddComment(ctx, first))
	require.NotEmpty(t, added.ID)

	listed := until(t, ctx, comments.GetCommentsByTask(ctx, task.ID), func(cs []*domain.Comment) bool { return len(cs) == 2 })
	assert.Equal(t, "first", listed[0].Content)
	assert.Equal(t, "second", listed[1].Content)

	withComments := mustData(t, tasks.Get(ctx, task.ID))
	require.Len(t, withComments.Comments, 2)
	assert.Equal(t, added.ID, withComments.Comments[1].ID)

	refreshed := mustData(t, comments.RefreshTask(ctx, task.ID))
	assert.Len(t, refreshed, 2)
}

func TestCommentRepository_Validation(t *testing.T) {
	ctx := testContext(t)
	env := newTestEnv(t)
	comments, err := repository.NewCommentRepository(env.store, env.db, env.options())
	require.NoError(t, err)

	res := comments.AddComment(ctx, domain.NewComment("", "t1", "u1", "Alice"))
	assert.True(t, domain.IsValidation(res.Err()))

	res = comments.AddComment(ctx, domain.NewComment("orphan", "", "u1", "Alice"))
	assert.True(t, domain.IsValidation(res.Err()))
}

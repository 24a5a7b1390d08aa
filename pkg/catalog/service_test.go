package catalog

import (
	"context"
	"testing"

	"github.com/orcaust/orcaust/internal/apperror"
	"github.com/orcaust/orcaust/internal/database"
	"github.com/orcaust/orcaust/pkg/user"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var adminCtx = user.WithUser(context.Background(), user.User{Id: 1, Username: "admin", Admin: true})
var memberCtx = user.WithUser(context.Background(), user.User{Id: 2, Username: "estimator"})

var repoStub = NewStubRepository()

var service Service

func setup(t *testing.T) func() {
	service = NewService(repoStub, database.NoopTransactor{})
	return func() {
		t.Log("Teardown after test")
		repoStub.Cleanup()
	}
}

func createTree(t *testing.T) (Node, Node, Node) {
	cycle, err := service.Create(adminCtx, Node{Name: "Sustentação", Type: Cycle})
	require.NoError(t, err)
	phase, err := service.Create(adminCtx, Node{Name: "Análise", Type: Phase, ParentId: &cycle.Id})
	require.NoError(t, err)
	activity, err := service.Create(adminCtx, Node{
		Name:       "Levantamento de requisitos",
		Type:       Activity,
		ParentId:   &phase.Id,
		Complexity: complexity("1.25"),
	})
	require.NoError(t, err)
	return cycle, phase, activity
}

func TestServiceImpl_Create(t *testing.T) {
	t.Run("should create a full hierarchy", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, phase, activity := createTree(t)

		// then
		stored, err := service.Get(memberCtx, activity.Id)
		require.NoError(t, err)
		assert.Equal(t, Activity, stored.Type)
		assert.Equal(t, phase.Id, *stored.ParentId)
		assert.Equal(t, "1.2500", stored.Complexity.Decimal.StringFixed(4))
	})

	t.Run("should round complexity to four digits", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		_, phase, _ := createTree(t)

		// when
		activity, err := service.Create(adminCtx, Node{Name: "a", Type: Activity, ParentId: &phase.Id, Complexity: complexity("0.33335")})

		// then
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("0.3334").Equal(activity.Complexity.Decimal))
	})

	t.Run("should reject activity under a cycle", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		cycle, _, _ := createTree(t)

		// when
		_, err := service.Create(adminCtx, Node{Name: "a", Type: Activity, ParentId: &cycle.Id, Complexity: complexity("1")})

		// then
		assert.ErrorIs(t, err, apperror.ErrInvalidHierarchy)
	})

	t.Run("should reject activity without complexity", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		_, phase, _ := createTree(t)

		// when
		_, err := service.Create(adminCtx, Node{Name: "a", Type: Activity, ParentId: &phase.Id})

		// then
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("should reject phase without parent", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.Create(adminCtx, Node{Name: "p", Type: Phase})

		// then
		assert.ErrorIs(t, err, apperror.ErrInvalidHierarchy)
	})

	t.Run("should reject parent that does not exist", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		missing := 404

		// when
		_, err := service.Create(adminCtx, Node{Name: "p", Type: Phase, ParentId: &missing})

		// then
		assert.ErrorIs(t, err, apperror.ErrInvalidHierarchy)
	})

	t.Run("should require administrator", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		// when
		_, err := service.Create(memberCtx, Node{Name: "c", Type: Cycle})
		_, errAnonymous := service.Create(context.Background(), Node{Name: "c", Type: Cycle})

		// then
		assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
		assert.ErrorIs(t, errAnonymous, apperror.ErrUnauthenticated)
	})
}

func TestServiceImpl_Update(t *testing.T) {
	t.Run("should move a phase to another cycle", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		_, phase, _ := createTree(t)
		otherCycle, err := service.Create(adminCtx, Node{Name: "Projetos", Type: Cycle})
		require.NoError(t, err)

		// when
		updated, err := service.Update(adminCtx, Node{Id: phase.Id, Name: "Design", ParentId: &otherCycle.Id})

		// then
		require.NoError(t, err)
		assert.Equal(t, Phase, updated.Type)
		assert.Equal(t, "Design", updated.Name)
		assert.Equal(t, otherCycle.Id, *updated.ParentId)
	})

	t.Run("should update activity complexity", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		_, phase, activity := createTree(t)

		// when
		updated, err := service.Update(adminCtx, Node{Id: activity.Id, Name: activity.Name, ParentId: &phase.Id, Complexity: complexity("3")})

		// then
		require.NoError(t, err)
		assert.Equal(t, "3.0000", updated.Complexity.Decimal.StringFixed(4))
	})

	t.Run("should refuse type change", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		cycle, _, _ := createTree(t)

		// when
		_, err := service.Update(adminCtx, Node{Id: cycle.Id, Name: "x", Type: Phase})

		// then
		assert.ErrorIs(t, err, ErrTypeChange)
	})

	t.Run("should refuse moving a phase under an activity", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		_, phase, activity := createTree(t)

		// when
		_, err := service.Update(adminCtx, Node{Id: phase.Id, Name: "p", ParentId: &activity.Id})

		// then
		assert.ErrorIs(t, err, apperror.ErrInvalidHierarchy)
	})

	t.Run("should return not found", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		_, err := service.Update(adminCtx, Node{Id: 99, Name: "x"})

		assert.ErrorIs(t, err, ErrNodeNotFound)
	})
}

func TestServiceImpl_Delete(t *testing.T) {
	t.Run("should refuse deleting node with children", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		cycle, phase, _ := createTree(t)

		// when
		errCycle := service.Delete(adminCtx, cycle.Id)
		errPhase := service.Delete(adminCtx, phase.Id)

		// then
		assert.ErrorIs(t, errCycle, apperror.ErrResourceInUse)
		assert.ErrorIs(t, errPhase, ErrNodeHasChildren)
	})

	t.Run("should delete leaf", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		_, phase, activity := createTree(t)

		// when
		err := service.Delete(adminCtx, activity.Id)

		// then
		require.NoError(t, err)
		_, err = service.Get(memberCtx, activity.Id)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		assert.NoError(t, service.Delete(adminCtx, phase.Id))
	})

	t.Run("should require administrator", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		_, _, activity := createTree(t)

		err := service.Delete(memberCtx, activity.Id)

		assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
	})
}

func TestServiceImpl_List(t *testing.T) {
	t.Run("should filter by type and paginate", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		_, phase, first := createTree(t)
		second, err := service.Create(adminCtx, Node{Name: "b", Type: Activity, ParentId: &phase.Id, Complexity: complexity("1")})
		require.NoError(t, err)

		// when
		all, err := service.List(memberCtx, Filter{Type: Activity}, 0, 0)
		require.NoError(t, err)
		secondPage, err := service.List(memberCtx, Filter{Type: Activity}, 1, 1)
		require.NoError(t, err)

		// then
		assert.Len(t, all, 2)
		assert.Equal(t, first.Id, all[0].Id)
		assert.Len(t, secondPage, 1)
		assert.Equal(t, second.Id, secondPage[0].Id)
	})

	t.Run("should reject unknown type and bad limit", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()

		_, errType := service.List(memberCtx, Filter{Type: "TASK"}, 0, 10)
		_, errLimit := service.List(memberCtx, Filter{}, 0, 5000)

		assert.ErrorIs(t, errType, apperror.ErrValidation)
		assert.ErrorIs(t, errLimit, apperror.ErrValidation)
	})
}

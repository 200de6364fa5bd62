package service

import (
	"context"
	"errors"
	"testing"

	"gateway/internal/model"
	"gateway/internal/repository"
	repoMocks "gateway/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
)

func TestSideEffectService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		limit      int
		offset     int
		wantQuery  repository.PageQuery
		repoResult *repository.PageResult[model.SideEffect]
		repoErr    error
		wantErr    bool
	}{
		{
			name:       "defaults",
			limit:      0,
			offset:     -3,
			wantQuery:  repository.PageQuery{Limit: 10, Offset: 0},
			repoResult: &repository.PageResult[model.SideEffect]{Items: []model.SideEffect{{ID: "a"}}, Total: 1},
		},
		{
			name:       "capped",
			limit:      1000,
			offset:     20,
			wantQuery:  repository.PageQuery{Limit: 100, Offset: 20},
			repoResult: &repository.PageResult[model.SideEffect]{Items: []model.SideEffect{}, Total: 0},
		},
		{
			name:      "repository error",
			limit:     5,
			wantQuery: repository.PageQuery{Limit: 5},
			repoErr:   errors.New("db down"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockSideEffectRepository)
			if tt.repoErr != nil {
				mRepo.On("List", ctx, tt.wantQuery).Return(nil, tt.repoErr)
			} else {
				mRepo.On("List", ctx, tt.wantQuery).Return(tt.repoResult, nil)
			}

			res, err := NewSideEffectService(mRepo).List(ctx, tt.limit, tt.offset)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, res)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.repoResult.Total, res.Total)
				assert.Equal(t, tt.repoResult.Items, res.Items)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestSideEffectService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mRepo := new(repoMocks.MockSideEffectRepository)
		mRepo.On("FindByID", ctx, "se-1").Return(&model.SideEffect{ID: "se-1"}, nil)

		e, err := NewSideEffectService(mRepo).Get(ctx, "se-1")
		assert.NoError(t, err)
		assert.Equal(t, "se-1", e.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockSideEffectRepository)
		mRepo.On("FindByID", ctx, "nope").Return(nil, repository.ErrNotFound)

		_, err := NewSideEffectService(mRepo).Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := NewSideEffectService(new(repoMocks.MockSideEffectRepository)).Get(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

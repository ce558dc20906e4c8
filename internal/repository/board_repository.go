package repository

import (
	"context"
	"errors"

	"pulseflow/internal/model"
	"pulseflow/internal/realtime"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const boardsTable = "boards"

type BoardRepository struct {
	db      *gorm.DB
	changes realtime.Publisher
}

func NewBoardRepository(db *gorm.DB, changes realtime.Publisher) *BoardRepository {
	if changes == nil {
		changes = realtime.Discard
	}
	return &BoardRepository{db: db, changes: changes}
}

func (r *BoardRepository) Create(ctx context.Context, board *model.Board) error {
	if err := r.db.WithContext(ctx).Create(board).Error; err != nil {
		return err
	}
	r.changes.Publish(ctx, boardsTable, realtime.Insert, board)
	return nil
}

// ListForUser returns the boards owned by userID or shared with it. The
// order is unspecified by contract; creation order is used.
func (r *BoardRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Board, error) {
	var boards []model.Board
	shared := r.db.Model(&model.BoardShare{}).Select("board_id").Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Or("id IN (?)", shared).
		Order("created_at").
		Find(&boards).Error
	return boards, err
}

func (r *BoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error) {
	var board model.Board
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&board).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, err
	}
	return &board, nil
}

// Update applies patch in one transaction. A renamed column (same id, new
// name) carries its tasks along; dropping a column that still holds tasks
// fails with ErrColumnInUse so no task status is left dangling.
func (r *BoardRepository) Update(ctx context.Context, id uuid.UUID, patch model.BoardPatch) (*model.Board, error) {
	var board model.Board
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&board).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBoardNotFound
			}
			return err
		}

		if patch.Name != nil {
			board.Name = *patch.Name
		}
		if patch.Description != nil {
			board.Description = *patch.Description
		}
		if patch.Columns != nil {
			if err := reconcileColumns(tx, board.ID, board.ColumnList(), patch.Columns); err != nil {
				return err
			}
			board.Columns = datatypes.NewJSONType(patch.Columns)
		}
		return tx.Save(&board).Error
	})
	if err != nil {
		return nil, err
	}
	r.changes.Publish(ctx, boardsTable, realtime.Update, &board)
	return &board, nil
}

func reconcileColumns(tx *gorm.DB, boardID uuid.UUID, before, after []model.Column) error {
	next := make(map[uuid.UUID]string, len(after))
	names := make(map[string]bool, len(after))
	for _, c := range after {
		next[c.ID] = c.Name
		names[c.Name] = true
	}

	type rename struct{ from, tmp, to string }
	var renames []rename
	for _, c := range before {
		newName, kept := next[c.ID]
		switch {
		case kept && newName != c.Name:
			renames = append(renames, rename{from: c.Name, tmp: "~renaming~" + c.ID.String(), to: newName})
		case !kept && !names[c.Name]:
			var count int64
			if err := tx.Model(&model.Task{}).
				Where("board_id = ? AND status = ?", boardID, c.Name).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return ErrColumnInUse
			}
		}
	}

	// Two passes so that swapped names do not merge columns.
	for _, rn := range renames {
		if err := renameStatus(tx, boardID, rn.from, rn.tmp); err != nil {
			return err
		}
	}
	for _, rn := range renames {
		if err := renameStatus(tx, boardID, rn.tmp, rn.to); err != nil {
			return err
		}
	}
	return nil
}

func renameStatus(tx *gorm.DB, boardID uuid.UUID, from, to string) error {
	return tx.Model(&model.Task{}).
		Where("board_id = ? AND status = ?", boardID, from).
		Update("status", to).Error
}

// Delete removes the board. Tasks and shares go with it (ON DELETE CASCADE).
func (r *BoardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var board model.Board
	result := r.db.WithContext(ctx).Clauses(clause.Returning{}).Where("id = ?", id).Delete(&board)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	r.changes.Publish(ctx, boardsTable, realtime.Delete, &board)
	return nil
}

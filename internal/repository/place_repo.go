package repository

import (
	"context"

	"github.com/nvelasco/ClubBookBack/internal/models"
)

type CreatePlaceInput struct {
	ClubID  int64
	Name    string
	Type    string
	Address *string
	City    *string
}

type UpdatePlaceInput struct {
	Name     *string
	Type     *string
	Address  *string
	City     *string
	IsDelete *bool
}

type PlaceRepository struct {
	db DBTX
}

func NewPlaceRepository(db DBTX) *PlaceRepository {
	return &PlaceRepository{db: db}
}

func (r *PlaceRepository) Create(ctx context.Context, input CreatePlaceInput) (*models.Place, error) {
	query := `
		INSERT INTO places (user_id, name, type, address, city)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, name, type, address, city, is_delete, created_at, updated_at
	`

	var place models.Place
	err := r.db.QueryRow(ctx, query, input.ClubID, input.Name, input.Type, input.Address, input.City).Scan(
		&place.ID,
		&place.ClubID,
		&place.Name,
		&place.Type,
		&place.Address,
		&place.City,
		&place.IsDelete,
		&place.CreatedAt,
		&place.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &place, nil
}

func (r *PlaceRepository) GetByID(ctx context.Context, placeID int64) (*models.Place, error) {
	query := `
		SELECT id, user_id, name, type, address, city, is_delete, created_at, updated_at
		FROM places
		WHERE id = $1
	`

	var place models.Place
	err := r.db.QueryRow(ctx, query, placeID).Scan(
		&place.ID,
		&place.ClubID,
		&place.Name,
		&place.Type,
		&place.Address,
		&place.City,
		&place.IsDelete,
		&place.CreatedAt,
		&place.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &place, nil
}

func (r *PlaceRepository) Update(ctx context.Context, placeID int64, input UpdatePlaceInput) (*models.Place, error) {
	query := `
		UPDATE places
		SET
			name = COALESCE($2, name),
			type = COALESCE($3, type),
			address = COALESCE($4, address),
			city = COALESCE($5, city),
			is_delete = COALESCE($6, is_delete),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, name, type, address, city, is_delete, created_at, updated_at
	`

	var place models.Place
	err := r.db.QueryRow(
		ctx,
		query,
		placeID,
		input.Name,
		input.Type,
		input.Address,
		input.City,
		input.IsDelete,
	).Scan(
		&place.ID,
		&place.ClubID,
		&place.Name,
		&place.Type,
		&place.Address,
		&place.City,
		&place.IsDelete,
		&place.CreatedAt,
		&place.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &place, nil
}

package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/afadil/wealthfolio-sub004/internal/holdings"
)

// TaxonomyRepository persists taxonomies, their categories, and the
// asset-to-category assignments holdings rollups read.
type TaxonomyRepository struct {
	*BaseRepository
}

// NewTaxonomyRepository builds a repository backed by db.
func NewTaxonomyRepository(db *sql.DB, log zerolog.Logger) *TaxonomyRepository {
	return &TaxonomyRepository{BaseRepository: NewBase(db, log.With().Str("repo", "taxonomy").Logger())}
}

// TaxonomiesWithCategories returns every taxonomy along with its categories.
func (r *TaxonomyRepository) TaxonomiesWithCategories(ctx context.Context) ([]holdings.Taxonomy, error) {
	taxRows, err := r.DB().QueryContext(ctx, `SELECT id, name FROM taxonomies`)
	if err != nil {
		return nil, fmt.Errorf("query taxonomies: %w", err)
	}
	var out []holdings.Taxonomy
	for taxRows.Next() {
		var t holdings.Taxonomy
		if err := taxRows.Scan(&t.ID, &t.Name); err != nil {
			taxRows.Close()
			return nil, fmt.Errorf("scan taxonomy: %w", err)
		}
		out = append(out, t)
	}
	if err := taxRows.Err(); err != nil {
		taxRows.Close()
		return nil, err
	}
	taxRows.Close()

	for i := range out {
		cats, err := r.categoriesFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Categories = cats
	}
	return out, nil
}

func (r *TaxonomyRepository) categoriesFor(ctx context.Context, taxonomyID string) ([]holdings.Category, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, parent_id, name FROM categories WHERE taxonomy_id = ?`, taxonomyID)
	if err != nil {
		return nil, fmt.Errorf("query categories for %s: %w", taxonomyID, err)
	}
	defer rows.Close()

	var out []holdings.Category
	for rows.Next() {
		var c holdings.Category
		var parentID sql.NullString
		if err := rows.Scan(&c.ID, &parentID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if parentID.Valid {
			c.ParentID = parentID.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AssignmentsForAsset returns every taxonomy assignment for one asset.
func (r *TaxonomyRepository) AssignmentsForAsset(ctx context.Context, assetID string) ([]holdings.Assignment, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT c.taxonomy_id, a.category_id, a.weight_bp
		FROM asset_taxonomy_assignments a
		INNER JOIN categories c ON c.id = a.category_id
		WHERE a.asset_id = ?`, assetID)
	if err != nil {
		return nil, fmt.Errorf("query assignments for %s: %w", assetID, err)
	}
	defer rows.Close()

	var out []holdings.Assignment
	for rows.Next() {
		a := holdings.Assignment{AssetID: assetID}
		if err := rows.Scan(&a.TaxonomyID, &a.CategoryID, &a.WeightBP); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertAssignment inserts or replaces one (asset, category) weighting.
func (r *TaxonomyRepository) UpsertAssignment(ctx context.Context, a holdings.Assignment) error {
	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO asset_taxonomy_assignments (asset_id, category_id, weight_bp)
		VALUES (?, ?, ?)
		ON CONFLICT(asset_id, category_id) DO UPDATE SET weight_bp = excluded.weight_bp`,
		a.AssetID, a.CategoryID, a.WeightBP,
	)
	if err != nil {
		return fmt.Errorf("upsert assignment %s/%s: %w", a.AssetID, a.CategoryID, err)
	}
	return nil
}

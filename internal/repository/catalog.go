package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-service/internal/model"
	"clinic-service/internal/scope"
	"clinic-service/prometheus"
)

// MealItemInput pins one ingredient quantity inside a meal payload
type MealItemInput struct {
	IngredientID uint    `json:"ingredient"`
	QuantityG    float64 `json:"quantity_grams"`
}

// CreateMealInput is the payload for creating a recipe. The creator is
// always the calling professional.
type CreateMealInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image"`
	Items       []MealItemInput `json:"meal_items"`
}

// UpdateMealInput carries a partial update; nil fields are left unchanged.
// A non-nil Items replaces the whole item list.
type UpdateMealInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"image"`
	Items       *[]MealItemInput `json:"meal_items"`
}

// ListIngredients returns the shared ingredient catalog, filtered by an
// optional substring search over the name
func (r *Repository) ListIngredients(ctx context.Context, search string) ([]model.Ingredient, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	q := searchFilter(r.db.WithContext(ctx).Model(&model.Ingredient{}), search, "name")

	var ingredients []model.Ingredient
	if err := q.Order("name").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

// GetIngredient returns one catalog entry
func (r *Repository) GetIngredient(ctx context.Context, id uint) (*model.Ingredient, error) {
	defer prometheus.TrackDBOperation("query")(time.Now())
	var ingredient model.Ingredient
	if err := r.db.WithContext(ctx).First(&ingredient, id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &ingredient, nil
}

// ListMeals returns the recipe catalog. Recipes are shared reading across
// organizations; system recipes have no creator.
func (r *Repository) ListMeals(ctx context.Context, p scope.Principal, search string) ([]model.Meal, error) {
	access, err := scope.Resolve(p, scope.ResourceMeal)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	q := access.Apply(r.db.WithContext(ctx).Model(&model.Meal{}))
	q = searchFilter(q, search, "name")

	var meals []model.Meal
	err = q.Preload("Items.Ingredient").Order("created_at DESC").Find(&meals).Error
	if err != nil {
		return nil, err
	}
	return meals, nil
}

// GetMeal returns one recipe with its items
func (r *Repository) GetMeal(ctx context.Context, p scope.Principal, id uint) (*model.Meal, error) {
	access, err := scope.Resolve(p, scope.ResourceMeal)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var meal model.Meal
	err = access.Apply(r.db.WithContext(ctx)).
		Preload("Items.Ingredient").
		Where("id = ?", id).
		First(&meal).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &meal, nil
}

// CreateMeal creates a recipe authored by the calling professional
func (r *Repository) CreateMeal(ctx context.Context, p scope.Principal, in CreateMealInput) (*model.Meal, error) {
	access, err := scope.Resolve(p, scope.ResourceMeal)
	if err != nil {
		return nil, err
	}
	if !access.CanWrite() {
		return nil, scope.ErrPermissionDenied
	}
	if in.Name == "" {
		return nil, invalid("name", "is required")
	}

	creatorID := p.ID
	meal := model.Meal{
		CreatedByID: &creatorID,
		Name:        in.Name,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&meal).Error; err != nil {
			return err
		}
		return replaceMealItems(tx, &meal, in.Items)
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("meal created",
		zap.Uint("meal_id", meal.ID),
		zap.String("created_by", creatorID.String()))
	return r.GetMeal(ctx, p, meal.ID)
}

// UpdateMeal applies a partial update to a recipe. Only the author (or an
// admin) may change it; everyone can still read it.
func (r *Repository) UpdateMeal(ctx context.Context, p scope.Principal, id uint, in UpdateMealInput) (*model.Meal, error) {
	access, err := scope.Resolve(p, scope.ResourceMeal)
	if err != nil {
		return nil, err
	}

	meal, err := r.GetMeal(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := checkMealWrite(access, p, meal); err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, invalid("name", "is required")
		}
		meal.Name = *in.Name
	}
	if in.Description != nil {
		meal.Description = *in.Description
	}
	if in.ImageURL != nil {
		meal.ImageURL = *in.ImageURL
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(meal).Error; err != nil {
			return err
		}
		if in.Items != nil {
			return replaceMealItems(tx, meal, *in.Items)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetMeal(ctx, p, meal.ID)
}

// DeleteMeal removes a recipe the caller authored
func (r *Repository) DeleteMeal(ctx context.Context, p scope.Principal, id uint) error {
	access, err := scope.Resolve(p, scope.ResourceMeal)
	if err != nil {
		return err
	}

	meal, err := r.GetMeal(ctx, p, id)
	if err != nil {
		return err
	}
	if err := checkMealWrite(access, p, meal); err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meal_id = ?", meal.ID).Delete(&model.MealItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(meal).Error
	})
}

// checkMealWrite enforces the author-only write rule of the recipe catalog
func checkMealWrite(access scope.Access, p scope.Principal, meal *model.Meal) error {
	if !access.CanWrite() {
		return scope.ErrPermissionDenied
	}
	if access.All && !access.OwnerWrite {
		return nil // admin
	}
	if meal.CreatedByID == nil || *meal.CreatedByID != p.ID {
		return scope.ErrPermissionDenied
	}
	return nil
}

// replaceMealItems swaps the full item list of a meal
func replaceMealItems(tx *gorm.DB, meal *model.Meal, items []MealItemInput) error {
	if err := tx.Where("meal_id = ?", meal.ID).Delete(&model.MealItem{}).Error; err != nil {
		return err
	}
	for _, item := range items {
		if item.QuantityG <= 0 {
			return invalid("quantity_grams", "must be positive")
		}
		var ingredient model.Ingredient
		if err := tx.First(&ingredient, item.IngredientID).Error; err != nil {
			return invalid("ingredient", "no such ingredient")
		}
		row := model.MealItem{
			MealID:       meal.ID,
			IngredientID: item.IngredientID,
			QuantityG:    item.QuantityG,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

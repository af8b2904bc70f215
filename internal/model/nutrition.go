package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IngredientCategory groups ingredients in the catalog
type IngredientCategory string

const (
	CategoryProtein   IngredientCategory = "PROTEIN"
	CategoryCarb      IngredientCategory = "CARB"
	CategoryFat       IngredientCategory = "FAT"
	CategoryVegetable IngredientCategory = "VEGETABLE"
	CategoryFruit     IngredientCategory = "FRUIT"
	CategoryDairy     IngredientCategory = "DAIRY"
	CategoryOther     IngredientCategory = "OTHER"
)

// Ingredient is a raw material with macros per 100g. The catalog is
// read-only over the API; rows are maintained out of band.
type Ingredient struct {
	ID            uint               `json:"id" gorm:"primaryKey"`
	Name          string             `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Category      IngredientCategory `json:"category" gorm:"type:varchar(20);not null;default:'OTHER'"`
	Calories      float64            `json:"calories" gorm:"type:decimal(6,2);not null"`
	Proteins      float64            `json:"proteins" gorm:"type:decimal(5,2);not null"`
	Carbohydrates float64            `json:"carbohydrates" gorm:"type:decimal(5,2);not null"`
	Fats          float64            `json:"fats" gorm:"type:decimal(5,2);not null"`
	Fiber         float64            `json:"fiber" gorm:"type:decimal(5,2);default:0"`
}

// Meal is a recipe assembled from ingredients with exact quantities.
// A nil CreatedByID marks a system recipe visible to everyone.
type Meal struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	CreatedByID *uuid.UUID     `json:"created_by" gorm:"type:uuid;index"`
	Name        string         `json:"name" gorm:"type:varchar(150);not null"`
	Description string         `json:"description" gorm:"type:text"`
	ImageURL    string         `json:"image,omitempty" gorm:"type:varchar(500)"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Items []MealItem `json:"meal_items" gorm:"foreignKey:MealID"`
}

// TotalCalories sums the calorie contribution of every item, rounded to
// two decimals
func (m *Meal) TotalCalories() float64 {
	var total float64
	for _, item := range m.Items {
		total += item.CaloriesContribution()
	}
	return math.Round(total*100) / 100
}

// MealItem pins an exact quantity of one ingredient inside a meal,
// e.g. 150g of chicken
type MealItem struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	MealID       uint    `json:"meal_id" gorm:"index;not null"`
	IngredientID uint    `json:"ingredient" gorm:"not null"`
	QuantityG    float64 `json:"quantity_grams" gorm:"type:decimal(6,2);not null"`

	Ingredient Ingredient `json:"ingredient_details" gorm:"foreignKey:IngredientID"`
}

// CaloriesContribution converts the per-100g base value to this quantity
func (i *MealItem) CaloriesContribution() float64 {
	return (i.Ingredient.Calories * i.QuantityG) / 100
}

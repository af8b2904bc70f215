package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MealTime is the moment of the day an allocation is eaten at
type MealTime string

const (
	MealTimeBreakfast      MealTime = "BREAKFAST"
	MealTimeMorningSnack   MealTime = "MORNING_SNACK"
	MealTimeLunch          MealTime = "LUNCH"
	MealTimeAfternoonSnack MealTime = "AFTERNOON_SNACK"
	MealTimeDinner         MealTime = "DINNER"
)

// Valid reports whether the meal time is one of the known slots
func (t MealTime) Valid() bool {
	switch t {
	case MealTimeBreakfast, MealTimeMorningSnack, MealTimeLunch,
		MealTimeAfternoonSnack, MealTimeDinner:
		return true
	}
	return false
}

// DietPlan is the weekly nutrition calendar a professional designs for one
// patient. It is mutable only by the professional who created it or an admin.
type DietPlan struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	PatientID      uuid.UUID      `json:"patient" gorm:"type:uuid;index;not null"`
	ProfessionalID uuid.UUID      `json:"professional" gorm:"type:uuid;index;not null"`
	Name           string         `json:"name" gorm:"type:varchar(150);not null"`
	Description    string         `json:"description" gorm:"type:text"`
	Active         bool           `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Allocations []PlanAllocation `json:"allocations" gorm:"foreignKey:PlanID"`
}

// BeforeCreate hook assigns a UUID primary key if one was not provided
func (p *DietPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PlanAllocation schedules one meal at one slot of the week,
// e.g. Monday BREAKFAST -> oatmeal bowl
type PlanAllocation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PlanID    uuid.UUID `json:"plan_id" gorm:"type:uuid;index;not null"`
	DayOfWeek int       `json:"day_of_week" gorm:"not null"` // 1 = Monday .. 7 = Sunday
	MealTime  MealTime  `json:"meal_time" gorm:"type:varchar(20);not null"`
	MealID    uint      `json:"meal" gorm:"not null"`
	Notes     string    `json:"notes" gorm:"type:varchar(200)"`

	Meal Meal `json:"meal_details" gorm:"foreignKey:MealID"`
}

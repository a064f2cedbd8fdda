package schema

import "gorm.io/gorm"

type Game struct {
	gorm.Model
	Name        string `gorm:"size:255;not null"`
	Description string
	Reviews     []Review
}

package schema

import "gorm.io/gorm"

// Review belongs to exactly one Game. Rating is 1 to 5 by convention of the
// application writing the rows; nothing here enforces it.
type Review struct {
	gorm.Model
	GameID  uint `gorm:"index"`
	Author  string
	Content string
	Rating  int
	Game    *Game `gorm:"foreignKey:GameID"`
}

package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Place{},
}

////////////////////////
// PLACES
////////////////////////

// Place is the stored form of a user place.
// X/Y/Z hold the unit direction; Location is the same point in EPSG:3857 for map queries.
type Place struct {
	ID              string         `json:"placeId" gorm:"primaryKey;size:64"`
	CreatedAt       time.Time      `json:"createdAt" gorm:"index:idx_place_created_at"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	Name            string         `json:"realPlaceName" gorm:"size:200"`
	MemoryText      string         `json:"memoryText" gorm:"size:2000"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	X               float64        `json:"x"`
	Y               float64        `json:"y"`
	Z               float64        `json:"z"`
	Location        geom.Point     `json:"location"`
	IntimacyScore   int            `json:"intimacyScore" gorm:"index:idx_place_intimacy"`
	EmotionKeywords datatypes.JSON `json:"emotionKeywords"`
}

func (*Place) TableName() string {
	return "places"
}

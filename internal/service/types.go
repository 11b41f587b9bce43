// Package service contains the dataset logic behind the collaborator
// endpoints: population cells, transit stops, point classification and the
// static overlays.
package service

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoDataset is returned when a dataset file was not loaded.
var ErrNoDataset = errors.New("dataset not loaded")

// PopulationCell is one hectare of the population statistics.
type PopulationCell struct {
	Lat        float64 `json:"lat" doc:"Latitude (WGS84)" example:"47.3769"`
	Lng        float64 `json:"lng" doc:"Longitude (WGS84)" example:"8.5417"`
	Intensity  float64 `json:"intensity" doc:"Normalised heat intensity, 0.5 to 40" example:"5"`
	Population float64 `json:"pop_actual" doc:"Residents in the cell" example:"40"`
}

// MaxIntensity caps the heat intensity of a single cell.
const MaxIntensity = 40

// Intensity maps a cell population to a heat intensity.
func Intensity(pop float64) float64 {
	return math.Min(math.Pow(pop/20, 2)+0.5, MaxIntensity)
}

// DatasetFile is a file in the data directory's sources folder.
type DatasetFile struct {
	Name     string `json:"name" doc:"File name" example:"population.csv"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"CSV or GeoJSON" example:"CSV"`
	Role     string `json:"role,omitempty" doc:"population, stops or agency when the file is a configured dataset" example:"population"`
}

// DatasetStatus summarises what was loaded.
type DatasetStatus struct {
	PopulationCells int    `json:"populationCells" doc:"Rows in the population table"`
	Stops           int    `json:"stops" doc:"Loaded transit stops"`
	PopulationError string `json:"populationError,omitempty" doc:"Why population data is missing"`
	StopsError      string `json:"stopsError,omitempty" doc:"Why stop data is missing"`
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

package models

// PlaceEntry is one row of the cafe_place_ids side file.
type PlaceEntry struct {
	Name          string `csv:"name" json:"name"`
	Address       string `csv:"address" json:"address"`
	PlaceID       string `csv:"place_id" json:"place_id"`
	GoogleName    string `csv:"google_name" json:"google_name"`
	GoogleAddress string `csv:"google_address" json:"google_address"`
}

// PlaceCandidate is a find-place result.
type PlaceCandidate struct {
	PlaceID          string `json:"place_id"`
	Name             string `json:"name"`
	FormattedAddress string `json:"formatted_address"`
}

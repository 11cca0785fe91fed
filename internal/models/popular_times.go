package models

const (
	DaysPerWeek = 7
	HoursPerDay = 24
	MinBusyness = 0
	MaxBusyness = 100
)

// Weekdays in the order the populartimes record lists them.
var Weekdays = [DaysPerWeek]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DayPopularity holds the hourly busyness of one weekday.
type DayPopularity struct {
	Name string `json:"name"`
	Data []int  `json:"data"`
}

// PopularTimes is the busyness payload stored in cafes.popular_times.
type PopularTimes struct {
	PlaceID     string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	Coordinates *Coordinates    `json:"coordinates,omitempty"`
	Rating      *float64        `json:"rating,omitempty"`
	RatingCount *int            `json:"rating_n,omitempty"`
	Days        []DayPopularity `json:"populartimes"`
	IsMockData  bool            `json:"is_mock_data,omitempty"`
}

// Complete reports whether the payload has 7 weekdays of 24 in-range hours each.
func (p *PopularTimes) Complete() bool {
	if p == nil || len(p.Days) != DaysPerWeek {
		return false
	}
	for _, day := range p.Days {
		if len(day.Data) != HoursPerDay {
			return false
		}
		for _, v := range day.Data {
			if v < MinBusyness || v > MaxBusyness {
				return false
			}
		}
	}
	return true
}

// Normalize pads or truncates the payload to 7x24 and clamps values to [0,100].
// Days are matched by name when the provider sends them, by position otherwise.
func (p *PopularTimes) Normalize() {
	byName := make(map[string][]int, len(p.Days))
	for _, day := range p.Days {
		byName[day.Name] = day.Data
	}

	days := make([]DayPopularity, DaysPerWeek)
	for i, name := range Weekdays {
		src, ok := byName[name]
		if !ok && i < len(p.Days) && p.Days[i].Name == "" {
			src = p.Days[i].Data
		}
		hours := make([]int, HoursPerDay)
		for h := 0; h < HoursPerDay && h < len(src); h++ {
			hours[h] = clamp(src[h])
		}
		days[i] = DayPopularity{Name: name, Data: hours}
	}
	p.Days = days
}

func clamp(v int) int {
	if v < MinBusyness {
		return MinBusyness
	}
	if v > MaxBusyness {
		return MaxBusyness
	}
	return v
}

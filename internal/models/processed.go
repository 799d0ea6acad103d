package models

// Seasons of the monsoon calendar
const (
	SeasonSouthwest = "Southwest Monsoon"
	SeasonNortheast = "Northeast Monsoon"
	SeasonInter     = "Inter Monsoon"
)

// RegionOther is assigned to countries missing from the region table
const RegionOther = "Other"

// ProcessedRecord is one cleaned (year, month, country) row with its
// engineered features. YoYGrowth is nil when no prior-year value exists.
type ProcessedRecord struct {
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	Country      string   `json:"country"`
	Arrivals     float64  `json:"arrivals"`
	Source       string   `json:"source"`
	Region       string   `json:"region"`
	Season       string   `json:"season"`
	Quarter      int      `json:"quarter"`
	MonthSin     float64  `json:"month_sin"`
	MonthCos     float64  `json:"month_cos"`
	HolidayCount int      `json:"holiday_count"`
	Lag1         float64  `json:"lag_1"`
	Lag12        float64  `json:"lag_12"`
	RollingAvg3m float64  `json:"rolling_avg_3m"`
	RollingStd3m float64  `json:"rolling_std_3m"`
	MoMGrowth    float64  `json:"mom_growth"`
	YoYGrowth    *float64 `json:"yoy_growth,omitempty"`
	HasYoY       bool     `json:"has_yoy"`
	Imputed      bool     `json:"imputed"`
	Clipped      bool     `json:"clipped"`
}

// Period returns the record's month
func (r *ProcessedRecord) Period() Period {
	return Period{Year: r.Year, Month: r.Month}
}

// ProcessedColumns is the column order of the processed dataset file
var ProcessedColumns = []string{
	"year", "month", "country", "arrivals", "source",
	"region", "season", "quarter", "month_sin", "month_cos", "holiday_count",
	"lag_1", "lag_12", "rolling_avg_3m", "rolling_std_3m",
	"mom_growth", "yoy_growth", "has_yoy", "imputed", "clipped",
}

// RawColumns is the column order of the raw arrivals file
var RawColumns = []string{"year", "month", "country", "arrivals", "source"}

// PreprocessSummary reports what a preprocessing run did
type PreprocessSummary struct {
	RawRows        int            `json:"raw_rows"`
	ProcessedRows  int            `json:"processed_rows"`
	Dropped        map[string]int `json:"dropped"`
	Duplicates     int            `json:"duplicates"`
	Imputed        int            `json:"imputed"`
	Reindexed      int            `json:"reindexed"`
	Clipped        int            `json:"clipped"`
	RawRange       PeriodRange    `json:"raw_range"`
	ProcessedRange PeriodRange    `json:"processed_range"`
	Countries      int            `json:"countries"`
}

// TotalDropped sums the dropped counters
func (s *PreprocessSummary) TotalDropped() int {
	n := 0
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

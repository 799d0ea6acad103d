package config

// DefaultHolidays returns the public holiday calendar used for the
// holiday_count feature. Dates are YYYY-MM-DD.
func DefaultHolidays() []string {
	return []string{
		"2020-01-01", "2020-01-14", "2020-02-04", "2020-04-10", "2020-04-13",
		"2020-05-01", "2020-05-07", "2020-05-25", "2020-12-25",
		"2021-01-01", "2021-01-14", "2021-02-04", "2021-04-13", "2021-04-14",
		"2021-05-01", "2021-05-26", "2021-12-25",
		"2022-01-01", "2022-01-14", "2022-02-04", "2022-04-13", "2022-04-14",
		"2022-05-01", "2022-05-16", "2022-12-25",
		"2023-01-01", "2023-01-14", "2023-02-04", "2023-04-13", "2023-04-14",
		"2023-05-01", "2023-05-05", "2023-12-25",
		"2024-01-01", "2024-01-14", "2024-02-04", "2024-04-13", "2024-04-14",
		"2024-05-01", "2024-05-23", "2024-12-25",
	}
}

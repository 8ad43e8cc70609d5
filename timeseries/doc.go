// Package timeseries provides time series data structures and utilities.
//
// This package includes the Series type for regularly spaced data anchored
// on a calendar, the Period type for year/sub-period labels, and loaders
// for long-format panel tables (one row per country and period).
//
// # Creating a Series
//
// Create a quarterly series starting in 1995 Q1:
//
//	s, err := timeseries.NewWithStart(values, timeseries.Period{Year: 1995, Sub: 1}, 4)
//	fmt.Println(s.End()) // last period, e.g. 2019-Q4
//
// When upstream trimming has dropped the period labels, anchor the values
// from the canonical end year of the data set:
//
//	s, err := timeseries.BuildSeries(values, 2020, 4)
//
// # Loading Panels
//
// Load one series per country from a CSV or XLSX table:
//
//	panel, err := timeseries.LoadPanelCSV("gdp.csv", nil)
//	for _, id := range panel.IDs() {
//	    s, _ := panel.Get(id)
//	    fmt.Println(id, s.Start, s.Len())
//	}
//
//	panel, err := timeseries.LoadPanelXLSX("gdp.xlsx", "", &timeseries.PanelOptions{
//	    IDColumn:    "LOCATION",
//	    DateColumn:  "TIME",
//	    ValueColumn: "Value",
//	    Frequency:   4,
//	})
//
// # Transformations
//
//	diff := series.Diff()            // First difference
//	sdiff := series.SeasonalDiff(4)  // Seasonal difference
//	subset := series.Slice(10, 50)   // Sub-range, start period adjusted
//
// # Export
//
//	err := timeseries.WriteSeriesCSV(w, growth, forecast)
package timeseries

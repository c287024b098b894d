package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/i474232898/weather-cli/internal/weather"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderReport(w io.Writer, r weather.Report) {
	fmt.Fprintf(w, "%s (%s, %s)\n", r.Location, r.Kind, r.Provider.Name())

	t := newTable(w)
	if r.Kind == weather.KindHistorical {
		fmt.Fprintf(t, "  Date:\t%s\n", weather.FormatDate(r.Timestamp))
	} else {
		fmt.Fprintf(t, "  Observed:\t%s\n", r.Timestamp.Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(t, "  Temperature:\t%.1f °C\n", r.TemperatureC)
	if r.Description != "" {
		fmt.Fprintf(t, "  Conditions:\t%s (%s)\n", r.Description, r.Condition)
	} else {
		fmt.Fprintf(t, "  Conditions:\t%s\n", r.Condition)
	}
	if h, ok := r.Humidity(); ok {
		fmt.Fprintf(t, "  Humidity:\t%.0f%%\n", h)
	} else {
		fmt.Fprintf(t, "  Humidity:\tn/a\n")
	}
	fmt.Fprintf(t, "  Wind:\t%.1f m/s\n", r.WindSpeedMS)
	_ = t.Flush()
}

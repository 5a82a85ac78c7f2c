package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dunamismax/logocrunch/internal/domain"
	"github.com/dunamismax/logocrunch/internal/pipeline"
	"github.com/dunamismax/logocrunch/internal/webhook"
)

var reportHeaders = []string{"Logo", "Result", "Dominant", "Score", "Clusters", "Keyed", "Size", "Bytes", "Output"}

var reportAligns = []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft}

func reportRows(report pipeline.Report) [][]string {
	rows := make([][]string, 0, len(report.Entries))
	for _, e := range report.Entries {
		id := strconv.FormatUint(uint64(e.JobID), 10)
		if e.Err != nil {
			rows = append(rows, []string{id, "failed", "", "", "", "", "", "", e.Err.Error()})
			continue
		}
		rows = append(rows, []string{
			id,
			e.Representation,
			e.Dominant.Color.Hex(),
			fmt.Sprintf("%d%%", int(e.Dominant.Score*100)),
			strconv.Itoa(e.Dominant.Clusters),
			yesNo(e.Keyed),
			fmt.Sprintf("%dx%d", e.Width, e.Height),
			strconv.Itoa(e.Output.Bytes),
			e.Output.Location,
		})
	}
	return rows
}

func renderReport(report pipeline.Report) string {
	vector, raster := countRepresentations(report)
	footer := []string{
		"",
		fmt.Sprintf("%d ok / %d failed", report.Succeeded, report.Failed),
		fmt.Sprintf("%d vector", vector),
		fmt.Sprintf("%d raster", raster),
		"", "", "", "",
		report.Elapsed.Round(time.Millisecond).String(),
	}
	return renderTable(reportHeaders, reportRows(report), reportAligns, footer)
}

func countRepresentations(report pipeline.Report) (vector, raster int) {
	for _, e := range report.Entries {
		if e.Err != nil {
			continue
		}
		switch e.Representation {
		case domain.RepresentationVector:
			vector++
		case domain.RepresentationRaster:
			raster++
		}
	}
	return vector, raster
}

func summarize(batchID string, report pipeline.Report, runErr error) webhook.BatchSummary {
	vector, raster := countRepresentations(report)
	summary := webhook.BatchSummary{
		BatchID:        batchID,
		Total:          len(report.Entries),
		Succeeded:      report.Succeeded,
		Failed:         report.Failed,
		Vector:         vector,
		Raster:         raster,
		ElapsedSeconds: report.Elapsed.Seconds(),
	}
	if runErr != nil {
		summary.FirstError = runErr.Error()
	}
	return summary
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// HTMLOptions configures report.html.
type HTMLOptions struct {
	Title string
	// AssetsHost serves the echarts scripts; empty uses the go-echarts default.
	AssetsHost string
}

func (o HTMLOptions) init(height string) opts.Initialization {
	in := opts.Initialization{PageTitle: o.Title, Width: "100%", Height: height}
	if o.AssetsHost != "" {
		in.AssetsHost = o.AssetsHost
	}
	return in
}

// WriteHTML renders a page with the cut and allowance areas and the outline
// perimeters of every piece.
func WriteHTML(w io.Writer, s *Summary, o HTMLOptions) error {
	if o.Title == "" {
		o.Title = "Pattern report"
	}
	names := make([]string, 0, len(s.Pieces))
	cut := make([]opts.BarData, 0, len(s.Pieces))
	allowance := make([]opts.BarData, 0, len(s.Pieces))
	perimeter := make([]opts.BarData, 0, len(s.Pieces))
	for _, p := range s.Pieces {
		names = append(names, p.Name)
		cut = append(cut, opts.BarData{Value: p.Area})
		allowance = append(allowance, opts.BarData{Value: p.AllowanceArea})
		perimeter = append(perimeter, opts.BarData{Value: p.Perimeter})
	}

	areas := charts.NewBar()
	areas.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("520px")),
		charts.WithTitleOpts(opts.Title{
			Title:    "Cut vs allowance area",
			Subtitle: fmt.Sprintf("pieces=%d total cut=%.0f mm² total with allowance=%.0f mm²", s.Totals.Pieces, s.Totals.Area, s.Totals.AllowanceArea),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mm²"}),
	)
	areas.SetXAxis(names).
		AddSeries("cut", cut).
		AddSeries("with allowance", allowance,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	perims := charts.NewBar()
	perims.SetGlobalOptions(
		charts.WithInitializationOpts(o.init("420px")),
		charts.WithTitleOpts(opts.Title{Title: "Outline perimeter", Subtitle: fmt.Sprintf("total=%.0f mm", s.Totals.Perimeter)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mm"}),
	)
	perims.SetXAxis(names).
		AddSeries("perimeter", perimeter,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.PageTitle = o.Title
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(areas, perims)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

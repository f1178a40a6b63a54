package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// HistoryData is the pre-formatted content of a merge history summary.
type HistoryData struct {
	Owner       string
	GeneratedAt string
	Rows        []HistoryRow
}

type HistoryRow struct {
	CreatedAt   string
	FileName    string
	FileSize    string
	SourceFiles string
	Settings    string
}

func (p *PDFProvider) GenerateHistory(ctx context.Context, data HistoryData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Merge history", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		col.New(4).Add(
			text.New(data.Owner, props.Text{Size: 9, Align: align.Right}),
			text.New("Generated "+data.GeneratedAt, props.Text{Size: 9, Align: align.Right, Top: 5}),
		),
	)
	m.AddRow(4, line.NewCol(12))

	m.AddRow(10,
		text.NewCol(3, "Merged at", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "File", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Size", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(3, "Sources", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if len(data.Rows) == 0 {
		m.AddRow(10, text.NewCol(12, "No merges recorded yet.", props.Text{Size: 9}))
	}

	for _, row := range data.Rows {
		m.AddRow(8,
			text.NewCol(3, row.CreatedAt, props.Text{Size: 9}),
			text.NewCol(4, row.FileName, props.Text{Size: 9}),
			text.NewCol(2, row.FileSize, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(3, row.SourceFiles, props.Text{Size: 9, Align: align.Right}),
		)
		if row.Settings != "" {
			m.AddRow(6, text.NewCol(12, row.Settings, props.Text{Size: 7, Style: fontstyle.Italic}))
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render history pdf: %w", err)
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

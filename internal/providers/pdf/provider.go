package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(NewProvider),
)

type Provider interface {
	GenerateHistory(ctx context.Context, data HistoryData) (io.Reader, error)
}

func NewProvider() Provider {
	return &PDFProvider{}
}

type PDFProvider struct{}

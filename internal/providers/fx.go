package providers

import (
	"github.com/smallbiznis/mergematrix/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
)

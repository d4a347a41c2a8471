// Package repository selects the tabular backend named by configuration.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/config"
	"github.com/mamadbah2/cafeledger/internal/repository/csvstore"
	"github.com/mamadbah2/cafeledger/internal/repository/sheets"
	"github.com/mamadbah2/cafeledger/internal/repository/tabular"
	"github.com/mamadbah2/cafeledger/internal/repository/xlsx"
)

// NewStore builds the configured ledger backend.
func NewStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (tabular.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Storage.Backend {
	case config.BackendCSV:
		return csvstore.New(cfg.Storage.DataDir, logger.Named("repo.csv"))
	case config.BackendXLSX:
		return xlsx.NewWorkbookStore(cfg.Storage.WorkbookPath, logger.Named("repo.xlsx"))
	case config.BackendSheets:
		return sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named("repo.sheets"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/mergematrix/internal/clock"
	"github.com/smallbiznis/mergematrix/internal/config"
	mergerecorddomain "github.com/smallbiznis/mergematrix/internal/mergerecord/domain"
	obslogger "github.com/smallbiznis/mergematrix/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mergematrix/internal/observability/metrics"
	obstracing "github.com/smallbiznis/mergematrix/internal/observability/tracing"
	"github.com/smallbiznis/mergematrix/internal/providers/pdf"
	"github.com/smallbiznis/mergematrix/internal/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Config  config.Config
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    mergerecorddomain.Repository
	PDF     pdf.Provider
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    mergerecorddomain.Repository
	pdf     pdf.Provider
	metrics *obsmetrics.Metrics
	timeout time.Duration
}

func New(p Params) mergerecorddomain.Service {
	return &Service{
		log:     p.Log.Named("mergerecord.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		pdf:     p.PDF,
		metrics: p.Metrics,
		timeout: p.Config.StoreTimeout,
	}
}

func (s *Service) Append(ctx context.Context, req mergerecorddomain.CreateRequest) (*mergerecorddomain.MergeRecord, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	record := &mergerecorddomain.MergeRecord{
		ID:          s.genID.Generate(),
		UserID:      strings.TrimSpace(req.UserID),
		UserEmail:   strings.TrimSpace(req.UserEmail),
		FileName:    req.FileName,
		FileSize:    *req.FileSize,
		MergedFiles: datatypes.JSONSlice[mergerecorddomain.SourceFile](req.MergedFiles),
		Settings:    datatypes.NewJSONType(req.Settings),
		CreatedAt:   s.clock.Now().UTC().Truncate(time.Millisecond),
	}

	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := obstracing.StartStoreSpan(ctx, "mergerecord.append", s.repo.Backend())
	defer span.End()

	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, s.storageError(ctx, "append", err)
	}

	s.metrics.RecordMergeRecordAppended(ctx, s.repo.Backend())
	return record, nil
}

func (s *Service) ListByOwner(ctx context.Context, query mergerecorddomain.OwnerQuery) ([]mergerecorddomain.MergeRecord, error) {
	filter, err := resolveOwner(query)
	if err != nil {
		return nil, err
	}
	return s.listByFilter(ctx, filter)
}

func (s *Service) listByFilter(ctx context.Context, filter mergerecorddomain.OwnerFilter) ([]mergerecorddomain.MergeRecord, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx, span := obstracing.StartStoreSpan(ctx, "mergerecord.list_by_owner", s.repo.Backend())
	defer span.End()

	records, err := s.repo.ListByOwner(ctx, filter, mergerecorddomain.HistoryLimit)
	if err != nil {
		return nil, s.storageError(ctx, "list_by_owner", err)
	}
	if records == nil {
		records = []mergerecorddomain.MergeRecord{}
	}
	return records, nil
}

func (s *Service) ExportHistory(ctx context.Context, query mergerecorddomain.OwnerQuery) (*mergerecorddomain.HistoryExport, error) {
	filter, err := resolveOwner(query)
	if err != nil {
		return nil, err
	}

	records, err := s.listByFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	owner := filter.UserID
	if owner == "" {
		owner = filter.UserEmail
	}

	data := pdf.HistoryData{
		Owner:       owner,
		GeneratedAt: s.clock.Now().UTC().Format("2006-01-02 15:04 MST"),
		Rows:        make([]pdf.HistoryRow, 0, len(records)),
	}
	for _, record := range records {
		data.Rows = append(data.Rows, historyRow(record))
	}

	content, err := s.pdf.GenerateHistory(ctx, data)
	if err != nil {
		s.log.Error("render merge history failed", zap.Error(err))
		return nil, err
	}

	return &mergerecorddomain.HistoryExport{
		FileName: fmt.Sprintf("merge-history-%s.pdf", slug.Make(owner)),
		Content:  content,
	}, nil
}

func (s *Service) storageError(ctx context.Context, operation string, err error) error {
	s.metrics.RecordStorageError(ctx, s.repo.Backend(), operation)
	obstracing.FailSpan(ctx, err)
	obslogger.WithContext(ctx, s.log).Error("merge record store call failed",
		zap.String("operation", operation),
		zap.String("backend", s.repo.Backend()),
		zap.Error(err),
	)
	return storage.Wrap(err)
}

// validateCreateRequest reports the first missing field in declaration order.
func validateCreateRequest(req mergerecorddomain.CreateRequest) error {
	switch {
	case strings.TrimSpace(req.UserID) == "":
		return &mergerecorddomain.MissingFieldError{Field: "userId"}
	case strings.TrimSpace(req.UserEmail) == "":
		return &mergerecorddomain.MissingFieldError{Field: "userEmail"}
	case strings.TrimSpace(req.FileName) == "":
		return &mergerecorddomain.MissingFieldError{Field: "fileName"}
	case req.FileSize == nil:
		return &mergerecorddomain.MissingFieldError{Field: "fileSize"}
	case len(req.MergedFiles) == 0:
		return &mergerecorddomain.MissingFieldError{Field: "mergedFiles"}
	}

	if *req.FileSize < 0 {
		return mergerecorddomain.ErrInvalidFileSize
	}
	for _, file := range req.MergedFiles {
		if file.Size < 0 {
			return mergerecorddomain.ErrInvalidFileSize
		}
	}
	return nil
}

func resolveOwner(query mergerecorddomain.OwnerQuery) (mergerecorddomain.OwnerFilter, error) {
	if userID := strings.TrimSpace(query.UserID); userID != "" {
		return mergerecorddomain.OwnerFilter{UserID: userID}, nil
	}
	if userEmail := strings.TrimSpace(query.UserEmail); userEmail != "" {
		return mergerecorddomain.OwnerFilter{UserEmail: userEmail}, nil
	}
	return mergerecorddomain.OwnerFilter{}, mergerecorddomain.ErrInvalidQuery
}

func historyRow(record mergerecorddomain.MergeRecord) pdf.HistoryRow {
	settings := record.Settings.Data()
	var parts []string
	if settings.Quality != "" {
		parts = append(parts, "quality "+settings.Quality)
	}
	if settings.Orientation != "" {
		parts = append(parts, "orientation "+settings.Orientation)
	}
	if settings.Compression != "" {
		parts = append(parts, "compression "+settings.Compression)
	}

	return pdf.HistoryRow{
		CreatedAt:   record.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
		FileName:    record.FileName,
		FileSize:    formatBytes(record.FileSize),
		SourceFiles: fmt.Sprintf("%d files", len(record.MergedFiles)),
		Settings:    strings.Join(parts, ", "),
	}
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

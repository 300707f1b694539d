package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/dojoclub/points-api/internal/models"
	appErrors "github.com/dojoclub/points-api/pkg/errors"
	"github.com/dojoclub/points-api/pkg/export"
)

// StatementFormat selects the export encoding.
type StatementFormat string

const (
	FormatCSV StatementFormat = "csv"
	FormatPDF StatementFormat = "pdf"
)

// Statement is a rendered ledger export.
type Statement struct {
	FileName    string
	ContentType string
	Body        []byte
}

type statementLedger interface {
	Snapshot(ctx context.Context, studentID string) (*models.StudentSnapshot, error)
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, *models.Pagination, error)
}

// StatementService renders a student's ledger as CSV or PDF.
type StatementService struct {
	ledger  statementLedger
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	maxRows int
	logger  *zap.Logger
}

// NewStatementService constructs the service.
func NewStatementService(ledger statementLedger, maxRows int, logger *zap.Logger) *StatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &StatementService{
		ledger:  ledger,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		maxRows: maxRows,
		logger:  logger,
	}
}

var statementHeaders = []string{"Date", "Category", "Points", "Base", "Multiplier", "Note", "Recorded By"}

// Render builds the statement for a student over the filter's range.
func (s *StatementService) Render(ctx context.Context, filter models.LedgerFilter, format StatementFormat) (*Statement, error) {
	snapshot, err := s.ledger.Snapshot(ctx, filter.StudentID)
	if err != nil {
		return nil, err
	}

	filter.Page = 1
	filter.PageSize = s.maxRows
	entries, _, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		row := map[string]string{
			"Date":        entry.CreatedAt.Format("2006-01-02 15:04"),
			"Category":    string(entry.Category),
			"Points":      strconv.Itoa(entry.Points),
			"Note":        entry.Note,
			"Recorded By": entry.CreatedBy,
		}
		if entry.PointsBase != nil {
			row["Base"] = strconv.Itoa(*entry.PointsBase)
		}
		if entry.PointsMultiplier != nil {
			row["Multiplier"] = fmt.Sprintf("%.2f", *entry.PointsMultiplier)
		}
		rows = append(rows, row)
	}

	dataset := export.Dataset{
		Headers: statementHeaders,
		Rows:    rows,
		Footer: map[string]string{
			"Date":   "TOTAL",
			"Points": strconv.Itoa(snapshot.PointsBalance),
			"Note":   fmt.Sprintf("lifetime %d, level %d", snapshot.LifetimePoints, snapshot.Level),
		},
	}

	title := fmt.Sprintf("Point Statement - %s", snapshot.FullName)
	switch format {
	case FormatCSV:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &Statement{
			FileName:    fmt.Sprintf("statement-%s.csv", filter.StudentID),
			ContentType: "text/csv",
			Body:        body,
		}, nil
	case FormatPDF:
		body, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &Statement{
			FileName:    fmt.Sprintf("statement-%s.pdf", filter.StudentID),
			ContentType: "application/pdf",
			Body:        body,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported statement format")
	}
}

package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/van-fee-api/pkg/export"
	appErrors "github.com/noah-isme/van-fee-api/pkg/errors"
)

// Statement formats.
const (
	StatementCSV = "csv"
	StatementPDF = "pdf"
)

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]+`)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// Statement is a rendered payment statement.
type Statement struct {
	Filename    string
	ContentType string
	Body        []byte
}

// StatementService renders a student's payment statement.
type StatementService struct {
	students       studentDetailer
	renderers      map[string]datasetRenderer
	currencySymbol string
	logger         *zap.Logger
}

// NewStatementService constructs a StatementService backed by the CSV and PDF exporters.
func NewStatementService(students studentDetailer, csv, pdf datasetRenderer, currencySymbol string, logger *zap.Logger) *StatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &StatementService{
		students:       students,
		renderers:      map[string]datasetRenderer{StatementCSV: csv, StatementPDF: pdf},
		currencySymbol: currencySymbol,
		logger:         logger,
	}
}

// Render builds the statement in the requested format. Payments are listed newest first.
func (s *StatementService) Render(ctx context.Context, ownerID, studentID, format string) (*Statement, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = StatementCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported statement format %q", format))
	}

	detail, err := s.students.Student(ctx, ownerID, studentID)
	if err != nil {
		return nil, err
	}

	summary := []export.Field{
		{Label: "Student", Value: detail.Name},
		{Label: "School", Value: detail.SchoolName},
		{Label: "Parent phone", Value: detail.ParentPhone},
		{Label: "Admission date", Value: detail.AdmissionDate.String()},
		{Label: "Monthly fee", Value: s.money(detail.TotalFees.StringFixed(2))},
		{Label: "Paid", Value: s.money(detail.PaidFees.StringFixed(2))},
		{Label: "Pending", Value: s.money(detail.PendingFees.StringFixed(2))},
		{Label: "Billed through", Value: detail.LastBilledDate.String()},
		{Label: "Next billing date", Value: detail.NextBillingDate.String()},
	}
	rows := make([]map[string]string, 0, len(detail.PaymentHistory))
	for _, entry := range detail.PaymentHistory {
		rows = append(rows, map[string]string{
			"Date":   entry.Date.String(),
			"Amount": entry.Amount.StringFixed(2),
		})
	}

	body, err := renderer.Render(export.Dataset{
		Title:   "Van Fee Statement",
		Summary: summary,
		Headers: []string{"Date", "Amount"},
		Rows:    rows,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}

	name := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(detail.Name), "-"), "-")
	if name == "" {
		name = "student"
	}
	return &Statement{
		Filename:    fmt.Sprintf("statement-%s-%s.%s", name, detail.LastBilledDate.String(), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func (s *StatementService) money(v string) string {
	return s.currencySymbol + v
}
